package models

// Quiz configuration enumerations. Each value carries a display label; the
// tables are exposed to clients as-is.

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

type Style string

const (
	StyleConceptual Style = "conceptual"
	StylePractical  Style = "practical"
	StyleSocratic   Style = "socratic"
)

type ExplanationType string

const (
	ExplanationBrief    ExplanationType = "brief"
	ExplanationDetailed ExplanationType = "detailed"
	ExplanationAnalogy  ExplanationType = "analogy"
)

type StepType string

const (
	StepConcept     StepType = "CONCEPT"
	StepExample     StepType = "EXAMPLE"
	StepComparison  StepType = "COMPARISON"
	StepApplication StepType = "APPLICATION"
)

// StepOrder is the fixed order of steps in every quiz.
var StepOrder = []StepType{StepConcept, StepExample, StepComparison, StepApplication}

// Label is one row of a lookup table.
type Label struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var difficultyLabels = []Label{
	{string(DifficultyBeginner), "Beginner", "Recall of definitions and basic facts"},
	{string(DifficultyIntermediate), "Intermediate", "Applying ideas to familiar situations"},
	{string(DifficultyAdvanced), "Advanced", "Analysis of edge cases and trade-offs"},
}

var styleLabels = []Label{
	{string(StyleConceptual), "Conceptual", "Questions about what an idea means"},
	{string(StylePractical), "Practical", "Questions grounded in concrete tasks"},
	{string(StyleSocratic), "Socratic", "Questions that lead step by step to an insight"},
}

var explanationLabels = []Label{
	{string(ExplanationBrief), "Brief", "One or two sentences"},
	{string(ExplanationDetailed), "Detailed", "A full walkthrough of the reasoning"},
	{string(ExplanationAnalogy), "Analogy", "An everyday comparison"},
}

var stepLabels = []Label{
	{string(StepConcept), "Concept", "Remember"},
	{string(StepExample), "Example", "Understand"},
	{string(StepComparison), "Comparison", "Analyze"},
	{string(StepApplication), "Application", "Apply"},
}

func lookup(table []Label, v string) (Label, bool) {
	for _, l := range table {
		if l.Value == v {
			return l, true
		}
	}
	return Label{}, false
}

func (d Difficulty) Valid() bool {
	_, ok := lookup(difficultyLabels, string(d))
	return ok
}

func (d Difficulty) Label() string {
	l, _ := lookup(difficultyLabels, string(d))
	return l.Label
}

func (s Style) Valid() bool {
	_, ok := lookup(styleLabels, string(s))
	return ok
}

func (s Style) Label() string {
	l, _ := lookup(styleLabels, string(s))
	return l.Label
}

func (e ExplanationType) Valid() bool {
	_, ok := lookup(explanationLabels, string(e))
	return ok
}

func (e ExplanationType) Label() string {
	l, _ := lookup(explanationLabels, string(e))
	return l.Label
}

func (t StepType) Valid() bool {
	_, ok := lookup(stepLabels, string(t))
	return ok
}

func (t StepType) Label() string {
	l, _ := lookup(stepLabels, string(t))
	return l.Label
}

// BloomLevel is the cognitive level the step targets.
func (t StepType) BloomLevel() string {
	l, _ := lookup(stepLabels, string(t))
	return l.Description
}

// QuizOptions groups the lookup tables for clients.
type QuizOptions struct {
	Difficulties     []Label `json:"difficulties"`
	Styles           []Label `json:"styles"`
	ExplanationTypes []Label `json:"explanation_types"`
	StepTypes        []Label `json:"step_types"`
}

func AllQuizOptions() QuizOptions {
	cp := func(in []Label) []Label { return append([]Label(nil), in...) }
	return QuizOptions{
		Difficulties:     cp(difficultyLabels),
		Styles:           cp(styleLabels),
		ExplanationTypes: cp(explanationLabels),
		StepTypes:        cp(stepLabels),
	}
}
