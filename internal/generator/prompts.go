package generator

import (
	"fmt"
	"strings"

	"github.com/vytor/studyflash/internal/models"
)

var stepInstructions = map[models.StepType]string{
	models.StepConcept:     "Ask about the core definition or principle. The learner should recognise the idea, not apply it.",
	models.StepExample:     "Present a short concrete scenario and ask which option correctly illustrates the concept.",
	models.StepComparison:  "Contrast the concept with a closely related one and ask what distinguishes them.",
	models.StepApplication: "Describe a realistic problem and ask which option applies the concept correctly to solve it.",
}

var styleInstructions = map[models.Style]string{
	models.StyleConceptual: "Phrase the question abstractly, focusing on meaning.",
	models.StylePractical:  "Ground the question in a hands-on task a practitioner would face.",
	models.StyleSocratic:   "Phrase the question as a guiding question that leads the learner to reason it out.",
}

var explanationInstructions = map[models.ExplanationType]string{
	models.ExplanationBrief:    "Keep the explanation to one or two sentences.",
	models.ExplanationDetailed: "Explain why the correct option is right and why each distractor is wrong.",
	models.ExplanationAnalogy:  "Explain the answer through an everyday analogy.",
}

func SystemPrompt() string {
	return `You write multiple-choice questions for a step-by-step study quiz.

Respond with a single JSON object and nothing else:
{
  "content": "<question text>",
  "options": [
    {"id": "A", "content": "<option>", "is_correct": false},
    {"id": "B", "content": "<option>", "is_correct": false},
    {"id": "C", "content": "<option>", "is_correct": true},
    {"id": "D", "content": "<option>", "is_correct": false},
    {"id": "E", "content": "<option>", "is_correct": false}
  ],
  "explanation": "<why the correct option is correct>"
}

Rules:
- Exactly five options with ids A, B, C, D, E in that order.
- Exactly one option has "is_correct": true.
- Distractors must be plausible and about the same length as the correct option.
- Vary the position of the correct option.`
}

// BuildUserPrompt renders a generation request. The "Name: value" header
// lines are stable so the mock backend can read them back.
func BuildUserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", req.Topic)
	if req.Subtopic != "" {
		fmt.Fprintf(&b, "Subtopic: %s\n", req.Subtopic)
	}
	fmt.Fprintf(&b, "Difficulty: %s\n", req.Difficulty.Label())
	fmt.Fprintf(&b, "Step: %s\n", req.StepType)
	fmt.Fprintf(&b, "Cognitive level: %s\n\n", req.StepType.BloomLevel())

	b.WriteString(stepInstructions[req.StepType])
	b.WriteString("\n")
	b.WriteString(styleInstructions[req.Style])
	b.WriteString("\n")
	b.WriteString(explanationInstructions[req.ExplanationType])
	b.WriteString("\n")
	return b.String()
}
