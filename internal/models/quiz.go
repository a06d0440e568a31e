package models

import (
	"fmt"
	"strings"
	"time"
)

type QuizStatus string

const (
	QuizActive    QuizStatus = "ACTIVE"
	QuizCompleted QuizStatus = "COMPLETED"
	QuizAbandoned QuizStatus = "ABANDONED"
)

// OptionIDs are the fixed identifiers of the five answer options, in order.
var OptionIDs = []string{"A", "B", "C", "D", "E"}

type Option struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	IsCorrect bool   `json:"is_correct"`
}

type Question struct {
	Content     string   `json:"content"`
	Options     []Option `json:"options"`
	Explanation *string  `json:"explanation,omitempty"`
}

// Validate enforces the generated question shape: non-empty content and
// exactly five options A..E with exactly one correct.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Content) == "" {
		return fmt.Errorf("question content is empty")
	}
	if len(q.Options) != len(OptionIDs) {
		return fmt.Errorf("expected %d options, got %d", len(OptionIDs), len(q.Options))
	}
	correct := 0
	for i, opt := range q.Options {
		if opt.ID != OptionIDs[i] {
			return fmt.Errorf("option %d has id %q, expected %q", i, opt.ID, OptionIDs[i])
		}
		if strings.TrimSpace(opt.Content) == "" {
			return fmt.Errorf("option %s has empty content", opt.ID)
		}
		if opt.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return fmt.Errorf("expected exactly one correct option, got %d", correct)
	}
	return nil
}

func (q Question) Option(id string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

func (q Question) CorrectOptionID() string {
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt.ID
		}
	}
	return ""
}

type QuizStep struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id"`
	Position   int        `json:"position"`
	StepType   StepType   `json:"step_type"`
	Question   *Question  `json:"question,omitempty"`
	UserAnswer *string    `json:"user_answer,omitempty"`
	IsCorrect  *bool      `json:"is_correct"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
}

func (s QuizStep) Answered() bool {
	return s.IsCorrect != nil
}

type QuizSession struct {
	ID              string          `json:"id"`
	UserID          int64           `json:"user_id"`
	Topic           string          `json:"topic"`
	Subtopic        string          `json:"subtopic"`
	Difficulty      Difficulty      `json:"difficulty"`
	Style           Style           `json:"style"`
	ExplanationType ExplanationType `json:"explanation_type"`
	Status          QuizStatus      `json:"status"`
	Steps           []QuizStep      `json:"steps"`
	Version         int64           `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	AbandonedAt     *time.Time      `json:"abandoned_at,omitempty"`
}

// CurrentStep returns the first unanswered step, or nil once all are answered.
func (s *QuizSession) CurrentStep() *QuizStep {
	for i := range s.Steps {
		if !s.Steps[i].Answered() {
			return &s.Steps[i]
		}
	}
	return nil
}

func (s *QuizSession) Step(id string) *QuizStep {
	for i := range s.Steps {
		if s.Steps[i].ID == id {
			return &s.Steps[i]
		}
	}
	return nil
}

func (s *QuizSession) CorrectCount() int {
	n := 0
	for _, st := range s.Steps {
		if st.IsCorrect != nil && *st.IsCorrect {
			n++
		}
	}
	return n
}

type CreateQuizInput struct {
	Topic           string          `json:"topic"`
	Subtopic        string          `json:"subtopic"`
	Difficulty      Difficulty      `json:"difficulty"`
	Style           Style           `json:"style"`
	ExplanationType ExplanationType `json:"explanation_type"`
}

type AnswerResult struct {
	IsCorrect       bool       `json:"is_correct"`
	CorrectOptionID string     `json:"correct_option_id"`
	Explanation     *string    `json:"explanation,omitempty"`
	NextStep        *QuizStep  `json:"next_step"`
	Status          QuizStatus `json:"status"`
}

// Public returns a copy safe to show before the step is answered: option
// correctness and the explanation stay hidden until then.
func (s QuizStep) Public() QuizStep {
	if s.Question == nil || s.Answered() {
		return s
	}
	q := *s.Question
	q.Explanation = nil
	q.Options = make([]Option, len(s.Question.Options))
	for i, o := range s.Question.Options {
		q.Options[i] = Option{ID: o.ID, Content: o.Content}
	}
	s.Question = &q
	return s
}

// Public returns a copy of the session with every step passed through
// QuizStep.Public.
func (s QuizSession) Public() QuizSession {
	steps := make([]QuizStep, len(s.Steps))
	for i, st := range s.Steps {
		steps[i] = st.Public()
	}
	s.Steps = steps
	return s
}
