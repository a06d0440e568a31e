package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vytor/studyflash/internal/models"
)

type generatedQuestion struct {
	Content     string            `json:"content"`
	Options     []generatedOption `json:"options"`
	Explanation *string           `json:"explanation"`
}

type generatedOption struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	IsCorrect *bool  `json:"is_correct"`
}

type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// ParseQuestion decodes and validates one generated question. Anything but
// five options A..E with exactly one marked correct is rejected.
func ParseQuestion(responseBody string) (*models.Question, error) {
	cleaned := stripCodeFences(responseBody)

	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.DisallowUnknownFields()
	var gq generatedQuestion
	if err := dec.Decode(&gq); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	var errs []string
	q := models.Question{Content: strings.TrimSpace(gq.Content)}
	for i, o := range gq.Options {
		if o.IsCorrect == nil {
			errs = append(errs, fmt.Sprintf("option %d: missing is_correct", i+1))
		}
		q.Options = append(q.Options, models.Option{
			ID:        strings.TrimSpace(o.ID),
			Content:   strings.TrimSpace(o.Content),
			IsCorrect: o.IsCorrect != nil && *o.IsCorrect,
		})
	}
	if gq.Explanation != nil {
		if e := strings.TrimSpace(*gq.Explanation); e != "" {
			q.Explanation = &e
		}
	}
	if err := q.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return &q, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}
