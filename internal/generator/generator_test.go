package generator_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/studyflash/internal/generator"
	"github.com/vytor/studyflash/internal/models"
)

func questionJSON(t *testing.T, mutate func(m map[string]any)) string {
	t.Helper()
	var opts []map[string]any
	for i, id := range models.OptionIDs {
		opts = append(opts, map[string]any{"id": id, "content": "choice " + id, "is_correct": i == 3})
	}
	m := map[string]any{
		"content":     "Which statement about goroutines is true?",
		"options":     opts,
		"explanation": "They are multiplexed onto OS threads.",
	}
	if mutate != nil {
		mutate(m)
	}
	data, err := json.Marshal(m)
	require.NoError(t, err)
	return string(data)
}

func TestParseQuestion_Valid(t *testing.T) {
	q, err := generator.ParseQuestion(questionJSON(t, nil))
	require.NoError(t, err)

	assert.Len(t, q.Options, 5)
	assert.Equal(t, "D", q.CorrectOptionID())
	require.NotNil(t, q.Explanation)
}

func TestParseQuestion_MarkdownFences(t *testing.T) {
	q, err := generator.ParseQuestion("```json\n" + questionJSON(t, nil) + "\n```")
	require.NoError(t, err)
	assert.Equal(t, "Which statement about goroutines is true?", q.Content)
}

func TestParseQuestion_EmptyExplanationIsDropped(t *testing.T) {
	q, err := generator.ParseQuestion(questionJSON(t, func(m map[string]any) { m["explanation"] = "  " }))
	require.NoError(t, err)
	assert.Nil(t, q.Explanation)
}

func TestParseQuestion_RejectsBadShapes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m map[string]any)
		want   string
	}{
		{"four options", func(m map[string]any) {
			m["options"] = m["options"].([]map[string]any)[:4]
		}, "expected 5 options"},
		{"two correct", func(m map[string]any) {
			m["options"].([]map[string]any)[0]["is_correct"] = true
		}, "exactly one correct"},
		{"none correct", func(m map[string]any) {
			m["options"].([]map[string]any)[3]["is_correct"] = false
		}, "exactly one correct"},
		{"wrong ids", func(m map[string]any) {
			m["options"].([]map[string]any)[1]["id"] = "Z"
		}, `expected "B"`},
		{"missing flag", func(m map[string]any) {
			delete(m["options"].([]map[string]any)[2], "is_correct")
		}, "missing is_correct"},
		{"empty content", func(m map[string]any) { m["content"] = "" }, "content is empty"},
		{"unknown field", func(m map[string]any) { m["answer"] = "D" }, "unknown field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := generator.ParseQuestion(questionJSON(t, tt.mutate))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := generator.ParseQuestion("not json at all")
	assert.Error(t, err)
}

func request(step models.StepType) generator.Request {
	return generator.Request{
		Topic: "Go concurrency", Subtopic: "channels",
		Difficulty: models.DifficultyIntermediate, Style: models.StyleSocratic,
		ExplanationType: models.ExplanationAnalogy, StepType: step,
	}
}

func TestBuildUserPrompt(t *testing.T) {
	p := generator.BuildUserPrompt(request(models.StepComparison))

	assert.Contains(t, p, "Topic: Go concurrency")
	assert.Contains(t, p, "Subtopic: channels")
	assert.Contains(t, p, "Difficulty: Intermediate")
	assert.Contains(t, p, "Step: COMPARISON")
	assert.Contains(t, p, "Cognitive level: Analyze")
	assert.Contains(t, p, "analogy")
}

func TestGenerator_WithMockClient(t *testing.T) {
	g := generator.New(generator.NewMockClient(), "mock")

	seen := map[string]bool{}
	for _, step := range models.StepOrder {
		q, err := g.GenerateQuestion(context.Background(), request(step))
		require.NoError(t, err, step)
		assert.Contains(t, q.Content, "Go concurrency")
		seen[q.CorrectOptionID()] = true
	}
	assert.Greater(t, len(seen), 1, "correct option should vary across steps")
}

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (*generator.LLMResponse, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*generator.LLMResponse), args.Error(1)
}

func TestGenerator_PropagatesFailures(t *testing.T) {
	llm := new(mockLLM)
	boom := stderrors.New("overloaded")
	llm.On("Generate", mock.Anything, mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Step: CONCEPT")
	})).Return(nil, boom).Once()
	llm.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(&generator.LLMResponse{Content: `{"content":"q","options":[]}`}, nil).Once()

	g := generator.New(llm, "test")

	_, err := g.GenerateQuestion(context.Background(), request(models.StepConcept))
	assert.ErrorIs(t, err, boom)

	_, err = g.GenerateQuestion(context.Background(), request(models.StepExample))
	var verr *generator.ValidationError
	assert.ErrorAs(t, err, &verr)

	llm.AssertExpectations(t)
}

func TestMockClient_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := generator.NewMockClient().Generate(ctx, "", "Topic: x")
	assert.ErrorIs(t, err, context.Canceled)
}
