package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/vytor/studyflash/internal/logger"
	"github.com/vytor/studyflash/internal/models"
)

// LLMClient is the interface both generator backends satisfy.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// ── APIClient: Anthropic Messages API ──────────────────────

type APIClient struct {
	client   *anthropic.Client
	model    string
	attempts int
	backoff  time.Duration
	log      *logger.Logger
}

func NewAPIClient(apiKey, model string) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &APIClient{
		client:   &client,
		model:    model,
		attempts: 2,
		backoff:  time.Second,
		log:      logger.Default().WithPrefix("anthropic"),
	}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   2048,
		Temperature: param.NewOpt(0.7),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

// callWithRetry stops early when ctx is done so the caller's generation
// timeout always wins over the backoff.
func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			wait := c.backoff << uint(attempt-1)
			c.log.Warn("retrying Anthropic API call in %v (attempt %d)", wait, attempt+1)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		c.log.Warn("Anthropic API attempt %d failed: %v", attempt+1, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── MockClient: local development ──────────────────────────

// MockClient returns a well-formed question built from the prompt. The
// correct option rotates with the step so answers are not always "A".
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	topic := promptField(userPrompt, "Topic")
	step := models.StepType(promptField(userPrompt, "Step"))

	correct := 0
	for i, st := range models.StepOrder {
		if st == step {
			correct = i + 1
		}
	}

	var opts []string
	for i, id := range models.OptionIDs {
		label := "a plausible but incorrect statement"
		if i == correct%len(models.OptionIDs) {
			label = "the correct statement"
		}
		opts = append(opts, fmt.Sprintf(`{"id":%q,"content":"[Mock] %s about %s","is_correct":%v}`,
			id, label, escape(topic), i == correct%len(models.OptionIDs)))
	}
	body := fmt.Sprintf(`{"content":"[Mock] %s question about %s?","options":[%s],"explanation":"[Mock] Option %s states the key idea of %s."}`,
		escape(strings.ToLower(string(step))), escape(topic), strings.Join(opts, ","),
		models.OptionIDs[correct%len(models.OptionIDs)], escape(topic))

	return &LLMResponse{Content: body, PromptTokens: len(userPrompt) / 4, OutputTokens: len(body) / 4}, nil
}

// promptField reads a "Name: value" line from a user prompt.
func promptField(prompt, name string) string {
	prefix := name + ":"
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return ""
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", " ").Replace(s)
}
