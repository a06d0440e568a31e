package generator

import (
	"context"
	"fmt"

	"github.com/vytor/studyflash/internal/logger"
	"github.com/vytor/studyflash/internal/models"
)

// Request describes the question wanted for one quiz step.
type Request struct {
	Topic           string
	Subtopic        string
	Difficulty      models.Difficulty
	Style           models.Style
	ExplanationType models.ExplanationType
	StepType        models.StepType
}

// QuestionGenerator produces validated questions for quiz steps.
type QuestionGenerator interface {
	GenerateQuestion(ctx context.Context, req Request) (*models.Question, error)
}

// Generator wraps an LLMClient with prompting and response validation.
type Generator struct {
	llm   LLMClient
	model string
}

func New(llm LLMClient, model string) *Generator {
	return &Generator{llm: llm, model: model}
}

func (g *Generator) ModelName() string {
	return g.model
}

func (g *Generator) GenerateQuestion(ctx context.Context, req Request) (*models.Question, error) {
	log := logger.FromContext(ctx).WithPrefix("generator").WithField("step", req.StepType)
	log.Debug("generating question: topic=%s, model=%s", req.Topic, g.model)

	resp, err := g.llm.Generate(ctx, SystemPrompt(), BuildUserPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("generate question: %w", err)
	}

	q, err := ParseQuestion(resp.Content)
	if err != nil {
		log.Warn("rejected generated question: %v", err)
		return nil, fmt.Errorf("parse question: %w", err)
	}

	log.Debug("question generated: prompt_tokens=%d, output_tokens=%d", resp.PromptTokens, resp.OutputTokens)
	return q, nil
}
