package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/studyflash/internal/generator"
	"github.com/vytor/studyflash/internal/models"
)

// MockQuestionGenerator is a mock implementation of generator.QuestionGenerator
type MockQuestionGenerator struct {
	mock.Mock
}

func (m *MockQuestionGenerator) GenerateQuestion(ctx context.Context, req generator.Request) (*models.Question, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}
