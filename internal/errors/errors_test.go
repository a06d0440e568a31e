package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vytor/studyflash/internal/errors"
)

func TestAppError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("answer step: %w", errors.NewStepOutOfOrderError("s3", "s2"))

	assert.True(t, stderrors.Is(err, errors.ErrStepOutOfOrder))
	assert.False(t, stderrors.Is(err, errors.ErrStepNotFound))
}

func TestAppError_Statuses(t *testing.T) {
	tests := []struct {
		name   string
		err    *errors.AppError
		status int
	}{
		{"invalid grade", errors.NewInvalidGradeError(7), http.StatusBadRequest},
		{"session not found", errors.NewSessionNotFoundError("x"), http.StatusNotFound},
		{"step not found", errors.NewStepNotFoundError("x"), http.StatusNotFound},
		{"option not found", errors.NewOptionNotFoundError("F", "x"), http.StatusNotFound},
		{"out of order", errors.NewStepOutOfOrderError("a", "b"), http.StatusConflict},
		{"reset", errors.NewInvalidStateForResetError("x", "ACTIVE"), http.StatusConflict},
		{"stale", errors.NewStaleSubmissionError(1), http.StatusConflict},
		{"no due cards", errors.NewNoDueCardsError(1), http.StatusConflict},
		{"upstream", errors.NewUpstreamGenerationError(stderrors.New("x"), false), http.StatusBadGateway},
		{"upstream timeout", errors.NewUpstreamGenerationError(stderrors.New("x"), true), http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestAppError_OnlyUpstreamIsRetryable(t *testing.T) {
	assert.True(t, errors.NewUpstreamGenerationError(nil, true).Retryable())
	assert.False(t, errors.NewStepAlreadyAnsweredError("x").Retryable())
	assert.False(t, errors.NewInvalidGradeError(-1).Retryable())
}

func TestAs_WrapsUnknownErrors(t *testing.T) {
	plain := stderrors.New("disk on fire")
	appErr := errors.As(plain)

	assert.Equal(t, errors.ErrCodeInternal, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, plain)

	known := errors.NewSessionBusyError("abc")
	assert.Same(t, known, errors.As(fmt.Errorf("wrapped: %w", known)))
}
