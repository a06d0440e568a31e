package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"

	ErrCodeInvalidGrade            = "INVALID_GRADE"
	ErrCodeSessionNotFound         = "SESSION_NOT_FOUND"
	ErrCodeFlashcardNotInSession   = "FLASHCARD_NOT_IN_SESSION"
	ErrCodeStaleSubmission         = "STALE_SUBMISSION"
	ErrCodeCardOutOfOrder          = "CARD_OUT_OF_ORDER"
	ErrCodeStepNotFound            = "STEP_NOT_FOUND"
	ErrCodeOptionNotFound          = "OPTION_NOT_FOUND"
	ErrCodeStepAlreadyAnswered     = "STEP_ALREADY_ANSWERED"
	ErrCodeStepOutOfOrder          = "STEP_OUT_OF_ORDER"
	ErrCodeQuestionNotGenerated    = "QUESTION_NOT_GENERATED"
	ErrCodeInvalidStateForReset    = "INVALID_STATE_FOR_RESET"
	ErrCodeUpstreamGenerationError = "UPSTREAM_GENERATION_ERROR"
	ErrCodeNoDueCards              = "NO_DUE_CARDS"
	ErrCodeSessionClosed           = "SESSION_CLOSED"
	ErrCodeSessionBusy             = "SESSION_BUSY"
)

// AppError represents an application error with HTTP status code and error code.
// Two AppErrors match under errors.Is when their codes are equal.
type AppError struct {
	Code    string // Error code (e.g., "NOT_FOUND", "STEP_OUT_OF_ORDER")
	Message string // Human-readable error message
	Status  int    // HTTP status code
	Err     error  // Wrapped underlying error (optional)
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error wrapping support
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Retryable reports whether the caller may re-issue the same request.
func (e *AppError) Retryable() bool {
	return e.Code == ErrCodeUpstreamGenerationError
}

// Sentinels for errors.Is checks. Never return these directly; use the
// constructors so callers get a specific message.
var (
	ErrNotFound              = &AppError{Code: ErrCodeNotFound, Status: http.StatusNotFound}
	ErrValidation            = &AppError{Code: ErrCodeValidation, Status: http.StatusBadRequest}
	ErrInternal              = &AppError{Code: ErrCodeInternal, Status: http.StatusInternalServerError}
	ErrUnauthorized          = &AppError{Code: ErrCodeUnauthorized, Status: http.StatusUnauthorized}
	ErrInvalidGrade          = &AppError{Code: ErrCodeInvalidGrade, Status: http.StatusBadRequest}
	ErrSessionNotFound       = &AppError{Code: ErrCodeSessionNotFound, Status: http.StatusNotFound}
	ErrFlashcardNotInSession = &AppError{Code: ErrCodeFlashcardNotInSession, Status: http.StatusBadRequest}
	ErrStaleSubmission       = &AppError{Code: ErrCodeStaleSubmission, Status: http.StatusConflict}
	ErrCardOutOfOrder        = &AppError{Code: ErrCodeCardOutOfOrder, Status: http.StatusConflict}
	ErrStepNotFound          = &AppError{Code: ErrCodeStepNotFound, Status: http.StatusNotFound}
	ErrOptionNotFound        = &AppError{Code: ErrCodeOptionNotFound, Status: http.StatusNotFound}
	ErrStepAlreadyAnswered   = &AppError{Code: ErrCodeStepAlreadyAnswered, Status: http.StatusConflict}
	ErrStepOutOfOrder        = &AppError{Code: ErrCodeStepOutOfOrder, Status: http.StatusConflict}
	ErrQuestionNotGenerated  = &AppError{Code: ErrCodeQuestionNotGenerated, Status: http.StatusConflict}
	ErrInvalidStateForReset  = &AppError{Code: ErrCodeInvalidStateForReset, Status: http.StatusConflict}
	ErrUpstreamGeneration    = &AppError{Code: ErrCodeUpstreamGenerationError, Status: http.StatusBadGateway}
	ErrNoDueCards            = &AppError{Code: ErrCodeNoDueCards, Status: http.StatusConflict}
	ErrSessionClosed         = &AppError{Code: ErrCodeSessionClosed, Status: http.StatusConflict}
	ErrSessionBusy           = &AppError{Code: ErrCodeSessionBusy, Status: http.StatusConflict}
)

// NewNotFoundError creates a new NOT_FOUND error
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Status:  http.StatusNotFound,
	}
}

// NewValidationError creates a new VALIDATION_ERROR
func NewValidationError(field string, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
		Status:  http.StatusBadRequest,
	}
}

// NewInternalError creates a new INTERNAL_ERROR
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// NewBadRequestError creates a new BAD_REQUEST error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewUnauthorizedError creates a new UNAUTHORIZED error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

func NewInvalidGradeError(grade int) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidGrade,
		Message: fmt.Sprintf("grade must be between 0 and 5, got %d", grade),
		Status:  http.StatusBadRequest,
	}
}

func NewSessionNotFoundError(sessionID string) *AppError {
	return &AppError{
		Code:    ErrCodeSessionNotFound,
		Message: fmt.Sprintf("session not found: %s", sessionID),
		Status:  http.StatusNotFound,
	}
}

func NewFlashcardNotInSessionError(flashcardID int64, sessionID string) *AppError {
	return &AppError{
		Code:    ErrCodeFlashcardNotInSession,
		Message: fmt.Sprintf("flashcard %d is not part of session %s", flashcardID, sessionID),
		Status:  http.StatusBadRequest,
	}
}

func NewStaleSubmissionError(flashcardID int64) *AppError {
	return &AppError{
		Code:    ErrCodeStaleSubmission,
		Message: fmt.Sprintf("review for flashcard %d was already recorded", flashcardID),
		Status:  http.StatusConflict,
	}
}

func NewCardOutOfOrderError(flashcardID, currentID int64) *AppError {
	return &AppError{
		Code:    ErrCodeCardOutOfOrder,
		Message: fmt.Sprintf("flashcard %d is not the current card (current is %d)", flashcardID, currentID),
		Status:  http.StatusConflict,
	}
}

func NewStepNotFoundError(stepID string) *AppError {
	return &AppError{
		Code:    ErrCodeStepNotFound,
		Message: fmt.Sprintf("quiz step not found: %s", stepID),
		Status:  http.StatusNotFound,
	}
}

func NewOptionNotFoundError(optionID, stepID string) *AppError {
	return &AppError{
		Code:    ErrCodeOptionNotFound,
		Message: fmt.Sprintf("option %q not found on step %s", optionID, stepID),
		Status:  http.StatusNotFound,
	}
}

func NewStepAlreadyAnsweredError(stepID string) *AppError {
	return &AppError{
		Code:    ErrCodeStepAlreadyAnswered,
		Message: fmt.Sprintf("quiz step %s has already been answered", stepID),
		Status:  http.StatusConflict,
	}
}

func NewStepOutOfOrderError(stepID, currentStepID string) *AppError {
	return &AppError{
		Code:    ErrCodeStepOutOfOrder,
		Message: fmt.Sprintf("quiz step %s is not the current step (current is %s)", stepID, currentStepID),
		Status:  http.StatusConflict,
	}
}

func NewQuestionNotGeneratedError(stepID string) *AppError {
	return &AppError{
		Code:    ErrCodeQuestionNotGenerated,
		Message: fmt.Sprintf("quiz step %s has no question yet", stepID),
		Status:  http.StatusConflict,
	}
}

func NewInvalidStateForResetError(sessionID, status string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidStateForReset,
		Message: fmt.Sprintf("quiz session %s cannot be reset while %s", sessionID, status),
		Status:  http.StatusConflict,
	}
}

// NewUpstreamGenerationError wraps a failure of the question generator.
// Timeouts surface as 504, everything else as 502.
func NewUpstreamGenerationError(err error, timedOut bool) *AppError {
	status := http.StatusBadGateway
	msg := "question generation failed"
	if timedOut {
		status = http.StatusGatewayTimeout
		msg = "question generation timed out"
	}
	return &AppError{
		Code:    ErrCodeUpstreamGenerationError,
		Message: msg,
		Status:  status,
		Err:     err,
	}
}

func NewNoDueCardsError(deckID int64) *AppError {
	return &AppError{
		Code:    ErrCodeNoDueCards,
		Message: fmt.Sprintf("deck %d has no cards due for review", deckID),
		Status:  http.StatusConflict,
	}
}

func NewSessionClosedError(sessionID, status string) *AppError {
	return &AppError{
		Code:    ErrCodeSessionClosed,
		Message: fmt.Sprintf("session %s is %s", sessionID, status),
		Status:  http.StatusConflict,
	}
}

func NewSessionBusyError(sessionID string) *AppError {
	return &AppError{
		Code:    ErrCodeSessionBusy,
		Message: fmt.Sprintf("session %s is being updated by another request", sessionID),
		Status:  http.StatusConflict,
	}
}

// As extracts an *AppError from err, wrapping anything else as INTERNAL_ERROR.
func As(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError(err)
}
