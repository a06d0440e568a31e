package api

import (
	"net/http"

	apperrors "github.com/vytor/studyflash/internal/errors"
	"github.com/vytor/studyflash/internal/logger"
)

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// handleError centralizes error handling for HTTP responses
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	// Unknown errors become INTERNAL_ERROR
	appErr := apperrors.As(err)

	if appErr.Status >= 500 {
		log.Error("server error: %v", appErr)
	} else if appErr.Status >= 400 {
		log.Warn("client error: %v", appErr)
	} else {
		log.Debug("error: %v", appErr)
	}

	writeJSON(w, r, appErr.Status, errorResponse{Error: errorBody{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Retryable: appErr.Retryable(),
	}})
}
