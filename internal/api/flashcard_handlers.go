package api

import (
	"net/http"
	"strings"

	apperrors "github.com/vytor/studyflash/internal/errors"
	"github.com/vytor/studyflash/internal/logger"
	"github.com/vytor/studyflash/internal/models"
)

type reviewRequest struct {
	FlashcardID  int64    `json:"flashcard_id"`
	SessionID    *string  `json:"session_id"`
	Grade        *int     `json:"grade"`
	Notes        *string  `json:"notes"`
	TimeToAnswer *float64 `json:"time_to_answer"`
}

func (req reviewRequest) input() (models.ReviewInput, error) {
	if req.FlashcardID <= 0 {
		return models.ReviewInput{}, apperrors.NewValidationError("flashcard_id", "is required")
	}
	if req.Grade == nil {
		return models.ReviewInput{}, apperrors.NewValidationError("grade", "is required")
	}
	if req.TimeToAnswer != nil && *req.TimeToAnswer < 0 {
		return models.ReviewInput{}, apperrors.NewValidationError("time_to_answer", "cannot be negative")
	}
	return models.ReviewInput{
		FlashcardID:  req.FlashcardID,
		Grade:        *req.Grade,
		Notes:        req.Notes,
		TimeToAnswer: req.TimeToAnswer,
	}, nil
}

// handleSubmitReview grades a card. With a session_id the grade goes through
// the study session, otherwise it is a standalone review.
func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		handleError(w, r, err)
		return
	}

	log := logger.FromContext(r.Context()).WithFields(map[string]any{
		"flashcard_id": in.FlashcardID,
		"grade":        in.Grade,
	})
	ctx := logger.NewContext(r.Context(), log)

	var res *models.ReviewResult
	if req.SessionID != nil && strings.TrimSpace(*req.SessionID) != "" {
		res, err = s.StudyService.SubmitReview(ctx, userID, strings.TrimSpace(*req.SessionID), in)
	} else {
		res, err = s.FlashcardService.Review(ctx, userID, in)
	}
	if err != nil {
		handleError(w, r, err)
		return
	}

	log.Debug("review accepted: correct=%v, completed=%v", res.IsCorrect, res.Completed)
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	cardID, err := int64Param(r, "flashcardID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	recs, err := s.FlashcardService.ListReviews(r.Context(), userID, cardID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, emptyIfNil(recs))
}
