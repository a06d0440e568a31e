package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "github.com/vytor/studyflash/internal/errors"
	"github.com/vytor/studyflash/internal/flashcard"
	"github.com/vytor/studyflash/internal/logger"
	"github.com/vytor/studyflash/internal/models"
	"github.com/vytor/studyflash/internal/repository"
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// reviewWriter is the only code that changes a card's retention state. It
// grades the card, writes the new state under the card's version and appends
// the review record, all on the caller's transaction.
type reviewWriter struct {
	grader *flashcard.Grader
	cards  repository.FlashcardRepository
}

func (w reviewWriter) apply(ctx context.Context, tx *sql.Tx, card models.Flashcard, in models.ReviewInput, now time.Time) (models.Flashcard, error) {
	log := logger.FromContext(ctx)

	state, err := w.grader.Grade(card.RetentionState, in.Grade, now)
	if err != nil {
		return card, err
	}

	updated := card
	updated.RetentionState = state
	cards := w.cards.WithTx(tx)
	if err := cards.UpdateRetention(ctx, updated); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return card, apperrors.NewStaleSubmissionError(card.ID)
		}
		return card, apperrors.NewInternalError(err)
	}
	updated.Version++

	if _, err := cards.InsertReview(ctx, models.ReviewRecord{
		FlashcardID:  card.ID,
		SessionID:    in.SessionID,
		Grade:        in.Grade,
		Notes:        in.Notes,
		TimeToAnswer: in.TimeToAnswer,
		ReviewedAt:   now,
	}); err != nil {
		return card, apperrors.NewInternalError(err)
	}

	log.Debug("graded card %d: grade=%d, interval=%d, ease=%.2f, repetition=%d",
		card.ID, in.Grade, state.IntervalDays, state.EaseFactor, state.Repetition)
	return updated, nil
}

func validGrade(grade int) bool {
	return grade >= flashcard.MinGrade && grade <= flashcard.MaxGrade
}
