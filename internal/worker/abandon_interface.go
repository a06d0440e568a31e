package worker

import (
	"context"
	"time"

	"github.com/vytor/studyflash/internal/models"
)

// QuizAbandoner is the part of the quiz service the background jobs need.
type QuizAbandoner interface {
	Abandon(ctx context.Context, userID int64, sessionID string) (*models.QuizSession, error)
	AbandonIdle(ctx context.Context, cutoff time.Time) (int, error)
}
