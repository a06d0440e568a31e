package worker

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/vytor/studyflash/internal/errors"
	"github.com/vytor/studyflash/internal/logger"
)

// AbandonQuizJob processes one abandonment beacon. The signal is advisory:
// unknown or foreign sessions are logged and dropped.
type AbandonQuizJob struct {
	Quiz      QuizAbandoner
	UserID    int64
	SessionID string
}

func (j *AbandonQuizJob) Name() string { return "abandon_quiz" }

func (j *AbandonQuizJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithFields(map[string]any{
		"user_id":    j.UserID,
		"session_id": j.SessionID,
	})

	session, err := j.Quiz.Abandon(ctx, j.UserID, j.SessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionNotFound) {
			log.Warn("ignoring abandon beacon for unknown session")
			return nil
		}
		return err
	}
	log.Info("abandon beacon processed, status=%s", session.Status)
	return nil
}

// SweepIdleQuizzesJob abandons ACTIVE quizzes untouched for longer than IdleFor.
type SweepIdleQuizzesJob struct {
	Quiz    QuizAbandoner
	IdleFor time.Duration
	Now     func() time.Time
}

func (j *SweepIdleQuizzesJob) Name() string { return "sweep_idle_quizzes" }

func (j *SweepIdleQuizzesJob) Run(ctx context.Context) error {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	n, err := j.Quiz.AbandonIdle(ctx, now().Add(-j.IdleFor))
	if err != nil {
		return err
	}
	if n > 0 {
		logger.FromContext(ctx).Info("abandoned %d idle quiz sessions", n)
	}
	return nil
}
