package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/studyflash/internal/jobs"
	"github.com/vytor/studyflash/internal/models"
	"github.com/vytor/studyflash/internal/worker"
)

type stubAbandoner struct {
	mock.Mock
}

func (s *stubAbandoner) Abandon(ctx context.Context, userID int64, sessionID string) (*models.QuizSession, error) {
	args := s.Called(userID, sessionID)
	return &models.QuizSession{ID: sessionID, Status: models.QuizAbandoned}, args.Error(0)
}

func (s *stubAbandoner) AbandonIdle(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func TestWorkerQueue_EnqueueAbandon(t *testing.T) {
	quiz := new(stubAbandoner)
	quiz.On("Abandon", int64(9), "quiz-1").Return(nil).Once()

	pool := worker.NewPool("abandon", 1, 4)
	pool.Start(context.Background())

	q := jobs.NewWorkerQueue(pool, quiz)
	require.NoError(t, q.EnqueueAbandon(9, "quiz-1"))

	pool.Stop(5 * time.Second)
	quiz.AssertExpectations(t)

	assert.ErrorIs(t, q.EnqueueAbandon(9, "quiz-2"), worker.ErrPoolStopped)
}
