package jobs

import (
	"github.com/vytor/studyflash/internal/worker"
)

// WorkerQueue implements JobQueue using worker pools
type WorkerQueue struct {
	abandonPool *worker.Pool
	quiz        worker.QuizAbandoner
}

// NewWorkerQueue creates a new WorkerQueue implementation
func NewWorkerQueue(abandonPool *worker.Pool, quiz worker.QuizAbandoner) JobQueue {
	return &WorkerQueue{
		abandonPool: abandonPool,
		quiz:        quiz,
	}
}

func (q *WorkerQueue) EnqueueAbandon(userID int64, sessionID string) error {
	return q.abandonPool.Submit(&worker.AbandonQuizJob{
		Quiz:      q.quiz,
		UserID:    userID,
		SessionID: sessionID,
	})
}
