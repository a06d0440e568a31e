package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockJobQueue is a mock implementation of jobs.JobQueue
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) EnqueueAbandon(userID int64, sessionID string) error {
	args := m.Called(userID, sessionID)
	return args.Error(0)
}
