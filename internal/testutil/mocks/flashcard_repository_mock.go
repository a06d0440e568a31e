package mocks

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/studyflash/internal/models"
	"github.com/vytor/studyflash/internal/repository"
)

// MockFlashcardRepository is a mock implementation of repository.FlashcardRepository.
// WithTx returns the mock itself, so expectations cover transactional calls too.
type MockFlashcardRepository struct {
	mock.Mock
}

func (m *MockFlashcardRepository) Insert(ctx context.Context, card models.Flashcard) (int64, error) {
	args := m.Called(ctx, card)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFlashcardRepository) InsertBatch(ctx context.Context, cards []models.Flashcard) ([]int64, error) {
	args := m.Called(ctx, cards)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockFlashcardRepository) Get(ctx context.Context, id int64) (*models.Flashcard, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Flashcard), args.Error(1)
}

func (m *MockFlashcardRepository) GetMany(ctx context.Context, ids []int64) (map[int64]models.Flashcard, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]models.Flashcard), args.Error(1)
}

func (m *MockFlashcardRepository) ListByDeck(ctx context.Context, deckID int64) ([]models.Flashcard, error) {
	args := m.Called(ctx, deckID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Flashcard), args.Error(1)
}

func (m *MockFlashcardRepository) ListByUser(ctx context.Context, userID int64) ([]models.Flashcard, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Flashcard), args.Error(1)
}

func (m *MockFlashcardRepository) UpdateRetention(ctx context.Context, card models.Flashcard) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

func (m *MockFlashcardRepository) InsertReview(ctx context.Context, rec models.ReviewRecord) (int64, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFlashcardRepository) ListReviews(ctx context.Context, flashcardID int64) ([]models.ReviewRecord, error) {
	args := m.Called(ctx, flashcardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReviewRecord), args.Error(1)
}

func (m *MockFlashcardRepository) WithTx(tx *sql.Tx) repository.FlashcardRepository {
	return m
}

// InlineTxRunner runs the callback without a real transaction, for use with
// repository mocks.
type InlineTxRunner struct{}

func (InlineTxRunner) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}
