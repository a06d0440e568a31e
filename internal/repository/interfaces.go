package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vytor/studyflash/internal/models"
)

// ErrVersionConflict is returned by version-checked updates when the row was
// changed by someone else since it was read.
var ErrVersionConflict = errors.New("version conflict")

// ErrAlreadyExists is returned when an insert violates a uniqueness rule.
var ErrAlreadyExists = errors.New("already exists")

// TxRunner runs fn inside a single database transaction. Repositories join the
// transaction through their WithTx methods.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// DeckRepository handles deck data access
type DeckRepository interface {
	Insert(ctx context.Context, deck models.Deck) (int64, error)
	Get(ctx context.Context, id int64) (*models.Deck, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Deck, error)
}

// FlashcardRepository handles flashcard and review history data access
type FlashcardRepository interface {
	Insert(ctx context.Context, card models.Flashcard) (int64, error)
	InsertBatch(ctx context.Context, cards []models.Flashcard) ([]int64, error)
	Get(ctx context.Context, id int64) (*models.Flashcard, error)
	GetMany(ctx context.Context, ids []int64) (map[int64]models.Flashcard, error)
	ListByDeck(ctx context.Context, deckID int64) ([]models.Flashcard, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Flashcard, error)
	// UpdateRetention writes the retention state if card.Version still
	// matches and bumps the version.
	UpdateRetention(ctx context.Context, card models.Flashcard) error
	InsertReview(ctx context.Context, rec models.ReviewRecord) (int64, error)
	ListReviews(ctx context.Context, flashcardID int64) ([]models.ReviewRecord, error)
	WithTx(tx *sql.Tx) FlashcardRepository
}

// StudySessionRepository handles study session data access
type StudySessionRepository interface {
	// Insert stores the session together with its queue.
	Insert(ctx context.Context, s models.StudySession) error
	Get(ctx context.Context, id string) (*models.StudySession, error)
	GetActive(ctx context.Context, userID, deckID int64) (*models.StudySession, error)
	// Update writes cursor, tallies and completion if s.Version still matches.
	Update(ctx context.Context, s models.StudySession) error
	WithTx(tx *sql.Tx) StudySessionRepository
}

// QuizSessionRepository handles quiz sessions, steps and generated questions
type QuizSessionRepository interface {
	// Insert stores the session together with its steps.
	Insert(ctx context.Context, s models.QuizSession) error
	Get(ctx context.Context, id string) (*models.QuizSession, error)
	SessionIDForStep(ctx context.Context, stepID string) (string, error)
	// SaveQuestion stores q on a step that has none yet.
	SaveQuestion(ctx context.Context, stepID string, q models.Question) error
	// RecordAnswer answers a step that is still unanswered.
	RecordAnswer(ctx context.Context, stepID, optionID string, isCorrect bool, at time.Time) error
	ClearSteps(ctx context.Context, sessionID string) error
	// UpdateStatus writes status and timestamps if s.Version still matches.
	UpdateStatus(ctx context.Context, s models.QuizSession) error
	// Abandon moves an ACTIVE session to ABANDONED and reports whether it did.
	Abandon(ctx context.Context, id string, at time.Time) (bool, error)
	ListIdle(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
	WithTx(tx *sql.Tx) QuizSessionRepository
}
