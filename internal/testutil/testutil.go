package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/vytor/studyflash/internal/db"
	"github.com/vytor/studyflash/internal/models"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied.
// It is pinned to one connection because every new connection to :memory:
// would see an empty database.
func NewTestDB(t *testing.T) *sql.DB {
	sqlDB, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(sqlDB), "failed to apply migrations")
	return sqlDB
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	require.NoError(t, closer.Close())
}

// Clock is a settable time source for services under test.
type Clock struct {
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time { return c.now }

func (c *Clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func (c *Clock) Set(t time.Time) { c.now = t }

// SeedDeck inserts a deck for userID and returns its id.
func SeedDeck(t *testing.T, sqlDB *sql.DB, userID int64, name string) int64 {
	res, err := sqlDB.ExecContext(context.Background(),
		`INSERT INTO decks (user_id, name, description, created_at) VALUES (?, ?, '', ?)`,
		userID, name, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

// SeedCard inserts a flashcard with the given retention state.
func SeedCard(t *testing.T, sqlDB *sql.DB, deckID int64, front string, state models.RetentionState) int64 {
	var next, last any
	if state.NextReview != nil {
		next = state.NextReview.UTC()
	}
	if state.LastReviewedAt != nil {
		last = state.LastReviewedAt.UTC()
	}
	if state.EaseFactor == 0 {
		state.EaseFactor = 2.5
	}
	res, err := sqlDB.ExecContext(context.Background(), `
INSERT INTO flashcards (deck_id, front, back, ease_factor, interval_days, repetition, next_review,
                        last_reviewed_at, performance_avg, version, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
`, deckID, front, front+" (back)", state.EaseFactor, state.IntervalDays, state.Repetition, next, last,
		state.PerformanceAvg, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func TimePtr(t time.Time) *time.Time { return &t }
