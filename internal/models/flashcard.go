package models

import "time"

// RetentionState is the scheduling state of one flashcard. It only changes
// through the grader.
type RetentionState struct {
	EaseFactor     float64    `json:"ease_factor"`
	IntervalDays   int        `json:"interval_days"`
	Repetition     int        `json:"repetition"`
	NextReview     *time.Time `json:"next_review"`
	LastReviewedAt *time.Time `json:"last_reviewed_at"`
	PerformanceAvg *float64   `json:"performance_avg"`
}

// IsNew reports whether the card has never been reviewed.
func (r RetentionState) IsNew() bool {
	return r.NextReview == nil
}

type Flashcard struct {
	ID     int64  `json:"id"`
	DeckID int64  `json:"deck_id"`
	Front  string `json:"front"`
	Back   string `json:"back"`
	RetentionState
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Deck struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CardCount   int       `json:"card_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReviewRecord is an immutable log entry written for every accepted grade.
type ReviewRecord struct {
	ID           int64     `json:"id"`
	FlashcardID  int64     `json:"flashcard_id"`
	SessionID    *string   `json:"session_id,omitempty"`
	Grade        int       `json:"grade"`
	Notes        *string   `json:"notes,omitempty"`
	TimeToAnswer *float64  `json:"time_to_answer,omitempty"` // seconds
	ReviewedAt   time.Time `json:"reviewed_at"`
}

// Buckets is the time-based partition of a set of flashcards. New holds cards
// that were never reviewed and is filled by callers, not by the classifier.
type Buckets struct {
	Overdue   []Flashcard `json:"overdue"`
	DueToday  []Flashcard `json:"due_today"`
	Upcoming  []Flashcard `json:"upcoming"`
	Completed []Flashcard `json:"completed"`
	New       []Flashcard `json:"new"`
}

// Due returns overdue cards followed by the ones due later today.
func (b Buckets) Due() []Flashcard {
	due := make([]Flashcard, 0, len(b.Overdue)+len(b.DueToday))
	due = append(due, b.Overdue...)
	return append(due, b.DueToday...)
}

// CardInput is the user-supplied content of a new flashcard.
type CardInput struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}
