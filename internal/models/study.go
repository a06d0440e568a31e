package models

import "time"

// StudySession is a linear pass over a snapshot of a deck's due cards.
type StudySession struct {
	ID           string     `json:"id"`
	UserID       int64      `json:"user_id"`
	DeckID       int64      `json:"deck_id"`
	Queue        []int64    `json:"queue"`
	Cursor       int        `json:"cursor"`
	CorrectCount int        `json:"correct_count"`
	WrongCount   int        `json:"wrong_count"`
	Completed    bool       `json:"completed"`
	Version      int64      `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// CurrentCardID returns the card under the cursor.
func (s *StudySession) CurrentCardID() (int64, bool) {
	if s.Completed || s.Cursor >= len(s.Queue) {
		return 0, false
	}
	return s.Queue[s.Cursor], true
}

// QueuePosition returns where id sits in the queue, or -1.
func (s *StudySession) QueuePosition(id int64) int {
	for i, qid := range s.Queue {
		if qid == id {
			return i
		}
	}
	return -1
}

func (s *StudySession) Remaining() int {
	if s.Cursor >= len(s.Queue) {
		return 0
	}
	return len(s.Queue) - s.Cursor
}

// Accuracy is correct / (correct + wrong), 0 when nothing was answered.
func (s *StudySession) Accuracy() float64 {
	total := s.CorrectCount + s.WrongCount
	if total == 0 {
		return 0
	}
	return float64(s.CorrectCount) / float64(total)
}

type ReviewInput struct {
	FlashcardID  int64
	SessionID    *string
	Grade        int
	Notes        *string
	TimeToAnswer *float64
}

type ReviewResult struct {
	IsCorrect bool       `json:"is_correct"`
	Flashcard Flashcard  `json:"flashcard"`
	NextCard  *Flashcard `json:"next_card"`
	Completed bool       `json:"completed"`
	Accuracy  *float64   `json:"accuracy,omitempty"`
}

// StudySessionView is a session snapshot together with the card to show next.
type StudySessionView struct {
	Session     StudySession `json:"session"`
	CurrentCard *Flashcard   `json:"current_card"`
	Remaining   int          `json:"remaining"`
	Resumed     bool         `json:"resumed"`
}
