package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vytor/studyflash/internal/logger"
	"github.com/vytor/studyflash/internal/models"
	"github.com/vytor/studyflash/internal/repository"
)

type studySessionRepository struct {
	db DBTX
}

// NewStudySessionRepository creates a new StudySessionRepository implementation
func NewStudySessionRepository(db *sql.DB) repository.StudySessionRepository {
	return &studySessionRepository{db: db}
}

func (r *studySessionRepository) WithTx(tx *sql.Tx) repository.StudySessionRepository {
	return &studySessionRepository{db: tx}
}

// Insert must run inside a transaction when the queue is non-empty, otherwise
// a failure halfway leaves a session with a partial queue.
func (r *studySessionRepository) Insert(ctx context.Context, s models.StudySession) error {
	log := logger.FromContext(ctx).WithPrefix("study_repo")
	log.Debug("inserting study session: id=%s, deck_id=%d, cards=%d", s.ID, s.DeckID, len(s.Queue))

	insert := func(db DBTX) error {
		_, err := db.ExecContext(ctx, `
INSERT INTO study_sessions (id, user_id, deck_id, cursor_pos, correct_count, wrong_count, completed,
                            version, created_at, updated_at, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
`, s.ID, s.UserID, s.DeckID, s.Cursor, s.CorrectCount, s.WrongCount, s.Completed,
			utc(s.CreatedAt), utc(s.UpdatedAt), nullableTime(s.CompletedAt))
		if err != nil {
			return err
		}
		for pos, cardID := range s.Queue {
			if _, err := db.ExecContext(ctx, `
INSERT INTO study_session_cards (session_id, position, flashcard_id) VALUES (?, ?, ?)
`, s.ID, pos, cardID); err != nil {
				return err
			}
		}
		return nil
	}

	var err error
	if db, ok := r.db.(*sql.DB); ok {
		err = tx(ctx, db, func(t *sql.Tx) error { return insert(t) })
	} else {
		err = insert(r.db)
	}
	if err = uniqueViolation(err); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			log.Warn("deck %d already has an active session for user %d", s.DeckID, s.UserID)
		} else {
			log.Error("failed to insert study session: %v", err)
		}
	}
	return err
}

func (r *studySessionRepository) Get(ctx context.Context, id string) (*models.StudySession, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

func (r *studySessionRepository) GetActive(ctx context.Context, userID, deckID int64) (*models.StudySession, error) {
	return r.getOne(ctx, `WHERE user_id = ? AND deck_id = ? AND completed = 0`, userID, deckID)
}

func (r *studySessionRepository) getOne(ctx context.Context, where string, args ...any) (*models.StudySession, error) {
	log := logger.FromContext(ctx).WithPrefix("study_repo")

	var (
		s         models.StudySession
		completed sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
SELECT id, user_id, deck_id, cursor_pos, correct_count, wrong_count, completed, version,
       created_at, updated_at, completed_at
FROM study_sessions `+where, args...).Scan(&s.ID, &s.UserID, &s.DeckID, &s.Cursor, &s.CorrectCount,
		&s.WrongCount, &s.Completed, &s.Version, &s.CreatedAt, &s.UpdatedAt, &completed)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error("failed to get study session: %v", err)
		}
		return nil, err
	}
	s.CompletedAt = timePtr(completed)

	rows, err := r.db.QueryContext(ctx, `
SELECT flashcard_id FROM study_session_cards WHERE session_id = ? ORDER BY position
`, s.ID)
	if err != nil {
		log.Error("failed to load session queue: %v", err)
		return nil, err
	}
	defer rows.Close()

	s.Queue = []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		s.Queue = append(s.Queue, id)
	}
	return &s, rows.Err()
}

func (r *studySessionRepository) Update(ctx context.Context, s models.StudySession) error {
	log := logger.FromContext(ctx).WithPrefix("study_repo")
	log.Debug("updating study session: id=%s, cursor=%d, completed=%v, version=%d", s.ID, s.Cursor, s.Completed, s.Version)

	res, err := r.db.ExecContext(ctx, `
UPDATE study_sessions
SET cursor_pos = ?, correct_count = ?, wrong_count = ?, completed = ?, updated_at = ?, completed_at = ?,
    version = version + 1
WHERE id = ? AND version = ?
`, s.Cursor, s.CorrectCount, s.WrongCount, s.Completed, utc(s.UpdatedAt), nullableTime(s.CompletedAt),
		s.ID, s.Version)
	if err != nil {
		log.Error("failed to update study session: %v", err)
		return err
	}
	if err := expectOne(res); err != nil {
		log.Warn("study session %s changed concurrently (version %d)", s.ID, s.Version)
		return err
	}
	return nil
}
