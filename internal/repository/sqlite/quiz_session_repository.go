package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/studyflash/internal/logger"
	"github.com/vytor/studyflash/internal/models"
	"github.com/vytor/studyflash/internal/repository"
)

type quizSessionRepository struct {
	db DBTX
}

// NewQuizSessionRepository creates a new QuizSessionRepository implementation
func NewQuizSessionRepository(db *sql.DB) repository.QuizSessionRepository {
	return &quizSessionRepository{db: db}
}

func (r *quizSessionRepository) WithTx(tx *sql.Tx) repository.QuizSessionRepository {
	return &quizSessionRepository{db: tx}
}

// inTx runs fn in a transaction unless the repository is already bound to one.
func (r *quizSessionRepository) inTx(ctx context.Context, fn func(DBTX) error) error {
	if db, ok := r.db.(*sql.DB); ok {
		return tx(ctx, db, func(t *sql.Tx) error { return fn(t) })
	}
	return fn(r.db)
}

func (r *quizSessionRepository) Insert(ctx context.Context, s models.QuizSession) error {
	log := logger.FromContext(ctx).WithPrefix("quiz_repo")
	log.Debug("inserting quiz session: id=%s, topic=%s", s.ID, s.Topic)

	err := r.inTx(ctx, func(db DBTX) error {
		_, err := db.ExecContext(ctx, `
INSERT INTO quiz_sessions (id, user_id, topic, subtopic, difficulty, style, explanation_type, status,
                           version, created_at, updated_at, completed_at, abandoned_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?)
`, s.ID, s.UserID, s.Topic, s.Subtopic, s.Difficulty, s.Style, s.ExplanationType, s.Status,
			utc(s.CreatedAt), utc(s.UpdatedAt), nullableTime(s.CompletedAt), nullableTime(s.AbandonedAt))
		if err != nil {
			return err
		}
		for _, st := range s.Steps {
			if _, err := db.ExecContext(ctx, `
INSERT INTO quiz_steps (id, session_id, position, step_type) VALUES (?, ?, ?, ?)
`, st.ID, s.ID, st.Position, st.StepType); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to insert quiz session: %v", err)
	}
	return err
}

func (r *quizSessionRepository) Get(ctx context.Context, id string) (*models.QuizSession, error) {
	log := logger.FromContext(ctx).WithPrefix("quiz_repo")

	var (
		s           models.QuizSession
		completedAt sql.NullTime
		abandonedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
SELECT id, user_id, topic, subtopic, difficulty, style, explanation_type, status, version,
       created_at, updated_at, completed_at, abandoned_at
FROM quiz_sessions
WHERE id = ?
`, id).Scan(&s.ID, &s.UserID, &s.Topic, &s.Subtopic, &s.Difficulty, &s.Style, &s.ExplanationType,
		&s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt, &completedAt, &abandonedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("quiz session not found: id=%s", id)
		} else {
			log.Error("failed to get quiz session: %v", err)
		}
		return nil, err
	}
	s.CompletedAt = timePtr(completedAt)
	s.AbandonedAt = timePtr(abandonedAt)

	steps, err := r.loadSteps(ctx, s.ID)
	if err != nil {
		log.Error("failed to load quiz steps: %v", err)
		return nil, err
	}
	s.Steps = steps
	return &s, nil
}

func (r *quizSessionRepository) loadSteps(ctx context.Context, sessionID string) ([]models.QuizStep, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, position, step_type, question_content, explanation, user_answer, is_correct, answered_at
FROM quiz_steps
WHERE session_id = ?
ORDER BY position
`, sessionID)
	if err != nil {
		return nil, err
	}

	var steps []models.QuizStep
	for rows.Next() {
		var (
			st          models.QuizStep
			content     sql.NullString
			explanation sql.NullString
			answer      sql.NullString
			correct     sql.NullBool
			answeredAt  sql.NullTime
		)
		if err := rows.Scan(&st.ID, &st.SessionID, &st.Position, &st.StepType, &content, &explanation,
			&answer, &correct, &answeredAt); err != nil {
			rows.Close()
			return nil, err
		}
		if content.Valid {
			st.Question = &models.Question{Content: content.String, Explanation: stringPtr(explanation)}
		}
		st.UserAnswer = stringPtr(answer)
		st.IsCorrect = boolPtr(correct)
		st.AnsweredAt = timePtr(answeredAt)
		steps = append(steps, st)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Options are read after the step cursor is closed; with a single
	// connection a nested query would block.
	for i := range steps {
		if steps[i].Question == nil {
			continue
		}
		opts, err := r.loadOptions(ctx, steps[i].ID)
		if err != nil {
			return nil, err
		}
		steps[i].Question.Options = opts
	}
	return steps, nil
}

func (r *quizSessionRepository) loadOptions(ctx context.Context, stepID string) ([]models.Option, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT option_id, content, is_correct FROM quiz_step_options WHERE step_id = ? ORDER BY position
`, stepID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	opts := []models.Option{}
	for rows.Next() {
		var o models.Option
		if err := rows.Scan(&o.ID, &o.Content, &o.IsCorrect); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

func (r *quizSessionRepository) SessionIDForStep(ctx context.Context, stepID string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT session_id FROM quiz_steps WHERE id = ?`, stepID).Scan(&id)
	return id, err
}

func (r *quizSessionRepository) SaveQuestion(ctx context.Context, stepID string, q models.Question) error {
	log := logger.FromContext(ctx).WithPrefix("quiz_repo")
	log.Debug("saving question: step_id=%s, options=%d", stepID, len(q.Options))

	err := r.inTx(ctx, func(db DBTX) error {
		res, err := db.ExecContext(ctx, `
UPDATE quiz_steps SET question_content = ?, explanation = ?
WHERE id = ? AND question_content IS NULL
`, q.Content, q.Explanation, stepID)
		if err != nil {
			return err
		}
		if err := expectOne(res); err != nil {
			return err
		}
		for i, o := range q.Options {
			if _, err := db.ExecContext(ctx, `
INSERT INTO quiz_step_options (step_id, option_id, position, content, is_correct) VALUES (?, ?, ?, ?, ?)
`, stepID, o.ID, i, o.Content, o.IsCorrect); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, repository.ErrVersionConflict) {
		log.Error("failed to save question: %v", err)
	}
	return err
}

func (r *quizSessionRepository) RecordAnswer(ctx context.Context, stepID, optionID string, isCorrect bool, at time.Time) error {
	log := logger.FromContext(ctx).WithPrefix("quiz_repo")
	log.Debug("recording answer: step_id=%s, option=%s, correct=%v", stepID, optionID, isCorrect)

	res, err := r.db.ExecContext(ctx, `
UPDATE quiz_steps SET user_answer = ?, is_correct = ?, answered_at = ?
WHERE id = ? AND is_correct IS NULL
`, optionID, isCorrect, utc(at), stepID)
	if err != nil {
		log.Error("failed to record answer: %v", err)
		return err
	}
	return expectOne(res)
}

func (r *quizSessionRepository) ClearSteps(ctx context.Context, sessionID string) error {
	log := logger.FromContext(ctx).WithPrefix("quiz_repo")
	log.Debug("clearing steps: session_id=%s", sessionID)

	return r.inTx(ctx, func(db DBTX) error {
		if _, err := db.ExecContext(ctx, `
DELETE FROM quiz_step_options WHERE step_id IN (SELECT id FROM quiz_steps WHERE session_id = ?)
`, sessionID); err != nil {
			return err
		}
		_, err := db.ExecContext(ctx, `
UPDATE quiz_steps
SET question_content = NULL, explanation = NULL, user_answer = NULL, is_correct = NULL, answered_at = NULL
WHERE session_id = ?
`, sessionID)
		return err
	})
}

func (r *quizSessionRepository) UpdateStatus(ctx context.Context, s models.QuizSession) error {
	log := logger.FromContext(ctx).WithPrefix("quiz_repo")
	log.Debug("updating quiz session: id=%s, status=%s, version=%d", s.ID, s.Status, s.Version)

	res, err := r.db.ExecContext(ctx, `
UPDATE quiz_sessions
SET status = ?, updated_at = ?, completed_at = ?, abandoned_at = ?, version = version + 1
WHERE id = ? AND version = ?
`, s.Status, utc(s.UpdatedAt), nullableTime(s.CompletedAt), nullableTime(s.AbandonedAt), s.ID, s.Version)
	if err != nil {
		log.Error("failed to update quiz session: %v", err)
		return err
	}
	if err := expectOne(res); err != nil {
		log.Warn("quiz session %s changed concurrently (version %d)", s.ID, s.Version)
		return err
	}
	return nil
}

func (r *quizSessionRepository) Abandon(ctx context.Context, id string, at time.Time) (bool, error) {
	log := logger.FromContext(ctx).WithPrefix("quiz_repo")

	query, args, err := sqlBuilder.Update("quiz_sessions").
		Set("status", models.QuizAbandoned).
		Set("abandoned_at", utc(at)).
		Set("updated_at", utc(at)).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": id, "status": models.QuizActive}).
		ToSql()
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to abandon quiz session: %v", err)
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	log.Debug("abandon quiz session: id=%s, changed=%v", id, n == 1)
	return n == 1, nil
}

func (r *quizSessionRepository) ListIdle(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	log := logger.FromContext(ctx).WithPrefix("quiz_repo")

	if limit <= 0 {
		limit = 100
	}
	query, args, err := sqlBuilder.Select("id").From("quiz_sessions").
		Where(squirrel.Eq{"status": models.QuizActive}).
		Where(squirrel.Lt{"updated_at": utc(cutoff)}).
		OrderBy("updated_at").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list idle quiz sessions: %v", err)
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
