package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/studyflash/internal/logger"
	"github.com/vytor/studyflash/internal/models"
	"github.com/vytor/studyflash/internal/repository"
)

type flashcardRepository struct {
	db DBTX
}

// NewFlashcardRepository creates a new FlashcardRepository implementation
func NewFlashcardRepository(db *sql.DB) repository.FlashcardRepository {
	return &flashcardRepository{db: db}
}

func (r *flashcardRepository) WithTx(tx *sql.Tx) repository.FlashcardRepository {
	return &flashcardRepository{db: tx}
}

var flashcardColumns = []string{
	"f.id", "f.deck_id", "f.front", "f.back", "f.ease_factor", "f.interval_days", "f.repetition",
	"f.next_review", "f.last_reviewed_at", "f.performance_avg", "f.version", "f.created_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlashcard(row rowScanner) (models.Flashcard, error) {
	var (
		c        models.Flashcard
		next     sql.NullTime
		reviewed sql.NullTime
		perf     sql.NullFloat64
	)
	err := row.Scan(&c.ID, &c.DeckID, &c.Front, &c.Back, &c.EaseFactor, &c.IntervalDays, &c.Repetition,
		&next, &reviewed, &perf, &c.Version, &c.CreatedAt)
	if err != nil {
		return c, err
	}
	c.NextReview = timePtr(next)
	c.LastReviewedAt = timePtr(reviewed)
	c.PerformanceAvg = floatPtr(perf)
	return c, nil
}

func (r *flashcardRepository) Insert(ctx context.Context, c models.Flashcard) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("flashcard_repo")
	log.Debug("inserting flashcard: deck_id=%d", c.DeckID)

	res, err := r.db.ExecContext(ctx, `
INSERT INTO flashcards (deck_id, front, back, ease_factor, interval_days, repetition,
                        next_review, last_reviewed_at, performance_avg, version, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
`, c.DeckID, c.Front, c.Back, c.EaseFactor, c.IntervalDays, c.Repetition,
		nullableTime(c.NextReview), nullableTime(c.LastReviewedAt), c.PerformanceAvg, utc(c.CreatedAt))
	if err != nil {
		log.Error("failed to insert flashcard: %v", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		log.Error("failed to get flashcard id: %v", err)
		return 0, err
	}
	log.Debug("flashcard inserted: id=%d", id)
	return id, nil
}

// InsertBatch inserts all cards or none. When the repository is already bound
// to a transaction the caller owns atomicity.
func (r *flashcardRepository) InsertBatch(ctx context.Context, cards []models.Flashcard) ([]int64, error) {
	log := logger.FromContext(ctx).WithPrefix("flashcard_repo")
	log.Debug("inserting %d flashcards", len(cards))

	insertAll := func(repo *flashcardRepository) ([]int64, error) {
		ids := make([]int64, 0, len(cards))
		for _, c := range cards {
			id, err := repo.Insert(ctx, c)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	db, ok := r.db.(*sql.DB)
	if !ok {
		return insertAll(r)
	}
	var ids []int64
	err := tx(ctx, db, func(t *sql.Tx) error {
		var err error
		ids, err = insertAll(&flashcardRepository{db: t})
		return err
	})
	if err != nil {
		log.Error("failed to insert flashcard batch: %v", err)
		return nil, err
	}
	return ids, nil
}

func (r *flashcardRepository) Get(ctx context.Context, id int64) (*models.Flashcard, error) {
	log := logger.FromContext(ctx).WithPrefix("flashcard_repo")

	query, args, err := sqlBuilder.Select(flashcardColumns...).From("flashcards f").
		Where(squirrel.Eq{"f.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	c, err := scanFlashcard(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("flashcard not found: id=%d", id)
		} else {
			log.Error("failed to get flashcard: %v", err)
		}
		return nil, err
	}
	return &c, nil
}

func (r *flashcardRepository) GetMany(ctx context.Context, ids []int64) (map[int64]models.Flashcard, error) {
	out := make(map[int64]models.Flashcard, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cards, err := r.list(ctx, sqlBuilder.Select(flashcardColumns...).From("flashcards f").
		Where(squirrel.Eq{"f.id": ids}))
	if err != nil {
		return nil, err
	}
	for _, c := range cards {
		out[c.ID] = c
	}
	return out, nil
}

func (r *flashcardRepository) ListByDeck(ctx context.Context, deckID int64) ([]models.Flashcard, error) {
	return r.list(ctx, sqlBuilder.Select(flashcardColumns...).From("flashcards f").
		Where(squirrel.Eq{"f.deck_id": deckID}).
		OrderBy("f.id"))
}

func (r *flashcardRepository) ListByUser(ctx context.Context, userID int64) ([]models.Flashcard, error) {
	return r.list(ctx, sqlBuilder.Select(flashcardColumns...).From("flashcards f").
		Join("decks d ON d.id = f.deck_id").
		Where(squirrel.Eq{"d.user_id": userID}).
		OrderBy("f.id"))
}

func (r *flashcardRepository) list(ctx context.Context, q squirrel.SelectBuilder) ([]models.Flashcard, error) {
	log := logger.FromContext(ctx).WithPrefix("flashcard_repo")

	query, args, err := q.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list flashcards: %v", err)
		return nil, err
	}
	defer rows.Close()

	cards := []models.Flashcard{}
	for rows.Next() {
		c, err := scanFlashcard(rows)
		if err != nil {
			log.Error("failed to scan flashcard row: %v", err)
			return nil, err
		}
		cards = append(cards, c)
	}
	log.Debug("found %d flashcards", len(cards))
	return cards, rows.Err()
}

func (r *flashcardRepository) UpdateRetention(ctx context.Context, c models.Flashcard) error {
	log := logger.FromContext(ctx).WithPrefix("flashcard_repo")
	log.Debug("updating flashcard: id=%d, interval=%d, ease=%.2f, version=%d", c.ID, c.IntervalDays, c.EaseFactor, c.Version)

	res, err := r.db.ExecContext(ctx, `
UPDATE flashcards
SET ease_factor = ?, interval_days = ?, repetition = ?, next_review = ?, last_reviewed_at = ?,
    performance_avg = ?, version = version + 1
WHERE id = ? AND version = ?
`, c.EaseFactor, c.IntervalDays, c.Repetition, nullableTime(c.NextReview), nullableTime(c.LastReviewedAt),
		c.PerformanceAvg, c.ID, c.Version)
	if err != nil {
		log.Error("failed to update flashcard: %v", err)
		return err
	}
	if err := expectOne(res); err != nil {
		log.Warn("flashcard %d changed concurrently (version %d)", c.ID, c.Version)
		return err
	}
	return nil
}

func (r *flashcardRepository) InsertReview(ctx context.Context, rec models.ReviewRecord) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("flashcard_repo")
	log.Debug("inserting review: flashcard_id=%d, grade=%d", rec.FlashcardID, rec.Grade)

	res, err := r.db.ExecContext(ctx, `
INSERT INTO review_records (flashcard_id, session_id, grade, notes, time_to_answer, reviewed_at)
VALUES (?, ?, ?, ?, ?, ?)
`, rec.FlashcardID, rec.SessionID, rec.Grade, rec.Notes, rec.TimeToAnswer, utc(rec.ReviewedAt))
	if err != nil {
		log.Error("failed to insert review: %v", err)
		return 0, err
	}
	return res.LastInsertId()
}

func (r *flashcardRepository) ListReviews(ctx context.Context, flashcardID int64) ([]models.ReviewRecord, error) {
	log := logger.FromContext(ctx).WithPrefix("flashcard_repo")

	rows, err := r.db.QueryContext(ctx, `
SELECT id, flashcard_id, session_id, grade, notes, time_to_answer, reviewed_at
FROM review_records
WHERE flashcard_id = ?
ORDER BY reviewed_at, id
`, flashcardID)
	if err != nil {
		log.Error("failed to list reviews: %v", err)
		return nil, err
	}
	defer rows.Close()

	recs := []models.ReviewRecord{}
	for rows.Next() {
		var (
			rec     models.ReviewRecord
			session sql.NullString
			notes   sql.NullString
			tta     sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &rec.FlashcardID, &session, &rec.Grade, &notes, &tta, &rec.ReviewedAt); err != nil {
			log.Error("failed to scan review row: %v", err)
			return nil, err
		}
		rec.SessionID = stringPtr(session)
		rec.Notes = stringPtr(notes)
		rec.TimeToAnswer = floatPtr(tta)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
