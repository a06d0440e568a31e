package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vytor/studyflash/internal/logger"
	"github.com/vytor/studyflash/internal/models"
	"github.com/vytor/studyflash/internal/repository"
)

type deckRepository struct {
	db DBTX
}

// NewDeckRepository creates a new DeckRepository implementation
func NewDeckRepository(db *sql.DB) repository.DeckRepository {
	return &deckRepository{db: db}
}

func (r *deckRepository) Insert(ctx context.Context, d models.Deck) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	log.Debug("inserting deck: user_id=%d, name=%s", d.UserID, d.Name)

	res, err := r.db.ExecContext(ctx, `
INSERT INTO decks (user_id, name, description, created_at)
VALUES (?, ?, ?, ?)
`, d.UserID, d.Name, d.Description, utc(d.CreatedAt))
	if err != nil {
		log.Error("failed to insert deck: %v", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		log.Error("failed to get deck id: %v", err)
		return 0, err
	}
	log.Debug("deck inserted: id=%d", id)
	return id, nil
}

const deckColumns = `d.id, d.user_id, d.name, d.description, d.created_at,
       (SELECT COUNT(*) FROM flashcards f WHERE f.deck_id = d.id)`

func (r *deckRepository) Get(ctx context.Context, id int64) (*models.Deck, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")

	var d models.Deck
	err := r.db.QueryRowContext(ctx, `SELECT `+deckColumns+` FROM decks d WHERE d.id = ?`, id).
		Scan(&d.ID, &d.UserID, &d.Name, &d.Description, &d.CreatedAt, &d.CardCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("deck not found: id=%d", id)
		} else {
			log.Error("failed to get deck: %v", err)
		}
		return nil, err
	}
	return &d, nil
}

func (r *deckRepository) ListByUser(ctx context.Context, userID int64) ([]models.Deck, error) {
	log := logger.FromContext(ctx).WithPrefix("deck_repo")
	log.Debug("listing decks: user_id=%d", userID)

	rows, err := r.db.QueryContext(ctx, `SELECT `+deckColumns+` FROM decks d WHERE d.user_id = ? ORDER BY d.created_at, d.id`, userID)
	if err != nil {
		log.Error("failed to list decks: %v", err)
		return nil, err
	}
	defer rows.Close()

	decks := []models.Deck{}
	for rows.Next() {
		var d models.Deck
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Description, &d.CreatedAt, &d.CardCount); err != nil {
			log.Error("failed to scan deck row: %v", err)
			return nil, err
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}
