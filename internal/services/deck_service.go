package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	apperrors "github.com/vytor/studyflash/internal/errors"
	"github.com/vytor/studyflash/internal/logger"
	"github.com/vytor/studyflash/internal/models"
	"github.com/vytor/studyflash/internal/repository"
)

// DeckService handles deck-related business logic
type DeckService interface {
	CreateDeck(ctx context.Context, userID int64, name, description string) (*models.Deck, error)
	GetDeck(ctx context.Context, userID, deckID int64) (*models.Deck, error)
	ListDecks(ctx context.Context, userID int64) ([]models.Deck, error)
}

type deckService struct {
	decks repository.DeckRepository
	now   Clock
}

// NewDeckService creates a new DeckService
func NewDeckService(decks repository.DeckRepository, now Clock) DeckService {
	return &deckService{decks: decks, now: clockOrNow(now)}
}

func (s *deckService) CreateDeck(ctx context.Context, userID int64, name, description string) (*models.Deck, error) {
	log := logger.FromContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name", "must not be empty")
	}

	deck := models.Deck{
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   s.now().UTC(),
	}
	id, err := s.decks.Insert(ctx, deck)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	deck.ID = id

	log.Info("deck created: id=%d, user_id=%d", id, userID)
	return &deck, nil
}

func (s *deckService) GetDeck(ctx context.Context, userID, deckID int64) (*models.Deck, error) {
	return ownedDeck(ctx, s.decks, userID, deckID)
}

func (s *deckService) ListDecks(ctx context.Context, userID int64) ([]models.Deck, error) {
	decks, err := s.decks.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return decks, nil
}

// ownedDeck loads a deck and hides decks of other users behind NOT_FOUND.
func ownedDeck(ctx context.Context, decks repository.DeckRepository, userID, deckID int64) (*models.Deck, error) {
	deck, err := decks.Get(ctx, deckID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("deck", deckID)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if deck.UserID != userID {
		logger.FromContext(ctx).Warn("user %d asked for deck %d owned by %d", userID, deckID, deck.UserID)
		return nil, apperrors.NewNotFoundError("deck", deckID)
	}
	return deck, nil
}
