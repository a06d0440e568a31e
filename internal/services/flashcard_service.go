package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/vytor/studyflash/internal/errors"
	"github.com/vytor/studyflash/internal/flashcard"
	"github.com/vytor/studyflash/internal/logger"
	"github.com/vytor/studyflash/internal/models"
	"github.com/vytor/studyflash/internal/repository"
)

// FlashcardService handles flashcard-related business logic
type FlashcardService interface {
	CreateFlashcard(ctx context.Context, userID, deckID int64, in models.CardInput) (*models.Flashcard, error)
	CreateFlashcards(ctx context.Context, userID, deckID int64, in []models.CardInput) ([]int64, error)
	ListFlashcards(ctx context.Context, userID, deckID int64) ([]models.Flashcard, error)
	// Buckets classifies the user's cards, or one deck's when deckID is set.
	Buckets(ctx context.Context, userID int64, deckID *int64) (*models.Buckets, error)
	// Review grades a card outside any study session.
	Review(ctx context.Context, userID int64, in models.ReviewInput) (*models.ReviewResult, error)
	ListReviews(ctx context.Context, userID, flashcardID int64) ([]models.ReviewRecord, error)
}

type flashcardService struct {
	txs        repository.TxRunner
	decks      repository.DeckRepository
	cards      repository.FlashcardRepository
	grader     *flashcard.Grader
	classifier *flashcard.Classifier
	writer     reviewWriter
	now        Clock
}

// NewFlashcardService creates a new FlashcardService
func NewFlashcardService(
	txs repository.TxRunner,
	decks repository.DeckRepository,
	cards repository.FlashcardRepository,
	grader *flashcard.Grader,
	classifier *flashcard.Classifier,
	now Clock,
) FlashcardService {
	return &flashcardService{
		txs:        txs,
		decks:      decks,
		cards:      cards,
		grader:     grader,
		classifier: classifier,
		writer:     reviewWriter{grader: grader, cards: cards},
		now:        clockOrNow(now),
	}
}

func (s *flashcardService) newCard(deckID int64, in models.CardInput, field string) (models.Flashcard, error) {
	front, back := strings.TrimSpace(in.Front), strings.TrimSpace(in.Back)
	if front == "" {
		return models.Flashcard{}, apperrors.NewValidationError(field+"front", "must not be empty")
	}
	if back == "" {
		return models.Flashcard{}, apperrors.NewValidationError(field+"back", "must not be empty")
	}
	return models.Flashcard{
		DeckID:         deckID,
		Front:          front,
		Back:           back,
		RetentionState: s.grader.NewState(),
		Version:        1,
		CreatedAt:      s.now().UTC(),
	}, nil
}

func (s *flashcardService) CreateFlashcard(ctx context.Context, userID, deckID int64, in models.CardInput) (*models.Flashcard, error) {
	if _, err := ownedDeck(ctx, s.decks, userID, deckID); err != nil {
		return nil, err
	}

	card, err := s.newCard(deckID, in, "")
	if err != nil {
		return nil, err
	}
	id, err := s.cards.Insert(ctx, card)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	card.ID = id
	return &card, nil
}

func (s *flashcardService) CreateFlashcards(ctx context.Context, userID, deckID int64, in []models.CardInput) ([]int64, error) {
	log := logger.FromContext(ctx)

	if _, err := ownedDeck(ctx, s.decks, userID, deckID); err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return nil, apperrors.NewValidationError("cards", "must not be empty")
	}

	cards := make([]models.Flashcard, 0, len(in))
	for i, c := range in {
		card, err := s.newCard(deckID, c, fmt.Sprintf("cards[%d].", i))
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}

	ids, err := s.cards.InsertBatch(ctx, cards)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	log.Info("inserted %d flashcards into deck %d", len(ids), deckID)
	return ids, nil
}

func (s *flashcardService) ListFlashcards(ctx context.Context, userID, deckID int64) ([]models.Flashcard, error) {
	if _, err := ownedDeck(ctx, s.decks, userID, deckID); err != nil {
		return nil, err
	}
	cards, err := s.cards.ListByDeck(ctx, deckID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return cards, nil
}

func (s *flashcardService) Buckets(ctx context.Context, userID int64, deckID *int64) (*models.Buckets, error) {
	var (
		cards []models.Flashcard
		err   error
	)
	if deckID != nil {
		if _, err := ownedDeck(ctx, s.decks, userID, *deckID); err != nil {
			return nil, err
		}
		cards, err = s.cards.ListByDeck(ctx, *deckID)
	} else {
		cards, err = s.cards.ListByUser(ctx, userID)
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	b := s.classifier.Classify(s.now(), cards)
	b.New = flashcard.NewCards(cards)
	return &b, nil
}

// ownedCard loads a card and hides cards in other users' decks behind NOT_FOUND.
func (s *flashcardService) ownedCard(ctx context.Context, userID, flashcardID int64) (*models.Flashcard, error) {
	card, err := s.cards.Get(ctx, flashcardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("flashcard", flashcardID)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if _, err := ownedDeck(ctx, s.decks, userID, card.DeckID); err != nil {
		return nil, apperrors.NewNotFoundError("flashcard", flashcardID)
	}
	return card, nil
}

func (s *flashcardService) Review(ctx context.Context, userID int64, in models.ReviewInput) (*models.ReviewResult, error) {
	log := logger.FromContext(ctx)
	log.Debug("reviewing flashcard: flashcard_id=%d, grade=%d", in.FlashcardID, in.Grade)

	if !validGrade(in.Grade) {
		return nil, apperrors.NewInvalidGradeError(in.Grade)
	}
	card, err := s.ownedCard(ctx, userID, in.FlashcardID)
	if err != nil {
		return nil, err
	}

	in.SessionID = nil
	var updated models.Flashcard
	err = s.txs.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		updated, err = s.writer.apply(ctx, tx, *card, in, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, apperrors.As(err)
	}

	result := &models.ReviewResult{
		IsCorrect: in.Grade >= flashcard.PassGrade,
		Flashcard: updated,
	}

	// Outside a session the next card is whatever the deck has due now.
	deckCards, err := s.cards.ListByDeck(ctx, card.DeckID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	for _, c := range s.classifier.Classify(s.now(), deckCards).Due() {
		if c.ID != card.ID {
			next := c
			result.NextCard = &next
			break
		}
	}
	result.Completed = result.NextCard == nil
	return result, nil
}

func (s *flashcardService) ListReviews(ctx context.Context, userID, flashcardID int64) ([]models.ReviewRecord, error) {
	if _, err := s.ownedCard(ctx, userID, flashcardID); err != nil {
		return nil, err
	}
	recs, err := s.cards.ListReviews(ctx, flashcardID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return recs, nil
}
