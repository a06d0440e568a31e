package services_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vytor/studyflash/internal/errors"
	"github.com/vytor/studyflash/internal/flashcard"
	"github.com/vytor/studyflash/internal/models"
	"github.com/vytor/studyflash/internal/repository"
	"github.com/vytor/studyflash/internal/services"
	"github.com/vytor/studyflash/internal/testutil/mocks"
)

func newMockedFlashcardService(decks *mocks.MockDeckRepository, cards *mocks.MockFlashcardRepository) services.FlashcardService {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	return services.NewFlashcardService(mocks.InlineTxRunner{}, decks, cards,
		flashcard.NewGrader(flashcard.DefaultGraderConfig()), flashcard.NewClassifier(time.UTC),
		func() time.Time { return now })
}

func ownedCard() (*models.Deck, *models.Flashcard) {
	deck := &models.Deck{ID: 3, UserID: userID, Name: "Go"}
	card := &models.Flashcard{ID: 11, DeckID: deck.ID, Front: "q", Back: "a", Version: 4,
		RetentionState: models.RetentionState{EaseFactor: 2.5}}
	return deck, card
}

func TestReview_VersionConflictIsStale(t *testing.T) {
	decks := new(mocks.MockDeckRepository)
	cards := new(mocks.MockFlashcardRepository)
	deck, card := ownedCard()

	decks.On("Get", mock.Anything, deck.ID).Return(deck, nil)
	cards.On("Get", mock.Anything, card.ID).Return(card, nil)
	cards.On("UpdateRetention", mock.Anything, mock.MatchedBy(func(c models.Flashcard) bool {
		// The write is conditioned on the version that was read.
		return c.ID == card.ID && c.Version == 4 && c.Repetition == 1
	})).Return(repository.ErrVersionConflict)

	svc := newMockedFlashcardService(decks, cards)
	_, err := svc.Review(context.Background(), userID, models.ReviewInput{FlashcardID: card.ID, Grade: 4})

	assert.ErrorIs(t, err, apperrors.ErrStaleSubmission)
	cards.AssertNotCalled(t, "InsertReview", mock.Anything, mock.Anything)
	cards.AssertExpectations(t)
}

func TestReview_LogFailureIsInternal(t *testing.T) {
	decks := new(mocks.MockDeckRepository)
	cards := new(mocks.MockFlashcardRepository)
	deck, card := ownedCard()

	decks.On("Get", mock.Anything, deck.ID).Return(deck, nil)
	cards.On("Get", mock.Anything, card.ID).Return(card, nil)
	cards.On("UpdateRetention", mock.Anything, mock.Anything).Return(nil)
	cards.On("InsertReview", mock.Anything, mock.MatchedBy(func(r models.ReviewRecord) bool {
		return r.FlashcardID == card.ID && r.Grade == 2 && r.SessionID == nil
	})).Return(int64(0), stderrors.New("disk full"))

	svc := newMockedFlashcardService(decks, cards)
	_, err := svc.Review(context.Background(), userID, models.ReviewInput{FlashcardID: card.ID, Grade: 2})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInternal)
	cards.AssertExpectations(t)
}

func TestReview_RejectsGradeBeforeTouchingStorage(t *testing.T) {
	decks := new(mocks.MockDeckRepository)
	cards := new(mocks.MockFlashcardRepository)

	svc := newMockedFlashcardService(decks, cards)
	for _, g := range []int{-1, 6, 100} {
		_, err := svc.Review(context.Background(), userID, models.ReviewInput{FlashcardID: 1, Grade: g})
		assert.ErrorIs(t, err, apperrors.ErrInvalidGrade, "grade %d", g)
	}
	cards.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	decks.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}
