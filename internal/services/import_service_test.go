package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vytor/studyflash/internal/errors"
	"github.com/vytor/studyflash/internal/flashcard"
	"github.com/vytor/studyflash/internal/repository/sqlite"
	"github.com/vytor/studyflash/internal/services"
	"github.com/vytor/studyflash/internal/testutil"
)

func TestImportService_ImportCards(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.MustClose(t, db)

	clock := testutil.NewClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	cardRepo := sqlite.NewFlashcardRepository(db)
	cards := services.NewFlashcardService(sqlite.NewTxRunner(db), sqlite.NewDeckRepository(db), cardRepo,
		flashcard.NewGrader(flashcard.DefaultGraderConfig()), flashcard.NewClassifier(time.UTC), clock.Now)
	svc := services.NewImportService(cards)

	deckID := testutil.SeedDeck(t, db, userID, "Go")
	ctx := context.Background()

	res, err := svc.ImportCards(ctx, userID, deckID, "cards.csv", strings.NewReader("front,back\na,b\nc,\ne,f\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Skipped)

	stored, err := cardRepo.ListByDeck(ctx, deckID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	_, err = svc.ImportCards(ctx, userID, deckID, "cards.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.ImportCards(ctx, userID, deckID, "cards.csv", strings.NewReader("front,back\n"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.ImportCards(ctx, userID+1, deckID, "cards.csv", strings.NewReader("a,b\n"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
