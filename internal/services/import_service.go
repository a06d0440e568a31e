package services

import (
	"context"
	"errors"
	"io"

	apperrors "github.com/vytor/studyflash/internal/errors"
	"github.com/vytor/studyflash/internal/importer"
	"github.com/vytor/studyflash/internal/logger"
	"github.com/vytor/studyflash/internal/models"
)

// ImportService handles deck import from spreadsheet uploads
type ImportService interface {
	ImportCards(ctx context.Context, userID, deckID int64, filename string, r io.Reader) (*models.ImportResult, error)
}

type importService struct {
	flashcards FlashcardService
}

// NewImportService creates a new ImportService
func NewImportService(flashcards FlashcardService) ImportService {
	return &importService{flashcards: flashcards}
}

func (s *importService) ImportCards(ctx context.Context, userID, deckID int64, filename string, r io.Reader) (*models.ImportResult, error) {
	log := logger.FromContext(ctx).WithFields(map[string]any{
		"deck_id":  deckID,
		"filename": filename,
	})
	log.Info("importing flashcards")

	parsed, err := importer.Parse(r, filename)
	if err != nil {
		if errors.Is(err, importer.ErrUnsupportedFormat) {
			return nil, apperrors.NewValidationError("file", err.Error())
		}
		log.Warn("failed to parse upload: %v", err)
		return nil, apperrors.NewBadRequestError("could not read file: " + err.Error())
	}
	if len(parsed.Cards) == 0 {
		return nil, apperrors.NewValidationError("file", "no cards found")
	}

	ids, err := s.flashcards.CreateFlashcards(ctx, userID, deckID, parsed.Cards)
	if err != nil {
		return nil, err
	}

	log.Info("import finished: imported=%d, skipped=%d", len(ids), parsed.Skipped)
	return &models.ImportResult{
		Imported: len(ids),
		Skipped:  parsed.Skipped,
		Errors:   parsed.Errors,
	}, nil
}
