package api

import (
	"errors"
	"net/http"

	apperrors "github.com/vytor/studyflash/internal/errors"
	"github.com/vytor/studyflash/internal/logger"
	"github.com/vytor/studyflash/internal/models"
)

type createDeckRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleCreateDeck(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req createDeckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	deck, err := s.DeckService.CreateDeck(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, deck)
}

func (s *Server) handleListDecks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	decks, err := s.DeckService.ListDecks(r.Context(), userID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, emptyIfNil(decks))
}

func (s *Server) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	deckID, err := int64Param(r, "deckID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	deck, err := s.DeckService.GetDeck(r.Context(), userID, deckID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, deck)
}

// createFlashcardsRequest is either a single card or a batch under "cards".
type createFlashcardsRequest struct {
	models.CardInput
	Cards []models.CardInput `json:"cards"`
}

func (s *Server) handleCreateFlashcards(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	deckID, err := int64Param(r, "deckID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req createFlashcardsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	if len(req.Cards) > 0 {
		ids, err := s.FlashcardService.CreateFlashcards(r.Context(), userID, deckID, req.Cards)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, map[string]any{"ids": ids})
		return
	}

	card, err := s.FlashcardService.CreateFlashcard(r.Context(), userID, deckID, req.CardInput)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, card)
}

func (s *Server) handleListFlashcards(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	deckID, err := int64Param(r, "deckID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	cards, err := s.FlashcardService.ListFlashcards(r.Context(), userID, deckID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, emptyIfNil(cards))
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	deckID, err := int64Param(r, "deckID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.MaxImportBytes)
	if err := r.ParseMultipartForm(s.MaxImportBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			handleError(w, r, apperrors.NewBadRequestError("upload exceeds size limit"))
			return
		}
		handleError(w, r, apperrors.NewBadRequestError("expected multipart form with a file field"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		handleError(w, r, apperrors.NewValidationError("file", "is required"))
		return
	}
	defer file.Close()

	log.Debug("received upload %s (%d bytes)", header.Filename, header.Size)
	res, err := s.ImportService.ImportCards(r.Context(), userID, deckID, header.Filename, file)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, res)
}

func (s *Server) handleDeckBuckets(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	deckID, err := int64Param(r, "deckID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	s.writeBuckets(w, r, userID, &deckID)
}

func (s *Server) handleBuckets(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	s.writeBuckets(w, r, userID, nil)
}

func (s *Server) writeBuckets(w http.ResponseWriter, r *http.Request, userID int64, deckID *int64) {
	b, err := s.FlashcardService.Buckets(r.Context(), userID, deckID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	b.Overdue = emptyIfNil(b.Overdue)
	b.DueToday = emptyIfNil(b.DueToday)
	b.Upcoming = emptyIfNil(b.Upcoming)
	b.Completed = emptyIfNil(b.Completed)
	b.New = emptyIfNil(b.New)
	writeJSON(w, r, http.StatusOK, b)
}
