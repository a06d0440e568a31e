package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/vytor/studyflash/internal/errors"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(loggingMiddleware)
	r.Use(recoveryMiddleware)
	r.Use(securityHeadersMiddleware)
	r.Use(s.corsMiddleware())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handleError(w, r, apperrors.NewNotFoundError("route", r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handleError(w, r, &apperrors.AppError{
			Code:    apperrors.ErrCodeBadRequest,
			Message: "method not allowed",
			Status:  http.StatusMethodNotAllowed,
		})
	})

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Post("/beacon/abandon", s.handleAbandonBeacon)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/decks", func(r chi.Router) {
			r.Post("/", s.handleCreateDeck)
			r.Get("/", s.handleListDecks)
			r.Route("/{deckID}", func(r chi.Router) {
				r.Get("/", s.handleGetDeck)
				r.Post("/flashcards", s.handleCreateFlashcards)
				r.Get("/flashcards", s.handleListFlashcards)
				r.Post("/import", s.handleImport)
				r.Get("/buckets", s.handleDeckBuckets)
				r.Post("/study", s.handleStartStudy)
				r.Post("/study/reset", s.handleResetStudy)
			})
		})

		r.Get("/buckets", s.handleBuckets)
		r.Post("/reviews", s.handleSubmitReview)
		r.Get("/flashcards/{flashcardID}/reviews", s.handleListReviews)

		r.Get("/study/{sessionID}", s.handleGetStudy)
		r.Post("/study/{sessionID}/reviews", s.handleStudyReview)
		r.Post("/study/{sessionID}/end", s.handleEndStudy)

		r.Post("/quizzes", s.handleCreateQuiz)
		r.Get("/quizzes/{sessionID}", s.handleGetQuiz)
		r.Post("/quizzes/{sessionID}/abandon", s.handleAbandonQuiz)
		r.Post("/quizzes/{sessionID}/reset", s.handleResetQuiz)
		r.Post("/quiz-steps/{stepID}/question", s.handleStepQuestion)
		r.Post("/quiz-steps/{stepID}/answer", s.handleStepAnswer)
		r.Get("/quiz-options", s.handleQuizOptions)
	})

	return r
}
