package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/vytor/studyflash/internal/logger"
	"github.com/vytor/studyflash/internal/models"
)

const maxBeaconBytes = 4 << 10

func (s *Server) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var in models.CreateQuizInput
	if err := decodeJSON(w, r, &in); err != nil {
		handleError(w, r, err)
		return
	}

	q, err := s.QuizService.Create(r.Context(), userID, in)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, q.Public())
}

func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	s.quizAction(w, r, s.QuizService.Get)
}

func (s *Server) handleAbandonQuiz(w http.ResponseWriter, r *http.Request) {
	s.quizAction(w, r, s.QuizService.Abandon)
}

func (s *Server) handleResetQuiz(w http.ResponseWriter, r *http.Request) {
	s.quizAction(w, r, s.QuizService.Reset)
}

type quizFunc func(ctx context.Context, userID int64, sessionID string) (*models.QuizSession, error)

func (s *Server) quizAction(w http.ResponseWriter, r *http.Request, fn quizFunc) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, err := stringParam(r, "sessionID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	q, err := fn(r.Context(), userID, sessionID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, q.Public())
}

// handleStepQuestion returns the step's question, generating it on first
// visit. Correctness stays hidden until the step is answered.
func (s *Server) handleStepQuestion(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	stepID, err := stringParam(r, "stepID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	step, err := s.QuizService.GenerateStepQuestion(r.Context(), userID, stepID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, step.Public())
}

type answerRequest struct {
	OptionID string `json:"option_id"`
}

func (s *Server) handleStepAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	stepID, err := stringParam(r, "stepID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	res, err := s.QuizService.AnswerStep(r.Context(), userID, stepID, req.OptionID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if res.NextStep != nil {
		next := res.NextStep.Public()
		res.NextStep = &next
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleQuizOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, models.AllQuizOptions())
}

type beaconRequest struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

// handleAbandonBeacon takes the abandon signal a page sends while unloading.
// Beacons cannot set headers or read the reply, so the token travels in the
// body, the content type is not checked, and the answer is always 202.
func (s *Server) handleAbandonBeacon(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	defer w.WriteHeader(http.StatusAccepted)

	var req beaconRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBeaconBytes)).Decode(&req); err != nil {
		log.Warn("malformed abandon beacon: %v", err)
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		log.Warn("abandon beacon without session_id")
		return
	}

	userID, err := s.Issuer.Parse(req.Token)
	if err != nil {
		log.Warn("abandon beacon with invalid token for session %s", req.SessionID)
		return
	}

	if err := s.JobQueue.EnqueueAbandon(userID, req.SessionID); err != nil {
		log.Warn("dropping abandon beacon for session %s: %v", req.SessionID, err)
		return
	}
	log.Debug("abandon queued for session %s", req.SessionID)
}
