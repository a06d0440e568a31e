package api

import (
	"net/http"

	"github.com/vytor/studyflash/internal/models"
)

func (s *Server) handleStartStudy(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	deckID, err := int64Param(r, "deckID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	v, err := s.StudyService.Start(r.Context(), userID, deckID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeStudyView(w, r, v)
}

func (s *Server) handleResetStudy(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	deckID, err := int64Param(r, "deckID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	v, err := s.StudyService.Reset(r.Context(), userID, deckID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeStudyView(w, r, v)
}

// writeStudyView answers 200 for a resumed session and 201 for a new one.
func writeStudyView(w http.ResponseWriter, r *http.Request, v *models.StudySessionView) {
	status := http.StatusCreated
	if v.Resumed {
		status = http.StatusOK
	}
	writeJSON(w, r, status, v)
}

func (s *Server) handleGetStudy(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, err := stringParam(r, "sessionID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	v, err := s.StudyService.Get(r.Context(), userID, sessionID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

func (s *Server) handleStudyReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, err := stringParam(r, "sessionID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		handleError(w, r, err)
		return
	}

	res, err := s.StudyService.SubmitReview(r.Context(), userID, sessionID, in)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleEndStudy(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, err := stringParam(r, "sessionID")
	if err != nil {
		handleError(w, r, err)
		return
	}

	v, err := s.StudyService.End(r.Context(), userID, sessionID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}
