package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	apperrors "github.com/vytor/studyflash/internal/errors"
	"github.com/vytor/studyflash/internal/flashcard"
	"github.com/vytor/studyflash/internal/logger"
	"github.com/vytor/studyflash/internal/models"
	"github.com/vytor/studyflash/internal/repository"
	"github.com/vytor/studyflash/internal/sessionlock"
)

// StudyService runs linear study sessions over a deck's due cards.
type StudyService interface {
	// Start resumes the deck's active session or opens a new one.
	Start(ctx context.Context, userID, deckID int64) (*models.StudySessionView, error)
	Get(ctx context.Context, userID int64, sessionID string) (*models.StudySessionView, error)
	SubmitReview(ctx context.Context, userID int64, sessionID string, in models.ReviewInput) (*models.ReviewResult, error)
	// End completes the session. Ending a completed session is a no-op.
	End(ctx context.Context, userID int64, sessionID string) (*models.StudySessionView, error)
	// Reset ends the deck's active session, if any, and starts a new one.
	Reset(ctx context.Context, userID, deckID int64) (*models.StudySessionView, error)
}

type StudyConfig struct {
	// NewCardsPerSession caps how many never-reviewed cards join a session.
	NewCardsPerSession int
}

type studyService struct {
	txs        repository.TxRunner
	decks      repository.DeckRepository
	cards      repository.FlashcardRepository
	sessions   repository.StudySessionRepository
	classifier *flashcard.Classifier
	writer     reviewWriter
	locks      *sessionlock.Locker
	cfg        StudyConfig
	now        Clock
}

// NewStudyService creates a new StudyService
func NewStudyService(
	txs repository.TxRunner,
	decks repository.DeckRepository,
	cards repository.FlashcardRepository,
	sessions repository.StudySessionRepository,
	grader *flashcard.Grader,
	classifier *flashcard.Classifier,
	locks *sessionlock.Locker,
	cfg StudyConfig,
	now Clock,
) StudyService {
	return &studyService{
		txs:        txs,
		decks:      decks,
		cards:      cards,
		sessions:   sessions,
		classifier: classifier,
		writer:     reviewWriter{grader: grader, cards: cards},
		locks:      locks,
		cfg:        cfg,
		now:        clockOrNow(now),
	}
}

func studyLockKey(sessionID string) string { return "study:" + sessionID }

func (s *studyService) Start(ctx context.Context, userID, deckID int64) (*models.StudySessionView, error) {
	log := logger.FromContext(ctx).WithField("deck_id", deckID)

	if _, err := ownedDeck(ctx, s.decks, userID, deckID); err != nil {
		return nil, err
	}

	if active, err := s.activeSession(ctx, userID, deckID); err != nil {
		return nil, err
	} else if active != nil {
		log.Info("resuming study session %s at card %d/%d", active.ID, active.Cursor+1, len(active.Queue))
		return s.view(ctx, active, true)
	}

	queue, err := s.buildQueue(ctx, deckID)
	if err != nil {
		return nil, err
	}
	if len(queue) == 0 {
		log.Info("no due cards")
		return nil, apperrors.NewNoDueCardsError(deckID)
	}

	now := s.now().UTC()
	session := models.StudySession{
		ID:        uuid.NewString(),
		UserID:    userID,
		DeckID:    deckID,
		Queue:     queue,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Insert(ctx, session); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			// Lost a race with a concurrent Start; hand back the winner.
			active, err := s.activeSession(ctx, userID, deckID)
			if err != nil {
				return nil, err
			}
			if active != nil {
				return s.view(ctx, active, true)
			}
		}
		return nil, apperrors.NewInternalError(err)
	}

	log.Info("study session %s started with %d cards", session.ID, len(queue))
	return s.view(ctx, &session, false)
}

func (s *studyService) activeSession(ctx context.Context, userID, deckID int64) (*models.StudySession, error) {
	active, err := s.sessions.GetActive(ctx, userID, deckID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewInternalError(err)
	}
	return active, nil
}

// buildQueue snapshots the deck's overdue and due-today cards, followed by up
// to NewCardsPerSession never-reviewed cards. New cards only ride along with
// due cards; a deck with nothing due yields an empty queue.
func (s *studyService) buildQueue(ctx context.Context, deckID int64) ([]int64, error) {
	cards, err := s.cards.ListByDeck(ctx, deckID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	buckets := s.classifier.Classify(s.now(), cards)
	queue := make([]int64, 0, len(buckets.Overdue)+len(buckets.DueToday))
	for _, c := range buckets.Due() {
		queue = append(queue, c.ID)
	}
	if len(queue) == 0 {
		return queue, nil
	}
	for i, c := range flashcard.NewCards(cards) {
		if i >= s.cfg.NewCardsPerSession {
			break
		}
		queue = append(queue, c.ID)
	}
	return queue, nil
}

func (s *studyService) load(ctx context.Context, userID int64, sessionID string) (*models.StudySession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewSessionNotFoundError(sessionID)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if session.UserID != userID {
		return nil, apperrors.NewSessionNotFoundError(sessionID)
	}
	return session, nil
}

func (s *studyService) view(ctx context.Context, session *models.StudySession, resumed bool) (*models.StudySessionView, error) {
	v := &models.StudySessionView{
		Session:   *session,
		Remaining: session.Remaining(),
		Resumed:   resumed,
	}
	if session.Completed {
		v.Remaining = 0
	}
	if id, ok := session.CurrentCardID(); ok {
		card, err := s.card(ctx, id)
		if err != nil {
			return nil, err
		}
		v.CurrentCard = card
	}
	return v, nil
}

func (s *studyService) card(ctx context.Context, id int64) (*models.Flashcard, error) {
	card, err := s.cards.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("flashcard", id)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return card, nil
}

func (s *studyService) Get(ctx context.Context, userID int64, sessionID string) (*models.StudySessionView, error) {
	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, session, false)
}

func (s *studyService) SubmitReview(ctx context.Context, userID int64, sessionID string, in models.ReviewInput) (*models.ReviewResult, error) {
	log := logger.FromContext(ctx).WithFields(map[string]any{
		"session_id":   sessionID,
		"flashcard_id": in.FlashcardID,
	})
	log.Debug("submitting review: grade=%d", in.Grade)

	unlock, ok := s.locks.TryLock(studyLockKey(sessionID))
	if !ok {
		log.Warn("rejecting concurrent review")
		return nil, apperrors.NewSessionBusyError(sessionID)
	}
	defer unlock()

	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed {
		return nil, apperrors.NewSessionClosedError(sessionID, "COMPLETED")
	}
	if !validGrade(in.Grade) {
		return nil, apperrors.NewInvalidGradeError(in.Grade)
	}

	pos := session.QueuePosition(in.FlashcardID)
	switch {
	case pos < 0:
		return nil, apperrors.NewFlashcardNotInSessionError(in.FlashcardID, sessionID)
	case pos < session.Cursor:
		log.Warn("duplicate submission for an already graded card")
		return nil, apperrors.NewStaleSubmissionError(in.FlashcardID)
	case pos > session.Cursor:
		current, _ := session.CurrentCardID()
		return nil, apperrors.NewCardOutOfOrderError(in.FlashcardID, current)
	}

	card, err := s.card(ctx, in.FlashcardID)
	if err != nil {
		return nil, err
	}
	if card.DeckID != session.DeckID {
		return nil, apperrors.NewFlashcardNotInSessionError(in.FlashcardID, sessionID)
	}

	now := s.now().UTC()
	in.SessionID = &session.ID
	correct := in.Grade >= flashcard.PassGrade

	next := *session
	next.Cursor++
	if correct {
		next.CorrectCount++
	} else {
		next.WrongCount++
	}
	next.UpdatedAt = now
	if next.Cursor >= len(next.Queue) {
		next.Completed = true
		next.CompletedAt = &now
	}

	var graded models.Flashcard
	err = s.txs.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		if graded, err = s.writer.apply(ctx, tx, *card, in, now); err != nil {
			return err
		}
		if err := s.sessions.WithTx(tx).Update(ctx, next); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return apperrors.NewStaleSubmissionError(in.FlashcardID)
			}
			return apperrors.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.As(err)
	}

	result := &models.ReviewResult{
		IsCorrect: correct,
		Flashcard: graded,
		Completed: next.Completed,
	}
	if next.Completed {
		acc := next.Accuracy()
		result.Accuracy = &acc
		log.Info("study session completed: correct=%d, wrong=%d", next.CorrectCount, next.WrongCount)
		return result, nil
	}

	nextID, _ := next.CurrentCardID()
	if result.NextCard, err = s.card(ctx, nextID); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *studyService) End(ctx context.Context, userID int64, sessionID string) (*models.StudySessionView, error) {
	log := logger.FromContext(ctx).WithField("session_id", sessionID)

	unlock, ok := s.locks.TryLock(studyLockKey(sessionID))
	if !ok {
		return nil, apperrors.NewSessionBusyError(sessionID)
	}
	defer unlock()

	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed {
		log.Debug("session already completed")
		return s.view(ctx, session, false)
	}

	now := s.now().UTC()
	ended := *session
	ended.Completed = true
	ended.CompletedAt = &now
	ended.UpdatedAt = now
	if err := s.sessions.Update(ctx, ended); err != nil {
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.NewInternalError(err)
		}
		// Someone else wrote the session; fine as long as it ended.
		if session, err = s.load(ctx, userID, sessionID); err != nil {
			return nil, err
		}
		if !session.Completed {
			return nil, apperrors.NewSessionBusyError(sessionID)
		}
		return s.view(ctx, session, false)
	}

	log.Info("study session ended at card %d/%d", ended.Cursor, len(ended.Queue))
	ended.Version++
	return s.view(ctx, &ended, false)
}

func (s *studyService) Reset(ctx context.Context, userID, deckID int64) (*models.StudySessionView, error) {
	if _, err := ownedDeck(ctx, s.decks, userID, deckID); err != nil {
		return nil, err
	}

	active, err := s.activeSession(ctx, userID, deckID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		if _, err := s.End(ctx, userID, active.ID); err != nil {
			return nil, err
		}
	}
	return s.Start(ctx, userID, deckID)
}
