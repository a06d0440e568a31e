package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/vytor/studyflash/internal/errors"
	"github.com/vytor/studyflash/internal/generator"
	"github.com/vytor/studyflash/internal/logger"
	"github.com/vytor/studyflash/internal/models"
	"github.com/vytor/studyflash/internal/repository"
	"github.com/vytor/studyflash/internal/sessionlock"
)

// QuizService drives four-step quiz sessions.
type QuizService interface {
	Create(ctx context.Context, userID int64, in models.CreateQuizInput) (*models.QuizSession, error)
	Get(ctx context.Context, userID int64, sessionID string) (*models.QuizSession, error)
	// GenerateStepQuestion returns the step's question, generating it on
	// first visit.
	GenerateStepQuestion(ctx context.Context, userID int64, stepID string) (*models.QuizStep, error)
	AnswerStep(ctx context.Context, userID int64, stepID, optionID string) (*models.AnswerResult, error)
	// Abandon moves an ACTIVE session to ABANDONED. Terminal sessions are
	// returned unchanged.
	Abandon(ctx context.Context, userID int64, sessionID string) (*models.QuizSession, error)
	Reset(ctx context.Context, userID int64, sessionID string) (*models.QuizSession, error)
	// AbandonIdle abandons ACTIVE sessions not touched since cutoff.
	AbandonIdle(ctx context.Context, cutoff time.Time) (int, error)
}

type QuizConfig struct {
	GenerationTimeout time.Duration
	// IdleBatch caps how many sessions one AbandonIdle call handles.
	IdleBatch int
}

type quizService struct {
	txs     repository.TxRunner
	quizzes repository.QuizSessionRepository
	gen     generator.QuestionGenerator
	locks   *sessionlock.Locker
	cfg     QuizConfig
	now     Clock
}

// NewQuizService creates a new QuizService
func NewQuizService(
	txs repository.TxRunner,
	quizzes repository.QuizSessionRepository,
	gen generator.QuestionGenerator,
	locks *sessionlock.Locker,
	cfg QuizConfig,
	now Clock,
) QuizService {
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 30 * time.Second
	}
	if cfg.IdleBatch <= 0 {
		cfg.IdleBatch = 100
	}
	return &quizService{
		txs:     txs,
		quizzes: quizzes,
		gen:     gen,
		locks:   locks,
		cfg:     cfg,
		now:     clockOrNow(now),
	}
}

func quizLockKey(sessionID string) string { return "quiz:" + sessionID }

func (s *quizService) Create(ctx context.Context, userID int64, in models.CreateQuizInput) (*models.QuizSession, error) {
	log := logger.FromContext(ctx)

	in.Topic = strings.TrimSpace(in.Topic)
	in.Subtopic = strings.TrimSpace(in.Subtopic)
	if in.Topic == "" {
		return nil, apperrors.NewValidationError("topic", "must not be empty")
	}
	if in.Difficulty == "" {
		in.Difficulty = models.DifficultyIntermediate
	}
	if in.Style == "" {
		in.Style = models.StyleConceptual
	}
	if in.ExplanationType == "" {
		in.ExplanationType = models.ExplanationDetailed
	}
	if !in.Difficulty.Valid() {
		return nil, apperrors.NewValidationError("difficulty", "unknown value "+string(in.Difficulty))
	}
	if !in.Style.Valid() {
		return nil, apperrors.NewValidationError("style", "unknown value "+string(in.Style))
	}
	if !in.ExplanationType.Valid() {
		return nil, apperrors.NewValidationError("explanation_type", "unknown value "+string(in.ExplanationType))
	}

	now := s.now().UTC()
	session := models.QuizSession{
		ID:              uuid.NewString(),
		UserID:          userID,
		Topic:           in.Topic,
		Subtopic:        in.Subtopic,
		Difficulty:      in.Difficulty,
		Style:           in.Style,
		ExplanationType: in.ExplanationType,
		Status:          models.QuizActive,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i, t := range models.StepOrder {
		session.Steps = append(session.Steps, models.QuizStep{
			ID:        uuid.NewString(),
			SessionID: session.ID,
			Position:  i,
			StepType:  t,
		})
	}

	if err := s.quizzes.Insert(ctx, session); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	log.Info("quiz session %s created: topic=%s, difficulty=%s", session.ID, session.Topic, session.Difficulty)
	return &session, nil
}

func (s *quizService) load(ctx context.Context, userID int64, sessionID string) (*models.QuizSession, error) {
	session, err := s.quizzes.Get(ctx, sessionID)
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

func (s *quizService) Get(ctx context.Context, userID int64, sessionID string) (*models.QuizSession, error) {
	return s.load(ctx, userID, sessionID)
}

type stepAction int

const (
	stepGenerate stepAction = iota
	stepAnswer
)

// lockStep resolves the step's session, takes its writer lock and checks the
// step can still be worked on. Generating for an answered step fails with
// STEP_ALREADY_ANSWERED whatever the session status; answering anything but
// the first unanswered step of an ACTIVE session fails with STEP_OUT_OF_ORDER.
func (s *quizService) lockStep(ctx context.Context, userID int64, stepID string, action stepAction) (*models.QuizSession, *models.QuizStep, func(), error) {
	sessionID, err := s.quizzes.SessionIDForStep(ctx, stepID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, apperrors.NewStepNotFoundError(stepID)
		}
		return nil, nil, nil, apperrors.NewInternalError(err)
	}

	unlock, ok := s.locks.TryLock(quizLockKey(sessionID))
	if !ok {
		return nil, nil, nil, apperrors.NewSessionBusyError(sessionID)
	}

	session, err := s.quizzes.Get(ctx, sessionID)
	if err != nil {
		unlock()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, apperrors.NewStepNotFoundError(stepID)
		}
		return nil, nil, nil, apperrors.NewInternalError(err)
	}
	step := session.Step(stepID)
	if session.UserID != userID || step == nil {
		unlock()
		return nil, nil, nil, apperrors.NewStepNotFoundError(stepID)
	}

	if action == stepGenerate && step.Answered() {
		unlock()
		return nil, nil, nil, apperrors.NewStepAlreadyAnsweredError(stepID)
	}
	if session.Status != models.QuizActive {
		unlock()
		return nil, nil, nil, apperrors.NewSessionClosedError(sessionID, string(session.Status))
	}
	if current := session.CurrentStep(); current == nil || current.ID != stepID {
		unlock()
		currentID := ""
		if current != nil {
			currentID = current.ID
		}
		return nil, nil, nil, apperrors.NewStepOutOfOrderError(stepID, currentID)
	}
	return session, step, unlock, nil
}

func (s *quizService) GenerateStepQuestion(ctx context.Context, userID int64, stepID string) (*models.QuizStep, error) {
	log := logger.FromContext(ctx).WithField("step_id", stepID)

	session, step, unlock, err := s.lockStep(ctx, userID, stepID, stepGenerate)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if step.Question != nil {
		log.Debug("question already generated")
		return step, nil
	}

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	defer cancel()

	start := time.Now()
	q, err := s.gen.GenerateQuestion(genCtx, generator.Request{
		Topic:           session.Topic,
		Subtopic:        session.Subtopic,
		Difficulty:      session.Difficulty,
		Style:           session.Style,
		ExplanationType: session.ExplanationType,
		StepType:        step.StepType,
	})
	if err == nil && q == nil {
		err = errors.New("generator returned no question")
	}
	if err == nil {
		err = q.Validate()
	}
	if err != nil {
		timedOut := errors.Is(genCtx.Err(), context.DeadlineExceeded)
		log.Error("question generation failed after %v (timed out: %v): %v", time.Since(start), timedOut, err)
		return nil, apperrors.NewUpstreamGenerationError(err, timedOut)
	}

	now := s.now().UTC()
	touched := *session
	touched.UpdatedAt = now
	err = s.txs.WithinTx(ctx, func(tx *sql.Tx) error {
		quizzes := s.quizzes.WithTx(tx)
		if err := quizzes.SaveQuestion(ctx, stepID, *q); err != nil {
			return err
		}
		return quizzes.UpdateStatus(ctx, touched)
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.NewSessionBusyError(session.ID)
		}
		return nil, apperrors.NewInternalError(err)
	}

	log.Info("question generated in %v", time.Since(start))
	step.Question = q
	return step, nil
}

func (s *quizService) AnswerStep(ctx context.Context, userID int64, stepID, optionID string) (*models.AnswerResult, error) {
	log := logger.FromContext(ctx).WithField("step_id", stepID)

	session, step, unlock, err := s.lockStep(ctx, userID, stepID, stepAnswer)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if step.Question == nil {
		return nil, apperrors.NewQuestionNotGeneratedError(stepID)
	}
	optionID = strings.ToUpper(strings.TrimSpace(optionID))
	option, ok := step.Question.Option(optionID)
	if !ok {
		return nil, apperrors.NewOptionNotFoundError(optionID, stepID)
	}

	now := s.now().UTC()
	next := *session
	next.UpdatedAt = now
	last := step.Position == len(session.Steps)-1
	if last {
		next.Status = models.QuizCompleted
		next.CompletedAt = &now
	}

	err = s.txs.WithinTx(ctx, func(tx *sql.Tx) error {
		quizzes := s.quizzes.WithTx(tx)
		if err := quizzes.RecordAnswer(ctx, stepID, optionID, option.IsCorrect, now); err != nil {
			return err
		}
		return quizzes.UpdateStatus(ctx, next)
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.NewSessionBusyError(session.ID)
		}
		return nil, apperrors.NewInternalError(err)
	}

	result := &models.AnswerResult{
		IsCorrect:       option.IsCorrect,
		CorrectOptionID: step.Question.CorrectOptionID(),
		Explanation:     step.Question.Explanation,
		Status:          next.Status,
	}
	if !last {
		ns := session.Steps[step.Position+1]
		result.NextStep = &ns
	}

	log.Info("step answered: option=%s, correct=%v, status=%s", optionID, option.IsCorrect, next.Status)
	return result, nil
}

func (s *quizService) Abandon(ctx context.Context, userID int64, sessionID string) (*models.QuizSession, error) {
	log := logger.FromContext(ctx).WithField("session_id", sessionID)

	// Abandon waits for in-flight writers instead of failing: the signal
	// must not be lost, and it must apply after them.
	unlock, err := s.locks.Lock(ctx, quizLockKey(sessionID))
	if err != nil {
		return nil, apperrors.NewSessionBusyError(sessionID)
	}
	defer unlock()

	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.QuizActive {
		log.Debug("abandon ignored, session is %s", session.Status)
		return session, nil
	}

	changed, err := s.quizzes.Abandon(ctx, sessionID, s.now().UTC())
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if changed {
		if cur := session.CurrentStep(); cur != nil {
			log.Info("quiz session abandoned at step %s", cur.StepType)
		}
	}
	return s.load(ctx, userID, sessionID)
}

func (s *quizService) Reset(ctx context.Context, userID int64, sessionID string) (*models.QuizSession, error) {
	log := logger.FromContext(ctx).WithField("session_id", sessionID)

	unlock, ok := s.locks.TryLock(quizLockKey(sessionID))
	if !ok {
		return nil, apperrors.NewSessionBusyError(sessionID)
	}
	defer unlock()

	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.QuizAbandoned {
		return nil, apperrors.NewInvalidStateForResetError(sessionID, string(session.Status))
	}

	reset := *session
	reset.Status = models.QuizActive
	reset.UpdatedAt = s.now().UTC()
	reset.CompletedAt = nil
	reset.AbandonedAt = nil
	err = s.txs.WithinTx(ctx, func(tx *sql.Tx) error {
		quizzes := s.quizzes.WithTx(tx)
		if err := quizzes.ClearSteps(ctx, sessionID); err != nil {
			return err
		}
		return quizzes.UpdateStatus(ctx, reset)
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.NewSessionBusyError(sessionID)
		}
		return nil, apperrors.NewInternalError(err)
	}

	log.Info("quiz session reset")
	return s.load(ctx, userID, sessionID)
}

func (s *quizService) AbandonIdle(ctx context.Context, cutoff time.Time) (int, error) {
	log := logger.FromContext(ctx)

	ids, err := s.quizzes.ListIdle(ctx, cutoff, s.cfg.IdleBatch)
	if err != nil {
		return 0, apperrors.NewInternalError(err)
	}

	abandoned := 0
	for _, id := range ids {
		unlock, ok := s.locks.TryLock(quizLockKey(id))
		if !ok {
			// A writer is busy with it, so it is not idle.
			continue
		}
		// Re-read under the lock; the session may have moved since listing.
		session, err := s.quizzes.Get(ctx, id)
		if err == nil && session.Status == models.QuizActive && session.UpdatedAt.Before(cutoff) {
			var changed bool
			if changed, err = s.quizzes.Abandon(ctx, id, s.now().UTC()); changed {
				abandoned++
			}
		}
		unlock()
		if err != nil {
			log.Error("failed to abandon idle session %s: %v", id, err)
		}
	}
	return abandoned, nil
}
