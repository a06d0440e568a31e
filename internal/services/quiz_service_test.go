package services_test

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/vytor/studyflash/internal/errors"
	"github.com/vytor/studyflash/internal/generator"
	"github.com/vytor/studyflash/internal/models"
	"github.com/vytor/studyflash/internal/repository/sqlite"
	"github.com/vytor/studyflash/internal/services"
	"github.com/vytor/studyflash/internal/sessionlock"
	"github.com/vytor/studyflash/internal/testutil"
	"github.com/vytor/studyflash/internal/testutil/mocks"
)

func validQuestion(correct string) *models.Question {
	explanation := "because " + correct
	q := &models.Question{Content: "Pick one", Explanation: &explanation}
	for _, id := range models.OptionIDs {
		q.Options = append(q.Options, models.Option{ID: id, Content: "option " + id, IsCorrect: id == correct})
	}
	return q
}

type QuizServiceSuite struct {
	suite.Suite
	db    *sql.DB
	clock *testutil.Clock
	gen   *mocks.MockQuestionGenerator
	quiz  services.QuizService
}

func (s *QuizServiceSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.clock = testutil.NewClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	s.gen = new(mocks.MockQuestionGenerator)
	s.quiz = s.newService(s.gen, time.Second)
}

func (s *QuizServiceSuite) newService(gen generator.QuestionGenerator, timeout time.Duration) services.QuizService {
	return services.NewQuizService(sqlite.NewTxRunner(s.db), sqlite.NewQuizSessionRepository(s.db), gen,
		sessionlock.New(), services.QuizConfig{GenerationTimeout: timeout}, s.clock.Now)
}

func (s *QuizServiceSuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *QuizServiceSuite) create() *models.QuizSession {
	q, err := s.quiz.Create(context.Background(), userID, models.CreateQuizInput{
		Topic:           "Go concurrency",
		Subtopic:        "channels",
		Difficulty:      models.DifficultyAdvanced,
		Style:           models.StylePractical,
		ExplanationType: models.ExplanationBrief,
	})
	s.Require().NoError(err)
	return q
}

// pass generates and answers steps [0, n) correctly.
func (s *QuizServiceSuite) pass(q *models.QuizSession, n int) {
	ctx := context.Background()
	for i := 0; i < n; i++ {
		s.gen.On("GenerateQuestion", mock.Anything, mock.MatchedBy(func(r generator.Request) bool {
			return r.StepType == q.Steps[i].StepType
		})).Return(validQuestion("B"), nil).Once()

		_, err := s.quiz.GenerateStepQuestion(ctx, userID, q.Steps[i].ID)
		s.Require().NoError(err)
		_, err = s.quiz.AnswerStep(ctx, userID, q.Steps[i].ID, "B")
		s.Require().NoError(err)
	}
}

func (s *QuizServiceSuite) TestCreateAllocatesFourOrderedSteps() {
	q := s.create()

	s.Equal(models.QuizActive, q.Status)
	s.Require().Len(q.Steps, 4)
	for i, st := range q.Steps {
		s.Equal(models.StepOrder[i], st.StepType)
		s.Equal(i, st.Position)
		s.Nil(st.Question)
		s.Nil(st.IsCorrect)
	}

	got, err := s.quiz.Get(context.Background(), userID, q.ID)
	s.Require().NoError(err)
	s.Equal(q.Steps[0].ID, got.CurrentStep().ID)

	_, err = s.quiz.Get(context.Background(), userID+1, q.ID)
	s.ErrorIs(err, apperrors.ErrSessionNotFound)
}

func (s *QuizServiceSuite) TestCreateValidation() {
	ctx := context.Background()

	_, err := s.quiz.Create(ctx, userID, models.CreateQuizInput{Topic: "  "})
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.quiz.Create(ctx, userID, models.CreateQuizInput{Topic: "Go", Difficulty: "expert"})
	s.ErrorIs(err, apperrors.ErrValidation)

	q, err := s.quiz.Create(ctx, userID, models.CreateQuizInput{Topic: "Go"})
	s.Require().NoError(err)
	s.Equal(models.DifficultyIntermediate, q.Difficulty)
}

func (s *QuizServiceSuite) TestFullQuizCompletes() {
	ctx := context.Background()
	q := s.create()

	s.gen.On("GenerateQuestion", mock.Anything, mock.MatchedBy(func(r generator.Request) bool {
		return r.StepType == models.StepConcept && r.Topic == "Go concurrency" &&
			r.Difficulty == models.DifficultyAdvanced && r.ExplanationType == models.ExplanationBrief
	})).Return(validQuestion("C"), nil).Once()

	step, err := s.quiz.GenerateStepQuestion(ctx, userID, q.Steps[0].ID)
	s.Require().NoError(err)
	s.Equal("C", step.Question.CorrectOptionID())

	// Generated once: the second visit returns the stored question.
	again, err := s.quiz.GenerateStepQuestion(ctx, userID, q.Steps[0].ID)
	s.Require().NoError(err)
	s.Equal(step.Question.Content, again.Question.Content)

	res, err := s.quiz.AnswerStep(ctx, userID, q.Steps[0].ID, "a")
	s.Require().NoError(err)
	s.False(res.IsCorrect)
	s.Equal("C", res.CorrectOptionID)
	s.Require().NotNil(res.Explanation)
	s.Require().NotNil(res.NextStep)
	s.Equal(q.Steps[1].ID, res.NextStep.ID)
	s.Equal(models.QuizActive, res.Status)

	for i := 1; i < 4; i++ {
		s.gen.On("GenerateQuestion", mock.Anything, mock.Anything).Return(validQuestion("E"), nil).Once()
		_, err := s.quiz.GenerateStepQuestion(ctx, userID, q.Steps[i].ID)
		s.Require().NoError(err)
		res, err = s.quiz.AnswerStep(ctx, userID, q.Steps[i].ID, "E")
		s.Require().NoError(err)
		s.True(res.IsCorrect)
	}
	s.Nil(res.NextStep)
	s.Equal(models.QuizCompleted, res.Status)

	done, err := s.quiz.Get(ctx, userID, q.ID)
	s.Require().NoError(err)
	s.Equal(models.QuizCompleted, done.Status)
	s.NotNil(done.CompletedAt)
	s.Equal(3, done.CorrectCount())
	s.gen.AssertExpectations(s.T())
}

func (s *QuizServiceSuite) TestStepOrderIsEnforced() {
	ctx := context.Background()
	q := s.create()
	s.pass(q, 1)

	// CONCEPT answered, EXAMPLE current: COMPARISON is out of order.
	_, err := s.quiz.AnswerStep(ctx, userID, q.Steps[2].ID, "A")
	s.ErrorIs(err, apperrors.ErrStepOutOfOrder)
	_, err = s.quiz.GenerateStepQuestion(ctx, userID, q.Steps[3].ID)
	s.ErrorIs(err, apperrors.ErrStepOutOfOrder)

	// Only the first unanswered step can be answered, answered ones included.
	_, err = s.quiz.AnswerStep(ctx, userID, q.Steps[0].ID, "B")
	s.ErrorIs(err, apperrors.ErrStepOutOfOrder)
	_, err = s.quiz.GenerateStepQuestion(ctx, userID, q.Steps[0].ID)
	s.ErrorIs(err, apperrors.ErrStepAlreadyAnswered)

	_, err = s.quiz.AnswerStep(ctx, userID, q.Steps[1].ID, "A")
	s.ErrorIs(err, apperrors.ErrQuestionNotGenerated)

	s.gen.On("GenerateQuestion", mock.Anything, mock.Anything).Return(validQuestion("A"), nil).Once()
	_, err = s.quiz.GenerateStepQuestion(ctx, userID, q.Steps[1].ID)
	s.Require().NoError(err)
	_, err = s.quiz.AnswerStep(ctx, userID, q.Steps[1].ID, "Z")
	s.ErrorIs(err, apperrors.ErrOptionNotFound)

	_, err = s.quiz.AnswerStep(ctx, userID, "no-such-step", "A")
	s.ErrorIs(err, apperrors.ErrStepNotFound)
	_, err = s.quiz.AnswerStep(ctx, userID+1, q.Steps[1].ID, "A")
	s.ErrorIs(err, apperrors.ErrStepNotFound)
}

func (s *QuizServiceSuite) TestAnsweredStepOfClosedSessionIsAlreadyAnswered() {
	ctx := context.Background()
	q := s.create()
	s.pass(q, 4)

	done, err := s.quiz.Get(ctx, userID, q.ID)
	s.Require().NoError(err)
	s.Require().Equal(models.QuizCompleted, done.Status)

	_, err = s.quiz.GenerateStepQuestion(ctx, userID, q.Steps[3].ID)
	s.ErrorIs(err, apperrors.ErrStepAlreadyAnswered)
	_, err = s.quiz.AnswerStep(ctx, userID, q.Steps[3].ID, "B")
	s.ErrorIs(err, apperrors.ErrSessionClosed)
}

func (s *QuizServiceSuite) TestGenerationFailuresAreRetryable() {
	ctx := context.Background()
	q := s.create()
	stepID := q.Steps[0].ID

	s.gen.On("GenerateQuestion", mock.Anything, mock.Anything).Return(nil, stderrors.New("overloaded")).Once()
	_, err := s.quiz.GenerateStepQuestion(ctx, userID, stepID)
	s.Require().ErrorIs(err, apperrors.ErrUpstreamGeneration)
	s.Equal(502, apperrors.As(err).Status)
	s.True(apperrors.As(err).Retryable())

	bad := validQuestion("A")
	bad.Options[1].IsCorrect = true
	s.gen.On("GenerateQuestion", mock.Anything, mock.Anything).Return(bad, nil).Once()
	_, err = s.quiz.GenerateStepQuestion(ctx, userID, stepID)
	s.ErrorIs(err, apperrors.ErrUpstreamGeneration)

	got, err := s.quiz.Get(ctx, userID, q.ID)
	s.Require().NoError(err)
	s.Nil(got.Steps[0].Question, "nothing is stored for a failed generation")

	s.gen.On("GenerateQuestion", mock.Anything, mock.Anything).Return(validQuestion("D"), nil).Once()
	step, err := s.quiz.GenerateStepQuestion(ctx, userID, stepID)
	s.Require().NoError(err)
	s.Equal("D", step.Question.CorrectOptionID())
}

func (s *QuizServiceSuite) TestGenerationTimeout() {
	gen := new(mocks.MockQuestionGenerator)
	gen.On("GenerateQuestion", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return(nil, context.DeadlineExceeded).Once()
	s.quiz = s.newService(gen, 20*time.Millisecond)

	q := s.create()
	_, err := s.quiz.GenerateStepQuestion(context.Background(), userID, q.Steps[0].ID)
	s.Require().ErrorIs(err, apperrors.ErrUpstreamGeneration)
	s.Equal(504, apperrors.As(err).Status)
}

func (s *QuizServiceSuite) TestAbandonAfterCompletionIsNoop() {
	ctx := context.Background()
	q := s.create()
	s.pass(q, 4)

	got, err := s.quiz.Abandon(ctx, userID, q.ID)
	s.Require().NoError(err)
	s.Equal(models.QuizCompleted, got.Status)
	s.Nil(got.AbandonedAt)
}

func (s *QuizServiceSuite) TestAbandonAndReset() {
	ctx := context.Background()
	q := s.create()

	_, err := s.quiz.Reset(ctx, userID, q.ID)
	s.ErrorIs(err, apperrors.ErrInvalidStateForReset)

	s.pass(q, 2)
	abandoned, err := s.quiz.Abandon(ctx, userID, q.ID)
	s.Require().NoError(err)
	s.Equal(models.QuizAbandoned, abandoned.Status)
	s.NotNil(abandoned.AbandonedAt)

	// Abandon is idempotent.
	again, err := s.quiz.Abandon(ctx, userID, q.ID)
	s.Require().NoError(err)
	s.Equal(models.QuizAbandoned, again.Status)

	_, err = s.quiz.AnswerStep(ctx, userID, q.Steps[2].ID, "A")
	s.ErrorIs(err, apperrors.ErrSessionClosed)

	fresh, err := s.quiz.Reset(ctx, userID, q.ID)
	s.Require().NoError(err)
	s.Equal(models.QuizActive, fresh.Status)
	s.Nil(fresh.AbandonedAt)
	s.Require().Len(fresh.Steps, 4)
	for _, st := range fresh.Steps {
		s.Nil(st.Question)
		s.Nil(st.IsCorrect)
		s.Nil(st.UserAnswer)
	}
	s.Equal(q.Steps[0].ID, fresh.CurrentStep().ID)

	_, err = s.quiz.Abandon(ctx, userID, "missing")
	s.ErrorIs(err, apperrors.ErrSessionNotFound)
}

func (s *QuizServiceSuite) TestAbandonWaitsForInflightWriter() {
	ctx := context.Background()
	q := s.create()

	started := make(chan struct{})
	release := make(chan struct{})
	s.gen.On("GenerateQuestion", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(validQuestion("A"), nil).Once()

	genDone := make(chan error, 1)
	go func() {
		_, err := s.quiz.GenerateStepQuestion(ctx, userID, q.Steps[0].ID)
		genDone <- err
	}()
	<-started

	// A second writer is rejected while the first holds the session.
	_, err := s.quiz.AnswerStep(ctx, userID, q.Steps[0].ID, "A")
	s.ErrorIs(err, apperrors.ErrSessionBusy)

	abandonDone := make(chan *models.QuizSession, 1)
	go func() {
		got, err := s.quiz.Abandon(ctx, userID, q.ID)
		s.NoError(err)
		abandonDone <- got
	}()

	select {
	case <-abandonDone:
		s.Fail("abandon finished while generation was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	s.Require().NoError(<-genDone)
	got := <-abandonDone
	s.Equal(models.QuizAbandoned, got.Status)
	s.NotNil(got.Steps[0].Question)
}

func (s *QuizServiceSuite) TestAbandonIdle() {
	ctx := context.Background()
	idle := s.create()
	s.clock.Advance(3 * time.Hour)
	busy := s.create()
	done := s.create()
	s.pass(done, 4)

	n, err := s.quiz.AbandonIdle(ctx, s.clock.Now().Add(-2*time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)

	for id, want := range map[string]models.QuizStatus{
		idle.ID: models.QuizAbandoned,
		busy.ID: models.QuizActive,
		done.ID: models.QuizCompleted,
	} {
		got, err := s.quiz.Get(ctx, userID, id)
		s.Require().NoError(err)
		s.Equal(want, got.Status)
	}
}

func TestQuizServiceSuite(t *testing.T) {
	suite.Run(t, new(QuizServiceSuite))
}
