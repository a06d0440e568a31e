package flashcard_test

import (
	stderrors "errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/studyflash/internal/errors"
	"github.com/vytor/studyflash/internal/flashcard"
	"github.com/vytor/studyflash/internal/models"
)

var now = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

func newGrader() *flashcard.Grader {
	return flashcard.NewGrader(flashcard.DefaultGraderConfig())
}

func TestGrade_PerfectScoreOnMatureCard(t *testing.T) {
	state := models.RetentionState{EaseFactor: 2.5, IntervalDays: 6, Repetition: 2}

	updated, err := newGrader().Grade(state, 5, now)
	require.NoError(t, err)

	assert.Equal(t, 3, updated.Repetition)
	assert.Equal(t, 16, updated.IntervalDays)
	assert.InDelta(t, 2.6, updated.EaseFactor, 1e-9)
	require.NotNil(t, updated.NextReview)
	assert.True(t, updated.NextReview.Equal(now.AddDate(0, 0, 16)))
	require.NotNil(t, updated.LastReviewedAt)
	assert.True(t, updated.LastReviewedAt.Equal(now))
}

func TestGrade_FailureResetsRepetition(t *testing.T) {
	state := models.RetentionState{EaseFactor: 2.5, IntervalDays: 6, Repetition: 2}

	updated, err := newGrader().Grade(state, 1, now)
	require.NoError(t, err)

	assert.Equal(t, 0, updated.Repetition)
	assert.Equal(t, 1, updated.IntervalDays)
	assert.Less(t, updated.EaseFactor, 2.5)
	assert.InDelta(t, 1.96, updated.EaseFactor, 1e-9)
	assert.True(t, updated.NextReview.Equal(now.AddDate(0, 0, 1)))
}

func TestGrade_FirstIntervals(t *testing.T) {
	g := newGrader()
	state := g.NewState()

	first, err := g.Grade(state, 4, now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.IntervalDays)
	assert.Equal(t, 1, first.Repetition)

	second, err := g.Grade(first, 4, now)
	require.NoError(t, err)
	assert.Equal(t, 6, second.IntervalDays)
	assert.Equal(t, 2, second.Repetition)
}

func TestGrade_InvalidGrade(t *testing.T) {
	state := models.RetentionState{EaseFactor: 2.5}

	for _, grade := range []int{-1, 6, 100} {
		updated, err := newGrader().Grade(state, grade, now)
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrInvalidGrade))
		assert.Equal(t, state, updated, "state must be untouched")
	}
}

func TestGrade_ClampsBadInput(t *testing.T) {
	state := models.RetentionState{EaseFactor: 0.2, IntervalDays: -4, Repetition: -1}

	updated, err := newGrader().Grade(state, 3, now)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, updated.EaseFactor, 1.3)
	assert.Equal(t, 1, updated.IntervalDays)
	assert.Equal(t, 1, updated.Repetition)
}

func TestGrade_CapsInterval(t *testing.T) {
	g := newGrader()
	state := models.RetentionState{EaseFactor: 2.5, IntervalDays: 3000, Repetition: 9}

	updated, err := g.Grade(state, 5, now)
	require.NoError(t, err)
	assert.Equal(t, g.Config().MaxInterval, updated.IntervalDays)
}

func TestGrade_PassNeverLowersStoredState(t *testing.T) {
	g := newGrader()

	// Stored ease with more precision than the grader keeps.
	updated, err := g.Grade(models.RetentionState{EaseFactor: 2.554, IntervalDays: 10, Repetition: 3}, 4, now)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, updated.EaseFactor, 2.554)

	// Interval stored above the cap, e.g. written under an older configuration.
	updated, err = g.Grade(models.RetentionState{EaseFactor: 2.5, IntervalDays: 5000, Repetition: 12}, 5, now)
	require.NoError(t, err)
	assert.Equal(t, 5000, updated.IntervalDays)
	assert.True(t, updated.NextReview.Equal(now.AddDate(0, 0, 5000)))

	// Failing still resets below the stored interval.
	updated, err = g.Grade(models.RetentionState{EaseFactor: 2.5, IntervalDays: 5000, Repetition: 12}, 2, now)
	require.NoError(t, err)
	assert.Equal(t, g.Config().FailureInterval, updated.IntervalDays)
}

func TestGrade_PerformanceAverage(t *testing.T) {
	g := newGrader()

	first, err := g.Grade(g.NewState(), 5, now)
	require.NoError(t, err)
	require.NotNil(t, first.PerformanceAvg)
	assert.InDelta(t, 100, *first.PerformanceAvg, 1e-9)

	second, err := g.Grade(first, 0, now)
	require.NoError(t, err)
	assert.InDelta(t, 70, *second.PerformanceAvg, 1e-9)
}

// Randomized walk over reachable states checking the scheduling properties.
func TestGrade_Properties(t *testing.T) {
	g := newGrader()
	rng := rand.New(rand.NewSource(42))

	for walk := 0; walk < 200; walk++ {
		state := g.NewState()
		if walk%4 == 1 {
			// Start some walks from imported state the grader did not write.
			state = models.RetentionState{
				EaseFactor:   1.3 + rng.Float64()*2,
				IntervalDays: rng.Intn(2*g.Config().MaxInterval) + 1,
				Repetition:   rng.Intn(20),
			}
		}
		for step := 0; step < 40; step++ {
			grade := rng.Intn(6)
			next, err := g.Grade(state, grade, now)
			require.NoError(t, err)

			if grade >= flashcard.PassGrade {
				assert.GreaterOrEqual(t, next.IntervalDays, state.IntervalDays)
				assert.Equal(t, state.Repetition+1, next.Repetition)
				assert.GreaterOrEqual(t, next.EaseFactor, state.EaseFactor)
			} else {
				assert.Equal(t, 0, next.Repetition)
				assert.Equal(t, g.Config().FailureInterval, next.IntervalDays)
			}
			assert.GreaterOrEqual(t, next.EaseFactor, g.Config().EaseFloor)
			assert.LessOrEqual(t, next.IntervalDays, max(g.Config().MaxInterval, state.IntervalDays))
			assert.True(t, next.NextReview.Equal(now.AddDate(0, 0, next.IntervalDays)))
			assert.GreaterOrEqual(t, *next.PerformanceAvg, 0.0)
			assert.LessOrEqual(t, *next.PerformanceAvg, 100.0)
			state = next
		}
	}
}

func TestGrade_RepeatedFailuresStopAtFloor(t *testing.T) {
	g := newGrader()
	state := g.NewState()
	var err error
	for i := 0; i < 20; i++ {
		state, err = g.Grade(state, 0, now)
		require.NoError(t, err)
	}
	assert.Equal(t, 1.3, state.EaseFactor)
}
