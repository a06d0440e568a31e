package flashcard

import (
	"math"
	"time"

	"github.com/vytor/studyflash/internal/errors"
	"github.com/vytor/studyflash/internal/models"
)

const (
	MinGrade = 0
	MaxGrade = 5
	// PassGrade is the lowest grade that counts as recalled.
	PassGrade = 3
)

// GraderConfig holds the SM-2 style scheduling constants.
type GraderConfig struct {
	EaseFloor         float64
	DefaultEase       float64
	FailureInterval   int
	FirstInterval     int
	SecondInterval    int
	MaxInterval       int
	PerformanceWeight float64
}

func DefaultGraderConfig() GraderConfig {
	return GraderConfig{
		EaseFloor:         1.3,
		DefaultEase:       2.5,
		FailureInterval:   1,
		FirstInterval:     1,
		SecondInterval:    6,
		MaxInterval:       3650,
		PerformanceWeight: 0.3,
	}
}

// Grader applies recall grades to retention state. It has no clock and no I/O;
// now is always passed in.
type Grader struct {
	cfg GraderConfig
}

func NewGrader(cfg GraderConfig) *Grader {
	def := DefaultGraderConfig()
	if cfg.EaseFloor <= 0 {
		cfg.EaseFloor = def.EaseFloor
	}
	if cfg.DefaultEase < cfg.EaseFloor {
		cfg.DefaultEase = math.Max(def.DefaultEase, cfg.EaseFloor)
	}
	if cfg.FailureInterval <= 0 {
		cfg.FailureInterval = def.FailureInterval
	}
	if cfg.FirstInterval <= 0 {
		cfg.FirstInterval = def.FirstInterval
	}
	if cfg.SecondInterval <= cfg.FirstInterval {
		cfg.SecondInterval = cfg.FirstInterval + def.SecondInterval - def.FirstInterval
	}
	if cfg.MaxInterval < cfg.SecondInterval {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.PerformanceWeight <= 0 || cfg.PerformanceWeight > 1 {
		cfg.PerformanceWeight = def.PerformanceWeight
	}
	return &Grader{cfg: cfg}
}

func (g *Grader) Config() GraderConfig {
	return g.cfg
}

// NewState is the retention state of a card that was never reviewed.
func (g *Grader) NewState() models.RetentionState {
	return models.RetentionState{EaseFactor: g.cfg.DefaultEase}
}

// Grade returns the state after a review with the given grade (0..5).
// Out-of-range stored values are clamped rather than rejected. A passing grade
// never lowers the ease factor or the interval, even one stored above the cap.
func (g *Grader) Grade(state models.RetentionState, grade int, now time.Time) (models.RetentionState, error) {
	if grade < MinGrade || grade > MaxGrade {
		return state, errors.NewInvalidGradeError(grade)
	}

	ease := state.EaseFactor
	if ease < g.cfg.EaseFloor || math.IsNaN(ease) {
		ease = g.cfg.EaseFloor
	}
	prevEase := ease
	prevInterval := min(max(state.IntervalDays, 0), g.cfg.MaxInterval)
	rep := max(state.Repetition, 0)

	// SM-2 ease delta: +0.1 at grade 5, 0 at 4, negative below.
	q := float64(MaxGrade - grade)
	delta := 0.1 - q*(0.08+q*0.02)

	var interval int
	if grade >= PassGrade {
		ease += math.Max(0, delta)
		switch rep {
		case 0:
			interval = g.cfg.FirstInterval
		case 1:
			interval = g.cfg.SecondInterval
		default:
			interval = int(math.Ceil(float64(prevInterval) * ease))
		}
		if interval <= prevInterval {
			interval = prevInterval + 1
		}
		if interval > g.cfg.MaxInterval {
			interval = g.cfg.MaxInterval
		}
		interval = max(interval, state.IntervalDays)
		ease = math.Max(prevEase, roundEase(ease))
		rep++
	} else {
		ease = math.Max(g.cfg.EaseFloor, roundEase(ease+delta))
		interval = g.cfg.FailureInterval
		rep = 0
	}

	reviewedAt := now
	next := now.AddDate(0, 0, interval)
	perf := float64(grade) * 20
	if state.PerformanceAvg != nil {
		w := g.cfg.PerformanceWeight
		perf = w*perf + (1-w)*clampPercent(*state.PerformanceAvg)
	}

	return models.RetentionState{
		EaseFactor:     ease,
		IntervalDays:   interval,
		Repetition:     rep,
		NextReview:     &next,
		LastReviewedAt: &reviewedAt,
		PerformanceAvg: &perf,
	}, nil
}

// roundEase keeps stored ease at two decimals so repeated float math does
// not drift below the floor.
func roundEase(e float64) float64 {
	return math.Round(e*100) / 100
}

func clampPercent(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}
