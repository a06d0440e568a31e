// Package scheduler runs periodic maintenance. Its only job today is the
// sweep that abandons quiz sessions nobody has touched in a while, which
// catches abandon beacons that never arrived.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/vytor/studyflash/internal/logger"
	"github.com/vytor/studyflash/internal/worker"
)

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	sweep     *worker.SweepIdleQuizzesJob
	every     time.Duration
	log       *logger.Logger
}

// New creates a scheduler that sweeps every interval for quizzes idle
// longer than idleFor. A zero value for either disables the sweep.
func New(quiz worker.QuizAbandoner, idleFor, every time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		sweep:     &worker.SweepIdleQuizzesJob{Quiz: quiz, IdleFor: idleFor},
		every:     every,
		log:       logger.Default().WithPrefix("scheduler"),
	}
}

func (s *Scheduler) Enabled() bool {
	return s.every > 0 && s.sweep.IdleFor > 0
}

// Start begins running all scheduled tasks. Jobs see ctx, so cancelling it
// aborts a sweep in progress.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.Enabled() {
		s.log.Info("idle quiz sweep disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.every).
		WaitForSchedule().
		SingletonMode().
		Do(func() {
			if err := s.SweepNow(ctx); err != nil {
				s.log.Error("idle quiz sweep failed: %v", err)
			}
		})
	if err != nil {
		return err
	}

	s.log.Info("idle quiz sweep every %v (idle after %v)", s.every, s.sweep.IdleFor)
	s.scheduler.StartAsync()
	return nil
}

// SweepNow runs the idle sweep once.
func (s *Scheduler) SweepNow(ctx context.Context) error {
	jobLog := s.log.WithField("job", s.sweep.Name())
	return s.sweep.Run(logger.NewContext(ctx, jobLog))
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
