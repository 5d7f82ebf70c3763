package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/transform"
)

type CycleRunner interface {
	RunCycle(ctx context.Context, mode transform.Mode) (CycleReport, error)
}

// Scheduler runs one cycle per interval until its stop token fires. Cycles never
// overlap and a cycle in flight is allowed to finish.
type Scheduler struct {
	runner   CycleRunner
	interval time.Duration
	stop     *StopToken
	trigger  chan struct{}
	logger   zerolog.Logger

	mu      sync.Mutex
	last    *CycleReport
	running bool
}

func NewScheduler(runner CycleRunner, interval time.Duration, stop *StopToken, logger zerolog.Logger) *Scheduler {
	if stop == nil {
		stop = NewStopToken()
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		stop:     stop,
		trigger:  make(chan struct{}, 1),
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
}

// Trigger requests an immediate cycle. It returns false when one is already requested.
func (s *Scheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Scheduler) Stop() {
	s.stop.Stop()
}

// Last returns the most recent cycle report.
func (s *Scheduler) Last() (CycleReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return CycleReport{}, false
	}
	return *s.last, true
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Run starts with a cycle, then waits for the interval or a trigger. It returns
// nil once stopped and ctx.Err() when ctx ends first.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive")
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")
	for {
		if s.stop.Stopped() {
			s.logger.Info().Msg("scheduler stopped")
			return nil
		}
		s.cycle(ctx)

		select {
		case <-s.stop.Done():
			s.logger.Info().Msg("scheduler stopped")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-s.trigger:
			s.logger.Info().Msg("cycle triggered")
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	report, err := s.safeRun(context.WithoutCancel(ctx))
	if err != nil {
		report.Error = err.Error()
	}

	s.mu.Lock()
	s.running = false
	s.last = &report
	s.mu.Unlock()
}

func (s *Scheduler) safeRun(ctx context.Context) (report CycleReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("pipeline cycle panicked")
			err = fmt.Errorf("cycle panicked: %v", r)
		}
	}()
	return s.runner.RunCycle(ctx, "")
}
