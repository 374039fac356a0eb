package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"rescueops/internal/clock"
	"rescueops/internal/logging"
)

// Default cadences for the console loop.
const (
	DefaultPositionInterval = 5 * time.Second
	DefaultAdvisoryInterval = 8 * time.Second
)

// ErrAlreadyRunning is returned by Start on a running Scheduler.
var ErrAlreadyRunning = errors.New("scheduler already running")

// Scheduler drives position ticks and advisory rotation on two independent
// cadences.
type Scheduler struct {
	console       *Console
	clock         clock.Clock
	positionEvery time.Duration
	advisoryEvery time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler returns a stopped Scheduler. Zero intervals use the defaults.
func NewScheduler(console *Console, clk clock.Clock, positionEvery, advisoryEvery time.Duration) *Scheduler {
	if clk == nil {
		clk = clock.Real()
	}
	if positionEvery <= 0 {
		positionEvery = DefaultPositionInterval
	}
	if advisoryEvery <= 0 {
		advisoryEvery = DefaultAdvisoryInterval
	}
	return &Scheduler{console: console, clock: clk, positionEvery: positionEvery, advisoryEvery: advisoryEvery}
}

// Start launches the loop. Tickers are registered before Start returns.
// The loop ends when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	pos := s.clock.NewTicker(s.positionEvery)
	adv := s.clock.NewTicker(s.advisoryEvery)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go func() {
		defer close(done)
		defer s.release(done)
		defer pos.Stop()
		defer adv.Stop()
		s.loop(ctx, pos, adv)
	}()
	return nil
}

// Stop cancels the loop and waits for it to exit. It is a no-op when the
// Scheduler is not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// release clears the run state when the loop ends on its own, so a
// cancelled parent context leaves the Scheduler restartable.
func (s *Scheduler) release(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == done {
		s.cancel()
		s.cancel, s.done = nil, nil
	}
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) loop(ctx context.Context, pos, adv *clock.Ticker) {
	log := logging.FromContext(ctx)
	log.Info("scheduler started", "position_interval", s.positionEvery, "advisory_interval", s.advisoryEvery)
	for {
		select {
		case <-pos.C:
			n := s.console.SimulateTick()
			log.Debug("position tick", "units", n)
		case <-adv.C:
			text := s.console.RotateAdvisory()
			log.Debug("advisory rotated", "advisory", text)
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return
		}
	}
}
