package retention

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/edutok-api/internal/domain"
	"github.com/jonboulle/clockwork"
)

var ErrAlreadyStarted = errors.New("cleanup scheduler already started")

// Runner performs one cleanup pass.
type Runner interface {
	Run(ctx context.Context) domain.CleanupStats
}

// Scheduler runs a Runner immediately on Start and then every interval. The
// schedule is not persisted: a restart runs again right away.
type Scheduler struct {
	runner   Runner
	clock    clockwork.Clock
	interval time.Duration

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
}

func NewScheduler(r Runner, clock clockwork.Clock, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultWindow
	}
	return &Scheduler{runner: r, clock: clock, interval: interval}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	ticker := s.clock.NewTicker(s.interval)
	go s.loop(ctx, ticker, s.stop, s.done)
	slog.Info("cleanup scheduler started", "interval", s.interval)
	return nil
}

// Stop halts the timer and waits for an in-flight pass to finish. A stopped
// scheduler can be started again.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop = nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
}

func (s *Scheduler) loop(ctx context.Context, ticker clockwork.Ticker, stop, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	s.runner.Run(ctx)
	for {
		select {
		case <-ticker.Chan():
			s.runner.Run(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}
