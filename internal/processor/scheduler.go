package processor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PassRunner runs one processing pass. Satisfied by *Processor.
type PassRunner interface {
	RunOnce(ctx context.Context) error
}

// Scheduler drives passes on a fixed interval. Passes run strictly
// sequentially on one goroutine, so a new tick never starts while the
// previous batch is still draining. The scheduler owns its lifecycle and is
// injected where needed; tests call RunOnce on the runner directly instead
// of waiting on real time.
type Scheduler struct {
	runner   PassRunner
	interval time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	started bool
}

// NewScheduler returns a stopped Scheduler.
func NewScheduler(runner PassRunner, interval time.Duration, log zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		log:      log,
	}
}

// Start launches the polling loop. Calling Start on a running scheduler is
// a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(ctx, s.stop, s.done)
	s.log.Info().Dur("interval", s.interval).Msg("transaction processor started")
}

func (s *Scheduler) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if err := s.runner.RunOnce(ctx); err != nil {
				// Bookkeeping failure; record state may be ahead of the
				// audit log. Surface loudly and keep polling.
				s.log.Error().Err(err).Msg("processing pass aborted")
			}
		}
	}
}

// Stop halts the loop and waits for any in-flight pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	stop, done := s.stop, s.done
	s.started = false
	s.mu.Unlock()

	close(stop)
	<-done
	s.log.Info().Msg("transaction processor stopped")
}
