package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/seethefuture888888-creator/kangbo/pkg/logger"
)

// ErrAlreadyStarted is returned by Start on a running scheduler.
var ErrAlreadyStarted = errors.New("scheduler already started")

// Job is the unit of work run on every tick.
type Job func(ctx context.Context) error

// Scheduler runs a job once at start and then on a fixed interval until stopped.
type Scheduler struct {
	name     string
	job      Job
	interval time.Duration
	log      *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(name string, job Job, interval time.Duration, l *logger.Logger) *Scheduler {
	if l == nil {
		l = logger.Nop()
	}
	return &Scheduler{name: name, job: job, interval: interval, log: l}
}

// Start launches the loop. The first run starts immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)

	s.log.Info("scheduler started",
		logger.String("job", s.name),
		logger.Duration("interval_ms", s.interval),
	)
	return nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	_ = s.RunNow(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped", logger.String("job", s.name))
			return
		case <-ticker.C:
			_ = s.RunNow(ctx)
		}
	}
}

// RunNow runs the job synchronously. Failures are logged; the schedule continues.
func (s *Scheduler) RunNow(ctx context.Context) error {
	start := time.Now()
	err := s.job(ctx)
	if err != nil {
		s.log.Error("scheduled run failed",
			logger.String("job", s.name),
			logger.Duration("elapsed_ms", time.Since(start)),
			logger.Error(err),
		)
		return err
	}
	s.log.Info("scheduled run complete",
		logger.String("job", s.name),
		logger.Duration("elapsed_ms", time.Since(start)),
	)
	return nil
}

// Stop cancels the loop and waits for an in-progress run to observe cancellation.
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
