package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Sweeper drives the recurring-message sweep on a fixed cadence. One sweep
// runs immediately on Start, then once per interval until Stop.
type Sweeper struct {
	interval time.Duration
	sweepFn  func(context.Context)

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(interval time.Duration, sweepFn func(context.Context)) (*Sweeper, error) {
	if interval <= 0 {
		return nil, errors.New("interval must be > 0")
	}
	if sweepFn == nil {
		return nil, errors.New("sweepFn must not be nil")
	}
	return &Sweeper{
		interval: interval,
		sweepFn:  sweepFn,
		done:     make(chan struct{}),
	}, nil
}

func (s *Sweeper) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		slog.Info("sweeper started", "interval", s.interval.String())

		s.safeSweep(ctx)

		for {
			select {
			case <-ctx.Done():
				slog.Info("sweeper stopping")
				return
			case <-ticker.C:
				s.safeSweep(ctx)
			}
		}
	}()

	return true
}

func (s *Sweeper) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return false
	}

	s.cancel()
	<-s.done
	s.running.Store(false)

	slog.Info("sweeper stopped")
	return true
}

func (s *Sweeper) IsRunning() bool {
	return s.running.Load()
}

func (s *Sweeper) safeSweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("sweep panic recovered", "panic", r)
		}
	}()

	start := time.Now()
	s.sweepFn(ctx)
	slog.Info("sweep completed", "duration_ms", time.Since(start).Milliseconds())
}
