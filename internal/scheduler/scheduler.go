// Package scheduler runs each tier's periodic background task
// (e.g. the persistent store's flush) on its own goroutine with cooperative cancellation,
// the Go analogue of the Rust original's tokio-based serve_background.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Service is implemented by every component with periodic background work:
// both store variants and both derivative-cache variants.
type Service interface {
	// BackgroundPeriod returns how often Background should run. A
	// non-positive value disables scheduling for this service.
	BackgroundPeriod() time.Duration
	// Background performs the periodic task (e.g. a durable flush).
	Background(ctx context.Context)
	// Stop is invoked once on graceful shutdown, after cancellation has been
	// broadcast, so implementations can perform a final synchronous flush.
	Stop(ctx context.Context) error
}

// Scheduler owns one goroutine per registered Service.
type Scheduler struct {
	logger   *zap.Logger
	services []Service
	cancel   context.CancelFunc
	ctx      context.Context
	wg       sync.WaitGroup
}

// New creates a Scheduler that will run every service in services.
func New(logger *zap.Logger, services ...Service) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger:   logger,
		services: services,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start spawns one goroutine per service. Each goroutine waits for its
// period to elapse or for shutdown, whichever comes first.
func (s *Scheduler) Start() {
	for _, svc := range s.services {
		period := svc.BackgroundPeriod()
		if period <= 0 {
			continue
		}
		s.wg.Add(1)
		go s.run(svc, period)
	}
}

func (s *Scheduler) run(svc Service, period time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			svc.Background(s.ctx)
		case <-s.ctx.Done():
			return
		}
	}
}

// Shutdown broadcasts cancellation, waits for all background goroutines to
// exit, and then invokes every service's Stop in sequence.
func (s *Scheduler) Shutdown(ctx context.Context) {
	s.cancel()
	s.wg.Wait()

	for _, svc := range s.services {
		if err := svc.Stop(ctx); err != nil {
			s.logger.Warn("background service stop failed", zap.Error(err))
		}
	}
}
