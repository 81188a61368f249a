// Package scheduler runs the periodic jobs: collections fanning out over
// every active maintenance, plus the global sweeps. Each (job, maintenance)
// pair never overlaps itself; a tick arriving while the previous one still
// runs is skipped with a warning.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/netauto/maintcheck/pkg/metrics"
	"github.com/netauto/maintcheck/pkg/store"
)

// JobFunc is one unit of periodic work. Global jobs receive an empty
// maintenance id.
type JobFunc func(ctx context.Context, maintenanceID string) error

type job struct {
	name           string
	interval       time.Duration
	perMaintenance bool
	run            JobFunc
}

// Scheduler owns every periodic job and their non-overlap bookkeeping.
type Scheduler struct {
	store   *store.Store
	logger  *zap.Logger
	metrics *metrics.Metrics
	clock   clock.Clock
	drain   time.Duration

	jobs []job

	mu      sync.Mutex
	running map[string]bool

	wg         sync.WaitGroup
	quit       chan struct{}
	stopOnce   sync.Once
	cancelJobs context.CancelFunc
}

func New(st *store.Store, logger *zap.Logger, m *metrics.Metrics, clk clock.Clock, drain time.Duration) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	if drain <= 0 {
		drain = 30 * time.Second
	}
	return &Scheduler{
		store:   st,
		logger:  logger,
		metrics: m,
		clock:   clk,
		drain:   drain,
		running: make(map[string]bool),
	}
}

// AddJob registers a collection-style job that fires for every active
// maintenance found at tick time.
func (s *Scheduler) AddJob(name string, interval time.Duration, fn JobFunc) {
	s.jobs = append(s.jobs, job{name: name, interval: interval, perMaintenance: true, run: fn})
}

// AddGlobalJob registers a job that fires once per tick, maintenance-agnostic.
func (s *Scheduler) AddGlobalJob(name string, interval time.Duration, fn JobFunc) {
	s.jobs = append(s.jobs, job{name: name, interval: interval, run: fn})
}

// Start launches every registered job. Tickers are created here, before the
// loops spawn, so a mock clock advanced right after Start still fires them.
// The job context is detached from ctx's cancellation: Stop owns when
// in-flight ticks get cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.quit = make(chan struct{})
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelJobs = cancel
	for _, j := range s.jobs {
		j := j
		ticker := s.clock.Ticker(j.interval)
		s.wg.Add(1)
		go s.loop(ctx, jobCtx, j, ticker)
	}
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

func (s *Scheduler) loop(ctx, jobCtx context.Context, j job, ticker *clock.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			return
		case <-ticker.C:
			s.fire(jobCtx, j)
		}
	}
}

// fire dispatches one tick. Per-maintenance jobs resolve the active set at
// fire time, so a newly activated maintenance is collected on the next tick
// without a restart.
func (s *Scheduler) fire(ctx context.Context, j job) {
	if !j.perMaintenance {
		s.spawn(ctx, j, "")
		return
	}
	maints, err := s.store.ListActiveMaintenances(ctx)
	if err != nil {
		s.logger.Error("list active maintenances failed",
			zap.String("job", j.name), zap.Error(err))
		return
	}
	for _, m := range maints {
		s.spawn(ctx, j, m.ID)
	}
}

func (s *Scheduler) spawn(ctx context.Context, j job, maintenanceID string) {
	key := j.name + "|" + maintenanceID
	s.mu.Lock()
	if s.running[key] {
		s.mu.Unlock()
		s.metrics.TicksSkipped.WithLabelValues(j.name).Inc()
		s.logger.Warn("tick skipped, previous run still in progress",
			zap.String("job", j.name),
			zap.String("maintenance_id", maintenanceID),
		)
		return
	}
	s.running[key] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.running, key)
			s.mu.Unlock()
		}()
		if err := j.run(ctx, maintenanceID); err != nil {
			s.logger.Error("job failed",
				zap.String("job", j.name),
				zap.String("maintenance_id", maintenanceID),
				zap.Error(err),
			)
		}
	}()
}

// Stop suppresses new ticks immediately, gives in-flight ticks the drain
// window to finish on their own, and only then cancels their contexts.
func (s *Scheduler) Stop() {
	if s.quit == nil {
		return
	}
	s.stopOnce.Do(func() { close(s.quit) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("scheduler drained")
	case <-time.After(s.drain):
		s.logger.Warn("scheduler drain window elapsed, cancelling in-flight ticks")
	}
	if s.cancelJobs != nil {
		s.cancelJobs()
	}
}
