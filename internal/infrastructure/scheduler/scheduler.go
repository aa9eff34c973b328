// Package scheduler runs the timer-driven background activities: the
// full-collection refresh plus stale-task migration, the presence heartbeat,
// and the aged-task pruning sweep. Jobs are independent of each other; a
// job never overlaps itself — a tick arriving while the previous run is
// still in flight is skipped.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/teamtrack/core/internal/infrastructure/logger"
)

// Job is one named periodic activity.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error

	running atomic.Bool
}

// Scheduler owns a set of jobs and their ticker goroutines.
type Scheduler struct {
	jobs   []*Job
	logger *logger.Logger
	wg     sync.WaitGroup

	runsTotal     *prometheus.CounterVec
	failuresTotal *prometheus.CounterVec
	skippedTotal  *prometheus.CounterVec
}

// New creates a scheduler. Job metrics are registered on the given registry
// when it is non-nil.
func New(appLogger *logger.Logger, registry *prometheus.Registry) *Scheduler {
	s := &Scheduler{
		logger: appLogger.WithComponent("scheduler"),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduler_job_runs_total",
				Help: "Total completed runs per background job",
			},
			[]string{"job"},
		),
		failuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduler_job_failures_total",
				Help: "Total failed runs per background job",
			},
			[]string{"job"},
		),
		skippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduler_job_skipped_total",
				Help: "Total ticks skipped because the previous run was still in flight",
			},
			[]string{"job"},
		),
	}

	if registry != nil {
		registry.MustRegister(s.runsTotal, s.failuresTotal, s.skippedTotal)
	}

	return s
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(name string, interval time.Duration, run func(ctx context.Context) error) {
	s.jobs = append(s.jobs, &Job{Name: name, Interval: interval, Run: run})
}

// Start launches one goroutine per job. Jobs stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
		s.logger.Info("Background job started", "job", job.Name, "interval", job.Interval.String())
	}
}

// Wait blocks until all job goroutines have exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// RunNow executes a registered job once, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name == name {
			return s.runOnce(ctx, job)
		}
	}
	return nil
}

func (s *Scheduler) loop(ctx context.Context, job *Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !job.running.CompareAndSwap(false, true) {
				s.skippedTotal.WithLabelValues(job.Name).Inc()
				s.logger.Warn("Job tick skipped, previous run still in flight", "job", job.Name)
				continue
			}
			err := s.run(ctx, job)
			job.running.Store(false)
			if err != nil && ctx.Err() == nil {
				s.logger.Error("Background job failed", "job", job.Name, "error", err)
			}
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job *Job) error {
	if !job.running.CompareAndSwap(false, true) {
		s.skippedTotal.WithLabelValues(job.Name).Inc()
		return nil
	}
	defer job.running.Store(false)
	return s.run(ctx, job)
}

func (s *Scheduler) run(ctx context.Context, job *Job) error {
	start := time.Now()
	err := job.Run(ctx)

	s.runsTotal.WithLabelValues(job.Name).Inc()
	if err != nil {
		s.failuresTotal.WithLabelValues(job.Name).Inc()
		return err
	}

	s.logger.Debugw("Background job completed",
		"job", job.Name,
		"duration_ms", float64(time.Since(start).Nanoseconds())/1e6,
	)
	return nil
}
