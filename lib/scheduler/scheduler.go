// Package scheduler runs named jobs on fixed intervals. One goroutine
// per job, and a job never overlaps itself: a tick that fires while
// the previous run is still going is skipped, not queued.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lib/scheduler")

type Job struct {
	Name     string
	Interval time.Duration
	Fn       func(ctx context.Context) error

	running atomic.Bool
}

type Scheduler struct {
	jobs []*Job
	wg   sync.WaitGroup
}

func New() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) Register(name string, interval time.Duration, fn func(ctx context.Context) error) {
	s.jobs = append(s.jobs, &Job{Name: name, Interval: interval, Fn: fn})
}

// Start launches every registered job. Each job runs once immediately,
// then on its interval, until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go func(job *Job) {
			defer s.wg.Done()
			s.loop(ctx, job)
		}(job)
	}
}

// Wait blocks until every job loop has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job *Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	s.runOnce(ctx, job)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, job)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job *Job) {
	if !job.running.CompareAndSwap(false, true) {
		slog.WarnContext(ctx, "previous run still in progress, skipping tick", "job", job.Name)
		return
	}
	defer job.running.Store(false)

	ctx, span := tracer.Start(ctx, "scheduler:"+job.Name)
	defer span.End()

	start := time.Now()
	if err := job.Fn(ctx); err != nil {
		slog.ErrorContext(ctx, "job failed", "job", job.Name, "err", err, "elapsed", time.Since(start))
		return
	}
	slog.InfoContext(ctx, "job finished", "job", job.Name, "elapsed", time.Since(start))
}
