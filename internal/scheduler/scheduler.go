package scheduler

import (
	"context"
	"sync"
	"time"

	"stratwatch/internal/logger"
	"stratwatch/internal/metrics"
)

// Job is one periodically executed pipeline stage.
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler triggers jobs independently at fixed intervals. A run that
// exceeds its wall-clock ceiling is cancelled, logged as failed and
// retried at the next tick; jobs never overlap themselves.
type Scheduler struct {
	jobs []Job
}

func New(jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs}
}

// Start runs all jobs until ctx is cancelled. Each job fires once
// immediately, then on its interval.
func (s *Scheduler) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, job := range s.jobs {
		job := job
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runJob(ctx, job)
		}()
	}
	wg.Wait()
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	s.runOnce(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("job stopped", "job", job.Name)
			return
		case <-ticker.C:
			s.runOnce(ctx, job)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if job.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, job.Timeout)
	}
	defer cancel()

	started := time.Now()
	logger.Debug("job starting", "job", job.Name)

	if err := job.Run(runCtx); err != nil {
		logger.Error("job failed, will retry on next tick",
			"job", job.Name, "duration", time.Since(started), "error", err)
		metrics.Global.SetError(job.Name + ": " + err.Error())
		return
	}
	logger.Debug("job finished", "job", job.Name, "duration", time.Since(started))
}
