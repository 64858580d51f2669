package jobs

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Runner executes job workers on independent goroutines behind a bounded
// slot count, capping how many export hosts run at once. Submission never
// blocks: the goroutine is launched immediately and waits for a slot inside.
type Runner struct {
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger zerolog.Logger
}

// NewRunner creates a runner allowing up to maxConcurrent simultaneous
// workers.
func NewRunner(maxConcurrent int, logger zerolog.Logger) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With().Str("component", "runner").Logger(),
	}
}

// Go schedules fn as the worker for jobID and returns immediately.
func (r *Runner) Go(jobID string, fn func(ctx context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.sem.Acquire(r.ctx, 1); err != nil {
			r.logger.Warn().Err(err).Str("job_id", jobID).Msg("worker slot not acquired, runner shutting down")
			return
		}
		defer r.sem.Release(1)
		fn(r.ctx)
	}()
}

// Shutdown cancels queued workers and waits for running ones to return.
func (r *Runner) Shutdown() {
	r.cancel()
	r.wg.Wait()
}
