package shutdown

import (
	"context"
	"sync"

	"github.com/submgr/billing/internal/domain/ports"
)

// JobTracker keeps count of running background jobs so shutdown can wait for
// the current billing or reminder run instead of cutting it off mid-write.
type JobTracker struct {
	wg         sync.WaitGroup
	shutdownCh chan struct{}
	logger     ports.Logger
}

// NewJobTracker creates a job tracker
func NewJobTracker(logger ports.Logger) *JobTracker {
	return &JobTracker{
		shutdownCh: make(chan struct{}),
		logger:     logger,
	}
}

// Begin marks one job as running. It returns false once shutdown has started,
// in which case the job must not run.
func (t *JobTracker) Begin() bool {
	select {
	case <-t.shutdownCh:
		return false
	default:
		t.wg.Add(1)
		return true
	}
}

// End marks one job as finished
func (t *JobTracker) End() {
	t.wg.Done()
}

// Run executes fn as a tracked job unless shutdown has started
func (t *JobTracker) Run(fn func()) bool {
	if !t.Begin() {
		return false
	}
	defer t.End()
	fn()
	return true
}

// Shutdown rejects new jobs and waits for running ones to finish or for the
// context to expire
func (t *JobTracker) Shutdown(ctx context.Context) error {
	close(t.shutdownCh)

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("all background jobs finished")
		return nil
	case <-ctx.Done():
		t.logger.Warn("shutdown timeout with jobs still running")
		return ctx.Err()
	}
}
