package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/MagnunAVF/affiliate-tracker/internal/logger"
	"github.com/MagnunAVF/affiliate-tracker/internal/metrics"
)

// Detacher runs work that must outlive the request that scheduled it.
// Tasks are spawned and never joined by the caller; each has its own
// deadline and error boundary. Wait is only for process shutdown.
type Detacher struct {
	wg      sync.WaitGroup
	timeout time.Duration
}

func NewDetacher(timeout time.Duration) *Detacher {
	return &Detacher{timeout: timeout}
}

// Go schedules task. ctx supplies values (request id, logger) but not
// cancellation: a closed client connection does not stop the task.
func (d *Detacher) Go(ctx context.Context, name string, task func(ctx context.Context) error) {
	taskCtx := context.WithoutCancel(ctx)
	log := logger.FromContext(ctx).With("task", name)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		start := time.Now()
		defer func() {
			metrics.DetachedTaskDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
			if r := recover(); r != nil {
				log.Error("detached task panicked", "panic", r)
			}
		}()

		runCtx := taskCtx
		if d.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(taskCtx, d.timeout)
			defer cancel()
		}

		if err := task(runCtx); err != nil {
			log.Error("detached task failed", "err", err)
		}
	}()
}

// Wait blocks until every scheduled task has finished or ctx is done.
func (d *Detacher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
