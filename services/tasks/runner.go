// Package tasks runs background jobs in-process with bounded concurrency.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ocwc/oeweek2022/core"
)

const defaultJobTimeout = 5 * time.Minute

var ErrShuttingDown = errors.New("task runner is shutting down")

// Runner runs the enqueued jobs in the background, `size` at a time.
type Runner struct {
	logger     core.Logger
	sem        chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
	jobTimeout time.Duration

	mu      sync.Mutex
	closed  bool
	running sync.WaitGroup
}

func NewRunner(size int, logger core.Logger) *Runner {
	if size <= 0 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		logger:     logger,
		sem:        make(chan struct{}, size),
		ctx:        ctx,
		cancel:     cancel,
		jobTimeout: defaultJobTimeout,
	}
}

// Enqueue schedules `job` and returns immediately. Errors are logged.
// Jobs enqueued after Shutdown are dropped.
func (r *Runner) Enqueue(name string, job func(ctx context.Context) error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn(fmt.Sprintf("task %q dropped", name), ErrShuttingDown)
		return
	}
	r.running.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.running.Done()
		select {
		case r.sem <- struct{}{}:
		case <-r.ctx.Done():
			r.logger.Warn(fmt.Sprintf("task %q cancelled", name), r.ctx.Err())
			return
		}
		defer func() { <-r.sem }()
		r.run(name, job)
	}()
}

func (r *Runner) run(name string, job func(ctx context.Context) error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error(fmt.Sprintf("task %q panicked: %v", name, rec))
		}
	}()

	ctx, cancel := context.WithTimeout(r.ctx, r.jobTimeout)
	defer cancel()

	if err := job(ctx); err != nil {
		r.logger.Error(fmt.Sprintf("task %q failed: %v", name, err), err)
		return
	}
	r.logger.Debug(fmt.Sprintf("task %q done", name))
}

// Shutdown stops accepting jobs and waits for the running ones.
// When ctx expires first, the running jobs are cancelled.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}
