package mailing

import (
	"context"
	"fmt"
	"time"

	"github.com/ocwc/oeweek2022/core"
)

// Worker flushes the queue periodically, or right away when kicked.
type Worker struct {
	queue    *Queue
	interval time.Duration
	logger   core.Logger
}

func NewWorker(queue *Queue, interval time.Duration, logger core.Logger) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{queue: queue, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.queue.kick:
		}
		if _, err := w.queue.SendBatch(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error(fmt.Sprintf("sending email batch: %v", err), err)
		}
	}
}
