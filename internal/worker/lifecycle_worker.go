package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/election-service/internal/service"
)

// LifecycleWorker drives the lifecycle sweeps on a timer. Multiple
// worker instances may run across a cluster; the sweeps themselves are
// concurrency-safe, so the worker needs no coordination.
type LifecycleWorker struct {
	lifecycle *service.LifecycleService
	interval  time.Duration
	logger    *zap.Logger
}

// NewLifecycleWorker builds the worker.
func NewLifecycleWorker(lifecycle *service.LifecycleService, interval time.Duration, logger *zap.Logger) *LifecycleWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &LifecycleWorker{lifecycle: lifecycle, interval: interval, logger: logger}
}

// Start runs the sweep loop until the context is cancelled. One sweep
// runs immediately on startup so restarts never delay due transitions.
func (w *LifecycleWorker) Start(ctx context.Context) {
	go func() {
		w.runOnce(ctx)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("lifecycle worker stopped")
				return
			case <-ticker.C:
				w.runOnce(ctx)
			}
		}
	}()
}

func (w *LifecycleWorker) runOnce(ctx context.Context) {
	if activated, err := w.lifecycle.RunActivationSweep(ctx); err != nil {
		w.logger.Error("activation sweep failed", zap.Error(err))
	} else if len(activated) > 0 {
		w.logger.Info("activation sweep completed", zap.Int("elections", len(activated)))
	}

	if closed, err := w.lifecycle.RunClosureSweep(ctx); err != nil {
		w.logger.Error("closure sweep failed", zap.Error(err))
	} else if len(closed) > 0 {
		w.logger.Info("closure sweep completed", zap.Int("elections", len(closed)))
	}
}
