package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reconciler repairs drifted department counters.
type Reconciler interface {
	ReconcileNumAgents(ctx context.Context) ([]string, error)
}

// ReconcileWorker periodically recounts department agents.
type ReconcileWorker struct {
	reconciler Reconciler
	interval   time.Duration
	logger     *zap.Logger
}

// NewReconcileWorker builds the worker. A non-positive interval disables it.
func NewReconcileWorker(reconciler Reconciler, interval time.Duration, logger *zap.Logger) *ReconcileWorker {
	return &ReconcileWorker{reconciler: reconciler, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, reconciling once at start and then on
// every tick.
func (w *ReconcileWorker) Run(ctx context.Context) {
	if w.interval <= 0 {
		w.logger.Info("reconcile worker disabled")
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *ReconcileWorker) runOnce(ctx context.Context) {
	corrected, err := w.reconciler.ReconcileNumAgents(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("reconcile failed", zap.Error(err))
		}
		return
	}
	if len(corrected) > 0 {
		w.logger.Info("reconcile corrected departments", zap.Int("count", len(corrected)))
	}
}
