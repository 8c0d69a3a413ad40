package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingReconciler struct {
	calls atomic.Int32
	err   error
}

func (r *countingReconciler) ReconcileNumAgents(context.Context) ([]string, error) {
	r.calls.Add(1)
	return []string{"d1"}, r.err
}

func TestReconcileWorkerRunsUntilCancelled(t *testing.T) {
	rec := &countingReconciler{}
	w := NewReconcileWorker(rec, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return rec.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.Eventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestReconcileWorkerDisabled(t *testing.T) {
	rec := &countingReconciler{}
	NewReconcileWorker(rec, 0, zap.NewNop()).Run(context.Background())
	assert.Zero(t, rec.calls.Load())
}

func TestReconcileWorkerSurvivesErrors(t *testing.T) {
	rec := &countingReconciler{err: errors.New("db down")}
	w := NewReconcileWorker(rec, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w.Run(ctx)
	assert.Greater(t, rec.calls.Load(), int32(1))
}
