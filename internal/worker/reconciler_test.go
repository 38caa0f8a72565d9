package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingExpirer struct {
	calls atomic.Int32
	n     int
	err   error
}

func (e *countingExpirer) ReconcileExpired(_ context.Context, limit int) (int, error) {
	e.calls.Add(1)
	if limit != DefaultBatchSize {
		return 0, errors.New("unexpected batch size")
	}
	return e.n, e.err
}

type countingRetrier struct {
	calls atomic.Int32
	n     int
	err   error
}

func (r *countingRetrier) RetryPending(context.Context, int) (int, error) {
	r.calls.Add(1)
	return r.n, r.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOnce(t *testing.T) {
	exp := &countingExpirer{n: 3}
	ret := &countingRetrier{n: 2}
	r := NewReconciler(exp, ret, time.Minute, discard())

	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Missed: 3, Retried: 2}, res)
}

func TestRunOnce_KeepsGoingAfterFailure(t *testing.T) {
	exp := &countingExpirer{err: errors.New("db down")}
	ret := &countingRetrier{n: 1}
	r := NewReconciler(exp, ret, time.Minute, discard())

	res, err := r.RunOnce(context.Background())
	assert.ErrorContains(t, err, "db down")
	assert.Equal(t, 1, res.Retried)
	assert.Equal(t, int32(1), ret.calls.Load())
}

func TestRunOnce_WithoutPlagiarism(t *testing.T) {
	r := NewReconciler(&countingExpirer{n: 1}, nil, 0, discard())

	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Missed: 1}, res)
	assert.Equal(t, time.Minute, r.interval)
}

func TestRun_StopsOnCancel(t *testing.T) {
	exp := &countingExpirer{}
	r := NewReconciler(exp, &countingRetrier{}, 5*time.Millisecond, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return exp.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}
