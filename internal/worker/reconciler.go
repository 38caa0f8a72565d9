// Package worker runs the periodic sweeps that close out attempts nobody
// came back to and retry plagiarism analyses left pending.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const DefaultBatchSize = 200

type Expirer interface {
	ReconcileExpired(ctx context.Context, limit int) (int, error)
}

type PendingRetrier interface {
	RetryPending(ctx context.Context, limit int) (int, error)
}

type Result struct {
	Missed  int
	Retried int
}

type Reconciler struct {
	attempts   Expirer
	plagiarism PendingRetrier
	interval   time.Duration
	batch      int
	logger     *slog.Logger
}

func NewReconciler(attempts Expirer, plagiarism PendingRetrier, interval time.Duration, logger *slog.Logger) *Reconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reconciler{
		attempts:   attempts,
		plagiarism: plagiarism,
		interval:   interval,
		batch:      DefaultBatchSize,
		logger:     logger,
	}
}

// RunOnce performs a single sweep. Both steps run even when the first fails.
func (r *Reconciler) RunOnce(ctx context.Context) (Result, error) {
	var res Result

	missed, errMissed := r.attempts.ReconcileExpired(ctx, r.batch)
	res.Missed = missed
	if errMissed != nil {
		r.logger.ErrorContext(ctx, "Failed to reconcile expired attempts", "error", errMissed)
	}

	var errRetry error
	if r.plagiarism != nil {
		res.Retried, errRetry = r.plagiarism.RetryPending(ctx, r.batch)
		if errRetry != nil {
			r.logger.ErrorContext(ctx, "Failed to retry pending plagiarism analyses", "error", errRetry)
		}
	}

	if res.Missed > 0 || res.Retried > 0 {
		r.logger.InfoContext(ctx, "Reconcile sweep finished", "missed", res.Missed, "retried", res.Retried)
	}
	return res, errors.Join(errMissed, errRetry)
}

// Run sweeps immediately, then on every tick until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	r.logger.Info("Starting reconciler", "interval", r.interval.String())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		_, _ = r.RunOnce(ctx)

		select {
		case <-ctx.Done():
			r.logger.Info("Reconciler stopped")
			return
		case <-ticker.C:
		}
	}
}
