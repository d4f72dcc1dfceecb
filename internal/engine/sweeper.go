package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"reclaim/internal/notification"
)

// ReconcilePendingMatches retries the side effects of items whose matching or
// subscription pass failed after commit. The flag does not record which
// branch failed, so every branch is retried; all of them are idempotent, and
// matching no-ops on items without a fingerprint. Run by the sweeper; safe to
// call concurrently with foreground traffic.
func (e *Engine) ReconcilePendingMatches(ctx context.Context) (int, error) {
	pending, err := e.items.ListMatchPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list match-pending items: %w", err)
	}

	reconciled := 0
	for _, it := range pending {
		if err := ctx.Err(); err != nil {
			return reconciled, err
		}
		if err := e.runSideEffects(ctx, it, true, nil); err != nil {
			e.logger.WarnContext(ctx, "reconciliation attempt failed",
				"item_id", it.ID.String(), "error", err)
			continue
		}
		if err := e.items.SetMatchPending(ctx, it.ID, false); err != nil {
			e.logger.WarnContext(ctx, "failed to clear match-pending flag",
				"item_id", it.ID.String(), "error", err)
			continue
		}
		e.metrics.IncrementReconciled()
		reconciled++
	}
	return reconciled, nil
}

// Sweeper periodically re-offers undelivered notifications and re-runs the
// side effects of match-pending items.
type Sweeper struct {
	engine     *Engine
	dispatcher *notification.Dispatcher
	interval   time.Duration
	window     time.Duration
	logger     *slog.Logger
}

func NewSweeper(engine *Engine, dispatcher *notification.Dispatcher, interval, window time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		engine:     engine,
		dispatcher: dispatcher,
		interval:   interval,
		window:     window,
		logger:     logger,
	}
}

// Run loops until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	redelivered, err := s.dispatcher.RedeliverPending(ctx, s.window)
	if err != nil {
		s.logger.ErrorContext(ctx, "notification redelivery sweep failed", "error", err)
	}
	reconciled, err := s.engine.ReconcilePendingMatches(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "match reconciliation sweep failed", "error", err)
	}
	if redelivered > 0 || reconciled > 0 {
		s.logger.InfoContext(ctx, "sweep completed",
			"redelivered", redelivered, "reconciled", reconciled)
	}
}
