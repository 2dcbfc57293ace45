package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-kit/servicedesk/internal/config"
	"github.com/helpdesk-kit/servicedesk/internal/events"
	"github.com/helpdesk-kit/servicedesk/internal/repository"
)

// NotificationWorker drains the notification outbox: it polls for due rows,
// hands each event to the dispatcher, and retries failures with a linear
// backoff up to the attempt cap. Rows over the cap are left in place for
// inspection.
type NotificationWorker struct {
	outbox   repository.OutboxRepository
	dispatch events.Handler
	cfg      config.WorkerConfig
	logger   *zap.Logger
}

// NewNotificationWorker constructs the worker.
func NewNotificationWorker(outbox repository.OutboxRepository, dispatch events.Handler, cfg config.WorkerConfig, logger *zap.Logger) *NotificationWorker {
	return &NotificationWorker{outbox: outbox, dispatch: dispatch, cfg: cfg, logger: logger}
}

// Run polls until the context is cancelled. Intended to run in its own goroutine.
func (w *NotificationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval())
	defer ticker.Stop()

	w.logger.Info("notification worker started",
		zap.Duration("poll_interval", w.cfg.PollInterval()),
		zap.Int("max_attempts", w.cfg.MaxAttempts))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("notification worker stopped")
			return
		case <-ticker.C:
			w.DrainOnce(ctx)
		}
	}
}

// DrainOnce processes one batch of due outbox rows.
func (w *NotificationWorker) DrainOnce(ctx context.Context) {
	rows, err := w.outbox.ListDue(ctx, time.Now(), w.cfg.MaxAttempts, w.cfg.BatchSize)
	if err != nil {
		w.logger.Error("outbox poll failed", zap.Error(err))
		return
	}

	for _, row := range rows {
		if err := w.dispatch(ctx, row.Payload); err != nil {
			next := time.Now().Add(w.cfg.Backoff() * time.Duration(row.Attempts+1))
			w.logger.Warn("event dispatch failed",
				zap.String("event_id", row.EventID),
				zap.Int("attempts", row.Attempts+1),
				zap.Time("next_attempt", next),
				zap.Error(err))
			if err := w.outbox.MarkFailed(ctx, row.ID, next); err != nil {
				w.logger.Error("outbox mark failed errored", zap.Int64("row_id", row.ID), zap.Error(err))
			}
			continue
		}
		if err := w.outbox.MarkDispatched(ctx, row.ID); err != nil {
			w.logger.Error("outbox mark dispatched errored", zap.Int64("row_id", row.ID), zap.Error(err))
		}
	}
}
