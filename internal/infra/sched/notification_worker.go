// File: internal/infra/sched/notification_worker.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-proxy-subscription/internal/domain/ports/adapter"
	"telegram-proxy-subscription/internal/domain/ports/repository"
	"telegram-proxy-subscription/internal/infra/metrics"
)

// NotificationWorker drains the notification queue and delivers each message.
// Jobs are deleted only after a confirmed send; a failed send keeps the job
// for the next tick.
type NotificationWorker struct {
	interval time.Duration
	batch    int
	queue    repository.NotificationQueue
	notifier adapter.Notifier
	log      *zerolog.Logger
}

func NewNotificationWorker(interval time.Duration, batch int, queue repository.NotificationQueue, notifier adapter.Notifier, logger *zerolog.Logger) *NotificationWorker {
	l := logger.With().Str("component", "NotificationWorker").Logger()
	return &NotificationWorker{
		interval: interval,
		batch:    batch,
		queue:    queue,
		notifier: notifier,
		log:      &l,
	}
}

func (w *NotificationWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting notification worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping notification worker")
			return ctx.Err()
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.log.Error().Err(err).Msg("notification tick failed")
			}
		}
	}
}

func (w *NotificationWorker) RunOnce(ctx context.Context) error {
	jobs, err := w.queue.Drain(ctx, w.batch)
	if err != nil {
		return err
	}
	metrics.SetQueueDepth("notification", len(jobs))

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.notifier.Send(ctx, job.Payload.UserID, job.Payload.Text); err != nil {
			metrics.IncNotification("failed")
			w.log.Warn().Int64("user_id", job.Payload.UserID).Err(err).Msg("send failed, will retry")
			continue
		}
		if err := w.queue.Delete(ctx, job.ID); err != nil {
			// the user may see the message twice; preferable to losing it
			w.log.Warn().Str("job_id", job.ID).Err(err).Msg("job delete failed after send")
			continue
		}
		metrics.IncNotification("sent")
	}
	return nil
}
