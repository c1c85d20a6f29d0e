// File: internal/infra/sched/expiry_scanner.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/repository"
	"telegram-proxy-subscription/internal/infra/metrics"
)

// ExpiryScanner deactivates subscriptions that ran out of time or traffic.
// Delete jobs are enqueued BEFORE the active flag is cleared: a crash in
// between re-enqueues duplicates next tick, which the deprovision worker
// tolerates, whereas the reverse order could leave remote accounts orphaned.
type ExpiryScanner struct {
	interval time.Duration
	subs     repository.SubscriptionRepository
	queue    repository.DeleteQueue
	log      *zerolog.Logger
}

func NewExpiryScanner(interval time.Duration, subs repository.SubscriptionRepository, queue repository.DeleteQueue, logger *zerolog.Logger) *ExpiryScanner {
	l := logger.With().Str("component", "ExpiryScanner").Logger()
	return &ExpiryScanner{
		interval: interval,
		subs:     subs,
		queue:    queue,
		log:      &l,
	}
}

func (w *ExpiryScanner) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting expiry scanner")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry scanner")
			return ctx.Err()
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.log.Error().Err(err).Msg("expiry scan failed")
			}
		}
	}
}

func (w *ExpiryScanner) RunOnce(ctx context.Context) error {
	now := time.Now()
	subs, err := w.subs.FindExpiredOrOverQuota(ctx, repository.NoTX, now)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.retire(ctx, sub, now); err != nil {
			w.log.Error().Str("sub_id", sub.ID.String()).Err(err).Msg("retire failed")
		}
	}
	return nil
}

func (w *ExpiryScanner) retire(ctx context.Context, sub *model.Subscription, now time.Time) error {
	for serverID := range sub.Servers {
		job := model.DeleteClientJob{AccountID: sub.ID.String(), ServerID: serverID}
		if err := w.queue.Enqueue(ctx, job); err != nil {
			// deactivating without the delete jobs would orphan the accounts
			return err
		}
	}
	if err := w.subs.Deactivate(ctx, repository.NoTX, sub.ID); err != nil {
		return err
	}

	cause := "over_quota"
	if sub.Expired(now) {
		cause = "expired"
	}
	metrics.IncSubscriptionDeactivated(cause)
	w.log.Info().Str("sub_id", sub.ID.String()).Str("cause", cause).Msg("subscription deactivated")
	return nil
}
