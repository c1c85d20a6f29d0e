// File: internal/infra/sched/metering_worker.go
package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/adapter"
	"telegram-proxy-subscription/internal/domain/ports/repository"
	"telegram-proxy-subscription/internal/infra/metrics"
	"telegram-proxy-subscription/internal/usecase"
)

// quotaWarnFraction is the share of the traffic quota that triggers the
// one-time low-balance notification.
const quotaWarnFraction = 0.9

// MeteringWorker reads traffic counters from every server, attributes them to
// the owning subscriptions and resets the remote counters. Counters are reset
// only after the whole server attributed cleanly; a failed reset means the
// same traffic is counted again next tick, which is bounded and accepted.
type MeteringWorker struct {
	interval time.Duration
	subs     repository.SubscriptionRepository
	servers  repository.ServerRepository
	panel    adapter.PanelClient
	notify   usecase.NotificationUseCase
	log      *zerolog.Logger
}

func NewMeteringWorker(interval time.Duration, subs repository.SubscriptionRepository, servers repository.ServerRepository, panel adapter.PanelClient, notify usecase.NotificationUseCase, logger *zerolog.Logger) *MeteringWorker {
	l := logger.With().Str("component", "MeteringWorker").Logger()
	return &MeteringWorker{
		interval: interval,
		subs:     subs,
		servers:  servers,
		panel:    panel,
		notify:   notify,
		log:      &l,
	}
}

func (w *MeteringWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting metering worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping metering worker")
			return ctx.Err()
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.log.Error().Err(err).Msg("metering tick failed")
			}
		}
	}
}

func (w *MeteringWorker) RunOnce(ctx context.Context) error {
	servers, err := w.servers.ListAll(ctx, repository.NoTX)
	if err != nil {
		return err
	}
	for _, server := range servers {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.meterServer(ctx, server)
	}
	return nil
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrPanelAuth):
		return "auth"
	case errors.Is(err, domain.ErrPanelBadPayload):
		return "bad_payload"
	default:
		return "unreachable"
	}
}

func (w *MeteringWorker) meterServer(ctx context.Context, server *model.Server) {
	counters, err := w.panel.ListClients(ctx, server)
	if err != nil {
		metrics.IncServerSkipped(skipReason(err))
		w.log.Warn().Str("server_id", server.ID).Err(err).Msg("listClients failed, server skipped")
		return
	}

	clean := true
	for _, c := range counters {
		delta := model.BytesToGB(c.Up + c.Down)
		if delta <= 0 {
			continue
		}
		res, err := w.subs.IncrementUsage(ctx, repository.NoTX, server.ID, c.Email, delta, quotaWarnFraction)
		if errors.Is(err, domain.ErrNotFound) {
			// counter for an account no active subscription owns; dropped
			w.log.Debug().Str("server_id", server.ID).Str("email", c.Email).Msg("unmatched traffic counter")
			continue
		}
		if err != nil {
			clean = false
			w.log.Error().Str("server_id", server.ID).Str("email", c.Email).Err(err).Msg("usage increment failed")
			continue
		}
		metrics.AddMeteredGB(delta)

		if res.CrossedQuotaWarn {
			metrics.IncQuotaWarning()
			text := fmt.Sprintf("⚠️ Subscription *%s* used %.1f of %.1f GB. Consider renewing before it runs out.", res.Name, res.After, res.Traffic)
			if err := w.notify.Enqueue(ctx, res.UserID, text); err != nil {
				w.log.Error().Int64("user_id", res.UserID).Err(err).Msg("quota warning enqueue failed")
			}
		}
	}

	// resetting after a partial attribution would drop the failed counters
	if !clean {
		return
	}
	if err := w.panel.ResetCounters(ctx, server); err != nil {
		metrics.IncCounterResetFailure()
		w.log.Warn().Str("server_id", server.ID).Err(err).Msg("counter reset failed, traffic over-counted next tick")
	}
}
