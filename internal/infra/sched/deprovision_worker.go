// File: internal/infra/sched/deprovision_worker.go
package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/ports/adapter"
	"telegram-proxy-subscription/internal/domain/ports/repository"
	"telegram-proxy-subscription/internal/infra/metrics"
)

// DeprovisionWorker drains the delete queue and removes client accounts from
// their panels one call at a time, with a pacing delay between calls to the
// same server. A remote "client not found" counts as success.
type DeprovisionWorker struct {
	interval time.Duration
	pacing   time.Duration
	batch    int
	queue    repository.DeleteQueue
	servers  repository.ServerRepository
	panel    adapter.PanelClient
	log      *zerolog.Logger
}

func NewDeprovisionWorker(interval, pacing time.Duration, batch int, queue repository.DeleteQueue, servers repository.ServerRepository, panel adapter.PanelClient, logger *zerolog.Logger) *DeprovisionWorker {
	l := logger.With().Str("component", "DeprovisionWorker").Logger()
	return &DeprovisionWorker{
		interval: interval,
		pacing:   pacing,
		batch:    batch,
		queue:    queue,
		servers:  servers,
		panel:    panel,
		log:      &l,
	}
}

func (w *DeprovisionWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting deprovision worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping deprovision worker")
			return ctx.Err()
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.log.Error().Err(err).Msg("deprovision tick failed")
			}
		}
	}
}

func (w *DeprovisionWorker) RunOnce(ctx context.Context) error {
	jobs, err := w.queue.Drain(ctx, w.batch)
	if err != nil {
		return err
	}
	metrics.SetQueueDepth("delete", len(jobs))

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		server, err := w.servers.FindByID(ctx, repository.NoTX, job.Payload.ServerID)
		if err != nil {
			w.log.Warn().Str("server_id", job.Payload.ServerID).Err(err).Msg("unknown server in delete queue")
			continue
		}
		err = w.panel.RemoveClient(ctx, server, job.Payload.AccountID)
		if err != nil && !errors.Is(err, domain.ErrClientNotFound) {
			metrics.IncJob("delete", "retry")
			w.log.Warn().Str("server_id", server.ID).Str("account_id", job.Payload.AccountID).Err(err).Msg("removeClient failed, will retry")
			continue
		}
		if err := w.queue.Delete(ctx, job.ID); err != nil {
			w.log.Warn().Str("job_id", job.ID).Err(err).Msg("job delete failed after removeClient")
			continue
		}
		metrics.IncJob("delete", "done")

		if w.pacing > 0 && i < len(jobs)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.pacing):
			}
		}
	}
	return nil
}
