// File: internal/infra/sched/provision_worker.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/adapter"
	"telegram-proxy-subscription/internal/domain/ports/repository"
	"telegram-proxy-subscription/internal/infra/metrics"
)

// ProvisionWorker drains the add queue and pushes client accounts to their
// panels in one batch per server. Jobs are deleted only after the batch
// succeeded; a failed server keeps its jobs for the next tick.
type ProvisionWorker struct {
	interval time.Duration
	batch    int
	queue    repository.AddQueue
	servers  repository.ServerRepository
	panel    adapter.PanelClient
	log      *zerolog.Logger
}

func NewProvisionWorker(interval time.Duration, batch int, queue repository.AddQueue, servers repository.ServerRepository, panel adapter.PanelClient, logger *zerolog.Logger) *ProvisionWorker {
	l := logger.With().Str("component", "ProvisionWorker").Logger()
	return &ProvisionWorker{
		interval: interval,
		batch:    batch,
		queue:    queue,
		servers:  servers,
		panel:    panel,
		log:      &l,
	}
}

func (w *ProvisionWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting provision worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping provision worker")
			return ctx.Err()
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.log.Error().Err(err).Msg("provision tick failed")
			}
		}
	}
}

type serverBatch struct {
	jobIDs   []string
	accounts []model.ClientAccount
}

func (w *ProvisionWorker) RunOnce(ctx context.Context) error {
	jobs, err := w.queue.Drain(ctx, w.batch)
	if err != nil {
		return err
	}
	metrics.SetQueueDepth("add", len(jobs))
	if len(jobs) == 0 {
		return nil
	}

	batches := make(map[string]*serverBatch)
	for _, job := range jobs {
		b := batches[job.Payload.ServerID]
		if b == nil {
			b = &serverBatch{}
			batches[job.Payload.ServerID] = b
		}
		b.jobIDs = append(b.jobIDs, job.ID)
		b.accounts = append(b.accounts, job.Payload.Account)
	}

	for serverID, b := range batches {
		server, err := w.servers.FindByID(ctx, repository.NoTX, serverID)
		if err != nil {
			// queue references a server we no longer know; leave the jobs alone
			w.log.Warn().Str("server_id", serverID).Err(err).Msg("unknown server in add queue")
			continue
		}
		if err := w.panel.AddClients(ctx, server, b.accounts); err != nil {
			metrics.IncJob("add", "retry")
			w.log.Warn().Str("server_id", serverID).Int("count", len(b.accounts)).Err(err).Msg("addClients failed, will retry")
			continue
		}
		if err := w.queue.Delete(ctx, b.jobIDs...); err != nil {
			// remote add succeeded; next tick resends the same accounts, which
			// the panel dedups by client id
			w.log.Warn().Str("server_id", serverID).Err(err).Msg("job delete failed after addClients")
			continue
		}
		metrics.IncJob("add", "done")
		w.log.Info().Str("server_id", serverID).Int("count", len(b.accounts)).Msg("clients provisioned")
	}
	return nil
}
