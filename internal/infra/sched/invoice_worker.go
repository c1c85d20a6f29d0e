// File: internal/infra/sched/invoice_worker.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-proxy-subscription/internal/usecase"
)

// InvoiceWorker polls the payment gateway for every open invoice. The
// settlement logic (exactly-once credit keyed on the pending entry) lives in
// the payment use case; this worker only paces it.
type InvoiceWorker struct {
	interval time.Duration
	payments usecase.PaymentUseCase
	log      *zerolog.Logger
}

func NewInvoiceWorker(interval time.Duration, payments usecase.PaymentUseCase, logger *zerolog.Logger) *InvoiceWorker {
	l := logger.With().Str("component", "InvoiceWorker").Logger()
	return &InvoiceWorker{
		interval: interval,
		payments: payments,
		log:      &l,
	}
}

func (w *InvoiceWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting invoice worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping invoice worker")
			return ctx.Err()
		case <-ticker.C:
			if err := w.payments.ReconcileOnce(ctx); err != nil {
				w.log.Error().Err(err).Msg("invoice reconcile pass failed")
			}
		}
	}
}
