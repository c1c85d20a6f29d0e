// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/adapter"
	"telegram-proxy-subscription/internal/domain/ports/repository"
	"telegram-proxy-subscription/internal/infra/metrics"
)

// PaymentUseCase drives crypto top-ups: invoice creation on the user side and
// the reconciliation pass the invoice worker runs every tick.
type PaymentUseCase interface {
	// StartInvoice registers a gateway invoice for irtAmount and records the
	// pending credit entry that later makes the credit exactly-once.
	StartInvoice(ctx context.Context, userID, irtAmount int64, currency, network string) (*model.Invoice, error)

	// ReconcileOnce polls every open invoice and settles the finalized ones.
	ReconcileOnce(ctx context.Context) error
}

var _ PaymentUseCase = (*paymentUC)(nil)

type paymentUC struct {
	gateway  adapter.PaymentGateway
	invoices repository.InvoiceRepository
	pending  repository.PendingCreditRepository
	users    repository.UserRepository
	notify   NotificationUseCase
	pricing  PricingUseCase
	txm      repository.TransactionManager
	batch    int
	log      *zerolog.Logger
}

func NewPaymentUseCase(
	gateway adapter.PaymentGateway,
	invoices repository.InvoiceRepository,
	pending repository.PendingCreditRepository,
	users repository.UserRepository,
	notify NotificationUseCase,
	pricing PricingUseCase,
	txm repository.TransactionManager,
	batch int,
	logger *zerolog.Logger,
) *paymentUC {
	l := logger.With().Str("component", "PaymentUseCase").Logger()
	return &paymentUC{
		gateway:  gateway,
		invoices: invoices,
		pending:  pending,
		users:    users,
		notify:   notify,
		pricing:  pricing,
		txm:      txm,
		batch:    batch,
		log:      &l,
	}
}

func (p *paymentUC) StartInvoice(ctx context.Context, userID, irtAmount int64, currency, network string) (*model.Invoice, error) {
	if irtAmount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	count, err := p.invoices.CountByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	orderID := model.FormatOrderID(userID, count+1)

	amount, err := p.pricing.CryptoAmount(ctx, irtAmount, currency)
	if err != nil {
		return nil, err
	}

	inv, err := p.gateway.CreateInvoice(ctx, adapter.CreateInvoiceRequest{
		Amount:         amount,
		Currency:       currency,
		Network:        network,
		OrderID:        orderID,
		AdditionalData: strconv.FormatInt(irtAmount, 10),
	})
	if err != nil {
		return nil, err
	}

	err = p.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := p.invoices.SaveIfAbsent(ctx, tx, inv); err != nil {
			return err
		}
		return p.pending.Save(ctx, tx, &model.PendingCredit{
			OrderID:   orderID,
			ChatID:    userID,
			CreatedAt: time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}
	p.log.Info().Str("order_id", orderID).Int64("user_id", userID).Int64("irt", irtAmount).Msg("invoice created")
	return inv, nil
}

func (p *paymentUC) ReconcileOnce(ctx context.Context) error {
	open, err := p.invoices.ListOpen(ctx, repository.NoTX, p.batch)
	if err != nil {
		return err
	}
	for _, inv := range open {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.reconcileInvoice(ctx, inv); err != nil {
			p.log.Error().Str("order_id", inv.OrderID).Err(err).Msg("invoice reconcile failed")
		}
	}
	return nil
}

// reconcileInvoice polls the gateway for one invoice, persists its status and,
// if the invoice is final, settles the pending credit entry.
func (p *paymentUC) reconcileInvoice(ctx context.Context, inv *model.Invoice) error {
	fresh, err := p.gateway.PaymentInfo(ctx, inv.OrderID)
	if err != nil {
		metrics.IncInvoicePolled("error")
		return err
	}
	if fresh.IsFinal {
		metrics.IncInvoicePolled("final")
	} else {
		metrics.IncInvoicePolled("open")
	}

	fresh.CreatedAt = inv.CreatedAt
	fresh.UpdatedAt = time.Now()
	if err := p.invoices.Update(ctx, repository.NoTX, fresh); err != nil {
		return err
	}
	if !fresh.IsFinal {
		return nil
	}
	return p.settle(ctx, fresh)
}

// settle credits the balance and notifies exactly once, keyed on the pending
// credit entry: a missing entry means a previous pass already handled it.
func (p *paymentUC) settle(ctx context.Context, inv *model.Invoice) error {
	var (
		credited bool
		amount   int64
		chatID   int64
	)
	err := p.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		pc, err := p.pending.FindByOrderID(ctx, tx, inv.OrderID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		chatID = pc.ChatID

		if inv.Paid() {
			amount, err = inv.CreditAmount()
			if err != nil {
				return err
			}
			userID, err := model.UserIDFromOrderID(inv.OrderID)
			if err != nil {
				return err
			}
			if _, err := p.users.AddBalance(ctx, tx, userID, amount); err != nil {
				return err
			}
			credited = true
		}
		return p.pending.Delete(ctx, tx, inv.OrderID)
	})
	if err != nil {
		metrics.IncCredit("error")
		return err
	}
	if chatID == 0 {
		metrics.IncCredit("already_processed")
		return nil
	}

	if credited {
		metrics.IncCredit("credited")
		userID, _ := model.UserIDFromOrderID(inv.OrderID)
		if err := p.notify.Enqueue(ctx, chatID, fmt.Sprintf("✅ Payment confirmed. %d IRT added to your balance.", amount)); err != nil {
			p.log.Error().Str("order_id", inv.OrderID).Err(err).Msg("user notification enqueue failed")
		}
		if err := p.notify.EnqueueAdmins(ctx, fmt.Sprintf("💰 Order %s: user %d credited %d IRT.", inv.OrderID, userID, amount)); err != nil {
			p.log.Error().Str("order_id", inv.OrderID).Err(err).Msg("admin notification enqueue failed")
		}
	} else {
		metrics.IncCredit("failed_payment")
		if err := p.notify.Enqueue(ctx, chatID, fmt.Sprintf("❌ Payment %s was not completed (%s). No balance was added.", inv.OrderID, inv.PaymentStatus)); err != nil {
			p.log.Error().Str("order_id", inv.OrderID).Err(err).Msg("user notification enqueue failed")
		}
	}
	p.log.Info().Str("order_id", inv.OrderID).Bool("credited", credited).Msg("invoice settled")
	return nil
}
