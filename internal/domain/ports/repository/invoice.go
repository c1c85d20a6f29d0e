package repository

import (
	"context"

	"telegram-proxy-subscription/internal/domain/model"
)

type InvoiceRepository interface {
	// SaveIfAbsent inserts the invoice unless the order id already exists.
	SaveIfAbsent(ctx context.Context, tx Tx, inv *model.Invoice) error
	// Update persists the gateway's current view of the invoice.
	Update(ctx context.Context, tx Tx, inv *model.Invoice) error
	FindByOrderID(ctx context.Context, tx Tx, orderID string) (*model.Invoice, error)
	// ListOpen returns invoices not yet marked final by the gateway.
	ListOpen(ctx context.Context, tx Tx, limit int) ([]*model.Invoice, error)
	// CountByUser returns how many invoices a user has created; used to derive
	// the next order-id sequence number.
	CountByUser(ctx context.Context, tx Tx, userID int64) (int, error)
}

// PendingCreditRepository stores the dedup entries that make balance credit
// and notification happen exactly once per finalized invoice.
type PendingCreditRepository interface {
	Save(ctx context.Context, tx Tx, pc *model.PendingCredit) error
	FindByOrderID(ctx context.Context, tx Tx, orderID string) (*model.PendingCredit, error)
	Delete(ctx context.Context, tx Tx, orderID string) error
}
