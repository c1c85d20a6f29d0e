package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"telegram-proxy-subscription/internal/domain"
)

// Gateway payment statuses we act on. Anything else is informational and is
// persisted as-is.
const (
	PaymentStatusPaid     = "paid"
	PaymentStatusPaidOver = "paid_over"
	PaymentStatusProcess  = "process"
	PaymentStatusCancel   = "cancel"
	PaymentStatusFail     = "fail"
)

// Invoice mirrors the gateway's view of a payment, keyed by our order id.
// Created when a user starts a top-up; mutated only by the reconciliation
// worker.
type Invoice struct {
	OrderID       string // "{userID}_{seq}"
	GatewayUUID   string
	Amount        decimal.Decimal
	Currency      string
	Network       string
	Address       string // deposit address
	PayURL        string
	TxID          string
	PaymentStatus string
	IsFinal       bool
	// AdditionalData carries the originally requested fiat amount (IRT) as an
	// opaque string; it is what gets credited on confirmed payment.
	AdditionalData string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Paid reports whether the gateway confirmed the payment.
func (i *Invoice) Paid() bool {
	return i.PaymentStatus == PaymentStatusPaid || i.PaymentStatus == PaymentStatusPaidOver
}

// CreditAmount parses the fiat amount carried in AdditionalData.
func (i *Invoice) CreditAmount() (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(i.AdditionalData), 10, 64)
	if err != nil || n <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	return n, nil
}

// OrderID encodes the owning user in a deterministic prefix so the
// reconciliation worker can address notifications without a join.
func FormatOrderID(userID int64, seq int) string {
	return fmt.Sprintf("%d_%d", userID, seq)
}

// UserIDFromOrderID extracts the user prefix from an order id.
func UserIDFromOrderID(orderID string) (int64, error) {
	prefix, _, ok := strings.Cut(orderID, "_")
	if !ok {
		return 0, domain.ErrInvalidArgument
	}
	id, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidArgument
	}
	return id, nil
}

// PendingCredit is the dedup key guaranteeing a finalized invoice credits the
// balance and notifies the user exactly once. Deleted the first time the
// reconciliation worker handles the finalized invoice.
type PendingCredit struct {
	OrderID   string
	ChatID    int64 // originating conversation
	CreatedAt time.Time
}
