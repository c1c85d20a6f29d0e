package adapter

import (
	"context"

	"github.com/shopspring/decimal"

	"telegram-proxy-subscription/internal/domain/model"
)

// CreateInvoiceRequest is the gateway-facing invoice creation payload.
type CreateInvoiceRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Network        string
	OrderID        string
	AdditionalData string
}

// PaymentGateway is the port for the crypto payment provider.
type PaymentGateway interface {
	Name() string
	// CreateInvoice registers a payment intent and returns the gateway's view
	// of the invoice (deposit address, pay URL, initial status).
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*model.Invoice, error)
	// PaymentInfo fetches the current status of an order via a signed request.
	PaymentInfo(ctx context.Context, orderID string) (*model.Invoice, error)
}
