package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/repository"
)

var _ repository.InvoiceRepository = (*invoiceRepo)(nil)

type invoiceRepo struct{ pool *pgxpool.Pool }

func NewInvoiceRepo(pool *pgxpool.Pool) *invoiceRepo {
	return &invoiceRepo{pool: pool}
}

// Amounts are stored as text: they are opaque gateway figures that we never
// do arithmetic on in SQL.
const invoiceColumns = `order_id, gateway_uuid, amount, currency, network, address, pay_url, txid, payment_status, is_final, additional_data, created_at, updated_at`

func (r *invoiceRepo) SaveIfAbsent(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	const q = `
INSERT INTO invoices (` + invoiceColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (order_id) DO NOTHING;`
	_, err := execSQL(ctx, r.pool, tx, q,
		inv.OrderID, inv.GatewayUUID, inv.Amount.String(), inv.Currency, inv.Network, inv.Address,
		inv.PayURL, inv.TxID, inv.PaymentStatus, inv.IsFinal, inv.AdditionalData, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *invoiceRepo) Update(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	const q = `
UPDATE invoices SET
  gateway_uuid=$2, amount=$3, currency=$4, network=$5, address=$6, pay_url=$7,
  txid=$8, payment_status=$9, is_final=$10, additional_data=$11, updated_at=NOW()
WHERE order_id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q,
		inv.OrderID, inv.GatewayUUID, inv.Amount.String(), inv.Currency, inv.Network, inv.Address,
		inv.PayURL, inv.TxID, inv.PaymentStatus, inv.IsFinal, inv.AdditionalData)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *invoiceRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.Invoice, error) {
	const q = `SELECT ` + invoiceColumns + ` FROM invoices WHERE order_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, err
	}
	return scanInvoice(row)
}

func (r *invoiceRepo) ListOpen(ctx context.Context, tx repository.Tx, limit int) ([]*model.Invoice, error) {
	const q = `SELECT ` + invoiceColumns + ` FROM invoices WHERE NOT is_final ORDER BY created_at ASC LIMIT $1;`
	rows, err := queryRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	var out []*model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *invoiceRepo) CountByUser(ctx context.Context, tx repository.Tx, userID int64) (int, error) {
	// Order ids are "{userID}_{seq}". The underscore must be escaped or the
	// LIKE pattern for user 7 would also match user 77.
	const q = `SELECT COUNT(*) FROM invoices WHERE order_id LIKE $1::text || '\_%';`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func scanInvoice(row pgx.Row) (*model.Invoice, error) {
	inv := &model.Invoice{}
	var amount string
	if err := row.Scan(&inv.OrderID, &inv.GatewayUUID, &amount, &inv.Currency, &inv.Network, &inv.Address,
		&inv.PayURL, &inv.TxID, &inv.PaymentStatus, &inv.IsFinal, &inv.AdditionalData, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if amount != "" {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		inv.Amount = d
	}
	return inv, nil
}
