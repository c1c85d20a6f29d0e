package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/repository"
)

var _ repository.PendingCreditRepository = (*pendingCreditRepo)(nil)

type pendingCreditRepo struct{ pool *pgxpool.Pool }

func NewPendingCreditRepo(pool *pgxpool.Pool) *pendingCreditRepo {
	return &pendingCreditRepo{pool: pool}
}

func (r *pendingCreditRepo) Save(ctx context.Context, tx repository.Tx, pc *model.PendingCredit) error {
	const q = `
INSERT INTO invoice_pending (order_id, chat_id, created_at)
VALUES ($1,$2,$3)
ON CONFLICT (order_id) DO NOTHING;`
	_, err := execSQL(ctx, r.pool, tx, q, pc.OrderID, pc.ChatID, pc.CreatedAt)
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

func (r *pendingCreditRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.PendingCredit, error) {
	const q = `SELECT order_id, chat_id, created_at FROM invoice_pending WHERE order_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, err
	}
	pc := &model.PendingCredit{}
	if err := row.Scan(&pc.OrderID, &pc.ChatID, &pc.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return pc, nil
}

func (r *pendingCreditRepo) Delete(ctx context.Context, tx repository.Tx, orderID string) error {
	const q = `DELETE FROM invoice_pending WHERE order_id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, orderID)
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
