package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (telegram_id, role, balance, registered_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (telegram_id) DO UPDATE SET role=$2;`
	_, err := execSQL(ctx, r.pool, tx, q, u.TelegramID, u.Role, u.Balance, u.RegisteredAt)
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

func (r *userRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, telegramID int64) (*model.User, error) {
	const q = `SELECT telegram_id, role, balance, registered_at FROM users WHERE telegram_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, telegramID)
	if err != nil {
		return nil, err
	}
	u := &model.User{}
	if err := row.Scan(&u.TelegramID, &u.Role, &u.Balance, &u.RegisteredAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return u, nil
}

// AddBalance adjusts the balance in one statement so a reconciliation retry
// racing a purchase cannot lose either update. Negative deltas fail instead
// of overdrawing.
func (r *userRepo) AddBalance(ctx context.Context, tx repository.Tx, telegramID int64, delta int64) (int64, error) {
	const q = `
UPDATE users SET balance = balance + $2
 WHERE telegram_id=$1 AND balance + $2 >= 0
RETURNING balance;`
	row, err := pickRow(ctx, r.pool, tx, q, telegramID, delta)
	if err != nil {
		return 0, err
	}
	var balance int64
	if err := row.Scan(&balance); err != nil {
		if err == pgx.ErrNoRows {
			if delta < 0 {
				return 0, domain.ErrInsufficientBalance
			}
			return 0, domain.ErrNotFound
		}
		return 0, domain.ErrReadDatabaseRow
	}
	return balance, nil
}

func (r *userRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	const q = `SELECT COUNT(*) FROM users;`
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
