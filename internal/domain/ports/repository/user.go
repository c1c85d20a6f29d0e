package repository

import (
	"context"

	"telegram-proxy-subscription/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, user *model.User) error
	FindByTelegramID(ctx context.Context, tx Tx, telegramID int64) (*model.User, error)
	// AddBalance atomically adjusts the balance by delta (may be negative for
	// purchases; implementations reject overdrafts).
	AddBalance(ctx context.Context, tx Tx, telegramID int64, delta int64) (newBalance int64, err error)
	CountUsers(ctx context.Context, tx Tx) (int, error)
}
