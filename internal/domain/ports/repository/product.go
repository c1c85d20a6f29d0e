package repository

import (
	"context"

	"telegram-proxy-subscription/internal/domain/model"
)

type ProductRepository interface {
	Save(ctx context.Context, tx Tx, product *model.Product) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Product, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Product, error)
	// DecrementStock atomically takes one unit; ErrOutOfStock when none left.
	DecrementStock(ctx context.Context, tx Tx, id string) error
}
