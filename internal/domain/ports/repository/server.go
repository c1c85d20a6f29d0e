package repository

import (
	"context"

	"telegram-proxy-subscription/internal/domain/model"
)

type ServerRepository interface {
	Save(ctx context.Context, tx Tx, server *model.Server) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Server, error)
	FindByIDs(ctx context.Context, tx Tx, ids []string) ([]*model.Server, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Server, error)
}
