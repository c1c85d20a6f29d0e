package repository

import (
	"context"

	"telegram-proxy-subscription/internal/domain/model"
)

// CurrencyRateRepository is the refreshed-wholesale rate table. Readers must
// tolerate a missing rate (ErrRateUnavailable) and accept rates up to one
// refresh interval stale.
type CurrencyRateRepository interface {
	Upsert(ctx context.Context, rate *model.CurrencyRate) error
	Get(ctx context.Context, code string) (*model.CurrencyRate, error)
}
