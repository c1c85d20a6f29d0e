package redis

import (
	"context"
	"encoding/json"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/repository"
)

var _ repository.CurrencyRateRepository = (*RateCache)(nil)

// RateCache stores one record per currency code, upserted wholesale by the
// rate refresher. No TTL: a stale rate is better than none, and the refresher
// overwrites on its own interval.
type RateCache struct {
	client RedisClient
}

func NewRateCache(client RedisClient) *RateCache {
	return &RateCache{client: client}
}

func rateKey(code string) string { return "currency_rate:" + code }

func (c *RateCache) Upsert(ctx context.Context, rate *model.CurrencyRate) error {
	data, err := json.Marshal(rate)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, rateKey(rate.Code), data, 0)
}

func (c *RateCache) Get(ctx context.Context, code string) (*model.CurrencyRate, error) {
	data, err := c.client.Get(ctx, rateKey(code))
	if err != nil {
		if IsNil(err) {
			return nil, domain.ErrRateUnavailable
		}
		return nil, err
	}
	var rate model.CurrencyRate
	if err := json.Unmarshal([]byte(data), &rate); err != nil {
		return nil, err
	}
	return &rate, nil
}
