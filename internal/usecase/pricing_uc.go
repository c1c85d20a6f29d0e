// File: internal/usecase/pricing_uc.go
package usecase

import (
	"context"
	"math"

	"github.com/shopspring/decimal"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/repository"
)

// PricingUseCase converts between currencies via the refreshed rate table and
// derives subscription prices from traffic volume.
type PricingUseCase interface {
	// SubscriptionPriceIRT is the price of trafficGB at the given product
	// multiplier, in whole IRT.
	SubscriptionPriceIRT(ctx context.Context, trafficGB, multiplier float64) (int64, error)

	// ConvertUSDToIRT converts a USD amount to whole IRT.
	ConvertUSDToIRT(ctx context.Context, usd float64) (int64, error)

	// CryptoAmount converts a whole-IRT amount into units of the given crypto
	// currency. Fails with ErrRateUnavailable when the rate is missing.
	CryptoAmount(ctx context.Context, irt int64, currency string) (decimal.Decimal, error)
}

var _ PricingUseCase = (*pricingUC)(nil)

type pricingUC struct {
	rates    repository.CurrencyRateRepository
	perGBUSD float64
}

func NewPricingUseCase(rates repository.CurrencyRateRepository, perGBUSD float64) *pricingUC {
	return &pricingUC{rates: rates, perGBUSD: perGBUSD}
}

func (p *pricingUC) irtPerUSD(ctx context.Context) (float64, error) {
	rate, err := p.rates.Get(ctx, model.CurrencyUSD)
	if err != nil {
		return 0, err
	}
	irt, ok := rate.Price[model.CurrencyIRT]
	if !ok || irt <= 0 {
		return 0, domain.ErrRateUnavailable
	}
	return irt, nil
}

func (p *pricingUC) SubscriptionPriceIRT(ctx context.Context, trafficGB, multiplier float64) (int64, error) {
	if trafficGB <= 0 || multiplier <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	return p.ConvertUSDToIRT(ctx, trafficGB*multiplier*p.perGBUSD)
}

func (p *pricingUC) ConvertUSDToIRT(ctx context.Context, usd float64) (int64, error) {
	if usd <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	irtPerUSD, err := p.irtPerUSD(ctx)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(usd * irtPerUSD)), nil
}

func (p *pricingUC) CryptoAmount(ctx context.Context, irt int64, currency string) (decimal.Decimal, error) {
	if irt <= 0 {
		return decimal.Zero, domain.ErrInvalidArgument
	}
	rate, err := p.rates.Get(ctx, currency)
	if err != nil {
		return decimal.Zero, err
	}
	priceIRT, ok := rate.Price[model.CurrencyIRT]
	if !ok || priceIRT <= 0 {
		return decimal.Zero, domain.ErrRateUnavailable
	}
	amount := decimal.NewFromInt(irt).Div(decimal.NewFromFloat(priceIRT))
	return amount.Round(8), nil
}
