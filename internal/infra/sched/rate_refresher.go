// File: internal/infra/sched/rate_refresher.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/adapter"
	"telegram-proxy-subscription/internal/domain/ports/repository"
)

// RateRefresher keeps the currency rate table fresh from two sources on two
// cadences: the fiat OTC price (USDT→IRT) and the gateway's crypto course
// list. Each pass upserts whole records; readers tolerate staleness up to one
// interval.
type RateRefresher struct {
	fiatInterval   time.Duration
	cryptoInterval time.Duration
	fiat           adapter.FiatRateSource
	crypto         adapter.CryptoRateSource
	rates          repository.CurrencyRateRepository
	log            *zerolog.Logger
}

func NewRateRefresher(fiatInterval, cryptoInterval time.Duration, fiat adapter.FiatRateSource, crypto adapter.CryptoRateSource, rates repository.CurrencyRateRepository, logger *zerolog.Logger) *RateRefresher {
	l := logger.With().Str("component", "RateRefresher").Logger()
	return &RateRefresher{
		fiatInterval:   fiatInterval,
		cryptoInterval: cryptoInterval,
		fiat:           fiat,
		crypto:         crypto,
		rates:          rates,
		log:            &l,
	}
}

func (w *RateRefresher) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting rate refresher")

	// prime the table so pricing works before the first tick
	w.refreshFiat(ctx)
	w.refreshCrypto(ctx)

	fiatTicker := time.NewTicker(w.fiatInterval)
	defer fiatTicker.Stop()
	cryptoTicker := time.NewTicker(w.cryptoInterval)
	defer cryptoTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping rate refresher")
			return ctx.Err()
		case <-fiatTicker.C:
			w.refreshFiat(ctx)
		case <-cryptoTicker.C:
			w.refreshCrypto(ctx)
		}
	}
}

func (w *RateRefresher) refreshFiat(ctx context.Context) {
	irtPerUSD, err := w.fiat.USDPrice(ctx)
	if err != nil {
		w.log.Warn().Err(err).Msg("fiat rate fetch failed")
		return
	}
	now := time.Now()
	usd := &model.CurrencyRate{
		Code:      model.CurrencyUSD,
		Price:     map[string]float64{model.CurrencyUSD: 1, model.CurrencyIRT: irtPerUSD},
		UpdatedAt: now,
	}
	irt := &model.CurrencyRate{
		Code:      model.CurrencyIRT,
		Price:     map[string]float64{model.CurrencyUSD: 1 / irtPerUSD, model.CurrencyIRT: 1},
		UpdatedAt: now,
	}
	for _, rate := range []*model.CurrencyRate{usd, irt} {
		if err := w.rates.Upsert(ctx, rate); err != nil {
			w.log.Error().Str("code", rate.Code).Err(err).Msg("rate upsert failed")
		}
	}
	w.log.Debug().Float64("irt_per_usd", irtPerUSD).Msg("fiat rates refreshed")
}

func (w *RateRefresher) refreshCrypto(ctx context.Context) {
	courses, err := w.crypto.USDCourses(ctx)
	if err != nil {
		w.log.Warn().Err(err).Msg("crypto course fetch failed")
		return
	}

	var irtPerUSD float64
	if usd, err := w.rates.Get(ctx, model.CurrencyUSD); err == nil {
		irtPerUSD = usd.Price[model.CurrencyIRT]
	}

	now := time.Now()
	for code, course := range courses {
		priceUSD := 1 / course
		price := map[string]float64{model.CurrencyUSD: priceUSD}
		if irtPerUSD > 0 {
			price[model.CurrencyIRT] = priceUSD * irtPerUSD
		}
		rate := &model.CurrencyRate{Code: code, Price: price, UpdatedAt: now}
		if err := w.rates.Upsert(ctx, rate); err != nil {
			w.log.Error().Str("code", code).Err(err).Msg("rate upsert failed")
		}
	}
	w.log.Debug().Int("count", len(courses)).Msg("crypto rates refreshed")
}
