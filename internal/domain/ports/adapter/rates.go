package adapter

import "context"

// FiatRateSource reports the fiat price of one USDT (i.e. USD→IRT).
type FiatRateSource interface {
	USDPrice(ctx context.Context) (irtPerUSD float64, err error)
}

// CryptoRateSource lists crypto exchange courses against USD, as
// code -> units of the currency per USD.
type CryptoRateSource interface {
	USDCourses(ctx context.Context) (map[string]float64, error)
}
