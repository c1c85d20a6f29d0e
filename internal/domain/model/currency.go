package model

import "time"

// Reference currency codes used across pricing.
const (
	CurrencyUSD = "USD"
	CurrencyIRT = "IRT"
)

// CurrencyRate maps one currency code to its price in reference currencies,
// e.g. {"USD": 1, "IRT": 61250}. Refreshed wholesale per cron tick; readers
// accept rates up to one refresh interval stale.
type CurrencyRate struct {
	Code      string
	Price     map[string]float64
	UpdatedAt time.Time
}
