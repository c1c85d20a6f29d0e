// File: internal/infra/adapters/rates/fiat_source.go
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/ports/adapter"
)

var _ adapter.FiatRateSource = (*AbanTetherSource)(nil)

// AbanTetherSource reads the OTC buy price of one USDT in IRT. The endpoint
// authenticates with a static "Token" scheme header.
type AbanTetherSource struct {
	url    string
	token  string
	client *http.Client
}

func NewAbanTetherSource(url, token string) *AbanTetherSource {
	return &AbanTetherSource{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *AbanTetherSource) USDPrice(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrRateUnavailable, err)
	}
	req.Header.Set("Authorization", "Token "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrRateUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", domain.ErrRateUnavailable, resp.StatusCode)
	}

	// Prices come back as strings keyed by symbol.
	var body map[string]struct {
		IRTPriceBuy string `json:"irtPriceBuy"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("%w: decode: %v", domain.ErrRateUnavailable, err)
	}
	usdt, ok := body["USDT"]
	if !ok {
		return 0, fmt.Errorf("%w: no USDT entry", domain.ErrRateUnavailable)
	}
	price, err := strconv.ParseFloat(usdt.IRTPriceBuy, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("%w: bad price %q", domain.ErrRateUnavailable, usdt.IRTPriceBuy)
	}
	return price, nil
}
