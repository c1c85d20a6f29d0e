// File: internal/infra/adapters/rates/crypto_source.go
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

var _ adapter.CryptoRateSource = (*CryptomusRateSource)(nil)

// CryptomusRateSource reads the public USD exchange-rate list: for each
// currency, how many units one USD buys. No signing, the list is public.
type CryptomusRateSource struct {
	url    string
	client *http.Client
}

func NewCryptomusRateSource(url string) *CryptomusRateSource {
	return &CryptomusRateSource{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *CryptomusRateSource) USDCourses(ctx context.Context) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRateUnavailable, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRateUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrRateUnavailable, resp.StatusCode)
	}

	var body struct {
		Result []struct {
			From   string `json:"from"`
			To     string `json:"to"`
			Course string `json:"course"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrRateUnavailable, err)
	}

	courses := make(map[string]float64, len(body.Result))
	for _, r := range body.Result {
		course, err := strconv.ParseFloat(r.Course, 64)
		if err != nil || course <= 0 {
			continue
		}
		courses[r.To] = course
	}
	if len(courses) == 0 {
		return nil, fmt.Errorf("%w: empty course list", domain.ErrRateUnavailable)
	}
	return courses, nil
}
