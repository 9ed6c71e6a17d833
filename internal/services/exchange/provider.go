package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/subtrackr/backend/internal/models"
)

// RateProvider supplies rate-table snapshots. The aggregation core never
// fetches rates itself; it is handed a snapshot by one of these.
type RateProvider interface {
	RateTable(ctx context.Context, base models.Currency) (RateTable, error)
}

// rateAPIResponse matches the open.er-api.com response shape
type rateAPIResponse struct {
	Result  string             `json:"result"`
	Base    string             `json:"base_code"`
	Updated string             `json:"time_last_update_utc"`
	Rates   map[string]float64 `json:"rates"`
}

// HTTPRateProvider fetches exchange rates from the free ExchangeRate-API,
// which does not require an API key.
type HTTPRateProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRateProvider creates a provider against the given API base URL.
// An empty baseURL selects the public endpoint.
func NewHTTPRateProvider(baseURL string) *HTTPRateProvider {
	if baseURL == "" {
		baseURL = "https://open.er-api.com/v6/latest"
	}
	return &HTTPRateProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// RateTable fetches a fresh snapshot quoted against base
func (p *HTTPRateProvider) RateTable(ctx context.Context, base models.Currency) (RateTable, error) {
	url := fmt.Sprintf("%s/%s", p.baseURL, base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return RateTable{}, fmt.Errorf("failed to build exchange rate request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return RateTable{}, fmt.Errorf("failed to fetch exchange rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RateTable{}, fmt.Errorf("exchange rate API returned status code %d", resp.StatusCode)
	}

	var rateResp rateAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&rateResp); err != nil {
		return RateTable{}, fmt.Errorf("failed to decode exchange rate response: %w", err)
	}
	if rateResp.Result != "success" {
		return RateTable{}, fmt.Errorf("exchange rate API returned unsuccessful response")
	}

	rates := make(map[models.Currency]decimal.Decimal, len(rateResp.Rates))
	for code, rate := range rateResp.Rates {
		currency, err := models.ParseCurrency(code)
		if err != nil {
			continue // the API lists a few non-ISO codes; skip them
		}
		rates[currency] = decimal.NewFromFloat(rate)
	}

	return NewRateTable(base, rates, time.Now().UTC()), nil
}
