package cnb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const baseURL = "https://api.cnb.cz/cnbapi/exrates/daily"

// Client reads the Czech National Bank daily reference exchange rate
// list.
type Client struct {
	client  *http.Client
	baseURL string
}

func New() *Client {
	return &Client{client: &http.Client{}, baseURL: baseURL}
}

type rateList struct {
	Rates []rateEntry `json:"rates"`
}

type rateEntry struct {
	CurrencyCode string  `json:"currencyCode"`
	Amount       int64   `json:"amount"`
	Rate         float64 `json:"rate"`
}

// EuroRate returns today's CZK-per-EUR reference rate.
func (c *Client) EuroRate(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch exchange rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var list rateList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	for _, entry := range list.Rates {
		if entry.CurrencyCode == "EUR" {
			amount := entry.Amount
			if amount == 0 {
				amount = 1
			}
			return entry.Rate / float64(amount), nil
		}
	}
	return 0, fmt.Errorf("no EUR rate in exchange rate list")
}
