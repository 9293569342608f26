package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dratek/powerplan-go/blocks"
)

// HTTPProvider fetches a production forecast from a JSON endpoint
// shaped as {"wh_hours": {"<RFC3339 timestamp>": <watt-hours>, ...}}.
type HTTPProvider struct {
	logger *slog.Logger
	client *http.Client
	url    string
	apiKey string
}

func NewHTTPProvider(logger *slog.Logger, url, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		logger: logger,
		client: &http.Client{Timeout: 10 * time.Second},
		url:    url,
		apiKey: apiKey,
	}
}

type forecastResponse struct {
	WhHours map[string]float64 `json:"wh_hours"`
}

func (p *HTTPProvider) WhHours(ctx context.Context) (map[time.Time]float64, error) {
	p.logger.Debug("fetching production forecast...", "url", p.url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating forecast request: %w", err)
	}
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}

	res, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching forecast: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast endpoint returned status %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading forecast response: %w", err)
	}

	var parsed forecastResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshaling forecast json: %w", err)
	}

	whHours := make(map[time.Time]float64, len(parsed.WhHours))
	for key, wh := range parsed.WhHours {
		ts, err := time.Parse(time.RFC3339, key)
		if err != nil {
			p.logger.Warn("skipping forecast entry with unreadable timestamp",
				slog.String("key", key), slog.Any("error", err))
			continue
		}
		whHours[blocks.Align(ts).UTC()] = wh
	}

	return whHours, nil
}
