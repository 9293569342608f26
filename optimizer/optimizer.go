package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dratek/powerplan-go/blocks"
)

type Request struct {
	Rate        [][2]float64 `json:"rate"`
	Production  []float64    `json:"production"`
	Consumption []float64    `json:"consumption"`
	Constraints Constraints  `json:"constraints"`
}

// Constraints carry normalized values: state of charge fields in 0..1,
// power fields in kWh per block.
type Constraints struct {
	Soc            float64 `json:"soc"`
	ChargePower    float64 `json:"charge_power"`
	DischargePower float64 `json:"discharge_power"`
	SocMin         float64 `json:"soc_min"`
	SocMax         float64 `json:"soc_max"`
	Capacity       float64 `json:"capacity"`
	Amortization   float64 `json:"amortization"`
}

type ScheduleEntry struct {
	Block         blocks.DateBlock
	Soc           float64
	Charge        float64
	Discharge     float64
	ChargeFlag    bool
	DischargeFlag bool
	CurtailFlag   bool
}

type Result struct {
	PredictedCost         float64
	PredictedAmortization float64
	Schedule              []ScheduleEntry
}

// Client calls the external battery dispatch service. The response is a
// two element array: a numeric summary followed by one schedule row per
// requested block.
type Client struct {
	logger *slog.Logger
	client *http.Client
	url    string
	apiKey string
}

func New(logger *slog.Logger, url, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		logger: logger,
		client: &http.Client{Timeout: timeout},
		url:    url,
		apiKey: apiKey,
	}
}

func (c *Client) Optimize(ctx context.Context, req Request, keys []blocks.DateBlock) (*Result, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling optimizer request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating optimizer request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", c.apiKey)

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling optimizer: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading optimizer response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("optimizer returned status %d: %s", res.StatusCode, string(body))
	}

	return parseResponse(body, keys)
}

func parseResponse(body []byte, keys []blocks.DateBlock) (*Result, error) {
	var outer []json.RawMessage
	if err := json.Unmarshal(body, &outer); err != nil {
		return nil, fmt.Errorf("unmarshaling optimizer response: %w", err)
	}
	if len(outer) < 2 {
		return nil, fmt.Errorf("optimizer response has %d elements, expected 2", len(outer))
	}

	var summary []float64
	if err := json.Unmarshal(outer[0], &summary); err != nil {
		return nil, fmt.Errorf("unmarshaling optimizer summary: %w", err)
	}
	if len(summary) < 4 {
		return nil, fmt.Errorf("optimizer summary has %d values, expected at least 4", len(summary))
	}

	var rows [][]float64
	if err := json.Unmarshal(outer[1], &rows); err != nil {
		return nil, fmt.Errorf("unmarshaling optimizer schedule: %w", err)
	}
	if len(rows) != len(keys) {
		return nil, fmt.Errorf("optimizer schedule has %d rows, expected %d", len(rows), len(keys))
	}

	result := &Result{
		PredictedCost:         summary[1],
		PredictedAmortization: summary[3],
		Schedule:              make([]ScheduleEntry, len(rows)),
	}
	for i, row := range rows {
		entry := ScheduleEntry{Block: keys[i]}
		if len(row) > 0 {
			entry.Soc = row[0]
		}
		if len(row) > 1 {
			entry.Charge = row[1]
		}
		if len(row) > 2 {
			entry.Discharge = row[2]
		}
		if len(row) > 3 {
			entry.ChargeFlag = row[3] != 0
		}
		if len(row) > 4 {
			entry.DischargeFlag = row[4] != 0
		}
		if len(row) > 5 {
			entry.CurtailFlag = row[5] != 0
		}
		result.Schedule[i] = entry
	}

	return result, nil
}
