package tariff

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const cezBaseURL = "https://www.cezdistribuce.cz/webpublic/distHdo/adam/containers"

// One validity row of the CEZ switching-plan feed: a weekday-validity
// label plus up to ten fixed on/off time-slot column pairs.
var cezSlotColumns = [][2]string{
	{"CAS_ZAP_1", "CAS_VYP_1"},
	{"CAS_ZAP_2", "CAS_VYP_2"},
	{"CAS_ZAP_3", "CAS_VYP_3"},
	{"CAS_ZAP_4", "CAS_VYP_4"},
	{"CAS_ZAP_5", "CAS_VYP_5"},
	{"CAS_ZAP_6", "CAS_VYP_6"},
	{"CAS_ZAP_7", "CAS_VYP_7"},
	{"CAS_ZAP_8", "CAS_VYP_8"},
	{"CAS_ZAP_9", "CAS_VYP_9"},
	{"CAS_ZAP_10", "CAS_VYP_10"},
}

type cezResponse struct {
	Data []map[string]any `json:"data"`
}

func (r *Resolver) fetchCEZ(ctx context.Context, code string) (*Schedule, error) {
	url := fmt.Sprintf("%s/%s?&code=%s", r.cezBaseURL, r.cezRegion, code)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cez intervals: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var payload cezResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(payload.Data) == 0 {
		return nil, fmt.Errorf("no switching plan rows for code %s", code)
	}

	var s Schedule
	for _, row := range payload.Data {
		days, err := parseWeekdayValidity(stringField(row, "PLATNOST"))
		if err != nil {
			return nil, err
		}
		for _, cols := range cezSlotColumns {
			on := stringField(row, cols[0])
			off := stringField(row, cols[1])
			if on == "" || off == "" {
				continue
			}
			start, err := parseClock(on)
			if err != nil {
				return nil, fmt.Errorf("bad slot %s=%q: %w", cols[0], on, err)
			}
			end, err := parseClock(off)
			if err != nil {
				return nil, fmt.Errorf("bad slot %s=%q: %w", cols[1], off, err)
			}
			for _, d := range days {
				s.Days[d] = append(s.Days[d], Interval{Start: start, End: end})
			}
		}
	}
	return &s, nil
}

func stringField(row map[string]any, name string) string {
	v, ok := row[name]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

var czWeekdays = map[string]int{
	"po": 0, "út": 1, "ut": 1, "st": 2, "čt": 3, "ct": 3,
	"pá": 4, "pa": 4, "so": 5, "ne": 6,
}

// parseWeekdayValidity maps labels like "Po - Pá", "So - Ne" or a
// single day onto weekday indices. An empty label means every day.
func parseWeekdayValidity(label string) ([]int, error) {
	if label == "" {
		return []int{0, 1, 2, 3, 4, 5, 6}, nil
	}
	parts := strings.SplitN(label, "-", 2)
	from, ok := czWeekdays[strings.ToLower(strings.TrimSpace(parts[0]))]
	if !ok {
		return nil, fmt.Errorf("unknown weekday validity %q", label)
	}
	to := from
	if len(parts) == 2 {
		to, ok = czWeekdays[strings.ToLower(strings.TrimSpace(parts[1]))]
		if !ok || to < from {
			return nil, fmt.Errorf("unknown weekday validity %q", label)
		}
	}
	days := make([]int, 0, to-from+1)
	for d := from; d <= to; d++ {
		days = append(days, d)
	}
	return days, nil
}

// parseClock parses "HH:MM" into minutes of day, "24:00" closing the
// day.
func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, err
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return h*60 + m, nil
}
