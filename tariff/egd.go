package tariff

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const egdBaseURL = "https://hdo.distribuce24.cz"

// The EGD feed nests time slots under rate-code entries with
// effective-date ranges and per-day slot lists.
type egdEntry struct {
	Code      string   `json:"kod"`
	ValidFrom string   `json:"platnostOd"`
	ValidTo   string   `json:"platnostDo"`
	Days      []egdDay `json:"dny"`
}

type egdDay struct {
	Day   string    `json:"den"`
	Slots []egdSlot `json:"casy"`
}

type egdSlot struct {
	From string `json:"od"`
	To   string `json:"do"`
}

func (r *Resolver) fetchEGD(ctx context.Context, code string, date string) (*Schedule, error) {
	url := fmt.Sprintf("%s/casy?kod=%s", r.egdBaseURL, code)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch egd intervals: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var entries []egdEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var s Schedule
	matched := false
	for _, entry := range entries {
		if entry.Code != code || !effectiveOn(entry, date) {
			continue
		}
		matched = true
		for _, day := range entry.Days {
			d, ok := czWeekdays[normalizeDay(day.Day)]
			if !ok {
				return nil, fmt.Errorf("unknown day %q for code %s", day.Day, code)
			}
			for _, slot := range day.Slots {
				start, err := parseClock(slot.From)
				if err != nil {
					return nil, fmt.Errorf("bad slot start %q: %w", slot.From, err)
				}
				end, err := parseClock(slot.To)
				if err != nil {
					return nil, fmt.Errorf("bad slot end %q: %w", slot.To, err)
				}
				s.Days[d] = append(s.Days[d], Interval{Start: start, End: end})
			}
		}
	}
	if !matched {
		return nil, fmt.Errorf("no effective entry for code %s on %s", code, date)
	}
	return &s, nil
}

// effectiveOn checks the entry's date range; open ends match anything.
func effectiveOn(entry egdEntry, date string) bool {
	if entry.ValidFrom != "" && date < entry.ValidFrom {
		return false
	}
	if entry.ValidTo != "" && date > entry.ValidTo {
		return false
	}
	return true
}

func normalizeDay(day string) string {
	runes := []rune(strings.ToLower(strings.TrimSpace(day)))
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return string(runes)
}
