package forecast

import (
	"context"
	"time"

	"github.com/dratek/powerplan-go/blocks"
)

// Provider supplies a production forecast as energy per entry in
// watt-hours, keyed by the entry's start time. Entries may sit on an
// hourly, half-hourly or quarter-hourly grid.
type Provider interface {
	WhHours(ctx context.Context) (map[time.Time]float64, error)
}

// Merge maps a forecast onto the block grid. The entry granularity is
// detected per key from its neighbours: a quarter-hourly entry covers
// one block, a half-hourly entry two and an hourly entry four, with the
// energy split evenly and replicated over the covered blocks. Blocks
// without any forecast entry stay at zero.
func Merge(keys []blocks.DateBlock, whHours map[time.Time]float64) map[blocks.DateBlock]float64 {
	merged := make(map[blocks.DateBlock]float64, len(keys))
	for _, b := range keys {
		merged[b] = 0
	}

	has := func(ts time.Time) bool {
		_, ok := whHours[ts.UTC()]
		return ok
	}

	for _, b := range keys {
		ts := b.Time()
		wh, ok := whHours[ts]
		if !ok {
			continue
		}

		quarter := has(ts.Add(15*time.Minute)) || has(ts.Add(-15*time.Minute))
		half := quarter || has(ts.Add(30*time.Minute)) || has(ts.Add(-30*time.Minute))

		div := 4.0
		if quarter {
			div = 1.0
		} else if half {
			div = 2.0
		}

		kwh := wh / 1000 / div
		if kwh == 0 {
			continue
		}

		merged[b] = kwh
		if quarter {
			continue
		}
		extra := 3 // hourly entry covers three more blocks
		if half {
			extra = 1
		}
		for i := 1; i <= extra; i++ {
			next := b.Add(i)
			if _, ok := merged[next]; ok {
				merged[next] = kwh
			}
		}
	}

	return merged
}
