package meter

import (
	"maps"
	"sync"
	"time"

	"github.com/dratek/powerplan-go/convert"
)

type socSample struct {
	Value float64
	At    time.Time
}

// Readings holds the latest reported counter values and battery state
// of charge, plus a snapshot of the counters taken at the last block
// boundary.
type Readings struct {
	mu       sync.RWMutex
	counters map[string]float64
	soc      map[string]socSample
	snapshot map[string]float64
	hasSnap  bool
}

func NewReadings() *Readings {
	return &Readings{
		counters: make(map[string]float64),
		soc:      make(map[string]socSample),
	}
}

func (r *Readings) SetCounter(name string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] = value
}

func (r *Readings) Counter(name string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.counters[name]
	return v, ok
}

func (r *Readings) SetSoc(source string, value float64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.soc[source] = socSample{Value: value, At: at}
}

func (r *Readings) SocSamples() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	samples := make(map[string]float64, len(r.soc))
	for source, s := range r.soc {
		samples[source] = s.Value
	}
	return samples
}

func (r *Readings) Healthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.counters) > 0 || len(r.soc) > 0
}

func (r *Readings) HasSnapshot() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasSnap
}

func (r *Readings) TakeSnapshot() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = maps.Clone(r.counters)
	r.hasSnap = true
}

// DeltasSinceSnapshot reports how much every counter advanced since the
// last snapshot. A counter below its snapshot value was reset, in which
// case the current value is the whole delta.
func (r *Readings) DeltasSinceSnapshot() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	deltas := make(map[string]float64, len(r.counters))
	for name, current := range r.counters {
		prev, ok := r.snapshot[name]
		if !ok || current < prev {
			deltas[name] = convert.FourDecimals(current)
			continue
		}
		deltas[name] = convert.FourDecimals(current - prev)
	}
	return deltas
}
