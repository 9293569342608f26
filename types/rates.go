package types

import (
	"context"
	"time"

	"github.com/dratek/powerplan-go/blocks"
)

// RateTriad is the effective price of one block in currency per kWh.
type RateTriad struct {
	Cost         float64 // grid fees + energy + supplier fee, taxed
	Compensation float64 // credited for exported energy
	Spot         float64 // raw auction price, taxed
}

type RatePoint struct {
	Block blocks.DateBlock
	Rates RateTriad
}

// RateProvider resolves the full three-day rate series for an
// installation. Bound once at startup by configuration.
type RateProvider interface {
	// Rates returns the series covering yesterday, today and tomorrow
	// in the operating zone, 96 blocks per published day. Tomorrow may
	// be absent before the provider's publication cutoff.
	Rates(ctx context.Context, now time.Time) ([]RatePoint, error)
	// TomorrowAvailable reports whether the provider has published
	// tomorrow's prices at the given instant.
	TomorrowAvailable(now time.Time) bool
}

// NoopProvider is the default binding when no country provider is
// configured. It never yields rates and never promises tomorrow.
type NoopProvider struct{}

func (NoopProvider) Rates(context.Context, time.Time) ([]RatePoint, error) {
	return nil, nil
}

func (NoopProvider) TomorrowAvailable(time.Time) bool { return false }
