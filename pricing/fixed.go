package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dratek/powerplan-go/blocks"
	"github.com/dratek/powerplan-go/tariff"
	"github.com/dratek/powerplan-go/types"
)

// FixedProvider substitutes an operator-declared flat price for the
// auction feed, optionally split into a T1/T2 pair following the same
// time-of-use schedule as the distribution tariff. The full three-day
// grid is synthesized locally, so tomorrow is never withheld and never
// needs a refetch.
type FixedProvider struct {
	logger   *slog.Logger
	resolver TariffResolver

	area       string
	rateClass  string
	tariffCode string
	priceT1    float64
	priceT2    float64
	fees       Fees
}

func NewFixedProvider(
	logger *slog.Logger,
	resolver TariffResolver,
	area, rateClass, tariffCode string,
	priceT1, priceT2 float64,
	fees Fees,
) *FixedProvider {
	return &FixedProvider{
		logger:     logger,
		resolver:   resolver,
		area:       area,
		rateClass:  rateClass,
		tariffCode: tariffCode,
		priceT1:    priceT1,
		priceT2:    priceT2,
		fees:       fees,
	}
}

func (p *FixedProvider) Rates(ctx context.Context, now time.Time) ([]types.RatePoint, error) {
	local := now.In(blocks.OperatingLocation())
	points := make([]types.RatePoint, 0, 3*blocks.PerDay)

	for dayOffset := -1; dayOffset <= 1; dayOffset++ {
		for _, b := range blocks.LocalDay(local.AddDate(0, 0, dayOffset)) {
			at := b.Time()
			fee, err := p.resolver.Resolve(ctx, p.area, p.rateClass, p.tariffCode, at)
			if err != nil {
				return nil, fmt.Errorf("tariff resolution failed for %s: %w", b, err)
			}
			base := p.priceT1
			if band, err := p.resolver.Band(ctx, p.area, p.rateClass, p.tariffCode, at); err == nil && band == tariff.T2 {
				base = p.priceT2
			}
			points = append(points, types.RatePoint{
				Block: b,
				Rates: FinalPrice(fee, base, p.fees),
			})
		}
	}
	return points, nil
}

func (p *FixedProvider) TomorrowAvailable(time.Time) bool { return false }
