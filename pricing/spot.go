package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dratek/powerplan-go/ote"
	"github.com/dratek/powerplan-go/tariff"
	"github.com/dratek/powerplan-go/types"
)

// The day-ahead auction clears in EUR/MWh.
const auctionCurrency = "EUR"

type TariffResolver interface {
	Resolve(ctx context.Context, area, rateClass, code string, at time.Time) (float64, error)
	Band(ctx context.Context, area, rateClass, code string, at time.Time) (tariff.Band, error)
}

type SpotSource interface {
	GetDamPrices(ctx context.Context, now time.Time) ([]ote.DamPrice, error)
	TomorrowAvailable(now time.Time) bool
}

type FxSource interface {
	EuroRate(ctx context.Context) (float64, error)
}

// SpotProvider prices every block from the day-ahead auction feed plus
// the regulated distribution tariff.
type SpotProvider struct {
	logger   *slog.Logger
	resolver TariffResolver
	spot     SpotSource
	fx       FxSource

	area       string
	rateClass  string
	tariffCode string
	currency   string
	fees       Fees
}

func NewSpotProvider(
	logger *slog.Logger,
	resolver TariffResolver,
	spot SpotSource,
	fx FxSource,
	area, rateClass, tariffCode, currency string,
	fees Fees,
) *SpotProvider {
	return &SpotProvider{
		logger:     logger,
		resolver:   resolver,
		spot:       spot,
		fx:         fx,
		area:       area,
		rateClass:  rateClass,
		tariffCode: tariffCode,
		currency:   currency,
		fees:       fees,
	}
}

func (p *SpotProvider) Rates(ctx context.Context, now time.Time) ([]types.RatePoint, error) {
	// The FX list is only consulted when the operating currency
	// differs from the auction's.
	factor := 1.0
	if p.currency != auctionCurrency {
		rate, err := p.fx.EuroRate(ctx)
		if err != nil {
			return nil, fmt.Errorf("currency conversion failed: %w", err)
		}
		factor = rate
	}

	dam, err := p.spot.GetDamPrices(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("spot price fetch failed: %w", err)
	}

	points := make([]types.RatePoint, 0, len(dam))
	for _, dp := range dam {
		base := dp.Price * factor / 1000 // EUR/MWh to currency/kWh
		fee, err := p.resolver.Resolve(ctx, p.area, p.rateClass, p.tariffCode, dp.Block.Time())
		if err != nil {
			return nil, fmt.Errorf("tariff resolution failed for %s: %w", dp.Block, err)
		}
		points = append(points, types.RatePoint{
			Block: dp.Block,
			Rates: FinalPrice(fee, base, p.fees),
		})
	}
	return points, nil
}

func (p *SpotProvider) TomorrowAvailable(now time.Time) bool {
	return p.spot.TomorrowAvailable(now)
}
