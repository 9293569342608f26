package pricing

import (
	"context"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/dratek/powerplan-go/blocks"
	"github.com/dratek/powerplan-go/ote"
	"github.com/dratek/powerplan-go/tariff"
)

func TestFinalPrice(t *testing.T) {
	fees := Fees{Cost: 0.300, Compensation: 0.400}
	triad := FinalPrice(0.721, 2.000, fees)

	if !almostEqual(triad.Cost, (0.721+2.000+0.300)*1.21) {
		t.Errorf("cost rate expected %f, got %f", (0.721+2.000+0.300)*1.21, triad.Cost)
	}
	if !almostEqual(triad.Compensation, 2.000-0.400) {
		t.Errorf("compensation rate expected %f, got %f", 2.000-0.400, triad.Compensation)
	}
	if !almostEqual(triad.Spot, 2.000*1.21) {
		t.Errorf("spot rate expected %f, got %f", 2.000*1.21, triad.Spot)
	}
}

func TestFinalPriceMonotonicInBasePrice(t *testing.T) {
	fees := Fees{Cost: 0.3, Compensation: 0.4}
	prev := math.Inf(-1)
	for base := -2.0; base <= 6.0; base += 0.25 {
		triad := FinalPrice(0.721, base, fees)
		if triad.Cost <= prev {
			t.Fatalf("cost rate not strictly increasing at base %f", base)
		}
		prev = triad.Cost
	}
}

type fakeResolver struct {
	feeT1 float64
	feeT2 float64
	sched *tariff.Schedule
}

func (f fakeResolver) Resolve(_ context.Context, _, _, _ string, at time.Time) (float64, error) {
	if f.band(at) == tariff.T2 {
		return f.feeT2, nil
	}
	return f.feeT1, nil
}

func (f fakeResolver) Band(_ context.Context, _, _, _ string, at time.Time) (tariff.Band, error) {
	return f.band(at), nil
}

func (f fakeResolver) band(at time.Time) tariff.Band {
	lt := at.In(blocks.OperatingLocation())
	return tariff.Classify(f.sched, blocks.WeekdayIndex(lt), lt.Hour()*60+lt.Minute())
}

type fakeSpot struct {
	prices []ote.DamPrice
}

func (f fakeSpot) GetDamPrices(context.Context, time.Time) ([]ote.DamPrice, error) {
	return f.prices, nil
}

func (f fakeSpot) TomorrowAvailable(time.Time) bool { return true }

type fxSpy struct {
	rate   float64
	called bool
}

func (f *fxSpy) EuroRate(context.Context) (float64, error) {
	f.called = true
	return f.rate, nil
}

func TestSpotProviderSkipsFxForNativeCurrency(t *testing.T) {
	fx := &fxSpy{rate: 25.0}
	spot := fakeSpot{prices: []ote.DamPrice{
		{Block: blocks.DateBlock{Date: "2025-01-08", Block: 40}, Price: 100.0}, // EUR/MWh
	}}
	p := NewSpotProvider(slog.Default(), fakeResolver{feeT1: 0.7}, spot, fx,
		"cez", "D57d", "EVV1", "EUR", Fees{})

	points, err := p.Rates(context.Background(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if fx.called {
		t.Error("FX source consulted although operating currency is the auction's")
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	// 100 EUR/MWh with factor 1 is 0.1 EUR/kWh.
	if want := (0.7 + 0.1) * 1.21; !almostEqual(points[0].Rates.Cost, want) {
		t.Errorf("cost rate expected %f, got %f", want, points[0].Rates.Cost)
	}
}

func TestSpotProviderConvertsCurrency(t *testing.T) {
	fx := &fxSpy{rate: 25.0}
	spot := fakeSpot{prices: []ote.DamPrice{
		{Block: blocks.DateBlock{Date: "2025-01-08", Block: 40}, Price: 100.0},
	}}
	p := NewSpotProvider(slog.Default(), fakeResolver{feeT1: 0.7}, spot, fx,
		"cez", "D57d", "EVV1", "CZK", Fees{})

	points, err := p.Rates(context.Background(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if !fx.called {
		t.Error("FX source not consulted for a non-native operating currency")
	}
	// 100 EUR/MWh at 25 CZK/EUR is 2.5 CZK/kWh.
	if want := 2.5 * 1.21; !almostEqual(points[0].Rates.Spot, want) {
		t.Errorf("spot rate expected %f, got %f", want, points[0].Rates.Spot)
	}
}

func TestFixedProviderFullGrid(t *testing.T) {
	sched := tariff.Schedule{}
	p := NewFixedProvider(slog.Default(), fakeResolver{feeT1: 0.7, sched: &sched},
		"cez", "D57d", "EVV1", 2.0, 1.5, Fees{})

	points, err := p.Rates(context.Background(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 3*blocks.PerDay {
		t.Fatalf("expected %d points, got %d", 3*blocks.PerDay, len(points))
	}
	perDay := map[string]int{}
	for _, pt := range points {
		perDay[pt.Block.LocalDate()]++
		if m := pt.Block.Time().Minute(); m%15 != 0 {
			t.Fatalf("block %s off the 15-minute grid", pt.Block)
		}
		// Empty schedule means T1 everywhere.
		if want := (0.7 + 2.0) * 1.21; !almostEqual(pt.Rates.Cost, want) {
			t.Fatalf("cost rate expected %f, got %f", want, pt.Rates.Cost)
		}
	}
	if len(perDay) != 3 {
		t.Fatalf("expected 3 local days, got %d", len(perDay))
	}
	for day, n := range perDay {
		if n != blocks.PerDay {
			t.Errorf("day %s has %d blocks", day, n)
		}
	}
	if p.TomorrowAvailable(time.Now()) {
		t.Error("fixed provider should never report tomorrow as pending publication")
	}
}

func almostEqual(f1 float64, f2 float64) bool {
	return math.Abs(f1-f2) < 1e-9
}
