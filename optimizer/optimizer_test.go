package optimizer

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dratek/powerplan-go/blocks"
	"github.com/dratek/powerplan-go/consumption"
	"github.com/dratek/powerplan-go/database"
	"github.com/dratek/powerplan-go/types"
)

func testSeries(now blocks.DateBlock) *consumption.Series {
	return &consumption.Series{
		Stats: map[blocks.DateBlock]consumption.BlockStat{
			now:        {Mean: 0.4, Min: 0.1, Max: 0.8},
			now.Add(1): {Mean: 0.5, Min: 0.2, Max: 1.0},
		},
		Today: map[blocks.DateBlock]database.BlockActualsRow{
			now: {When: now, Consumption: 1.5},
		},
		BatterySoc: sql.NullFloat64{Float64: 55, Valid: true},
	}
}

func testPoints(now blocks.DateBlock) []types.RatePoint {
	return []types.RatePoint{
		{Block: now.Sub(1), Rates: types.RateTriad{Cost: 9.9}}, // behind now, dropped
		{Block: now, Rates: types.RateTriad{Cost: 3.5}},
		{Block: now.Add(1), Rates: types.RateTriad{Cost: 2.5}},
	}
}

func TestBuildRequest(t *testing.T) {
	now := blocks.DateBlock{Date: "2025-06-13", Block: 40}
	spec := BatterySpec{
		ChargePowerKw:    4.0,
		DischargePowerKw: 6.0,
		SocMinPercent:    20,
		SocMaxPercent:    90,
		CapacityKwh:      10,
		AmortizationCost: 1.5,
	}

	req, keys := BuildRequest(testPoints(now), now,
		map[blocks.DateBlock]float64{now: 0.3},
		testSeries(now), spec, BatteryState{Soc: 55, Ceiling: 97})

	if len(keys) != 2 || keys[0] != now || keys[1] != now.Add(1) {
		t.Fatalf("unexpected keys: %v", keys)
	}
	if req.Rate[0] != [2]float64{3.5, 0} {
		t.Errorf("unexpected first rate: %v", req.Rate[0])
	}
	if req.Production[0] != 0.3 || req.Production[1] != 0 {
		t.Errorf("unexpected production: %v", req.Production)
	}
	// Today's actual 1.5 beats the historical max 0.8 for the first entry.
	if want := 1.5 * 1.2; math.Abs(req.Consumption[0]-want) > 1e-9 {
		t.Errorf("first consumption expected %f, got %f", want, req.Consumption[0])
	}
	if want := 0.5 * 1.2; math.Abs(req.Consumption[1]-want) > 1e-9 {
		t.Errorf("second consumption expected %f, got %f", want, req.Consumption[1])
	}
	if req.Constraints.Soc != 0.55 {
		t.Errorf("soc expected 0.55, got %f", req.Constraints.Soc)
	}
	if req.Constraints.ChargePower != 1.0 || req.Constraints.DischargePower != 1.5 {
		t.Errorf("unexpected power constraints: %+v", req.Constraints)
	}
	// Ceiling below the 98% threshold lifts soc_max to 100%.
	if req.Constraints.SocMax != 1.0 {
		t.Errorf("soc_max expected 1.0, got %f", req.Constraints.SocMax)
	}

	req, _ = BuildRequest(testPoints(now), now, nil, testSeries(now), spec, BatteryState{Soc: 55, Ceiling: 99})
	if req.Constraints.SocMax != 0.9 {
		t.Errorf("soc_max expected 0.9 with a full-range battery, got %f", req.Constraints.SocMax)
	}
}

func TestBuildRequestFloorsConsumption(t *testing.T) {
	now := blocks.DateBlock{Date: "2025-06-13", Block: 40}
	series := &consumption.Series{
		Stats: map[blocks.DateBlock]consumption.BlockStat{},
		Today: map[blocks.DateBlock]database.BlockActualsRow{},
	}

	req, _ := BuildRequest(testPoints(now), now, nil, series, BatterySpec{}, BatteryState{})

	for i, c := range req.Consumption {
		if want := 0.2 * 1.2; math.Abs(c-want) > 1e-9 {
			t.Errorf("consumption %d expected floor %f, got %f", i, want, c)
		}
	}
}

func TestOptimizeParsesResponse(t *testing.T) {
	now := blocks.DateBlock{Date: "2025-06-13", Block: 40}
	keys := []blocks.DateBlock{now, now.Add(1)}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "secret" {
			t.Errorf("missing api key header")
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("unreadable request: %v", err)
		}
		json.NewEncoder(w).Encode([]any{
			[]float64{0, 12.34, 0, 0.56},
			[][]float64{
				{0.55, 1.0, 0, 1, 0, 0},
				{0.75, 0, 1.5, 0, 1, 1},
			},
		})
	}))
	defer srv.Close()

	c := New(slog.Default(), srv.URL, "secret", time.Second)
	result, err := c.Optimize(context.Background(), Request{}, keys)
	if err != nil {
		t.Fatal(err)
	}
	if result.PredictedCost != 12.34 || result.PredictedAmortization != 0.56 {
		t.Errorf("unexpected summary: %+v", result)
	}
	if len(result.Schedule) != 2 {
		t.Fatalf("expected 2 schedule entries, got %d", len(result.Schedule))
	}
	first := result.Schedule[0]
	if first.Block != now || first.Soc != 0.55 || !first.ChargeFlag || first.DischargeFlag {
		t.Errorf("unexpected first entry: %+v", first)
	}
	second := result.Schedule[1]
	if second.Block != now.Add(1) || !second.CurtailFlag || second.Discharge != 1.5 {
		t.Errorf("unexpected second entry: %+v", second)
	}
}

func TestOptimizeTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(slog.Default(), srv.URL, "secret", 50*time.Millisecond)
	_, err := c.Optimize(context.Background(), Request{}, nil)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestOptimizeRejectsMisalignedSchedule(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]any{
			[]float64{0, 1, 0, 2},
			[][]float64{{0.5, 0, 0}},
		})
	}))
	defer srv.Close()

	c := New(slog.Default(), srv.URL, "secret", time.Second)
	_, err := c.Optimize(context.Background(), Request{}, []blocks.DateBlock{
		{Date: "2025-06-13", Block: 40},
		{Date: "2025-06-13", Block: 41},
	})
	if err == nil {
		t.Fatal("expected an alignment error")
	}
}
