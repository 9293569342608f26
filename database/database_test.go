package database

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/dratek/powerplan-go/blocks"
)

func testDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestEnsureMeterSourceIsStable(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()

	id1, err := db.EnsureMeterSource(ctx, "sensor.grid_in", SourceGridImport)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := db.EnsureMeterSource(ctx, "sensor.grid_in", SourceGridImport)
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Errorf("re-registering returned a new id: %d vs %d", id1, id2)
	}

	other, err := db.EnsureMeterSource(ctx, "sensor.grid_out", SourceGridExport)
	if err != nil {
		t.Fatal(err)
	}
	if other == id1 {
		t.Error("distinct sources share an id")
	}
}

func TestEssentialHourOfDayStats(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()

	imp, err := db.EnsureMeterSource(ctx, "sensor.grid_in", SourceGridImport)
	if err != nil {
		t.Fatal(err)
	}
	exp, err := db.EnsureMeterSource(ctx, "sensor.grid_out", SourceGridExport)
	if err != nil {
		t.Fatal(err)
	}

	// 2025-06-09 is a Monday, 2025-06-14 a Saturday.
	var rows []MeterDeltaRow
	for block := uint8(32); block < 36; block++ { // hour 8
		rows = append(rows,
			MeterDeltaRow{SourceID: imp, When: blocks.DateBlock{Date: "2025-06-09", Block: block}, Delta: 0.5},
			MeterDeltaRow{SourceID: exp, When: blocks.DateBlock{Date: "2025-06-09", Block: block}, Delta: 0.1},
			MeterDeltaRow{SourceID: imp, When: blocks.DateBlock{Date: "2025-06-14", Block: block}, Delta: 1.0})
	}
	if err := db.SaveMeterDeltas(ctx, rows); err != nil {
		t.Fatal(err)
	}

	workday, err := db.GetEssentialHourOfDayStats(ctx, true, "2025-06-01", "2025-07-01", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(workday) != 1 {
		t.Fatalf("expected one workday hour with data, got %d", len(workday))
	}
	if workday[0].HourOfDay != 8 {
		t.Errorf("expected hour 8, got %d", workday[0].HourOfDay)
	}
	if want := 4 * (0.5 - 0.1); math.Abs(workday[0].Mean-want) > 1e-9 {
		t.Errorf("workday mean expected %f, got %f", want, workday[0].Mean)
	}

	weekend, err := db.GetEssentialHourOfDayStats(ctx, false, "2025-06-01", "2025-07-01", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(weekend) != 1 || weekend[0].HourOfDay != 8 {
		t.Fatalf("unexpected weekend stats: %+v", weekend)
	}
	if want := 4 * 1.0; math.Abs(weekend[0].Mean-want) > 1e-9 {
		t.Errorf("weekend mean expected %f, got %f", want, weekend[0].Mean)
	}

	// A UTC offset shifts the hour bucket.
	shifted, err := db.GetEssentialHourOfDayStats(ctx, true, "2025-06-01", "2025-07-01", 120)
	if err != nil {
		t.Fatal(err)
	}
	if len(shifted) != 1 || shifted[0].HourOfDay != 10 {
		t.Fatalf("unexpected shifted stats: %+v", shifted)
	}
}

func TestBlockActualsAcrossDateBoundary(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()

	imp, err := db.EnsureMeterSource(ctx, "sensor.grid_in", SourceGridImport)
	if err != nil {
		t.Fatal(err)
	}
	err = db.SaveMeterDeltas(ctx, []MeterDeltaRow{
		{SourceID: imp, When: blocks.DateBlock{Date: "2025-06-09", Block: 95}, Delta: 0.3},
		{SourceID: imp, When: blocks.DateBlock{Date: "2025-06-10", Block: 0}, Delta: 0.4},
		{SourceID: imp, When: blocks.DateBlock{Date: "2025-06-10", Block: 50}, Delta: 0.5},
	})
	if err != nil {
		t.Fatal(err)
	}

	actuals, err := db.GetBlockActuals(ctx,
		blocks.DateBlock{Date: "2025-06-09", Block: 90},
		blocks.DateBlock{Date: "2025-06-10", Block: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(actuals) != 2 {
		t.Fatalf("expected 2 rows in range, got %d", len(actuals))
	}
	if actuals[0].When.Date != "2025-06-09" || actuals[0].When.Block != 95 {
		t.Errorf("unexpected first row: %+v", actuals[0].When)
	}
	if actuals[1].Cost.Valid {
		t.Error("cost should be invalid when no cost counter reported")
	}
	if math.Abs(actuals[1].Imported-0.4) > 1e-9 {
		t.Errorf("imported expected 0.4, got %f", actuals[1].Imported)
	}
}

func TestBatterySocQueries(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	now := time.Now()

	for i, soc := range []float64{40, 60, 80} {
		ts := now.Add(-time.Duration(i) * 10 * time.Minute)
		if err := db.SaveBatteryState(ctx, "battery_a", ts, soc); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.SaveBatteryState(ctx, "battery_b", now, 90); err != nil {
		t.Fatal(err)
	}
	// Outside of any trailing-hour window.
	if err := db.SaveBatteryState(ctx, "battery_b", now.Add(-2*time.Hour), 10); err != nil {
		t.Fatal(err)
	}

	mean, err := db.GetBatterySocMean(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if !mean.Valid {
		t.Fatal("expected a valid mean")
	}
	// Latest per source: battery_a 40, battery_b 90.
	if want := (40.0 + 90.0) / 2; math.Abs(mean.Float64-want) > 1e-9 {
		t.Errorf("mean expected %f, got %f", want, mean.Float64)
	}

	ceiling, err := db.GetBatterySocCeiling(ctx, now.Add(-30*24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if !ceiling.Valid || ceiling.Float64 != 90 {
		t.Errorf("ceiling expected 90, got %+v", ceiling)
	}

	empty, err := db.GetBatterySocMean(ctx, now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if empty.Valid {
		t.Error("mean should be invalid for an empty window")
	}
}
