package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dratek/powerplan-go/blocks"
	"github.com/dratek/powerplan-go/convert"
)

// SourceKind classifies a meter counter for the consumption arithmetic.
// Kinds feeding the household are added, kinds leaving it are subtracted,
// and excluded counters are removed from the essential figure only.
type SourceKind string

const (
	SourceGridImport   SourceKind = "grid_import"
	SourceGridExport   SourceKind = "grid_export"
	SourceProduction   SourceKind = "production"
	SourceBatteryIn    SourceKind = "battery_in"
	SourceBatteryOut   SourceKind = "battery_out"
	SourceCost         SourceKind = "cost"
	SourceCompensation SourceKind = "compensation"
	SourceExcluded     SourceKind = "excluded"
)

type MeterDeltaRow struct {
	SourceID int64
	When     blocks.DateBlock
	Delta    float64
}

// EnsureMeterSource registers a counter by name and returns its id. The
// kind is updated in place when the configuration changed.
func (d *Database) EnsureMeterSource(ctx context.Context, name string, kind SourceKind) (int64, error) {
	var id int64
	err := d.write.QueryRowContext(ctx, `
		INSERT INTO meter_source (name, kind) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET kind = excluded.kind
		RETURNING id`,
		name, string(kind)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("registering meter source %s: %w", name, err)
	}
	return id, nil
}

func (d *Database) SaveMeterDeltas(ctx context.Context, rows []MeterDeltaRow) error {
	for _, row := range rows {
		_, err := d.write.ExecContext(ctx, `
			INSERT INTO meter_delta (source_id, date, block, delta) VALUES (?, ?, ?, ?)
			ON CONFLICT(source_id, date, block) DO UPDATE SET delta = excluded.delta`,
			row.SourceID,
			row.When.Date,
			row.When.Block,
			convert.RoundFloat64(row.Delta, 4))
		if err != nil {
			return fmt.Errorf("saving meter delta for %s: %w", row.When, err)
		}
	}
	return nil
}

type HourOfDayStat struct {
	HourOfDay int
	Mean      float64
	Min       float64
	Max       float64
}

// GetEssentialHourOfDayStats aggregates the essential household
// consumption per local hour of day over [fromDate, beforeDate),
// restricted to either workdays or weekend days. Blocks are stored on
// the UTC grid, offsetMinutes shifts them into the operating timezone.
// Hours with no deltas produce no row.
func (d *Database) GetEssentialHourOfDayStats(ctx context.Context, workday bool, fromDate, beforeDate string, offsetMinutes int) ([]HourOfDayStat, error) {
	rows, err := d.read.QueryContext(ctx, `
		WITH hourly AS (
			SELECT
				strftime('%Y-%m-%d', d.date, (d.block * 15 + ?1) || ' minutes') AS local_date,
				CAST(strftime('%H', d.date, (d.block * 15 + ?1) || ' minutes') AS INTEGER) AS hour_of_day,
				SUM(CASE
					WHEN s.kind IN ('grid_import', 'production', 'battery_out') THEN d.delta
					WHEN s.kind IN ('grid_export', 'battery_in', 'excluded') THEN -d.delta
					ELSE 0
				END) AS essential
			FROM meter_delta d
				JOIN meter_source s ON s.id = d.source_id
			WHERE d.date >= ?2 AND d.date < ?3
			GROUP BY local_date, hour_of_day
		)
		SELECT hour_of_day, AVG(essential), MIN(essential), MAX(essential)
		FROM hourly
		WHERE (CAST(strftime('%u', local_date) AS INTEGER) - 1 < 5) = ?4
		GROUP BY hour_of_day
		ORDER BY hour_of_day ASC`,
		offsetMinutes, fromDate, beforeDate, workday)
	if err != nil {
		return nil, fmt.Errorf("fetching hour-of-day stats: %w", err)
	}
	defer rows.Close()

	var stats []HourOfDayStat
	for rows.Next() {
		var s HourOfDayStat
		if err := rows.Scan(&s.HourOfDay, &s.Mean, &s.Min, &s.Max); err != nil {
			return nil, fmt.Errorf("scanning hour-of-day stats row: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading hour-of-day stats rows: %w", err)
	}

	return stats, nil
}

type BlockActualsRow struct {
	When         blocks.DateBlock
	Consumption  float64
	Production   float64
	Imported     float64
	Exported     float64
	Cost         sql.NullFloat64
	Compensation sql.NullFloat64
}

// GetBlockActuals returns the metered per-block figures between from and
// to inclusive. The range may span a date boundary.
func (d *Database) GetBlockActuals(ctx context.Context, from, to blocks.DateBlock) ([]BlockActualsRow, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT
			d.date,
			d.block,
			SUM(CASE
				WHEN s.kind IN ('grid_import', 'production', 'battery_out') THEN d.delta
				WHEN s.kind IN ('grid_export', 'battery_in') THEN -d.delta
				ELSE 0
			END) AS consumption,
			SUM(CASE WHEN s.kind = 'production' THEN d.delta ELSE 0 END) AS production,
			SUM(CASE WHEN s.kind = 'grid_import' THEN d.delta ELSE 0 END) AS imported,
			SUM(CASE WHEN s.kind = 'grid_export' THEN d.delta ELSE 0 END) AS exported,
			SUM(CASE WHEN s.kind = 'cost' THEN d.delta ELSE NULL END) AS cost,
			SUM(CASE WHEN s.kind = 'compensation' THEN d.delta ELSE NULL END) AS compensation
		FROM meter_delta d
			JOIN meter_source s ON s.id = d.source_id
		WHERE (d.date > ? OR (d.date = ? AND d.block >= ?))
			AND (d.date < ? OR (d.date = ? AND d.block <= ?))
		GROUP BY d.date, d.block
		ORDER BY d.date, d.block ASC`,
		from.Date, from.Date, from.Block,
		to.Date, to.Date, to.Block)
	if err != nil {
		return nil, fmt.Errorf("fetching block actuals from %s: %w", from, err)
	}
	defer rows.Close()

	var actuals []BlockActualsRow
	for rows.Next() {
		var a BlockActualsRow
		err := rows.Scan(
			&a.When.Date,
			&a.When.Block,
			&a.Consumption,
			&a.Production,
			&a.Imported,
			&a.Exported,
			&a.Cost,
			&a.Compensation)
		if err != nil {
			return nil, fmt.Errorf("scanning block actuals row: %w", err)
		}
		actuals = append(actuals, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading block actuals rows: %w", err)
	}

	return actuals, nil
}

func (d *Database) PurgeMeterDeltas(ctx context.Context, retentionDays int) error {
	return d.purgeBlockTable(ctx, "meter_delta", retentionDays)
}
