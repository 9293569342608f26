package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dratek/powerplan-go/convert"
)

func (d *Database) SaveBatteryState(ctx context.Context, source string, ts time.Time, soc float64) error {
	_, err := d.write.ExecContext(ctx, `
		INSERT INTO battery_state (source, ts, soc) VALUES (?, ?, ?)
		ON CONFLICT(source, ts) DO UPDATE SET soc = excluded.soc`,
		source,
		ts.UTC().Format(time.RFC3339),
		convert.TwoDecimals(soc))
	if err != nil {
		return fmt.Errorf("saving battery state for %s: %w", source, err)
	}
	return nil
}

// GetBatterySocMean averages the latest reported state of charge of
// every battery source that reported after since. Invalid when no
// source reported in the window.
func (d *Database) GetBatterySocMean(ctx context.Context, since time.Time) (sql.NullFloat64, error) {
	var mean sql.NullFloat64
	err := d.read.QueryRowContext(ctx, `
		SELECT AVG(b.soc)
		FROM battery_state b
			JOIN (
				SELECT source, MAX(ts) AS ts
				FROM battery_state
				WHERE ts >= ?
				GROUP BY source
			) latest ON latest.source = b.source AND latest.ts = b.ts`,
		since.UTC().Format(time.RFC3339)).Scan(&mean)
	if err != nil {
		return sql.NullFloat64{}, fmt.Errorf("fetching battery soc mean: %w", err)
	}
	return mean, nil
}

// GetBatterySocCeiling reports the highest state of charge any battery
// source reached after since.
func (d *Database) GetBatterySocCeiling(ctx context.Context, since time.Time) (sql.NullFloat64, error) {
	var ceiling sql.NullFloat64
	err := d.read.QueryRowContext(ctx, `
		SELECT MAX(soc) FROM battery_state WHERE ts >= ?`,
		since.UTC().Format(time.RFC3339)).Scan(&ceiling)
	if err != nil {
		return sql.NullFloat64{}, fmt.Errorf("fetching battery soc ceiling: %w", err)
	}
	return ceiling, nil
}

func (d *Database) PurgeBatteryState(ctx context.Context, retentionDays int) error {
	d.logger.Debug("purging battery state")
	cutoff := time.Now().Add(-24 * time.Hour * time.Duration(retentionDays))
	_, err := d.write.ExecContext(ctx, `
		DELETE FROM battery_state WHERE ts < ?`,
		cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("purging battery state: %w", err)
	}
	return nil
}
