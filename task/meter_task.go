package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/dratek/powerplan-go/blocks"
	"github.com/dratek/powerplan-go/database"
	"github.com/dratek/powerplan-go/meter"
)

// NewMeterPersistTask returns a task that runs at every block boundary.
// It writes the counter advances of the just-completed block into
// meter_delta and samples the battery state of charge. The first run
// only establishes the counter baseline.
func NewMeterPersistTask(
	logger *slog.Logger,
	db *database.Database,
	counters []meter.CounterConfig,
	readings *meter.Readings,
) func() {
	sourceIDs := make(map[string]int64, len(counters))

	return func() {
		logger.Debug("running meter persist task...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		defer readings.TakeSnapshot()

		now := time.Now()
		for source, soc := range readings.SocSamples() {
			if err := db.SaveBatteryState(ctx, source, now, soc); err != nil {
				logger.Error("meter persist task error", slog.Any("error", err))
			}
		}

		if !readings.HasSnapshot() {
			logger.Info("no counter baseline yet, skipping delta persist")
			return
		}

		when := blocks.FromNow().Sub(1)
		deltas := readings.DeltasSinceSnapshot()

		var rows []database.MeterDeltaRow
		for _, c := range counters {
			delta, ok := deltas[c.Name]
			if !ok {
				continue // counter never reported
			}
			id, ok := sourceIDs[c.Name]
			if !ok {
				var err error
				id, err = db.EnsureMeterSource(ctx, c.Name, c.Kind)
				if err != nil {
					logger.Error("meter persist task error", slog.Any("error", err))
					continue
				}
				sourceIDs[c.Name] = id
			}
			rows = append(rows, database.MeterDeltaRow{SourceID: id, When: when, Delta: delta})
		}

		if len(rows) == 0 {
			logger.Debug("no counter deltas to persist")
			return
		}

		if err := db.SaveMeterDeltas(ctx, rows); err != nil {
			logger.Error("meter persist task error", slog.Any("error", err))
			return
		}

		logger.Debug("meter deltas stored", slog.String("block", when.String()), slog.Int("noOfCounters", len(rows)))
	}
}
