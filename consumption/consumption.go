package consumption

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dratek/powerplan-go/blocks"
	"github.com/dratek/powerplan-go/convert"
	"github.com/dratek/powerplan-go/database"
)

type Store interface {
	GetEssentialHourOfDayStats(ctx context.Context, workday bool, fromDate, beforeDate string, offsetMinutes int) ([]database.HourOfDayStat, error)
	GetBlockActuals(ctx context.Context, from, to blocks.DateBlock) ([]database.BlockActualsRow, error)
	GetBatterySocMean(ctx context.Context, since time.Time) (sql.NullFloat64, error)
	GetBatterySocCeiling(ctx context.Context, since time.Time) (sql.NullFloat64, error)
}

type BlockStat struct {
	Mean float64
	Min  float64
	Max  float64
}

// Series is one installation's consumption picture: per-block historical
// aggregates for today and tomorrow, today's metered actuals, and the
// battery figures derived from the trailing windows.
type Series struct {
	Stats      map[blocks.DateBlock]BlockStat
	Today      map[blocks.DateBlock]database.BlockActualsRow
	BatterySoc sql.NullFloat64
	SocCeiling sql.NullFloat64
}

// TodayConsumption sums today's metered consumption in kWh.
func (s *Series) TodayConsumption() float64 {
	sum := 0.0
	for _, a := range s.Today {
		sum += a.Consumption
	}
	return convert.FourDecimals(sum)
}

// Aggregator keeps the trailing-month statistics cached between updates.
// The month aggregation is only re-run while the most recently completed
// hour has no reported actual yet; once the statistics collaborator has
// caught up the cache holds until the next hour completes.
type Aggregator struct {
	logger *slog.Logger
	store  Store

	mu          sync.Mutex
	workdayStat map[int]database.HourOfDayStat
	weekendStat map[int]database.HourOfDayStat
	aggregated  map[time.Time]bool
}

func NewAggregator(logger *slog.Logger, store Store) *Aggregator {
	return &Aggregator{
		logger:     logger,
		store:      store,
		aggregated: make(map[time.Time]bool),
	}
}

func (a *Aggregator) Update(ctx context.Context, now time.Time) (*Series, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	local := now.In(blocks.OperatingLocation())
	today := blocks.LocalDay(local)
	prevHourStart := local.Truncate(time.Hour).Add(-time.Hour)
	prevHourFirst := blocks.FromTime(prevHourStart)

	// The whole of today, stretched back when the previous hour still
	// belongs to yesterday shortly after midnight.
	from := today[0]
	if prevHourFirst.Compare(from) < 0 {
		from = prevHourFirst
	}

	actuals, err := a.store.GetBlockActuals(ctx, from, today[len(today)-1])
	if err != nil {
		return nil, fmt.Errorf("fetching today's actuals: %w", err)
	}

	lastHourReported := false
	prevHourLast := prevHourFirst.Add(blocks.PerHour - 1)
	for _, row := range actuals {
		if row.When.Compare(prevHourFirst) >= 0 && row.When.Compare(prevHourLast) <= 0 {
			lastHourReported = true
			break
		}
	}

	if a.workdayStat == nil || !a.aggregated[prevHourStart] {
		if err := a.recompute(ctx, local); err != nil {
			return nil, err
		}
		if lastHourReported {
			a.aggregated = map[time.Time]bool{prevHourStart: true}
		}
	}

	series := &Series{
		Stats: make(map[blocks.DateBlock]BlockStat),
		Today: make(map[blocks.DateBlock]database.BlockActualsRow),
	}

	for dayOffset := 0; dayOffset <= 1; dayOffset++ {
		day := local.AddDate(0, 0, dayOffset)
		stats := a.weekendStat
		if blocks.Workday(blocks.WeekdayIndex(day)) {
			stats = a.workdayStat
		}
		for _, b := range blocks.LocalDay(day) {
			stat, ok := stats[b.LocalTime().Hour()]
			if !ok {
				continue
			}
			series.Stats[b] = BlockStat{
				Mean: stat.Mean / blocks.PerHour,
				Min:  stat.Min / blocks.PerHour,
				Max:  stat.Max / blocks.PerHour,
			}
		}
	}

	todayDate := today[0]
	for _, row := range actuals {
		if row.When.Compare(todayDate) >= 0 {
			series.Today[row.When] = row
		}
	}

	// Battery figures are an enhancement, their failures stay here.
	soc, err := a.store.GetBatterySocMean(ctx, now.Add(-time.Hour))
	if err != nil {
		a.logger.Warn("battery soc mean unavailable", slog.Any("error", err))
	} else {
		series.BatterySoc = soc
	}
	ceiling, err := a.store.GetBatterySocCeiling(ctx, now.AddDate(0, -1, 0))
	if err != nil {
		a.logger.Warn("battery soc ceiling unavailable", slog.Any("error", err))
	} else {
		series.SocCeiling = ceiling
	}

	return series, nil
}

func (a *Aggregator) recompute(ctx context.Context, local time.Time) error {
	fromDate := local.AddDate(0, -1, 0).Format(time.DateOnly)
	beforeDate := local.AddDate(0, 0, 1).Format(time.DateOnly)
	_, offsetSeconds := local.Zone()
	offsetMinutes := offsetSeconds / 60

	a.logger.Debug("recomputing trailing-month statistics",
		slog.String("from", fromDate),
		slog.String("before", beforeDate))

	workday, err := a.store.GetEssentialHourOfDayStats(ctx, true, fromDate, beforeDate, offsetMinutes)
	if err != nil {
		return fmt.Errorf("aggregating workday stats: %w", err)
	}
	weekend, err := a.store.GetEssentialHourOfDayStats(ctx, false, fromDate, beforeDate, offsetMinutes)
	if err != nil {
		return fmt.Errorf("aggregating weekend stats: %w", err)
	}

	a.workdayStat = indexByHour(workday)
	a.weekendStat = indexByHour(weekend)
	return nil
}

func indexByHour(stats []database.HourOfDayStat) map[int]database.HourOfDayStat {
	byHour := make(map[int]database.HourOfDayStat, len(stats))
	for _, s := range stats {
		byHour[s.HourOfDay] = s
	}
	return byHour
}
