package task

import (
	"context"
	"log/slog"

	"github.com/dratek/powerplan-go/config"
	"github.com/dratek/powerplan-go/coordinator"
	"github.com/dratek/powerplan-go/database"
	"github.com/dratek/powerplan-go/meter"
	"github.com/robfig/cron/v3"
)

type Tasks struct {
	cron             *cron.Cron
	MeterPersistTask func()
	PlannerTickTask  func()
	MaintenanceTask  func()
}

func NewTasks(
	db *database.Database,
	coord *coordinator.Coordinator,
	counters []meter.CounterConfig,
	readings *meter.Readings,
	cnfg *config.AppConfig,
) *Tasks {
	logger := slog.Default().With("module", "tasks")
	return &Tasks{
		cron:             cron.New(),
		MeterPersistTask: NewMeterPersistTask(logger.With(slog.String("task", "meter_persist")), db, counters, readings),
		PlannerTickTask:  coord.Tick,
		MaintenanceTask:  NewMaintenanceTask(logger.With(slog.String("task", "maintenance")), db, cnfg),
	}
}

func (t *Tasks) Run() {
	// Block boundaries, so the persisted deltas line up with the grid.
	_, err := t.cron.AddFunc("*/15 * * * *", t.MeterPersistTask)
	if err != nil {
		panic(err)
	}
	_, err = t.cron.AddFunc("* * * * *", t.PlannerTickTask)
	if err != nil {
		panic(err)
	}
	_, err = t.cron.AddFunc("30 2 * * *", t.MaintenanceTask)
	if err != nil {
		panic(err)
	}
	t.cron.Start()
}

func (t *Tasks) Stop() context.Context {
	return t.cron.Stop()
}
