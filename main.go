package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dratek/powerplan-go/blocks"
	"github.com/dratek/powerplan-go/cnb"
	"github.com/dratek/powerplan-go/config"
	"github.com/dratek/powerplan-go/consumption"
	"github.com/dratek/powerplan-go/coordinator"
	"github.com/dratek/powerplan-go/database"
	"github.com/dratek/powerplan-go/forecast"
	"github.com/dratek/powerplan-go/logging"
	"github.com/dratek/powerplan-go/meter"
	"github.com/dratek/powerplan-go/optimizer"
	"github.com/dratek/powerplan-go/ote"
	"github.com/dratek/powerplan-go/pricing"
	"github.com/dratek/powerplan-go/tariff"
	"github.com/dratek/powerplan-go/task"
	"github.com/dratek/powerplan-go/types"
	"github.com/dratek/powerplan-go/www"
	"github.com/lmittmann/tint"
)

var Version = "?.?.?"

func main() {
	defer func() {
		if err := recover(); err != nil {
			exitWithError(slog.Default(), fmt.Errorf("application panicked: %v", err))
		} else {
			slog.Default().Info("application is shutting down...")
		}
	}()

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cnfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if err := blocks.SetOperatingTimezone(cnfg.GetTimezone()); err != nil {
		panic(fmt.Sprintf("failed to set operating timezone: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consoleHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cnfg.Logging.GetConsoleLevel(),
		TimeFormat: time.RFC3339,
	})
	slog.New(consoleHandler).Debug("powerplan is starting...", slog.String("version", Version))

	db, err := database.New(ctx, cnfg.Database.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to connect to database: %v", err))
	}
	defer db.Close()

	logger := slog.New(logging.NewMultiHandler(
		consoleHandler,
		logging.NewSQLiteHandler(db, cnfg.Logging.GetDbLevel(), cnfg.Logging.GetDbAttrsFormat())))
	slog.SetDefault(logger)

	// Now we can use the logger to log database operations into the database itself
	db.SetLogger(logger.With("module", "database"))

	counters := make([]meter.CounterConfig, 0, len(cnfg.Meter.Counters))
	for _, c := range cnfg.Meter.Counters {
		counters = append(counters, meter.CounterConfig{
			Name:  c.Name,
			Topic: c.Topic,
			Kind:  database.SourceKind(c.Kind),
		})
	}
	batteries := make([]meter.BatteryConfig, 0, len(cnfg.Meter.Batteries))
	for _, b := range cnfg.Meter.Batteries {
		batteries = append(batteries, meter.BatteryConfig{
			Name:     b.Name,
			SocTopic: b.SocTopic,
		})
	}

	readings := meter.NewReadings()
	mtr := meter.New(
		cnfg.Meter.Broker,
		cnfg.Meter.Port,
		cnfg.Meter.Username,
		cnfg.Meter.Password,
		counters,
		batteries,
		readings)

	if isDevMode() {
		logger.Info("dev mode, skipping meter connection")
	} else {
		if err := mtr.Connect(); err != nil {
			panic(fmt.Sprintf("meter connection error: %v", err))
		}
		defer mtr.Disconnect()
	}

	provider := newRateProvider(logger, cnfg.Pricing)
	aggregator := consumption.NewAggregator(logger.With("module", "consumption"), db)

	opts := []coordinator.Option{}
	if cnfg.Forecast.Url != "" {
		opts = append(opts, coordinator.WithForecaster(
			forecast.NewHTTPProvider(logger.With("module", "forecast"), cnfg.Forecast.Url, cnfg.Forecast.ApiKey)))
	}
	if cnfg.Optimizer.Url != "" {
		opts = append(opts, coordinator.WithOptimizer(
			optimizer.New(logger.With("module", "optimizer"), cnfg.Optimizer.Url, cnfg.Optimizer.ApiKey, cnfg.Optimizer.GetTimeout()),
			optimizer.BatterySpec{
				CapacityKwh:      cnfg.BatterySpec.CapacityKwh,
				ChargePowerKw:    cnfg.BatterySpec.ChargePowerKw,
				DischargePowerKw: cnfg.BatterySpec.DischargePowerKw,
				SocMinPercent:    cnfg.BatterySpec.SocMinPercent,
				SocMaxPercent:    cnfg.BatterySpec.SocMaxPercent,
				AmortizationCost: cnfg.BatterySpec.AmortizationCost,
			}))
	}

	coord := coordinator.New(logger.With("module", "coordinator"), provider, aggregator, opts...)
	defer coord.Stop()

	tasks := task.NewTasks(db, coord, counters, readings, cnfg)
	if isDevMode() {
		logger.Info("dev mode, skipping task scheduling")
	} else {
		tasks.Run()
		defer tasks.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("main context done")
		case sig := <-sigCh:
			logger.Info("received signal", slog.Any("signal", sig))
			cancel()
		}
	}()

	server := www.StartServer(db, coord, cnfg.Api)
	server.Run(ctx)
}

func newRateProvider(logger *slog.Logger, cnfg config.AppConfigPricing) types.RateProvider {
	resolver := tariff.NewResolver(logger.With("module", "tariff"), cnfg.CezRegion)
	fees := pricing.Fees{
		Cost:         cnfg.FeeCost,
		Compensation: cnfg.FeeCompensation,
	}

	if strings.EqualFold(cnfg.Mode, "fixed") {
		return pricing.NewFixedProvider(
			logger.With("module", "pricing"),
			resolver,
			cnfg.Area,
			cnfg.RateClass,
			cnfg.TariffCode,
			cnfg.FixedPriceT1,
			cnfg.FixedPriceT2,
			fees)
	}

	return pricing.NewSpotProvider(
		logger.With("module", "pricing"),
		resolver,
		ote.New(cnfg.Hourly),
		cnb.New(),
		cnfg.Area,
		cnfg.RateClass,
		cnfg.TariffCode,
		cnfg.Currency,
		fees)
}

func isDevMode() bool {
	return strings.EqualFold(os.Getenv("APP_ENV"), "development")
}

func exitWithError(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("application shutting down with error", slog.Any("error", err))
	}
	time.Sleep(2 * time.Second)
	os.Exit(1)
}
