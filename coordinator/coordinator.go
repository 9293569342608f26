package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dratek/powerplan-go/blocks"
	"github.com/dratek/powerplan-go/consumption"
	"github.com/dratek/powerplan-go/forecast"
	"github.com/dratek/powerplan-go/optimizer"
	"github.com/dratek/powerplan-go/types"
)

type State int

const (
	AwaitingFirstFetch State = iota
	Ready
	Refreshing
)

type ConsumptionSource interface {
	Update(ctx context.Context, now time.Time) (*consumption.Series, error)
}

type Optimizer interface {
	Optimize(ctx context.Context, req optimizer.Request, keys []blocks.DateBlock) (*optimizer.Result, error)
}

const (
	defaultDebounce     = 30 * time.Second
	defaultCycleTimeout = 30 * time.Second
)

// Coordinator owns one installation's price window, consumption series
// and dispatch schedule. Refreshes are strictly non-overlapping: the
// minute tick arms a single-slot debounce timer, and a tick or timer
// landing during a running refresh only flags a deferred follow-up.
type Coordinator struct {
	logger      *slog.Logger
	provider    types.RateProvider
	consumption ConsumptionSource
	forecaster  forecast.Provider
	optimizer   Optimizer
	battery     optimizer.BatterySpec

	debounce     time.Duration
	cycleTimeout time.Duration
	nowFn        func() time.Time

	mu              sync.Mutex
	state           State
	deferredPending bool
	timer           *time.Timer
	stopped         bool

	// Owned by the refresh cycle, never touched concurrently.
	window                []types.RatePoint
	todayDate             string
	forecastVals          map[blocks.DateBlock]float64
	schedule              []optimizer.ScheduleEntry
	predictedCost         float64
	predictedAmortization float64

	snapMu   sync.RWMutex
	snapshot *Snapshot
}

type Option func(*Coordinator)

func WithForecaster(p forecast.Provider) Option {
	return func(c *Coordinator) { c.forecaster = p }
}

func WithOptimizer(o Optimizer, battery optimizer.BatterySpec) Option {
	return func(c *Coordinator) {
		c.optimizer = o
		c.battery = battery
	}
}

func WithTimings(debounce, cycleTimeout time.Duration) Option {
	return func(c *Coordinator) {
		c.debounce = debounce
		c.cycleTimeout = cycleTimeout
	}
}

func withNowFn(nowFn func() time.Time) Option {
	return func(c *Coordinator) { c.nowFn = nowFn }
}

func New(logger *slog.Logger, provider types.RateProvider, cons ConsumptionSource, opts ...Option) *Coordinator {
	c := &Coordinator{
		logger:       logger,
		provider:     provider,
		consumption:  cons,
		debounce:     defaultDebounce,
		cycleTimeout: defaultCycleTimeout,
		nowFn:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the result of the last completed cycle, or nil when
// no cycle has run yet.
func (c *Coordinator) Snapshot() *Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snapshot
}

// Tick is the periodic trigger, expected about once per minute. The
// first tick refreshes immediately; later ticks arm the debounce timer
// unless one is already pending.
func (c *Coordinator) Tick() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	if c.state == AwaitingFirstFetch {
		c.mu.Unlock()
		c.runRefresh()
		return
	}
	if c.timer == nil {
		c.armTimerLocked()
	}
	c.mu.Unlock()
}

// Refresh schedules a refresh after the debounce delay, replacing any
// already armed timer.
func (c *Coordinator) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.armTimerLocked()
}

// Stop cancels the pending debounce timer and prevents any further
// refresh from starting. A refresh already in flight finishes on its
// own timeout.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) armTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, c.timerFired)
}

func (c *Coordinator) timerFired() {
	c.mu.Lock()
	c.timer = nil
	if c.stopped {
		c.mu.Unlock()
		return
	}
	if c.state == Refreshing {
		c.deferredPending = true
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.runRefresh()
}

func (c *Coordinator) runRefresh() {
	c.mu.Lock()
	if c.state == Refreshing {
		c.deferredPending = true
		c.mu.Unlock()
		return
	}
	c.state = Refreshing
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cycleTimeout)
	err := c.refresh(ctx)
	cancel()

	if err != nil {
		c.logger.Error("refresh cycle failed", slog.Any("error", err))
		c.markUnavailable()
	}

	c.mu.Lock()
	if err != nil && c.snapshotMissingLocked() {
		c.state = AwaitingFirstFetch
	} else {
		c.state = Ready
	}
	deferred := c.deferredPending
	c.deferredPending = false
	stopped := c.stopped
	if deferred && !stopped {
		c.armTimerLocked()
	}
	c.mu.Unlock()
}

func (c *Coordinator) snapshotMissingLocked() bool {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snapshot == nil || !c.snapshot.Available
}

func (c *Coordinator) refresh(ctx context.Context) error {
	now := c.nowFn()

	if err := c.resolveWindow(ctx, now); err != nil {
		return err
	}

	series, err := c.consumption.Update(ctx, now)
	if err != nil {
		return fmt.Errorf("consumption update failed: %w", err)
	}

	c.mergeForecast(ctx)
	c.optimize(ctx, now, series)

	return c.publish(now, series)
}

// resolveWindow keeps the 3-day price window current. A local date
// change rotates the window in place, a full refetch happens only on
// the very first cycle, when today ends up unpriced, or when tomorrow
// is empty and the provider says it should be available by now.
func (c *Coordinator) resolveWindow(ctx context.Context, now time.Time) error {
	local := now.In(blocks.OperatingLocation())
	todayDate := local.Format(time.DateOnly)
	tomorrowDate := local.AddDate(0, 0, 1).Format(time.DateOnly)

	if len(c.window) == 0 {
		return c.fetchWindow(ctx, now, todayDate)
	}

	if c.todayDate != todayDate {
		c.logger.Info("rotating price window",
			slog.String("from", c.todayDate),
			slog.String("to", todayDate))
		yesterdayDate := local.AddDate(0, 0, -1).Format(time.DateOnly)
		kept := make([]types.RatePoint, 0, len(c.window))
		for _, p := range c.window {
			if p.Block.LocalDate() >= yesterdayDate {
				kept = append(kept, p)
			}
		}
		c.window = kept
		c.todayDate = todayDate
	}

	if !c.hasDay(todayDate) {
		return c.fetchWindow(ctx, now, todayDate)
	}
	if !c.hasDay(tomorrowDate) && c.provider.TomorrowAvailable(now) {
		return c.fetchWindow(ctx, now, todayDate)
	}

	return nil
}

func (c *Coordinator) fetchWindow(ctx context.Context, now time.Time, todayDate string) error {
	points, err := c.provider.Rates(ctx, now)
	if err != nil {
		return fmt.Errorf("price window fetch failed: %w", err)
	}
	c.window = points
	c.todayDate = todayDate
	return nil
}

func (c *Coordinator) hasDay(date string) bool {
	for _, p := range c.window {
		if p.Block.LocalDate() == date {
			return true
		}
	}
	return false
}

func (c *Coordinator) mergeForecast(ctx context.Context) {
	if c.forecaster == nil {
		return
	}
	whHours, err := c.forecaster.WhHours(ctx)
	if err != nil {
		c.logger.Warn("production forecast unavailable, keeping previous", slog.Any("error", err))
		return
	}
	keys := make([]blocks.DateBlock, len(c.window))
	for i, p := range c.window {
		keys[i] = p.Block
	}
	c.forecastVals = forecast.Merge(keys, whHours)
}

func (c *Coordinator) optimize(ctx context.Context, now time.Time, series *consumption.Series) {
	if c.optimizer == nil {
		return
	}
	if !series.BatterySoc.Valid {
		c.logger.Debug("no battery state reported, skipping optimization")
		return
	}

	state := optimizer.BatteryState{Soc: series.BatterySoc.Float64}
	if series.SocCeiling.Valid {
		state.Ceiling = series.SocCeiling.Float64
	}

	req, keys := optimizer.BuildRequest(c.window, blocks.FromTime(now), c.forecastVals, series, c.battery, state)
	result, err := c.optimizer.Optimize(ctx, req, keys)
	if err != nil {
		c.logger.Warn("optimization failed, keeping previous schedule", slog.Any("error", err))
		return
	}

	c.schedule = result.Schedule
	c.predictedCost = result.PredictedCost
	c.predictedAmortization = result.PredictedAmortization
}

func (c *Coordinator) publish(now time.Time, series *consumption.Series) error {
	current := blocks.FromTime(now)

	var currentRates types.RateTriad
	found := false
	for _, p := range c.window {
		if p.Block == current {
			currentRates = p.Rates
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("current block %s not priced in window", current)
	}

	mean, rank := todayMeanAndRank(c.window, c.todayDate, currentRates)

	snap := &Snapshot{
		At:                    now,
		Available:             true,
		Current:               current,
		CurrentRates:          currentRates,
		Series:                append([]types.RatePoint(nil), c.window...),
		TodayMean:             mean,
		TodayRank:             rank,
		Consumption:           series,
		Forecast:              c.forecastVals,
		Schedule:              c.schedule,
		PredictedCost:         c.predictedCost,
		PredictedAmortization: c.predictedAmortization,
		BatterySoc:            series.BatterySoc,
	}

	next := current.Add(1)
	for _, e := range c.schedule {
		if e.Block == current {
			snap.Charge = e.ChargeFlag
			snap.Discharge = e.DischargeFlag
			snap.Curtail = e.CurtailFlag
		}
		if e.Block == next {
			snap.NextCharge = e.ChargeFlag
			snap.NextDischarge = e.DischargeFlag
		}
	}

	c.snapMu.Lock()
	c.snapshot = snap
	c.snapMu.Unlock()

	return nil
}

func (c *Coordinator) markUnavailable() {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	c.snapshot = &Snapshot{At: c.nowFn(), Available: false}
}
