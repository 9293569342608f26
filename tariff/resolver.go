package tariff

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dratek/powerplan-go/blocks"
)

const maxScheduleCacheEntries = 256

type scheduleKey struct {
	area string
	rate string
	code string
	year int
}

type liveKey struct {
	area string
	rate string
	code string
	date string
}

// Resolver resolves the regulated distribution fee and time-of-use
// band for an area, rate class and tariff code at a timestamp.
//
// Schedule resolution order: interval variant embedded in the rate
// class table, then a generic named schedule, then a live lookup for
// delimiter-bearing (distributor-assigned) codes. When nothing
// matches, or the live endpoint fails, the code classifies as always
// T1 so that pricing keeps working without the discount.
type Resolver struct {
	logger    *slog.Logger
	client    *http.Client
	cezRegion string

	// Endpoint bases, replaceable in tests.
	cezBaseURL string
	egdBaseURL string

	mu        sync.Mutex
	cacheYear int
	schedules map[scheduleKey]*Schedule
	live      map[liveKey]*Schedule
}

func NewResolver(logger *slog.Logger, cezRegion string) *Resolver {
	return &Resolver{
		logger:     logger,
		client:     &http.Client{Timeout: 10 * time.Second},
		cezRegion:  cezRegion,
		cezBaseURL: cezBaseURL,
		egdBaseURL: egdBaseURL,
		schedules:  make(map[scheduleKey]*Schedule),
		live:       make(map[liveKey]*Schedule),
	}
}

// Resolve returns the distribution fee in effect at the given instant,
// system component included. Identical inputs always yield identical
// fees for a fixed published schedule.
func (r *Resolver) Resolve(ctx context.Context, area, rateClass, code string, at time.Time) (float64, error) {
	entry, band, err := r.lookup(ctx, area, rateClass, code, at)
	if err != nil {
		return 0, err
	}
	year := at.In(blocks.OperatingLocation()).Year()
	if band == T2 {
		return systemFees[year] + entry.T2, nil
	}
	return systemFees[year] + entry.T1, nil
}

// Band returns the time-of-use band in effect at the given instant.
func (r *Resolver) Band(ctx context.Context, area, rateClass, code string, at time.Time) (Band, error) {
	_, band, err := r.lookup(ctx, area, rateClass, code, at)
	return band, err
}

func (r *Resolver) lookup(ctx context.Context, area, rateClass, code string, at time.Time) (rateEntry, Band, error) {
	lt := at.In(blocks.OperatingLocation())
	year := lt.Year()

	table, ok := rateTables[year]
	if !ok {
		return rateEntry{}, T1, fmt.Errorf("no tariff table for year %d", year)
	}
	areaTable, ok := table[strings.ToLower(area)]
	if !ok {
		return rateEntry{}, T1, fmt.Errorf("unknown distribution area %q", area)
	}
	entry, ok := areaTable[rateClass]
	if !ok {
		return rateEntry{}, T1, fmt.Errorf("unknown rate class %q in area %q", rateClass, area)
	}
	if !entry.hasT2() {
		return entry, T1, nil
	}

	sched := r.schedule(ctx, strings.ToLower(area), rateClass, code, entry, lt, year)
	return entry, Classify(sched, blocks.WeekdayIndex(lt), lt.Hour()*60+lt.Minute()), nil
}

func (r *Resolver) schedule(ctx context.Context, area, rateClass, code string, entry rateEntry, lt time.Time, year int) *Schedule {
	r.mu.Lock()
	if r.cacheYear != year {
		// Tables are republished yearly, drop everything on rollover.
		r.cacheYear = year
		r.schedules = make(map[scheduleKey]*Schedule)
		r.live = make(map[liveKey]*Schedule)
	}
	key := scheduleKey{area: area, rate: rateClass, code: code, year: year}
	if s, ok := r.schedules[key]; ok {
		r.mu.Unlock()
		return s
	}
	r.mu.Unlock()

	s := r.lookupSchedule(ctx, area, rateClass, code, entry, lt)
	if s != nil && !DynamicCode(code) {
		// Static codes are immutable within the year; dynamic codes
		// are cached per date by the live path instead.
		r.mu.Lock()
		if len(r.schedules) >= maxScheduleCacheEntries {
			r.schedules = make(map[scheduleKey]*Schedule)
		}
		r.schedules[key] = s
		r.mu.Unlock()
	}
	return s
}

func (r *Resolver) lookupSchedule(ctx context.Context, area, rateClass, code string, entry rateEntry, lt time.Time) *Schedule {
	if entry.Name != "" && strings.HasPrefix(code, entry.Name) {
		if s, ok := entry.Variants[strings.TrimPrefix(code, entry.Name)]; ok {
			return &s
		}
	}
	if s, ok := namedSchedules[code]; ok {
		return &s
	}
	if DynamicCode(code) {
		return r.liveSchedule(ctx, area, rateClass, code, lt)
	}
	return nil
}

func (r *Resolver) liveSchedule(ctx context.Context, area, rateClass, code string, lt time.Time) *Schedule {
	date := lt.Format("2006-01-02")
	key := liveKey{area: area, rate: rateClass, code: code, date: date}

	r.mu.Lock()
	if s, ok := r.live[key]; ok {
		r.mu.Unlock()
		return s
	}
	r.mu.Unlock()

	var (
		s   *Schedule
		err error
	)
	switch area {
	case "cez":
		s, err = r.fetchCEZ(ctx, code)
	case "egd":
		s, err = r.fetchEGD(ctx, code, date)
	default:
		err = fmt.Errorf("no interval endpoint for area %q", area)
	}
	if err != nil {
		r.logger.Warn("tariff interval lookup failed, assuming T1",
			slog.String("area", area),
			slog.String("code", code),
			slog.Any("error", err))
		s = nil
	}

	// Failures are cached too, one lookup attempt per code and day.
	r.mu.Lock()
	for k := range r.live {
		if k.date != date {
			delete(r.live, k)
		}
	}
	r.live[key] = s
	r.mu.Unlock()
	return s
}

// DynamicCode reports whether a tariff code names a distributor-side
// switching plan rather than a published schedule. Those carry a
// delimiter (e.g. "A1B5DP1-2") and are resolved via the regional
// endpoints.
func DynamicCode(code string) bool {
	return strings.ContainsAny(code, "-_./ ")
}
