package blocks

import (
	"fmt"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	blockLayout = "2006-01-02 15:04"

	// Number of 15-minute blocks in a calendar day.
	PerDay  = 96
	PerHour = 4
)

var (
	pragueLoc    *time.Location
	operatingLoc *time.Location
)

func init() {
	var err error
	pragueLoc, err = time.LoadLocation("Europe/Prague")
	if err != nil {
		panic(fmt.Sprintf("failed to load Prague location: %v", err))
	}
	operatingLoc = pragueLoc
}

// SetOperatingTimezone binds the local zone used for all calendar and
// weekday decisions. Blocks themselves are always stored in UTC.
func SetOperatingTimezone(timezone string) error {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %s: %v", timezone, err)
	}
	operatingLoc = loc
	return nil
}

func OperatingLocation() *time.Location {
	return operatingLoc
}

// DateBlock addresses one 15-minute block of a UTC calendar day.
// Block is the index within the day, 0..95.
type DateBlock struct {
	Date  string
	Block uint8
}

func (b DateBlock) String() string {
	return fmt.Sprintf("%s %02d:%02d", b.Date, b.Block/PerHour, (b.Block%PerHour)*15)
}

func (b DateBlock) IsoString() string {
	return fmt.Sprintf("%sT%02d:%02d:00Z", b.Date, b.Block/PerHour, (b.Block%PerHour)*15)
}

// Time returns the block start in UTC.
func (b DateBlock) Time() time.Time {
	t, err := time.ParseInLocation(blockLayout, b.String(), time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (b DateBlock) Add(n int) DateBlock {
	return FromTime(b.Time().Add(time.Duration(n) * 15 * time.Minute))
}

func (b DateBlock) Sub(n int) DateBlock {
	return b.Add(-n)
}

func (b DateBlock) Compare(other DateBlock) int {
	if b == other {
		return 0
	}
	if b.Date < other.Date {
		return -1
	}
	if b.Date > other.Date {
		return 1
	}
	if b.Block < other.Block {
		return -1
	}
	return 1
}

func (b DateBlock) IsZero() bool {
	return b.Date == "" && b.Block == 0
}

func (b DateBlock) HourOfDay() int {
	return int(b.Block) / PerHour
}

// LocalTime returns the block start in the operating zone.
func (b DateBlock) LocalTime() time.Time {
	return b.Time().In(operatingLoc)
}

// LocalDate is the calendar date of the block in the operating zone,
// which decides window-day membership.
func (b DateBlock) LocalDate() string {
	return b.LocalTime().Format(dateLayout)
}

func (b DateBlock) LocalWeekday() int {
	return WeekdayIndex(b.LocalTime())
}

// LocalMinuteOfDay is the minute within the local day, used for
// time-of-use classification.
func (b DateBlock) LocalMinuteOfDay() int {
	lt := b.LocalTime()
	return lt.Hour()*60 + lt.Minute()
}

// Align truncates a timestamp down to its 15-minute boundary.
func Align(t time.Time) time.Time {
	t = t.UTC()
	return t.Truncate(15 * time.Minute)
}

func FromTime(t time.Time) DateBlock {
	if t.IsZero() {
		return DateBlock{}
	}
	t = Align(t)
	return DateBlock{
		Date:  t.Format(dateLayout),
		Block: uint8(t.Hour()*PerHour + t.Minute()/15),
	}
}

func FromNow() DateBlock {
	return FromTime(time.Now())
}

// LocalDay generates the 96 blocks of a calendar day in the operating
// zone, starting at local midnight.
func LocalDay(date time.Time) []DateBlock {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, operatingLoc)
	day := make([]DateBlock, 0, PerDay)
	for i := range PerDay {
		day = append(day, FromTime(midnight.Add(time.Duration(i)*15*time.Minute)))
	}
	return day
}

// WeekdayIndex maps time.Weekday onto the Monday-based 0..6 range the
// tariff schedules use.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Workday reports whether the weekday index falls in the Monday-Friday
// group used for splitting consumption statistics.
func Workday(weekday int) bool {
	return weekday < 5
}
