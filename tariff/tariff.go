package tariff

// Band is one of the two time-of-use price bands of a distribution
// tariff. T2 is the discounted (off-peak) band.
type Band string

const (
	T1 Band = "T1"
	T2 Band = "T2"
)

// Interval is a half-open [Start,End) slice of a local day in minutes.
type Interval struct {
	Start int
	End   int
}

func (i Interval) Contains(minuteOfDay int) bool {
	return i.Start <= minuteOfDay && minuteOfDay < i.End
}

// Schedule holds the T2 intervals of a tariff code, either one set
// valid for every weekday or seven weekday-indexed sets (Monday first).
type Schedule struct {
	Shared bool
	Days   [7][]Interval
}

func (s *Schedule) intervals(weekday int) []Interval {
	if s.Shared {
		return s.Days[0]
	}
	if weekday < 0 || weekday > 6 {
		return nil
	}
	return s.Days[weekday]
}

// Classify returns the band in effect at the given weekday and minute
// of the local day. A nil or empty schedule always classifies as T1.
func Classify(s *Schedule, weekday int, minuteOfDay int) Band {
	if s == nil {
		return T1
	}
	for _, iv := range s.intervals(weekday) {
		if iv.Contains(minuteOfDay) {
			return T2
		}
	}
	return T1
}

func shared(ivs ...Interval) Schedule {
	var s Schedule
	s.Shared = true
	s.Days[0] = ivs
	return s
}

func weekdays(days ...[]Interval) Schedule {
	var s Schedule
	for i, d := range days {
		if i > 6 {
			break
		}
		s.Days[i] = d
	}
	return s
}

// span builds an interval from whole local hours, end hour 24 closing
// the day.
func span(startHour, endHour int) Interval {
	return Interval{Start: startHour * 60, End: endHour * 60}
}
