package tariff

import (
	"testing"
)

func TestClassifyTotal(t *testing.T) {
	// Absent interval data always classifies as T1.
	if got := Classify(nil, 2, 510); got != T1 {
		t.Errorf("nil schedule expected T1, got %s", got)
	}
	empty := &Schedule{}
	if got := Classify(empty, 6, 0); got != T1 {
		t.Errorf("empty schedule expected T1, got %s", got)
	}
}

func TestClassifySharedSchedule(t *testing.T) {
	ev := namedSchedules["EVV1"]

	tests := []struct {
		name     string
		weekday  int
		minute   int
		expected Band
	}{
		{name: "wednesday 08:30 inside 07-09", weekday: 2, minute: 8*60 + 30, expected: T2},
		{name: "wednesday 09:30 in gap", weekday: 2, minute: 9*60 + 30, expected: T1},
		{name: "start is inclusive", weekday: 2, minute: 7 * 60, expected: T2},
		{name: "end is exclusive", weekday: 2, minute: 9 * 60, expected: T1},
		{name: "late evening", weekday: 6, minute: 23*60 + 45, expected: T2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(&ev, tt.weekday, tt.minute); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestClassifyWeekdayIndexedSchedule(t *testing.T) {
	vik := namedSchedules["VIKV1"]

	tests := []struct {
		name     string
		weekday  int
		minute   int
		expected Band
	}{
		{name: "monday has no discount", weekday: 0, minute: 12 * 60, expected: T1},
		{name: "friday morning", weekday: 4, minute: 11 * 60, expected: T1},
		{name: "friday afternoon", weekday: 4, minute: 13 * 60, expected: T2},
		{name: "saturday all day", weekday: 5, minute: 3 * 60, expected: T2},
		{name: "sunday late", weekday: 6, minute: 22*60 + 15, expected: T1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(&vik, tt.weekday, tt.minute); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestRateTablesHaveSystemFee(t *testing.T) {
	if _, ok := systemFees[2025]; !ok {
		t.Fatal("missing 2025 system fee")
	}
	for area, rates := range rateTables[2025] {
		if len(rates) == 0 {
			t.Errorf("area %s has no rate classes", area)
		}
		for class, entry := range rates {
			if entry.T1 <= 0 {
				t.Errorf("%s/%s has no T1 fee", area, class)
			}
			if entry.T2 > entry.T1 {
				t.Errorf("%s/%s off-peak fee above peak fee", area, class)
			}
		}
	}
}
