package blocks

import (
	"testing"
	"time"
)

func TestDateBlockString(t *testing.T) {
	b := DateBlock{Date: "2025-01-01", Block: 34}
	expected := "2025-01-01 08:30"
	if s := b.String(); s != expected {
		t.Errorf("String() expected %q, got %q", expected, s)
	}
}

func TestDateBlockIsoString(t *testing.T) {
	b := DateBlock{Date: "2025-01-01", Block: 61}
	expected := "2025-01-01T15:15:00Z"
	if s := b.IsoString(); s != expected {
		t.Errorf("IsoString() expected %q, got %q", expected, s)
	}
}

func TestFromTimeAligns(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected DateBlock
	}{
		{
			name:     "exact boundary",
			input:    time.Date(2025, time.January, 1, 8, 30, 0, 0, time.UTC),
			expected: DateBlock{Date: "2025-01-01", Block: 34},
		},
		{
			name:     "truncates within block",
			input:    time.Date(2025, time.January, 1, 8, 44, 59, 0, time.UTC),
			expected: DateBlock{Date: "2025-01-01", Block: 34},
		},
		{
			name:     "last block of day",
			input:    time.Date(2025, time.January, 1, 23, 59, 0, 0, time.UTC),
			expected: DateBlock{Date: "2025-01-01", Block: 95},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromTime(tt.input); got != tt.expected {
				t.Errorf("FromTime() expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestDateBlockAdd(t *testing.T) {
	tests := []struct {
		name     string
		input    DateBlock
		n        int
		expected DateBlock
	}{
		{
			name:     "add within same day",
			input:    DateBlock{Date: "2025-01-01", Block: 10},
			n:        2,
			expected: DateBlock{Date: "2025-01-01", Block: 12},
		},
		{
			name:     "add crossing midnight",
			input:    DateBlock{Date: "2025-01-01", Block: 95},
			n:        2,
			expected: DateBlock{Date: "2025-01-02", Block: 1},
		},
		{
			name:     "subtract crossing midnight",
			input:    DateBlock{Date: "2025-01-01", Block: 0},
			n:        -1,
			expected: DateBlock{Date: "2024-12-31", Block: 95},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.input.Add(tt.n); got != tt.expected {
				t.Errorf("Add(%d) expected %+v, got %+v", tt.n, tt.expected, got)
			}
		})
	}
}

func TestDateBlockCompare(t *testing.T) {
	a := DateBlock{Date: "2025-01-01", Block: 10}
	b := DateBlock{Date: "2025-01-01", Block: 11}
	c := DateBlock{Date: "2025-01-02", Block: 0}

	if a.Compare(a) != 0 {
		t.Errorf("expected equal blocks to compare as 0")
	}
	if a.Compare(b) != -1 || b.Compare(a) != 1 {
		t.Errorf("expected block ordering within a day")
	}
	if b.Compare(c) != -1 {
		t.Errorf("expected date ordering to dominate")
	}
}

func TestLocalDayHas96Blocks(t *testing.T) {
	day := LocalDay(time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC))
	if len(day) != PerDay {
		t.Fatalf("expected %d blocks, got %d", PerDay, len(day))
	}
	for _, b := range day {
		if m := b.Time().Minute(); m != 0 && m != 15 && m != 30 && m != 45 {
			t.Errorf("block %s is not aligned to a 15-minute boundary", b)
		}
	}
	// Prague is UTC+2 in June, local midnight is 22:00 UTC the day before.
	if day[0] != (DateBlock{Date: "2025-06-09", Block: 88}) {
		t.Errorf("unexpected first block %+v", day[0])
	}
}

func TestWeekdayIndex(t *testing.T) {
	// 2025-01-01 is a Wednesday.
	wed := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	if got := WeekdayIndex(wed); got != 2 {
		t.Errorf("expected weekday index 2 for Wednesday, got %d", got)
	}
	sun := time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)
	if got := WeekdayIndex(sun); got != 6 {
		t.Errorf("expected weekday index 6 for Sunday, got %d", got)
	}
	if Workday(4) != true || Workday(5) != false {
		t.Errorf("expected Monday-Friday to be the workday group")
	}
}
