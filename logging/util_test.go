package logging

import (
	"log/slog"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	debug := "DEBUG"
	warn := "warn"
	spaced := " Error "
	junk := "loud"

	tests := []struct {
		name     string
		in       *string
		expected slog.Level
	}{
		{name: "nil defaults to info", in: nil, expected: slog.LevelInfo},
		{name: "upper case", in: &debug, expected: slog.LevelDebug},
		{name: "lower case", in: &warn, expected: slog.LevelWarn},
		{name: "surrounding whitespace", in: &spaced, expected: slog.LevelError},
		{name: "unknown defaults to info", in: &junk, expected: slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := LevelFromString(tt.in); got != tt.expected {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.expected, got)
		}
	}
}
