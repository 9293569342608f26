package logging

import (
	"log/slog"
	"strings"
)

// LevelFromString maps a configured level name onto a slog level.
// Unset or unrecognized values fall back to info.
func LevelFromString(str *string) slog.Level {
	if str == nil {
		return slog.LevelInfo
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(*str))); err != nil {
		return slog.LevelInfo
	}
	return level
}
