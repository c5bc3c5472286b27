package logging

import (
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		value string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"dev", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelError},
		{"nonsense", slog.LevelError},
	}

	for _, tc := range cases {
		if got := ParseLevel(tc.value); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}
