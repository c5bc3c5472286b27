package logging

import (
	"log/slog"
	"os"
	"strings"
)

// levelEnv selects verbosity. Unset means errors only, keeping stderr
// quiet while the call TUI owns the terminal.
const levelEnv = "QUICKTALK_LOG_LEVEL"

// Init installs the default text logger on stderr.
func Init() {
	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: ParseLevel(os.Getenv(levelEnv)),
		}),
	)
	slog.SetDefault(logger)
}

// ParseLevel maps a QUICKTALK_LOG_LEVEL value to a slog level. Empty or
// unknown values fall back to error.
func ParseLevel(value string) slog.Level {
	switch strings.ToLower(value) {
	case "debug", "dev":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
