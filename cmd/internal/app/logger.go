package app

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Logger is the app-wide logger type (slog).
type Logger = *slog.Logger

// NewLogger creates a structured logger with an explicit level and format.
//
// format is "json", "pretty" or "auto". Auto picks pretty output when
// stdout is a terminal and JSON otherwise.
func NewLogger(level, format string) *slog.Logger {
	log := slog.New(newHandler(os.Stdout, parseLogLevel(level), format, isTerminal(os.Stdout)))
	slog.SetDefault(log)
	return log
}

func newHandler(w io.Writer, lvl slog.Level, format string, tty bool) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: true,
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "pretty":
		return newPrettyHandler(w, opts, tty && os.Getenv("NO_COLOR") == "")
	case "json":
		return slog.NewJSONHandler(w, opts)
	default:
		if tty {
			return newPrettyHandler(w, opts, os.Getenv("NO_COLOR") == "")
		}
		return slog.NewJSONHandler(w, opts)
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}
