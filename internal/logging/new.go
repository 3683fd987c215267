package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New builds a Logger writing to w. format "console" selects a human readable
// zerolog ConsoleWriter, anything else a slog JSON handler. Unknown levels
// fall back to info.
func New(w io.Writer, format, level string) Logger {
	if strings.EqualFold(format, FormatConsole) {
		zl, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil || zl == zerolog.NoLevel {
			zl = zerolog.InfoLevel
		}
		cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		return NewZerologLogger(zerolog.New(cw).Level(zl).With().Timestamp().Logger())
	}

	var sl slog.Level
	if err := sl.UnmarshalText([]byte(level)); err != nil {
		sl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: sl})
	return NewSlogLogger(slog.New(h))
}
