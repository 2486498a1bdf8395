package runtime

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/salonbook/salonbook/libs/config"
)

// NewLogger returns the service logger. LOG_LEVEL takes debug, info, warn or
// error; LOG_FORMAT=text switches from JSON to logfmt for local runs.
func NewLogger(service string) *slog.Logger {
	return newLogger(os.Stdout, service, config.String("LOG_LEVEL", "info"), config.String("LOG_FORMAT", "json"))
}

func newLogger(w io.Writer, service, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(format, "text") {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("service", service)
}
