package logger

import (
	"io"
	"log/slog"
	"os"

	"causeway/internal/platform/config"
)

// New returns a structured stdout logger at the configured level and format.
func New(cfg config.Server) *slog.Logger {
	return newWithWriter(os.Stdout, cfg)
}

func newWithWriter(w io.Writer, cfg config.Server) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
