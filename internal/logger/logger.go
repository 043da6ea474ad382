package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/escrow-ledger/internal/config"
)

// NewLogger builds the process logger. Every record carries the service name and
// environment so the gateway and the relay can share one log index.
func NewLogger(cfg *config.Config) *slog.Logger {
	logger := newLogger(os.Stdout, cfg)
	logger.Info("logger initialized", "level", parseLevel(cfg.Logging.Level).String())
	return logger
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	if cfg.Application.Env == "local" {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	if cfg.Application.Name != "" {
		logger = logger.With("service", cfg.Application.Name)
	}
	if cfg.Application.Env != "" {
		logger = logger.With("env", cfg.Application.Env)
	}
	return logger
}

// parseLevel maps debug|info|warn|error to a slog level; anything else is info
func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
