// Package logger wires up the process-wide slog logger.
package logger

import (
	"log/slog"
	"os"

	"github.com/jmercer/gamemaster/internal/config"
)

// Setup builds the root logger and installs it as the slog default.
// Production emits JSON lines for log aggregation; everything else gets
// the human-readable text handler.
func Setup(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// WithRequestID returns a child logger tagged with the request id.
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}

// WithError returns a child logger tagged with the error message.
func WithError(logger *slog.Logger, err error) *slog.Logger {
	return logger.With("error", err.Error())
}
