// Package logger configures process-wide structured logging.
package logger

import (
	"log/slog"
	"os"

	"github.com/quorumhq/minute/internal/config"
)

// Setup configures structured logging based on environment and installs it
// as the default logger.
func Setup(cfg *config.Config) *slog.Logger {
	logLevel := slog.LevelInfo
	if cfg.Env == "development" {
		logLevel = slog.LevelDebug
	}
	if cfg.LogLevel == "debug" {
		logLevel = slog.LevelDebug
	}

	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// Discard routes the default logger to a handler that drops everything.
// The TUI owns the terminal, so background logging must not write to it.
func Discard() {
	slog.SetDefault(slog.New(slog.DiscardHandler))
}
