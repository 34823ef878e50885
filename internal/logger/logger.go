package logger

import (
	"io"
	"log/slog"
	"os"

	"pdf-qa-platform/internal/config"
)

var Logger *slog.Logger

// InitLogger initializes structured logging based on configuration
func InitLogger(cfg *config.Config) {
	InitWithWriter(cfg, os.Stdout)
}

// InitWithWriter is InitLogger with an explicit sink, used by the terminal
// client so log lines do not corrupt the screen.
func InitWithWriter(cfg *config.Config, w io.Writer) {
	level := slog.LevelInfo
	if cfg.GinMode == "debug" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.GinMode == "debug", // Only add source in debug mode
	}

	Logger = slog.New(slog.NewJSONHandler(w, opts)).With("service", "pdf-qa")

	Logger.Debug("Structured logging initialized", "level", level.String())
}

// Helper functions for common log operations
func Info(msg string, args ...any) {
	if Logger != nil {
		Logger.Info(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if Logger != nil {
		Logger.Error(msg, args...)
	}
}

func Debug(msg string, args ...any) {
	if Logger != nil {
		Logger.Debug(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if Logger != nil {
		Logger.Warn(msg, args...)
	}
}
