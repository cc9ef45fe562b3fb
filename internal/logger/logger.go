package logger

import (
	"io"
	"log/slog"
	"os"
)

// InitLogger initializes and configures the application logger based on environment
// Returns a configured slog.Logger instance
func InitLogger(environment string, jsonOutput bool) *slog.Logger {
	logger := New(os.Stdout, environment, jsonOutput)

	// Set as default logger so it can be used throughout the application
	slog.SetDefault(logger)

	return logger
}

// New builds a logger writing to w without touching the default logger
func New(w io.Writer, environment string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	// In development, use more verbose logging
	if environment == "development" {
		opts.Level = slog.LevelDebug
		opts.AddSource = true // Include source file and line number
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
