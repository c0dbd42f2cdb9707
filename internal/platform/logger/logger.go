package logger

import (
	"log/slog"
	"os"
)

// New returns a structured stdout logger shared by the service and workers.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
