package telemetry

import (
	"log/slog"
	"os"
)

// InitSlog installs the default text logger. Verbose drops the level
// to debug, which also enables per-request scraper logging.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
