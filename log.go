package bufcursor

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var debugEnabled atomic.Bool

// SetDebugLog enables or disables debug logging (for debugging only).
// Cursors created afterwards without an explicit Options.Logger write debug
// records to stderr.
func SetDebugLog(enabled bool) {
	debugEnabled.Store(enabled)
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func defaultLogger() *slog.Logger {
	if debugEnabled.Load() {
		h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		return slog.New(h).With("module", "bufcursor")
	}
	return discardLogger
}

func debugOn(l *slog.Logger) bool {
	return l.Enabled(context.Background(), slog.LevelDebug)
}
