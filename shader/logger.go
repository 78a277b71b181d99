package shader

import (
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/specialize/internal/logging"
)

// loggerPtr stores the active logger. Accessed atomically for thread safety.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(logging.Nop())
}

// slogger returns the current package logger.
func slogger() *slog.Logger { return loggerPtr.Load() }

// SetLogger sets the logger used by the shader cache.
// Pass nil to restore silent output.
func SetLogger(l *slog.Logger) {
	loggerPtr.Store(logging.OrNop(l))
}
