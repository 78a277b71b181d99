package specialize

import (
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/specialize/backend/native"
	"github.com/gogpu/specialize/internal/logging"
	"github.com/gogpu/specialize/pipeline"
	"github.com/gogpu/specialize/shader"
)

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(logging.Nop())
}

// SetLogger configures the logger for specialize and all its sub-packages.
// By default, nothing is logged. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used:
//   - [slog.LevelDebug]: cache hits and misses, compiled shaders, materialized pipelines
//   - [slog.LevelInfo]: hot reload outcomes
//   - [slog.LevelWarn]: shader inputs that no vertex buffer provides
//
// Example:
//
//	specialize.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	l = logging.OrNop(l)
	loggerPtr.Store(l)

	shader.SetLogger(l)
	pipeline.SetLogger(l)
	native.SetLogger(l)
}

// Logger returns the current logger.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
