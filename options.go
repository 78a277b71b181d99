package specialize

import (
	"log/slog"

	"github.com/gogpu/specialize/pipeline"
)

// Option configures an Engine during creation.
//
// Example:
//
//	// Fail compiles whose geometry misses a shader input
//	engine := specialize.New(backend, shaders, pipelines, specialize.WithStrictVertexLayout(true))
type Option func(*engineOptions)

// engineOptions holds optional configuration for Engine creation.
type engineOptions struct {
	pipeline []pipeline.Option
	logger   *slog.Logger
}

// WithStrictVertexLayout makes pipeline compiles fail when a shader input
// is missing from every geometry buffer.
func WithStrictVertexLayout(strict bool) Option {
	return func(o *engineOptions) {
		o.pipeline = append(o.pipeline, pipeline.WithStrictVertexLayout(strict))
	}
}

// WithLogger sets the logger for the engine's own events. The sub-package
// loggers are configured with [SetLogger].
func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = l
	}
}
