package specialize

import (
	"errors"
	"log/slog"

	"github.com/gogpu/specialize/asset"
	"github.com/gogpu/specialize/pipeline"
	"github.com/gogpu/specialize/shader"
)

// Engine bundles the shader and pipeline storage with the pipeline
// compiler that fills them.
//
// Thread Safety:
// Engine is not safe for concurrent use. One preparation stage owns it
// and passes it by pointer; there is no global engine.
type Engine struct {
	shaders   *asset.Assets[shader.Shader]
	pipelines *asset.Assets[pipeline.Descriptor]
	compiler  *pipeline.Compiler
	logger    *slog.Logger
}

// New creates an engine. backend must read shader assets from shaders.
func New(backend pipeline.Backend, shaders *asset.Assets[shader.Shader], pipelines *asset.Assets[pipeline.Descriptor], opts ...Option) *Engine {
	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}
	e := &Engine{
		shaders:   shaders,
		pipelines: pipelines,
		compiler:  pipeline.NewCompiler(backend, pipelines, shaders, o.pipeline...),
		logger:    o.logger,
	}
	// Events recorded before the engine existed concern no compiled entry.
	shaders.DrainEvents()
	pipelines.DrainEvents()
	return e
}

func (e *Engine) slogger() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return Logger()
}

// Shaders returns the shader storage.
func (e *Engine) Shaders() *asset.Assets[shader.Shader] {
	return e.shaders
}

// Pipelines returns the pipeline descriptor storage.
func (e *Engine) Pipelines() *asset.Assets[pipeline.Descriptor] {
	return e.pipelines
}

// Compiler returns the pipeline compiler.
func (e *Engine) Compiler() *pipeline.Compiler {
	return e.compiler
}

// Compile returns the specialized pipeline of template for spec,
// compiling it on first use.
func (e *Engine) Compile(template asset.Handle[pipeline.Descriptor], spec *pipeline.Specialization) (asset.Handle[pipeline.Descriptor], error) {
	return e.compiler.Compile(template, spec)
}

// Get returns the cached specialized pipeline of template for spec.
func (e *Engine) Get(template asset.Handle[pipeline.Descriptor], spec *pipeline.Specialization) (asset.Handle[pipeline.Descriptor], bool) {
	return e.compiler.Get(template, spec)
}

// Report summarizes one Prepare call.
type Report struct {
	// Invalidations has one entry per template shader that was modified
	// or removed and had compiled dependents.
	Invalidations []pipeline.Invalidation

	// Forgotten are the specialized pipelines evicted because their
	// template pipeline was removed.
	Forgotten []asset.Handle[pipeline.Descriptor]
}

// Evicted returns every pipeline evicted by the Prepare call.
func (r *Report) Evicted() []asset.Handle[pipeline.Descriptor] {
	var out []asset.Handle[pipeline.Descriptor]
	for i := range r.Invalidations {
		out = append(out, r.Invalidations[i].Evicted...)
	}
	return append(out, r.Forgotten...)
}

// Prepare applies the changes recorded by the storage since the previous
// call. A modified template shader is rebuilt with [pipeline.Compiler.UpdateShader];
// a removed one is dropped with [pipeline.Compiler.ForgetShader]. A
// template pipeline that was modified or removed is dropped with
// [pipeline.Compiler.Forget], so its next Compile builds from the current
// descriptor. A shader modified and then removed within one batch is
// only forgotten.
//
// Update failures do not stop the pass. They are joined into the returned
// error, and each failed shader keeps its previous specialized versions.
func (e *Engine) Prepare() (Report, error) {
	var (
		report Report
		errs   []error
	)

	for _, ev := range e.shaders.DrainEvents() {
		switch ev.Kind {
		case asset.EventModified:
			if !e.shaders.Contains(ev.Handle) {
				// A Removed event for it follows in this batch.
				continue
			}
			inv, err := e.compiler.UpdateShader(ev.Handle)
			if err != nil {
				e.slogger().Warn("specialize: shader update failed",
					"shader", ev.Handle.String(),
					"err", err)
				errs = append(errs, err)
				continue
			}
			if inv.Recompiled > 0 || len(inv.Evicted) > 0 {
				report.Invalidations = append(report.Invalidations, inv)
			}
		case asset.EventRemoved:
			if inv := e.compiler.ForgetShader(ev.Handle); len(inv.Evicted) > 0 {
				report.Invalidations = append(report.Invalidations, inv)
			}
		}
	}

	for _, ev := range e.pipelines.DrainEvents() {
		switch ev.Kind {
		case asset.EventModified, asset.EventRemoved:
			report.Forgotten = append(report.Forgotten, e.compiler.Forget(ev.Handle)...)
		}
	}

	// The updates above added and removed specialized assets; those events
	// are the compiler's own.
	e.shaders.DrainEvents()
	e.pipelines.DrainEvents()

	if n := len(report.Invalidations) + len(report.Forgotten); n > 0 {
		e.slogger().Info("specialize: prepared",
			"invalidations", len(report.Invalidations),
			"evicted", len(report.Evicted()))
	}
	return report, errors.Join(errs...)
}

// DestroyAll removes every compiled shader and pipeline and releases
// their backend objects. Templates are kept.
func (e *Engine) DestroyAll() {
	e.compiler.DestroyAll()
	e.shaders.DrainEvents()
	e.pipelines.DrainEvents()
}
