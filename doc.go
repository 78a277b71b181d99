// Package specialize compiles specialized GPU shaders and render pipelines
// from templates and caches the results.
//
// # Overview
//
// A template shader is WGSL text with #ifdef/#ifndef/#else/#endif blocks.
// Compiling it with a set of definitions yields a specialized shader. A
// template pipeline names template shaders for its vertex and fragment
// stages; compiling it with a [pipeline.Specialization] yields a complete
// descriptor with a reflected layout, reconciled vertex buffers and the
// requested primitive state.
//
// Both steps are cached: compiling the same template with an equal
// specialization returns the same handle and never calls the backend
// again. When a template shader changes, every specialized shader built
// from it is rebuilt and the pipelines that consumed the old versions are
// evicted, so the next compile picks up the new code.
//
// # Quick Start
//
//	shaders := asset.New[shader.Shader]()
//	pipelines := asset.New[pipeline.Descriptor]()
//
//	backend, err := native.New(shaders)
//	if err != nil {
//	    return err
//	}
//	engine := specialize.New(backend, shaders, pipelines)
//
//	vs := shaders.Add(shader.New("mesh", shader.StageVertex, src))
//	tmpl := pipelines.Add(pipeline.NewDescriptor("mesh", vs, vs))
//
//	spec := pipeline.DefaultSpecialization()
//	spec.Shader = shader.NewSpecialization("SKINNED")
//	h, err := engine.Compile(tmpl, &spec)
//
// Call [Engine.Prepare] once per frame, before compiling, to apply the
// shader edits and removals recorded by the shader storage.
//
// # Architecture
//
// The module is organized into:
//   - asset: generational handles and storage with change events
//   - shader: definition sets and the specialized shader cache
//   - pipeline: descriptors, layouts and the specialized pipeline cache
//   - backend/native: naga shader compilation, IR reflection and
//     gogpu/wgpu HAL pipeline creation
//   - cmd/pipec: manifest-driven command line compiler
//
// # Logging
//
// Output is silent by default. [SetLogger] enables structured logging for
// every package.
package specialize

// Version is the current version of the module.
const Version = "0.1.0"
