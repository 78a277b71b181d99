// Package backend provides a registry of pipeline specialization backends.
//
// A backend compiles specialized shaders, reflects pipeline layouts and
// creates the backend object of every compiled pipeline. Backends register
// a [Factory] from init() functions and are selected at runtime.
//
// # Backend Registration
//
// The native backend registers itself on import:
//
//	import _ "github.com/gogpu/specialize/backend/native"
//
// # Backend Selection
//
// Use Default() to create the best available backend, or New() to request
// a specific backend by name:
//
//	shaders := asset.New[shader.Shader]()
//
//	// Create the default (best available) backend
//	b, err := backend.Default(shaders)
//
//	// Or request a specific backend
//	b, err := backend.New(backend.BackendNative, shaders)
//
// # Available Backends
//
//   - "native": naga shader compilation and gogpu/wgpu HAL pipelines
package backend
