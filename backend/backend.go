package backend

import (
	"errors"

	"github.com/gogpu/specialize/asset"
	"github.com/gogpu/specialize/pipeline"
	"github.com/gogpu/specialize/shader"
)

// Backend names.
const (
	// BackendNative is the naga and gogpu/wgpu HAL backend.
	BackendNative = "native"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Factory creates a backend that reads shader assets from shaders.
//
// The returned backend must read specialized shaders from the same
// storage the pipeline compiler writes them to.
type Factory func(shaders *asset.Assets[shader.Shader]) (pipeline.Backend, error)
