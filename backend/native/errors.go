package native

import "errors"

// Package errors for the native backend.
var (
	// ErrBinarySource is returned when a shader has no WGSL text to
	// specialize or reflect.
	ErrBinarySource = errors.New("native: shader has no WGSL source")

	// ErrNoEntryPoint is returned when a stage entry point is not declared
	// by its shader.
	ErrNoEntryPoint = errors.New("native: entry point not found")

	// ErrNilDevice is returned when a device provider does not expose a
	// HAL device.
	ErrNilDevice = errors.New("native: HAL device is nil")

	// ErrInvalidShader is returned when naga validation rejects a module.
	ErrInvalidShader = errors.New("native: shader validation failed")

	// ErrUnsupportedVertexType is returned for vertex inputs without a
	// matching vertex format.
	ErrUnsupportedVertexType = errors.New("native: unsupported vertex input type")

	// ErrUnsupportedBinding is returned for resources a render pipeline
	// layout cannot express.
	ErrUnsupportedBinding = errors.New("native: unsupported binding")

	// ErrMissingShader is returned when a stage shader is absent from
	// storage.
	ErrMissingShader = errors.New("native: shader not in storage")
)
