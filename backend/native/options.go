package native

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga/spirv"
	"github.com/gogpu/wgpu/hal"
)

// Option configures a Backend during creation.
type Option func(*options) error

// options holds optional configuration for Backend creation.
type options struct {
	device       hal.Device
	colorFormat  gputypes.TextureFormat
	spirvVersion spirv.Version
	validate     bool
	debug        bool
}

// defaultOptions returns the default backend options.
func defaultOptions() options {
	return options{
		colorFormat:  gputypes.TextureFormatBGRA8Unorm,
		spirvVersion: spirv.Version1_3,
		validate:     true,
	}
}

// WithDevice materializes pipelines on device. Without a device the
// backend records placeholder pipelines, which is enough for reflection
// tooling and tests.
func WithDevice(device hal.Device) Option {
	return func(o *options) error {
		if device == nil {
			return ErrNilDevice
		}
		o.device = device
		return nil
	}
}

// WithDeviceProvider takes the HAL device from a shared provider (for
// example gogpu). The provider must implement HalDevice() any returning a
// hal.Device. The default color target format becomes the provider's
// surface format.
func WithDeviceProvider(provider gpucontext.DeviceProvider) Option {
	return func(o *options) error {
		type halProvider interface {
			HalDevice() any
		}
		hp, ok := provider.(halProvider)
		if !ok {
			return fmt.Errorf("native: provider does not expose HAL types")
		}
		device, ok := hp.HalDevice().(hal.Device)
		if !ok || device == nil {
			return ErrNilDevice
		}
		o.device = device
		if f := provider.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
			o.colorFormat = f
		}
		return nil
	}
}

// WithColorFormat sets the color target format used when a descriptor
// lists no color targets.
func WithColorFormat(format gputypes.TextureFormat) Option {
	return func(o *options) error {
		o.colorFormat = format
		return nil
	}
}

// WithSPIRVVersion sets the SPIR-V version of generated shaders.
func WithSPIRVVersion(v spirv.Version) Option {
	return func(o *options) error {
		o.spirvVersion = v
		return nil
	}
}

// WithValidation enables or disables naga IR validation (default on).
func WithValidation(enabled bool) Option {
	return func(o *options) error {
		o.validate = enabled
		return nil
	}
}

// WithDebugInfo includes debug names in generated SPIR-V.
func WithDebugInfo(enabled bool) Option {
	return func(o *options) error {
		o.debug = enabled
		return nil
	}
}
