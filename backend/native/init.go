package native

import (
	"github.com/gogpu/specialize/asset"
	"github.com/gogpu/specialize/backend"
	"github.com/gogpu/specialize/pipeline"
	"github.com/gogpu/specialize/shader"
)

// init registers the native backend on package import.
// The registered factory creates a device-less backend; use [New] with
// [WithDeviceProvider] to create HAL pipelines.
//
//	import _ "github.com/gogpu/specialize/backend/native"
func init() {
	backend.Register(backend.BackendNative, func(shaders *asset.Assets[shader.Shader]) (pipeline.Backend, error) {
		return New(shaders)
	})
}
