// Package native implements the specialization backend on gogpu/naga and
// the gogpu/wgpu HAL.
//
// Shader specialization runs the definition preprocessor over the WGSL
// text and compiles the result to SPIR-V with naga. Layout reflection reads
// the naga IR of the specialized stages. Materialization creates HAL shader
// modules, bind group layouts, a pipeline layout and the render pipeline;
// without a device it records placeholder pipelines instead.
//
// Usage:
//
//	shaders := asset.New[shader.Shader]()
//	backend, err := native.New(shaders, native.WithDeviceProvider(provider))
//	if err != nil {
//	    // handle error
//	}
//	compiler := pipeline.NewCompiler(backend, pipelines, shaders)
//
// Thread Safety:
// Backend is driven by a single pipeline compiler. Pipeline lookups with
// [Backend.RenderPipeline] are safe from other goroutines.
package native

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/specialize/asset"
	"github.com/gogpu/specialize/internal/preprocess"
	"github.com/gogpu/specialize/pipeline"
	"github.com/gogpu/specialize/shader"
)

// Backend compiles, reflects and materializes specialized pipelines.
type Backend struct {
	shaders *asset.Assets[shader.Shader]
	opts    options

	// modules caches lowered IR and HAL shader modules per shader handle.
	modules map[asset.Handle[shader.Shader]]*shaderModule

	// halModules shares HAL modules between shaders with identical SPIR-V.
	halModules map[uint64]*sharedModule

	mu        sync.RWMutex
	pipelines map[asset.Handle[pipeline.Descriptor]]*RenderPipeline
}

var _ pipeline.Backend = (*Backend)(nil)

// New creates a backend that reads shader assets from shaders.
func New(shaders *asset.Assets[shader.Shader], opts ...Option) (*Backend, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	return &Backend{
		shaders:    shaders,
		opts:       o,
		modules:    make(map[asset.Handle[shader.Shader]]*shaderModule),
		halModules: make(map[uint64]*sharedModule),
		pipelines:  make(map[asset.Handle[pipeline.Descriptor]]*RenderPipeline),
	}, nil
}

// HasDevice reports whether pipelines are created on a HAL device.
func (b *Backend) HasDevice() bool {
	return b.opts.device != nil
}

// SpecializeShader applies defs to the WGSL text of template and compiles
// the result to SPIR-V. The returned shader keeps the preprocessed WGSL,
// which reflection reads later.
func (b *Backend) SpecializeShader(template *shader.Shader, defs []string) (shader.Shader, error) {
	if template.Source.WGSL == "" {
		return shader.Shader{}, ErrBinarySource
	}

	src, err := preprocess.Apply(template.Source.WGSL, defs)
	if err != nil {
		return shader.Shader{}, err
	}

	module, err := b.lower(src)
	if err != nil {
		return shader.Shader{}, err
	}

	code, err := naga.GenerateSPIRV(module, spirv.Options{
		Version: b.opts.spirvVersion,
		Debug:   b.opts.debug,
	})
	if err != nil {
		return shader.Shader{}, err
	}

	label := template.Label
	if len(defs) > 0 {
		label += "{" + strings.Join(defs, ",") + "}"
	}

	slogger().Debug("native: shader compiled",
		"label", label,
		"words", len(code)/4)

	return shader.Shader{
		Label:  label,
		Stage:  template.Stage,
		Source: shader.Source{WGSL: src, SPIRV: spirvWords(code)},
	}, nil
}

// lower parses and lowers WGSL to naga IR, validating it when enabled.
func (b *Backend) lower(src string) (*ir.Module, error) {
	ast, err := naga.Parse(src)
	if err != nil {
		return nil, err
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return nil, err
	}
	if !b.opts.validate {
		return module, nil
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, err
	}
	if len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i := range verrs {
			msgs[i] = verrs[i].Error()
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidShader, strings.Join(msgs, "; "))
	}
	return module, nil
}

// spirvWords converts SPIR-V bytes to little-endian 32-bit words.
func spirvWords(code []byte) []uint32 {
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = uint32(code[i*4]) |
			uint32(code[i*4+1])<<8 |
			uint32(code[i*4+2])<<16 |
			uint32(code[i*4+3])<<24
	}
	return words
}

// shaderModule is the per-handle state of a specialized shader.
type shaderModule struct {
	ir        *ir.Module
	readWrite map[string]bool
	codeHash  uint64
	hal       *sharedModule
}

// sharedModule is a HAL shader module shared by all shaders with the same
// SPIR-V.
type sharedModule struct {
	raw  hal.ShaderModule
	refs int
}

// module returns the lowered IR of a shader, lowering it on first use.
func (b *Backend) module(h asset.Handle[shader.Shader]) (*shaderModule, error) {
	if m, ok := b.modules[h]; ok && m.ir != nil {
		return m, nil
	}
	s, ok := b.shaders.Get(h)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingShader, h)
	}
	if s.Source.WGSL == "" {
		return nil, fmt.Errorf("%s: %w: SPIR-V-only stages cannot be reflected", s.Label, ErrBinarySource)
	}
	module, err := b.lower(s.Source.WGSL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Label, err)
	}
	m := b.modules[h]
	if m == nil {
		m = &shaderModule{codeHash: hashWords(s.Source.SPIRV)}
		b.modules[h] = m
	}
	m.ir = module
	m.readWrite = writableStorage(s.Source.WGSL)
	return m, nil
}

// ReleaseShader drops the cached IR of h and its HAL module reference.
func (b *Backend) ReleaseShader(h asset.Handle[shader.Shader]) {
	m, ok := b.modules[h]
	if !ok {
		return
	}
	delete(b.modules, h)
	if m.hal == nil {
		return
	}
	m.hal.refs--
	if m.hal.refs > 0 {
		return
	}
	delete(b.halModules, m.codeHash)
	if m.hal.raw != nil {
		b.opts.device.DestroyShaderModule(m.hal.raw)
	}
}
