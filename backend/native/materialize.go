package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/specialize/asset"
	"github.com/gogpu/specialize/pipeline"
	"github.com/gogpu/specialize/shader"
)

// RenderPipeline is the backend object of a compiled pipeline descriptor.
//
// Without a device it is a placeholder: the descriptor was accepted but no
// HAL objects exist.
type RenderPipeline struct {
	label       string
	bindLayouts []hal.BindGroupLayout
	layout      hal.PipelineLayout
	raw         hal.RenderPipeline
}

// Label returns the pipeline's debug label.
func (p *RenderPipeline) Label() string {
	return p.label
}

// Raw returns the HAL render pipeline, or nil for a placeholder.
func (p *RenderPipeline) Raw() hal.RenderPipeline {
	return p.raw
}

// BindGroupLayouts returns the HAL bind group layouts indexed by group.
func (p *RenderPipeline) BindGroupLayouts() []hal.BindGroupLayout {
	return p.bindLayouts
}

// IsPlaceholder reports whether no HAL pipeline was created.
func (p *RenderPipeline) IsPlaceholder() bool {
	return p.raw == nil
}

func (p *RenderPipeline) destroy(device hal.Device) {
	if device == nil {
		return
	}
	if p.raw != nil {
		device.DestroyRenderPipeline(p.raw)
		p.raw = nil
	}
	if p.layout != nil {
		device.DestroyPipelineLayout(p.layout)
		p.layout = nil
	}
	for _, l := range p.bindLayouts {
		if l != nil {
			device.DestroyBindGroupLayout(l)
		}
	}
	p.bindLayouts = nil
}

// MaterializePipeline creates the backend pipeline of a compiled
// descriptor. desc must carry its reconciled layout.
func (b *Backend) MaterializePipeline(h asset.Handle[pipeline.Descriptor], desc *pipeline.Descriptor) error {
	if desc.Layout == nil {
		return fmt.Errorf("native: %s: descriptor has no layout", desc.Label)
	}

	p := &RenderPipeline{label: desc.Label}
	if b.opts.device != nil {
		if err := b.createRenderPipeline(p, desc); err != nil {
			p.destroy(b.opts.device)
			return err
		}
	}

	b.mu.Lock()
	old := b.pipelines[h]
	b.pipelines[h] = p
	b.mu.Unlock()
	if old != nil {
		old.destroy(b.opts.device)
	}

	slogger().Debug("native: pipeline materialized",
		"label", desc.Label,
		"handle", h.String(),
		"placeholder", p.IsPlaceholder())
	return nil
}

func (b *Backend) createRenderPipeline(p *RenderPipeline, desc *pipeline.Descriptor) error {
	device := b.opts.device

	vertex, err := b.halModule(desc.ShaderStages.Vertex)
	if err != nil {
		return err
	}

	// Pipeline layouts address groups by position; gaps get empty layouts.
	var groupCount uint32
	for i := range desc.Layout.BindGroups {
		groupCount = max(groupCount, desc.Layout.BindGroups[i].Index+1)
	}
	p.bindLayouts = make([]hal.BindGroupLayout, groupCount)
	for gi := range groupCount {
		var entries []gputypes.BindGroupLayoutEntry
		if g, ok := desc.Layout.BindGroup(gi); ok {
			entries, err = bindGroupLayoutEntries(g)
			if err != nil {
				return fmt.Errorf("native: %s: %w", desc.Label, err)
			}
		}
		l, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s_group%d", desc.Label, gi),
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("native: create bind group layout %d: %w", gi, err)
		}
		p.bindLayouts[gi] = l
	}

	p.layout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label + "_layout",
		BindGroupLayouts: p.bindLayouts,
	})
	if err != nil {
		return fmt.Errorf("native: create pipeline layout: %w", err)
	}

	halDesc := &hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: p.layout,
		Vertex: hal.VertexState{
			Module:     vertex,
			EntryPoint: desc.ShaderStages.VertexEntry(),
			Buffers:    vertexBufferLayouts(desc.Layout.VertexBuffers),
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  desc.PrimitiveTopology,
			FrontFace: desc.FrontFace,
			CullMode:  desc.CullMode,
		},
		Multisample: gputypes.MultisampleState{
			Count: desc.SampleCount,
			Mask:  0xFFFFFFFF,
		},
	}

	if desc.ShaderStages.HasFragment() {
		fragment, err := b.halModule(desc.ShaderStages.Fragment)
		if err != nil {
			return err
		}
		targets := desc.ColorTargets
		if len(targets) == 0 {
			targets = []gputypes.ColorTargetState{{
				Format:    b.opts.colorFormat,
				WriteMask: gputypes.ColorWriteMaskAll,
			}}
		}
		halDesc.Fragment = &hal.FragmentState{
			Module:     fragment,
			EntryPoint: desc.ShaderStages.FragmentEntry(),
			Targets:    targets,
		}
	}

	if desc.DepthFormat != gputypes.TextureFormatUndefined {
		halDesc.DepthStencil = &hal.DepthStencilState{
			Format:            desc.DepthFormat,
			DepthWriteEnabled: desc.DepthWriteEnabled,
			DepthCompare:      desc.DepthCompare,
			StencilFront: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
			StencilBack: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
		}
	}

	p.raw, err = device.CreateRenderPipeline(halDesc)
	if err != nil {
		return fmt.Errorf("native: create render pipeline %s: %w", desc.Label, err)
	}
	return nil
}

// halModule returns the HAL shader module of a specialized shader,
// creating it on first use. Shaders with identical SPIR-V share a module.
func (b *Backend) halModule(h asset.Handle[shader.Shader]) (hal.ShaderModule, error) {
	if m, ok := b.modules[h]; ok && m.hal != nil {
		return m.hal.raw, nil
	}
	s, ok := b.shaders.Get(h)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingShader, h)
	}
	if len(s.Source.SPIRV) == 0 {
		return nil, fmt.Errorf("native: %s: no SPIR-V code", s.Label)
	}

	m := b.modules[h]
	if m == nil {
		m = &shaderModule{codeHash: hashWords(s.Source.SPIRV)}
		b.modules[h] = m
	}

	shared, ok := b.halModules[m.codeHash]
	if !ok {
		raw, err := b.opts.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label: s.Label,
			Source: hal.ShaderSource{
				SPIRV: s.Source.SPIRV,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("native: create shader module %s: %w", s.Label, err)
		}
		shared = &sharedModule{raw: raw}
		b.halModules[m.codeHash] = shared
	}
	shared.refs++
	m.hal = shared
	return shared.raw, nil
}

func vertexBufferLayouts(buffers []pipeline.VertexBufferLayout) []gputypes.VertexBufferLayout {
	out := make([]gputypes.VertexBufferLayout, len(buffers))
	for i := range buffers {
		b := &buffers[i]
		attrs := make([]gputypes.VertexAttribute, len(b.Attributes))
		for j, a := range b.Attributes {
			attrs[j] = gputypes.VertexAttribute{
				Format:         a.Format,
				Offset:         a.Offset,
				ShaderLocation: a.ShaderLocation,
			}
		}
		out[i] = gputypes.VertexBufferLayout{
			ArrayStride: b.Stride,
			StepMode:    b.StepMode,
			Attributes:  attrs,
		}
	}
	return out
}

func bindGroupLayoutEntries(g *pipeline.BindGroup) ([]gputypes.BindGroupLayoutEntry, error) {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(g.Bindings))
	for i := range g.Bindings {
		b := &g.Bindings[i]
		e := gputypes.BindGroupLayoutEntry{Binding: b.Index}
		if b.Visibility&pipeline.VisibleVertex != 0 {
			e.Visibility |= gputypes.ShaderStageVertex
		}
		if b.Visibility&pipeline.VisibleFragment != 0 {
			e.Visibility |= gputypes.ShaderStageFragment
		}
		if b.Visibility&pipeline.VisibleCompute != 0 {
			e.Visibility |= gputypes.ShaderStageCompute
		}

		switch b.Type.Kind {
		case pipeline.BindingUniform:
			e.Buffer = &gputypes.BufferBindingLayout{
				Type:             gputypes.BufferBindingTypeUniform,
				HasDynamicOffset: b.Type.Dynamic,
				MinBindingSize:   b.Type.Size,
			}
		case pipeline.BindingStorage:
			t := gputypes.BufferBindingTypeStorage
			if b.Type.ReadOnly {
				t = gputypes.BufferBindingTypeReadOnlyStorage
			}
			e.Buffer = &gputypes.BufferBindingLayout{Type: t, MinBindingSize: b.Type.Size}
		case pipeline.BindingSampler:
			e.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
		case pipeline.BindingSampledTexture:
			e.Texture = &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
		default:
			return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedBinding, b.Name, b.Type.Kind)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// RenderPipeline returns the backend pipeline of a compiled descriptor.
func (b *Backend) RenderPipeline(h asset.Handle[pipeline.Descriptor]) (*RenderPipeline, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.pipelines[h]
	return p, ok
}

// Len returns the number of materialized pipelines.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.pipelines)
}

// ReleasePipeline destroys the backend pipeline of an evicted descriptor.
func (b *Backend) ReleasePipeline(h asset.Handle[pipeline.Descriptor]) {
	b.mu.Lock()
	p, ok := b.pipelines[h]
	delete(b.pipelines, h)
	b.mu.Unlock()
	if ok {
		p.destroy(b.opts.device)
	}
}

// DestroyAll destroys every pipeline and shader module.
//
// After calling DestroyAll(), the backend is empty and ready for reuse.
func (b *Backend) DestroyAll() {
	b.mu.Lock()
	pipelines := b.pipelines
	b.pipelines = make(map[asset.Handle[pipeline.Descriptor]]*RenderPipeline)
	b.mu.Unlock()

	for _, p := range pipelines {
		p.destroy(b.opts.device)
	}
	if b.opts.device != nil {
		for _, m := range b.halModules {
			if m.raw != nil {
				b.opts.device.DestroyShaderModule(m.raw)
			}
		}
	}
	b.halModules = make(map[uint64]*sharedModule)
	b.modules = make(map[asset.Handle[shader.Shader]]*shaderModule)
}
