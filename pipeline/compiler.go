package pipeline

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/gogpu/specialize/asset"
	"github.com/gogpu/specialize/shader"
)

// Backend compiles shaders, reflects pipeline layouts and creates the
// backend object of a compiled pipeline descriptor.
//
// ReflectPipelineLayout receives the specialized stages and returns the
// bind groups plus one single-attribute vertex buffer per shader input in
// shader order. MaterializePipeline is called once per compiled
// descriptor, right after it was added to storage.
type Backend interface {
	shader.Backend
	ReflectPipelineLayout(stages *ShaderStages) (*Layout, error)
	MaterializePipeline(h asset.Handle[Descriptor], desc *Descriptor) error
}

// pipelineReleaser is implemented by backends that must free the backend
// object of an evicted pipeline.
type pipelineReleaser interface {
	ReleasePipeline(h asset.Handle[Descriptor])
}

// Entry is one specialized pipeline of a template.
type Entry struct {
	// Pipeline is the compiled descriptor handle.
	Pipeline asset.Handle[Descriptor]

	// Specialization is the normalized configuration it was compiled with.
	Specialization Specialization

	// Unmatched lists the shader inputs that no geometry buffer provided.
	Unmatched []string
}

// entry is an Entry plus the specialized shaders it consumes.
type entry struct {
	Entry
	vertex   asset.Handle[shader.Shader]
	fragment asset.Handle[shader.Shader]
}

// specializedPipelines is the bookkeeping for one template pipeline.
type specializedPipelines struct {
	entries []entry
	byKey   map[string]int
}

// Compiler caches specialized pipelines.
//
// It owns a [shader.Compiler] for the shader stages and keeps two reverse
// indices: template pipeline to its specialized entries, and specialized
// shader to the template pipelines that consumed it. Both store handles
// only; storage owns the assets.
//
// Thread Safety:
// Compiler is not safe for concurrent use. It is owned by the single
// stage that prepares pipelines for a frame.
type Compiler struct {
	backend   Backend
	pipelines *asset.Assets[Descriptor]
	shaders   *shader.Compiler
	opts      options

	specialized map[asset.Handle[Descriptor]]*specializedPipelines
	templates   []asset.Handle[Descriptor]

	// shaderPipelines maps a specialized shader to the template pipelines
	// whose entries were compiled with it.
	shaderPipelines map[asset.Handle[shader.Shader]][]asset.Handle[Descriptor]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCompiler creates a pipeline cache that stores compiled descriptors in
// pipelines and specialized shaders in shaders.
func NewCompiler(backend Backend, pipelines *asset.Assets[Descriptor], shaders *asset.Assets[shader.Shader], opts ...Option) *Compiler {
	c := &Compiler{
		backend:         backend,
		pipelines:       pipelines,
		shaders:         shader.NewCompiler(backend, shaders),
		specialized:     make(map[asset.Handle[Descriptor]]*specializedPipelines),
		shaderPipelines: make(map[asset.Handle[shader.Shader]][]asset.Handle[Descriptor]),
	}
	for _, opt := range opts {
		opt(&c.opts)
	}
	return c
}

// Shaders returns the shader cache used for the pipeline stages.
func (c *Compiler) Shaders() *shader.Compiler {
	return c.shaders
}

func (c *Compiler) track(template asset.Handle[Descriptor]) *specializedPipelines {
	set, ok := c.specialized[template]
	if !ok {
		set = &specializedPipelines{byKey: make(map[string]int)}
		c.specialized[template] = set
		c.templates = append(c.templates, template)
	}
	return set
}

// Compile returns the handle of template compiled with spec.
//
// A cached handle is returned when an equal specialization was compiled
// before. Otherwise the template is cloned, its stages are specialized,
// the layout is reflected and reconciled with the geometry buffers of
// spec, and the result is added to storage and materialized by the
// backend. The template itself is never modified.
//
// Errors: [ErrNilSpecialization], [ErrDuplicateAttribute], an error
// wrapping [asset.ErrMissing] if the template or a shader is absent, a
// *[shader.CompileError] if a stage fails to compile, an
// *[UnmatchedAttributeError] in strict vertex layout mode, or the
// backend's reflection or materialization error.
func (c *Compiler) Compile(template asset.Handle[Descriptor], spec *Specialization) (asset.Handle[Descriptor], error) {
	if spec == nil {
		return asset.Handle[Descriptor]{}, ErrNilSpecialization
	}
	if err := spec.validate(); err != nil {
		return asset.Handle[Descriptor]{}, err
	}

	tmpl, ok := c.pipelines.Get(template)
	if !ok {
		return asset.Handle[Descriptor]{}, fmt.Errorf("pipeline: template %s: %w", template, asset.ErrMissing)
	}

	norm := spec.normalized()
	key := norm.key()
	if set, ok := c.specialized[template]; ok {
		if i, ok := set.byKey[key]; ok {
			c.hits.Add(1)
			return set.entries[i].Pipeline, nil
		}
	}

	// Add below may grow storage and move tmpl.
	desc := tmpl.Clone()

	vertex, err := c.shaders.Compile(desc.ShaderStages.Vertex, norm.Shader)
	if err != nil {
		return asset.Handle[Descriptor]{}, err
	}
	desc.ShaderStages.Vertex = vertex

	var fragment asset.Handle[shader.Shader]
	if desc.ShaderStages.HasFragment() {
		fragment, err = c.shaders.Compile(desc.ShaderStages.Fragment, norm.Shader)
		if err != nil {
			return asset.Handle[Descriptor]{}, err
		}
		desc.ShaderStages.Fragment = fragment
	}

	layout, err := c.backend.ReflectPipelineLayout(&desc.ShaderStages)
	if err != nil {
		return asset.Handle[Descriptor]{}, fmt.Errorf("pipeline: reflect %s: %w", c.name(template, &desc), err)
	}
	if layout == nil {
		layout = &Layout{}
	} else {
		layout = layout.Clone()
	}

	applyDynamicBindings(layout, norm.DynamicBindings)

	buffers, unmatched := reconcileVertexBuffers(layout.VertexBuffers, norm.VertexBuffers)
	if len(unmatched) > 0 {
		if c.opts.strictVertexLayout {
			return asset.Handle[Descriptor]{}, &UnmatchedAttributeError{Template: template, Attributes: unmatched}
		}
		slogger().Warn("pipeline: shader attributes without geometry",
			"template", c.name(template, &desc),
			"attributes", unmatched)
	}
	layout.VertexBuffers = buffers

	desc.Layout = layout
	desc.SampleCount = norm.SampleCount
	desc.PrimitiveTopology = norm.PrimitiveTopology
	desc.IndexFormat = norm.IndexFormat

	h := c.pipelines.Add(desc)
	stored, _ := c.pipelines.Get(h)
	if err := c.backend.MaterializePipeline(h, stored); err != nil {
		c.pipelines.Remove(h)
		return asset.Handle[Descriptor]{}, fmt.Errorf("pipeline: materialize %s: %w", c.name(template, &desc), err)
	}
	c.misses.Add(1)

	set := c.track(template)
	set.byKey[key] = len(set.entries)
	set.entries = append(set.entries, entry{
		Entry:    Entry{Pipeline: h, Specialization: norm, Unmatched: unmatched},
		vertex:   vertex,
		fragment: fragment,
	})
	c.link(vertex, template)
	if !fragment.IsZero() {
		c.link(fragment, template)
	}

	slogger().Debug("pipeline: specialized",
		"template", c.name(template, &desc),
		"defs", norm.Shader.String(),
		"buffers", len(buffers),
		"samples", norm.SampleCount,
		"handle", h.String())

	return h, nil
}

// name returns a log-friendly template name.
func (c *Compiler) name(template asset.Handle[Descriptor], desc *Descriptor) string {
	if desc.Label != "" {
		return desc.Label
	}
	return template.String()
}

// link records that template has entries compiled with s.
func (c *Compiler) link(s asset.Handle[shader.Shader], template asset.Handle[Descriptor]) {
	list := c.shaderPipelines[s]
	if slices.Contains(list, template) {
		return
	}
	c.shaderPipelines[s] = append(list, template)
}

// unlink removes template from the consumers of s.
func (c *Compiler) unlink(s asset.Handle[shader.Shader], template asset.Handle[Descriptor]) {
	list := slices.DeleteFunc(c.shaderPipelines[s], func(t asset.Handle[Descriptor]) bool {
		return t == template
	})
	if len(list) == 0 {
		delete(c.shaderPipelines, s)
		return
	}
	c.shaderPipelines[s] = list
}

// Get returns the cached handle without compiling.
func (c *Compiler) Get(template asset.Handle[Descriptor], spec *Specialization) (asset.Handle[Descriptor], bool) {
	if spec == nil {
		return asset.Handle[Descriptor]{}, false
	}
	set, ok := c.specialized[template]
	if !ok {
		return asset.Handle[Descriptor]{}, false
	}
	i, ok := set.byKey[spec.Key()]
	if !ok {
		return asset.Handle[Descriptor]{}, false
	}
	return set.entries[i].Pipeline, true
}

// Specialized returns the specialized pipeline handles of template.
func (c *Compiler) Specialized(template asset.Handle[Descriptor]) []asset.Handle[Descriptor] {
	set, ok := c.specialized[template]
	if !ok {
		return nil
	}
	out := make([]asset.Handle[Descriptor], 0, len(set.entries))
	for i := range set.entries {
		out = append(out, set.entries[i].Pipeline)
	}
	return out
}

// AllSpecialized returns the specialized pipeline handles of every
// template, grouped by template in registration order.
func (c *Compiler) AllSpecialized() []asset.Handle[Descriptor] {
	var out []asset.Handle[Descriptor]
	for _, t := range c.templates {
		out = append(out, c.Specialized(t)...)
	}
	return out
}

// Entries returns a snapshot of the specialized entries of template.
func (c *Compiler) Entries(template asset.Handle[Descriptor]) []Entry {
	set, ok := c.specialized[template]
	if !ok {
		return nil
	}
	out := make([]Entry, len(set.entries))
	for i := range set.entries {
		e := set.entries[i].Entry
		e.Specialization = e.Specialization.Clone()
		e.Unmatched = slices.Clone(e.Unmatched)
		out[i] = e
	}
	return out
}

// Templates returns the template pipelines compiled at least once, in
// registration order.
func (c *Compiler) Templates() []asset.Handle[Descriptor] {
	return slices.Clone(c.templates)
}

// Len returns the total number of specialized pipelines.
func (c *Compiler) Len() int {
	n := 0
	for _, set := range c.specialized {
		n += len(set.entries)
	}
	return n
}

// Stats returns the number of pipeline cache hits and misses.
func (c *Compiler) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// HitRate returns the pipeline cache hit rate (0.0 to 1.0).
//
// Returns 0.0 if no requests have been made.
func (c *Compiler) HitRate() float64 {
	hits, misses := c.Stats()
	total := hits + misses
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total)
}
