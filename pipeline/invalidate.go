package pipeline

import (
	"github.com/gogpu/specialize/asset"
	"github.com/gogpu/specialize/shader"
)

// Invalidation reports the outcome of a shader update.
type Invalidation struct {
	// Shader is the template shader that changed.
	Shader asset.Handle[shader.Shader]

	// Recompiled is the number of specialized shaders rebuilt.
	Recompiled int

	// Evicted are the specialized pipelines removed from storage. They are
	// rebuilt by the next Compile with the same template and specialization.
	Evicted []asset.Handle[Descriptor]
}

// UpdateShader rebuilds every specialized shader of template after its
// source changed, and evicts the specialized pipelines that consumed the
// replaced shaders.
//
// The update is atomic: every specialized shader is recompiled before any
// cache entry, storage slot or pipeline is touched. If one compile fails,
// the returned *[shader.CompileError] leaves the caches exactly as they
// were. A template without specialized shaders is a no-op.
//
// Template pipelines and template shaders are never modified.
func (c *Compiler) UpdateShader(template asset.Handle[shader.Shader]) (Invalidation, error) {
	inv := Invalidation{Shader: template}

	swaps, err := c.shaders.Recompile(template)
	if err != nil {
		return inv, err
	}
	if len(swaps) == 0 {
		return inv, nil
	}
	inv.Recompiled = len(swaps)

	for _, s := range swaps {
		inv.Evicted = append(inv.Evicted, c.evictConsumers(s.Old)...)
	}

	slogger().Info("pipeline: shader updated",
		"shader", template.String(),
		"recompiled", inv.Recompiled,
		"evicted", len(inv.Evicted))

	return inv, nil
}

// ForgetShader drops a template shader that was removed from storage.
//
// Its specialized shaders are removed, and every specialized pipeline that
// consumed one of them, or the template itself in binary form, is evicted.
func (c *Compiler) ForgetShader(template asset.Handle[shader.Shader]) Invalidation {
	inv := Invalidation{Shader: template}
	for _, h := range c.shaders.Forget(template) {
		inv.Evicted = append(inv.Evicted, c.evictConsumers(h)...)
	}
	inv.Evicted = append(inv.Evicted, c.evictConsumers(template)...)

	if len(inv.Evicted) > 0 {
		slogger().Info("pipeline: shader forgotten",
			"shader", template.String(),
			"evicted", len(inv.Evicted))
	}
	return inv
}

// Forget drops all bookkeeping for a template pipeline and evicts its
// specialized pipelines.
func (c *Compiler) Forget(template asset.Handle[Descriptor]) []asset.Handle[Descriptor] {
	evicted := c.evictTemplate(template)
	delete(c.specialized, template)
	for i, t := range c.templates {
		if t == template {
			c.templates = append(c.templates[:i], c.templates[i+1:]...)
			break
		}
	}
	return evicted
}

// DestroyAll removes every specialized pipeline and specialized shader
// from storage, clears both caches and resets statistics.
func (c *Compiler) DestroyAll() {
	for _, set := range c.specialized {
		for i := range set.entries {
			c.evict(set.entries[i].Pipeline)
		}
	}
	c.specialized = make(map[asset.Handle[Descriptor]]*specializedPipelines)
	c.shaderPipelines = make(map[asset.Handle[shader.Shader]][]asset.Handle[Descriptor])
	c.templates = nil
	c.hits.Store(0)
	c.misses.Store(0)
	c.shaders.DestroyAll()
}

// evictConsumers evicts every specialized pipeline of every template
// pipeline that consumed s.
func (c *Compiler) evictConsumers(s asset.Handle[shader.Shader]) []asset.Handle[Descriptor] {
	consumers := c.shaderPipelines[s]
	delete(c.shaderPipelines, s)

	var evicted []asset.Handle[Descriptor]
	for _, t := range consumers {
		evicted = append(evicted, c.evictTemplate(t)...)
	}
	return evicted
}

// evictTemplate removes all specialized pipelines of template from storage
// and unlinks them from the shaders they consumed. The template stays
// tracked.
func (c *Compiler) evictTemplate(template asset.Handle[Descriptor]) []asset.Handle[Descriptor] {
	set, ok := c.specialized[template]
	if !ok || len(set.entries) == 0 {
		return nil
	}
	evicted := make([]asset.Handle[Descriptor], 0, len(set.entries))
	for i := range set.entries {
		e := &set.entries[i]
		c.unlink(e.vertex, template)
		if !e.fragment.IsZero() {
			c.unlink(e.fragment, template)
		}
		c.evict(e.Pipeline)
		evicted = append(evicted, e.Pipeline)
	}
	set.entries = nil
	set.byKey = make(map[string]int)
	return evicted
}

// evict removes a compiled pipeline from storage and the backend.
func (c *Compiler) evict(h asset.Handle[Descriptor]) {
	c.pipelines.Remove(h)
	if r, ok := c.backend.(pipelineReleaser); ok {
		r.ReleasePipeline(h)
	}
}
