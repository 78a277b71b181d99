package shader

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/specialize/asset"
)

// Backend compiles a template shader with a set of definitions.
//
// The returned artifact is stored by the Compiler; the backend must not
// keep references into the template.
type Backend interface {
	SpecializeShader(template *Shader, defs []string) (Shader, error)
}

// releaser is implemented by backends that hold per-shader objects
// (for example GPU shader modules) that must be freed on eviction.
type releaser interface {
	ReleaseShader(h asset.Handle[Shader])
}

// Entry is one specialized shader of a template.
type Entry struct {
	// Shader is the compiled shader handle.
	Shader asset.Handle[Shader]

	// Specialization is the definition set it was compiled with.
	Specialization Specialization
}

// Swap records a specialized shader replaced during recompilation.
type Swap struct {
	Old            asset.Handle[Shader]
	New            asset.Handle[Shader]
	Specialization Specialization
}

// specializedShaders is the bookkeeping for one template shader.
type specializedShaders struct {
	entries []Entry
	byKey   map[string]int
}

// Compiler caches specialized shaders.
//
// For every template shader it keeps one entry per distinct
// [Specialization]. Lookups are O(1) by normalized key.
//
// Thread Safety:
// Compiler is not safe for concurrent use. It is owned by the single
// stage that prepares pipelines for a frame.
type Compiler struct {
	backend Backend
	shaders *asset.Assets[Shader]

	// specialized maps a template shader to its specialized entries.
	specialized map[asset.Handle[Shader]]*specializedShaders

	// templates keeps registration order for deterministic enumeration.
	templates []asset.Handle[Shader]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCompiler creates a shader cache that stores artifacts in shaders.
func NewCompiler(backend Backend, shaders *asset.Assets[Shader]) *Compiler {
	return &Compiler{
		backend:     backend,
		shaders:     shaders,
		specialized: make(map[asset.Handle[Shader]]*specializedShaders),
	}
}

// track returns the bookkeeping for template, creating it on first use.
func (c *Compiler) track(template asset.Handle[Shader]) *specializedShaders {
	set, ok := c.specialized[template]
	if !ok {
		set = &specializedShaders{byKey: make(map[string]int)}
		c.specialized[template] = set
		c.templates = append(c.templates, template)
	}
	return set
}

// Compile returns the handle of template compiled with spec.
//
// The template is registered for tracking before anything else, so every
// shader ever requested has bookkeeping from its first request. A template
// in binary form is returned unchanged. Otherwise a cached artifact is
// returned when one exists, and the backend is called on a miss.
//
// Returns an error wrapping [asset.ErrMissing] if the template is absent,
// or a *[CompileError] if the backend fails.
func (c *Compiler) Compile(template asset.Handle[Shader], spec Specialization) (asset.Handle[Shader], error) {
	set := c.track(template)

	tmpl, ok := c.shaders.Get(template)
	if !ok {
		return asset.Handle[Shader]{}, fmt.Errorf("shader: template %s: %w", template, asset.ErrMissing)
	}

	// Binary shaders cannot be re-injected with definitions.
	if tmpl.Source.IsBinary() {
		return template, nil
	}

	key := spec.Key()
	if i, ok := set.byKey[key]; ok {
		c.hits.Add(1)
		return set.entries[i].Shader, nil
	}

	artifact, err := c.backend.SpecializeShader(tmpl, spec.Definitions())
	if err != nil {
		return asset.Handle[Shader]{}, &CompileError{
			Template:    template,
			Label:       tmpl.Label,
			Definitions: spec.Definitions(),
			Err:         err,
		}
	}
	c.misses.Add(1)

	h := c.shaders.Add(artifact)
	set.byKey[key] = len(set.entries)
	set.entries = append(set.entries, Entry{Shader: h, Specialization: spec})

	slogger().Debug("shader: specialized",
		"template", template.String(),
		"defs", spec.String(),
		"handle", h.String())

	return h, nil
}

// Get returns the cached handle without compiling.
func (c *Compiler) Get(template asset.Handle[Shader], spec Specialization) (asset.Handle[Shader], bool) {
	set, ok := c.specialized[template]
	if !ok {
		return asset.Handle[Shader]{}, false
	}
	i, ok := set.byKey[spec.Key()]
	if !ok {
		return asset.Handle[Shader]{}, false
	}
	return set.entries[i].Shader, true
}

// Tracked reports whether template has been requested at least once.
func (c *Compiler) Tracked(template asset.Handle[Shader]) bool {
	_, ok := c.specialized[template]
	return ok
}

// Entries returns a snapshot of the specialized entries of template.
func (c *Compiler) Entries(template asset.Handle[Shader]) []Entry {
	set, ok := c.specialized[template]
	if !ok {
		return nil
	}
	out := make([]Entry, len(set.entries))
	copy(out, set.entries)
	return out
}

// Templates returns the tracked template shaders in registration order.
func (c *Compiler) Templates() []asset.Handle[Shader] {
	out := make([]asset.Handle[Shader], len(c.templates))
	copy(out, c.templates)
	return out
}

// Len returns the total number of specialized shaders.
func (c *Compiler) Len() int {
	n := 0
	for _, set := range c.specialized {
		n += len(set.entries)
	}
	return n
}

// Recompile rebuilds every specialized shader of template from its
// current source.
//
// Recompilation is atomic: all artifacts are compiled first, and the cache
// and asset storage are only modified when every compile succeeded. On
// success each entry is swapped to its new handle and the old handle is
// removed from storage. If the template became binary, its entries are
// dropped and every Swap points at the template itself.
//
// Returns no swaps if template has no specialized entries.
func (c *Compiler) Recompile(template asset.Handle[Shader]) ([]Swap, error) {
	set, ok := c.specialized[template]
	if !ok || len(set.entries) == 0 {
		return nil, nil
	}

	tmpl, ok := c.shaders.Get(template)
	if !ok {
		return nil, fmt.Errorf("shader: template %s: %w", template, asset.ErrMissing)
	}

	if tmpl.Source.IsBinary() {
		swaps := make([]Swap, 0, len(set.entries))
		for _, e := range set.entries {
			swaps = append(swaps, Swap{Old: e.Shader, New: template, Specialization: e.Specialization})
			c.evict(e.Shader)
		}
		set.entries = nil
		set.byKey = make(map[string]int)
		return swaps, nil
	}

	// Compile everything before touching storage.
	artifacts := make([]Shader, len(set.entries))
	for i, e := range set.entries {
		artifact, err := c.backend.SpecializeShader(tmpl, e.Specialization.Definitions())
		if err != nil {
			return nil, &CompileError{
				Template:    template,
				Label:       tmpl.Label,
				Definitions: e.Specialization.Definitions(),
				Err:         err,
			}
		}
		artifacts[i] = artifact
	}

	swaps := make([]Swap, 0, len(set.entries))
	for i := range set.entries {
		e := &set.entries[i]
		old := e.Shader
		e.Shader = c.shaders.Add(artifacts[i])
		c.evict(old)
		swaps = append(swaps, Swap{Old: old, New: e.Shader, Specialization: e.Specialization})
	}
	return swaps, nil
}

// Forget drops all bookkeeping for template and removes its specialized
// shaders from storage. Returns the removed handles.
func (c *Compiler) Forget(template asset.Handle[Shader]) []asset.Handle[Shader] {
	set, ok := c.specialized[template]
	if !ok {
		return nil
	}
	removed := make([]asset.Handle[Shader], 0, len(set.entries))
	for _, e := range set.entries {
		c.evict(e.Shader)
		removed = append(removed, e.Shader)
	}
	delete(c.specialized, template)
	for i, t := range c.templates {
		if t == template {
			c.templates = append(c.templates[:i], c.templates[i+1:]...)
			break
		}
	}
	return removed
}

// DestroyAll removes every specialized shader from storage, clears the
// cache and resets statistics.
func (c *Compiler) DestroyAll() {
	for _, set := range c.specialized {
		for _, e := range set.entries {
			c.evict(e.Shader)
		}
	}
	c.specialized = make(map[asset.Handle[Shader]]*specializedShaders)
	c.templates = nil
	c.hits.Store(0)
	c.misses.Store(0)
}

// evict removes a specialized shader from storage and the backend.
func (c *Compiler) evict(h asset.Handle[Shader]) {
	c.shaders.Remove(h)
	if r, ok := c.backend.(releaser); ok {
		r.ReleaseShader(h)
	}
}

// Stats returns the number of cache hits and misses.
func (c *Compiler) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// HitRate returns the cache hit rate (0.0 to 1.0).
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
