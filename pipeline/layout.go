package pipeline

import (
	"fmt"
	"hash/fnv"
	"slices"
	"strings"

	"github.com/gogpu/gputypes"
)

// BindingKind is the kind of resource bound at a binding slot.
type BindingKind uint8

// Binding kinds.
const (
	// BindingUniform is a uniform buffer.
	BindingUniform BindingKind = iota + 1

	// BindingStorage is a storage buffer.
	BindingStorage

	// BindingSampler is a texture sampler.
	BindingSampler

	// BindingSampledTexture is a sampled texture.
	BindingSampledTexture

	// BindingStorageTexture is a storage texture.
	BindingStorageTexture
)

// String returns the binding kind name.
func (k BindingKind) String() string {
	switch k {
	case BindingUniform:
		return "uniform"
	case BindingStorage:
		return "storage"
	case BindingSampler:
		return "sampler"
	case BindingSampledTexture:
		return "texture"
	case BindingStorageTexture:
		return "storage_texture"
	default:
		return fmt.Sprintf("BindingKind(%d)", k)
	}
}

// BindType describes the resource at a binding.
type BindType struct {
	// Kind is the resource kind.
	Kind BindingKind

	// Dynamic marks a uniform buffer bound with a per-draw dynamic offset.
	Dynamic bool

	// ReadOnly marks a read-only storage buffer.
	ReadOnly bool

	// Size is the minimum buffer binding size in bytes (0 if unknown).
	Size uint64
}

// Visibility is the set of shader stages a binding is visible to.
type Visibility uint8

// Visibility flags.
const (
	VisibleVertex Visibility = 1 << iota
	VisibleFragment
	VisibleCompute
)

// String returns the visible stages joined by "|".
func (v Visibility) String() string {
	if v == 0 {
		return "none"
	}
	var parts []string
	for _, s := range []struct {
		flag Visibility
		name string
	}{
		{VisibleVertex, "vertex"},
		{VisibleFragment, "fragment"},
		{VisibleCompute, "compute"},
	} {
		if v&s.flag != 0 {
			parts = append(parts, s.name)
		}
	}
	return strings.Join(parts, "|")
}

// Binding is one entry of a bind group.
type Binding struct {
	// Name is the shader variable name.
	Name string

	// Index is the @binding index.
	Index uint32

	// Visibility is the set of stages that declare the binding.
	Visibility Visibility

	// Type describes the bound resource.
	Type BindType
}

// BindGroup is one @group of a pipeline layout.
//
// Its identity stamp is a hash of its bindings. Callers caching binding
// sets per bind group compare stamps to detect layout changes.
type BindGroup struct {
	// Index is the @group index.
	Index uint32

	// Bindings are the group entries sorted by binding index.
	Bindings []Binding

	id uint64
}

// NewBindGroup creates a bind group and computes its identity stamp.
func NewBindGroup(index uint32, bindings []Binding) BindGroup {
	g := BindGroup{Index: index, Bindings: bindings}
	g.UpdateID()
	return g
}

// ID returns the identity stamp of the group.
func (g *BindGroup) ID() uint64 {
	return g.id
}

// UpdateID recomputes the identity stamp after bindings changed.
func (g *BindGroup) UpdateID() {
	h := fnv.New64a()
	hashWriteUint32(h, g.Index)
	//nolint:gosec // G115: binding count is bounded by GPU limits
	hashWriteUint32(h, uint32(len(g.Bindings)))
	for i := range g.Bindings {
		b := &g.Bindings[i]
		hashWriteString(h, b.Name)
		hashWriteUint32(h, b.Index)
		hashWriteUint32(h, uint32(b.Visibility))
		hashWriteUint32(h, uint32(b.Type.Kind))
		hashWriteBool(h, b.Type.Dynamic)
		hashWriteBool(h, b.Type.ReadOnly)
		hashWriteUint64(h, b.Type.Size)
	}
	g.id = h.Sum64()
}

// Binding returns the binding with the given name.
func (g *BindGroup) Binding(name string) (*Binding, bool) {
	for i := range g.Bindings {
		if g.Bindings[i].Name == name {
			return &g.Bindings[i], true
		}
	}
	return nil, false
}

// VertexAttribute describes one vertex attribute.
type VertexAttribute struct {
	// Name is the attribute name used to match shader inputs with
	// geometry data.
	Name string

	// Offset is the byte offset from the start of the vertex.
	Offset uint64

	// Format is the attribute data format.
	Format gputypes.VertexFormat

	// ShaderLocation is the @location the attribute feeds.
	ShaderLocation uint32
}

// VertexBufferLayout describes one vertex buffer.
type VertexBufferLayout struct {
	// Stride is the byte stride between consecutive elements.
	Stride uint64

	// StepMode is the input rate (per vertex or per instance).
	StepMode gputypes.VertexStepMode

	// Attributes describes the attributes in this buffer.
	Attributes []VertexAttribute
}

// Attribute returns the first attribute with the given name.
func (l *VertexBufferLayout) Attribute(name string) (*VertexAttribute, bool) {
	for i := range l.Attributes {
		if l.Attributes[i].Name == name {
			return &l.Attributes[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the buffer layout.
func (l VertexBufferLayout) Clone() VertexBufferLayout {
	l.Attributes = slices.Clone(l.Attributes)
	return l
}

// Layout is the resource and vertex layout of a pipeline.
//
// A reflected layout has one single-attribute vertex buffer per shader
// input. After specialization it has one buffer per geometry buffer.
type Layout struct {
	// BindGroups are the resource groups sorted by group index.
	BindGroups []BindGroup

	// VertexBuffers are the vertex buffer layouts.
	VertexBuffers []VertexBufferLayout
}

// BindGroup returns the group with the given index.
func (l *Layout) BindGroup(index uint32) (*BindGroup, bool) {
	for i := range l.BindGroups {
		if l.BindGroups[i].Index == index {
			return &l.BindGroups[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the layout.
func (l *Layout) Clone() *Layout {
	if l == nil {
		return nil
	}
	out := &Layout{
		BindGroups:    make([]BindGroup, len(l.BindGroups)),
		VertexBuffers: make([]VertexBufferLayout, len(l.VertexBuffers)),
	}
	for i, g := range l.BindGroups {
		g.Bindings = slices.Clone(g.Bindings)
		out.BindGroups[i] = g
	}
	for i, b := range l.VertexBuffers {
		out.VertexBuffers[i] = b.Clone()
	}
	return out
}
