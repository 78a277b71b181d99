package pipeline

import (
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/specialize/asset"
	"github.com/gogpu/specialize/shader"
)

// Default entry point names used when a descriptor leaves them empty.
const (
	DefaultVertexEntryPoint   = "vs_main"
	DefaultFragmentEntryPoint = "fs_main"
)

// ShaderStages lists the shaders of a render pipeline.
type ShaderStages struct {
	// Vertex is the vertex shader. Required.
	Vertex asset.Handle[shader.Shader]

	// Fragment is the optional fragment shader. The zero handle means the
	// pipeline has no fragment stage.
	Fragment asset.Handle[shader.Shader]

	// VertexEntryPoint defaults to "vs_main" if empty.
	VertexEntryPoint string

	// FragmentEntryPoint defaults to "fs_main" if empty.
	FragmentEntryPoint string
}

// HasFragment reports whether a fragment stage is present.
func (s *ShaderStages) HasFragment() bool {
	return !s.Fragment.IsZero()
}

// VertexEntry returns the vertex entry point name with the default applied.
func (s *ShaderStages) VertexEntry() string {
	if s.VertexEntryPoint == "" {
		return DefaultVertexEntryPoint
	}
	return s.VertexEntryPoint
}

// FragmentEntry returns the fragment entry point name with the default applied.
func (s *ShaderStages) FragmentEntry() string {
	if s.FragmentEntryPoint == "" {
		return DefaultFragmentEntryPoint
	}
	return s.FragmentEntryPoint
}

// Descriptor describes a render pipeline.
//
// Templates are authored by the caller and leave Layout nil. Specialized
// descriptors carry the reconciled layout and reference specialized shaders.
type Descriptor struct {
	// Label is an optional debug name.
	Label string

	// Layout is the reflected and reconciled layout (nil on templates).
	Layout *Layout

	// ShaderStages are the pipeline shaders.
	ShaderStages ShaderStages

	// PrimitiveTopology is the primitive type (triangles, lines, points).
	PrimitiveTopology gputypes.PrimitiveTopology

	// FrontFace defines which face is considered front-facing.
	FrontFace gputypes.FrontFace

	// CullMode defines which faces to cull.
	CullMode gputypes.CullMode

	// IndexFormat is the index buffer element format.
	IndexFormat gputypes.IndexFormat

	// SampleCount is the number of samples per pixel (1 for non-MSAA).
	SampleCount uint32

	// ColorTargets are the color attachments written by the fragment stage.
	// Empty means the backend picks its default target format.
	ColorTargets []gputypes.ColorTargetState

	// DepthFormat is the format of the depth attachment (optional).
	// Use TextureFormatUndefined for no depth attachment.
	DepthFormat gputypes.TextureFormat

	// DepthWriteEnabled enables depth buffer writes.
	DepthWriteEnabled bool

	// DepthCompare is the depth comparison function.
	DepthCompare gputypes.CompareFunction
}

// NewDescriptor creates a template descriptor for the given shaders with
// triangle-list topology, 32-bit indices and one sample per pixel.
func NewDescriptor(label string, vertex, fragment asset.Handle[shader.Shader]) Descriptor {
	return Descriptor{
		Label: label,
		ShaderStages: ShaderStages{
			Vertex:   vertex,
			Fragment: fragment,
		},
		PrimitiveTopology: gputypes.PrimitiveTopologyTriangleList,
		IndexFormat:       gputypes.IndexFormatUint32,
		SampleCount:       1,
	}
}

// Clone returns a deep copy of the descriptor.
//
// Blend states referenced by color targets are shared; they are treated
// as immutable.
func (d *Descriptor) Clone() Descriptor {
	out := *d
	out.Layout = d.Layout.Clone()
	out.ColorTargets = slices.Clone(d.ColorTargets)
	return out
}
