package pipeline

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/specialize/shader"
)

// Specialization is the configuration that selects one compiled variant
// of a template pipeline. It is the pipeline cache key: two
// specializations are equal when all fields are equal, with DynamicBindings
// compared as a set and VertexBuffers compared in order.
type Specialization struct {
	// Shader is the definition set applied to every shader stage.
	Shader shader.Specialization

	// PrimitiveTopology is the primitive type.
	PrimitiveTopology gputypes.PrimitiveTopology

	// DynamicBindings names the uniform bindings switched to dynamic offsets.
	DynamicBindings []string

	// IndexFormat is the index buffer element format.
	IndexFormat gputypes.IndexFormat

	// VertexBuffers describes the geometry buffers, one per logical vertex
	// buffer, in binding order.
	VertexBuffers []VertexBufferLayout

	// SampleCount is the number of samples per pixel. Zero means 1.
	SampleCount uint32
}

// DefaultSpecialization returns triangle-list topology, 32-bit indices,
// one sample per pixel and no definitions.
func DefaultSpecialization() Specialization {
	return Specialization{
		PrimitiveTopology: gputypes.PrimitiveTopologyTriangleList,
		IndexFormat:       gputypes.IndexFormatUint32,
		SampleCount:       1,
	}
}

// HasDynamicBinding reports whether name is listed as a dynamic binding.
func (s *Specialization) HasDynamicBinding(name string) bool {
	return slices.Contains(s.DynamicBindings, name)
}

// Clone returns a deep copy of the specialization.
func (s *Specialization) Clone() Specialization {
	out := *s
	out.DynamicBindings = slices.Clone(s.DynamicBindings)
	out.VertexBuffers = make([]VertexBufferLayout, len(s.VertexBuffers))
	for i, b := range s.VertexBuffers {
		out.VertexBuffers[i] = b.Clone()
	}
	return out
}

// normalized returns a deep copy with the sample count and buffer step
// modes defaulted and the dynamic binding set sorted and deduplicated.
func (s *Specialization) normalized() Specialization {
	out := s.Clone()
	if out.SampleCount == 0 {
		out.SampleCount = 1
	}
	for i := range out.VertexBuffers {
		if out.VertexBuffers[i].StepMode == gputypes.VertexStepModeUndefined {
			out.VertexBuffers[i].StepMode = gputypes.VertexStepModeVertex
		}
	}
	if len(out.DynamicBindings) > 0 {
		slices.Sort(out.DynamicBindings)
		out.DynamicBindings = slices.Compact(out.DynamicBindings)
	} else {
		out.DynamicBindings = nil
	}
	return out
}

// validate rejects specializations that cannot be reconciled.
// Duplicate attribute names within one buffer are a caller error.
func (s *Specialization) validate() error {
	for i := range s.VertexBuffers {
		attrs := s.VertexBuffers[i].Attributes
		for j := range attrs {
			for k := j + 1; k < len(attrs); k++ {
				if attrs[j].Name == attrs[k].Name {
					return fmt.Errorf("%w: %q in vertex buffer %d", ErrDuplicateAttribute, attrs[j].Name, i)
				}
			}
		}
	}
	return nil
}

// Key returns the canonical cache key of the specialization.
func (s *Specialization) Key() string {
	n := s.normalized()
	return n.key()
}

// key encodes an already normalized specialization.
//
//nolint:gosec // G115: buffer and attribute counts are bounded by GPU limits
func (s *Specialization) key() string {
	var w keyWriter
	w.strings(s.Shader.Definitions())
	w.uint32(uint32(s.PrimitiveTopology))
	w.strings(s.DynamicBindings)
	w.uint32(uint32(s.IndexFormat))
	w.uint32(s.SampleCount)
	w.uint32(uint32(len(s.VertexBuffers)))
	for i := range s.VertexBuffers {
		b := &s.VertexBuffers[i]
		w.uint64(b.Stride)
		w.uint32(uint32(b.StepMode))
		w.uint32(uint32(len(b.Attributes)))
		for j := range b.Attributes {
			a := &b.Attributes[j]
			w.string(a.Name)
			w.uint64(a.Offset)
			w.uint32(uint32(a.Format))
			w.uint32(a.ShaderLocation)
		}
	}
	return w.key()
}

// Equal reports whether two specializations select the same variant.
func (s *Specialization) Equal(other *Specialization) bool {
	return s.Key() == other.Key()
}
