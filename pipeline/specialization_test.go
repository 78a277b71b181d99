package pipeline

import (
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/specialize/shader"
)

func TestSpecialization_Key(t *testing.T) {
	base := func() Specialization {
		s := DefaultSpecialization()
		s.Shader = shader.NewSpecialization("A", "B")
		s.DynamicBindings = []string{"view", "mesh"}
		s.VertexBuffers = []VertexBufferLayout{interleaved()}
		return s
	}

	tests := []struct {
		name   string
		modify func(*Specialization)
		equal  bool
	}{
		{"identical", func(*Specialization) {}, true},
		{"dynamic bindings reordered", func(s *Specialization) { s.DynamicBindings = []string{"mesh", "view"} }, true},
		{"dynamic bindings duplicated", func(s *Specialization) { s.DynamicBindings = []string{"mesh", "view", "mesh"} }, true},
		{"definitions reordered", func(s *Specialization) { s.Shader = shader.NewSpecialization("B", "A") }, true},
		{"sample count zero", func(s *Specialization) { s.SampleCount = 0 }, true},
		{"sample count", func(s *Specialization) { s.SampleCount = 4 }, false},
		{"topology", func(s *Specialization) { s.PrimitiveTopology = gputypes.PrimitiveTopologyLineList }, false},
		{"index format", func(s *Specialization) { s.IndexFormat = gputypes.IndexFormatUint16 }, false},
		{"definitions", func(s *Specialization) { s.Shader = shader.NewSpecialization("A") }, false},
		{"dynamic bindings", func(s *Specialization) { s.DynamicBindings = nil }, false},
		{"stride", func(s *Specialization) { s.VertexBuffers[0].Stride = 48 }, false},
		{"attribute offset", func(s *Specialization) { s.VertexBuffers[0].Attributes[1].Offset = 16 }, false},
		{"buffer count", func(s *Specialization) { s.VertexBuffers = append(s.VertexBuffers, interleaved()) }, false},
		{"buffer order", func(s *Specialization) {
			uv := VertexBufferLayout{Stride: 8, Attributes: []VertexAttribute{{Name: "uv"}}}
			s.VertexBuffers = []VertexBufferLayout{uv, interleaved()}
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := base()
			b := base()
			tt.modify(&b)
			if got := a.Equal(&b); got != tt.equal {
				t.Errorf("Equal = %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestSpecialization_KeyDoesNotModify(t *testing.T) {
	s := DefaultSpecialization()
	s.DynamicBindings = []string{"b", "a", "b"}
	s.SampleCount = 0
	_ = s.Key()

	if len(s.DynamicBindings) != 3 || s.DynamicBindings[0] != "b" || s.SampleCount != 0 {
		t.Errorf("Key modified the specialization: %+v", s)
	}
}

func TestSpecialization_HasDynamicBinding(t *testing.T) {
	s := DefaultSpecialization()
	s.DynamicBindings = []string{"view"}
	if !s.HasDynamicBinding("view") || s.HasDynamicBinding("mesh") {
		t.Error("HasDynamicBinding mismatch")
	}
}

func TestReconcileVertexBuffers_NoGeometry(t *testing.T) {
	reflected := []VertexBufferLayout{
		{Attributes: []VertexAttribute{{Name: "position", ShaderLocation: 0}}},
	}
	buffers, unmatched := reconcileVertexBuffers(reflected, nil)
	if len(buffers) != 0 {
		t.Errorf("buffers = %v, want none", buffers)
	}
	if len(unmatched) != 1 || unmatched[0] != "position" {
		t.Errorf("unmatched = %v, want [position]", unmatched)
	}
}

func TestReconcileVertexBuffers_SharedAttribute(t *testing.T) {
	// An input provided by two buffers appears in both.
	reflected := []VertexBufferLayout{
		{Attributes: []VertexAttribute{{Name: "position", ShaderLocation: 3}}},
	}
	geometry := []VertexBufferLayout{
		{Stride: 12, Attributes: []VertexAttribute{{Name: "position", Format: gputypes.VertexFormatFloat32x3}}},
		{Stride: 16, Attributes: []VertexAttribute{{Name: "position", Format: gputypes.VertexFormatFloat32x4}}},
	}
	buffers, unmatched := reconcileVertexBuffers(reflected, geometry)
	if len(unmatched) != 0 {
		t.Errorf("unmatched = %v, want none", unmatched)
	}
	for i, b := range buffers {
		if len(b.Attributes) != 1 || b.Attributes[0].ShaderLocation != 3 {
			t.Errorf("buffer %d = %+v", i, b)
		}
	}
}
