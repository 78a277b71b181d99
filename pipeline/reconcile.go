package pipeline

import "slices"

// applyDynamicBindings switches the named uniform bindings to dynamic
// offsets. names must be sorted. A group's identity stamp is recomputed
// only when one of its bindings changed.
func applyDynamicBindings(layout *Layout, names []string) {
	if len(names) == 0 {
		return
	}
	for gi := range layout.BindGroups {
		g := &layout.BindGroups[gi]
		changed := false
		for bi := range g.Bindings {
			b := &g.Bindings[bi]
			if b.Type.Kind != BindingUniform || b.Type.Dynamic {
				continue
			}
			if _, found := slices.BinarySearch(names, b.Name); found {
				b.Type.Dynamic = true
				changed = true
			}
		}
		if changed {
			g.UpdateID()
		}
	}
}

// reconcileVertexBuffers builds one compiled buffer per geometry buffer.
//
// reflected holds the shader inputs, normally one single-attribute buffer
// per input in shader order. For each geometry buffer, every reflected
// attribute (in shader order) is looked up by name; a match takes the
// geometry format and offset and the reflected shader location. Inputs a
// buffer does not provide are left out of that buffer.
//
// unmatched lists the inputs that no geometry buffer provides.
func reconcileVertexBuffers(reflected, geometry []VertexBufferLayout) (buffers []VertexBufferLayout, unmatched []string) {
	var inputs []VertexAttribute
	for i := range reflected {
		inputs = append(inputs, reflected[i].Attributes...)
	}

	matched := make([]bool, len(inputs))
	buffers = make([]VertexBufferLayout, 0, len(geometry))
	for gi := range geometry {
		g := &geometry[gi]
		buf := VertexBufferLayout{
			Stride:     g.Stride,
			StepMode:   g.StepMode,
			Attributes: make([]VertexAttribute, 0, len(inputs)),
		}
		for i := range inputs {
			in := &inputs[i]
			src, ok := g.Attribute(in.Name)
			if !ok {
				continue
			}
			attr := *src
			attr.ShaderLocation = in.ShaderLocation
			buf.Attributes = append(buf.Attributes, attr)
			matched[i] = true
		}
		buffers = append(buffers, buf)
	}

	for i := range inputs {
		if !matched[i] {
			unmatched = append(unmatched, inputs[i].Name)
		}
	}
	return buffers, unmatched
}
