package native

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga/ir"

	"github.com/gogpu/specialize/pipeline"
)

// ReflectPipelineLayout derives the layout of a pipeline from the naga IR
// of its specialized stages.
//
// Vertex inputs are the @location arguments of the vertex entry point, and
// the @location members of struct arguments, in declaration order. Each
// becomes one single-attribute vertex buffer. Bind groups collect the
// global resources of every stage; a binding declared by several stages is
// visible to all of them. Stages without WGSL source cannot be reflected
// and fail with [ErrBinarySource].
func (b *Backend) ReflectPipelineLayout(stages *pipeline.ShaderStages) (*pipeline.Layout, error) {
	vm, err := b.module(stages.Vertex)
	if err != nil {
		return nil, err
	}
	fn, err := entryFunction(vm.ir, stages.VertexEntry(), ir.StageVertex)
	if err != nil {
		return nil, err
	}

	inputs, err := vertexInputs(vm.ir, fn)
	if err != nil {
		return nil, err
	}

	groups := make(bindGroups)
	if err := groups.collect(vm, pipeline.VisibleVertex); err != nil {
		return nil, err
	}

	if stages.HasFragment() {
		fm, err := b.module(stages.Fragment)
		if err != nil {
			return nil, err
		}
		if _, err := entryFunction(fm.ir, stages.FragmentEntry(), ir.StageFragment); err != nil {
			return nil, err
		}
		if err := groups.collect(fm, pipeline.VisibleFragment); err != nil {
			return nil, err
		}
	}

	layout := &pipeline.Layout{
		BindGroups:    groups.build(),
		VertexBuffers: make([]pipeline.VertexBufferLayout, 0, len(inputs)),
	}
	for _, in := range inputs {
		layout.VertexBuffers = append(layout.VertexBuffers, pipeline.VertexBufferLayout{
			Stride:     in.size,
			StepMode:   gputypes.VertexStepModeVertex,
			Attributes: []pipeline.VertexAttribute{in.attr},
		})
	}
	return layout, nil
}

// entryFunction returns the function of the named entry point of stage.
func entryFunction(m *ir.Module, name string, stage ir.ShaderStage) (*ir.Function, error) {
	for i := range m.EntryPoints {
		ep := &m.EntryPoints[i]
		if ep.Name != name || ep.Stage != stage {
			continue
		}
		if int(ep.Function) >= len(m.Functions) {
			return nil, fmt.Errorf("%w: %s has no function", ErrNoEntryPoint, name)
		}
		return &m.Functions[ep.Function], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoEntryPoint, name)
}

// vertexInput is one reflected shader input.
type vertexInput struct {
	attr pipeline.VertexAttribute
	size uint64
}

func vertexInputs(m *ir.Module, fn *ir.Function) ([]vertexInput, error) {
	var inputs []vertexInput
	add := func(name string, th ir.TypeHandle, binding *ir.Binding) error {
		if binding == nil {
			return nil
		}
		loc, ok := (*binding).(ir.LocationBinding)
		if !ok {
			return nil // builtin
		}
		f, ok := vertexFormatOf(m, th)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnsupportedVertexType, name)
		}
		inputs = append(inputs, vertexInput{
			attr: pipeline.VertexAttribute{Name: name, Format: f.format, ShaderLocation: loc.Location},
			size: f.size,
		})
		return nil
	}

	for i := range fn.Arguments {
		arg := &fn.Arguments[i]
		if arg.Binding != nil {
			if err := add(arg.Name, arg.Type, arg.Binding); err != nil {
				return nil, err
			}
			continue
		}
		st, ok := typeInner(m, arg.Type).(ir.StructType)
		if !ok {
			continue
		}
		for j := range st.Members {
			mem := &st.Members[j]
			if err := add(mem.Name, mem.Type, mem.Binding); err != nil {
				return nil, err
			}
		}
	}
	return inputs, nil
}

func typeInner(m *ir.Module, th ir.TypeHandle) ir.TypeInner {
	if int(th) >= len(m.Types) {
		return nil
	}
	return m.Types[th].Inner
}

// bindGroups accumulates bindings by group and binding index.
type bindGroups map[uint32]map[uint32]*pipeline.Binding

func (g bindGroups) collect(sm *shaderModule, vis pipeline.Visibility) error {
	m := sm.ir
	for i := range m.GlobalVariables {
		gv := &m.GlobalVariables[i]
		if gv.Binding == nil {
			continue
		}
		bt, err := bindTypeOf(m, gv, sm.readWrite)
		if err != nil {
			return err
		}

		group, ok := g[gv.Binding.Group]
		if !ok {
			group = make(map[uint32]*pipeline.Binding)
			g[gv.Binding.Group] = group
		}
		if existing, ok := group[gv.Binding.Binding]; ok {
			existing.Visibility |= vis
			continue
		}
		group[gv.Binding.Binding] = &pipeline.Binding{
			Name:       gv.Name,
			Index:      gv.Binding.Binding,
			Visibility: vis,
			Type:       bt,
		}
	}
	return nil
}

// build returns the groups sorted by group index with bindings sorted by
// binding index.
func (g bindGroups) build() []pipeline.BindGroup {
	indices := make([]uint32, 0, len(g))
	for i := range g {
		indices = append(indices, i)
	}
	slices.Sort(indices)

	out := make([]pipeline.BindGroup, 0, len(indices))
	for _, gi := range indices {
		group := g[gi]
		bindings := make([]pipeline.Binding, 0, len(group))
		for _, b := range group {
			bindings = append(bindings, *b)
		}
		slices.SortFunc(bindings, func(a, b pipeline.Binding) int {
			return int(a.Index) - int(b.Index)
		})
		out = append(out, pipeline.NewBindGroup(gi, bindings))
	}
	return out
}

func bindTypeOf(m *ir.Module, gv *ir.GlobalVariable, readWrite map[string]bool) (pipeline.BindType, error) {
	inner := typeInner(m, gv.Type)
	switch gv.Space {
	case ir.SpaceUniform:
		return pipeline.BindType{Kind: pipeline.BindingUniform, Size: spanOf(inner)}, nil
	case ir.SpaceStorage:
		return pipeline.BindType{
			Kind:     pipeline.BindingStorage,
			ReadOnly: !readWrite[gv.Name],
			Size:     spanOf(inner),
		}, nil
	case ir.SpaceHandle:
		switch t := inner.(type) {
		case ir.SamplerType:
			return pipeline.BindType{Kind: pipeline.BindingSampler}, nil
		case ir.ImageType:
			if t.Class == ir.ImageClassStorage {
				return pipeline.BindType{Kind: pipeline.BindingStorageTexture}, nil
			}
			return pipeline.BindType{Kind: pipeline.BindingSampledTexture}, nil
		}
	}
	return pipeline.BindType{}, fmt.Errorf("%w: %s", ErrUnsupportedBinding, gv.Name)
}

func spanOf(inner ir.TypeInner) uint64 {
	if st, ok := inner.(ir.StructType); ok {
		return uint64(st.Span)
	}
	return 0
}

// storageDecl matches storage buffer declarations with their access mode.
// The IR does not carry the access mode of storage buffers.
var storageDecl = regexp.MustCompile(`var\s*<\s*storage\s*(?:,\s*(read_write|read|write)\s*)?>\s*([A-Za-z_][A-Za-z0-9_]*)`)

// writableStorage returns the names of storage buffers declared writable.
func writableStorage(src string) map[string]bool {
	out := make(map[string]bool)
	for _, m := range storageDecl.FindAllStringSubmatch(src, -1) {
		if m[1] == "read_write" || m[1] == "write" {
			out[m[2]] = true
		}
	}
	return out
}
