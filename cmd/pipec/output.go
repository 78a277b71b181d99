package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/specialize/asset"
	"github.com/gogpu/specialize/pipeline"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	detailColor = color.New(color.FgHiBlack)
	warnColor   = color.New(color.FgYellow)
	errorColor  = color.New(color.FgRed, color.Bold)
	okColor     = color.New(color.FgGreen)
)

func formatName(f gputypes.VertexFormat) string {
	for name, v := range vertexFormats {
		if v == f {
			return name
		}
	}
	return fmt.Sprintf("format(%d)", f)
}

func stepName(m gputypes.VertexStepMode) string {
	if m == gputypes.VertexStepModeInstance {
		return "instance"
	}
	return "vertex"
}

// printLayout writes the vertex buffers and bind groups of layout.
func printLayout(w io.Writer, layout *pipeline.Layout) {
	for i, b := range layout.VertexBuffers {
		fmt.Fprintf(w, "  buffer %d: stride %d, %s\n", i, b.Stride, stepName(b.StepMode))
		for _, a := range b.Attributes {
			fmt.Fprintf(w, "    @location(%d) %-12s %-10s +%d\n", a.ShaderLocation, a.Name, formatName(a.Format), a.Offset)
		}
	}
	for _, g := range layout.BindGroups {
		fmt.Fprintf(w, "  group %d ", g.Index)
		detailColor.Fprintf(w, "(id %016x)\n", g.ID())
		for _, b := range g.Bindings {
			var flags []string
			if b.Type.Dynamic {
				flags = append(flags, "dynamic")
			}
			if b.Type.Kind == pipeline.BindingStorage && b.Type.ReadOnly {
				flags = append(flags, "read")
			}
			if b.Type.Size > 0 {
				flags = append(flags, fmt.Sprintf("%dB", b.Type.Size))
			}
			fmt.Fprintf(w, "    @binding(%d) %-12s %s", b.Index, b.Name, b.Type.Kind)
			if len(flags) > 0 {
				fmt.Fprintf(w, " %s", strings.Join(flags, " "))
			}
			fmt.Fprintf(w, " [%s]\n", b.Visibility)
		}
	}
}

// printCompiled writes one compiled pipeline variant.
func printCompiled(w io.Writer, name string, spec *pipeline.Specialization, h asset.Handle[pipeline.Descriptor], desc *pipeline.Descriptor, unmatched []string) {
	headerColor.Fprintf(w, "%s %s", name, spec.Shader)
	detailColor.Fprintf(w, " -> %s\n", h)
	fmt.Fprintf(w, "  samples %d, topology %d, index format %d\n", desc.SampleCount, desc.PrimitiveTopology, desc.IndexFormat)
	printLayout(w, desc.Layout)
	if len(unmatched) > 0 {
		warnColor.Fprintf(w, "  unmatched: %s\n", strings.Join(unmatched, ", "))
	}
}

func printEvicted(w io.Writer, shaderName string, evicted []asset.Handle[pipeline.Descriptor]) {
	if len(evicted) == 0 {
		detailColor.Fprintf(w, "reload %s: nothing to evict\n", shaderName)
		return
	}
	names := make([]string, len(evicted))
	for i, h := range evicted {
		names[i] = h.String()
	}
	warnColor.Fprintf(w, "reload %s: evicted %s\n", shaderName, strings.Join(names, ", "))
}
