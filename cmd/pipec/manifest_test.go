package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
)

const testShader = `
struct View {
    offset: vec4<f32>,
}

@group(0) @binding(0) var<uniform> view: View;

@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
#ifdef SHIFTED
    return vec4<f32>(position.x + view.offset.x, position.y, position.z, 1.0);
#else
    return vec4<f32>(position.x, position.y, position.z, 1.0);
#endif
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 1.0, 1.0, 1.0);
}
`

const testManifest = `
[[shader]]
name = "mesh"
path = "mesh.wgsl"

[[pipeline]]
name = "mesh"
vertex = "mesh"
fragment = "mesh"

[[pipeline.variant]]
dynamic = ["view"]

[[pipeline.variant.buffer]]
stride = 12
attributes = [{ name = "position", offset = 0, format = "float32x3" }]

[[pipeline.variant]]
defs = ["SHIFTED"]
topology = "line-list"
index_format = "uint16"
sample_count = 4

[[pipeline.variant.buffer]]
stride = 16
step = "instance"
attributes = [{ name = "position", offset = 4, format = "float32x3" }]
`

// writeProject writes a manifest and its shader to a temp directory and
// returns the manifest path.
func writeProject(t *testing.T, manifestText string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mesh.wgsl"), []byte(testShader), 0o600); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "pipelines.toml")
	if err := os.WriteFile(path, []byte(manifestText), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeProject(t, testManifest)
	m, err := loadManifest(path)
	if err != nil {
		t.Fatalf("loadManifest: %v", err)
	}
	if len(m.Shaders) != 1 || len(m.Pipelines) != 1 || len(m.Pipelines[0].Variants) != 2 {
		t.Fatalf("manifest = %+v", m)
	}
	if got := m.shaderPath(&m.Shaders[0]); got != filepath.Join(filepath.Dir(path), "mesh.wgsl") {
		t.Errorf("shaderPath = %q", got)
	}

	spec, err := m.Pipelines[0].Variants[1].specialization()
	if err != nil {
		t.Fatalf("specialization: %v", err)
	}
	if !spec.Shader.Has("SHIFTED") {
		t.Error("SHIFTED not defined")
	}
	if spec.PrimitiveTopology != gputypes.PrimitiveTopologyLineList ||
		spec.IndexFormat != gputypes.IndexFormatUint16 ||
		spec.SampleCount != 4 {
		t.Errorf("spec = %+v", spec)
	}
	buf := spec.VertexBuffers[0]
	if buf.Stride != 16 || buf.StepMode != gputypes.VertexStepModeInstance ||
		len(buf.Attributes) != 1 || buf.Attributes[0].Offset != 4 ||
		buf.Attributes[0].Format != gputypes.VertexFormatFloat32x3 {
		t.Errorf("buffer = %+v", buf)
	}

	def, err := m.Pipelines[0].Variants[0].specialization()
	if err != nil {
		t.Fatalf("specialization: %v", err)
	}
	if def.SampleCount != 1 || def.PrimitiveTopology != gputypes.PrimitiveTopologyTriangleList {
		t.Errorf("defaults not applied: %+v", def)
	}
}

func TestLoadManifest_Errors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		want     string
	}{
		{"no shaders", "[[pipeline]]\nname = \"p\"\nvertex = \"v\"\n", "missing [[shader]]"},
		{"unknown key", "[[shader]]\nname = \"v\"\npath = \"v.wgsl\"\ncolour = 1\n", "unknown keys"},
		{"unknown vertex", "[[shader]]\nname = \"v\"\npath = \"v.wgsl\"\n[[pipeline]]\nname = \"p\"\nvertex = \"w\"\n", "unknown vertex shader"},
		{"duplicate shader", "[[shader]]\nname = \"v\"\npath = \"a\"\n[[shader]]\nname = \"v\"\npath = \"b\"\n", "defined twice"},
		{"bad stage", "[[shader]]\nname = \"v\"\npath = \"a\"\nstage = \"geometry\"\n", "unknown stage"},
		{"syntax", "[[shader]\n", "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadManifest(writeProject(t, tt.manifest))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestLoadProject_BadStage(t *testing.T) {
	m, err := loadManifest(writeProject(t, testManifest))
	if err != nil {
		t.Fatalf("loadManifest: %v", err)
	}
	m.Shaders[0].Stage = "geometry"

	if _, err := loadProject(m, "", false); err == nil || !strings.Contains(err.Error(), "unknown stage") {
		t.Errorf("loadProject err = %v, want unknown stage", err)
	}
}

func TestVariantSpecialization_Errors(t *testing.T) {
	tests := []variantConfig{
		{Topology: "quads"},
		{IndexFormat: "uint8"},
		{Buffers: []bufferConfig{{Step: "sometimes"}}},
		{Buffers: []bufferConfig{{Attributes: []attributeConfig{{Name: "p", Format: "float64"}}}}},
	}
	for i := range tests {
		if _, err := tests[i].specialization(); err == nil {
			t.Errorf("variant %d: expected error", i)
		}
	}
}

func runPipec(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--color", "off"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCompileCommand(t *testing.T) {
	path := writeProject(t, testManifest)

	out, err := runPipec(t, "compile", path, "--reload", "mesh")
	if err != nil {
		t.Fatalf("compile: %v\n%s", err, out)
	}
	for _, want := range []string{
		"mesh {SHIFTED}",
		"@location(0) position",
		"view",
		"dynamic",
		"reload mesh: evicted",
		"compiled 2 variants",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCompileCommand_Strict(t *testing.T) {
	manifestText := strings.Replace(testManifest, `name = "position", offset = 0`, `name = "pos", offset = 0`, 1)
	path := writeProject(t, manifestText)

	if out, err := runPipec(t, "compile", path); err != nil || !strings.Contains(out, "unmatched: position") {
		t.Errorf("lenient compile = %v\n%s", err, out)
	}
	if _, err := runPipec(t, "compile", "--strict", path); err == nil {
		t.Error("strict compile accepted unmatched attributes")
	}
}

func TestReflectCommand(t *testing.T) {
	path := writeProject(t, testManifest)
	shaderPath := filepath.Join(filepath.Dir(path), "mesh.wgsl")

	out, err := runPipec(t, "reflect", shaderPath, "--def", "SHIFTED")
	if err != nil {
		t.Fatalf("reflect: %v\n%s", err, out)
	}
	if !strings.Contains(out, "float32x3") || !strings.Contains(out, "[vertex|fragment]") {
		t.Errorf("output = %s", out)
	}
	if !strings.Contains(out, "{SHIFTED}") {
		t.Errorf("label without definitions: %s", out)
	}
}

func TestRootCommand_BadColor(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--color", "sometimes", "reflect", "x.wgsl"})
	if err := root.Execute(); err == nil {
		t.Error("unknown color mode accepted")
	}
}
