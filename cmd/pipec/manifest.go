package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/specialize/pipeline"
	"github.com/gogpu/specialize/shader"
)

// manifest lists the shaders and pipeline variants to compile.
//
//	[[shader]]
//	name = "mesh"
//	path = "mesh.wgsl"
//
//	[[pipeline]]
//	name = "mesh"
//	vertex = "mesh"
//	fragment = "mesh"
//
//	[[pipeline.variant]]
//	defs = ["SKINNED"]
//	dynamic = ["view"]
//	sample_count = 4
//
//	[[pipeline.variant.buffer]]
//	stride = 24
//	attributes = [
//	    { name = "position", offset = 0, format = "float32x3" },
//	    { name = "normal", offset = 12, format = "float32x3" },
//	]
type manifest struct {
	Path string `toml:"-"`
	Root string `toml:"-"`

	Shaders   []shaderConfig   `toml:"shader"`
	Pipelines []pipelineConfig `toml:"pipeline"`
}

type shaderConfig struct {
	Name  string `toml:"name"`
	Path  string `toml:"path"`
	Stage string `toml:"stage"`
}

type pipelineConfig struct {
	Name          string          `toml:"name"`
	Vertex        string          `toml:"vertex"`
	Fragment      string          `toml:"fragment"`
	VertexEntry   string          `toml:"vertex_entry"`
	FragmentEntry string          `toml:"fragment_entry"`
	Variants      []variantConfig `toml:"variant"`
}

type variantConfig struct {
	Defs        []string       `toml:"defs"`
	Dynamic     []string       `toml:"dynamic"`
	Topology    string         `toml:"topology"`
	IndexFormat string         `toml:"index_format"`
	SampleCount uint32         `toml:"sample_count"`
	Buffers     []bufferConfig `toml:"buffer"`
}

type bufferConfig struct {
	Stride     uint64            `toml:"stride"`
	Step       string            `toml:"step"`
	Attributes []attributeConfig `toml:"attributes"`
}

type attributeConfig struct {
	Name   string `toml:"name"`
	Offset uint64 `toml:"offset"`
	Format string `toml:"format"`
}

func loadManifest(path string) (*manifest, error) {
	var m manifest
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if !meta.IsDefined("shader") {
		return nil, fmt.Errorf("%s: missing [[shader]]", path)
	}
	m.Path = path
	m.Root = filepath.Dir(path)
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

func (m *manifest) validate() error {
	names := make(map[string]bool, len(m.Shaders))
	for i, s := range m.Shaders {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("shader %d: missing name", i)
		}
		if names[s.Name] {
			return fmt.Errorf("shader %q: defined twice", s.Name)
		}
		if s.Path == "" {
			return fmt.Errorf("shader %q: missing path", s.Name)
		}
		if _, err := parseStage(s.Stage); err != nil {
			return fmt.Errorf("shader %q: %w", s.Name, err)
		}
		names[s.Name] = true
	}
	for _, p := range m.Pipelines {
		if p.Name == "" {
			return errors.New("pipeline: missing name")
		}
		if !names[p.Vertex] {
			return fmt.Errorf("pipeline %q: unknown vertex shader %q", p.Name, p.Vertex)
		}
		if p.Fragment != "" && !names[p.Fragment] {
			return fmt.Errorf("pipeline %q: unknown fragment shader %q", p.Name, p.Fragment)
		}
	}
	return nil
}

// shaderPath resolves a shader path relative to the manifest.
func (m *manifest) shaderPath(s *shaderConfig) string {
	if filepath.IsAbs(s.Path) {
		return s.Path
	}
	return filepath.Join(m.Root, filepath.FromSlash(s.Path))
}

func (m *manifest) shader(name string) (*shaderConfig, bool) {
	for i := range m.Shaders {
		if m.Shaders[i].Name == name {
			return &m.Shaders[i], true
		}
	}
	return nil, false
}

// loadShader reads the template shader a manifest entry names.
func (m *manifest) loadShader(sc *shaderConfig) (shader.Shader, error) {
	stage, err := parseStage(sc.Stage)
	if err != nil {
		return shader.Shader{}, err
	}
	return readShader(m.shaderPath(sc), sc.Name, stage)
}

// readShader loads a template shader from disk.
func readShader(path, label string, stage shader.Stage) (shader.Shader, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return shader.Shader{}, err
	}
	return shader.New(label, stage, string(src)), nil
}

// specialization converts a variant to a pipeline specialization.
func (v *variantConfig) specialization() (pipeline.Specialization, error) {
	spec := pipeline.DefaultSpecialization()
	spec.Shader = shader.NewSpecialization(v.Defs...)
	spec.DynamicBindings = v.Dynamic
	if v.SampleCount != 0 {
		spec.SampleCount = v.SampleCount
	}

	var err error
	if v.Topology != "" {
		if spec.PrimitiveTopology, err = parseTopology(v.Topology); err != nil {
			return spec, err
		}
	}
	if v.IndexFormat != "" {
		if spec.IndexFormat, err = parseIndexFormat(v.IndexFormat); err != nil {
			return spec, err
		}
	}

	for i, b := range v.Buffers {
		layout := pipeline.VertexBufferLayout{Stride: b.Stride, StepMode: gputypes.VertexStepModeVertex}
		if b.Step != "" {
			if layout.StepMode, err = parseStepMode(b.Step); err != nil {
				return spec, fmt.Errorf("buffer %d: %w", i, err)
			}
		}
		for _, a := range b.Attributes {
			f, ok := vertexFormats[a.Format]
			if !ok {
				return spec, fmt.Errorf("buffer %d: attribute %q: unknown format %q", i, a.Name, a.Format)
			}
			layout.Attributes = append(layout.Attributes, pipeline.VertexAttribute{
				Name:   a.Name,
				Offset: a.Offset,
				Format: f,
			})
		}
		spec.VertexBuffers = append(spec.VertexBuffers, layout)
	}
	return spec, nil
}

func parseStage(s string) (shader.Stage, error) {
	switch strings.ToLower(s) {
	case "", "vertex":
		return shader.StageVertex, nil
	case "fragment":
		return shader.StageFragment, nil
	case "compute":
		return shader.StageCompute, nil
	}
	return 0, fmt.Errorf("unknown stage %q", s)
}

func parseTopology(s string) (gputypes.PrimitiveTopology, error) {
	switch strings.ToLower(s) {
	case "point-list":
		return gputypes.PrimitiveTopologyPointList, nil
	case "line-list":
		return gputypes.PrimitiveTopologyLineList, nil
	case "line-strip":
		return gputypes.PrimitiveTopologyLineStrip, nil
	case "triangle-list":
		return gputypes.PrimitiveTopologyTriangleList, nil
	case "triangle-strip":
		return gputypes.PrimitiveTopologyTriangleStrip, nil
	}
	return 0, fmt.Errorf("unknown topology %q", s)
}

func parseIndexFormat(s string) (gputypes.IndexFormat, error) {
	switch strings.ToLower(s) {
	case "uint16":
		return gputypes.IndexFormatUint16, nil
	case "uint32":
		return gputypes.IndexFormatUint32, nil
	}
	return 0, fmt.Errorf("unknown index format %q", s)
}

func parseStepMode(s string) (gputypes.VertexStepMode, error) {
	switch strings.ToLower(s) {
	case "vertex":
		return gputypes.VertexStepModeVertex, nil
	case "instance":
		return gputypes.VertexStepModeInstance, nil
	}
	return 0, fmt.Errorf("unknown step mode %q", s)
}

var vertexFormats = map[string]gputypes.VertexFormat{
	"float32":   gputypes.VertexFormatFloat32,
	"float32x2": gputypes.VertexFormatFloat32x2,
	"float32x3": gputypes.VertexFormatFloat32x3,
	"float32x4": gputypes.VertexFormatFloat32x4,
	"uint32":    gputypes.VertexFormatUint32,
	"uint32x2":  gputypes.VertexFormatUint32x2,
	"uint32x3":  gputypes.VertexFormatUint32x3,
	"uint32x4":  gputypes.VertexFormatUint32x4,
	"sint32":    gputypes.VertexFormatSint32,
	"sint32x2":  gputypes.VertexFormatSint32x2,
	"sint32x3":  gputypes.VertexFormatSint32x3,
	"sint32x4":  gputypes.VertexFormatSint32x4,
}
