// Package shader holds shader assets and the specialized-shader cache.
//
// A template shader is compiled once per distinct [Specialization] (a set
// of preprocessor definitions). The [Compiler] memoizes the compiled
// artifacts in asset storage and keeps, per template, the list of entries
// needed to rebuild them when the template source changes.
package shader

import "fmt"

// Stage identifies the pipeline stage a shader is written for.
type Stage uint8

// Shader stages.
const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return fmt.Sprintf("Stage(%d)", s)
	}
}

// Source holds shader code.
//
// Templates are authored as WGSL. Specialized shaders keep both the
// preprocessed WGSL (used for reflection) and the compiled SPIR-V words.
// A source with SPIR-V only is an opaque binary and cannot be specialized.
type Source struct {
	// WGSL is the shader text.
	WGSL string

	// SPIRV is the compiled module as little-endian 32-bit words.
	SPIRV []uint32
}

// FromWGSL returns a WGSL source.
func FromWGSL(code string) Source {
	return Source{WGSL: code}
}

// FromSPIRV returns an opaque binary source.
func FromSPIRV(words []uint32) Source {
	return Source{SPIRV: words}
}

// IsBinary reports whether the source is in final binary form only.
func (s Source) IsBinary() bool {
	return s.WGSL == "" && len(s.SPIRV) > 0
}

// Shader is a shader asset.
type Shader struct {
	// Label is an optional debug name.
	Label string

	// Stage is the stage the shader is written for.
	Stage Stage

	// Source is the shader code.
	Source Source
}

// New creates a WGSL shader for the given stage.
func New(label string, stage Stage, wgsl string) Shader {
	return Shader{Label: label, Stage: stage, Source: FromWGSL(wgsl)}
}
