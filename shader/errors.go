package shader

import (
	"fmt"
	"strings"

	"github.com/gogpu/specialize/asset"
)

// CompileError is returned when the backend rejects a template shader
// compiled with a set of definitions. It is never retried internally.
type CompileError struct {
	// Template is the template shader that failed to compile.
	Template asset.Handle[Shader]

	// Label is the template's debug label.
	Label string

	// Definitions is the definition set the compile was attempted with.
	Definitions []string

	// Err is the backend error.
	Err error
}

func (e *CompileError) Error() string {
	name := e.Label
	if name == "" {
		name = e.Template.String()
	}
	return fmt.Sprintf("shader: compile %s {%s}: %v", name, strings.Join(e.Definitions, ","), e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
