package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/specialize/asset"
)

// Specialization errors.
var (
	// ErrNilSpecialization is returned when Compile is called without a
	// specialization.
	ErrNilSpecialization = errors.New("pipeline: nil specialization")

	// ErrDuplicateAttribute is returned when one vertex buffer lists two
	// attributes with the same name.
	ErrDuplicateAttribute = errors.New("pipeline: duplicate vertex attribute")
)

// UnmatchedAttributeError is returned in strict vertex layout mode when the
// shader reads attributes that no geometry buffer provides.
type UnmatchedAttributeError struct {
	// Template is the template pipeline being specialized.
	Template asset.Handle[Descriptor]

	// Attributes are the shader inputs without a geometry source, in
	// shader order.
	Attributes []string
}

func (e *UnmatchedAttributeError) Error() string {
	return fmt.Sprintf("pipeline: %s: shader attributes without geometry: %s",
		e.Template, strings.Join(e.Attributes, ", "))
}
