package shader

import (
	"slices"
	"strings"
)

// Specialization is the set of preprocessor definitions a shader is
// compiled with. It is the shader cache key.
//
// The definitions are kept sorted and deduplicated, so two specializations
// built from the same names in any order are equal and share one Key.
// The zero value is the empty set.
type Specialization struct {
	defs []string
}

// NewSpecialization builds a specialization from definition names.
// Duplicates and empty names are dropped.
func NewSpecialization(defs ...string) Specialization {
	if len(defs) == 0 {
		return Specialization{}
	}
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		if d != "" {
			out = append(out, d)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return Specialization{}
	}
	return Specialization{defs: out}
}

// Definitions returns a copy of the definitions in sorted order.
func (s Specialization) Definitions() []string {
	return slices.Clone(s.defs)
}

// Len returns the number of definitions.
func (s Specialization) Len() int {
	return len(s.defs)
}

// Has reports whether name is defined.
func (s Specialization) Has(name string) bool {
	_, ok := slices.BinarySearch(s.defs, name)
	return ok
}

// With returns a specialization with name added.
func (s Specialization) With(name string) Specialization {
	return NewSpecialization(append(s.Definitions(), name)...)
}

// Equal reports set equality.
func (s Specialization) Equal(other Specialization) bool {
	return slices.Equal(s.defs, other.defs)
}

// Key returns the normalized cache key.
//
// Definition names are identifiers and never contain NUL.
func (s Specialization) Key() string {
	return strings.Join(s.defs, "\x00")
}

// String formats the set as {A,B}.
func (s Specialization) String() string {
	return "{" + strings.Join(s.defs, ",") + "}"
}
