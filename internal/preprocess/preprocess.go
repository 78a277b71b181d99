// Package preprocess applies shader definitions to WGSL source text.
//
// WGSL has no preprocessor, so specialization uses a small line-based one:
//
//	#ifdef NAME
//	#ifndef NAME
//	#else
//	#endif
//	#define NAME
//
// Directives must start a line (after optional whitespace). Directive lines
// and inactive lines are replaced by empty lines, so line numbers reported
// by the shader compiler still match the template source.
package preprocess

import (
	"errors"
	"fmt"
	"strings"
)

// Preprocessor errors.
var (
	// ErrUnknownDirective is returned for a '#' line that is not a directive.
	ErrUnknownDirective = errors.New("preprocess: unknown directive")

	// ErrMissingName is returned when a directive requires a name but has none.
	ErrMissingName = errors.New("preprocess: directive requires a name")

	// ErrUnbalanced is returned for #else/#endif without #ifdef, or an
	// unterminated #ifdef.
	ErrUnbalanced = errors.New("preprocess: unbalanced conditional")
)

// Error reports a preprocessing failure at a source line.
type Error struct {
	Line int // 1-based
	Text string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// frame is one level of #ifdef nesting.
type frame struct {
	parentActive bool
	cond         bool
	inElse       bool
	line         int
}

func (f *frame) active() bool {
	if f.inElse {
		return f.parentActive && !f.cond
	}
	return f.parentActive && f.cond
}

// Apply evaluates the directives in source against defs.
func Apply(source string, defs []string) (string, error) {
	defined := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		defined[d] = struct{}{}
	}

	lines := strings.Split(source, "\n")
	var stack []frame
	active := true

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			if !active {
				lines[i] = ""
			}
			continue
		}

		lines[i] = ""
		directive, name := splitDirective(trimmed)
		fail := func(err error) error {
			return &Error{Line: i + 1, Text: trimmed, Err: err}
		}

		switch directive {
		case "ifdef", "ifndef":
			if name == "" {
				return "", fail(ErrMissingName)
			}
			_, ok := defined[name]
			if directive == "ifndef" {
				ok = !ok
			}
			stack = append(stack, frame{parentActive: active, cond: ok, line: i + 1})
		case "else":
			if len(stack) == 0 || stack[len(stack)-1].inElse {
				return "", fail(ErrUnbalanced)
			}
			stack[len(stack)-1].inElse = true
		case "endif":
			if len(stack) == 0 {
				return "", fail(ErrUnbalanced)
			}
			stack = stack[:len(stack)-1]
		case "define":
			if name == "" {
				return "", fail(ErrMissingName)
			}
			if active {
				defined[name] = struct{}{}
			}
		default:
			return "", fail(ErrUnknownDirective)
		}

		active = true
		if n := len(stack); n > 0 {
			active = stack[n-1].active()
		}
	}

	if n := len(stack); n > 0 {
		return "", &Error{Line: stack[n-1].line, Text: "#ifdef", Err: ErrUnbalanced}
	}
	return strings.Join(lines, "\n"), nil
}

// splitDirective splits "#ifdef NAME" into ("ifdef", "NAME").
func splitDirective(line string) (directive, name string) {
	fields := strings.Fields(strings.TrimPrefix(line, "#"))
	if len(fields) == 0 {
		return "", ""
	}
	directive = fields[0]
	if len(fields) > 1 {
		name = fields[1]
	}
	return directive, name
}
