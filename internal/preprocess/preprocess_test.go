package preprocess

import (
	"errors"
	"strings"
	"testing"
)

// nonEmpty returns the non-blank lines of s, trimmed.
func nonEmpty(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func TestApply(t *testing.T) {
	src := strings.Join([]string{
		"a",
		"#ifdef SKINNED",
		"b",
		"#else",
		"c",
		"#endif",
		"#ifndef SKINNED",
		"d",
		"#endif",
		"e",
	}, "\n")

	tests := []struct {
		name string
		defs []string
		want []string
	}{
		{"no defs", nil, []string{"a", "c", "d", "e"}},
		{"skinned", []string{"SKINNED"}, []string{"a", "b", "e"}},
		{"unrelated def", []string{"OTHER"}, []string{"a", "c", "d", "e"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Apply(src, tt.defs)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := nonEmpty(out)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApply_PreservesLineCount(t *testing.T) {
	src := "x\n#ifdef A\ny\n#endif\nz"
	out, err := Apply(src, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := strings.Count(out, "\n"), strings.Count(src, "\n"); got != want {
		t.Errorf("line count changed: got %d newlines, want %d", got, want)
	}
}

func TestApply_Nested(t *testing.T) {
	src := strings.Join([]string{
		"#ifdef A",
		"#ifdef B",
		"ab",
		"#else",
		"a",
		"#endif",
		"#else",
		"#ifdef B",
		"b",
		"#endif",
		"none",
		"#endif",
	}, "\n")

	tests := []struct {
		defs []string
		want string
	}{
		{[]string{"A", "B"}, "ab"},
		{[]string{"A"}, "a"},
		{[]string{"B"}, "b,none"},
		{nil, "none"},
	}
	for _, tt := range tests {
		out, err := Apply(src, tt.defs)
		if err != nil {
			t.Fatalf("defs %v: unexpected error: %v", tt.defs, err)
		}
		if got := strings.Join(nonEmpty(out), ","); got != tt.want {
			t.Errorf("defs %v: got %q, want %q", tt.defs, got, tt.want)
		}
	}
}

func TestApply_Define(t *testing.T) {
	src := "#define LIT\n#ifdef LIT\nlit\n#endif"
	out, err := Apply(src, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(nonEmpty(out), ","); got != "lit" {
		t.Errorf("got %q, want lit", got)
	}

	// A #define inside an inactive branch has no effect.
	src = "#ifdef NOPE\n#define LIT\n#endif\n#ifdef LIT\nlit\n#endif"
	out, err = Apply(src, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := nonEmpty(out); len(got) != 0 {
		t.Errorf("got %v, want no lines", got)
	}
}

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
		line int
	}{
		{"stray endif", "a\n#endif", ErrUnbalanced, 2},
		{"stray else", "#else", ErrUnbalanced, 1},
		{"double else", "#ifdef A\n#else\n#else\n#endif", ErrUnbalanced, 3},
		{"unterminated", "x\n#ifdef A\ny", ErrUnbalanced, 2},
		{"missing name", "#ifdef\n#endif", ErrMissingName, 1},
		{"unknown", "#include foo", ErrUnknownDirective, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(tt.src, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if perr.Line != tt.line {
				t.Errorf("line = %d, want %d", perr.Line, tt.line)
			}
		})
	}
}
