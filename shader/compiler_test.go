package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/specialize/asset"
)

// =============================================================================
// Test Helpers
// =============================================================================

// mockBackend records SpecializeShader calls and can be told to fail.
type mockBackend struct {
	calls    int
	failWith error
	released []asset.Handle[Shader]
}

func (b *mockBackend) SpecializeShader(template *Shader, defs []string) (Shader, error) {
	b.calls++
	if b.failWith != nil {
		return Shader{}, b.failWith
	}
	return Shader{
		Label:  template.Label + "{" + strings.Join(defs, ",") + "}",
		Stage:  template.Stage,
		Source: Source{WGSL: template.Source.WGSL, SPIRV: []uint32{0x07230203}},
	}, nil
}

func (b *mockBackend) ReleaseShader(h asset.Handle[Shader]) {
	b.released = append(b.released, h)
}

func newTestCompiler() (*Compiler, *mockBackend, *asset.Assets[Shader]) {
	backend := &mockBackend{}
	shaders := asset.New[Shader]()
	return NewCompiler(backend, shaders), backend, shaders
}

// =============================================================================
// Compiler Tests
// =============================================================================

func TestCompiler_DistinctSpecializations(t *testing.T) {
	c, backend, shaders := newTestCompiler()
	tmpl := shaders.Add(New("mesh", StageVertex, "fn vs_main() {}"))

	h1, err := c.Compile(tmpl, NewSpecialization("A"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h2, err := c.Compile(tmpl, NewSpecialization("B"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h1 == h2 {
		t.Error("distinct specializations must yield distinct handles")
	}
	if h1 == tmpl || h2 == tmpl {
		t.Error("specialized handles must differ from the template handle")
	}
	if got := len(c.Entries(tmpl)); got != 2 {
		t.Errorf("entries = %d, want 2", got)
	}
	if backend.calls != 2 {
		t.Errorf("backend calls = %d, want 2", backend.calls)
	}
}

func TestCompiler_CacheHit(t *testing.T) {
	c, backend, shaders := newTestCompiler()
	tmpl := shaders.Add(New("mesh", StageVertex, "fn vs_main() {}"))

	h1, err := c.Compile(tmpl, NewSpecialization("B", "A"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Same set, different order and a duplicate.
	h2, err := c.Compile(tmpl, NewSpecialization("A", "B", "A"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h1 != h2 {
		t.Error("equal specializations must return the same handle")
	}
	if backend.calls != 1 {
		t.Errorf("backend calls = %d, want 1", backend.calls)
	}
	if len(c.Entries(tmpl)) != 1 {
		t.Errorf("entries = %d, want 1", len(c.Entries(tmpl)))
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = (%d, %d), want (1, 1)", hits, misses)
	}
	if rate := c.HitRate(); rate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", rate)
	}
}

func TestCompiler_BinaryPassThrough(t *testing.T) {
	c, backend, shaders := newTestCompiler()
	tmpl := shaders.Add(Shader{Label: "prebuilt", Stage: StageFragment, Source: FromSPIRV([]uint32{0x07230203, 1})})

	for _, spec := range []Specialization{{}, NewSpecialization("A"), NewSpecialization("A", "B")} {
		h, err := c.Compile(tmpl, spec)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if h != tmpl {
			t.Errorf("spec %v: got %v, want template handle %v", spec, h, tmpl)
		}
	}
	if backend.calls != 0 {
		t.Errorf("backend calls = %d, want 0", backend.calls)
	}
	if !c.Tracked(tmpl) {
		t.Error("binary template must still be tracked")
	}
	if len(c.Entries(tmpl)) != 0 {
		t.Error("binary template must have no entries")
	}
}

func TestCompiler_MissingTemplate(t *testing.T) {
	c, _, shaders := newTestCompiler()
	tmpl := shaders.Add(New("gone", StageVertex, "x"))
	shaders.Remove(tmpl)

	_, err := c.Compile(tmpl, Specialization{})
	if !errors.Is(err, asset.ErrMissing) {
		t.Fatalf("error = %v, want ErrMissing", err)
	}
	if !c.Tracked(tmpl) {
		t.Error("template must be tracked even when missing")
	}
}

func TestCompiler_CompileError(t *testing.T) {
	c, backend, shaders := newTestCompiler()
	tmpl := shaders.Add(New("broken", StageVertex, "x"))
	backendErr := errors.New("parse error")
	backend.failWith = backendErr

	_, err := c.Compile(tmpl, NewSpecialization("A"))
	var cerr *CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *CompileError, got %T: %v", err, err)
	}
	if !errors.Is(err, backendErr) {
		t.Error("CompileError must unwrap to the backend error")
	}
	if cerr.Template != tmpl || cerr.Label != "broken" {
		t.Errorf("unexpected error fields: %+v", cerr)
	}
	if len(c.Entries(tmpl)) != 0 {
		t.Error("failed compile must not add an entry")
	}
	if shaders.Len() != 1 {
		t.Errorf("storage len = %d, want 1", shaders.Len())
	}
}

func TestCompiler_Get(t *testing.T) {
	c, backend, shaders := newTestCompiler()
	tmpl := shaders.Add(New("mesh", StageVertex, "x"))

	if _, ok := c.Get(tmpl, Specialization{}); ok {
		t.Error("Get before Compile must miss")
	}
	h, _ := c.Compile(tmpl, Specialization{})
	got, ok := c.Get(tmpl, Specialization{})
	if !ok || got != h {
		t.Errorf("Get = (%v, %v), want (%v, true)", got, ok, h)
	}
	if backend.calls != 1 {
		t.Errorf("Get must not compile, calls = %d", backend.calls)
	}
}

// =============================================================================
// Recompile Tests
// =============================================================================

func TestCompiler_RecompileSwapsHandles(t *testing.T) {
	c, backend, shaders := newTestCompiler()
	tmpl := shaders.Add(New("mesh", StageVertex, "v1"))
	h1, _ := c.Compile(tmpl, NewSpecialization("A"))
	h2, _ := c.Compile(tmpl, NewSpecialization("B"))

	shaders.Set(tmpl, New("mesh", StageVertex, "v2"))
	swaps, err := c.Recompile(tmpl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(swaps) != 2 {
		t.Fatalf("swaps = %d, want 2", len(swaps))
	}
	if swaps[0].Old != h1 || swaps[1].Old != h2 {
		t.Errorf("swap order mismatch: %+v", swaps)
	}
	for _, s := range swaps {
		if shaders.Contains(s.Old) {
			t.Errorf("old handle %v must be removed from storage", s.Old)
		}
		art, ok := shaders.Get(s.New)
		if !ok {
			t.Fatalf("new handle %v missing from storage", s.New)
		}
		if art.Source.WGSL != "v2" {
			t.Errorf("new artifact source = %q, want v2", art.Source.WGSL)
		}
	}
	if got, _ := c.Get(tmpl, NewSpecialization("A")); got != swaps[0].New {
		t.Error("cache must point at the recompiled handle")
	}
	if len(backend.released) != 2 {
		t.Errorf("released = %d, want 2", len(backend.released))
	}
}

func TestCompiler_RecompileIsAtomic(t *testing.T) {
	c, backend, shaders := newTestCompiler()
	tmpl := shaders.Add(New("mesh", StageVertex, "v1"))
	h1, _ := c.Compile(tmpl, NewSpecialization("A"))
	h2, _ := c.Compile(tmpl, NewSpecialization("B"))
	before := shaders.Len()

	backend.failWith = errors.New("syntax error")
	swaps, err := c.Recompile(tmpl)
	if err == nil {
		t.Fatal("expected error")
	}
	if swaps != nil {
		t.Error("failed recompile must not report swaps")
	}
	if !shaders.Contains(h1) || !shaders.Contains(h2) {
		t.Error("failed recompile must keep old artifacts")
	}
	if shaders.Len() != before {
		t.Errorf("storage len = %d, want %d", shaders.Len(), before)
	}
	if got, _ := c.Get(tmpl, NewSpecialization("A")); got != h1 {
		t.Error("failed recompile must keep cache entries")
	}
}

func TestCompiler_RecompileWithoutEntries(t *testing.T) {
	c, backend, shaders := newTestCompiler()
	tmpl := shaders.Add(New("unused", StageVertex, "x"))

	swaps, err := c.Recompile(tmpl)
	if err != nil || swaps != nil {
		t.Errorf("Recompile = (%v, %v), want (nil, nil)", swaps, err)
	}
	if backend.calls != 0 {
		t.Errorf("backend calls = %d, want 0", backend.calls)
	}
}

func TestCompiler_RecompileBecameBinary(t *testing.T) {
	c, _, shaders := newTestCompiler()
	tmpl := shaders.Add(New("mesh", StageVertex, "v1"))
	h1, _ := c.Compile(tmpl, NewSpecialization("A"))

	shaders.Set(tmpl, Shader{Stage: StageVertex, Source: FromSPIRV([]uint32{1})})
	swaps, err := c.Recompile(tmpl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(swaps) != 1 || swaps[0].Old != h1 || swaps[0].New != tmpl {
		t.Errorf("unexpected swaps: %+v", swaps)
	}
	if len(c.Entries(tmpl)) != 0 {
		t.Error("entries must be dropped for a binary template")
	}
}

func TestCompiler_ForgetAndDestroyAll(t *testing.T) {
	c, _, shaders := newTestCompiler()
	a := shaders.Add(New("a", StageVertex, "a"))
	b := shaders.Add(New("b", StageFragment, "b"))
	ha, _ := c.Compile(a, Specialization{})
	hb, _ := c.Compile(b, Specialization{})

	removed := c.Forget(a)
	if len(removed) != 1 || removed[0] != ha {
		t.Errorf("Forget removed %v, want [%v]", removed, ha)
	}
	if c.Tracked(a) {
		t.Error("forgotten template must not be tracked")
	}
	if got := c.Templates(); len(got) != 1 || got[0] != b {
		t.Errorf("Templates = %v, want [%v]", got, b)
	}

	c.DestroyAll()
	if shaders.Contains(hb) {
		t.Error("DestroyAll must remove specialized shaders")
	}
	if !shaders.Contains(a) || !shaders.Contains(b) {
		t.Error("DestroyAll must not remove templates")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}
