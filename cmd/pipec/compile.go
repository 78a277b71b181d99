package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gogpu/specialize"
	"github.com/gogpu/specialize/asset"
	"github.com/gogpu/specialize/backend"
	"github.com/gogpu/specialize/pipeline"
	"github.com/gogpu/specialize/shader"
)

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile [flags] manifest.toml",
		Short: "Compile every pipeline variant of a manifest",
		Long: `Compile loads the shaders and pipelines of a manifest, compiles every
listed variant and prints the compiled vertex buffers and bind groups.`,
		Args: cobra.ExactArgs(1),
		RunE: runCompile,
	}
	cmd.Flags().StringSlice("reload", nil, "re-read these shaders after compiling and recompile their dependents")
	cmd.Flags().Bool("strict", false, "fail when a shader input is missing from the geometry")
	return cmd
}

// project is a manifest loaded into asset storage.
type project struct {
	manifest  *manifest
	engine    *specialize.Engine
	shaders   map[string]asset.Handle[shader.Shader]
	templates map[string]asset.Handle[pipeline.Descriptor]
}

func loadProject(m *manifest, backendName string, strict bool) (*project, error) {
	shaders := asset.New[shader.Shader]()
	pipelines := asset.New[pipeline.Descriptor]()

	p := &project{
		manifest:  m,
		shaders:   make(map[string]asset.Handle[shader.Shader], len(m.Shaders)),
		templates: make(map[string]asset.Handle[pipeline.Descriptor], len(m.Pipelines)),
	}
	for i := range m.Shaders {
		sc := &m.Shaders[i]
		s, err := m.loadShader(sc)
		if err != nil {
			return nil, fmt.Errorf("shader %q: %w", sc.Name, err)
		}
		p.shaders[sc.Name] = shaders.Add(s)
	}
	for _, pc := range m.Pipelines {
		var fragment asset.Handle[shader.Shader]
		if pc.Fragment != "" {
			fragment = p.shaders[pc.Fragment]
		}
		desc := pipeline.NewDescriptor(pc.Name, p.shaders[pc.Vertex], fragment)
		desc.ShaderStages.VertexEntryPoint = pc.VertexEntry
		desc.ShaderStages.FragmentEntryPoint = pc.FragmentEntry
		p.templates[pc.Name] = pipelines.Add(desc)
	}

	b, err := openBackend(backendName, shaders)
	if err != nil {
		return nil, err
	}
	p.engine = specialize.New(b, shaders, pipelines, specialize.WithStrictVertexLayout(strict))
	return p, nil
}

// openBackend creates the named backend, or the default one for "".
func openBackend(name string, shaders *asset.Assets[shader.Shader]) (pipeline.Backend, error) {
	if name == "" {
		return backend.Default(shaders)
	}
	return backend.New(name, shaders)
}

// compileAll compiles every variant and returns the number compiled.
func (p *project) compileAll(w io.Writer) (int, error) {
	n := 0
	for _, pc := range p.manifest.Pipelines {
		tmpl := p.templates[pc.Name]
		for i := range pc.Variants {
			spec, err := pc.Variants[i].specialization()
			if err != nil {
				return n, fmt.Errorf("pipeline %q variant %d: %w", pc.Name, i, err)
			}
			h, err := p.engine.Compile(tmpl, &spec)
			if err != nil {
				return n, err
			}
			desc, _ := p.engine.Pipelines().Get(h)
			printCompiled(w, pc.Name, &spec, h, desc, p.unmatched(tmpl, h))
			n++
		}
	}
	return n, nil
}

func (p *project) unmatched(tmpl, h asset.Handle[pipeline.Descriptor]) []string {
	for _, e := range p.engine.Compiler().Entries(tmpl) {
		if e.Pipeline == h {
			return e.Unmatched
		}
	}
	return nil
}

// reload re-reads the named shader from disk and applies the change.
func (p *project) reload(w io.Writer, name string) error {
	sc, ok := p.manifest.shader(name)
	if !ok {
		return fmt.Errorf("reload: unknown shader %q", name)
	}
	s, err := p.manifest.loadShader(sc)
	if err != nil {
		return fmt.Errorf("reload %q: %w", name, err)
	}
	p.engine.Shaders().Set(p.shaders[name], s)

	report, err := p.engine.Prepare()
	if err != nil {
		return fmt.Errorf("reload %q: %w", name, err)
	}
	printEvicted(w, name, report.Evicted())
	return nil
}

func runCompile(cmd *cobra.Command, args []string) error {
	strict, err := cmd.Flags().GetBool("strict")
	if err != nil {
		return fmt.Errorf("failed to get strict flag: %w", err)
	}
	reloads, err := cmd.Flags().GetStringSlice("reload")
	if err != nil {
		return fmt.Errorf("failed to get reload flag: %w", err)
	}

	m, err := loadManifest(args[0])
	if err != nil {
		return err
	}
	backendName, err := cmd.Root().PersistentFlags().GetString("backend")
	if err != nil {
		return fmt.Errorf("failed to get backend flag: %w", err)
	}
	p, err := loadProject(m, backendName, strict)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	n, err := p.compileAll(w)
	if err != nil {
		return err
	}

	if len(reloads) > 0 {
		for _, name := range reloads {
			if err := p.reload(w, name); err != nil {
				return err
			}
		}
		if n, err = p.compileAll(w); err != nil {
			return err
		}
	}

	hits, misses := p.engine.Compiler().Stats()
	okColor.Fprintf(w, "compiled %d variants (%d pipelines, %d cache hits, %d misses)\n",
		n, p.engine.Compiler().Len(), hits, misses)
	return nil
}
