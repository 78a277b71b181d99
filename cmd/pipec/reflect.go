package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/specialize/asset"
	"github.com/gogpu/specialize/pipeline"
	"github.com/gogpu/specialize/shader"
)

func newReflectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reflect [flags] shader.wgsl",
		Short: "Print the reflected layout of a shader",
		Long: `Reflect specializes a WGSL shader with the given definitions and prints
its vertex inputs and bind groups.`,
		Args: cobra.ExactArgs(1),
		RunE: runReflect,
	}
	cmd.Flags().StringArray("def", nil, "shader definition (repeatable)")
	cmd.Flags().String("vertex-entry", "vs_main", "vertex entry point")
	cmd.Flags().String("fragment-entry", "fs_main", "fragment entry point (empty for none)")
	return cmd
}

func runReflect(cmd *cobra.Command, args []string) error {
	defs, err := cmd.Flags().GetStringArray("def")
	if err != nil {
		return fmt.Errorf("failed to get def flag: %w", err)
	}
	vertexEntry, err := cmd.Flags().GetString("vertex-entry")
	if err != nil {
		return fmt.Errorf("failed to get vertex-entry flag: %w", err)
	}
	fragmentEntry, err := cmd.Flags().GetString("fragment-entry")
	if err != nil {
		return fmt.Errorf("failed to get fragment-entry flag: %w", err)
	}

	tmpl, err := readShader(args[0], args[0], shader.StageVertex)
	if err != nil {
		return err
	}

	backendName, err := cmd.Root().PersistentFlags().GetString("backend")
	if err != nil {
		return fmt.Errorf("failed to get backend flag: %w", err)
	}
	shaders := asset.New[shader.Shader]()
	backend, err := openBackend(backendName, shaders)
	if err != nil {
		return err
	}
	spec := shader.NewSpecialization(defs...)
	s, err := backend.SpecializeShader(&tmpl, spec.Definitions())
	if err != nil {
		return err
	}
	h := shaders.Add(s)

	stages := pipeline.ShaderStages{Vertex: h, VertexEntryPoint: vertexEntry}
	if fragmentEntry != "" {
		stages.Fragment = h
		stages.FragmentEntryPoint = fragmentEntry
	}
	layout, err := backend.ReflectPipelineLayout(&stages)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	headerColor.Fprintln(w, s.Label)
	printLayout(w, layout)
	return nil
}
