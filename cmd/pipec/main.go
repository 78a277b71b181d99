// Command pipec compiles the shader and pipeline variants listed in a TOML
// manifest and prints the resulting layouts.
//
// Usage:
//
//	pipec compile pipelines.toml
//	pipec compile pipelines.toml --reload mesh
//	pipec reflect mesh.wgsl --def SKINNED
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gogpu/specialize"
	"github.com/gogpu/specialize/backend"
	_ "github.com/gogpu/specialize/backend/native"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pipec",
		Short:         "Shader and pipeline specialization compiler",
		Long:          `pipec compiles specialized shaders and render pipelines from WGSL templates`,
		Version:       specialize.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupOutput(cmd)
		},
	}

	root.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	root.PersistentFlags().Bool("verbose", false, "log compiler diagnostics to stderr")
	root.PersistentFlags().String("backend", "", "specialization backend (default: best available of "+strings.Join(backend.Available(), ", ")+")")

	root.AddCommand(newCompileCmd())
	root.AddCommand(newReflectCmd())
	return root
}

func setupOutput(cmd *cobra.Command) error {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch colorFlag {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	default:
		return fmt.Errorf("unknown color mode: %s", colorFlag)
	}

	verbose, err := cmd.Root().PersistentFlags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	if verbose {
		specialize.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}
	return nil
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		errorColor.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
