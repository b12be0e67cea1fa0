package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	resolveStrategy string
	resolveManifest string
	resolveFormat   string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <entry>",
	Short: "Print the bundle for an entry file",
	Long: `Resolves the library modules an entry file needs and prints the bundled
source to stdout. With --format json a summary is printed instead.

Examples:
  onefile resolve main.go
  onefile resolve main.go --strategy semantic
  onefile resolve Program.cs --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveStrategy, "strategy", "", "extraction strategy: all, name, semantic (default: resolve.strategy)")
	resolveCmd.Flags().StringVar(&resolveManifest, "manifest", "", "read this manifest instead of the stored registry")
	resolveCmd.Flags().StringVar(&resolveFormat, "format", "human", "output format (human prints the bundle, json a summary)")
	rootCmd.AddCommand(resolveCmd)
}

// ResolveResponseCLI summarizes a resolution.
type ResolveResponseCLI struct {
	Entry    string   `json:"entry"`
	Strategy string   `json:"strategy"`
	Language string   `json:"language"`
	Imports  []string `json:"imports"`
	Modules  []string `json:"modules"`
	Bytes    int      `json:"bytes"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(resolveFormat)
	if err != nil {
		return err
	}
	return resolveEntry(cmd.Context(), env, entryRequest{
		Entry:    args[0],
		Strategy: resolveStrategy,
		Manifest: resolveManifest,
	}, format, cmd.OutOrStdout())
}

func resolveEntry(ctx context.Context, e *cliEnv, req entryRequest, format OutputFormat, out io.Writer) error {
	p, err := e.prepareEntry(ctx, req)
	if err != nil {
		return err
	}
	text, err := os.ReadFile(p.Path)
	if err != nil {
		return fmt.Errorf("failed to read entry: %w", err)
	}

	bundle, err := p.Engine.Resolve(ctx, string(text))
	if err != nil {
		return err
	}
	lang := p.Engine.Registry().Language()
	rendered := bundle.Text(lang)

	if format == FormatHuman {
		_, err = io.WriteString(out, rendered)
		return err
	}
	return writeResponse(out, &ResolveResponseCLI{
		Entry:    p.Path,
		Strategy: string(p.Method),
		Language: string(lang),
		Imports:  bundle.SortedImports,
		Modules:  bundle.ModuleNames,
		Bytes:    len(rendered),
	}, format)
}
