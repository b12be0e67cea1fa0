package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"onefile/internal/depgraph"
	"onefile/internal/extract"
	"onefile/internal/registry"
	"onefile/internal/storage"
)

var (
	buildManifest      string
	buildStrategy      string
	buildWriteManifest bool
	buildFormat        string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Compute module dependencies and store the annotated registry",
	Long: `Runs the dependency graph builder over every module in the manifest: for
each module, the set of other modules it needs directly or transitively.
The annotated registry is saved to .onefile/store/registry.db so later
resolutions skip this step.

Strategies:
  all       every module depends on every other
  name      match identifiers against declared type names
  semantic  bind identifiers with the Go type checker (Go only)

Examples:
  onefile build
  onefile build --strategy name --write-manifest
  onefile build --manifest lib/library.yaml --format json`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildManifest, "manifest", "", "manifest path (default: library.manifest)")
	buildCmd.Flags().StringVar(&buildStrategy, "strategy", "", "extraction strategy: all, name, semantic (default: build.strategy)")
	buildCmd.Flags().BoolVar(&buildWriteManifest, "write-manifest", false, "write computed dependencies back into the manifest")
	buildCmd.Flags().StringVar(&buildFormat, "format", "human", "output format (human, json)")
	rootCmd.AddCommand(buildCmd)
}

// BuildResponseCLI summarizes a dependency graph build.
type BuildResponseCLI struct {
	Manifest        string         `json:"manifest"`
	Strategy        string         `json:"strategy"`
	Modules         int            `json:"modules"`
	Edges           int            `json:"edges"`
	Dependencies    map[string]int `json:"dependencies"`
	Unresolved      map[string]int `json:"unresolved,omitempty"`
	Duration        time.Duration  `json:"durationNs"`
	BuildID         string         `json:"buildId,omitempty"`
	ManifestWritten string         `json:"manifestWritten,omitempty"`
}

type buildOptions struct {
	Manifest      string
	Strategy      string
	WriteManifest bool
}

func runBuild(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(buildFormat)
	if err != nil {
		return err
	}
	resp, err := buildGraph(cmd.Context(), env, buildOptions{
		Manifest:      buildManifest,
		Strategy:      buildStrategy,
		WriteManifest: buildWriteManifest,
	})
	if err != nil {
		return err
	}
	return writeResponse(cmd.OutOrStdout(), resp, format)
}

func buildGraph(ctx context.Context, e *cliEnv, opts buildOptions) (*BuildResponseCLI, error) {
	selector := opts.Strategy
	if selector == "" {
		selector = e.cfg.Build.Strategy
	}
	method, err := extract.ParseMethod(selector)
	if err != nil {
		return nil, err
	}

	manifest := e.manifestPath(opts.Manifest)
	reg, err := registry.Load(manifest)
	if err != nil {
		return nil, err
	}
	strategy, err := e.newStrategy(selector, reg)
	if err != nil {
		return nil, err
	}

	built, report, err := depgraph.NewBuilder(strategy, e.logger).Build(ctx, reg)
	if err != nil {
		return nil, err
	}

	resp := &BuildResponseCLI{
		Manifest:     manifest,
		Strategy:     string(method),
		Modules:      report.Modules,
		Edges:        report.Edges,
		Dependencies: report.Dependencies,
		Unresolved:   report.Unresolved,
		Duration:     report.Duration,
	}

	// The manifest is written before the store so the stored build is not
	// considered older than it.
	if opts.WriteManifest {
		if err := registry.SaveManifest(manifest, registry.ManifestFor(built)); err != nil {
			return nil, err
		}
		resp.ManifestWritten = manifest
	}

	db, err := e.openStore(false)
	if err != nil {
		return nil, err
	}
	if db != nil {
		defer db.Close()
		info, err := db.SaveRegistry(ctx, built, storage.BuildInfo{
			Strategy:  string(method),
			EdgeCount: report.Edges,
			Duration:  report.Duration,
		})
		if err != nil {
			return nil, err
		}
		resp.BuildID = info.ID
	}
	return resp, nil
}
