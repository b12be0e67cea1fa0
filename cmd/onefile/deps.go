package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"onefile/internal/registry"
)

var (
	depsManifest string
	depsFormat   string
)

var depsCmd = &cobra.Command{
	Use:   "deps <module|type>",
	Short: "Show a library module and the modules it depends on",
	Long: `Looks up a module by name, or by a type it declares (fully qualified or
by simple name), and prints its declared types, imports and dependencies.

Examples:
  onefile deps dsu.go
  onefile deps Dsu
  onefile deps acl/dsu.Dsu --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runDeps,
}

func init() {
	depsCmd.Flags().StringVar(&depsManifest, "manifest", "", "read this manifest instead of the stored registry")
	depsCmd.Flags().StringVar(&depsFormat, "format", "human", "output format (human or json)")
	rootCmd.AddCommand(depsCmd)
}

// DepsResponseCLI describes one module.
type DepsResponseCLI struct {
	Query        string   `json:"query"`
	Module       string   `json:"module"`
	Path         string   `json:"path,omitempty"`
	Types        []string `json:"types"`
	Imports      []string `json:"imports"`
	Dependencies []string `json:"dependencies"`
	Built        bool     `json:"built"`
}

func runDeps(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(depsFormat)
	if err != nil {
		return err
	}
	resp, err := describeModule(cmd.Context(), env, args[0], depsManifest)
	if err != nil {
		return err
	}
	return writeResponse(cmd.OutOrStdout(), resp, format)
}

func describeModule(ctx context.Context, e *cliEnv, query, manifest string) (*DepsResponseCLI, error) {
	reg, err := e.loadRegistry(ctx, manifest)
	if err != nil {
		return nil, err
	}
	m, err := lookupModule(reg, query)
	if err != nil {
		return nil, err
	}
	return &DepsResponseCLI{
		Query:        query,
		Module:       m.Name,
		Path:         m.Path,
		Types:        m.TypeNames,
		Imports:      m.Imports,
		Dependencies: m.Dependencies,
		Built:        reg.Ready(),
	}, nil
}

// lookupModule tries query as a module name, a type identifier and finally a
// simple type name. Ambiguous simple names are an error.
func lookupModule(reg *registry.Registry, query string) (*registry.Module, error) {
	if m, ok := reg.Get(query); ok {
		return m, nil
	}
	if owner, ok := reg.Owner(query); ok {
		m, _ := reg.Get(owner)
		return m, nil
	}

	ids := reg.SimpleNames()[query]
	owners := make(map[string]bool)
	for _, id := range ids {
		if owner, ok := reg.Owner(id); ok {
			owners[owner] = true
		}
	}
	switch len(owners) {
	case 0:
		return nil, fmt.Errorf("no module or type named %q", query)
	case 1:
		for owner := range owners {
			m, _ := reg.Get(owner)
			return m, nil
		}
	}
	return nil, fmt.Errorf("%q is ambiguous, declared as %s", query, strings.Join(ids, ", "))
}

