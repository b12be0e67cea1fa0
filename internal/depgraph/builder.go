// Package depgraph computes, once per library, which modules each module
// depends on.
package depgraph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"onefile/internal/extract"
	"onefile/internal/registry"
	"onefile/internal/slogutil"
)

// Report summarizes a build.
type Report struct {
	Strategy extract.Method `json:"strategy"`
	Modules  int            `json:"modules"`
	Edges    int            `json:"edges"`
	// Dependencies is the dependency count per module.
	Dependencies map[string]int `json:"dependencies"`
	// Unresolved counts identifiers per module that no module declares.
	Unresolved map[string]int `json:"unresolved"`
	Duration   time.Duration  `json:"duration"`
}

// Builder annotates a registry with per-module dependencies.
type Builder struct {
	strategy extract.Strategy
	logger   *slog.Logger
}

// NewBuilder creates a builder extracting identifiers with strategy.
func NewBuilder(strategy extract.Strategy, logger *slog.Logger) *Builder {
	return &Builder{
		strategy: strategy,
		logger:   slogutil.OrDiscard(logger),
	}
}

// Build computes Dependencies for every module of reg and returns the
// annotated registry. reg itself is not modified.
func (b *Builder) Build(ctx context.Context, reg *registry.Registry) (*registry.Registry, *Report, error) {
	start := time.Now()
	report := &Report{
		Strategy:     b.strategy.Method(),
		Modules:      reg.Len(),
		Dependencies: make(map[string]int, reg.Len()),
		Unresolved:   make(map[string]int),
	}

	deps := make(map[string][]string, reg.Len())
	for _, m := range reg.Modules() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		names, unresolved, err := b.Dependencies(ctx, reg, m)
		if err != nil {
			return nil, nil, fmt.Errorf("module %s: %w", m.Name, err)
		}
		deps[m.Name] = names
		report.Dependencies[m.Name] = len(names)
		report.Edges += len(names)
		if unresolved > 0 {
			report.Unresolved[m.Name] = unresolved
		}
		b.logger.Debug("Computed module dependencies", "module", m.Name, "dependencies", len(names), "unresolved", unresolved)
	}

	report.Duration = time.Since(start)
	b.logger.Info("Dependency graph built",
		"strategy", string(report.Strategy),
		"modules", report.Modules,
		"edges", report.Edges,
		"duration", report.Duration.String(),
	)
	return reg.WithDependencies(deps), report, nil
}

// Dependencies returns the sorted transitive dependencies of m and the number
// of identifiers that had no owning module. m is never its own dependency.
func (b *Builder) Dependencies(ctx context.Context, reg *registry.Registry, m *registry.Module) ([]string, int, error) {
	seed, err := b.strategy.ExtractReferencedTypes(ctx, m.Body)
	if err != nil {
		return nil, 0, err
	}

	worklist := seed.Sorted()
	visited := make(map[string]bool)
	added := make(map[string]bool)
	unresolved := 0

	for len(worklist) > 0 {
		id := worklist[0]
		worklist = worklist[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		owner, ok := reg.Owner(id)
		if !ok {
			unresolved++
			continue
		}
		if owner == m.Name || added[owner] {
			continue
		}
		added[owner] = true

		dep, _ := reg.Get(owner)
		more, err := b.strategy.ExtractReferencedTypes(ctx, dep.Body)
		if err != nil {
			return nil, 0, fmt.Errorf("dependency %s: %w", owner, err)
		}
		for _, next := range more.Sorted() {
			if !visited[next] {
				worklist = append(worklist, next)
			}
		}
	}

	names := make([]string, 0, len(added))
	for name := range added {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, unresolved, nil
}
