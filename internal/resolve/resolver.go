package resolve

import (
	"context"
	"log/slog"
	"sort"

	"onefile/internal/errors"
	"onefile/internal/extract"
	"onefile/internal/registry"
	"onefile/internal/slogutil"
)

// Resolver computes transitive closures over a built registry.
type Resolver struct {
	reg      *registry.Registry
	strategy extract.Strategy
	logger   *slog.Logger
}

// NewResolver creates a resolver extracting entry references with strategy.
func NewResolver(reg *registry.Registry, strategy extract.Strategy, logger *slog.Logger) *Resolver {
	return &Resolver{
		reg:      reg,
		strategy: strategy,
		logger:   slogutil.OrDiscard(logger),
	}
}

// Direct returns the sorted names of modules owning a type the entry body
// references. Identifiers no module declares are dropped.
func (r *Resolver) Direct(ctx context.Context, entry *EntryDocument) ([]string, error) {
	ids, err := r.strategy.ExtractReferencedTypes(ctx, entry.Body)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var direct []string
	for _, id := range ids.Sorted() {
		owner, ok := r.reg.Owner(id)
		if !ok {
			continue
		}
		if !seen[owner] {
			seen[owner] = true
			direct = append(direct, owner)
		}
	}
	sort.Strings(direct)
	return direct, nil
}

// Closure returns every module the entry needs: the direct owners and all of
// their dependencies, each exactly once, in breadth-first order.
//
// The registry must be Ready unless the strategy is EmitAll, which already
// reports every declared type.
func (r *Resolver) Closure(ctx context.Context, entry *EntryDocument) ([]*registry.Module, error) {
	if !r.reg.Ready() && r.strategy.Method() != extract.EmitAll {
		return nil, errors.Newf(errors.RegistryNotBuilt, "registry dependencies have not been computed")
	}

	direct, err := r.Direct(ctx, entry)
	if err != nil {
		return nil, err
	}

	visited := make(map[string]bool, len(direct))
	queue := append([]string(nil), direct...)
	var included []*registry.Module

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := queue[0]
		queue = queue[1:]
		if visited[name] {
			continue
		}
		visited[name] = true

		m, ok := r.reg.Get(name)
		if !ok {
			r.logger.Debug("Skipping unknown dependency", "module", name)
			continue
		}
		included = append(included, m)

		for _, dep := range m.Dependencies {
			if !visited[dep] {
				queue = append(queue, dep)
			}
		}
	}

	r.logger.Debug("Resolved closure",
		"strategy", string(r.strategy.Method()),
		"direct", len(direct),
		"included", len(included),
	)
	return included, nil
}
