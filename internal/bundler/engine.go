// Package bundler ties resolution, emission and the freshness guard into the
// operations the CLI exposes: Resolve and WriteIfStale.
package bundler

import (
	"context"
	"log/slog"
	"sync"

	"onefile/internal/depgraph"
	"onefile/internal/emit"
	"onefile/internal/errors"
	"onefile/internal/extract"
	"onefile/internal/guard"
	"onefile/internal/registry"
	"onefile/internal/resolve"
	"onefile/internal/slogutil"
)

// Engine resolves entries against one registry with one strategy. It is
// safe for concurrent use.
type Engine struct {
	strategy      extract.Strategy
	buildStrategy extract.Strategy
	autoBuild     bool
	logger        *slog.Logger

	mu       sync.Mutex
	reg      *registry.Registry
	resolver *resolve.Resolver
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithAutoBuild runs the dependency graph builder with s the first time an
// unbuilt registry is resolved against. A nil s reuses the resolve strategy.
func WithAutoBuild(s extract.Strategy) Option {
	return func(e *Engine) {
		e.autoBuild = true
		e.buildStrategy = s
	}
}

// New creates an engine. A nil strategy fails with UNSUPPORTED_STRATEGY.
func New(reg *registry.Registry, strategy extract.Strategy, opts ...Option) (*Engine, error) {
	if strategy == nil {
		return nil, errors.Newf(errors.UnsupportedStrategy, "no extraction strategy configured")
	}
	if reg == nil {
		return nil, errors.Newf(errors.InternalError, "no registry")
	}
	e := &Engine{
		reg:      reg,
		strategy: strategy,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = slogutil.OrDiscard(e.logger)
	if e.buildStrategy == nil {
		e.buildStrategy = strategy
	}
	e.resolver = resolve.NewResolver(reg, strategy, e.logger)
	return e, nil
}

// Registry returns the registry in use, annotated if it was auto-built.
func (e *Engine) Registry() *registry.Registry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg
}

func (e *Engine) ready(ctx context.Context) (*resolve.Resolver, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.reg.Ready() || !e.autoBuild {
		return e.resolver, nil
	}

	e.logger.Info("Registry has no dependencies, building", "modules", e.reg.Len())
	built, _, err := depgraph.NewBuilder(e.buildStrategy, e.logger).Build(ctx, e.reg)
	if err != nil {
		return nil, err
	}
	e.reg = built
	e.resolver = resolve.NewResolver(built, e.strategy, e.logger)
	return e.resolver, nil
}

// Resolve bundles entryText with the library modules it needs.
func (e *Engine) Resolve(ctx context.Context, entryText string) (*emit.Bundle, error) {
	resolver, err := e.ready(ctx)
	if err != nil {
		return nil, err
	}

	entry := resolve.ParseEntry(e.reg.Language(), entryText)
	included, err := resolver.Closure(ctx, entry)
	if err != nil {
		return nil, err
	}
	return emit.Build(entry, included), nil
}

// Render resolves entryText and renders it with the registry language's
// markers.
func (e *Engine) Render(ctx context.Context, entryText string) (string, error) {
	b, err := e.Resolve(ctx, entryText)
	if err != nil {
		return "", err
	}
	return b.Text(e.reg.Language()), nil
}

// WriteIfStale regenerates outputPath from entryPath unless it is fresh.
// opts are applied after the engine's language and logger.
func (e *Engine) WriteIfStale(ctx context.Context, outputPath, entryPath string, opts ...guard.Option) (guard.Outcome, error) {
	base := []guard.Option{
		guard.WithLanguage(e.reg.Language()),
		guard.WithLogger(e.logger),
	}
	g := guard.New(e.Render, append(base, opts...)...)
	return g.WriteIfStale(ctx, outputPath, entryPath)
}

// Resolve bundles entryText against reg using strategy.
func Resolve(ctx context.Context, entryText string, reg *registry.Registry, strategy extract.Strategy) (*emit.Bundle, error) {
	e, err := New(reg, strategy)
	if err != nil {
		return nil, err
	}
	return e.Resolve(ctx, entryText)
}

// WriteIfStale regenerates outputPath from entryPath against reg using
// strategy unless the artifact is fresh.
func WriteIfStale(ctx context.Context, outputPath, entryPath string, reg *registry.Registry, strategy extract.Strategy) (guard.Outcome, error) {
	e, err := New(reg, strategy)
	if err != nil {
		return guard.Skipped, err
	}
	return e.WriteIfStale(ctx, outputPath, entryPath)
}
