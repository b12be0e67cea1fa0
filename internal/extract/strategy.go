// Package extract finds the library type identifiers a piece of source text
// refers to. Three strategies trade precision for cost: EmitAll, NameHeuristic
// and SemanticResolution.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"onefile/internal/errors"
	"onefile/internal/registry"
	"onefile/internal/slogutil"
)

// Method selects an extraction strategy.
type Method string

const (
	// EmitAll reports every type identifier in the registry.
	EmitAll Method = "all"
	// NameHeuristic matches source identifiers against simple type names.
	NameHeuristic Method = "name"
	// SemanticResolution binds identifiers with a type checker.
	SemanticResolution Method = "semantic"
)

var methodAliases = map[string]Method{
	"all":                 EmitAll,
	"emit-all":            EmitAll,
	"emitall":             EmitAll,
	"name":                NameHeuristic,
	"name-syntax":         NameHeuristic,
	"heuristic":           NameHeuristic,
	"semantic":            SemanticResolution,
	"strict":              SemanticResolution,
	"semantic-resolution": SemanticResolution,
}

// ParseMethod resolves a strategy selector. Unknown selectors fail with
// UNSUPPORTED_STRATEGY.
func ParseMethod(s string) (Method, error) {
	if m, ok := methodAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return "", errors.Newf(errors.UnsupportedStrategy, "unknown extraction strategy %q", s).
		WithDetails(map[string]interface{}{"valid": []Method{EmitAll, NameHeuristic, SemanticResolution}})
}

// Strategy extracts the set of registry type identifiers referenced by source.
// Implementations are deterministic and safe for concurrent use.
type Strategy interface {
	Method() Method
	ExtractReferencedTypes(ctx context.Context, source string) (TypeSet, error)
}

// TypeSet is a set of type identifiers.
type TypeSet map[string]struct{}

// NewTypeSet returns a set holding ids.
func NewTypeSet(ids ...string) TypeSet {
	s := make(TypeSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id.
func (s TypeSet) Add(id string) {
	s[id] = struct{}{}
}

// Has reports whether id is in the set.
func (s TypeSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ordinal order.
func (s TypeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clone returns a copy of the set.
func (s TypeSet) Clone() TypeSet {
	c := make(TypeSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Option configures a strategy.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New constructs the strategy for method over reg.
func New(method Method, reg *registry.Registry, opts ...Option) (Strategy, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := slogutil.OrDiscard(o.logger)

	switch method {
	case EmitAll:
		return NewEmitAll(reg), nil
	case NameHeuristic:
		return NewNameHeuristic(reg, logger), nil
	case SemanticResolution:
		return NewSemanticResolution(reg, logger)
	default:
		return nil, errors.Newf(errors.UnsupportedStrategy, "unknown extraction strategy %q", string(method))
	}
}

// NewFromString parses selector and constructs the strategy.
func NewFromString(selector string, reg *registry.Registry, opts ...Option) (Strategy, error) {
	method, err := ParseMethod(selector)
	if err != nil {
		return nil, err
	}
	s, err := New(method, reg, opts...)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", method, err)
	}
	return s, nil
}
