// Package registry holds the library modules available for bundling and the
// reverse index from declared type identifiers to the module declaring them.
package registry

import (
	"sort"

	"onefile/internal/errors"
	"onefile/internal/syntax"
)

// Module is one library unit: a source file's declarations, import
// directives and body text.
type Module struct {
	Name string `json:"name" toml:"name" yaml:"name"`
	// Path is the source file the module was scanned from. Informational.
	Path      string   `json:"path,omitempty" toml:"path,omitempty" yaml:"path,omitempty"`
	TypeNames []string `json:"typeNames" toml:"typeNames" yaml:"typeNames"`
	Imports   []string `json:"imports" toml:"imports" yaml:"imports"`
	Body      string   `json:"body" toml:"body,multiline" yaml:"body"`
	// Dependencies are the names of modules whose declarations this module
	// uses, directly or transitively. Sorted. Empty until built.
	Dependencies []string `json:"dependencies" toml:"dependencies" yaml:"dependencies"`
}

func (m *Module) clone() *Module {
	c := *m
	c.TypeNames = append([]string(nil), m.TypeNames...)
	c.Imports = append([]string(nil), m.Imports...)
	c.Dependencies = append([]string(nil), m.Dependencies...)
	return &c
}

// Registry is an immutable set of modules keyed by name with a reverse
// type index. It is safe for concurrent readers.
type Registry struct {
	language syntax.Language
	modules  map[string]*Module
	names    []string
	owners   map[string]string
	types    []string
	simple   map[string][]string
	built    bool
}

// New builds a registry from modules. It fails with REGISTRY_INCONSISTENCY
// when two modules share a name or declare the same type identifier.
// The returned registry is not Ready until dependencies are supplied.
func New(language syntax.Language, modules []*Module) (*Registry, error) {
	r := &Registry{
		language: language,
		modules:  make(map[string]*Module, len(modules)),
		owners:   make(map[string]string),
		simple:   make(map[string][]string),
	}

	for _, m := range modules {
		if m == nil {
			continue
		}
		if m.Name == "" {
			return nil, errors.Newf(errors.RegistryInconsistency, "module with empty name (path %q)", m.Path)
		}
		if _, dup := r.modules[m.Name]; dup {
			return nil, errors.Newf(errors.RegistryInconsistency, "module %q declared twice", m.Name)
		}

		c := m.clone()
		c.Dependencies = sortedSet(c.Dependencies)
		r.modules[c.Name] = c
		r.names = append(r.names, c.Name)

		for _, id := range c.TypeNames {
			if owner, dup := r.owners[id]; dup {
				if owner == c.Name {
					continue
				}
				return nil, errors.Newf(errors.RegistryInconsistency,
					"type %q declared by both %q and %q", id, owner, c.Name).
					WithDetails(map[string]string{"type": id, "first": owner, "second": c.Name})
			}
			r.owners[id] = c.Name
			r.types = append(r.types, id)
		}
	}

	sort.Strings(r.names)
	sort.Strings(r.types)
	for _, id := range r.types {
		s := syntax.SimpleName(id)
		r.simple[s] = append(r.simple[s], id)
	}
	return r, nil
}

// NewBuilt is New for modules whose Dependencies are already computed.
func NewBuilt(language syntax.Language, modules []*Module) (*Registry, error) {
	r, err := New(language, modules)
	if err != nil {
		return nil, err
	}
	r.built = true
	return r, nil
}

// WithDependencies returns a copy of r whose modules carry deps[name]
// (sorted, deduplicated). Modules absent from deps get none.
func (r *Registry) WithDependencies(deps map[string][]string) *Registry {
	out := &Registry{
		language: r.language,
		modules:  make(map[string]*Module, len(r.modules)),
		names:    r.names,
		owners:   r.owners,
		types:    r.types,
		simple:   r.simple,
		built:    true,
	}
	for name, m := range r.modules {
		c := m.clone()
		c.Dependencies = sortedSet(deps[name])
		out.modules[name] = c
	}
	return out
}

// Get returns the module named name. The module must not be modified.
func (r *Registry) Get(name string) (*Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// Owner returns the name of the module declaring typeID.
func (r *Registry) Owner(typeID string) (string, bool) {
	name, ok := r.owners[typeID]
	return name, ok
}

// Modules returns all modules sorted by name.
func (r *Registry) Modules() []*Module {
	out := make([]*Module, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.modules[name])
	}
	return out
}

// Names returns all module names, sorted.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// TypeNames returns every declared type identifier, sorted.
func (r *Registry) TypeNames() []string {
	return append([]string(nil), r.types...)
}

// SimpleNames maps each simple name to the type identifiers reducing to it.
// The map must not be modified.
func (r *Registry) SimpleNames() map[string][]string {
	return r.simple
}

// Len returns the number of modules.
func (r *Registry) Len() int {
	return len(r.names)
}

// Language returns the source language of the modules.
func (r *Registry) Language() syntax.Language {
	return r.language
}

// Ready reports whether module dependencies were computed or supplied.
func (r *Registry) Ready() bool {
	return r.built
}

// DependencyCount returns the total number of dependency edges.
func (r *Registry) DependencyCount() int {
	n := 0
	for _, m := range r.modules {
		n += len(m.Dependencies)
	}
	return n
}

func sortedSet(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	j := 0
	for i, s := range out {
		if i > 0 && s == out[j-1] {
			continue
		}
		out[j] = s
		j++
	}
	return out[:j]
}
