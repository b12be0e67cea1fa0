// Package emit renders an entry and its resolved library modules as a single
// self-contained source document.
package emit

import (
	"io"
	"sort"
	"strings"

	"onefile/internal/registry"
	"onefile/internal/resolve"
	"onefile/internal/syntax"
)

// Bundle is a resolved entry ready to render. Identical inputs always
// produce identical bundles.
type Bundle struct {
	Preamble []string `json:"preamble,omitempty"`
	// SortedImports is the deduplicated union of entry and module imports,
	// ordered by the directive with any trailing ';' removed.
	SortedImports []string `json:"imports"`
	EntryBody     string   `json:"-"`
	// IncludedModules holds module bodies ordered by their text.
	IncludedModules []string `json:"-"`
	// ModuleNames lists the included modules, sorted.
	ModuleNames []string `json:"modules"`
}

// Build assembles the bundle for entry and the modules it needs.
func Build(entry *resolve.EntryDocument, included []*registry.Module) *Bundle {
	imports := make([][]string, 0, len(included)+1)
	imports = append(imports, entry.Imports)

	bodies := make([]string, 0, len(included))
	names := make([]string, 0, len(included))
	for _, m := range included {
		imports = append(imports, m.Imports)
		bodies = append(bodies, m.Body)
		names = append(names, m.Name)
	}
	sort.Strings(bodies)
	sort.Strings(names)

	return &Bundle{
		Preamble:        append([]string(nil), entry.Preamble...),
		SortedImports:   MergeImports(imports...),
		EntryBody:       entry.Body,
		IncludedModules: bodies,
		ModuleNames:     names,
	}
}

// MergeImports returns the union of the directive lists. Directives equal
// after trimming whitespace and one trailing ';' are merged, keeping the
// terminated spelling when there is one, else the smallest. The result is
// ordered by the trimmed form.
func MergeImports(lists ...[]string) []string {
	byKey := make(map[string]string)
	for _, list := range lists {
		for _, directive := range list {
			directive = strings.TrimSpace(directive)
			if directive == "" {
				continue
			}
			key := importKey(directive)
			if prev, ok := byKey[key]; !ok || preferSpelling(directive, prev) {
				byKey[key] = directive
			}
		}
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = byKey[k]
	}
	return out
}

func preferSpelling(a, b string) bool {
	aTerm, bTerm := strings.HasSuffix(a, ";"), strings.HasSuffix(b, ";")
	if aTerm != bTerm {
		return aTerm
	}
	return a < b
}

func importKey(directive string) string {
	return strings.TrimSpace(strings.TrimSuffix(directive, ";"))
}

// Render writes the document: preamble, imports, a blank line, the entry
// body, then the module bodies between the library markers.
func (b *Bundle) Render(w io.Writer, markers syntax.Markers) error {
	var sb strings.Builder

	for _, line := range b.Preamble {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if len(b.Preamble) > 0 && len(b.SortedImports) > 0 {
		sb.WriteByte('\n')
	}
	for _, directive := range b.SortedImports {
		sb.WriteString(directive)
		sb.WriteByte('\n')
	}
	if len(b.Preamble) > 0 || len(b.SortedImports) > 0 {
		sb.WriteByte('\n')
	}

	if body := strings.TrimRight(b.EntryBody, "\r\n"); body != "" {
		sb.WriteString(body)
		sb.WriteByte('\n')
	}

	sb.WriteString(markers.Begin)
	sb.WriteByte('\n')
	for _, body := range b.IncludedModules {
		sb.WriteString(strings.TrimRight(body, "\r\n"))
		sb.WriteByte('\n')
	}
	sb.WriteString(markers.End)
	sb.WriteByte('\n')

	_, err := io.WriteString(w, sb.String())
	return err
}

// String renders the bundle with the generic markers.
func (b *Bundle) String() string {
	var sb strings.Builder
	_ = b.Render(&sb, syntax.ProfileFor(syntax.Generic).Markers)
	return sb.String()
}

// Text renders the bundle with the markers of lang.
func (b *Bundle) Text(lang syntax.Language) string {
	var sb strings.Builder
	_ = b.Render(&sb, syntax.ProfileFor(lang).Markers)
	return sb.String()
}
