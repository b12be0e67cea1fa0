// Package resolve computes which library modules an entry source needs: the
// modules owning the types it references plus everything those depend on.
package resolve

import (
	"onefile/internal/syntax"
)

// EntryDocument is the user-authored source being bundled.
type EntryDocument struct {
	Language syntax.Language `json:"language"`
	RawText  string          `json:"-"`
	// Preamble holds header lines kept ahead of the imports, such as a Go
	// package clause.
	Preamble []string `json:"preamble,omitempty"`
	Imports  []string `json:"imports"`
	// Body is the entry text after its leading import block.
	Body string `json:"-"`
}

// ParseEntry splits text into preamble, import directives and body. Blank
// lines and comments between directives are tolerated; Go import groups
// become one directive per import.
func ParseEntry(lang syntax.Language, text string) *EntryDocument {
	split := syntax.SplitImports(lang, text)
	return &EntryDocument{
		Language: lang,
		RawText:  text,
		Preamble: split.Preamble,
		Imports:  split.Imports,
		Body:     split.Body,
	}
}
