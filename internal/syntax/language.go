// Package syntax knows just enough about each source language to split a file
// into preamble, import directives and body, and to list the identifiers it uses.
package syntax

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoCGO is returned when tree-sitter parsing is unavailable due to missing CGO.
var ErrNoCGO = errors.New("tree-sitter parsing requires CGO")

// Language identifies a source language.
type Language string

const (
	// Generic is a language-neutral profile: "import" directives and // comments.
	Generic    Language = "generic"
	Go         Language = "go"
	Java       Language = "java"
	Kotlin     Language = "kotlin"
	Rust       Language = "rust"
	Python     Language = "python"
	CSharp     Language = "csharp"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
)

// Markers delimit the library region of a bundle.
type Markers struct {
	Begin string
	End   string
}

// Profile describes the lexical conventions of a language.
type Profile struct {
	Language   Language
	Extensions []string
	// LineComments are the prefixes that start a line comment.
	LineComments []string
	// BlockComments is true for /* ... */ comments.
	BlockComments bool
	// ImportPrefixes are the keywords that start an import directive.
	ImportPrefixes []string
	// PreamblePrefixes start header lines that must stay ahead of the imports.
	PreamblePrefixes []string
	// RawStrings is true for Go/JS backtick strings.
	RawStrings bool
	Markers    Markers
}

var slashMarkers = Markers{Begin: "// BEGIN-LIBRARY", End: "// END-LIBRARY"}

var profiles = map[Language]Profile{
	Generic: {
		Language:       Generic,
		LineComments:   []string{"//"},
		BlockComments:  true,
		ImportPrefixes: []string{"import"},
		Markers:        slashMarkers,
	},
	Go: {
		Language:         Go,
		Extensions:       []string{".go"},
		LineComments:     []string{"//"},
		BlockComments:    true,
		ImportPrefixes:   []string{"import"},
		PreamblePrefixes: []string{"package"},
		RawStrings:       true,
		Markers:          slashMarkers,
	},
	Java: {
		Language:         Java,
		Extensions:       []string{".java"},
		LineComments:     []string{"//"},
		BlockComments:    true,
		ImportPrefixes:   []string{"import"},
		PreamblePrefixes: []string{"package"},
		Markers:          slashMarkers,
	},
	Kotlin: {
		Language:         Kotlin,
		Extensions:       []string{".kt", ".kts"},
		LineComments:     []string{"//"},
		BlockComments:    true,
		ImportPrefixes:   []string{"import"},
		PreamblePrefixes: []string{"package"},
		Markers:          slashMarkers,
	},
	Rust: {
		Language:       Rust,
		Extensions:     []string{".rs"},
		LineComments:   []string{"//"},
		BlockComments:  true,
		ImportPrefixes: []string{"use", "extern crate"},
		Markers:        slashMarkers,
	},
	Python: {
		Language:       Python,
		Extensions:     []string{".py"},
		LineComments:   []string{"#"},
		ImportPrefixes: []string{"import", "from"},
		Markers:        Markers{Begin: "# BEGIN-LIBRARY", End: "# END-LIBRARY"},
	},
	CSharp: {
		Language:       CSharp,
		Extensions:     []string{".cs"},
		LineComments:   []string{"//"},
		BlockComments:  true,
		ImportPrefixes: []string{"using"},
		Markers:        Markers{Begin: "#region onefile-library", End: "#endregion"},
	},
	JavaScript: {
		Language:       JavaScript,
		Extensions:     []string{".js", ".mjs", ".cjs"},
		LineComments:   []string{"//"},
		BlockComments:  true,
		ImportPrefixes: []string{"import"},
		RawStrings:     true,
		Markers:        slashMarkers,
	},
	TypeScript: {
		Language:       TypeScript,
		Extensions:     []string{".ts"},
		LineComments:   []string{"//"},
		BlockComments:  true,
		ImportPrefixes: []string{"import"},
		RawStrings:     true,
		Markers:        slashMarkers,
	},
}

var aliases = map[string]Language{
	"":           Generic,
	"golang":     Go,
	"kt":         Kotlin,
	"rs":         Rust,
	"py":         Python,
	"cs":         CSharp,
	"c#":         CSharp,
	"js":         JavaScript,
	"ts":         TypeScript,
	"pseudocode": Generic,
}

// ParseLanguage resolves a language name or common alias.
func ParseLanguage(s string) (Language, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if lang, ok := aliases[key]; ok {
		return lang, nil
	}
	if _, ok := profiles[Language(key)]; ok {
		return Language(key), nil
	}
	return "", fmt.Errorf("unknown language %q", s)
}

// ProfileFor returns the profile for lang. Unknown languages get the generic profile.
func ProfileFor(lang Language) Profile {
	if p, ok := profiles[lang]; ok {
		return p
	}
	return profiles[Generic]
}

// LanguageFromExtension returns the language owning a file extension.
func LanguageFromExtension(ext string) (Language, bool) {
	ext = strings.ToLower(ext)
	for lang, p := range profiles {
		for _, e := range p.Extensions {
			if e == ext {
				return lang, true
			}
		}
	}
	return "", false
}

// MatchesFile reports whether path has one of lang's extensions.
func MatchesFile(lang Language, path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range ProfileFor(lang).Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Languages returns every known language, sorted.
func Languages() []Language {
	out := make([]Language, 0, len(profiles))
	for lang := range profiles {
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SimpleName reduces a type identifier to the bare name a source file would
// spell: the qualifier up to the last "." or "::" is dropped, then any generic
// suffix starting at "<" or "[".
func SimpleName(typeID string) string {
	name := typeID
	if i := strings.IndexAny(name, "<["); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
