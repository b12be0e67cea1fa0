// Package project detects the source language of a library directory.
package project

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"onefile/internal/syntax"
)

// Detection is the result of DetectLanguage.
type Detection struct {
	Language syntax.Language
	// Marker is the build file that decided the language, if any.
	Marker string
	// Files counts source files per language seen while walking.
	Files map[syntax.Language]int
}

// markers are checked at the library root in priority order.
var markers = []struct {
	glob string
	lang syntax.Language
}{
	{"go.mod", syntax.Go},
	{"*.csproj", syntax.CSharp},
	{"*.sln", syntax.CSharp},
	{"Cargo.toml", syntax.Rust},
	{"pyproject.toml", syntax.Python},
	{"setup.py", syntax.Python},
	{"build.gradle.kts", syntax.Kotlin},
	{"pom.xml", syntax.Java},
	{"build.gradle", syntax.Java},
	{"package.json", syntax.JavaScript},
}

// DetectLanguage decides the language of the library rooted at root, first
// from a build file at the root and otherwise from the most common source
// extension below it. Ties go to the language name that sorts first.
func DetectLanguage(root string) (Detection, bool) {
	d := Detection{Files: countSources(root)}

	for _, m := range markers {
		matches, _ := filepath.Glob(filepath.Join(root, m.glob))
		if len(matches) == 0 {
			continue
		}
		d.Language = m.lang
		d.Marker = filepath.Base(matches[0])
		if m.lang == syntax.JavaScript && isTypeScript(root, d.Files) {
			d.Language = syntax.TypeScript
		}
		return d, true
	}

	langs := make([]syntax.Language, 0, len(d.Files))
	for lang := range d.Files {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool {
		if d.Files[langs[i]] != d.Files[langs[j]] {
			return d.Files[langs[i]] > d.Files[langs[j]]
		}
		return langs[i] < langs[j]
	})
	if len(langs) == 0 {
		return d, false
	}
	d.Language = langs[0]
	return d, true
}

func isTypeScript(root string, files map[syntax.Language]int) bool {
	if _, err := os.Stat(filepath.Join(root, "tsconfig.json")); err == nil {
		return true
	}
	return files[syntax.TypeScript] > files[syntax.JavaScript]
}

// countSources walks root, skipping hidden, vendor and node_modules
// directories.
func countSources(root string) map[syntax.Language]int {
	counts := make(map[syntax.Language]int)
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if lang, ok := syntax.LanguageFromExtension(filepath.Ext(d.Name())); ok {
			counts[lang]++
		}
		return nil
	})
	return counts
}
