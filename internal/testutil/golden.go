// Package testutil provides golden-file and fixture helpers for tests.
package testutil

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var (
	// updateGolden controls whether golden files should be updated.
	// Use: go test ./... -run TestGolden -update
	updateGolden = flag.Bool("update", false, "update golden files")

	// goldenLang filters which languages golden tests cover.
	// Use: go test ./... -run TestGolden -goldenLang=go,cs
	goldenLang = flag.String("goldenLang", "", "filter languages (comma-separated: go,cs,py)")
)

// ShouldUpdate returns true if golden files should be updated.
func ShouldUpdate() bool {
	return *updateGolden
}

// ShouldTestLang returns true if the given language should be tested.
func ShouldTestLang(lang string) bool {
	if *goldenLang == "" {
		return true
	}
	for _, l := range strings.Split(*goldenLang, ",") {
		l = strings.TrimSpace(l)
		if l == lang || l == shortLang(lang) {
			return true
		}
	}
	return false
}

func shortLang(lang string) string {
	switch lang {
	case "typescript":
		return "ts"
	case "javascript":
		return "js"
	case "python":
		return "py"
	case "csharp":
		return "cs"
	case "kotlin":
		return "kt"
	case "rust":
		return "rs"
	default:
		return lang
	}
}

// GoldenPath returns testdata/golden/<name> relative to the test's package.
func GoldenPath(name string) string {
	return filepath.Join("testdata", "golden", name)
}

// CompareGolden compares got against testdata/golden/<name>, failing with a
// diff on mismatch. With -update the golden file is rewritten instead.
func CompareGolden(t *testing.T, name string, got []byte) {
	t.Helper()

	path := GoldenPath(name)
	if *updateGolden {
		UpdateGolden(t, name, got)
		t.Logf("Updated golden: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("Golden file missing: %s\n\nGot:\n%s\n\nRun with -update to create:\n  go test ./... -run %s -update",
				path, string(got), t.Name())
		}
		t.Fatalf("Failed to read golden file: %v", err)
	}

	if diff := cmp.Diff(splitLines(string(expected)), splitLines(string(got))); diff != "" {
		t.Fatalf("Golden mismatch for %s (-want +got):\n%s\n\nRun with -update to refresh:\n  go test ./... -run %s -update",
			name, diff, t.Name())
	}
}

// CompareGoldenJSON marshals got as indented JSON, replacing every occurrence
// of root with "<root>", and compares it like CompareGolden.
func CompareGoldenJSON(t *testing.T, name, root string, got any) {
	t.Helper()

	data, err := json.MarshalIndent(got, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal %s: %v", name, err)
	}
	text := string(data)
	if root != "" {
		text = strings.ReplaceAll(text, filepath.ToSlash(root), "<root>")
	}
	CompareGolden(t, name, []byte(text+"\n"))
}

// UpdateGolden writes data to the golden file, creating parent directories.
func UpdateGolden(t *testing.T, name string, data []byte) {
	t.Helper()

	path := GoldenPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create golden directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write golden file: %v", err)
	}
}

func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}
