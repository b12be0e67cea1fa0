package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLayout(t *testing.T) {
	root := filepath.Join("proj")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"state", GetStateDir(root), filepath.Join("proj", ".onefile")},
		{"config", GetConfigPath(root), filepath.Join("proj", ".onefile", "config.json")},
		{"store", GetStoreDir(root), filepath.Join("proj", ".onefile")},
		{"logs", GetLogsDir(root), filepath.Join("proj", ".onefile", "logs")},
		{"log", GetLogPath(root), filepath.Join("proj", ".onefile", "logs", "onefile.log")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestEnsureLogsDir(t *testing.T) {
	root := t.TempDir()

	dir, err := EnsureLogsDir(root)
	if err != nil {
		t.Fatalf("EnsureLogsDir failed: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("logs dir not created: %v", err)
	}

	// Second call is a no-op
	if _, err := EnsureLogsDir(root); err != nil {
		t.Errorf("second EnsureLogsDir failed: %v", err)
	}
}

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "acl", "dsu.go")
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("package acl"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := CanonicalizePath(file, root)
	if err != nil {
		t.Fatalf("CanonicalizePath failed: %v", err)
	}
	if got != "acl/dsu.go" {
		t.Errorf("got %q, want %q", got, "acl/dsu.go")
	}

	// Missing files are accepted as-is
	got, err = CanonicalizePath(filepath.Join(root, "new.go"), root)
	if err != nil || got != "new.go" {
		t.Errorf("missing file: got %q, %v", got, err)
	}
}

func TestIsWithin(t *testing.T) {
	root := t.TempDir()

	if !IsWithin(filepath.Join(root, "a", "b.go"), root) {
		t.Error("child path should be within root")
	}
	if IsWithin(filepath.Dir(root), root) {
		t.Error("parent should not be within root")
	}
}

func TestResolveAgainst(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "out.go")

	if got := ResolveAgainst("/base", abs); got != abs {
		t.Errorf("absolute path changed: %q", got)
	}
	if got := ResolveAgainst("base", "out/bundle.go"); got != filepath.Join("base", "out", "bundle.go") {
		t.Errorf("relative: got %q", got)
	}
	if got := ResolveAgainst("base", ""); got != "" {
		t.Errorf("empty: got %q", got)
	}
}
