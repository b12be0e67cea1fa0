package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.Resolve.Strategy != "name" {
		t.Errorf("Resolve.Strategy = %q, want %q", cfg.Resolve.Strategy, "name")
	}
	if cfg.Build.Strategy != "semantic" {
		t.Errorf("Build.Strategy = %q, want %q", cfg.Build.Strategy, "semantic")
	}
	if !cfg.Output.Header || !cfg.Output.Atomic {
		t.Error("header and atomic writes should be on by default")
	}
	if cfg.Output.TokenMode != TokenModeMtime {
		t.Errorf("TokenMode = %q, want %q", cfg.Output.TokenMode, TokenModeMtime)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Library.Manifest != "library.toml" {
		t.Errorf("Library.Manifest = %q, want default", cfg.Library.Manifest)
	}
	if cfg.Build.CacheSize != 4096 {
		t.Errorf("Build.CacheSize = %d, want 4096", cfg.Build.CacheSize)
	}
}

func TestSaveAndLoad(t *testing.T) {
	root := t.TempDir()

	cfg := DefaultConfig()
	cfg.Library.Manifest = "acl/manifest.yaml"
	cfg.Resolve.Strategy = "all"
	cfg.Output.TokenMode = TokenModeHash
	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, ".onefile", "config.json")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	loaded, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Library.Manifest != "acl/manifest.yaml" {
		t.Errorf("Library.Manifest = %q", loaded.Library.Manifest)
	}
	if loaded.Resolve.Strategy != "all" {
		t.Errorf("Resolve.Strategy = %q", loaded.Resolve.Strategy)
	}
	if loaded.Output.TokenMode != TokenModeHash {
		t.Errorf("Output.TokenMode = %q", loaded.Output.TokenMode)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("ONEFILE_RESOLVE_STRATEGY", "semantic")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Resolve.Strategy != "semantic" {
		t.Errorf("Resolve.Strategy = %q, want env override", cfg.Resolve.Strategy)
	}
}

func TestLoadConfig_BuildStrategyFollowsLanguage(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"default go", `{"version":1}`, "semantic"},
		{"python", `{"version":1,"library":{"language":"python"}}`, "name"},
		{"csharp", `{"version":1,"library":{"language":"csharp"}}`, "name"},
		{"explicit wins", `{"version":1,"library":{"language":"python"},"build":{"strategy":"all"}}`, "all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			dir := filepath.Join(root, ".onefile")
			if err := os.MkdirAll(dir, 0755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(tt.json), 0644); err != nil {
				t.Fatal(err)
			}

			cfg, err := LoadConfig(root)
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			if cfg.Build.Strategy != tt.want {
				t.Errorf("Build.Strategy = %q, want %q", cfg.Build.Strategy, tt.want)
			}
		})
	}
}

func TestLoadConfig_BuildStrategyEnv(t *testing.T) {
	t.Setenv("ONEFILE_BUILD_STRATEGY", "all")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Build.Strategy != "all" {
		t.Errorf("Build.Strategy = %q, want env override", cfg.Build.Strategy)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad version", func(c *Config) { c.Version = 9 }, "version"},
		{"no language", func(c *Config) { c.Library.Language = "" }, "library.language"},
		{"bad token mode", func(c *Config) { c.Output.TokenMode = "ctime" }, "output.tokenMode"},
		{"negative cache", func(c *Config) { c.Build.CacheSize = -1 }, "build.cacheSize"},
		{"negative debounce", func(c *Config) { c.Watch.DebounceMs = -5 }, "watch.debounceMs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			cerr, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if cerr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cerr.Field, tt.field)
			}
		})
	}
}
