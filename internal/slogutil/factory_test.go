package slogutil

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"

	"onefile/internal/config"
	"onefile/internal/paths"
)

func TestLoggerFactory_StderrOnly(t *testing.T) {
	var stderr bytes.Buffer
	level := slog.LevelWarn

	f := NewLoggerFactory(t.TempDir(), nil, &level, &stderr)
	defer f.Close()

	logger := f.CLILogger()
	logger.Info("hidden")
	logger.Warn("shown")

	out := stderr.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info should be filtered at warn: %q", out)
	}
	if !strings.Contains(out, "warn: shown") {
		t.Errorf("warn missing: %q", out)
	}
}

func TestLoggerFactory_FileTee(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Logging.File = true
	cfg.Logging.Level = "debug"

	var stderr bytes.Buffer
	level := slog.LevelError
	f := NewLoggerFactory(root, cfg, &level, &stderr)

	f.CLILogger().Debug("to file only", "module", "acl/dsu.go")
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if stderr.Len() != 0 {
		t.Errorf("stderr should be empty, got %q", stderr.String())
	}
	data, err := os.ReadFile(paths.GetLogPath(root))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), " debug: to file only module=acl/dsu.go") {
		t.Errorf("unexpected log file contents: %q", data)
	}
}

func TestLoggerFactory_ConfigLevel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "error"

	f := NewLoggerFactory("", cfg, nil, &bytes.Buffer{})
	if got := f.effectiveLevel(); got != slog.LevelError {
		t.Errorf("effectiveLevel() = %v, want error", got)
	}
}
