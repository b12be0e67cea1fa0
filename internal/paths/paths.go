// Package paths defines where onefile keeps its per-project state.
//
// Layout under a project root:
//
//	.onefile/config.json      configuration
//	.onefile/registry.db      annotated registry store
//	.onefile/logs/onefile.log CLI log (when logging.file is set)
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// StateDirName is the per-project state directory.
	StateDirName = ".onefile"
	// ConfigFileName is the config file inside StateDirName.
	ConfigFileName = "config.json"
	// LogFileName is the CLI log file inside the logs directory.
	LogFileName = "onefile.log"
)

// GetStateDir returns <root>/.onefile.
func GetStateDir(root string) string {
	return filepath.Join(root, StateDirName)
}

// GetConfigPath returns <root>/.onefile/config.json.
func GetConfigPath(root string) string {
	return filepath.Join(GetStateDir(root), ConfigFileName)
}

// GetStoreDir returns the directory holding registry.db.
func GetStoreDir(root string) string {
	return GetStateDir(root)
}

// GetLogsDir returns <root>/.onefile/logs.
func GetLogsDir(root string) string {
	return filepath.Join(GetStateDir(root), "logs")
}

// GetLogPath returns <root>/.onefile/logs/onefile.log.
func GetLogPath(root string) string {
	return filepath.Join(GetLogsDir(root), LogFileName)
}

// EnsureStateDir creates <root>/.onefile if needed and returns it.
func EnsureStateDir(root string) (string, error) {
	dir := GetStateDir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// EnsureLogsDir creates <root>/.onefile/logs if needed and returns it.
func EnsureLogsDir(root string) (string, error) {
	dir := GetLogsDir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// CanonicalizePath converts an absolute path to a root-relative path with
// forward slashes, resolving symlinks where the path exists.
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		rootResolved = root
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsWithin reports whether path lies inside root.
func IsWithin(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// ResolveAgainst returns path unchanged when absolute, otherwise joined onto base.
func ResolveAgainst(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, filepath.FromSlash(path))
}
