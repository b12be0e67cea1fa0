package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"onefile/internal/config"
	"onefile/internal/errors"
	"onefile/internal/extract"
	"onefile/internal/paths"
	"onefile/internal/registry"
	"onefile/internal/slogutil"
	"onefile/internal/storage"
	"onefile/internal/syntax"
)

// cliEnv carries the configuration and logger shared by all commands.
type cliEnv struct {
	root    string
	cfg     *config.Config
	logger  *slog.Logger
	factory *slogutil.LoggerFactory
}

// Close releases log files.
func (e *cliEnv) Close() error {
	if e.factory == nil {
		return nil
	}
	return e.factory.Close()
}

// manifestPath resolves the manifest flag, falling back to library.manifest.
func (e *cliEnv) manifestPath(flag string) string {
	p := flag
	if p == "" {
		p = e.cfg.Library.Manifest
	}
	return paths.ResolveAgainst(e.root, p)
}

func (e *cliEnv) language() (syntax.Language, error) {
	return syntax.ParseLanguage(e.cfg.Library.Language)
}

// openStore opens the registry store. It returns nil when the store is
// disabled, or when mustExist is set and no store was created yet.
func (e *cliEnv) openStore(mustExist bool) (*storage.DB, error) {
	if !e.cfg.Store.Enabled {
		return nil, nil
	}
	dir := paths.GetStoreDir(e.root)
	if mustExist {
		if _, err := os.Stat(filepath.Join(dir, storage.DBFileName)); err != nil {
			return nil, nil
		}
	}
	db, err := storage.Open(dir, e.logger)
	if err != nil {
		return nil, err
	}
	db.SetCompression(e.cfg.Store.Compress)
	return db, nil
}

// loadRegistry returns the registry to resolve against. Without an explicit
// manifest flag the last stored build is used unless the manifest changed
// after it; otherwise the manifest is read.
func (e *cliEnv) loadRegistry(ctx context.Context, manifestFlag string) (*registry.Registry, error) {
	manifest := e.manifestPath(manifestFlag)
	info, statErr := os.Stat(manifest)

	if manifestFlag == "" {
		if reg, ok := e.loadStored(ctx, info); ok {
			return reg, nil
		}
	}
	if statErr != nil {
		return nil, errors.New(errors.ManifestInvalid, fmt.Sprintf("manifest %s not found", manifest), statErr)
	}
	e.logger.Debug("Loading manifest", "path", manifest)
	return registry.Load(manifest)
}

func (e *cliEnv) loadStored(ctx context.Context, manifestInfo os.FileInfo) (*registry.Registry, bool) {
	db, err := e.openStore(true)
	if err != nil {
		e.logger.Warn("Registry store unavailable, reading manifest", "error", err.Error())
		return nil, false
	}
	if db == nil {
		return nil, false
	}
	defer db.Close()

	build, err := db.LatestBuild(ctx)
	if err != nil || build == nil {
		return nil, false
	}
	if manifestInfo != nil && manifestInfo.ModTime().After(build.CreatedAt) {
		e.logger.Info("Manifest changed since last build, reading manifest", "build", build.ID)
		return nil, false
	}

	reg, err := db.LoadRegistry(ctx)
	if err != nil {
		e.logger.Warn("Failed to load stored registry", "error", err.Error())
		return nil, false
	}
	e.logger.Debug("Using stored registry", "build", build.ID, "modules", reg.Len())
	return reg, true
}

// newStrategy constructs the strategy named by selector, memoized when
// build.cacheSize is positive.
func (e *cliEnv) newStrategy(selector string, reg *registry.Registry) (extract.Strategy, error) {
	s, err := extract.NewFromString(selector, reg, extract.WithLogger(e.logger))
	if err != nil {
		return nil, err
	}
	return extract.Cached(s, e.cfg.Build.CacheSize), nil
}
