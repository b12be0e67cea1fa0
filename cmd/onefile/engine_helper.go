package main

import (
	"context"
	"os"
	"path/filepath"

	"onefile/internal/bundler"
	"onefile/internal/errors"
	"onefile/internal/extract"
)

// entryRequest names an entry file and how to resolve it.
type entryRequest struct {
	Entry    string
	Strategy string
	Manifest string
}

// preparedEntry is a validated entry with an engine ready to resolve it.
type preparedEntry struct {
	Path   string
	Method extract.Method
	Engine *bundler.Engine
}

// prepareEntry validates the strategy selector before touching the
// filesystem, then checks the entry and loads the registry.
func (e *cliEnv) prepareEntry(ctx context.Context, req entryRequest) (*preparedEntry, error) {
	selector := req.Strategy
	if selector == "" {
		selector = e.cfg.Resolve.Strategy
	}
	method, err := extract.ParseMethod(selector)
	if err != nil {
		return nil, err
	}

	path, err := filepath.Abs(req.Entry)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return nil, errors.New(errors.EntryNotFound, "entry file "+req.Entry+" not found", err)
	}

	reg, err := e.loadRegistry(ctx, req.Manifest)
	if err != nil {
		return nil, err
	}
	strategy, err := e.newStrategy(selector, reg)
	if err != nil {
		return nil, err
	}

	opts := []bundler.Option{bundler.WithLogger(e.logger)}
	if !reg.Ready() && e.cfg.Build.AutoBuild {
		buildStrategy, err := e.newStrategy(e.cfg.Build.Strategy, reg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, bundler.WithAutoBuild(buildStrategy))
	}

	engine, err := bundler.New(reg, strategy, opts...)
	if err != nil {
		return nil, err
	}
	return &preparedEntry{Path: path, Method: method, Engine: engine}, nil
}
