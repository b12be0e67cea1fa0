package registry

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"onefile/internal/paths"
	"onefile/internal/slogutil"
	"onefile/internal/syntax"
)

// ScanOptions configures a Scanner.
type ScanOptions struct {
	// Minify strips indentation, trailing whitespace and blank lines from bodies.
	// Ignored for Python, where indentation is significant.
	Minify bool
	// Exclude lists directory names to skip in addition to hidden directories.
	Exclude []string
	Logger  *slog.Logger
}

// Scanner turns a directory of library sources into modules, one per file.
type Scanner struct {
	lang    syntax.Language
	parser  *syntax.Parser
	opts    ScanOptions
	logger  *slog.Logger
	exclude map[string]bool
}

// NewScanner creates a scanner for sources of one language.
func NewScanner(lang syntax.Language, opts ScanOptions) *Scanner {
	exclude := map[string]bool{"vendor": true, "testdata": true, "node_modules": true, "__pycache__": true}
	for _, name := range opts.Exclude {
		exclude[name] = true
	}
	return &Scanner{
		lang:    lang,
		parser:  syntax.NewParser(),
		opts:    opts,
		logger:  slogutil.OrDiscard(opts.Logger),
		exclude: exclude,
	}
}

// ScanDir walks root and returns one module per source file, sorted by name.
// Module names are slash-separated paths relative to root.
func (s *Scanner) ScanDir(ctx context.Context, root string) ([]*Module, error) {
	if !syntax.IsAvailable() {
		return nil, syntax.ErrNoCGO
	}
	if !syntax.HasGrammar(s.lang) {
		return nil, fmt.Errorf("scanning %s sources is not supported", s.lang)
	}

	var modules []*Module
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || s.exclude[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if !syntax.MatchesFile(s.lang, path) || s.isTestFile(d.Name()) {
			return nil
		}

		if !paths.IsWithin(path, root) {
			s.logger.Debug("Skipping file linked from outside the library", "path", path)
			return nil
		}
		rel, err := paths.CanonicalizePath(path, root)
		if err != nil {
			return err
		}
		m, err := s.ScanFile(ctx, path, rel)
		if err != nil {
			return err
		}
		if len(m.TypeNames) == 0 {
			s.logger.Debug("Skipping file without declarations", "path", rel)
			return nil
		}
		modules = append(modules, m)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(modules, func(i, j int) bool { return modules[i].Name < modules[j].Name })
	s.logger.Info("Scanned library", "root", root, "modules", len(modules))
	return modules, nil
}

// ScanFile builds the module for one source file.
func (s *Scanner) ScanFile(ctx context.Context, path, name string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := string(data)

	decls, err := s.parser.Declarations(ctx, s.lang, text)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	qualifier := syntax.Namespace(s.lang, text)
	seen := make(map[string]bool)
	var typeNames []string
	for _, d := range decls {
		id := d.Name
		if qualifier != "" {
			id = qualifier + "." + d.Name
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		typeNames = append(typeNames, id)
	}
	sort.Strings(typeNames)

	split := syntax.SplitImports(s.lang, text)
	body := strings.TrimRight(split.Body, "\r\n\t ")
	if s.opts.Minify {
		body = Minify(s.lang, body)
	}

	return &Module{
		Name:         name,
		Path:         filepath.ToSlash(path),
		TypeNames:    typeNames,
		Imports:      split.Imports,
		Body:         body,
		Dependencies: []string{},
	}, nil
}

func (s *Scanner) isTestFile(name string) bool {
	switch s.lang {
	case syntax.Go:
		return strings.HasSuffix(name, "_test.go")
	case syntax.Python:
		return strings.HasPrefix(name, "test_")
	}
	return false
}

// Minify removes indentation, trailing whitespace and blank lines.
// Python bodies are returned unchanged.
func Minify(lang syntax.Language, body string) string {
	if lang == syntax.Python {
		return body
	}
	lines := strings.Split(body, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
