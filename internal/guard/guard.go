// Package guard skips regenerating a bundle whose entry file has not changed
// since the bundle was last written.
package guard

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"onefile/internal/errors"
	"onefile/internal/slogutil"
	"onefile/internal/syntax"
)

// Outcome reports what WriteIfStale did.
type Outcome int

const (
	// Skipped means the artifact was fresh and left untouched.
	Skipped Outcome = iota
	// Written means the artifact was regenerated.
	Written
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Written:
		return "written"
	default:
		return "unknown"
	}
}

// TokenMode selects how the freshness token is derived from the entry file.
type TokenMode string

const (
	// TokenMtime uses the modification time in nanoseconds.
	TokenMtime TokenMode = "mtime"
	// TokenHash uses the SHA-256 of the file contents.
	TokenHash TokenMode = "hash"
)

// headerTag follows the line comment prefix in the first line of an artifact.
const headerTag = "onefile:"

// maxHeaderLen bounds how much of an existing artifact is read.
const maxHeaderLen = 512

// Renderer produces the bundle text for the entry source.
type Renderer func(ctx context.Context, entryText string) (string, error)

// Guard writes bundles only when their entry changed.
// Concurrent calls for the same output path race on freshness.
type Guard struct {
	render      Renderer
	language    syntax.Language
	mode        TokenMode
	force       bool
	checkHeader bool
	atomic      bool
	logger      *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithLanguage sets the language whose line comment prefixes the header.
func WithLanguage(lang syntax.Language) Option {
	return func(g *Guard) { g.language = lang }
}

// WithTokenMode sets how tokens are computed.
func WithTokenMode(mode TokenMode) Option {
	return func(g *Guard) { g.mode = mode }
}

// WithForce regenerates regardless of the stored token.
func WithForce(force bool) Option {
	return func(g *Guard) { g.force = force }
}

// WithHeader controls whether the token header is read and written. Without
// it every call regenerates.
func WithHeader(on bool) Option {
	return func(g *Guard) { g.checkHeader = on }
}

// WithAtomic controls whether artifacts are replaced through a temporary
// file and rename, or truncated and rewritten in place.
func WithAtomic(on bool) Option {
	return func(g *Guard) { g.atomic = on }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// New creates a guard around render. Defaults: mtime tokens, header on,
// atomic writes, generic language.
func New(render Renderer, opts ...Option) *Guard {
	g := &Guard{
		render:      render,
		language:    syntax.Generic,
		mode:        TokenMtime,
		checkHeader: true,
		atomic:      true,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = slogutil.OrDiscard(g.logger)
	return g
}

// Token computes the freshness token of the entry file.
func (g *Guard) Token(entryPath string) (string, error) {
	switch g.mode {
	case TokenHash:
		data, err := os.ReadFile(entryPath)
		if err != nil {
			return "", entryError(entryPath, err)
		}
		sum := sha256.Sum256(data)
		return "sha256:" + hex.EncodeToString(sum[:]), nil
	default:
		info, err := os.Stat(entryPath)
		if err != nil {
			return "", entryError(entryPath, err)
		}
		return "mtime:" + strconv.FormatInt(info.ModTime().UnixNano(), 10), nil
	}
}

// Header returns the first line written ahead of a bundle for token.
func (g *Guard) Header(token string) string {
	prefix := "//"
	if p := syntax.ProfileFor(g.language); len(p.LineComments) > 0 {
		prefix = p.LineComments[0]
	}
	return prefix + " " + headerTag + " " + token
}

// WriteIfStale regenerates outputPath from entryPath unless the artifact's
// header already carries the entry's current token. On any error the
// existing artifact is left as it was.
func (g *Guard) WriteIfStale(ctx context.Context, outputPath, entryPath string) (Outcome, error) {
	token, err := g.Token(entryPath)
	if err != nil {
		return Skipped, err
	}
	header := g.Header(token)

	if g.checkHeader && !g.force {
		if first, ok := readFirstLine(outputPath); ok && first == header {
			g.logger.Debug("Bundle is fresh", "output", outputPath, "token", token)
			return Skipped, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return Skipped, err
	}

	entryText, err := os.ReadFile(entryPath)
	if err != nil {
		return Skipped, entryError(entryPath, err)
	}
	bundle, err := g.render(ctx, string(entryText))
	if err != nil {
		return Skipped, err
	}

	content := bundle
	if g.checkHeader {
		content = header + "\n" + bundle
	}

	if g.atomic {
		err = writeAtomic(outputPath, []byte(content))
	} else {
		err = os.WriteFile(outputPath, []byte(content), 0o644)
	}
	if err != nil {
		return Skipped, fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	g.logger.Info("Wrote bundle",
		"output", outputPath,
		"bytes", len(content),
		"token", token,
		"forced", g.force,
	)
	return Written, nil
}

// readFirstLine returns the first line of path without its line ending.
func readFirstLine(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	line, err := bufio.NewReader(io.LimitReader(f, maxHeaderLen)).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", false
	}
	return strings.TrimRight(line, "\r\n"), true
}

// writeAtomic replaces path with data via a synced temporary file in the
// same directory.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Sync(); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0o644); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func entryError(path string, err error) error {
	if os.IsNotExist(err) {
		return errors.New(errors.EntryNotFound, fmt.Sprintf("entry file %s not found", path), err)
	}
	return fmt.Errorf("failed to read entry %s: %w", path, err)
}
