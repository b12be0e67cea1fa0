package guard

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onefile/internal/errors"
	"onefile/internal/syntax"
	"onefile/internal/testutil"
)

type countingRenderer struct {
	calls int
	err   error
}

func (c *countingRenderer) render(_ context.Context, entry string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return "bundle of " + strings.TrimSpace(entry) + "\n", nil
}

func setup(t *testing.T) (dir, entry, output string) {
	t.Helper()
	dir = t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"main.txt": "v1\n"})
	entry = filepath.Join(dir, "main.txt")
	touch(t, entry, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return dir, entry, filepath.Join(dir, "out", "bundle.txt")
}

func touch(t *testing.T, path string, at time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, at, at))
}

func TestWriteIfStale_CacheCorrectness(t *testing.T) {
	_, entry, output := setup(t)
	r := &countingRenderer{}
	g := New(r.render)
	ctx := context.Background()

	outcome, err := g.WriteIfStale(ctx, output, entry)
	require.NoError(t, err)
	assert.Equal(t, Written, outcome)
	assert.Equal(t, 1, r.calls)

	token, err := g.Token(entry)
	require.NoError(t, err)
	assert.Equal(t, g.Header(token)+"\nbundle of v1\n", testutil.ReadFile(t, output))
	before, err := os.Stat(output)
	require.NoError(t, err)

	outcome, err = g.WriteIfStale(ctx, output, entry)
	require.NoError(t, err)
	assert.Equal(t, Skipped, outcome)
	assert.Equal(t, 1, r.calls, "fresh artifact must not be re-rendered")
	after, err := os.Stat(output)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())

	require.NoError(t, os.WriteFile(entry, []byte("v2\n"), 0o644))
	touch(t, entry, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))

	outcome, err = g.WriteIfStale(ctx, output, entry)
	require.NoError(t, err)
	assert.Equal(t, Written, outcome)
	assert.Equal(t, 2, r.calls)

	newToken, err := g.Token(entry)
	require.NoError(t, err)
	assert.NotEqual(t, token, newToken)
	assert.Equal(t, g.Header(newToken)+"\nbundle of v2\n", testutil.ReadFile(t, output))
}

func TestWriteIfStale_Force(t *testing.T) {
	_, entry, output := setup(t)
	r := &countingRenderer{}
	ctx := context.Background()

	_, err := New(r.render).WriteIfStale(ctx, output, entry)
	require.NoError(t, err)

	outcome, err := New(r.render, WithForce(true)).WriteIfStale(ctx, output, entry)
	require.NoError(t, err)
	assert.Equal(t, Written, outcome)
	assert.Equal(t, 2, r.calls)
}

func TestWriteIfStale_NoHeader(t *testing.T) {
	_, entry, output := setup(t)
	r := &countingRenderer{}
	g := New(r.render, WithHeader(false))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		outcome, err := g.WriteIfStale(ctx, output, entry)
		require.NoError(t, err)
		assert.Equal(t, Written, outcome)
	}
	assert.Equal(t, 2, r.calls)
	assert.Equal(t, "bundle of v1\n", testutil.ReadFile(t, output))
}

func TestWriteIfStale_ErrorLeavesArtifact(t *testing.T) {
	_, entry, output := setup(t)
	r := &countingRenderer{}
	ctx := context.Background()

	_, err := New(r.render).WriteIfStale(ctx, output, entry)
	require.NoError(t, err)
	previous := testutil.ReadFile(t, output)

	r.err = errors.Newf(errors.InvalidSource, "cannot parse entry")
	outcome, err := New(r.render, WithForce(true)).WriteIfStale(ctx, output, entry)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.InvalidSource))
	assert.Equal(t, Skipped, outcome)
	assert.Equal(t, previous, testutil.ReadFile(t, output))

	entries, err := os.ReadDir(filepath.Dir(output))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files may remain")
}

func TestWriteIfStale_MissingEntry(t *testing.T) {
	dir := t.TempDir()
	r := &countingRenderer{}

	_, err := New(r.render).WriteIfStale(context.Background(), filepath.Join(dir, "out.txt"), filepath.Join(dir, "nope.txt"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.EntryNotFound))
	assert.Zero(t, r.calls)
	_, statErr := os.Stat(filepath.Join(dir, "out.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteIfStale_HashTokens(t *testing.T) {
	_, entry, output := setup(t)
	r := &countingRenderer{}
	g := New(r.render, WithTokenMode(TokenHash))
	ctx := context.Background()

	_, err := g.WriteIfStale(ctx, output, entry)
	require.NoError(t, err)

	touch(t, entry, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	outcome, err := g.WriteIfStale(ctx, output, entry)
	require.NoError(t, err)
	assert.Equal(t, Skipped, outcome, "mtime alone does not change a content hash")

	require.NoError(t, os.WriteFile(entry, []byte("v3\n"), 0o644))
	outcome, err = g.WriteIfStale(ctx, output, entry)
	require.NoError(t, err)
	assert.Equal(t, Written, outcome)

	token, err := g.Token(entry)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "sha256:"))
}

func TestWriteIfStale_InPlace(t *testing.T) {
	_, entry, output := setup(t)
	r := &countingRenderer{}
	require.NoError(t, os.MkdirAll(filepath.Dir(output), 0o755))
	require.NoError(t, os.WriteFile(output, []byte("a much longer stale artifact body\nwith lines\n"), 0o644))

	outcome, err := New(r.render, WithAtomic(false)).WriteIfStale(context.Background(), output, entry)
	require.NoError(t, err)
	assert.Equal(t, Written, outcome)
	assert.True(t, strings.HasSuffix(testutil.ReadFile(t, output), "\nbundle of v1\n"))
}

func TestHeader(t *testing.T) {
	r := &countingRenderer{}
	assert.Equal(t, "// onefile: mtime:5", New(r.render, WithLanguage(syntax.Go)).Header("mtime:5"))
	assert.Equal(t, "# onefile: mtime:5", New(r.render, WithLanguage(syntax.Python)).Header("mtime:5"))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "skipped", Skipped.String())
	assert.Equal(t, "written", Written.String())
}
