package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onefile/internal/errors"
	"onefile/internal/registry"
	"onefile/internal/slogutil"
	"onefile/internal/syntax"
)

func setupTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir, slogutil.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, dir
}

func builtRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.NewBuilt(syntax.Go, []*registry.Module{
		{
			Name:      "acl/dsu.go",
			Path:      "/lib/acl/dsu.go",
			TypeNames: []string{"acl.Dsu", "acl.NewDsu"},
			Imports:   []string{`import "sort"`},
			Body:      "type Dsu struct{ parent []int }\n\nfunc NewDsu(n int) *Dsu { return &Dsu{parent: make([]int, n)} }",
		},
		{
			Name:         "acl/mst.go",
			Path:         "/lib/acl/mst.go",
			TypeNames:    []string{"acl.Mst"},
			Imports:      []string{`import "sort"`, `import "math"`},
			Body:         "func Mst(n int) int { d := NewDsu(n); _ = d; return int(math.Sqrt(4)) }",
			Dependencies: []string{"acl/dsu.go"},
		},
	})
	require.NoError(t, err)
	return reg
}

func TestDatabaseInitialization(t *testing.T) {
	db, dir := setupTestDB(t)

	_, err := os.Stat(filepath.Join(dir, DBFileName))
	require.NoError(t, err, "database file should exist")
	assert.Equal(t, filepath.Join(dir, DBFileName), db.Path())

	version, err := db.getSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}

func TestReopenRunsMigrations(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(dir, nil)
	require.NoError(t, err)
	defer db.Close()

	version, err := db.getSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, nil)
	require.NoError(t, err)
	_, err = db.conn.Exec("UPDATE schema_version SET version = ?", currentSchemaVersion+1)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(dir, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.StoreUnavailable))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, compress := range []bool{true, false} {
		name := "compressed"
		if !compress {
			name = "plain"
		}
		t.Run(name, func(t *testing.T) {
			db, _ := setupTestDB(t)
			db.SetCompression(compress)
			ctx := context.Background()
			reg := builtRegistry(t)

			info, err := db.SaveRegistry(ctx, reg, BuildInfo{Strategy: "semantic", Duration: 1500 * time.Millisecond})
			require.NoError(t, err)
			assert.NotEmpty(t, info.ID)
			assert.Equal(t, "go", info.Language)
			assert.Equal(t, 2, info.ModuleCount)
			assert.Equal(t, 1, info.EdgeCount)

			loaded, err := db.LoadRegistry(ctx)
			require.NoError(t, err)
			assert.True(t, loaded.Ready())
			assert.Equal(t, syntax.Go, loaded.Language())

			if diff := cmp.Diff(reg.Modules(), loaded.Modules(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
			owner, ok := loaded.Owner("acl.NewDsu")
			require.True(t, ok)
			assert.Equal(t, "acl/dsu.go", owner)
		})
	}
}

func TestBodiesAreCompressed(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	_, err := db.SaveRegistry(ctx, builtRegistry(t), BuildInfo{Strategy: "name"})
	require.NoError(t, err)

	var body []byte
	var compressed int
	err = db.conn.QueryRow("SELECT body, compressed FROM modules WHERE name = ?", "acl/dsu.go").Scan(&body, &compressed)
	require.NoError(t, err)
	assert.Equal(t, 1, compressed)
	// Small bodies may be stored as raw zstd blocks, so only the frame is checked.
	require.GreaterOrEqual(t, len(body), 4)
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, body[:4], "zstd frame magic")

	text, err := decompressBody(body)
	require.NoError(t, err)
	assert.Contains(t, text, "type Dsu struct")
}

func TestCompressBody_RepetitiveBodyShrinks(t *testing.T) {
	body := strings.Repeat("func (d *Dsu) Leader(a int) int { return d.parent[a] }\n", 200)

	data, err := compressBody(body)
	require.NoError(t, err)
	assert.Less(t, len(data), len(body)/4)

	text, err := decompressBody(data)
	require.NoError(t, err)
	assert.Equal(t, body, text)
}

func TestSaveReplacesPreviousRegistry(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	_, err := db.SaveRegistry(ctx, builtRegistry(t), BuildInfo{Strategy: "semantic"})
	require.NoError(t, err)

	smaller, err := registry.New(syntax.Go, []*registry.Module{
		{Name: "only.go", TypeNames: []string{"Only"}, Body: "type Only int"},
	})
	require.NoError(t, err)
	_, err = db.SaveRegistry(ctx, smaller, BuildInfo{})
	require.NoError(t, err)

	loaded, err := db.LoadRegistry(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"only.go"}, loaded.Names())
	assert.False(t, loaded.Ready(), "unbuilt registry must load unbuilt")
}

func TestLoadEmptyStore(t *testing.T) {
	db, _ := setupTestDB(t)
	_, err := db.LoadRegistry(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.StoreUnavailable))
}

func TestLatestBuild(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	none, err := db.LatestBuild(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err = db.SaveRegistry(ctx, builtRegistry(t), BuildInfo{Strategy: "name", CreatedAt: base})
	require.NoError(t, err)
	second, err := db.SaveRegistry(ctx, builtRegistry(t), BuildInfo{
		Strategy:  "semantic",
		Duration:  250 * time.Millisecond,
		CreatedAt: base.Add(time.Minute),
	})
	require.NoError(t, err)

	latest, err := db.LatestBuild(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, "semantic", latest.Strategy)
	assert.Equal(t, 250*time.Millisecond, latest.Duration)
	assert.True(t, latest.CreatedAt.Equal(base.Add(time.Minute)))

	var count int
	require.NoError(t, db.conn.QueryRow("SELECT COUNT(*) FROM builds").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestWithTxRollsBack(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO modules (name, path, body, compressed) VALUES ('x', '', x'00', 0)"); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	var count int
	require.NoError(t, db.conn.QueryRow("SELECT COUNT(*) FROM modules").Scan(&count))
	assert.Zero(t, count)
}
