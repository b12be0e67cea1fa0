package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"onefile/internal/errors"
	"onefile/internal/registry"
	"onefile/internal/syntax"
)

// BuildInfo describes one run of the dependency graph builder.
type BuildInfo struct {
	ID          string        `json:"id"`
	Strategy    string        `json:"strategy"`
	Language    string        `json:"language"`
	ModuleCount int           `json:"moduleCount"`
	EdgeCount   int           `json:"edgeCount"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"createdAt"`
}

var (
	encoderOnce = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	decoderOnce = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil)
	})
)

func compressBody(body string) ([]byte, error) {
	enc, err := encoderOnce()
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll([]byte(body), nil), nil
}

func decompressBody(data []byte) (string, error) {
	dec, err := decoderOnce()
	if err != nil {
		return "", err
	}
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// SetCompression controls whether module bodies written by SaveRegistry are
// zstd-compressed. Compression is on by default. Stored rows record their
// own encoding, so reads are unaffected.
func (db *DB) SetCompression(on bool) {
	db.uncompressed = !on
}

// SaveRegistry replaces the stored registry with reg and, when reg is Ready,
// appends a builds row described by info. Missing ID, Language, ModuleCount
// and CreatedAt fields of info are filled in. Everything is written in one
// transaction.
func (db *DB) SaveRegistry(ctx context.Context, reg *registry.Registry, info BuildInfo) (BuildInfo, error) {
	if info.ID == "" {
		info.ID = uuid.New().String()
	}
	if info.Language == "" {
		info.Language = string(reg.Language())
	}
	if info.ModuleCount == 0 {
		info.ModuleCount = reg.Len()
	}
	if info.EdgeCount == 0 {
		info.EdgeCount = reg.DependencyCount()
	}
	if info.CreatedAt.IsZero() {
		info.CreatedAt = time.Now().UTC()
	}

	modules := reg.Modules()
	bodies := make([][]byte, len(modules))
	for i, m := range modules {
		if db.uncompressed {
			bodies[i] = []byte(m.Body)
			continue
		}
		data, err := compressBody(m.Body)
		if err != nil {
			return info, errors.New(errors.StoreUnavailable, "compress module body", err)
		}
		bodies[i] = data
	}
	compressed := 1
	if db.uncompressed {
		compressed = 0
	}

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"module_deps", "module_imports", "module_types", "modules", "registry_meta"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		var buildID interface{}
		if reg.Ready() {
			buildID = info.ID
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO registry_meta (id, language, built, build_id, updated_at) VALUES (1, ?, ?, ?, ?)",
			string(reg.Language()), boolToInt(reg.Ready()), buildID, info.CreatedAt.Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("failed to write registry_meta: %w", err)
		}

		for i, m := range modules {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO modules (name, path, body, compressed) VALUES (?, ?, ?, ?)",
				m.Name, m.Path, bodies[i], compressed,
			); err != nil {
				return fmt.Errorf("failed to write module %s: %w", m.Name, err)
			}
			for _, id := range m.TypeNames {
				if _, err := tx.ExecContext(ctx,
					"INSERT OR IGNORE INTO module_types (type_id, module_name) VALUES (?, ?)",
					id, m.Name,
				); err != nil {
					return fmt.Errorf("failed to write type %s: %w", id, err)
				}
			}
			for ordinal, directive := range m.Imports {
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO module_imports (module_name, ordinal, directive) VALUES (?, ?, ?)",
					m.Name, ordinal, directive,
				); err != nil {
					return fmt.Errorf("failed to write import of %s: %w", m.Name, err)
				}
			}
			for _, dep := range m.Dependencies {
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO module_deps (module_name, dep_name) VALUES (?, ?)",
					m.Name, dep,
				); err != nil {
					return fmt.Errorf("failed to write dependency of %s: %w", m.Name, err)
				}
			}
		}

		if !reg.Ready() {
			return nil
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO builds (id, strategy, language, module_count, edge_count, duration_ms, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			info.ID, info.Strategy, info.Language, info.ModuleCount, info.EdgeCount,
			info.Duration.Milliseconds(), info.CreatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to write build: %w", err)
		}
		return nil
	})
	if err != nil {
		return info, errors.New(errors.StoreUnavailable, "save registry", err)
	}

	db.logger.Info("Saved registry",
		"modules", len(modules),
		"built", reg.Ready(),
		"build_id", info.ID,
	)
	return info, nil
}

// LoadRegistry rebuilds the stored registry. A store that never received a
// registry fails with STORE_UNAVAILABLE.
func (db *DB) LoadRegistry(ctx context.Context) (*registry.Registry, error) {
	var langName string
	var built int
	err := db.conn.QueryRowContext(ctx, "SELECT language, built FROM registry_meta WHERE id = 1").Scan(&langName, &built)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.StoreUnavailable, "store %s holds no registry", db.dbPath)
	}
	if err != nil {
		return nil, errors.New(errors.StoreUnavailable, "read registry metadata", err)
	}
	lang, err := syntax.ParseLanguage(langName)
	if err != nil {
		return nil, errors.New(errors.StoreUnavailable, "stored registry language", err)
	}

	modules, byName, err := db.loadModules(ctx)
	if err != nil {
		return nil, errors.New(errors.StoreUnavailable, "read modules", err)
	}

	if err := db.loadChildren(ctx, "SELECT module_name, type_id FROM module_types ORDER BY rowid", byName,
		func(m *registry.Module, v string) { m.TypeNames = append(m.TypeNames, v) }); err != nil {
		return nil, errors.New(errors.StoreUnavailable, "read types", err)
	}
	if err := db.loadChildren(ctx, "SELECT module_name, directive FROM module_imports ORDER BY module_name, ordinal", byName,
		func(m *registry.Module, v string) { m.Imports = append(m.Imports, v) }); err != nil {
		return nil, errors.New(errors.StoreUnavailable, "read imports", err)
	}
	if err := db.loadChildren(ctx, "SELECT module_name, dep_name FROM module_deps ORDER BY module_name, dep_name", byName,
		func(m *registry.Module, v string) { m.Dependencies = append(m.Dependencies, v) }); err != nil {
		return nil, errors.New(errors.StoreUnavailable, "read dependencies", err)
	}

	db.logger.Debug("Loaded registry", "modules", len(modules), "built", built == 1)
	if built == 1 {
		return registry.NewBuilt(lang, modules)
	}
	return registry.New(lang, modules)
}

func (db *DB) loadModules(ctx context.Context) ([]*registry.Module, map[string]*registry.Module, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT name, path, body, compressed FROM modules ORDER BY name")
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var modules []*registry.Module
	byName := make(map[string]*registry.Module)
	for rows.Next() {
		var (
			name, path string
			body       []byte
			compressed int
		)
		if err := rows.Scan(&name, &path, &body, &compressed); err != nil {
			return nil, nil, err
		}
		text := string(body)
		if compressed == 1 {
			if text, err = decompressBody(body); err != nil {
				return nil, nil, fmt.Errorf("module %s: %w", name, err)
			}
		}
		m := &registry.Module{Name: name, Path: path, Body: text}
		modules = append(modules, m)
		byName[name] = m
	}
	return modules, byName, rows.Err()
}

func (db *DB) loadChildren(ctx context.Context, query string, byName map[string]*registry.Module, add func(*registry.Module, string)) error {
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return err
		}
		if m, ok := byName[name]; ok {
			add(m, value)
		}
	}
	return rows.Err()
}

// LatestBuild returns the most recent build, or nil when none was recorded.
func (db *DB) LatestBuild(ctx context.Context) (*BuildInfo, error) {
	var (
		info       BuildInfo
		durationMs int64
		createdAt  string
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, strategy, language, module_count, edge_count, duration_ms, created_at
		FROM builds
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`).Scan(&info.ID, &info.Strategy, &info.Language, &info.ModuleCount, &info.EdgeCount, &durationMs, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New(errors.StoreUnavailable, "read latest build", err)
	}
	info.Duration = time.Duration(durationMs) * time.Millisecond
	if info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, errors.New(errors.StoreUnavailable, "parse build time", err)
	}
	return &info, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
