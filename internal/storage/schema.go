package storage

import (
	"context"
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createRegistryTables(tx); err != nil {
			return err
		}
		if err := createBuildsTable(tx); err != nil {
			return err
		}
		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Store schema initialized", "version", currentSchemaVersion)
		return nil
	})
}

// runMigrations brings an existing database up to currentSchemaVersion.
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Store schema is up to date", "version", version)
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("store schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	db.logger.Info("Running store migrations",
		"from_version", version,
		"to_version", currentSchemaVersion,
	)

	// Version 0 is a database file that never finished initialization.
	return db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createRegistryTables(tx); err != nil {
			return err
		}
		if err := createBuildsTable(tx); err != nil {
			return err
		}
		return setSchemaVersion(tx, currentSchemaVersion)
	})
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.conn.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createRegistryTables creates the tables holding one annotated registry.
// registry_meta has at most one row.
func createRegistryTables(tx *sql.Tx) error {
	statements := []struct {
		name string
		sql  string
	}{
		{"registry_meta", `
			CREATE TABLE IF NOT EXISTS registry_meta (
				id INTEGER PRIMARY KEY CHECK(id = 1),
				language TEXT NOT NULL,
				built INTEGER NOT NULL,
				build_id TEXT,
				updated_at TEXT NOT NULL
			)`},
		{"modules", `
			CREATE TABLE IF NOT EXISTS modules (
				name TEXT PRIMARY KEY,
				path TEXT NOT NULL,
				body BLOB NOT NULL,
				compressed INTEGER NOT NULL CHECK(compressed IN (0, 1))
			)`},
		{"module_types", `
			CREATE TABLE IF NOT EXISTS module_types (
				type_id TEXT PRIMARY KEY,
				module_name TEXT NOT NULL,
				FOREIGN KEY (module_name) REFERENCES modules(name) ON DELETE CASCADE
			)`},
		{"module_imports", `
			CREATE TABLE IF NOT EXISTS module_imports (
				module_name TEXT NOT NULL,
				ordinal INTEGER NOT NULL,
				directive TEXT NOT NULL,
				PRIMARY KEY (module_name, ordinal),
				FOREIGN KEY (module_name) REFERENCES modules(name) ON DELETE CASCADE
			)`},
		{"module_deps", `
			CREATE TABLE IF NOT EXISTS module_deps (
				module_name TEXT NOT NULL,
				dep_name TEXT NOT NULL,
				PRIMARY KEY (module_name, dep_name),
				FOREIGN KEY (module_name) REFERENCES modules(name) ON DELETE CASCADE
			)`},
	}
	for _, st := range statements {
		if _, err := tx.Exec(st.sql); err != nil {
			return fmt.Errorf("failed to create %s table: %w", st.name, err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_module_types_module ON module_types(module_name)",
		"CREATE INDEX IF NOT EXISTS idx_module_deps_dep ON module_deps(dep_name)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// createBuildsTable creates the history of dependency graph builds.
func createBuildsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS builds (
			id TEXT PRIMARY KEY,
			strategy TEXT NOT NULL,
			language TEXT NOT NULL,
			module_count INTEGER NOT NULL,
			edge_count INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create builds table: %w", err)
	}
	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_builds_created_at ON builds(created_at)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}
