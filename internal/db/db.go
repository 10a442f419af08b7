package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyesung/opsbundle/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Init initializes the SQLite database at baseDir/opsbundle.db.
// The baseDir parameter allows tests to use t.TempDir().
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Exports land next to the database by default
	exportsDir := filepath.Join(baseDir, "exports")
	if err := os.MkdirAll(exportsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	_ = os.Chmod(exportsDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, "opsbundle.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS bundles (
		  dataset          TEXT NOT NULL,
		  id               TEXT NOT NULL,
		  part             TEXT NOT NULL DEFAULT '',
		  bundle_name      TEXT NOT NULL,
		  command_text     TEXT NOT NULL DEFAULT '',
		  description      TEXT NOT NULL DEFAULT '',
		  keywords_json    TEXT,
		  expected_outcome TEXT NOT NULL DEFAULT '',
		  interpretation   TEXT NOT NULL DEFAULT '',
		  updated_date     TEXT NOT NULL DEFAULT '',
		  todo             TEXT NOT NULL DEFAULT '',
		  created_at       INTEGER NOT NULL,
		  updated_at       INTEGER NOT NULL,
		  PRIMARY KEY (dataset, id)
		);

		CREATE INDEX IF NOT EXISTS idx_bundles_dataset_updated_date
		ON bundles(dataset, updated_date DESC, created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_bundles_dataset_created
		ON bundles(dataset, created_at);

		CREATE TABLE IF NOT EXISTS memos (
		  dataset        TEXT NOT NULL,
		  bundle_id      TEXT NOT NULL,
		  command_id     INTEGER NOT NULL,
		  command_text   TEXT NOT NULL DEFAULT '',
		  description    TEXT NOT NULL DEFAULT '',
		  memo_text      TEXT NOT NULL DEFAULT '',
		  reference_link TEXT NOT NULL DEFAULT '',
		  PRIMARY KEY (dataset, bundle_id, command_id)
		);

		CREATE TABLE IF NOT EXISTS links (
		  dataset     TEXT NOT NULL,
		  id          TEXT NOT NULL,
		  bundle_id   TEXT NOT NULL DEFAULT '',
		  command_id  INTEGER NOT NULL DEFAULT 0,
		  url         TEXT NOT NULL,
		  description TEXT NOT NULL DEFAULT '',
		  tags_json   TEXT,
		  created_at  INTEGER NOT NULL,
		  updated_at  INTEGER NOT NULL,
		  PRIMARY KEY (dataset, id)
		);

		CREATE INDEX IF NOT EXISTS idx_links_dataset_bundle
		ON links(dataset, bundle_id);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
