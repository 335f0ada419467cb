// Package store is the persistent tabular index of projects, assets, and
// dependency edges. It owns the on-disk SQLite database exclusively; every
// other component mutates the index only through this package's API.
//
// Single-writer semantics are enforced two ways, mirroring the pattern in
// theRebelliousNerd/codenerd's internal/store.LocalStore: the *sql.DB is
// opened with a max of one open connection and WAL journaling, and
// multi-statement read-modify-write sequences additionally take a
// process-wide mutex so a batch upsert or a dependency replace is never
// interleaved with another writer.
package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	aerrors "github.com/standardbeagle/assetlib/internal/errors"
	"github.com/standardbeagle/assetlib/internal/logging"
)

var log = logging.New("store")

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	root_path TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	last_scan_time INTEGER NOT NULL DEFAULT 0,
	file_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS assets (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	absolute_path TEXT NOT NULL,
	relative_path TEXT NOT NULL,
	file_name TEXT NOT NULL,
	extension TEXT NOT NULL,
	asset_type TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	modified_time INTEGER NOT NULL,
	content_hash INTEGER NOT NULL,
	guid TEXT NOT NULL DEFAULT '',
	thumbnail_path TEXT NOT NULL DEFAULT '',
	material_json TEXT NOT NULL DEFAULT '',
	model_json TEXT NOT NULL DEFAULT '',
	deleted_at INTEGER NOT NULL DEFAULT 0,
	UNIQUE(project_id, absolute_path)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_assets_guid ON assets(project_id, guid) WHERE guid != '';
CREATE INDEX IF NOT EXISTS idx_assets_project_relpath ON assets(project_id, relative_path);
CREATE INDEX IF NOT EXISTS idx_assets_project_type ON assets(project_id, asset_type);

CREATE TABLE IF NOT EXISTS asset_references (
	asset_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	target_guid TEXT NOT NULL DEFAULT '',
	target_path TEXT NOT NULL DEFAULT '',
	slot_name TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_asset_references_asset ON asset_references(asset_id);

CREATE TABLE IF NOT EXISTS dependencies (
	source_asset_id TEXT NOT NULL,
	target_asset_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	slot_name TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_dependencies_source ON dependencies(source_asset_id);
CREATE INDEX IF NOT EXISTS idx_dependencies_target ON dependencies(target_asset_id);
`

// Store wraps the SQLite connection and the write mutex.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates (or reuses) the database file at path, applying schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, aerrors.NewIoError("mkdir", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, aerrors.NewStoreError("open", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		log.Warnf("set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.Warnf("set journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		log.Warnf("set foreign_keys: %v", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, aerrors.NewStoreError("create_schema", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return aerrors.NewStoreError(op, err)
}
