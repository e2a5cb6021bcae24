// Package sqlite provides the SQLite-backed registry ledger.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/permasite/undernames/internal/platform/storage/sqlitemigrate"
	"github.com/permasite/undernames/internal/storage/integrity"
	"github.com/permasite/undernames/internal/storage/sqlite/migrations"
)

// Store persists the append-only event ledger in SQLite.
type Store struct {
	sqlDB    *sql.DB
	keyring  *integrity.Keyring
	rootName string
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite ledger store and applies embedded migrations.
// rootName is the namespace root the ledger belongs to; it scopes the
// signing key derivation.
func Open(path, rootName string, keyring *integrity.Keyring) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if strings.TrimSpace(rootName) == "" {
		return nil, fmt.Errorf("root name is required")
	}
	if keyring == nil {
		return nil, fmt.Errorf("ledger integrity keyring is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, keyring: keyring, rootName: rootName}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
