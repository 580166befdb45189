package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/br-silvano/moveit-next/internal/challenge"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS progress (
	scope      TEXT    NOT NULL,
	name       TEXT    NOT NULL,
	value      TEXT    NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (scope, name)
)`

// SQLite persists progress values in a local SQLite file.
type SQLite struct {
	sqlDB *sql.DB
}

// OpenSQLite opens (creating when needed) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serialises the independent key writes.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLite{sqlDB: sqlDB}, nil
}

// Store returns the persistence adapter for one scope.
func (s *SQLite) Store(scope string) challenge.Store {
	return scoped{scope: scope, backend: s}
}

// Ping checks the database handle.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// Close closes the SQLite handle.
func (s *SQLite) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLite) load(ctx context.Context, scope, key string) (string, bool, error) {
	if err := checkScopeKey(scope, key); err != nil {
		return "", false, err
	}

	var value string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT value FROM progress WHERE scope = ? AND name = ?`,
		scope, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select progress value: %w", err)
	}
	return value, true, nil
}

func (s *SQLite) save(ctx context.Context, scope, key, value string) error {
	if err := checkScopeKey(scope, key); err != nil {
		return err
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO progress (scope, name, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (scope, name) DO UPDATE SET
		   value = excluded.value,
		   updated_at = excluded.updated_at`,
		scope, key, value, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert progress value: %w", err)
	}
	return nil
}
