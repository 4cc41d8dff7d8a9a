package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const defaultDBName = "activities.db"

type Config struct {
	Workspace string
	// Path is the database file; relative paths are resolved against Workspace.
	Path string
}

func dbPath(cfg Config) string {
	workspace := cfg.Workspace
	if workspace == "" {
		workspace = "."
	}
	name := cfg.Path
	if name == "" {
		name = defaultDBName
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(workspace, name)
}

// EnsureDir creates the directory holding the database if missing.
func EnsureDir(cfg Config) (string, error) {
	dir := filepath.Dir(dbPath(cfg))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Open opens the SQLite database. Requests share the handle, so writes wait on
// the lock instead of failing with SQLITE_BUSY.
func Open(cfg Config) (*sql.DB, error) {
	if _, err := EnsureDir(cfg); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath(cfg))
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Path returns the resolved db path.
func Path(cfg Config) string {
	return dbPath(cfg)
}
