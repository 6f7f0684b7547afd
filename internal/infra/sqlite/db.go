package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tests (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		created_at INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS attempts (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		test_id TEXT NOT NULL,
		answers TEXT NOT NULL,
		score INTEGER NOT NULL CHECK (score >= 0),
		total_marks INTEGER NOT NULL,
		time_taken_seconds INTEGER NOT NULL CHECK (time_taken_seconds >= 0),
		accuracy_percent REAL NOT NULL CHECK (accuracy_percent >= 0 AND accuracy_percent <= 100),
		submitted_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS attempts_user_test_idx ON attempts (user_id, test_id, submitted_at)`,
	`CREATE INDEX IF NOT EXISTS attempts_test_idx ON attempts (test_id)`,
}

// Open connects to the database file at path, creating its directory and
// the schema when missing. ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*sqlx.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	// SQLite has a single writer; one connection also keeps ":memory:" shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initialize schema: %w", err)
		}
	}
	return db, nil
}
