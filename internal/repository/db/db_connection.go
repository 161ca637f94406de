package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens/creates a SQLite DB file and ensures tables exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// SQLite serializes writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const sqliteDriverName = "sqlite"

var pragmas = []string{
	"PRAGMA journal_mode = WAL;",
	"PRAGMA foreign_keys = ON;",
	"PRAGMA busy_timeout = 5000;",
}

const schemaCommandExecutions = `
CREATE TABLE IF NOT EXISTS command_executions (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    command TEXT NOT NULL,
    zone INTEGER NOT NULL,
    opcode INTEGER NOT NULL,
    status_code INTEGER NOT NULL,
    outcome TEXT NOT NULL,
    reason TEXT,
    kind TEXT,
    elapsed_ms REAL NOT NULL,
    source TEXT
);
`

const indexCommandExecutions = `
CREATE INDEX IF NOT EXISTS idx_command_executions_occurred_at ON command_executions (occurred_at);
`

const schemaZoneStatus = `
CREATE TABLE IF NOT EXISTS zone_status (
    zone INTEGER PRIMARY KEY,
    last_command TEXT NOT NULL,
    last_status_code INTEGER NOT NULL,
    last_outcome TEXT NOT NULL,
    last_reason TEXT,
    last_elapsed_ms REAL NOT NULL,
    failures INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaOperators = `
CREATE TABLE IF NOT EXISTS operators (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL
);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaCommandExecutions,
		indexCommandExecutions,
		schemaZoneStatus,
		schemaOperators,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
