package db

import (
	"log/slog"
	"strings"
)

// migrations are applied in order on every start; each statement is idempotent
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		password TEXT,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		account_id INTEGER NOT NULL DEFAULT 0,
		is_admin INTEGER NOT NULL DEFAULT 0,
		is_sso INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`,
	// One SSO record per provider account, even under concurrent first logins
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_sso_account ON users(account_id) WHERE is_sso = 1`,
}

// migrate runs database migrations
func (db *DB) migrate() error {
	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			// Ignore error if column already exists
			if !isDuplicateColumnError(err) {
				slog.Error("Migration failed", "index", i, "error", err)
				return err
			}
		}
	}
	slog.Debug("Database migrations applied", "count", len(migrations), "path", db.dbPath)
	return nil
}

// isDuplicateColumnError checks if error is about duplicate column
func isDuplicateColumnError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "duplicate column name") ||
		strings.Contains(errStr, "already exists")
}
