package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
	dbPath string
}

// Init initializes the database connection and runs migrations
func Init(dbPath string) (*DB, error) {
	// Ensure data directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	sqlDB.SetMaxOpenConns(1)

	db := &DB{sqlDB, dbPath}

	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// GetDBPath returns the database file path
func (db *DB) GetDBPath() string {
	return db.dbPath
}

// isUniqueConstraintError checks if error is a unique index violation
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "unique constraint failed") ||
		strings.Contains(errStr, "constraint failed: unique")
}

// IsUniqueConstraintError reports whether err came from a unique index
func IsUniqueConstraintError(err error) bool {
	return isUniqueConstraintError(err)
}

const userColumns = "id, username, password, name, email, account_id, is_admin, is_sso, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	user := &User{}
	var password sql.NullString
	err := row.Scan(&user.ID, &user.Username, &password, &user.Name, &user.Email,
		&user.AccountID, &user.IsAdmin, &user.IsSSO, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if password.Valid {
		user.Password = &password.String
	}
	return user, nil
}

// CreateUser creates a new user
func (db *DB) CreateUser(ctx context.Context, user *User) error {
	var password interface{}
	if user.Password != nil {
		password = *user.Password
	}

	_, err := db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Username, password, user.Name, user.Email,
		user.AccountID, user.IsAdmin, user.IsSSO, user.CreatedAt, time.Now(),
	)
	return err
}

// GetUserByAccountID retrieves a user by provider account ID.
// Returns sql.ErrNoRows when absent.
func (db *DB) GetUserByAccountID(ctx context.Context, accountID int64, isSSO bool) (*User, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE account_id = ? AND is_sso = ? LIMIT 1",
		accountID, isSSO,
	)
	return scanUser(row)
}

// GetUserByUsername retrieves the oldest user with the given username.
// Usernames are not unique across SSO and local accounts.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = ? ORDER BY created_at ASC LIMIT 1",
		username,
	)
	return scanUser(row)
}

// GetUserByID retrieves a user by ID
func (db *DB) GetUserByID(ctx context.Context, id string) (*User, error) {
	row := db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// CountUsers returns the number of user records
func (db *DB) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// DeleteUser deletes a user
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	return err
}
