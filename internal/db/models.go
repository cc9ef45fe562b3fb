package db

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user for authentication
type User struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Password  *string   `json:"-" db:"password"` // Never expose password in JSON; NULL for SSO users
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	AccountID int64     `json:"account_id" db:"account_id"` // Provider account ID, 0 for local users
	IsAdmin   bool      `json:"is_admin" db:"is_admin"`
	IsSSO     bool      `json:"is_sso" db:"is_sso"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewSSOUser creates a new single sign-on User with a generated UUID
func NewSSOUser(accountID int64, username, email string) *User {
	now := time.Now()
	return &User{
		ID:        uuid.New().String(),
		Username:  username,
		Name:      username,
		Email:     email,
		AccountID: accountID,
		IsAdmin:   false,
		IsSSO:     true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
