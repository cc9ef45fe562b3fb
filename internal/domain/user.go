package domain

import "github.com/authdash/internal/db"

// UserDTO is the client-safe projection of a user record
type UserDTO struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AccountID int64  `json:"accountID"`
	IsAdmin   bool   `json:"isAdmin"`
	Email     string `json:"email"`
}

// NewUserDTO builds the DTO sent to clients. It has no side effects.
func NewUserDTO(user *db.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Username:  user.Username,
		AccountID: user.AccountID,
		IsAdmin:   user.IsAdmin,
		Email:     user.Email,
	}
}

// SessionResponse is returned by every flow that issues a token
type SessionResponse struct {
	Profile UserDTO `json:"profile"`
	Token   string  `json:"token"`
}

// ProviderProfile is the subset of the OAuth provider's user profile we keep
type ProviderProfile struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Email string `json:"email"`
}

// CreateSSOUserRequest carries the fields of a first-time SSO user
type CreateSSOUserRequest struct {
	AccountID int64
	Username  string
	Email     string
}

// SSOVerifyRequest is the body of POST /api/sso/verify
type SSOVerifyRequest struct {
	Code string `json:"code"`
}

// TokenVerifyRequest is the body of POST /api/auth/verify
type TokenVerifyRequest struct {
	Token string `json:"token"`
}

// LoginRequest is the body of POST /api/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
