package domain

import (
	"context"

	"github.com/authdash/internal/db"
)

// ============================================================================
// Primary Ports (Application Use Cases)
// ============================================================================

// AuthService composes token issuance, the OAuth delegate and the user
// directory into the login flows
type AuthService interface {
	AuthorizeURL() string
	VerifySSOCode(ctx context.Context, code string) (*SessionResponse, error)
	VerifyToken(ctx context.Context, token string) (*SessionResponse, error)
	// Authenticate resolves a bearer token to the user it was issued for
	Authenticate(ctx context.Context, token string) (*UserDTO, error)
	Login(ctx context.Context, req LoginRequest) (*SessionResponse, error)
}

// UserDirectory owns user records
type UserDirectory interface {
	FindByAccountID(ctx context.Context, accountID int64) (*db.User, error)
	FindByUsername(ctx context.Context, username string) (*db.User, error)
	CreateSSOUser(ctx context.Context, req CreateSSOUserRequest) (*db.User, error)
	FindOrCreateSSOUser(ctx context.Context, profile ProviderProfile) (*db.User, bool, error)
}

// ============================================================================
// Secondary Ports (Infrastructure)
// ============================================================================

// TokenIssuer signs and validates session tokens
type TokenIssuer interface {
	Issue(username string) (string, error)
	Verify(token string) (string, error)
}

// OAuthProvider delegates identity to a third-party provider
type OAuthProvider interface {
	AuthorizeURL() string
	ExchangeCode(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (*ProviderProfile, error)
}
