package constants

import "time"

// Session token lifetime. The client refresh timer is derived from it, so the
// server TOKEN_LIFETIME and the client --token-lifetime must agree.
const (
	DefaultTokenLifetime = time.Hour
	// TokenRefreshRatio is the fraction of the lifetime after which the client refreshes
	TokenRefreshRatio = 0.9
)

// Durable client storage keys
const (
	TokenCacheKey   = "@authdash/auth-token"
	PreLoginPathKey = "@authdash/pre-login-path"
)

// Client route paths
const (
	RouteRoot        = "/"
	RouteLogin       = "/login"
	RouteSSOCallback = "/sso/callback"
	RouteDashboard   = "/dashboard"

	// DefaultPreLoginPath is where to go after login when no private page asked for it
	DefaultPreLoginPath = RouteRoot
)

// Gin context keys
const (
	ContextUserKey = "user"
)

// Identity gate outcomes, used as metric labels
const (
	GateOutcomeMissingToken = "missing_token"
	GateOutcomeInvalidToken = "invalid_token"
	GateOutcomeUnknownUser  = "unknown_user"
	GateOutcomeError        = "error"
	GateOutcomeAllowed      = "allowed"
)

// RefreshInterval returns how often a token of the given lifetime is renewed
func RefreshInterval(lifetime time.Duration) time.Duration {
	return time.Duration(float64(lifetime) * TokenRefreshRatio)
}
