package apipaths

// Single API surface paths. Used by server routes and by the session client.

const (
	Root = "/api"

	SSO        = "/api/sso"
	SSOVerify  = "/api/sso/verify"
	AuthVerify = "/api/auth/verify"
	Login      = "/api/login"
	Me         = "/api/me"
	Health     = "/api/health"
	Metrics    = "/metrics"
)

// Endpoint names relative to Root, as the session client addresses them
const (
	EndpointSSOVerify  = "sso/verify"
	EndpointAuthVerify = "auth/verify"
	EndpointLogin      = "login"
	EndpointMe         = "me"
)
