// Package session is the client side of authdash: token storage, the
// authorization flag, the cached profile, background refresh and the API
// request helper.
package session

// AuthState is the client's view of whether it holds a server-confirmed token
type AuthState int

const (
	// Unresolved means no status check has completed yet
	Unresolved AuthState = iota
	Authorized
	Unauthorized
)

func (s AuthState) String() string {
	switch s {
	case Authorized:
		return "authorized"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unresolved"
	}
}

// Resolved reports whether a status check has settled the state
func (s AuthState) Resolved() bool {
	return s != Unresolved
}
