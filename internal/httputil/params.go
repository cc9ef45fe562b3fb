package httputil

import (
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(req *http.Request) (string, bool) {
	auth := req.Header.Get("Authorization")
	if len(auth) < len(bearerPrefix) || !strings.EqualFold(auth[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	tok := strings.TrimSpace(auth[len(bearerPrefix):])
	if tok == "" {
		return "", false
	}
	return tok, true
}

// SetBearerToken sets the Authorization header for tok
func SetBearerToken(req *http.Request, tok string) {
	req.Header.Set("Authorization", bearerPrefix+tok)
}
