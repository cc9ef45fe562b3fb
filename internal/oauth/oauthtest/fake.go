// Package oauthtest provides an in-process fake of the GitHub OAuth and user APIs.
package oauthtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/authdash/internal/config"
)

// User is the profile served by the fake user endpoint
type User struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Email string `json:"email"`
}

// Server fakes https://github.com/login/oauth and https://api.github.com/user.
// Codes map to access tokens and access tokens map to users.
type Server struct {
	*httptest.Server

	ClientID     string
	ClientSecret string

	mu     sync.Mutex
	codes  map[string]string
	tokens map[string]User

	Exchanges atomic.Int32
	Profiles  atomic.Int32
}

// NewServer starts a fake provider. Call Close when done.
func NewServer(clientID, clientSecret string) *Server {
	s := &Server{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		codes:        make(map[string]string),
		tokens:       make(map[string]User),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", s.handleAccessToken)
	mux.HandleFunc("/user", s.handleUser)
	s.Server = httptest.NewServer(mux)
	return s
}

// AddCode registers code as exchangeable for a token owned by user
func (s *Server) AddCode(code, accessToken string, user User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = accessToken
	s.tokens[accessToken] = user
}

// Config returns provider settings pointing at the fake
func (s *Server) Config() config.GitHubOAuthConfig {
	return config.GitHubOAuthConfig{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		CallbackURL:  "http://localhost:3001/sso/callback",
		OAuthURL:     s.URL + "/login/oauth",
		APIUserURL:   s.URL + "/user",
		Scopes:       []string{"read:user"},
	}
}

func (s *Server) handleAccessToken(w http.ResponseWriter, r *http.Request) {
	s.Exchanges.Add(1)
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("client_id") != s.ClientID || r.PostForm.Get("client_secret") != s.ClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "incorrect_client_credentials"})
		return
	}

	s.mu.Lock()
	accessToken, ok := s.codes[r.PostForm.Get("code")]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_verification_code"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": accessToken,
		"token_type":   "bearer",
		"scope":        "read:user",
	})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	s.Profiles.Add(1)
	accessToken, ok := strings.CutPrefix(r.Header.Get("Authorization"), "token ")
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Requires authentication"})
		return
	}

	s.mu.Lock()
	user, ok := s.tokens[accessToken]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
