package oauth_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/authdash/internal/config"
	"github.com/authdash/internal/domain"
	"github.com/authdash/internal/oauth"
	"github.com/authdash/internal/oauth/oauthtest"
)

func TestAuthorizeURL(t *testing.T) {
	tests := []struct {
		name       string
		oauthURL   string
		wantPrefix string
	}{
		{"github.com default", "", "https://github.com/login/oauth/authorize?"},
		{"enterprise base", "https://ghe.example.com/login/oauth/", "https://ghe.example.com/login/oauth/authorize?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := oauth.NewGitHubProvider(config.GitHubOAuthConfig{
				ClientID:    "client-1",
				CallbackURL: "http://localhost:3001/sso/callback",
				OAuthURL:    tt.oauthURL,
				Scopes:      []string{"read:user", "user:email"},
			}, nil, nil)

			got := p.AuthorizeURL()
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Fatalf("AuthorizeURL() = %q, want prefix %q", got, tt.wantPrefix)
			}

			u, err := url.Parse(got)
			if err != nil {
				t.Fatalf("Failed to parse URL: %v", err)
			}
			q := u.Query()
			if q.Get("client_id") != "client-1" {
				t.Errorf("Expected client_id client-1, got %q", q.Get("client_id"))
			}
			if q.Get("redirect_uri") != "http://localhost:3001/sso/callback" {
				t.Errorf("Unexpected redirect_uri %q", q.Get("redirect_uri"))
			}
			if q.Get("response_type") != "code" {
				t.Errorf("Expected response_type code, got %q", q.Get("response_type"))
			}
			if q.Get("scope") != "read:user user:email" {
				t.Errorf("Unexpected scope %q", q.Get("scope"))
			}
		})
	}
}

func newProvider(t *testing.T) (*oauth.GitHubProvider, *oauthtest.Server) {
	t.Helper()
	fake := oauthtest.NewServer("client-1", "secret-1")
	t.Cleanup(fake.Close)
	return oauth.NewGitHubProvider(fake.Config(), fake.Client(), nil), fake
}

func TestExchangeCodeAndFetchProfile(t *testing.T) {
	p, fake := newProvider(t)
	fake.AddCode("code-1", "gho_abc", oauthtest.User{ID: 42, Login: "alice", Email: "a@x.com"})
	ctx := context.Background()

	accessToken, err := p.ExchangeCode(ctx, "code-1")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}
	if accessToken != "gho_abc" {
		t.Errorf("Expected access token gho_abc, got %q", accessToken)
	}

	profile, err := p.FetchProfile(ctx, accessToken)
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if profile.ID != 42 || profile.Login != "alice" || profile.Email != "a@x.com" {
		t.Errorf("Unexpected profile %+v", profile)
	}
}

func TestExchangeCode_Rejected(t *testing.T) {
	p, _ := newProvider(t)

	_, err := p.ExchangeCode(context.Background(), "unknown-code")
	if !domain.IsAuthError(err) {
		t.Errorf("Expected auth error, got %v", err)
	}
	if domain.HTTPStatus(err) != 406 {
		t.Errorf("Expected status 406, got %d", domain.HTTPStatus(err))
	}
}

func TestExchangeCode_TransportFailure(t *testing.T) {
	fake := oauthtest.NewServer("client-1", "secret-1")
	cfg := fake.Config()
	client := fake.Client()
	fake.Close()

	p := oauth.NewGitHubProvider(cfg, client, nil)
	if _, err := p.ExchangeCode(context.Background(), "code-1"); !domain.IsAuthError(err) {
		t.Errorf("Expected auth error, got %v", err)
	}
}

func TestFetchProfile_Errors(t *testing.T) {
	p, fake := newProvider(t)

	_, err := p.FetchProfile(context.Background(), "")
	if !errors.Is(err, domain.ErrMissingToken) {
		t.Errorf("Expected ErrMissingToken, got %v", err)
	}
	if fake.Profiles.Load() != 0 {
		t.Error("Expected no request for an empty token")
	}

	_, err = p.FetchProfile(context.Background(), "gho_unknown")
	if !errors.Is(err, domain.ErrAuth) {
		t.Errorf("Expected ErrAuth, got %v", err)
	}
}
