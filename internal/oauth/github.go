// Package oauth delegates identity to GitHub: authorize URL, code exchange and
// profile lookup.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/authdash/internal/config"
	"github.com/authdash/internal/domain"
)

// GitHubProvider implements domain.OAuthProvider
type GitHubProvider struct {
	oauth      *oauth2.Config
	apiUserURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGitHubProvider builds a provider from configuration. An empty OAuthURL
// targets github.com; otherwise <OAuthURL>/authorize and <OAuthURL>/access_token
// are used, which covers GitHub Enterprise and test servers.
func NewGitHubProvider(cfg config.GitHubOAuthConfig, httpClient *http.Client, logger *slog.Logger) *GitHubProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}

	endpoint := github.Endpoint
	if cfg.OAuthURL != "" {
		base := strings.TrimRight(cfg.OAuthURL, "/")
		endpoint = oauth2.Endpoint{
			AuthURL:  base + "/authorize",
			TokenURL: base + "/access_token",
		}
	}
	// GitHub expects client credentials in the body
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &GitHubProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       cfg.Scopes,
		},
		apiUserURL: cfg.APIUserURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// AuthorizeURL returns the provider URL the browser is sent to
func (p *GitHubProvider) AuthorizeURL() string {
	return p.oauth.AuthCodeURL("")
}

// ExchangeCode trades an authorization code for a provider access token.
// Any failure is reported as an auth error; there is no retry.
func (p *GitHubProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		p.logger.WarnContext(ctx, "OAuth code exchange failed", "error", err)
		return "", domain.WrapAuthError("exchange code", err)
	}
	if tok.AccessToken == "" {
		return "", domain.WrapAuthError("exchange code", fmt.Errorf("response carried no access token"))
	}
	return tok.AccessToken, nil
}

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Email string `json:"email"`
}

// FetchProfile reads the GitHub user that owns accessToken
func (p *GitHubProvider) FetchProfile(ctx context.Context, accessToken string) (*domain.ProviderProfile, error) {
	if accessToken == "" {
		return nil, domain.ErrMissingToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiUserURL, nil)
	if err != nil {
		return nil, domain.WrapAuthError("fetch profile", err)
	}
	req.Header.Set("Authorization", "token "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.WarnContext(ctx, "GitHub profile request failed", "error", err)
		return nil, domain.WrapAuthError("fetch profile", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		p.logger.WarnContext(ctx, "GitHub profile request rejected",
			"status", resp.StatusCode, "body", string(body))
		return nil, domain.WrapAuthError("fetch profile",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var user githubUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, domain.WrapAuthError("fetch profile", fmt.Errorf("decode profile: %w", err))
	}

	return &domain.ProviderProfile{
		ID:    user.ID,
		Login: user.Login,
		Email: user.Email,
	}, nil
}
