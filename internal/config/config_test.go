package config

import (
	"testing"
	"time"
)

var configEnvVars = []string{
	"SERVER_ADDRESS",
	"PORT",
	"APP_ENV",
	"LOG_JSON",
	"DATABASE_PATH",
	"JWT_SECRET",
	"JWT_ISSUER",
	"TOKEN_LIFETIME",
	"AUTH_RATE_LIMIT",
	"AUTH_RATE_BURST",
	"GITHUB_CLIENT_ID",
	"GITHUB_CLIENT_SECRET",
	"GITHUB_CALLBACK_URL",
	"GITHUB_OAUTH_URL",
	"GITHUB_API_USER_URL",
	"GITHUB_SCOPES",
	"GITHUB_HTTP_TIMEOUT",
	"CORS_ALLOWED_ORIGINS",
}

// clearEnv blanks every variable Load reads; t.Setenv restores them afterwards
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	config, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.ServerAddress != ":3000" {
		t.Errorf("Expected ServerAddress to be :3000, got %s", config.ServerAddress)
	}

	if config.Environment != "production" {
		t.Errorf("Expected Environment to be production, got %s", config.Environment)
	}

	if !config.LogJSON {
		t.Error("Expected LogJSON to default to true in production")
	}

	if config.DatabasePath != "./data/authdash.db" {
		t.Errorf("Expected DatabasePath to be ./data/authdash.db, got %s", config.DatabasePath)
	}

	if config.Auth.TokenLifetime != time.Hour {
		t.Errorf("Expected TokenLifetime to be 1h, got %s", config.Auth.TokenLifetime)
	}

	if config.Auth.Issuer != "authdash" {
		t.Errorf("Expected Issuer to be authdash, got %s", config.Auth.Issuer)
	}

	if config.Auth.RateLimitPerMinute != 30 || config.Auth.RateLimitBurst != 10 {
		t.Errorf("Expected rate limit 30/min burst 10, got %d/min burst %d",
			config.Auth.RateLimitPerMinute, config.Auth.RateLimitBurst)
	}

	if config.GitHub.OAuthURL != "" {
		t.Errorf("Expected OAuthURL to be empty by default, got %s", config.GitHub.OAuthURL)
	}

	if config.GitHub.APIUserURL != "https://api.github.com/user" {
		t.Errorf("Expected APIUserURL to be https://api.github.com/user, got %s", config.GitHub.APIUserURL)
	}

	if len(config.GitHub.Scopes) != 2 {
		t.Errorf("Expected 2 default scopes, got %v", config.GitHub.Scopes)
	}

	if config.GitHub.HTTPTimeout != 30*time.Second {
		t.Errorf("Expected HTTPTimeout to be 30s, got %s", config.GitHub.HTTPTimeout)
	}

	if len(config.CORS.AllowedOrigins) != 2 {
		t.Errorf("Expected 2 default CORS origins, got %v", config.CORS.AllowedOrigins)
	}
}

func TestLoadWithEnvVars(t *testing.T) {
	clearEnv(t)

	t.Setenv("SERVER_ADDRESS", ":9090")
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_PATH", "/tmp/test.db")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("TOKEN_LIFETIME", "600")
	t.Setenv("GITHUB_CLIENT_ID", "client-id")
	t.Setenv("GITHUB_CLIENT_SECRET", "client-secret")
	t.Setenv("GITHUB_CALLBACK_URL", "https://dash.example.com/sso/callback")
	t.Setenv("GITHUB_OAUTH_URL", "https://ghe.example.com/login/oauth")
	t.Setenv("GITHUB_SCOPES", "read:user")
	t.Setenv("GITHUB_HTTP_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://dash.example.com, https://admin.example.com")

	config, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.ServerAddress != ":9090" {
		t.Errorf("Expected ServerAddress to be :9090, got %s", config.ServerAddress)
	}

	if config.LogJSON {
		t.Error("Expected LogJSON to default to false in development")
	}

	if config.DatabasePath != "/tmp/test.db" {
		t.Errorf("Expected DatabasePath to be /tmp/test.db, got %s", config.DatabasePath)
	}

	if config.Auth.JWTSecret != "test-secret" {
		t.Errorf("Expected JWTSecret to be test-secret, got %s", config.Auth.JWTSecret)
	}

	if config.Auth.TokenLifetime != 10*time.Minute {
		t.Errorf("Expected TokenLifetime to be 10m, got %s", config.Auth.TokenLifetime)
	}

	if config.GitHub.ClientID != "client-id" || config.GitHub.ClientSecret != "client-secret" {
		t.Errorf("Unexpected GitHub credentials: %+v", config.GitHub)
	}

	if config.GitHub.CallbackURL != "https://dash.example.com/sso/callback" {
		t.Errorf("Unexpected CallbackURL: %s", config.GitHub.CallbackURL)
	}

	if config.GitHub.OAuthURL != "https://ghe.example.com/login/oauth" {
		t.Errorf("Unexpected OAuthURL: %s", config.GitHub.OAuthURL)
	}

	if len(config.GitHub.Scopes) != 1 || config.GitHub.Scopes[0] != "read:user" {
		t.Errorf("Unexpected scopes: %v", config.GitHub.Scopes)
	}

	if config.GitHub.HTTPTimeout != 5*time.Second {
		t.Errorf("Expected HTTPTimeout to be 5s, got %s", config.GitHub.HTTPTimeout)
	}

	expectedOrigins := []string{"https://dash.example.com", "https://admin.example.com"}
	if len(config.CORS.AllowedOrigins) != len(expectedOrigins) {
		t.Fatalf("Expected %d origins, got %v", len(expectedOrigins), config.CORS.AllowedOrigins)
	}
	for i, origin := range expectedOrigins {
		if config.CORS.AllowedOrigins[i] != origin {
			t.Errorf("Expected origin %d to be %s, got %s", i, origin, config.CORS.AllowedOrigins[i])
		}
	}
}

func TestLoad_PortFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "5050")

	config, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.ServerAddress != ":5050" {
		t.Errorf("Expected ServerAddress to be :5050, got %s", config.ServerAddress)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unparseable lifetime", "TOKEN_LIFETIME", "soon"},
		{"negative lifetime", "TOKEN_LIFETIME", "-5"},
		{"unparseable timeout", "GITHUB_HTTP_TIMEOUT", "later"},
		{"unparseable rate limit", "AUTH_RATE_LIMIT", "many"},
		{"unparseable burst", "AUTH_RATE_BURST", "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%q, got nil", tt.key, tt.value)
			}
		})
	}
}

func TestParseCommaSeparatedList(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"", []string{}},
		{"a", []string{"a"}},
		{"a,b", []string{"a", "b"}},
		{" a , b ,, c ", []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		result := parseCommaSeparatedList(tt.input)
		if len(result) != len(tt.expected) {
			t.Errorf("parseCommaSeparatedList(%q) = %v, want %v", tt.input, result, tt.expected)
			continue
		}
		for i := range result {
			if result[i] != tt.expected[i] {
				t.Errorf("parseCommaSeparatedList(%q)[%d] = %q, want %q", tt.input, i, result[i], tt.expected[i])
			}
		}
	}
}
