package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultJWTSecret is used when JWT_SECRET is unset. It is only fit for development.
const DefaultJWTSecret = "change-me-in-production-secret-key"

// Config holds the application configuration
type Config struct {
	ServerAddress string
	Environment   string
	LogJSON       bool
	DatabasePath  string
	Auth          AuthConfig
	GitHub        GitHubOAuthConfig
	CORS          CORSConfig
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// AuthConfig holds session token configuration
type AuthConfig struct {
	JWTSecret     string
	TokenLifetime time.Duration
	Issuer        string

	// Per-client limits for the unauthenticated auth endpoints
	RateLimitPerMinute int
	RateLimitBurst     int
}

// GitHubOAuthConfig holds GitHub OAuth configuration
type GitHubOAuthConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	// OAuthURL is the base of the authorize/access_token endpoints.
	// Empty means github.com.
	OAuthURL    string
	APIUserURL  string
	Scopes      []string
	HTTPTimeout time.Duration
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	environment := getEnv("APP_ENV", "production")

	// LOG_JSON wins when set, otherwise JSON everywhere except development
	logJSON := environment != "development"
	if v := os.Getenv("LOG_JSON"); v != "" {
		logJSON = v == "true"
	}

	lifetime, err := getDuration("TOKEN_LIFETIME", time.Hour)
	if err != nil {
		return nil, err
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("TOKEN_LIFETIME must be positive, got %s", lifetime)
	}

	githubTimeout, err := getDuration("GITHUB_HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	ratePerMinute, err := getInt("AUTH_RATE_LIMIT", 30)
	if err != nil {
		return nil, err
	}
	rateBurst, err := getInt("AUTH_RATE_BURST", 10)
	if err != nil {
		return nil, err
	}

	corsOrigins := getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3001,http://localhost:5173")

	return &Config{
		ServerAddress: serverAddress(),
		Environment:   environment,
		LogJSON:       logJSON,
		DatabasePath:  getEnv("DATABASE_PATH", "./data/authdash.db"),
		Auth: AuthConfig{
			JWTSecret:          getEnv("JWT_SECRET", DefaultJWTSecret),
			TokenLifetime:      lifetime,
			Issuer:             getEnv("JWT_ISSUER", "authdash"),
			RateLimitPerMinute: ratePerMinute,
			RateLimitBurst:     rateBurst,
		},
		GitHub: GitHubOAuthConfig{
			ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
			ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
			CallbackURL:  getEnv("GITHUB_CALLBACK_URL", "http://localhost:3001/sso/callback"),
			OAuthURL:     os.Getenv("GITHUB_OAUTH_URL"),
			APIUserURL:   getEnv("GITHUB_API_USER_URL", "https://api.github.com/user"),
			Scopes:       parseCommaSeparatedList(getEnv("GITHUB_SCOPES", "read:user,user:email")),
			HTTPTimeout:  githubTimeout,
		},
		CORS: CORSConfig{
			AllowedOrigins: parseCommaSeparatedList(corsOrigins),
		},
	}, nil
}

// serverAddress prefers SERVER_ADDRESS, then PORT, then :3000
func serverAddress() string {
	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		return addr
	}
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":3000"
}

// parseCommaSeparatedList splits a comma-separated string into a slice
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return []string{}
	}

	items := strings.Split(s, ",")
	result := make([]string, 0, len(items))

	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}

	return result
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration accepts Go durations ("90m") or bare seconds ("3600")
func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}
