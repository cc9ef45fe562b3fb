package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/authdash/internal/config"
	"github.com/authdash/internal/db"
	"github.com/authdash/internal/domain"
	"github.com/authdash/internal/oauth"
	"github.com/authdash/internal/service"
	"github.com/authdash/internal/token"
)

// Server wraps the HTTP server
type Server struct {
	config      *config.Config
	database    *db.DB
	authService domain.AuthService
	engine      *gin.Engine
	registry    *prometheus.Registry
	metrics     *metrics
	limiter     *ipRateLimiter
	logger      *slog.Logger
	httpServer  *http.Server
}

// Option configures the server
type Option func(*serverOptions)

type serverOptions struct {
	provider   domain.OAuthProvider
	httpClient *http.Client
	clock      func() time.Time
	logger     *slog.Logger
}

// WithOAuthProvider replaces the GitHub provider built from configuration
func WithOAuthProvider(p domain.OAuthProvider) Option {
	return func(o *serverOptions) { o.provider = p }
}

// WithHTTPClient sets the client used for calls to GitHub
func WithHTTPClient(c *http.Client) Option {
	return func(o *serverOptions) { o.httpClient = c }
}

// WithClock overrides the token issuer's time source
func WithClock(now func() time.Time) Option {
	return func(o *serverOptions) { o.clock = now }
}

// WithLogger sets the logger used by the server and its services
func WithLogger(l *slog.Logger) Option {
	return func(o *serverOptions) { o.logger = l }
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, database *db.DB, opts ...Option) (*Server, error) {
	options := serverOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	logger := options.logger

	// Set Gin mode based on environment
	switch cfg.Environment {
	case "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	// Middleware - order matters
	engine.Use(securityHeadersMiddleware())
	engine.Use(corsMiddleware(cfg))
	engine.Use(cacheControlMiddleware())
	engine.Use(loggerMiddleware(logger))
	engine.Use(jsonBodyLimitMiddleware(maxBodySize))

	var issuerOpts []token.Option
	if options.clock != nil {
		issuerOpts = append(issuerOpts, token.WithClock(options.clock))
	}
	issuer, err := token.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenLifetime, cfg.Auth.Issuer, issuerOpts...)
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider = oauth.NewGitHubProvider(cfg.GitHub, options.httpClient, logger)
	}

	registry := prometheus.NewRegistry()
	m := newMetrics(registry)

	users := service.NewUserService(database, logger)
	authService := service.NewAuthService(issuer, provider, users, logger,
		service.WithLoginObserver(m.observeLogin))

	server := &Server{
		config:      cfg,
		database:    database,
		authService: authService,
		engine:      engine,
		registry:    registry,
		metrics:     m,
		limiter:     newIPRateLimiter(cfg.Auth.RateLimitPerMinute, cfg.Auth.RateLimitBurst),
		logger:      logger,
	}

	// Setup routes
	server.setupRoutes()

	addr := cfg.ServerAddress
	if addr == "" {
		addr = ":3000"
	}

	// Configure server with timeouts
	server.httpServer = &http.Server{
		Addr:           addr,
		Handler:        engine,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	return server, nil
}

const (
	maxBodySize  = 1 << 20          // 1MB max request body
	readTimeout  = 30 * time.Second // 30s for reading request
	writeTimeout = 60 * time.Second // covers the GitHub round trips of an SSO login
	idleTimeout  = 120 * time.Second
)

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	s.logger.Info("HTTP server listening", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops a running server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// securityHeadersMiddleware adds security-related HTTP headers
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevent MIME type sniffing
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		// Prevent clickjacking
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		// HSTS (only if using HTTPS)
		if c.Request.TLS != nil {
			c.Writer.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// corsMiddleware adds CORS headers with configurable origin
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is in allowed list
		allowed := false
		for _, allowedOrigin := range cfg.CORS.AllowedOrigins {
			if origin == allowedOrigin {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// cacheControlMiddleware disables caching of API responses
func cacheControlMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.Writer.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Writer.Header().Set("Pragma", "no-cache")
			c.Writer.Header().Set("Expires", "0")
		}
		c.Next()
	}
}

// jsonBodyLimitMiddleware limits the size of JSON request bodies to prevent DoS
func jsonBodyLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only apply to JSON requests
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodOptions {
			contentType := c.GetHeader("Content-Type")
			if strings.Contains(contentType, "application/json") {
				if c.Request.ContentLength > maxBytes {
					c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
						Error: "Request body too large",
					})
					return
				}
				// Wrap the request body with MaxBytesReader
				c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
			}
		}
		c.Next()
	}
}

// loggerMiddleware logs HTTP requests once they complete
func loggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.InfoContext(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"remote_addr", c.ClientIP(),
		)
	}
}
