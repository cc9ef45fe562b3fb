package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/authdash/internal/config"
	"github.com/authdash/internal/db"
	"github.com/authdash/internal/http"
	"github.com/authdash/internal/logger"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	// Load .env file if it exists (optional, won't error if missing)
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("No %s file loaded: %v", envFile, err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.InitLogger(cfg.Environment, cfg.LogJSON)

	if cfg.GitHub.ClientID == "" || cfg.GitHub.ClientSecret == "" {
		appLogger.Warn("GitHub OAuth is not configured, SSO logins will fail",
			"hint", "set GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET")
	} else {
		clientID := cfg.GitHub.ClientID
		if len(clientID) > 8 {
			clientID = clientID[:8]
		}
		appLogger.Info("GitHub OAuth configured", "client_id", clientID+"...", "callback_url", cfg.GitHub.CallbackURL)
	}
	if cfg.Auth.JWTSecret == config.DefaultJWTSecret && cfg.Environment == "production" {
		appLogger.Warn("JWT_SECRET is the built-in default, set a real secret in production")
	}

	// Initialize database
	database, err := db.Init(cfg.DatabasePath)
	if err != nil {
		appLogger.Error("failed to initialize database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if count, err := database.CountUsers(context.Background()); err == nil {
		appLogger.Info("user store ready", "path", database.GetDBPath(), "users", count)
	}

	server, err := http.NewServer(cfg, database, http.WithLogger(appLogger))
	if err != nil {
		appLogger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Error("server error", "error", err)
			database.Close()
			os.Exit(1)
		}
		return
	case <-quit:
	}

	appLogger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("server shutdown error", "error", err)
	}
	appLogger.Info("server stopped")
}
