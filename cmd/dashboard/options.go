package main

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/authdash/internal/constants"
	"github.com/authdash/internal/dashboard"
	"github.com/authdash/internal/logger"
	"github.com/authdash/internal/session"
)

type globalOptions struct {
	apiRoot       string
	statePath     string
	timeout       time.Duration
	tokenLifetime time.Duration
	verbose       bool
}

func (o *globalOptions) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.apiRoot, "api", envOr("AUTHDASH_API", "http://localhost:3000/api"), "authdash API root")
	flags.StringVar(&o.statePath, "state", envOr("AUTHDASH_STATE", defaultStatePath()), "session state file")
	flags.DurationVar(&o.timeout, "timeout", 30*time.Second, "timeout for each API request")
	flags.DurationVar(&o.tokenLifetime, "token-lifetime", constants.DefaultTokenLifetime, "server token lifetime, sets the refresh interval")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "log debug output to stderr")
}

func (o *globalOptions) newLogger() *slog.Logger {
	if o.verbose {
		return logger.New(os.Stderr, "development", false)
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newApp opens the state file and wires a session client to the dashboard routes
func (o *globalOptions) newApp() (*dashboard.App, error) {
	storage, err := session.OpenFileStorage(o.statePath)
	if err != nil {
		return nil, err
	}

	log := o.newLogger()
	history := session.NewHistory(constants.RouteRoot)
	client := session.New(o.apiRoot, storage, history,
		session.WithHTTPClient(&http.Client{Timeout: o.timeout}),
		session.WithLogger(log),
		session.WithTokenLifetime(o.tokenLifetime),
	)
	return dashboard.New(client, history, o.apiRoot, dashboard.WithLogger(log)), nil
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".authdash-session.yaml"
	}
	return filepath.Join(dir, "authdash", "session.yaml")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
