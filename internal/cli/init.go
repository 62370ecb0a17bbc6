// Package cli holds the start-up steps shared by cmd/extrato and
// cmd/extrato-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"

	"extrato/internal/backend"
	"extrato/internal/config"
	"extrato/internal/log"
	gsheet "extrato/internal/sheets/google"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig reads and validates the environment configuration.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the process logger at the configured level and makes
// it the slog default.
func SetupLogger(level, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// Credentials maps config onto the Google OAuth material.
func Credentials(cfg *config.Config) gsheet.Credentials {
	return gsheet.Credentials{
		ClientJSON: cfg.GoogleOAuthClientJSON,
		ClientFile: cfg.GoogleOAuthClientFile,
		TokenJSON:  cfg.GoogleOAuthTokenJSON,
		TokenFile:  cfg.GoogleOAuthTokenFile,
	}
}

// TokenSource returns a refreshing token source from stored credentials, or
// nil when none are configured or the statement comes from a local file.
func TokenSource(ctx context.Context, cfg *config.Config) (oauth2.TokenSource, error) {
	if cfg.StatementFile != "" || !cfg.HasGoogleCredentials() {
		return nil, nil
	}
	ts, err := gsheet.TokenSource(ctx, Credentials(cfg))
	if err != nil {
		return nil, fmt.Errorf("google credentials: %w", err)
	}
	return ts, nil
}

// OpenBackend wires the pipeline for cfg. mutate, when set, adjusts the
// backend config first (tests and CLI flags use it).
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger, mutate func(*backend.Config)) (*backend.BackendResult, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(&bc)
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}
	return res, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
