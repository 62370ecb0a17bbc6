package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"extrato/internal/cli"
	apphttp "extrato/internal/http"
	"extrato/internal/log"
	"extrato/internal/middleware/ratelimit"
)

func newServeCmd(a *app) *cobra.Command {
	var syncsPerMinute int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sync and status JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), a, syncsPerMinute)
		},
	}
	cmd.Flags().IntVar(&syncsPerMinute, "syncs-per-minute", 6, "POST /api/sync requests allowed per client each minute")
	return cmd
}

func serve(ctx context.Context, a *app, syncsPerMinute int) error {
	cfg, logger := a.cfg, a.logger
	res, err := cli.OpenBackend(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Cleanup failed", log.FieldError, err)
		}
	}()

	deps := apphttp.Deps{
		Syncer:               res.Processor,
		Status:               res.Status,
		Store:                res.Store,
		DefaultOwner:         cfg.OwnerID,
		DefaultSpreadsheetID: cfg.StatementSpreadsheetID,
		Logger:               logger,
		SyncTimeout:          cfg.SyncTimeout,
		SyncLimit:            ratelimit.Config{Requests: syncsPerMinute, Window: time.Minute},
	}
	// A nil *amqp.Client must stay a nil interface.
	if res.Publisher != nil {
		deps.Publisher = res.Publisher
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, deps)
	if err != nil {
		return err
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.SyncTimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting extrato server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
