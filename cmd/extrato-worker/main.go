package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"extrato/internal/cli"
	"extrato/internal/log"
	"extrato/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "extrato-worker:", err)
		os.Exit(1)
	}
}

func run() error {
	cli.LoadEnvFile()
	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentWorker)
	logger.Info("Starting extrato-worker", "backend", cfg.DataBackend, "interval", cfg.SyncInterval)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	tokens, err := cli.TokenSource(ctx, cfg)
	if err != nil {
		return err
	}
	if tokens == nil && cfg.StatementFile == "" {
		return errors.New("the worker needs stored Google OAuth credentials or STATEMENT_FILE")
	}

	res, err := cli.OpenBackend(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Cleanup failed", log.FieldError, err)
		}
	}()

	w := worker.NewSyncWorker(res.Processor, tokens, worker.Config{
		OwnerID:       cfg.OwnerID,
		SpreadsheetID: cfg.StatementSpreadsheetID,
		Interval:      cfg.SyncInterval,
		Timeout:       cfg.SyncTimeout,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := w.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.SyncTimeout+5*time.Second)
		defer cancel()
		return w.Stop(stopCtx)
	})

	if res.Publisher != nil {
		g.Go(func() error {
			err := res.Publisher.ConsumeSyncRequests(gctx, w.HandleSyncRequest)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP_URL not set, only scheduled syncs will run")
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Worker stopped gracefully")
	return nil
}
