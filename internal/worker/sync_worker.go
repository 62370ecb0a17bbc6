// Package worker runs statement syncs on a schedule and on request.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"extrato/internal/amqp"
	"extrato/internal/core"
	"extrato/internal/log"
)

// Runner executes one statement sync.
type Runner interface {
	Run(ctx context.Context, ownerID, token, spreadsheetID string) (core.SyncResult, error)
}

// Config holds the scheduled-sync settings.
type Config struct {
	OwnerID       string
	SpreadsheetID string
	Interval      time.Duration
	// Timeout bounds a single run.
	Timeout time.Duration
}

// SyncWorker owns the periodic sync loop and handles queued sync requests.
type SyncWorker struct {
	runner Runner
	tokens oauth2.TokenSource
	config Config
	logger *log.Logger
	sl     *log.StructuredLogger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSyncWorker creates a worker. tokens may be nil when the statement source
// needs no credentials.
func NewSyncWorker(runner Runner, tokens oauth2.TokenSource, config Config, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentWorker)
	return &SyncWorker{
		runner: runner,
		tokens: tokens,
		config: config,
		logger: logger,
		sl:     log.NewStructuredLogger(logger),
	}
}

// Start begins the scheduled loop. Returns an error if already running.
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("sync worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	w.logger.InfoContext(ctx, "Sync worker started",
		"owner", w.config.OwnerID,
		"interval", w.config.Interval)
	return nil
}

// Stop signals the loop and waits for the in-flight run to finish.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		w.logger.InfoContext(ctx, "Sync worker stopped gracefully")
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Sync worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *SyncWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	// Sync immediately on startup
	w.syncScheduled(ctx)

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.syncScheduled(ctx)
		}
	}
}

func (w *SyncWorker) syncScheduled(ctx context.Context) {
	if _, err := w.Sync(ctx, w.config.OwnerID, w.config.SpreadsheetID); err != nil {
		w.logger.WarnContext(ctx, "Scheduled sync failed", "error", err)
	}
}

// Sync runs one bounded sync with a fresh access token.
func (w *SyncWorker) Sync(ctx context.Context, ownerID, spreadsheetID string) (core.SyncResult, error) {
	if w.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.Timeout)
		defer cancel()
	}

	token, err := w.accessToken()
	if err != nil {
		w.sl.LogError(ctx, "Failed to obtain access token", err, log.OpSync, log.NewFields().WithSync(ownerID, spreadsheetID))
		return core.SyncResult{Errors: []string{core.FetchErrorMessage(err)}, LastSyncDate: time.Now()}, err
	}

	res, err := w.runner.Run(ctx, ownerID, token, spreadsheetID)
	w.sl.LogSyncCompleted(ctx, ownerID, spreadsheetID, res, err)
	return res, err
}

func (w *SyncWorker) accessToken() (string, error) {
	if w.tokens == nil {
		return "", nil
	}
	tok, err := w.tokens.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrAuth, err)
	}
	return tok.AccessToken, nil
}

// HandleSyncRequest processes one queued sync request. It returns an error,
// which requeues the message, only for failures a retry can fix.
func (w *SyncWorker) HandleSyncRequest(ctx context.Context, msg *amqp.SyncRequestMessage) error {
	spreadsheetID := msg.SpreadsheetID
	if spreadsheetID == "" {
		spreadsheetID = w.config.SpreadsheetID
	}

	_, err := w.Sync(ctx, msg.OwnerID, spreadsheetID)
	if err == nil || isPermanent(err) {
		return nil
	}
	return err
}

func isPermanent(err error) bool {
	for _, target := range []error{core.ErrAuth, core.ErrNotFound, core.ErrEmptySheet, core.ErrInsufficientData, core.ErrRejected} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
