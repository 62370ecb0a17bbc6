package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"extrato/internal/core"
	ports "extrato/internal/sheets"
	"extrato/internal/statement"
)

// TransactionStore is the owner-scoped persistence a sync run needs.
type TransactionStore interface {
	FindByKey(ctx context.Context, key core.NaturalKey) ([]core.StoredTransaction, error)
	Insert(ctx context.Context, tx core.Transaction) (core.StoredTransaction, error)
	MostRecent(ctx context.Context) (*core.StoredTransaction, error)
	Count(ctx context.Context) (int64, error)
}

// Stores returns the store scoped to ownerID.
type Stores func(ownerID string) TransactionStore

// RowState is the outcome of one data row.
type RowState string

const (
	ParsedNew       RowState = "parsed_new"
	ParsedDuplicate RowState = "parsed_duplicate"
	ParseRejected   RowState = "parse_rejected"
	StoreFailed     RowState = "store_failed"
)

// RowOutcome is reported to the observer after every data row.
type RowOutcome struct {
	OwnerID   string
	RowNumber int
	State     RowState
	Err       error
}

type BatchOption func(*BatchProcessor)

// WithObserver registers a per-row progress callback. It runs on the sync
// goroutine and must not block.
func WithObserver(fn func(RowOutcome)) BatchOption {
	return func(p *BatchProcessor) { p.observer = fn }
}

func WithBatchClock(now func() time.Time) BatchOption {
	return func(p *BatchProcessor) { p.now = now }
}

// BatchProcessor runs one full statement sync: fetch, parse each row,
// deduplicate by natural key and persist.
type BatchProcessor struct {
	fetcher  ports.MatrixFetcher
	parser   *statement.Parser
	stores   Stores
	observer func(RowOutcome)
	now      func() time.Time

	group singleflight.Group

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewBatchProcessor(fetcher ports.MatrixFetcher, parser *statement.Parser, stores Stores, opts ...BatchOption) *BatchProcessor {
	p := &BatchProcessor{
		fetcher: fetcher,
		parser:  parser,
		stores:  stores,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run syncs the statement for ownerID. The returned error is non-nil only when
// the fetch failed; the result is populated either way. Concurrent runs for the
// same owner are serialised. Requests with the same spreadsheet and token share
// one result, so a joiner never rides on another caller's credentials.
func (p *BatchProcessor) Run(ctx context.Context, ownerID, token, spreadsheetID string) (core.SyncResult, error) {
	type outcome struct {
		result core.SyncResult
		err    error
	}

	key := ownerID + "\x00" + spreadsheetID + "\x00" + token
	v, _, shared := p.group.Do(key, func() (any, error) {
		lock := p.ownerLock(ownerID)
		lock.Lock()
		defer lock.Unlock()

		res, err := p.run(ctx, ownerID, token, spreadsheetID)
		return outcome{result: res, err: err}, nil
	})

	out := v.(outcome)
	res := out.result
	if shared {
		slog.DebugContext(ctx, "Joined in-flight statement sync",
			"owner", ownerID,
			"spreadsheet_id", spreadsheetID)
		res.Errors = append([]string(nil), res.Errors...)
	}
	return res, out.err
}

func (p *BatchProcessor) ownerLock(ownerID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[ownerID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[ownerID] = l
	}
	return l
}

func (p *BatchProcessor) run(ctx context.Context, ownerID, token, spreadsheetID string) (core.SyncResult, error) {
	start := p.now()
	result := core.SyncResult{Errors: []string{}}

	slog.InfoContext(ctx, "Statement sync started",
		"owner", ownerID,
		"spreadsheet_id", spreadsheetID)

	matrix, err := p.fetcher.Fetch(ctx, token, spreadsheetID)
	if err != nil {
		slog.ErrorContext(ctx, "Statement fetch failed",
			"owner", ownerID,
			"spreadsheet_id", spreadsheetID,
			"error", err)
		result.Errors = append(result.Errors, core.FetchErrorMessage(err))
		result.LastSyncDate = p.now()
		return result, fmt.Errorf("fetch statement: %w", err)
	}

	store := p.stores(ownerID)
	headers := matrix.Headers()
	cols := p.parser.Columns(headers)

	for i, row := range matrix.DataRows() {
		rowNumber := i + 2
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("sync cancelled after row %d: %v", rowNumber-1, err))
			slog.WarnContext(ctx, "Statement sync cancelled",
				"owner", ownerID,
				"last_row", rowNumber-1)
			break
		}

		result.TotalProcessed++
		state, err := p.processRow(ctx, store, cols, headers, row, rowNumber)
		switch state {
		case ParsedNew:
			result.NewTransactions++
		case ParseRejected, StoreFailed:
			result.Errors = append(result.Errors, core.RowError(rowNumber, err))
			slog.WarnContext(ctx, "Statement row failed",
				"owner", ownerID,
				"row", rowNumber,
				"state", state,
				"error", err)
		default:
			slog.DebugContext(ctx, "Statement row processed",
				"owner", ownerID,
				"row", rowNumber,
				"state", state)
		}

		if p.observer != nil {
			p.observer(RowOutcome{OwnerID: ownerID, RowNumber: rowNumber, State: state, Err: err})
		}
	}

	result.Success = len(result.Errors) == 0 || result.NewTransactions > 0
	result.LastSyncDate = p.now()

	slog.InfoContext(ctx, "Statement sync completed",
		"owner", ownerID,
		"success", result.Success,
		"new_transactions", result.NewTransactions,
		"total_processed", result.TotalProcessed,
		"errors", len(result.Errors),
		"duration", result.LastSyncDate.Sub(start))

	return result, nil
}

func (p *BatchProcessor) processRow(ctx context.Context, store TransactionStore, cols statement.Columns, headers, row []string, rowNumber int) (RowState, error) {
	tx, err := p.parser.ParseRow(cols, headers, row, rowNumber)
	if err != nil {
		return ParseRejected, err
	}

	matches, err := store.FindByKey(ctx, tx.Key())
	if err != nil {
		return StoreFailed, &core.RowStoreError{Err: err}
	}
	if len(matches) > 0 {
		return ParsedDuplicate, nil
	}

	// A concurrent writer can still win the key between the check and the
	// insert; stores report that as core.ErrDuplicateKey.
	if _, err := store.Insert(ctx, *tx); err != nil {
		return StoreFailed, &core.RowStoreError{Err: err}
	}
	return ParsedNew, nil
}
