package core

import (
	"context"
	"errors"
	"fmt"
)

// Fetch-phase errors. Any of these aborts a run before a single row is processed.
var (
	ErrAuth             = errors.New("spreadsheet access denied: token expired or invalid")
	ErrNotFound         = errors.New("spreadsheet not found, select it manually")
	ErrEmptySheet       = errors.New("spreadsheet is empty")
	ErrInsufficientData = errors.New("spreadsheet has a header row but no data rows")
	ErrRejected         = errors.New("spreadsheet service rejected the request")
)

// Messages shown to callers in place of backend error text.
const (
	msgFetchCancelled = "spreadsheet fetch timed out or was cancelled"
	msgFetchFailed    = "could not read the spreadsheet, try again later"
	msgStoreFailed    = "could not store transaction"
)

// FetchErrorMessage returns the caller-facing text for a fetch failure. The
// wrapped cause is meant for logs only.
func FetchErrorMessage(err error) string {
	for _, target := range []error{ErrAuth, ErrNotFound, ErrEmptySheet, ErrInsufficientData, ErrRejected} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return msgFetchCancelled
	}
	return msgFetchFailed
}

// RowParseError rejects a row whose required fields are missing or unparseable.
type RowParseError struct {
	Reason string
}

func (e *RowParseError) Error() string {
	return e.Reason
}

// RowStoreError reports a persistence failure for a single row.
type RowStoreError struct {
	Err error
}

func (e *RowStoreError) Error() string {
	return fmt.Sprintf("store transaction: %v", e.Err)
}

func (e *RowStoreError) Unwrap() error {
	return e.Err
}

// Public hides the database error; duplicate keys keep their own message.
func (e *RowStoreError) Public() string {
	if errors.Is(e.Err, ErrDuplicateKey) {
		return ErrDuplicateKey.Error()
	}
	return msgStoreFailed
}

// RowError formats a row-scoped diagnostic for SyncResult.Errors. rowNumber is
// the 1-based spreadsheet row.
func RowError(rowNumber int, err error) string {
	var storeErr *RowStoreError
	if errors.As(err, &storeErr) {
		return fmt.Sprintf("Row %d: %s", rowNumber, storeErr.Public())
	}
	return fmt.Sprintf("Row %d: %v", rowNumber, err)
}

// ErrDuplicateKey is returned by stores that enforce natural-key uniqueness.
var ErrDuplicateKey = errors.New("a transaction with the same date, amount and description is already stored")
