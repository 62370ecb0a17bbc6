package sheets

import (
	"context"
	"fmt"

	"extrato/internal/core"
)

// Ports for outbound adapters.
type (
	// MatrixFetcher returns the cell matrix of the first tab of a statement
	// spreadsheet. An empty spreadsheetID means "resolve by the well-known title".
	MatrixFetcher interface {
		Fetch(ctx context.Context, token, spreadsheetID string) (core.RawMatrix, error)
	}
)

// CheckShape rejects matrices without data rows.
func CheckShape(m core.RawMatrix) error {
	switch len(m) {
	case 0:
		return core.ErrEmptySheet
	case 1:
		return fmt.Errorf("%w (%d header cells)", core.ErrInsufficientData, len(m[0]))
	}
	return nil
}
