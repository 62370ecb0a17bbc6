// Package xlsx reads a statement exported as an .xlsx workbook.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"extrato/internal/core"
	ports "extrato/internal/sheets"
)

var _ ports.MatrixFetcher = (*Fetcher)(nil)

// Fetcher reads the first sheet of a local workbook.
type Fetcher struct {
	path string
}

// New returns a fetcher for the workbook at path. Only a fetcher built with
// an empty path reads the spreadsheetID passed to Fetch as a path, so callers
// of a configured fetcher cannot point it at other files.
func New(path string) *Fetcher {
	return &Fetcher{path: path}
}

// Fetch implements ports.MatrixFetcher. The token is ignored.
func (f *Fetcher) Fetch(ctx context.Context, _, spreadsheetID string) (core.RawMatrix, error) {
	path := f.path
	if path == "" {
		path = strings.TrimSpace(spreadsheetID)
	}
	if path == "" {
		return nil, fmt.Errorf("%w: no workbook path configured", core.ErrNotFound)
	}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", core.ErrNotFound, path)
		}
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer wb.Close()

	sheetNames := wb.GetSheetList()
	if len(sheetNames) == 0 {
		return nil, core.ErrEmptySheet
	}
	rows, err := wb.GetRows(sheetNames[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetNames[0], err)
	}

	matrix := make(core.RawMatrix, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = strings.TrimSpace(v)
		}
		matrix[i] = cells
	}

	slog.InfoContext(ctx, "Read statement workbook",
		"path", path,
		"sheet", sheetNames[0],
		"rows", len(matrix))

	if err := ports.CheckShape(matrix); err != nil {
		return nil, err
	}
	return matrix, nil
}
