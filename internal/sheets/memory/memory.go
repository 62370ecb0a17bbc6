package memory

import (
	"context"
	"sync"

	"extrato/internal/core"
	ports "extrato/internal/sheets"
)

var _ ports.MatrixFetcher = (*Fetcher)(nil)

// Fetcher serves a fixed matrix. It stands in for the spreadsheet service in
// tests and in the memory backend.
type Fetcher struct {
	mu     sync.Mutex
	matrix core.RawMatrix
	err    error
	calls  int
}

func New(matrix core.RawMatrix) *Fetcher {
	return &Fetcher{matrix: matrix}
}

// NewFailing returns a fetcher whose every call fails with err.
func NewFailing(err error) *Fetcher {
	return &Fetcher{err: err}
}

// Set replaces the served matrix.
func (f *Fetcher) Set(matrix core.RawMatrix) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matrix = matrix
}

// Calls returns how many times Fetch ran.
func (f *Fetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Fetch implements ports.MatrixFetcher. Token and id are ignored.
func (f *Fetcher) Fetch(_ context.Context, _, _ string) (core.RawMatrix, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if err := ports.CheckShape(f.matrix); err != nil {
		return nil, err
	}
	out := make(core.RawMatrix, len(f.matrix))
	for i, row := range f.matrix {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}
