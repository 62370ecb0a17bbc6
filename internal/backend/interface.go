package backend

import (
	"context"

	"extrato/internal/adapters"
	"extrato/internal/amqp"
	"extrato/internal/services"
	ports "extrato/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult is a fully wired ingestion pipeline.
type BackendResult struct {
	Store     adapters.StoreBackend
	Fetcher   ports.MatrixFetcher
	Processor *services.BatchProcessor
	Status    *services.StatusReporter
	// Publisher is nil when AMQP is not configured.
	Publisher *amqp.Client
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
