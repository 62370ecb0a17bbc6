package services

import (
	"context"
	"log/slog"

	"extrato/internal/core"
)

// StatusReporter describes ingestion health from the store alone.
type StatusReporter struct {
	stores Stores
}

func NewStatusReporter(stores Stores) *StatusReporter {
	return &StatusReporter{stores: stores}
}

// Status never fails: a store error yields a disconnected, empty status.
func (r *StatusReporter) Status(ctx context.Context, ownerID string) core.IntegrationStatus {
	store := r.stores(ownerID)

	latest, err := store.MostRecent(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Status query failed", "owner", ownerID, "error", err)
		return core.IntegrationStatus{}
	}
	total, err := store.Count(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Status count failed", "owner", ownerID, "error", err)
		return core.IntegrationStatus{}
	}

	status := core.IntegrationStatus{
		Connected:         true,
		TotalTransactions: total,
	}
	if latest != nil {
		lastSync := latest.CreatedAt
		status.LastSync = &lastSync
		status.LastTransaction = core.NewTransactionView(*latest)
	}
	return status
}
