// Package adapters exposes the concrete transaction stores through the
// owner-scoped interface the sync services consume.
package adapters

import (
	"context"

	"extrato/internal/services"
	"extrato/internal/storage"
	"extrato/internal/storage/memory"
	"extrato/internal/storage/postgres"
)

// StoreBackend is a transaction store plus its lifecycle.
type StoreBackend interface {
	Stores() services.Stores
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ StoreBackend = (*SQLiteAdapter)(nil)
	_ StoreBackend = (*PostgresAdapter)(nil)
	_ StoreBackend = (*MemoryAdapter)(nil)

	_ services.TransactionStore = (*storage.TransactionStore)(nil)
	_ services.TransactionStore = (*postgres.TransactionStore)(nil)
	_ services.TransactionStore = (*memory.OwnerStore)(nil)
)

type SQLiteAdapter struct {
	repo *storage.SQLiteRepository
}

func NewSQLiteAdapter(repo *storage.SQLiteRepository) *SQLiteAdapter {
	return &SQLiteAdapter{repo: repo}
}

func (a *SQLiteAdapter) Stores() services.Stores {
	return func(owner string) services.TransactionStore { return a.repo.ForOwner(owner) }
}

func (a *SQLiteAdapter) Ping(ctx context.Context) error { return a.repo.Ping(ctx) }
func (a *SQLiteAdapter) Close() error                   { return a.repo.Close() }

type PostgresAdapter struct {
	repo *postgres.Repository
}

func NewPostgresAdapter(repo *postgres.Repository) *PostgresAdapter {
	return &PostgresAdapter{repo: repo}
}

func (a *PostgresAdapter) Stores() services.Stores {
	return func(owner string) services.TransactionStore { return a.repo.ForOwner(owner) }
}

func (a *PostgresAdapter) Ping(ctx context.Context) error { return a.repo.Ping(ctx) }
func (a *PostgresAdapter) Close() error                   { return a.repo.Close() }

// MemoryAdapter keeps everything in process; data is lost on exit.
type MemoryAdapter struct {
	store *memory.Store
}

func NewMemoryAdapter(store *memory.Store) *MemoryAdapter {
	return &MemoryAdapter{store: store}
}

func (a *MemoryAdapter) Stores() services.Stores {
	return func(owner string) services.TransactionStore { return a.store.ForOwner(owner) }
}

func (a *MemoryAdapter) Ping(context.Context) error { return nil }
func (a *MemoryAdapter) Close() error               { return nil }
