// Package postgres stores bank transactions in PostgreSQL through pgx.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"extrato/internal/core"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const uniqueViolation = "23505"

const selectColumns = `id::text, owner_id, to_char(date, 'YYYY-MM-DD'), direction, amount_cents, description,
	message, document, counterparty_role, counterparty_name, counterparty_bank, counterparty_branch,
	counterparty_account, external_id, raw_payload, created_at`

type Repository struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL and applies pending migrations.
func Open(ctx context.Context, databaseURL string) (*Repository, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	slog.InfoContext(ctx, "Connected to PostgreSQL", "max_conns", pool.Config().MaxConns)
	return &Repository{pool: pool}, nil
}

// RunMigrations applies the embedded schema using the pgx/v5 migrate driver.
func RunMigrations(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(databaseURL))
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// migrateURL rewrites a postgres:// URL to the scheme the pgx/v5 driver registers.
func migrateURL(databaseURL string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) ForOwner(ownerID string) *TransactionStore {
	return &TransactionStore{pool: r.pool, owner: ownerID}
}

type TransactionStore struct {
	pool  *pgxpool.Pool
	owner string
}

func (s *TransactionStore) FindByKey(ctx context.Context, key core.NaturalKey) ([]core.StoredTransaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM bank_transactions
		WHERE owner_id = $1 AND date = $2::date AND amount_cents = $3 AND description = $4`,
		s.owner, key.Date, key.AmountCents, key.Description)
	if err != nil {
		return nil, fmt.Errorf("query by natural key: %w", err)
	}
	defer rows.Close()

	var out []core.StoredTransaction
	for rows.Next() {
		st, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate natural key matches: %w", err)
	}
	return out, nil
}

func (s *TransactionStore) Insert(ctx context.Context, tx core.Transaction) (core.StoredTransaction, error) {
	st := core.StoredTransaction{
		ID:          uuid.NewString(),
		OwnerID:     s.owner,
		Transaction: tx,
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO bank_transactions (
			id, owner_id, date, direction, amount_cents, description, message, document,
			counterparty_role, counterparty_name, counterparty_bank, counterparty_branch,
			counterparty_account, external_id, raw_payload)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at`,
		st.ID, st.OwnerID, tx.Date, string(tx.Direction), tx.AmountCents(), tx.Description,
		tx.Message, tx.Document,
		tx.Counterparty.Role, tx.Counterparty.Name, tx.Counterparty.Bank,
		tx.Counterparty.Branch, tx.Counterparty.Account,
		tx.ExternalID, tx.Raw).Scan(&st.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return core.StoredTransaction{}, core.ErrDuplicateKey
		}
		return core.StoredTransaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return st, nil
}

func (s *TransactionStore) MostRecent(ctx context.Context) (*core.StoredTransaction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM bank_transactions
		WHERE owner_id = $1
		ORDER BY date DESC, created_at DESC
		LIMIT 1`, s.owner)
	st, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *TransactionStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM bank_transactions WHERE owner_id = $1`, s.owner).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func scanTransaction(row pgx.Row) (core.StoredTransaction, error) {
	var (
		st        core.StoredTransaction
		direction string
		cents     int64
		createdAt time.Time
	)
	err := row.Scan(&st.ID, &st.OwnerID, &st.Date, &direction, &cents, &st.Description,
		&st.Message, &st.Document,
		&st.Counterparty.Role, &st.Counterparty.Name, &st.Counterparty.Bank,
		&st.Counterparty.Branch, &st.Counterparty.Account,
		&st.ExternalID, &st.Raw, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return st, err
		}
		return st, fmt.Errorf("scan transaction: %w", err)
	}
	st.Direction = core.Direction(direction)
	st.Amount = core.AmountFromCents(cents)
	st.CreatedAt = createdAt.UTC()
	return st, nil
}
