package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"extrato/internal/core"

	_ "modernc.org/sqlite"
)

// createdAtLayout is fixed width so lexical order equals chronological order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

const selectColumns = `id, owner_id, date, direction, amount_cents, description, message, document,
	counterparty_role, counterparty_name, counterparty_bank, counterparty_branch, counterparty_account,
	external_id, raw_payload, created_at`

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ForOwner returns a transaction store whose every read and write is limited
// to ownerID.
func (r *SQLiteRepository) ForOwner(ownerID string) *TransactionStore {
	return &TransactionStore{repo: r, owner: ownerID}
}

// TransactionStore is the per-owner view of bank_transactions.
type TransactionStore struct {
	repo  *SQLiteRepository
	owner string
}

// FindByKey returns every stored transaction with exactly the given natural key.
func (s *TransactionStore) FindByKey(ctx context.Context, key core.NaturalKey) ([]core.StoredTransaction, error) {
	rows, err := s.repo.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM bank_transactions
		WHERE owner_id = ? AND date = ? AND amount_cents = ? AND description = ?`,
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

// Insert persists tx with a fresh id.
func (s *TransactionStore) Insert(ctx context.Context, tx core.Transaction) (core.StoredTransaction, error) {
	raw, err := json.Marshal(tx.Raw)
	if err != nil {
		return core.StoredTransaction{}, fmt.Errorf("encode raw payload: %w", err)
	}

	st := core.StoredTransaction{
		ID:          uuid.NewString(),
		OwnerID:     s.owner,
		CreatedAt:   s.repo.now().UTC(),
		Transaction: tx,
	}

	_, err = s.repo.db.ExecContext(ctx,
		`INSERT INTO bank_transactions (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.OwnerID, tx.Date, string(tx.Direction), tx.AmountCents(), tx.Description,
		tx.Message, tx.Document,
		tx.Counterparty.Role, tx.Counterparty.Name, tx.Counterparty.Bank,
		tx.Counterparty.Branch, tx.Counterparty.Account,
		tx.ExternalID, string(raw), st.CreatedAt.Format(createdAtLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return core.StoredTransaction{}, core.ErrDuplicateKey
		}
		return core.StoredTransaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", st.ID,
		"owner", st.OwnerID,
		"date", tx.Date,
		"amount_cents", tx.AmountCents(),
		"direction", tx.Direction)

	return st, nil
}

// MostRecent returns the latest transaction by date, then creation time, or nil
// when the owner has none.
func (s *TransactionStore) MostRecent(ctx context.Context) (*core.StoredTransaction, error) {
	row := s.repo.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM bank_transactions
		WHERE owner_id = ?
		ORDER BY date DESC, created_at DESC, rowid DESC
		LIMIT 1`, s.owner)
	st, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *TransactionStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.repo.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bank_transactions WHERE owner_id = ?`, s.owner).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(sc scanner) (core.StoredTransaction, error) {
	var (
		st        core.StoredTransaction
		direction string
		cents     int64
		raw       string
		createdAt string
	)
	err := sc.Scan(&st.ID, &st.OwnerID, &st.Date, &direction, &cents, &st.Description,
		&st.Message, &st.Document,
		&st.Counterparty.Role, &st.Counterparty.Name, &st.Counterparty.Bank,
		&st.Counterparty.Branch, &st.Counterparty.Account,
		&st.ExternalID, &raw, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return st, err
		}
		return st, fmt.Errorf("scan transaction: %w", err)
	}

	st.Direction = core.Direction(direction)
	st.Amount = core.AmountFromCents(cents)
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &st.Raw); err != nil {
			return st, fmt.Errorf("decode raw payload for %s: %w", st.ID, err)
		}
	}
	st.CreatedAt, err = time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return st, fmt.Errorf("parse created_at for %s: %w", st.ID, err)
	}
	return st, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
