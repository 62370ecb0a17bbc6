// Package memory is an in-process transaction store for tests and the
// "memory" data backend.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"extrato/internal/core"
)

type Store struct {
	mu   sync.RWMutex
	rows map[string][]core.StoredTransaction // by owner
	now  func() time.Time

	// Fail, when set, is returned by every operation.
	Fail error
	// FailInsert, when set, decides per transaction whether Insert fails.
	FailInsert func(core.Transaction) error
}

func New() *Store {
	return &Store{rows: make(map[string][]core.StoredTransaction), now: time.Now}
}

// WithClock replaces the creation-time clock.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// ForOwner returns the owner-scoped view of the store.
func (s *Store) ForOwner(ownerID string) *OwnerStore {
	return &OwnerStore{store: s, owner: ownerID}
}

// OwnerStore scopes every operation to one owner.
type OwnerStore struct {
	store *Store
	owner string
}

func (o *OwnerStore) FindByKey(_ context.Context, key core.NaturalKey) ([]core.StoredTransaction, error) {
	s := o.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Fail != nil {
		return nil, s.Fail
	}
	var out []core.StoredTransaction
	for _, st := range s.rows[o.owner] {
		if st.Key() == key {
			out = append(out, st)
		}
	}
	return out, nil
}

func (o *OwnerStore) Insert(_ context.Context, tx core.Transaction) (core.StoredTransaction, error) {
	s := o.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return core.StoredTransaction{}, s.Fail
	}
	if s.FailInsert != nil {
		if err := s.FailInsert(tx); err != nil {
			return core.StoredTransaction{}, err
		}
	}
	key := tx.Key()
	for _, st := range s.rows[o.owner] {
		if st.Key() == key {
			return core.StoredTransaction{}, core.ErrDuplicateKey
		}
	}
	st := core.StoredTransaction{
		ID:          uuid.NewString(),
		OwnerID:     o.owner,
		CreatedAt:   s.now().UTC(),
		Transaction: tx,
	}
	s.rows[o.owner] = append(s.rows[o.owner], st)
	return st, nil
}

func (o *OwnerStore) MostRecent(_ context.Context) (*core.StoredTransaction, error) {
	s := o.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Fail != nil {
		return nil, s.Fail
	}
	rows := s.rows[o.owner]
	if len(rows) == 0 {
		return nil, nil
	}
	sorted := make([]core.StoredTransaction, len(rows))
	copy(sorted, rows)
	// Stable keeps insertion order as the last tie-breaker.
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date > sorted[j].Date
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	latest := sorted[0]
	for _, st := range sorted[1:] {
		if st.Date != latest.Date || !st.CreatedAt.Equal(latest.CreatedAt) {
			break
		}
		latest = st
	}
	return &latest, nil
}

func (o *OwnerStore) Count(_ context.Context) (int64, error) {
	s := o.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Fail != nil {
		return 0, s.Fail
	}
	return int64(len(s.rows[o.owner])), nil
}

// All returns a copy of everything stored for owner, in insertion order.
func (s *Store) All(owner string) []core.StoredTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.StoredTransaction(nil), s.rows[owner]...)
}
