//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extrato/internal/core"
)

// Run with: DATABASE_URL=postgres://... go test -tags=integration ./internal/storage/postgres
func TestIntegration_TransactionStore(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := Open(ctx, url)
	require.NoError(t, err)
	defer repo.Close()

	store := repo.ForOwner("it-" + uuid.NewString())
	tx := core.Transaction{
		Date:        "2024-06-07",
		Direction:   core.Credit,
		Amount:      decimal.RequireFromString("150.00"),
		Description: "Honorários recebidos",
		Raw:         core.RawPayload{Headers: []string{"Data"}, Row: []string{"07/06/2024"}, RowNumber: 2},
	}

	saved, err := store.Insert(ctx, tx)
	require.NoError(t, err)

	matches, err := store.FindByKey(ctx, tx.Key())
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, saved.ID, matches[0].ID)
	assert.Equal(t, tx.Raw, matches[0].Raw)

	_, err = store.Insert(ctx, tx)
	assert.ErrorIs(t, err, core.ErrDuplicateKey)

	latest, err := store.MostRecent(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2024-06-07", latest.Date)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
