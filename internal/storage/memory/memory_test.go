package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extrato/internal/core"
)

func tx(date, amount, desc string) core.Transaction {
	return core.Transaction{
		Date:        date,
		Direction:   core.Debit,
		Amount:      decimal.RequireFromString(amount),
		Description: desc,
	}
}

func TestStore_MostRecentTieBreaks(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time { return fixed })
	o := s.ForOwner("o")

	_, err := o.Insert(ctx, tx("2024-06-10", "1", "first"))
	require.NoError(t, err)
	_, err = o.Insert(ctx, tx("2024-06-10", "2", "second"))
	require.NoError(t, err)
	_, err = o.Insert(ctx, tx("2024-05-10", "3", "older"))
	require.NoError(t, err)

	latest, err := o.MostRecent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", latest.Description)
}

func TestStore_DuplicateAndFailures(t *testing.T) {
	ctx := context.Background()
	s := New()
	o := s.ForOwner("o")

	_, err := o.Insert(ctx, tx("2024-06-10", "1.005", "x"))
	require.NoError(t, err)
	_, err = o.Insert(ctx, tx("2024-06-10", "1.01", "x"))
	assert.ErrorIs(t, err, core.ErrDuplicateKey)

	boom := errors.New("boom")
	s.Fail = boom
	_, err = o.Count(ctx)
	assert.ErrorIs(t, err, boom)
	_, err = o.MostRecent(ctx)
	assert.ErrorIs(t, err, boom)
}
