package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extrato/internal/core"
	storemem "extrato/internal/storage/memory"
)

func TestStatus_Empty(t *testing.T) {
	r := NewStatusReporter(storesFor(storemem.New()))

	st := r.Status(context.Background(), owner)
	assert.True(t, st.Connected)
	assert.Zero(t, st.TotalTransactions)
	assert.Nil(t, st.LastSync)
	assert.Nil(t, st.LastTransaction)
}

func TestStatus_AfterSync(t *testing.T) {
	clock := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	store := storemem.New().WithClock(func() time.Time { clock = clock.Add(time.Minute); return clock })
	p := newProcessor(core.RawMatrix{
		header,
		{"10/06/2024", "10,00", "later", "Crédito"},
		{"01/06/2024", "20,00", "earlier", "Débito"},
	}, store)
	_, err := p.Run(context.Background(), owner, "tok", "")
	require.NoError(t, err)

	st := NewStatusReporter(storesFor(store)).Status(context.Background(), owner)
	assert.True(t, st.Connected)
	assert.Equal(t, int64(2), st.TotalTransactions)
	require.NotNil(t, st.LastTransaction)
	assert.Equal(t, "later", st.LastTransaction.Description)
	assert.Equal(t, "Credit", st.LastTransaction.Direction)
	require.NotNil(t, st.LastSync)
	assert.Equal(t, time.Date(2024, 7, 1, 12, 1, 0, 0, time.UTC), *st.LastSync)
}

func TestStatus_StoreFailureNeverErrors(t *testing.T) {
	store := storemem.New()
	store.Fail = errors.New("connection refused")

	st := NewStatusReporter(storesFor(store)).Status(context.Background(), owner)
	assert.False(t, st.Connected)

	b, err := json.Marshal(st)
	require.NoError(t, err)
	assert.JSONEq(t, `{"connected":false,"lastSync":null,"totalTransactions":0,"lastTransaction":null}`, string(b))
}
