package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extrato/internal/config"
	"extrato/internal/core"
	"extrato/internal/services"
	sheetsmem "extrato/internal/sheets/memory"
	"extrato/internal/sheets/xlsx"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:    "postgres",
		DatabaseURL:    "postgres://localhost/extrato",
		StatementTitle: "Extrato",
		StrictDates:    true,
	}
	bc, err := FromAppConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, PostgresBackend, bc.Type)
	assert.Equal(t, "Extrato", bc.StatementTitle)
	assert.True(t, bc.StrictDates)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)
	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{Type: "nope"}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.Error(t, Config{Type: PostgresBackend}.Validate())
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
}

func TestCreateBackend_MemoryPipeline(t *testing.T) {
	var outcomes []services.RowOutcome
	fetcher := sheetsmem.New(core.RawMatrix{
		{"Data", "Valor", "Descrição", "Crédito/Débito"},
		{"07/06/2024", "150,00", "Honorários recebidos", "Crédito"},
	})

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:     MemoryBackend,
		Fetcher:  fetcher,
		Observer: func(o services.RowOutcome) { outcomes = append(outcomes, o) },
	})
	require.NoError(t, err)
	defer res.Cleanup()

	assert.Nil(t, res.Publisher)

	sr, err := res.Processor.Run(context.Background(), "o", "tok", "")
	require.NoError(t, err)
	assert.Equal(t, 1, sr.NewTransactions)
	require.Len(t, outcomes, 1)
	assert.Equal(t, services.ParsedNew, outcomes[0].State)

	st := res.Status.Status(context.Background(), "o")
	assert.True(t, st.Connected)
	assert.Equal(t, int64(1), st.TotalTransactions)
}

func TestCreateBackend_SQLiteWithAliasesAndWorkbook(t *testing.T) {
	dir := t.TempDir()
	aliases := filepath.Join(dir, "aliases.yaml")
	require.NoError(t, os.WriteFile(aliases, []byte("description:\n  - histórico\n"), 0600))

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:              SQLiteBackend,
		SQLiteDBPath:      filepath.Join(dir, "extrato.db"),
		StatementFile:     filepath.Join(dir, "extrato.xlsx"),
		ColumnAliasesFile: aliases,
	})
	require.NoError(t, err)
	defer res.Cleanup()

	assert.IsType(t, &xlsx.Fetcher{}, res.Fetcher)
	require.NoError(t, res.Store.Ping(context.Background()))
}

func TestCreateBackend_BadAliasesFile(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:              MemoryBackend,
		ColumnAliasesFile: filepath.Join(t.TempDir(), "missing.yaml"),
	})
	assert.ErrorContains(t, err, "load column aliases")
}
