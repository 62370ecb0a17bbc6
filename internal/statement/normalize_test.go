package statement

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"07/06/2024", "2024-06-07", true},
		{"2024-06-07", "2024-06-07", true},
		{"07-06-2024", "2024-06-07", true},
		{"7/6/2024", "2024-06-07", true},
		{" 07/06/2024 10:32 ", "2024-06-07", true},
		{"2024-06-07T10:00:00Z", "2024-06-07", true},
		{"2024/06/07", "2024-06-07", true},
		{"07.06.2024", "2024-06-07", true},
		{"7 Jun 2024", "2024-06-07", true},
		{"31/02/2024", "", false},
		{"", "", false},
		{"ontem", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeDate(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"R$ 1.234,56", "1234.56", true},
		{"-50,00", "-50.00", true},
		{"150,00", "150.00", true},
		{"R$ 10,5", "10.50", true},
		{"1.234.567,89", "1234567.89", true},
		{"1234.56", "1234.56", true},
		{"1.234", "1234.00", true},
		{"(25,00)", "-25.00", true},
		{"25,00-", "-25.00", true},
		{"+3,00", "3.00", true},
		{"US$ 7,00", "7.00", true},
		{"0,005", "0.01", true},
		{"-0,005", "-0.01", true},
		{"0", "", false},
		{"0,001", "", false},
		{"abc", "", false},
		{"12abc", "", false},
		{"", "", false},
		{"1,2,3", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got.StringFixed(2), "input %q", tc.in)
	}
}

func TestParseAmount_ZeroAndSubCentAreDistinct(t *testing.T) {
	for _, in := range []string{"0", "0,00", "-0,00", "R$ 0"} {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, errZeroAmount, "input %q", in)
	}
	for _, in := range []string{"0,004", "0,001", "-0,0049"} {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, errBelowCent, "input %q", in)
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "descricao", Fold(" Descrição "))
	assert.Equal(t, "credito/debito", Fold("CRÉDITO/DÉBITO"))
	assert.Equal(t, "agencia", Fold("Agência"))
}

func TestResolveField(t *testing.T) {
	hdrs := []string{"Mensagem", "Data do Pagamento", "Descricao", "Valor"}
	assert.Equal(t, 1, ResolveField(hdrs, []string{"data"}))
	// Alias priority beats header order.
	assert.Equal(t, 2, ResolveField(hdrs, []string{"descrição", "mensagem"}))
	assert.Equal(t, 0, ResolveField(hdrs, []string{"mensagem"}))
	assert.Equal(t, -1, ResolveField(hdrs, []string{"crédito"}))
	assert.Equal(t, -1, ResolveField(nil, []string{"data"}))
}

func TestResolveColumns(t *testing.T) {
	cols := ResolveColumns([]string{"Data", "Valor", "Descrição", "Crédito/Débito"}, DefaultAliases())
	assert.Equal(t, 0, cols.Index(FieldDate))
	assert.Equal(t, 1, cols.Index(FieldAmount))
	assert.Equal(t, 2, cols.Index(FieldDescription))
	assert.Equal(t, 3, cols.Index(FieldDirection))
	assert.Equal(t, -1, cols.Index(FieldMessage))
	assert.Equal(t, -1, Columns{}.Index(FieldDate))
}

func TestLoadAliases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("amount: [montante, \" \"]\ndate: [\"dt. lançamento\"]\n"), 0o644))

	got, err := LoadAliases(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"montante"}, got[FieldAmount])
	assert.Equal(t, []string{"dt. lançamento"}, got[FieldDate])

	merged := DefaultAliases().Merge(got)
	assert.Equal(t, []string{"montante", "valor"}, merged[FieldAmount])
	assert.Equal(t, []string{"valor"}, DefaultAliases()[FieldAmount], "defaults must not be mutated")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("saldo: [saldo]\n"), 0o644))
	_, err = LoadAliases(bad)
	assert.ErrorContains(t, err, "unknown field")

	_, err = LoadAliases(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
