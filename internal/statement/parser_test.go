package statement

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extrato/internal/core"
)

var headers = []string{"Data", "Valor", "Descrição", "Crédito/Débito"}

func fixedClock() time.Time {
	return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
}

func TestParser_EndToEndRow(t *testing.T) {
	p := NewParser()
	tx, err := p.Parse(headers, []string{"07/06/2024", "150,00", "Honorários recebidos", "Crédito"}, 2)
	require.NoError(t, err)

	assert.Equal(t, "2024-06-07", tx.Date)
	assert.Equal(t, core.Credit, tx.Direction)
	assert.Equal(t, "150.00", tx.Amount.StringFixed(2))
	assert.Equal(t, "Honorários recebidos", tx.Description)
	assert.Equal(t, headers, tx.Raw.Headers)
	assert.Equal(t, 2, tx.Raw.RowNumber)
	assert.Len(t, tx.Raw.Row, 4)
}

func TestParser_Direction(t *testing.T) {
	p := NewParser()
	cases := []struct {
		name      string
		amount    string
		direction string
		want      core.Direction
		wantAmt   string
	}{
		{"credit column", "10,00", "Crédito", core.Credit, "10.00"},
		{"debit column", "10,00", "Débito", core.Debit, "10.00"},
		{"debit column unaccented", "10,00", "DEBITO", core.Debit, "10.00"},
		{"negative amount", "-50,00", "", core.Debit, "50.00"},
		{"negative amount with credit label", "-50,00", "Crédito", core.Debit, "50.00"},
		{"no direction column value", "7,5", "", core.Credit, "7.50"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx, err := p.Parse(headers, []string{"07/06/2024", tc.amount, "x", tc.direction}, 2)
			require.NoError(t, err)
			assert.Equal(t, tc.want, tx.Direction)
			assert.Equal(t, tc.wantAmt, tx.Amount.StringFixed(2))
			assert.True(t, tx.Amount.IsPositive())
		})
	}
}

func TestParser_RejectsMissingRequiredFields(t *testing.T) {
	p := NewParser()
	rows := [][]string{
		{"", "150,00", "desc", "Crédito"},
		{"07/06/2024", "", "desc", "Crédito"},
		{"07/06/2024", "150,00", "   ", "Crédito"},
		{"07/06/2024"},
		{},
	}
	for _, row := range rows {
		tx, err := p.Parse(headers, row, 3)
		assert.Nil(t, tx)
		var perr *core.RowParseError
		require.True(t, errors.As(err, &perr), "row %v should be rejected, got %v", row, err)
		assert.Contains(t, perr.Reason, "missing required field")
	}
}

func TestParser_RejectsBadAmounts(t *testing.T) {
	p := NewParser()
	for _, amount := range []string{"0", "0,00", "abc", "R$ -", "1,2,3"} {
		tx, err := p.Parse(headers, []string{"07/06/2024", amount, "desc", ""}, 2)
		assert.Nil(t, tx, "amount %q", amount)
		var perr *core.RowParseError
		assert.True(t, errors.As(err, &perr), "amount %q: expected RowParseError, got %v", amount, err)
	}
}

func TestParser_LongAccentedDescription(t *testing.T) {
	p := NewParser()
	for _, desc := range []string{strings.Repeat("ç", 300), strings.Repeat("a", 501)} {
		tx, err := p.Parse(headers, []string{"07/06/2024", "10,00", desc, ""}, 2)
		require.NoError(t, err)
		assert.Equal(t, desc, tx.Description)
	}
}

func TestParser_SubCentAmountRejected(t *testing.T) {
	tx, err := NewParser().Parse(headers, []string{"07/06/2024", "0,004", "tarifa", ""}, 2)
	assert.Nil(t, tx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "below one cent")
}

func TestParser_MissingHeadersRejectEveryRow(t *testing.T) {
	p := NewParser()
	_, err := p.Parse([]string{"Foo", "Bar"}, []string{"07/06/2024", "10,00"}, 2)
	require.Error(t, err)
}

func TestParser_DateFallback(t *testing.T) {
	lenient := NewParser(WithClock(fixedClock))
	tx, err := lenient.Parse(headers, []string{"ontem", "10,00", "x", ""}, 2)
	require.NoError(t, err)
	assert.Equal(t, "2024-07-01", tx.Date)

	strict := NewParser(WithClock(fixedClock), WithStrictDates(true))
	_, err = strict.Parse(headers, []string{"ontem", "10,00", "x", ""}, 2)
	var perr *core.RowParseError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Reason, "invalid date")
}

func TestParser_OptionalFields(t *testing.T) {
	hdrs := []string{
		"Data Lançamento", "Descrição", "Valor (R$)", "Mensagem", "Documento",
		"Tipo de Participante", "Nome", "Banco", "Agência", "Conta", "Identificador",
	}
	row := []string{
		"2024-06-07", "PIX recebido", "R$ 1.234,56", "ref jun", "123.456.789-00",
		"Pagador", "Maria Silva", "Banco X", "0001", "12345-6", "E123",
	}
	tx, err := NewParser().Parse(hdrs, row, 5)
	require.NoError(t, err)

	assert.Equal(t, "1234.56", tx.Amount.StringFixed(2))
	assert.Equal(t, "ref jun", tx.Message)
	assert.Equal(t, "123.456.789-00", tx.Document)
	assert.Equal(t, core.Counterparty{
		Role: "Pagador", Name: "Maria Silva", Bank: "Banco X", Branch: "0001", Account: "12345-6",
	}, tx.Counterparty)
	assert.Equal(t, "E123", tx.ExternalID)
}

func TestParser_DescriptionFallsBackToMessage(t *testing.T) {
	tx, err := NewParser().Parse([]string{"Data", "Valor", "Mensagem"}, []string{"07/06/2024", "5,00", "Pix do João"}, 2)
	require.NoError(t, err)
	assert.Equal(t, "Pix do João", tx.Description)
	assert.Equal(t, "Pix do João", tx.Message)
}

func TestParser_CustomAliases(t *testing.T) {
	p := NewParser(WithAliases(DefaultAliases().Merge(Aliases{FieldAmount: {"montante"}})))
	tx, err := p.Parse([]string{"Data", "Montante", "Descrição"}, []string{"07/06/2024", "9,90", "x"}, 2)
	require.NoError(t, err)
	assert.Equal(t, "9.90", tx.Amount.StringFixed(2))
}
