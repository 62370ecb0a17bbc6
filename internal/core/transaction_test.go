package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Date:        "2024-06-07",
		Direction:   Credit,
		Amount:      decimal.RequireFromString("150.00"),
		Description: "Honorários recebidos",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		mut  func(*Transaction)
		want error
	}{
		{"bad date", func(tx *Transaction) { tx.Date = "07/06/2024" }, ErrInvalidDate},
		{"no direction", func(tx *Transaction) { tx.Direction = "" }, ErrInvalidDirection},
		{"zero amount", func(tx *Transaction) { tx.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-5) }, ErrInvalidAmount},
		{"sub-cent amount", func(tx *Transaction) { tx.Amount = decimal.RequireFromString("0.001") }, ErrInvalidAmount},
		{"blank description", func(tx *Transaction) { tx.Description = "   " }, ErrEmptyDescription},
	}
	for _, tc := range cases {
		tx := good
		tc.mut(&tx)
		if err := tx.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestTransactionValidate_LongDescriptions(t *testing.T) {
	for _, desc := range []string{strings.Repeat("ç", 300), strings.Repeat("x", 2000)} {
		tx := Transaction{Date: "2024-06-07", Direction: Debit, Amount: AmountFromCents(1000), Description: desc}
		if err := tx.Validate(); err != nil {
			t.Fatalf("description of %d bytes: unexpected error %v", len(desc), err)
		}
	}
}

func TestTransactionKeyUsesCents(t *testing.T) {
	a := Transaction{Date: "2024-06-07", Amount: decimal.RequireFromString("150"), Description: "x"}
	b := Transaction{Date: "2024-06-07", Amount: decimal.RequireFromString("150.00"), Description: "x"}
	if a.Key() != b.Key() {
		t.Fatalf("expected equal keys, got %+v and %+v", a.Key(), b.Key())
	}
	if a.Key().AmountCents != 15000 {
		t.Fatalf("expected 15000 cents, got %d", a.Key().AmountCents)
	}
}

func TestRawMatrixSplit(t *testing.T) {
	m := RawMatrix{{"Data", "Valor"}, {"07/06/2024", "1,00"}, {"08/06/2024", "2,00"}}
	if got := m.Headers(); len(got) != 2 || got[0] != "Data" {
		t.Fatalf("unexpected headers: %v", got)
	}
	if got := m.DataRows(); len(got) != 2 {
		t.Fatalf("expected 2 data rows, got %d", len(got))
	}
	if RawMatrix(nil).Headers() != nil || (RawMatrix{{"h"}}).DataRows() != nil {
		t.Fatal("expected nil for short matrices")
	}
}

func TestRowErrorFormat(t *testing.T) {
	got := RowError(4, &RowParseError{Reason: "missing amount"})
	if got != "Row 4: missing amount" {
		t.Fatalf("unexpected message: %q", got)
	}
	storeErr := &RowStoreError{Err: errors.New("sqlite: disk I/O error (/var/lib/extrato/extrato.db)")}
	if !strings.Contains(storeErr.Error(), "disk I/O error") {
		t.Fatalf("Error() should keep the cause for logs: %q", storeErr.Error())
	}
	if got := RowError(2, storeErr); got != "Row 2: could not store transaction" {
		t.Fatalf("database text leaked into row error: %q", got)
	}
	dup := &RowStoreError{Err: fmt.Errorf("insert: %w", ErrDuplicateKey)}
	if got := RowError(3, dup); got != "Row 3: "+ErrDuplicateKey.Error() {
		t.Fatalf("unexpected duplicate message: %q", got)
	}
}

func TestFetchErrorMessage(t *testing.T) {
	raw := errors.New(`googleapi: Error 500: backend error, details: {"project":"acme-prod-1234"}`)
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: get values: %w", ErrAuth, raw), ErrAuth.Error()},
		{fmt.Errorf("%w: get metadata: %w", ErrNotFound, raw), ErrNotFound.Error()},
		{fmt.Errorf("%w: get values: %w", ErrRejected, raw), ErrRejected.Error()},
		{ErrEmptySheet, ErrEmptySheet.Error()},
		{fmt.Errorf("fetch: %w", ErrInsufficientData), ErrInsufficientData.Error()},
		{fmt.Errorf("get values: %w", context.DeadlineExceeded), "spreadsheet fetch timed out or was cancelled"},
		{fmt.Errorf("get values: %w", raw), "could not read the spreadsheet, try again later"},
	}
	for _, tc := range cases {
		got := FetchErrorMessage(tc.err)
		if got != tc.want {
			t.Errorf("FetchErrorMessage(%v) = %q, want %q", tc.err, got, tc.want)
		}
		if strings.Contains(got, "acme-prod") {
			t.Errorf("backend detail leaked: %q", got)
		}
	}
}

func TestNewTransactionViewFormatsAmount(t *testing.T) {
	v := NewTransactionView(StoredTransaction{
		ID:          "id-1",
		Transaction: Transaction{Date: "2024-06-07", Direction: Debit, Amount: AmountFromCents(5000), Description: "x"},
	})
	if v.Amount.String() != "50.00" {
		t.Fatalf("expected 50.00, got %s", v.Amount)
	}
	if v.Direction != "Debit" {
		t.Fatalf("expected Debit label, got %s", v.Direction)
	}
}
