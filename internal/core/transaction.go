package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO-8601 calendar date layout every stored date uses.
const DateLayout = "2006-01-02"

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

type (
	Direction string

	// RawMatrix is a row-major cell matrix. Row 0 holds the headers.
	RawMatrix [][]string

	// Counterparty describes the other side of a bank movement. Every field is best-effort.
	Counterparty struct {
		Role    string
		Name    string
		Bank    string
		Branch  string
		Account string
	}

	// RawPayload keeps the source row for audit.
	RawPayload struct {
		Headers   []string `json:"headers"`
		Row       []string `json:"row"`
		RowNumber int      `json:"rowNumber"`
	}

	// Transaction is one normalized bank movement. Amount is always positive;
	// the sign lives in Direction.
	Transaction struct {
		Date         string
		Direction    Direction
		Amount       decimal.Decimal
		Description  string
		Message      string
		Document     string
		Counterparty Counterparty
		ExternalID   string
		Raw          RawPayload
	}

	// NaturalKey identifies an economic event when the source has no stable id.
	NaturalKey struct {
		Date        string
		AmountCents int64
		Description string
	}

	// StoredTransaction is a Transaction as persisted by a store.
	StoredTransaction struct {
		ID        string
		OwnerID   string
		CreatedAt time.Time
		Transaction
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrEmptyDescription = errors.New("empty description")
)

func (d Direction) Valid() bool {
	return d == Credit || d == Debit
}

// Label returns the display form used in API payloads.
func (d Direction) Label() string {
	switch d {
	case Credit:
		return "Credit"
	case Debit:
		return "Debit"
	default:
		return string(d)
	}
}

// Headers returns the header row, or nil for an empty matrix.
func (m RawMatrix) Headers() []string {
	if len(m) == 0 {
		return nil
	}
	return m[0]
}

// DataRows returns every row after the header.
func (m RawMatrix) DataRows() [][]string {
	if len(m) < 2 {
		return nil
	}
	return m[1:]
}

// AmountCents converts the amount to integer cents, rounding half away from zero.
func (t Transaction) AmountCents() int64 {
	return t.Amount.Round(2).Shift(2).IntPart()
}

func (t Transaction) Key() NaturalKey {
	return NaturalKey{
		Date:        t.Date,
		AmountCents: t.AmountCents(),
		Description: t.Description,
	}
}

func (t Transaction) Validate() error {
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		return ErrInvalidDate
	}
	if !t.Direction.Valid() {
		return ErrInvalidDirection
	}
	if !t.Amount.IsPositive() || t.AmountCents() <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	return nil
}

// AmountFromCents builds a decimal amount from integer cents.
func AmountFromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
