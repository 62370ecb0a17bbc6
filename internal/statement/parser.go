package statement

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"extrato/internal/core"
)

// Parser converts statement rows into canonical transactions.
type Parser struct {
	aliases     Aliases
	strictDates bool
	now         func() time.Time
}

type Option func(*Parser)

// WithAliases replaces the alias table.
func WithAliases(a Aliases) Option {
	return func(p *Parser) { p.aliases = a }
}

// WithStrictDates rejects rows whose date cannot be parsed instead of
// stamping them with the processing date.
func WithStrictDates(strict bool) Option {
	return func(p *Parser) { p.strictDates = strict }
}

// WithClock sets the clock used for the processing-date fallback.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{
		aliases: DefaultAliases(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Columns resolves the header row once so a batch can reuse it.
func (p *Parser) Columns(headers []string) Columns {
	return ResolveColumns(headers, p.aliases)
}

// Parse resolves columns from headers and parses row.
func (p *Parser) Parse(headers, row []string, rowNumber int) (*core.Transaction, error) {
	return p.ParseRow(p.Columns(headers), headers, row, rowNumber)
}

// ParseRow parses one data row. rowNumber is the 1-based spreadsheet row and is
// kept only for audit. A rejected row yields a *core.RowParseError.
func (p *Parser) ParseRow(cols Columns, headers, row []string, rowNumber int) (*core.Transaction, error) {
	dateText := cell(row, cols.Index(FieldDate))
	amountText := cell(row, cols.Index(FieldAmount))
	description := cell(row, cols.Index(FieldDescription))

	var missing []string
	if dateText == "" {
		missing = append(missing, "date")
	}
	if amountText == "" {
		missing = append(missing, "amount")
	}
	if description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return nil, &core.RowParseError{Reason: "missing required field(s): " + strings.Join(missing, ", ")}
	}

	amount, err := ParseAmount(amountText)
	if err != nil {
		return nil, &core.RowParseError{Reason: fmt.Sprintf("invalid amount %q: %v", amountText, err)}
	}

	direction := core.Credit
	if strings.Contains(Fold(cell(row, cols.Index(FieldDirection))), "debito") || amount.IsNegative() {
		direction = core.Debit
	}

	date, ok := NormalizeDate(dateText)
	if !ok {
		if p.strictDates {
			return nil, &core.RowParseError{Reason: fmt.Sprintf("invalid date %q", dateText)}
		}
		date = p.now().Format(core.DateLayout)
		slog.Warn("Unparseable date, using processing date",
			"row", rowNumber,
			"value", dateText,
			"date", date)
	}

	tx := &core.Transaction{
		Date:        date,
		Direction:   direction,
		Amount:      amount.Abs(),
		Description: description,
		Message:     cell(row, cols.Index(FieldMessage)),
		Document:    cell(row, cols.Index(FieldDocument)),
		Counterparty: core.Counterparty{
			Role:    cell(row, cols.Index(FieldCounterpartyRole)),
			Name:    cell(row, cols.Index(FieldCounterpartyName)),
			Bank:    cell(row, cols.Index(FieldCounterpartyBank)),
			Branch:  cell(row, cols.Index(FieldCounterpartyBranch)),
			Account: cell(row, cols.Index(FieldCounterpartyAccount)),
		},
		ExternalID: cell(row, cols.Index(FieldExternalID)),
		Raw: core.RawPayload{
			Headers:   append([]string(nil), headers...),
			Row:       append([]string(nil), row...),
			RowNumber: rowNumber,
		},
	}
	if err := tx.Validate(); err != nil {
		return nil, &core.RowParseError{Reason: err.Error()}
	}
	return tx, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
