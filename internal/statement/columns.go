// Package statement turns raw bank-statement rows into canonical transactions.
//
// Column lookup is heuristic: a logical field is found by substring match of
// known aliases against the folded (lower-cased, accent-stripped) header text.
// The lookup lives here, apart from the numeric and date logic, so new locale
// variants only touch the alias table.
package statement

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

type Field string

const (
	FieldDate                Field = "date"
	FieldDirection           Field = "direction"
	FieldAmount              Field = "amount"
	FieldDescription         Field = "description"
	FieldMessage             Field = "message"
	FieldDocument            Field = "document"
	FieldCounterpartyRole    Field = "counterparty_role"
	FieldCounterpartyName    Field = "counterparty_name"
	FieldCounterpartyBank    Field = "counterparty_bank"
	FieldCounterpartyBranch  Field = "counterparty_branch"
	FieldCounterpartyAccount Field = "counterparty_account"
	FieldExternalID          Field = "external_id"
)

// Fields lists every logical field in resolution order.
var Fields = []Field{
	FieldDate, FieldDirection, FieldAmount, FieldDescription,
	FieldMessage, FieldDocument,
	FieldCounterpartyRole, FieldCounterpartyName, FieldCounterpartyBank,
	FieldCounterpartyBranch, FieldCounterpartyAccount,
	FieldExternalID,
}

// Aliases maps a logical field to header substrings, highest priority first.
type Aliases map[Field][]string

// DefaultAliases returns the built-in alias table for Brazilian bank exports.
func DefaultAliases() Aliases {
	return Aliases{
		FieldDate:                {"data"},
		FieldDirection:           {"crédito/débito", "crédito", "débito", "c/d"},
		FieldAmount:              {"valor"},
		FieldDescription:         {"descrição", "mensagem"},
		FieldMessage:             {"mensagem"},
		FieldDocument:            {"documento", "cpf/cnpj"},
		FieldCounterpartyRole:    {"tipo de participante", "origem/destino", "participante"},
		FieldCounterpartyName:    {"nome", "pagador/recebedor"},
		FieldCounterpartyBank:    {"banco", "instituição"},
		FieldCounterpartyBranch:  {"agência"},
		FieldCounterpartyAccount: {"conta"},
		FieldExternalID:          {"identificador", "id da transação", "código"},
	}
}

// Merge returns a new table where extra aliases take priority over the receiver's.
func (a Aliases) Merge(extra Aliases) Aliases {
	out := make(Aliases, len(a))
	for f, list := range a {
		out[f] = append([]string(nil), list...)
	}
	for f, list := range extra {
		merged := make([]string, 0, len(list)+len(out[f]))
		merged = append(merged, list...)
		merged = append(merged, out[f]...)
		out[f] = merged
	}
	return out
}

// LoadAliases reads per-field alias overrides from a YAML file such as:
//
//	date: ["dt. lançamento"]
//	amount: [montante]
func LoadAliases(path string) (Aliases, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read aliases file: %w", err)
	}
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse aliases file: %w", err)
	}
	known := make(map[Field]struct{}, len(Fields))
	for _, f := range Fields {
		known[f] = struct{}{}
	}
	out := make(Aliases, len(raw))
	for name, list := range raw {
		f := Field(strings.TrimSpace(name))
		if _, ok := known[f]; !ok {
			return nil, fmt.Errorf("unknown field %q in aliases file", name)
		}
		for _, alias := range list {
			if alias = strings.TrimSpace(alias); alias != "" {
				out[f] = append(out[f], alias)
			}
		}
	}
	return out, nil
}

// Fold lower-cases s and strips diacritics, so "Descrição" and "descricao" compare equal.
func Fold(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, lower)
	if err != nil {
		return lower
	}
	return out
}

// Columns maps each logical field to a column index, or -1 when absent.
type Columns map[Field]int

// Index returns the column for f, or -1.
func (c Columns) Index(f Field) int {
	if i, ok := c[f]; ok {
		return i
	}
	return -1
}

// ResolveColumns locates every field in headers using the alias table.
func ResolveColumns(headers []string, aliases Aliases) Columns {
	folded := make([]string, len(headers))
	for i, h := range headers {
		folded[i] = Fold(h)
	}
	cols := make(Columns, len(Fields))
	for _, f := range Fields {
		cols[f] = resolveField(folded, aliases[f])
	}
	return cols
}

// ResolveField returns the first header containing the highest-priority alias, or -1.
func ResolveField(headers []string, aliases []string) int {
	folded := make([]string, len(headers))
	for i, h := range headers {
		folded[i] = Fold(h)
	}
	return resolveField(folded, aliases)
}

func resolveField(folded []string, aliases []string) int {
	for _, alias := range aliases {
		a := Fold(alias)
		if a == "" {
			continue
		}
		for i, h := range folded {
			if strings.Contains(h, a) {
				return i
			}
		}
	}
	return -1
}
