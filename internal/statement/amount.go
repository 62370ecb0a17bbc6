package statement

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	errNotNumeric = errors.New("not a number")
	errZeroAmount = errors.New("amount is zero")
	errBelowCent  = errors.New("amount is below one cent")
)

// Longest tokens first so "US$" is removed before "$".
var currencyTokens = []string{"R$", "US$", "BRL", "USD", "EUR", "$", "€", "£"}

var numericPattern = regexp.MustCompile(`^[+-]?[0-9][0-9.,]*$`)

// ParseAmount parses a locale-formatted money value such as "R$ 1.234,56" or
// "-50,00". Comma is the decimal separator; dots are thousands separators.
// The result is signed and rounded half away from zero to cents. Zero and
// non-numeric input fail, and so does a non-zero value that rounds to 0.00:
// stores keep whole cents and would otherwise record nothing.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
		s = strings.ReplaceAll(s, strings.ToLower(tok), "")
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSuffix(s, "-")
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	} else {
		s = strings.TrimPrefix(s, "+")
	}
	if !numericPattern.MatchString(s) {
		return decimal.Zero, errNotNumeric
	}

	normalized, ok := normalizeSeparators(s)
	if !ok {
		return decimal.Zero, errNotNumeric
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, errNotNumeric
	}
	if d.IsZero() {
		return decimal.Zero, errZeroAmount
	}
	d = d.Round(2)
	if d.IsZero() {
		return decimal.Zero, errBelowCent
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

func normalizeSeparators(s string) (string, bool) {
	switch commas := strings.Count(s, ","); {
	case commas > 1:
		return "", false
	case commas == 1:
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1), true
	}
	dots := strings.Count(s, ".")
	if dots > 1 {
		return strings.ReplaceAll(s, ".", ""), true
	}
	if dots == 1 {
		// "1.234" is a thousands group in pt-BR formatting.
		if i := strings.IndexByte(s, '.'); len(s)-i-1 == 3 {
			return strings.Replace(s, ".", "", 1), true
		}
	}
	return s, true
}
