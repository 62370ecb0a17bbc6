package statement

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"extrato/internal/core"
)

var (
	dayMonthYearSlash = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	yearMonthDayDash  = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	dayMonthYearDash  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})\b`)
)

// Generic layouts tried after the locale patterns.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02.01.2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon Jan 2 2006",
	"Mon, 02 Jan 2006",
}

// NormalizeDate rewrites s to YYYY-MM-DD. It tries DD/MM/YYYY, YYYY-MM-DD and
// DD-MM-YYYY in that order, then a set of generic layouts.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if m := dayMonthYearSlash.FindStringSubmatch(s); m != nil {
		if out, ok := calendarDate(m[3], m[2], m[1]); ok {
			return out, true
		}
	}
	if m := yearMonthDayDash.FindStringSubmatch(s); m != nil {
		if out, ok := calendarDate(m[1], m[2], m[3]); ok {
			return out, true
		}
	}
	if m := dayMonthYearDash.FindStringSubmatch(s); m != nil {
		if out, ok := calendarDate(m[3], m[2], m[1]); ok {
			return out, true
		}
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(core.DateLayout), true
		}
	}
	return "", false
}

func calendarDate(year, month, day string) (string, bool) {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d), true
}
