package google

import (
	"fmt"
	"strings"

	"extrato/internal/core"
)

// toMatrix converts a values matrix (as returned by Sheets API) into text cells.
func toMatrix(values [][]interface{}) core.RawMatrix {
	out := make(core.RawMatrix, len(values))
	for i, row := range values {
		out[i] = toStrings(row)
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// quoteRange returns 'tab'!A1:Z1000 with embedded quotes doubled.
func quoteRange(tab string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(tab, "'", "''"), fallbackRangeCells)
}

// escapeQuery escapes a literal for a Drive files.list query.
func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
