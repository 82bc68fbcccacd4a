// Package table reads and appends rows of a spreadsheet holding the 3-row schema header and the
// extracted data rows under it.
package table

import (
	"context"
	"fmt"
	"strconv"
)

// Row offsets of the schema convention. Data rows start at DataRow.
const (
	AltNamesRow = 0
	RulesRow    = 1
	HeaderRow   = 2
	DataRow     = 3
)

// Source is a rectangular grid of cells. Rows may be ragged; missing cells read as "".
type Source interface {
	Rows(ctx context.Context) ([][]string, error)
	AppendRows(ctx context.Context, rows [][]any) error
}

// cellString renders a decoded cell value as it appears in the sheet.
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
