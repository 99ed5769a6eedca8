// Package table provides the in-memory tabular model shared by the web UI,
// the CLI, and the query engine: an ordered set of named columns with
// positionally aligned rows, plus conversions from record-shaped values.
package table

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Table is an ordered collection of named columns with positionally aligned
// rows. Tables are not mutated after construction; a new upload produces a
// new Table.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// New builds a Table and validates row width against the column set.
func New(name string, columns []string, rows [][]any) (*Table, error) {
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(r), len(columns))
		}
	}
	return &Table{Name: name, Columns: columns, Rows: rows}, nil
}

// NumRows reports the row count.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumColumns reports the column count.
func (t *Table) NumColumns() int { return len(t.Columns) }

// Cell formats the value at (row, col) for display. Strings pass through
// unchanged; json.Number keeps its exact textual form.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return FormatValue(t.Rows[row][col])
}

// FormatValue renders a single cell value as text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		// Trim the default exponent formatting for round numbers.
		return strings.TrimSuffix(fmt.Sprintf("%v", x), ".0")
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Text renders the table as an aligned plain-text grid, used by the CLI.
func (t *Table) Text() string {
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = len(c)
	}
	cells := make([][]string, len(t.Rows))
	for ri, row := range t.Rows {
		cells[ri] = make([]string, len(row))
		for ci := range row {
			s := FormatValue(row[ci])
			cells[ri][ci] = s
			if ci < len(widths) && len(s) > widths[ci] {
				widths[ci] = len(s)
			}
		}
	}
	var b strings.Builder
	writeRow := func(vals []string) {
		for i := range widths {
			if i > 0 {
				b.WriteString("  ")
			}
			v := ""
			if i < len(vals) {
				v = vals[i]
			}
			b.WriteString(v)
			if pad := widths[i] - len(v); pad > 0 {
				b.WriteString(strings.Repeat(" ", pad))
			}
		}
		b.WriteString("\n")
	}
	writeRow(t.Columns)
	sep := make([]string, len(t.Columns))
	for i := range sep {
		sep[i] = strings.Repeat("-", widths[i])
	}
	writeRow(sep)
	for _, row := range cells {
		writeRow(row)
	}
	return b.String()
}
