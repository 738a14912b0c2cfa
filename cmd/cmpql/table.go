package main

import (
	"fmt"
	"strings"

	"github.com/wildfly/cmpql/runner"
)

// formatRows renders query results as an ASCII table followed by the
// row count.
func formatRows(rows *runner.Rows, maxRows int) string {
	out := formatTable(rows.Columns, rows.Strings())
	if rows.Truncated {
		out += fmt.Sprintf("(truncated at %d rows)\n", maxRows)
	}
	return out
}

func formatTable(columns []string, rows [][]string) string {
	if len(columns) == 0 {
		return "(0 rows)\n"
	}

	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	sep := buildSeparator(widths)

	b.WriteString(sep)
	writeRow(&b, widths, columns)
	b.WriteString(sep)
	for _, row := range rows {
		writeRow(&b, widths, row)
	}
	b.WriteString(sep)

	if n := len(rows); n == 1 {
		b.WriteString("(1 row)\n")
	} else {
		fmt.Fprintf(&b, "(%d rows)\n", n)
	}
	return b.String()
}

func writeRow(b *strings.Builder, widths []int, cells []string) {
	b.WriteByte('|')
	for i, cell := range cells {
		fmt.Fprintf(b, " %-*s |", widths[i], cell)
	}
	b.WriteByte('\n')
}

func buildSeparator(widths []int) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2))
		b.WriteByte('+')
	}
	b.WriteByte('\n')
	return b.String()
}
