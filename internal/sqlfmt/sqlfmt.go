// Package sqlfmt renders compiled SQL in a human-readable multi-line
// style. Major clauses begin on a new line and lists use leading-comma
// continuation. Text inside parentheses and string literals is left as is.
package sqlfmt

import (
	"strings"

	"github.com/wildfly/cmpql/internal/quoting"
)

type lineBreak struct {
	word    string
	replace string
}

var breaks = []lineBreak{
	{" FROM ", "\nFROM "},
	{" INNER JOIN ", "\nINNER JOIN "},
	{" LEFT OUTER JOIN ", "\nLEFT OUTER JOIN "},
	{" WHERE ", "\nWHERE "},
	{" ORDER BY ", "\nORDER BY "},
	{" FOR UPDATE", "\nFOR UPDATE"},
	{" AND ", "\n\tAND "},
	{" OR ", "\n\tOR "},
}

// Format returns sql over several lines. Compact undoes it.
func Format(sql string) string {
	var sb strings.Builder
	sb.Grow(len(sql) + 32)
	depth := 0
	between := false
	for i := 0; i < len(sql); {
		switch c := sql[i]; {
		case c == '\'':
			end := quoting.SkipLiteral(sql, i)
			sb.WriteString(sql[i:end])
			i = end
			continue
		case c == '(':
			depth++
		case c == ')':
			depth--
		case depth == 0 && c == ',':
			sb.WriteString("\n\t,")
			i++
			for i < len(sql) && sql[i] == ' ' {
				i++
			}
			continue
		case depth == 0 && c == ' ':
			if strings.HasPrefix(sql[i:], " BETWEEN ") {
				between = true
				break
			}
			if b, ok := matchBreak(sql[i:]); ok {
				if b.word == " AND " && between {
					between = false
					break
				}
				sb.WriteString(b.replace)
				i += len(b.word)
				continue
			}
		}
		sb.WriteByte(sql[i])
		i++
	}
	return sb.String()
}

func matchBreak(s string) (lineBreak, bool) {
	for _, b := range breaks {
		if strings.HasPrefix(s, b.word) {
			return b, true
		}
	}
	return lineBreak{}, false
}

// Compact reverses Format, joining lines back into single-line SQL.
func Compact(sql string) string {
	var sb strings.Builder
	sb.Grow(len(sql))
	for i := 0; i < len(sql); {
		switch sql[i] {
		case '\'':
			end := quoting.SkipLiteral(sql, i)
			sb.WriteString(sql[i:end])
			i = end
			continue
		case '\n':
			j := i + 1
			for j < len(sql) && sql[j] == '\t' {
				j++
			}
			if j < len(sql) && sql[j] == ',' {
				sb.WriteString(", ")
				i = j + 1
				continue
			}
			sb.WriteByte(' ')
			i = j
			continue
		}
		sb.WriteByte(sql[i])
		i++
	}
	return sb.String()
}
