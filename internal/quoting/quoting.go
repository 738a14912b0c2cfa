// Package quoting provides shared SQL string literal utilities.
package quoting

import "strings"

// EscapeString escapes a string literal body for SQL by doubling single
// quotes. When backslashes is set, backslashes are doubled as well, for
// servers that treat them as escape characters (MySQL).
func EscapeString(s string, backslashes bool) string {
	if backslashes {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return strings.ReplaceAll(s, "'", "''")
}

// Literal returns s as a quoted SQL string literal.
func Literal(s string, backslashes bool) string {
	return "'" + EscapeString(s, backslashes) + "'"
}

// Unquote strips the surrounding single quotes from a query-language
// string token and collapses doubled quotes. Input that is not quoted is
// returned unchanged.
func Unquote(s string) string {
	if len(s) < 2 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return s
	}
	return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
}

// SkipLiteral returns the index just past the string literal that starts
// at sql[i], which must be a single quote. Doubled quotes inside the
// literal do not terminate it. An unterminated literal extends to the end.
func SkipLiteral(sql string, i int) int {
	for j := i + 1; j < len(sql); j++ {
		if sql[j] != '\'' {
			continue
		}
		if j+1 < len(sql) && sql[j+1] == '\'' {
			j++
			continue
		}
		return j + 1
	}
	return len(sql)
}
