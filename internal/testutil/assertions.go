package testutil

import (
	"strings"
	"testing"

	"github.com/wildfly/cmpql/internal/quoting"
)

// AssertEqual checks that got == want and reports a descriptive error if not.
func AssertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Errorf("expected:\n  %v\ngot:\n  %v", want, got)
	}
}

// AssertSQL compares generated SQL with the expected text. Runs of
// whitespace outside string literals are collapsed on both sides so
// expectations may be wrapped over several lines.
func AssertSQL(t *testing.T, got, want string) {
	t.Helper()
	if g, w := squash(got), squash(want); g != w {
		t.Errorf("expected:\n  %s\ngot:\n  %s", w, g)
	}
}

// AssertContainsSQL checks that the generated SQL contains fragment after
// whitespace normalisation.
func AssertContainsSQL(t *testing.T, got, fragment string) {
	t.Helper()
	if g, f := squash(got), squash(fragment); !strings.Contains(g, f) {
		t.Errorf("expected SQL to contain:\n  %s\ngot:\n  %s", f, g)
	}
}

// CountPlaceholders counts the ? markers of sql that are not inside a
// string literal.
func CountPlaceholders(sql string) int {
	n := 0
	for i := 0; i < len(sql); {
		switch sql[i] {
		case '\'':
			i = quoting.SkipLiteral(sql, i)
		case '?':
			n++
			i++
		default:
			i++
		}
	}
	return n
}

// AssertPlaceholders fails the test unless sql carries exactly want
// placeholders.
func AssertPlaceholders(t *testing.T, sql string, want int) {
	t.Helper()
	if got := CountPlaceholders(sql); got != want {
		t.Errorf("expected %d placeholders, got %d in:\n  %s", want, got, sql)
	}
}

func squash(s string) string {
	var sb strings.Builder
	space := false
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\'':
			end := quoting.SkipLiteral(s, i)
			if space && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			space = false
			sb.WriteString(s[i:end])
			i = end
			continue
		case c == ' ' || c == '\n' || c == '\t' || c == '\r':
			space = true
		default:
			if space && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			space = false
			sb.WriteByte(c)
		}
		i++
	}
	return sb.String()
}
