package dialect

import (
	"fmt"
	"strings"
)

// Part is a piece of a parsed template: literal text, or a reference to
// a zero-based argument when Arg >= 0.
type Part struct {
	Text string
	Arg  int
}

// Template is a parsed SQL template. Arguments are referenced as ?1, ?2,
// and so on; an argument may appear any number of times.
type Template struct {
	source string
	parts  []Part
	arity  int
}

// ParseTemplate parses a template. A '?' must be followed by an argument
// number starting at 1.
func ParseTemplate(src string) (*Template, error) {
	t := &Template{source: src}
	var lit strings.Builder
	for i := 0; i < len(src); i++ {
		c := src[i]
		if c != '?' {
			lit.WriteByte(c)
			continue
		}
		j := i + 1
		n := 0
		for j < len(src) && src[j] >= '0' && src[j] <= '9' {
			n = n*10 + int(src[j]-'0')
			j++
		}
		if j == i+1 || n == 0 {
			return nil, fmt.Errorf("dialect: template %q: '?' at offset %d must be followed by an argument number from 1", src, i)
		}
		if lit.Len() > 0 {
			t.parts = append(t.parts, Part{Text: lit.String(), Arg: -1})
			lit.Reset()
		}
		t.parts = append(t.parts, Part{Arg: n - 1})
		if n > t.arity {
			t.arity = n
		}
		i = j - 1
	}
	if lit.Len() > 0 {
		t.parts = append(t.parts, Part{Text: lit.String(), Arg: -1})
	}
	return t, nil
}

// MustParseTemplate is like ParseTemplate but panics on error.
func MustParseTemplate(src string) *Template {
	t, err := ParseTemplate(src)
	if err != nil {
		panic(err)
	}
	return t
}

// Source returns the template text as written.
func (t *Template) Source() string { return t.source }

// Arity returns the highest argument number referenced.
func (t *Template) Arity() int { return t.arity }

// Parts returns the parsed pieces in order.
func (t *Template) Parts() []Part { return t.parts }

// Render substitutes args into the template.
func (t *Template) Render(args ...string) (string, error) {
	if len(args) < t.arity {
		return "", fmt.Errorf("dialect: template %q needs %d arguments, got %d", t.source, t.arity, len(args))
	}
	var sb strings.Builder
	for _, p := range t.parts {
		if p.Arg < 0 {
			sb.WriteString(p.Text)
		} else {
			sb.WriteString(args[p.Arg])
		}
	}
	return sb.String(), nil
}
