package compiler

import (
	"strings"

	"github.com/wildfly/cmpql/dialect"
)

// fragment is a piece of SQL together with the descriptors of the
// placeholders it contains, in textual order.
type fragment struct {
	sb     strings.Builder
	params []Parameter
}

func text(s ...string) *fragment {
	f := &fragment{}
	f.write(s...)
	return f
}

func (f *fragment) write(s ...string) *fragment {
	for _, v := range s {
		f.sb.WriteString(v)
	}
	return f
}

func (f *fragment) param(p Parameter) *fragment {
	f.sb.WriteByte('?')
	f.params = append(f.params, p)
	return f
}

func (f *fragment) append(g *fragment) *fragment {
	f.sb.WriteString(g.sb.String())
	f.params = append(f.params, g.params...)
	return f
}

func (f *fragment) String() string { return f.sb.String() }

func (f *fragment) empty() bool { return f.sb.Len() == 0 }

// join concatenates frags with sep between them.
func join(frags []*fragment, sep string) *fragment {
	out := &fragment{}
	for i, g := range frags {
		if i > 0 {
			out.write(sep)
		}
		out.append(g)
	}
	return out
}

// conjunction joins frags with AND, parenthesized when there is more
// than one.
func conjunction(frags []*fragment) *fragment {
	if len(frags) == 1 {
		return frags[0]
	}
	return text("(").append(join(frags, " AND ")).write(")")
}

// render substitutes args into t. An argument referenced twice repeats
// its placeholders, and their descriptors, twice.
func render(t *dialect.Template, args []*fragment) *fragment {
	out := &fragment{}
	for _, p := range t.Parts() {
		if p.Arg < 0 {
			out.write(p.Text)
			continue
		}
		out.append(args[p.Arg])
	}
	return out
}
