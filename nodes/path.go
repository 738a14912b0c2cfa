package nodes

import "strings"

// Path is a navigation path: a range variable followed by relationship
// and field names, as in o.customer.name.
type Path struct {
	Segments []string
}

func (*Path) node() {}

// P builds a path from its dotted form. Blank segments are dropped.
func P(dotted string) *Path {
	parts := strings.Split(dotted, ".")
	segs := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			segs = append(segs, s)
		}
	}
	return &Path{Segments: segs}
}

// Root returns the range variable the path starts from.
func (p *Path) Root() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[0]
}

// Len returns the number of segments.
func (p *Path) Len() int { return len(p.Segments) }

// String returns the dotted form of the path.
func (p *Path) String() string { return strings.Join(p.Segments, ".") }

// Eq creates p = val.
func (p *Path) Eq(val Node) *Comparison { return Compare(OpEq, p, val) }

// NotEq creates p <> val.
func (p *Path) NotEq(val Node) *Comparison { return Compare(OpNotEq, p, val) }

// Lt creates p < val.
func (p *Path) Lt(val Node) *Comparison { return Compare(OpLt, p, val) }

// LtEq creates p <= val.
func (p *Path) LtEq(val Node) *Comparison { return Compare(OpLtEq, p, val) }

// Gt creates p > val.
func (p *Path) Gt(val Node) *Comparison { return Compare(OpGt, p, val) }

// GtEq creates p >= val.
func (p *Path) GtEq(val Node) *Comparison { return Compare(OpGtEq, p, val) }

// Between creates p BETWEEN low AND high.
func (p *Path) Between(low, high Node) *Between {
	return &Between{Expr: p, Low: low, High: high}
}

// In creates p IN (values...).
func (p *Path) In(values ...Node) *In {
	return &In{Expr: p, Values: values}
}

// Like creates p LIKE pattern.
func (p *Path) Like(pattern Node) *Like {
	return &Like{Expr: p, Pattern: pattern}
}

// IsNull creates p IS NULL.
func (p *Path) IsNull() *IsNull { return &IsNull{Expr: p} }

// IsNotNull creates p IS NOT NULL.
func (p *Path) IsNotNull() *IsNull { return &IsNull{Expr: p, Not: true} }

// IsEmpty creates p IS EMPTY.
func (p *Path) IsEmpty() *IsEmpty { return &IsEmpty{Path: p} }

// IsNotEmpty creates p IS NOT EMPTY.
func (p *Path) IsNotEmpty() *IsEmpty { return &IsEmpty{Path: p, Not: true} }

// Asc creates an ascending ORDER BY item.
func (p *Path) Asc() *OrderItem { return &OrderItem{Path: p} }

// Desc creates a descending ORDER BY item.
func (p *Path) Desc() *OrderItem { return &OrderItem{Path: p, Desc: true} }
