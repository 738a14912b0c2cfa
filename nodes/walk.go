package nodes

import "strconv"

// edge is a labelled link from a node to one of its children.
type edge struct {
	label string
	node  Node
}

// children returns the direct children of n in source order. Nil
// children are omitted.
func children(n Node) []edge {
	var out []edge
	add := func(label string, c Node) {
		if c == nil {
			return
		}
		switch v := c.(type) {
		case *Path:
			if v == nil {
				return
			}
		case *Where:
			if v == nil {
				return
			}
		case *Select:
			if v == nil {
				return
			}
		}
		out = append(out, edge{label, c})
	}
	switch v := n.(type) {
	case *Query:
		add("select", v.Select)
		for i, d := range v.From {
			add("from"+strconv.Itoa(i), d)
		}
		add("where", v.Where)
		for i, o := range v.OrderBy {
			add("order"+strconv.Itoa(i), o)
		}
		add("offset", v.Offset)
		add("limit", v.Limit)
	case *Select:
		add("target", v.Target)
	case *CollectionMember:
		add("path", v.Path)
	case *Where:
		for i, t := range v.Terms {
			add("term"+strconv.Itoa(i), t)
		}
	case *OrderItem:
		add("path", v.Path)
	case *And:
		for i, o := range v.Operands {
			add(strconv.Itoa(i), o)
		}
	case *Or:
		for i, o := range v.Operands {
			add(strconv.Itoa(i), o)
		}
	case *Not:
		add("operand", v.Operand)
	case *Grouping:
		add("inner", v.Inner)
	case *Comparison:
		add("left", v.Left)
		add("right", v.Right)
	case *Between:
		add("expr", v.Expr)
		add("low", v.Low)
		add("high", v.High)
	case *In:
		add("expr", v.Expr)
		for i, val := range v.Values {
			add(strconv.Itoa(i), val)
		}
	case *Like:
		add("expr", v.Expr)
		add("pattern", v.Pattern)
		add("escape", v.Escape)
	case *IsNull:
		add("expr", v.Expr)
	case *IsEmpty:
		add("path", v.Path)
	case *MemberOf:
		add("member", v.Member)
		add("path", v.Path)
	case *Arithmetic:
		add("left", v.Left)
		add("right", v.Right)
	case *Negate:
		add("operand", v.Operand)
	case *Function:
		for i, a := range v.Args {
			add(strconv.Itoa(i), a)
		}
	case *Aggregate:
		add("arg", v.Arg)
	}
	return out
}

// Walk traverses the tree rooted at n in depth-first pre-order. Children
// of a node are visited only when fn returns true for it.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, e := range children(n) {
		Walk(e.node, fn)
	}
}

// Paths returns every navigation path in the tree, in traversal order.
func Paths(n Node) []*Path {
	var out []*Path
	Walk(n, func(c Node) bool {
		if p, ok := c.(*Path); ok {
			out = append(out, p)
		}
		return true
	})
	return out
}

// Parameters returns the highest parameter number used in the tree.
func Parameters(n Node) int {
	highest := 0
	Walk(n, func(c Node) bool {
		if p, ok := c.(*Parameter); ok && p.Number > highest {
			highest = p.Number
		}
		return true
	})
	return highest
}
