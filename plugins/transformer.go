// Package plugins defines the Transformer interface for query tree
// middleware.
package plugins

import "github.com/wildfly/cmpql/nodes"

// Transformer is the interface that query transformation plugins
// implement. A transformer may modify the query it is given; callers pass
// a copy when the original must survive.
type Transformer interface {
	TransformQuery(q *nodes.Query) (*nodes.Query, error)
}

// TransformerFunc adapts an ordinary function to the Transformer
// interface.
type TransformerFunc func(*nodes.Query) (*nodes.Query, error)

func (f TransformerFunc) TransformQuery(q *nodes.Query) (*nodes.Query, error) {
	return f(q)
}

// Apply runs the transformers over q in order, feeding each one the
// result of the previous.
func Apply(q *nodes.Query, ts ...Transformer) (*nodes.Query, error) {
	for _, t := range ts {
		var err error
		if q, err = t.TransformQuery(q); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// Restrict ANDs cond into the WHERE clause of q. Each top-level term
// receives its own copy of the condition, so join requirements stay
// scoped to the term that introduced them.
func Restrict(q *nodes.Query, cond nodes.Node) {
	if cond == nil {
		return
	}
	if _, isOr := cond.(*nodes.Or); isOr {
		cond = nodes.Group(cond)
	}
	if q.Where == nil || len(q.Where.Terms) == 0 {
		q.Where = &nodes.Where{Terms: []nodes.Node{cond}}
		return
	}
	terms := make([]nodes.Node, len(q.Where.Terms))
	for i, t := range q.Where.Terms {
		terms[i] = nodes.AndOf(append(conjuncts(t), conjuncts(cond)...)...)
	}
	q.Where = &nodes.Where{Terms: terms}
}

func conjuncts(n nodes.Node) []nodes.Node {
	if and, ok := n.(*nodes.And); ok {
		return append([]nodes.Node(nil), and.Operands...)
	}
	return []nodes.Node{n}
}
