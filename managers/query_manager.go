// Package managers provides a fluent API for building query trees.
package managers

import (
	"github.com/wildfly/cmpql/catalog"
	"github.com/wildfly/cmpql/compiler"
	"github.com/wildfly/cmpql/nodes"
	"github.com/wildfly/cmpql/plugins"
)

// QueryManager provides a fluent API for building queries. It wraps a
// nodes.Query and applies transformer plugins before compilation.
type QueryManager struct {
	treeManager
	Query *nodes.Query
}

// NewQueryManager creates a manager for SELECT OBJECT(v) FROM entity v.
func NewQueryManager(entity, v string) *QueryManager {
	return &QueryManager{
		Query: &nodes.Query{
			Select: &nodes.Select{Target: nodes.Obj(v)},
			From:   []nodes.Declaration{nodes.Range(entity, v)},
		},
	}
}

// Select replaces the SELECT target. Pass an *nodes.Object, a path, an
// aggregate or a function.
func (m *QueryManager) Select(target nodes.Node) *QueryManager {
	m.Query.Select.Target = target
	return m
}

// Distinct enables or disables the DISTINCT modifier.
func (m *QueryManager) Distinct(on ...bool) *QueryManager {
	m.Query.Select.Distinct = len(on) == 0 || on[0]
	return m
}

// From declares another range variable.
func (m *QueryManager) From(entity, v string) *QueryManager {
	m.Query.From = append(m.Query.From, nodes.Range(entity, v))
	return m
}

// Join declares a variable over the members of a collection path and
// returns a JoinContext for naming it.
func (m *QueryManager) Join(path *nodes.Path) *JoinContext {
	return &JoinContext{manager: m, path: path}
}

// Where ANDs conditions into the current WHERE term.
func (m *QueryManager) Where(conditions ...nodes.Node) *QueryManager {
	if len(conditions) == 0 {
		return m
	}
	w := m.Query.Where
	if w == nil || len(w.Terms) == 0 {
		m.Query.Where = &nodes.Where{Terms: []nodes.Node{nodes.AndOf(conditions...)}}
		return m
	}
	last := len(w.Terms) - 1
	w.Terms[last] = nodes.AndOf(append(conjuncts(w.Terms[last]), conditions...)...)
	return m
}

// Or starts a new top-level WHERE term from the AND of conditions.
// Conditions added by later Where calls join that term.
func (m *QueryManager) Or(conditions ...nodes.Node) *QueryManager {
	if len(conditions) == 0 {
		return m
	}
	if m.Query.Where == nil {
		m.Query.Where = &nodes.Where{}
	}
	m.Query.Where.Terms = append(m.Query.Where.Terms, nodes.AndOf(conditions...))
	return m
}

// Order appends ORDER BY items (e.g., nodes.P("o.number").Desc()).
func (m *QueryManager) Order(items ...*nodes.OrderItem) *QueryManager {
	m.Query.OrderBy = append(m.Query.OrderBy, items...)
	return m
}

// Limit sets a literal LIMIT.
func (m *QueryManager) Limit(n int) *QueryManager {
	m.Query.Limit = nodes.Int(int64(n))
	return m
}

// LimitParam takes the LIMIT from call argument n (1-based).
func (m *QueryManager) LimitParam(n int) *QueryManager {
	m.Query.Limit = nodes.Param(n)
	return m
}

// Offset sets a literal OFFSET.
func (m *QueryManager) Offset(n int) *QueryManager {
	m.Query.Offset = nodes.Int(int64(n))
	return m
}

// OffsetParam takes the OFFSET from call argument n (1-based).
func (m *QueryManager) OffsetParam(n int) *QueryManager {
	m.Query.Offset = nodes.Param(n)
	return m
}

// Use registers a transformer plugin to be applied before compilation.
func (m *QueryManager) Use(t plugins.Transformer) *QueryManager {
	m.addTransformer(t)
	return m
}

// Build applies all registered transformers to a copy of the query and
// returns the result. The manager's own query is left untouched.
func (m *QueryManager) Build() (*nodes.Query, error) {
	return m.apply(m.CloneQuery())
}

// Compile builds the query and compiles it with c.
func (m *QueryManager) Compile(c *compiler.Compiler, ret compiler.ReturnType, args []catalog.Type, opts ...compiler.QueryOption) (*compiler.Result, error) {
	q, err := m.Build()
	if err != nil {
		return nil, err
	}
	return c.Compile(q, ret, args, opts...)
}

// String renders the query as built so far, without transformers.
func (m *QueryManager) String() string {
	return m.Query.String()
}

// CloneQuery returns a copy of the query whose clause slices may be
// changed without affecting the manager. Condition nodes are shared.
func (m *QueryManager) CloneQuery() *nodes.Query {
	q := *m.Query
	sel := *m.Query.Select
	q.Select = &sel

	q.From = make([]nodes.Declaration, len(m.Query.From))
	copy(q.From, m.Query.From)

	q.OrderBy = make([]*nodes.OrderItem, len(m.Query.OrderBy))
	copy(q.OrderBy, m.Query.OrderBy)

	if m.Query.Where != nil {
		terms := make([]nodes.Node, len(m.Query.Where.Terms))
		copy(terms, m.Query.Where.Terms)
		q.Where = &nodes.Where{Terms: terms}
	}
	return &q
}

func conjuncts(n nodes.Node) []nodes.Node {
	if and, ok := n.(*nodes.And); ok {
		return append([]nodes.Node(nil), and.Operands...)
	}
	return []nodes.Node{n}
}
