package compiler

import (
	"github.com/wildfly/cmpql/catalog"
)

// joinKind orders join requirements from weakest to strictest. A path
// required with several kinds is joined with the strictest one.
type joinKind int

const (
	joinNone joinKind = iota
	// joinTheta declares the table in FROM and links it with equality
	// conjuncts inside the WHERE terms that use it.
	joinTheta
	joinLeft
	joinInner
)

func (k joinKind) String() string {
	switch k {
	case joinTheta:
		return "theta"
	case joinLeft:
		return "left outer"
	case joinInner:
		return "inner"
	}
	return "none"
}

// joinNode is one table instance in the join tree: a range variable at a
// root, or a relationship traversal below it.
type joinNode struct {
	key      string
	parent   *joinNode
	rel      *catalog.Relationship
	entity   *catalog.Entity
	alias    string
	jtAlias  string
	kind     joinKind
	children []*joinNode
	// checks are dedicated existence joins hanging off a root.
	checks []*memberJoin
}

// memberJoin is a left outer join used to test collection membership on
// dialects without subqueries. The member comparison is part of its ON
// clause so that a non-member yields NULL instead of dropping the row.
type memberJoin struct {
	parent  *joinNode
	rel     *catalog.Relationship
	alias   string
	jtAlias string
	member  *fragment
}

func (n *joinNode) root() *joinNode {
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// require plans n, and every ancestor, with at least kind k. Children are
// kept in the order they were first planned.
func (s *state) require(n *joinNode, k joinKind) {
	for ; n != nil && n.parent != nil; n = n.parent {
		if n.kind >= k {
			return
		}
		if n.kind == joinNone {
			n.parent.children = append(n.parent.children, n)
			s.aliasOf(n)
		}
		n.kind = k
	}
}

// child returns the node reached from n through rel, creating it
// unplanned on first use.
func (s *state) child(n *joinNode, rel *catalog.Relationship) *joinNode {
	key := n.key + "." + rel.Name
	if c, ok := s.nodes[key]; ok {
		return c
	}
	c := &joinNode{key: key, parent: n, rel: rel, entity: rel.TargetEntity()}
	s.nodes[key] = c
	return c
}

func (s *state) aliasOf(n *joinNode) string {
	if n.alias == "" {
		n.alias = s.aliases.Alias(n.key)
	}
	return n.alias
}

func (s *state) jtAliasOf(n *joinNode) string {
	if n.jtAlias == "" {
		n.jtAlias = s.aliases.JoinTableAlias(n.key)
	}
	return n.jtAlias
}

// linkConditions returns the equality conjuncts linking the table
// instance of a relationship to its parent: one conjunct for a foreign
// key mapping, two groups (parent to join table, join table to child)
// for a join table mapping.
func linkConditions(parentAlias string, rel *catalog.Relationship, alias, jtAlias string) (toJoinTable, toChild []*fragment) {
	if rel.Style == catalog.JoinTable {
		for _, k := range rel.SourceKeys {
			toJoinTable = append(toJoinTable, text(parentAlias, ".", k.From, " = ", jtAlias, ".", k.To))
		}
		for _, k := range rel.TargetKeys {
			toChild = append(toChild, text(jtAlias, ".", k.To, " = ", alias, ".", k.From))
		}
		return toJoinTable, toChild
	}
	for _, k := range rel.Keys {
		toChild = append(toChild, text(parentAlias, ".", k.From, " = ", alias, ".", k.To))
	}
	return nil, toChild
}

func (s *state) links(n *joinNode) (toJoinTable, toChild []*fragment) {
	jt := ""
	if n.rel.Style == catalog.JoinTable {
		jt = s.jtAliasOf(n)
	}
	return linkConditions(s.aliasOf(n.parent), n.rel, s.aliasOf(n), jt)
}

// thetaConditions returns the conjuncts linking n to the nearest ancestor
// already joined in FROM, parents first. seen suppresses conjuncts already
// written in the current term.
func (s *state) thetaConditions(n *joinNode, seen map[*joinNode]bool) []*fragment {
	var chain []*joinNode
	for ; n.parent != nil && n.kind < joinLeft && !seen[n]; n = n.parent {
		seen[n] = true
		chain = append(chain, n)
	}
	var out []*fragment
	for i := len(chain) - 1; i >= 0; i-- {
		toJT, toChild := s.links(chain[i])
		out = append(out, toJT...)
		out = append(out, toChild...)
	}
	return out
}

// from assembles the FROM clause: range variables in declaration order,
// each followed by its join chain and its existence joins, then the
// tables declared for theta joins.
func (s *state) from() *fragment {
	out := &fragment{}
	for i, r := range s.roots {
		if i > 0 {
			out.write(", ")
		}
		out.write(r.entity.Table, " ", s.aliasOf(r))
		s.writeJoins(out, r)
		for _, m := range r.checks {
			s.writeMemberJoin(out, m)
		}
	}
	for _, r := range s.roots {
		s.writeThetaTables(out, r)
	}
	return out
}

func (s *state) writeJoins(out *fragment, n *joinNode) {
	for _, c := range n.children {
		if c.kind < joinLeft {
			continue
		}
		keyword := " INNER JOIN "
		if c.kind == joinLeft {
			keyword = " LEFT OUTER JOIN "
		}
		toJT, toChild := s.links(c)
		if c.rel.Style == catalog.JoinTable {
			out.write(keyword, c.rel.Table, " ", s.jtAliasOf(c), " ON ").append(join(toJT, " AND "))
		}
		out.write(keyword, c.entity.Table, " ", s.aliasOf(c), " ON ").append(join(toChild, " AND "))
		s.writeJoins(out, c)
	}
}

func (s *state) writeMemberJoin(out *fragment, m *memberJoin) {
	toJT, toChild := linkConditions(s.aliasOf(m.parent), m.rel, m.alias, m.jtAlias)
	if m.rel.Style == catalog.JoinTable {
		out.write(" LEFT OUTER JOIN ", m.rel.Table, " ", m.jtAlias, " ON ").append(join(toJT, " AND "))
	} else {
		out.write(" LEFT OUTER JOIN ", m.rel.TargetEntity().Table, " ", m.alias, " ON ").append(join(toChild, " AND "))
	}
	out.write(" AND ").append(m.member)
}

func (s *state) writeThetaTables(out *fragment, n *joinNode) {
	for _, c := range n.children {
		if c.kind == joinTheta {
			if c.rel.Style == catalog.JoinTable {
				out.write(", ", c.rel.Table, " ", s.jtAliasOf(c))
			}
			out.write(", ", c.entity.Table, " ", s.aliasOf(c))
		}
		s.writeThetaTables(out, c)
	}
}

// planned counts the nodes joined with each kind, for logging.
func (s *state) planned() (inner, left, theta int) {
	var walk func(*joinNode)
	walk = func(n *joinNode) {
		for _, c := range n.children {
			switch c.kind {
			case joinInner:
				inner++
			case joinLeft:
				left++
			case joinTheta:
				theta++
			}
			walk(c)
		}
	}
	for _, r := range s.roots {
		walk(r)
	}
	return inner, left, theta
}
