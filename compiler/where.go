package compiler

import (
	"strconv"
	"strings"

	"github.com/wildfly/cmpql/catalog"
	"github.com/wildfly/cmpql/nodes"
)

// where compiles the WHERE clause term by term. The join requirements of
// each term are merged only after its text, including any theta
// conjuncts, has been written.
func (s *state) where(w *nodes.Where) (*fragment, error) {
	s.terms = len(w.Terms)
	var terms []*fragment
	for _, term := range w.Terms {
		s.scope = &termScope{}
		cond, err := s.condition(term, true)
		scope := s.scope
		s.scope = nil
		if err != nil {
			return nil, err
		}
		theta := s.merge(scope)
		if len(w.Terms) == 1 && len(theta) == 0 {
			terms = append(terms, cond)
			continue
		}
		t := text("(").append(cond)
		for _, c := range theta {
			t.write(" AND ").append(c)
		}
		terms = append(terms, t.write(")"))
	}
	return join(terms, " OR "), nil
}

// condition compiles a conditional expression. strict is set while the
// expression is reached from the term through conjunctions only, where a
// NULL operand makes the whole term false.
func (s *state) condition(n nodes.Node, strict bool) (*fragment, error) {
	switch v := n.(type) {
	case *nodes.And:
		if len(v.Operands) == 0 {
			return nil, shapef("AND without operands")
		}
		parts := make([]*fragment, 0, len(v.Operands))
		for _, o := range v.Operands {
			f, err := s.condition(o, strict)
			if err != nil {
				return nil, err
			}
			parts = append(parts, f)
		}
		return join(parts, " AND "), nil
	case *nodes.Or:
		if len(v.Operands) == 0 {
			return nil, shapef("OR without operands")
		}
		parts := make([]*fragment, 0, len(v.Operands))
		for _, o := range v.Operands {
			f, err := s.condition(o, false)
			if err != nil {
				return nil, err
			}
			parts = append(parts, f)
		}
		return text("(").append(join(parts, " OR ")).write(")"), nil
	case *nodes.Not:
		f, err := s.condition(v.Operand, false)
		if err != nil {
			return nil, err
		}
		return text("NOT (").append(f).write(")"), nil
	case *nodes.Grouping:
		f, err := s.condition(v.Inner, strict)
		if err != nil {
			return nil, err
		}
		if _, isOr := v.Inner.(*nodes.Or); isOr {
			return f, nil
		}
		return text("(").append(f).write(")"), nil
	case *nodes.Comparison:
		return s.comparison(v, strict)
	case *nodes.Between:
		return s.between(v, strict)
	case *nodes.In:
		return s.in(v, strict)
	case *nodes.Like:
		return s.like(v, strict)
	case *nodes.IsNull:
		return s.isNull(v)
	case *nodes.IsEmpty:
		ref, err := s.collection(v.Path)
		if err != nil {
			return nil, err
		}
		return s.existence(ref, !v.Not, nil)
	case *nodes.MemberOf:
		return s.memberOf(v)
	case nil:
		return nil, shapef("missing condition")
	}
	return nil, shapef("unexpected %T in a condition", n)
}

func use(strict bool) useKind {
	if strict {
		return useStrict
	}
	return useLenient
}

func notKeyword(not bool) string {
	if not {
		return " NOT"
	}
	return ""
}

func (s *state) between(v *nodes.Between, strict bool) (*fragment, error) {
	operands, err := s.scalars(strict, v.Expr, v.Low, v.High)
	if err != nil {
		return nil, err
	}
	for _, o := range operands[1:] {
		if err := comparable(operands[0], o, "BETWEEN"); err != nil {
			return nil, err
		}
	}
	return operands[0].frag().write(notKeyword(v.Not), " BETWEEN ").
		append(operands[1].frag()).write(" AND ").append(operands[2].frag()), nil
}

func (s *state) in(v *nodes.In, strict bool) (*fragment, error) {
	if len(v.Values) == 0 {
		return nil, shapef("IN without values")
	}
	operands, err := s.scalars(strict, append([]nodes.Node{v.Expr}, v.Values...)...)
	if err != nil {
		return nil, err
	}
	parts := make([]*fragment, 0, len(v.Values))
	for _, o := range operands[1:] {
		if err := comparable(operands[0], o, "IN"); err != nil {
			return nil, err
		}
		parts = append(parts, o.frag())
	}
	return operands[0].frag().write(notKeyword(v.Not), " IN (").append(join(parts, ", ")).write(")"), nil
}

func (s *state) like(v *nodes.Like, strict bool) (*fragment, error) {
	nodesIn := []nodes.Node{v.Expr, v.Pattern}
	if v.Escape != nil {
		nodesIn = append(nodesIn, v.Escape)
	}
	operands, err := s.scalars(strict, nodesIn...)
	if err != nil {
		return nil, err
	}
	for _, o := range operands {
		if !isString(o.typ) {
			return nil, semanticf("LIKE requires string operands, got %s", o.typ)
		}
	}
	out := operands[0].frag().write(notKeyword(v.Not), " LIKE ").append(operands[1].frag())
	if v.Escape != nil {
		out.write(" ESCAPE ").append(operands[2].frag())
	}
	return out, nil
}

// isNull compiles IS [NOT] NULL. A relationship whose foreign key lives in
// the source table is tested on that key; any other relationship is an
// existence test.
func (s *state) isNull(v *nodes.IsNull) (*fragment, error) {
	op := " IS NULL"
	if v.Not {
		op = " IS NOT NULL"
	}
	p, ok := v.Expr.(*nodes.Path)
	if !ok {
		o, err := s.scalar(v.Expr, false)
		if err != nil {
			return nil, err
		}
		return o.frag().write(op), nil
	}
	ref, err := s.resolve(p, true)
	if err != nil {
		return nil, err
	}
	if !ref.entityValued() {
		s.use(ref.node, joinLeft, useLenient)
		var parts []*fragment
		for _, c := range ref.columns() {
			parts = append(parts, text(s.aliasOf(ref.node), ".", c.Name, op))
		}
		return conjunction(parts), nil
	}
	if ref.rel == nil {
		return nil, semanticf("IS NULL cannot test identification variable %s", p)
	}
	if ref.rel.Style == catalog.ForeignKey && ref.rel.OwnsKey {
		parent := ref.node.parent
		s.use(parent, joinLeft, useLenient)
		var parts []*fragment
		for _, k := range ref.rel.Keys {
			parts = append(parts, text(s.aliasOf(parent), ".", k.From, op))
		}
		return conjunction(parts), nil
	}
	return s.existence(ref, !v.Not, nil)
}

// collection resolves a path that must end in a collection-valued
// relationship.
func (s *state) collection(p *nodes.Path) (*pathRef, error) {
	ref, err := s.resolve(p, true)
	if err != nil {
		return nil, err
	}
	if ref.rel == nil || !ref.rel.Many {
		return nil, semanticf("%s is not a collection-valued path", p)
	}
	return ref, nil
}

func (s *state) memberOf(v *nodes.MemberOf) (*fragment, error) {
	ref, err := s.collection(v.Path)
	if err != nil {
		return nil, err
	}
	target := ref.node.entity
	want := catalog.EntityType(target.Name)
	layout := keyLayout(target)
	member, err := s.operand(v.Member, false)
	if err != nil {
		return nil, err
	}
	switch {
	case member.pending != nil:
		if member.typ.Kind != catalog.KindUnknown && member.typ != want {
			return nil, semanticf("?%d is declared %s, %s holds %s", member.pending.Number, member.typ, v.Path, want)
		}
		member = s.expand(member.pending, want, layout)
	case member.typ != want:
		return nil, semanticf("MEMBER OF %s needs a %s, got %s", v.Path, want, member.typ)
	}
	if !s.d.Subqueries() {
		for _, n := range member.nodes {
			if n.root() != ref.node.root() {
				return nil, configf("dialect %s has no subqueries: the member of %s must be reached from %s",
					s.d.Name(), v.Path, ref.node.root().key)
			}
			s.use(n, joinLeft, useJoined)
		}
	}
	return s.existence(ref, v.Not, member)
}

// existence compiles a test for related rows of a relationship path:
// "no related row" when absent is set, "some related row" otherwise. A
// member narrows the test to one related entity.
func (s *state) existence(ref *pathRef, absent bool, member *value) (*fragment, error) {
	if s.d.Subqueries() {
		return s.existsSubquery(ref, absent, member), nil
	}
	if member != nil {
		return s.memberJoin(ref, absent, member), nil
	}
	n := ref.node
	s.require(n, joinLeft)
	s.force("outer join for an emptiness test")
	op := " IS NOT NULL"
	if absent {
		op = " IS NULL"
	}
	var parts []*fragment
	for _, k := range n.entity.KeyColumns() {
		parts = append(parts, text(s.aliasOf(n), ".", k.Name, op))
	}
	return conjunction(parts), nil
}

func (s *state) existsSubquery(ref *pathRef, absent bool, member *value) *fragment {
	n, rel := ref.node, ref.rel
	parent := n.parent
	s.use(parent, joinLeft, useLenient)
	key := n.key + "#sq"
	alias := s.aliases.Alias(key)
	jtAlias := ""
	if rel.Style == catalog.JoinTable {
		jtAlias = s.aliases.JoinTableAlias(key)
	}
	toJT, toChild := linkConditions(s.aliasOf(parent), rel, alias, jtAlias)

	out := text("EXISTS (SELECT ")
	if absent {
		out = text("NOT EXISTS (SELECT ")
	}
	var conds []*fragment
	if rel.Style == catalog.JoinTable {
		cols := make([]string, len(rel.TargetKeys))
		for i, k := range rel.TargetKeys {
			cols[i] = jtAlias + "." + k.To
		}
		out.write(strings.Join(cols, ", "), " FROM ", rel.Table, " ", jtAlias, " WHERE ")
		conds = toJT
		if member != nil {
			conds = append(conds, s.memberMatch(jtAlias, rel, member)...)
		}
	} else {
		keys := n.entity.KeyColumns()
		cols := make([]string, len(keys))
		for i, k := range keys {
			cols[i] = alias + "." + k.Name
		}
		out.write(strings.Join(cols, ", "), " FROM ", n.entity.Table, " ", alias, " WHERE ")
		conds = toChild
		if member != nil {
			conds = append(conds, s.memberMatch(alias, rel, member)...)
		}
	}
	return out.append(join(conds, " AND ")).write(")")
}

// memberMatch equates the related key columns, seen through alias, with
// the member's key columns. Through a join table the key columns are the
// join table's target columns.
func (s *state) memberMatch(alias string, rel *catalog.Relationship, member *value) []*fragment {
	keys := rel.TargetEntity().KeyColumns()
	out := make([]*fragment, 0, len(keys))
	for i, k := range keys {
		col := k.Name
		if rel.Style == catalog.JoinTable {
			for _, tk := range rel.TargetKeys {
				if tk.From == k.Name {
					col = tk.To
				}
			}
		}
		out = append(out, text(alias, ".", col, " = ").append(member.cols[i].frag))
	}
	return out
}

// memberJoin compiles MEMBER OF without subqueries: a dedicated outer
// join whose ON clause carries the member comparison, so that a row
// survives with NULL columns exactly when the member is absent.
func (s *state) memberJoin(ref *pathRef, absent bool, member *value) *fragment {
	n, rel := ref.node, ref.rel
	parent := n.parent
	s.use(parent, joinLeft, useJoined)
	s.memberSeq++
	key := n.key + "#m" + strconv.Itoa(s.memberSeq)
	m := &memberJoin{parent: parent, rel: rel, alias: s.aliases.Alias(key)}
	check := m.alias
	if rel.Style == catalog.JoinTable {
		m.jtAlias = s.aliases.JoinTableAlias(key)
		check = m.jtAlias
	}
	m.member = join(s.memberMatch(check, rel, member), " AND ")
	root := parent.root()
	root.checks = append(root.checks, m)
	s.force("outer join for a membership test")

	op := " IS NOT NULL"
	if absent {
		op = " IS NULL"
	}
	var parts []*fragment
	if rel.Style == catalog.JoinTable {
		for _, k := range rel.TargetKeys {
			parts = append(parts, text(check, ".", k.To, op))
		}
	} else {
		for _, k := range rel.TargetEntity().KeyColumns() {
			parts = append(parts, text(check, ".", k.Name, op))
		}
	}
	return conjunction(parts)
}
