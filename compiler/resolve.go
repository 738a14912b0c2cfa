package compiler

import (
	"strings"

	"github.com/wildfly/cmpql/catalog"
	"github.com/wildfly/cmpql/nodes"
)

// declare binds the identification variables of the FROM clause.
// Collection members are planned as inner joins and reuse their variable's
// alias for the collection path.
func (s *state) declare(decls []nodes.Declaration) error {
	for _, d := range decls {
		name := strings.ToLower(strings.TrimSpace(d.Variable()))
		if name == "" {
			return shapef("declaration %T without a variable", d)
		}
		if _, dup := s.vars[name]; dup {
			return semanticf("identification variable %s is declared twice", d.Variable())
		}
		switch v := d.(type) {
		case *nodes.RangeVariable:
			e, ok := s.c.schema.Entity(v.Entity)
			if !ok {
				return semanticf("unknown entity %s", v.Entity)
			}
			n := &joinNode{key: name, entity: e, alias: s.aliases.Alias(name)}
			s.nodes[name] = n
			s.roots = append(s.roots, n)
			s.vars[name] = &variable{name: name, node: n}
			s.decl = append(s.decl, n)
		case *nodes.CollectionMember:
			if v.Path == nil {
				return shapef("collection member %s has no path", v.Var)
			}
			ref, err := s.resolve(v.Path, true)
			if err != nil {
				return err
			}
			if ref.rel == nil || !ref.rel.Many {
				return semanticf("IN(%s) requires a collection-valued path", v.Path)
			}
			n := ref.node
			if n.kind != joinNone {
				// A second variable over the same collection is its own
				// table instance.
				n = &joinNode{key: n.key + "#" + name, parent: n.parent, rel: n.rel, entity: n.entity}
				s.nodes[n.key] = n
			}
			n.alias = s.aliases.Alias(name)
			s.aliases.Bind(n.key, n.alias)
			if n.rel.Style == catalog.JoinTable {
				n.jtAlias = s.aliases.JoinTableAlias(name)
			}
			s.require(n, joinInner)
			s.vars[name] = &variable{name: name, node: n}
			s.decl = append(s.decl, n)
		default:
			return shapef("unsupported declaration %T", d)
		}
	}
	return nil
}

// pathRef is a resolved path.
type pathRef struct {
	path *nodes.Path
	// node is the entity the path reaches, or the entity owning the
	// terminal field.
	node *joinNode
	// rel is the terminal relationship when the path is entity-valued
	// through a relationship; node is then the unplanned child reached
	// through it.
	rel   *catalog.Relationship
	field *catalog.Field
	// prop narrows a composite value field to one of its properties.
	prop *catalog.Column
	typ  catalog.Type
}

func (r *pathRef) entityValued() bool { return r.field == nil }

// columns returns the columns of a field path.
func (r *pathRef) columns() []catalog.Column {
	if r.prop != nil {
		return []catalog.Column{*r.prop}
	}
	return r.field.Columns
}

// resolve walks p through the catalog. Collection-valued relationships may
// only end a path, and only when allowMany is set.
func (s *state) resolve(p *nodes.Path, allowMany bool) (*pathRef, error) {
	if p == nil || len(p.Segments) == 0 {
		return nil, shapef("empty path")
	}
	v, ok := s.vars[strings.ToLower(strings.TrimSpace(p.Root()))]
	if !ok {
		return nil, semanticf("unknown identification variable %s in %s", p.Root(), p)
	}
	cur := v.node
	ref := &pathRef{path: p}
	last := len(p.Segments) - 1
	for i := 1; i <= last; i++ {
		seg := p.Segments[i]
		if f := cur.entity.Field(seg); f != nil {
			ref.node, ref.field, ref.typ = cur, f, f.Type
			switch {
			case i == last:
				return ref, nil
			case f.Type.Kind == catalog.KindValue && i+1 == last:
				prop := p.Segments[last]
				for j := range f.Columns {
					if f.Columns[j].Property == prop {
						ref.prop = &f.Columns[j]
						ref.typ = catalog.Type{Kind: f.Columns[j].Kind}
						return ref, nil
					}
				}
				return nil, semanticf("value field %s.%s has no property %s", cur.entity.Name, seg, prop)
			}
			return nil, semanticf("cannot navigate through field %s of %s in %s", seg, cur.entity.Name, p)
		}
		r := cur.entity.Relationship(seg)
		if r == nil {
			return nil, semanticf("entity %s has no field or relationship %s", cur.entity.Name, seg)
		}
		if r.Many && (i != last || !allowMany) {
			return nil, semanticf("collection-valued path %s cannot be navigated", strings.Join(p.Segments[:i+1], "."))
		}
		next := s.child(cur, r)
		if i == last {
			ref.node, ref.rel, ref.typ = next, r, catalog.EntityType(r.Target)
			return ref, nil
		}
		cur = next
	}
	ref.node, ref.typ = cur, catalog.EntityType(cur.entity.Name)
	return ref, nil
}

// useKind records how a WHERE term uses a path.
type useKind int

const (
	// useLenient uses tolerate a missing row: the term can be true when
	// the path is NULL.
	useLenient useKind = iota
	// useStrict uses make the term false when the path is NULL.
	useStrict
	// useJoined uses need the table in FROM, because another join refers
	// to it.
	useJoined
)

type termUse struct {
	node *joinNode
	kind useKind
}

// termScope collects the join requirements of one WHERE term.
type termScope struct {
	uses  []termUse
	index map[*joinNode]int
}

func (t *termScope) add(n *joinNode, k useKind) {
	if t.index == nil {
		t.index = make(map[*joinNode]int)
	}
	if i, ok := t.index[n]; ok {
		if k > t.uses[i].kind {
			t.uses[i].kind = k
		}
		return
	}
	t.index[n] = len(t.uses)
	t.uses = append(t.uses, termUse{node: n, kind: k})
}

// use notes that n must be reachable. Outside WHERE the requirement is
// planned at once with kind k; inside WHERE it is scoped to the current
// term.
func (s *state) use(n *joinNode, k joinKind, u useKind) {
	if n == nil || n.parent == nil {
		return
	}
	if s.scope == nil {
		s.require(n, k)
		return
	}
	s.scope.add(n, u)
}

// merge plans the requirements of a finished term and returns the theta
// conjuncts the term must carry.
func (s *state) merge(t *termScope) []*fragment {
	var theta []*fragment
	seen := make(map[*joinNode]bool)
	for _, u := range t.uses {
		switch {
		case s.d.Subqueries() && u.kind == useStrict && s.terms == 1:
			s.require(u.node, joinInner)
		case s.d.Subqueries(), u.kind != useStrict:
			s.require(u.node, joinLeft)
		default:
			theta = append(theta, s.thetaConditions(u.node, seen)...)
			s.require(u.node, joinTheta)
		}
	}
	if len(theta) > 0 && s.terms > 1 {
		s.force("theta joins in a disjunction")
	}
	return theta
}
