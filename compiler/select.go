package compiler

import (
	"strings"

	"github.com/wildfly/cmpql/catalog"
	"github.com/wildfly/cmpql/dialect"
	"github.com/wildfly/cmpql/nodes"
)

// selection is the compiled SELECT clause.
type selection struct {
	target SelectTarget
	eager  []bool
	loads  []LeftJoinLoad
	// list holds the select list entries; text is used to match ORDER BY
	// columns against them.
	list []*fragment

	aggregate bool
	tpl       *dialect.Template
	// arg is the aggregate argument, without DISTINCT.
	arg      *fragment
	distinct bool
	// countKeys is set when counting entities with a composite key.
	countKeys []string

	orderCols []string
}

func (s *state) selectClause(sel *nodes.Select) (*selection, error) {
	out, err := s.selectTarget(sel.Target)
	if err != nil {
		return nil, err
	}
	if len(s.opts.leftJoins) > 0 && out.target.Kind != SelectEntity {
		return nil, semanticf("left join read-ahead requires an entity select, got %s", out.target.Kind)
	}
	return out, nil
}

func (s *state) selectTarget(t nodes.Node) (*selection, error) {
	switch v := t.(type) {
	case *nodes.Object:
		name := strings.ToLower(strings.TrimSpace(v.Var))
		vr, ok := s.vars[name]
		if !ok {
			return nil, semanticf("unknown identification variable %s in OBJECT(%s)", v.Var, v.Var)
		}
		return s.entitySelect(vr.node, v.Var)
	case *nodes.Path:
		ref, err := s.resolve(v, false)
		if err != nil {
			return nil, err
		}
		if ref.entityValued() {
			return s.entitySelect(ref.node, v.String())
		}
		s.require(ref.node, joinInner)
		alias := s.aliasOf(ref.node)
		out := &selection{target: SelectTarget{
			Kind:   SelectField,
			Path:   v.String(),
			Entity: ref.node.entity,
			Field:  ref.field,
			Type:   ref.typ,
		}}
		for _, c := range ref.columns() {
			out.list = append(out.list, text(alias, ".", c.Name))
		}
		out.target.Columns = len(out.list)
		return out, nil
	case *nodes.Aggregate:
		return s.aggregateSelect(v)
	case *nodes.Function:
		// Selected paths must exist, inside a function as much as bare.
		for _, p := range nodes.Paths(v) {
			ref, err := s.resolve(p, false)
			if err != nil {
				return nil, err
			}
			if !ref.entityValued() {
				s.require(ref.node, joinInner)
			}
		}
		x, err := s.function(v, false)
		if err != nil {
			return nil, err
		}
		return &selection{
			target: SelectTarget{Kind: SelectFunction, Func: v.Func, Type: x.typ, Columns: 1},
			list:   []*fragment{x.frag()},
		}, nil
	case nil:
		return nil, shapef("SELECT has no target")
	}
	return nil, shapef("unexpected %T as a SELECT target", t)
}

// entityColumns returns the key columns of n followed by the columns of
// the named load group, and the group mask.
func (s *state) entityColumns(n *joinNode, group string) ([]*fragment, []bool, error) {
	e := n.entity
	alias := s.aliasOf(n)
	var cols []*fragment
	for _, k := range e.KeyColumns() {
		cols = append(cols, text(alias, ".", k.Name))
	}
	if group == "" {
		return cols, nil, nil
	}
	mask, err := e.LoadGroup(group)
	if err != nil {
		return nil, nil, configf("%v", err)
	}
	for i, f := range e.Fields {
		if !mask[i] {
			continue
		}
		for _, c := range f.Columns {
			cols = append(cols, text(alias, ".", c.Name))
		}
	}
	return cols, mask, nil
}

func (s *state) entitySelect(n *joinNode, path string) (*selection, error) {
	s.require(n, joinInner)
	cols, mask, err := s.entityColumns(n, s.opts.eagerLoad)
	if err != nil {
		return nil, err
	}
	out := &selection{
		target: SelectTarget{
			Kind:    SelectEntity,
			Path:    path,
			Entity:  n.entity,
			Type:    catalog.EntityType(n.entity.Name),
			Columns: len(cols),
		},
		eager: mask,
		list:  cols,
	}
	for _, lj := range s.opts.leftJoins {
		load, lcols, err := s.readAhead(n, lj)
		if err != nil {
			return nil, err
		}
		out.loads = append(out.loads, load)
		out.list = append(out.list, lcols...)
	}
	return out, nil
}

// readAhead plans the left outer join chain of a read-ahead path and
// returns the columns it loads.
func (s *state) readAhead(n *joinNode, lj LeftJoin) (LeftJoinLoad, []*fragment, error) {
	cur := n
	for _, seg := range strings.Split(lj.Path, ".") {
		seg = strings.TrimSpace(seg)
		r := cur.entity.Relationship(seg)
		if r == nil {
			return LeftJoinLoad{}, nil, configf("left join %q: entity %s has no relationship %s", lj.Path, cur.entity.Name, seg)
		}
		cur = s.child(cur, r)
		s.require(cur, joinLeft)
	}
	cols, mask, err := s.entityColumns(cur, lj.EagerLoad)
	if err != nil {
		return LeftJoinLoad{}, nil, err
	}
	return LeftJoinLoad{
		Path:      lj.Path,
		Entity:    cur.entity,
		Alias:     s.aliasOf(cur),
		EagerMask: mask,
		Columns:   len(cols),
	}, cols, nil
}

func (s *state) aggregateSelect(v *nodes.Aggregate) (*selection, error) {
	if !v.Func.Aggregate() {
		return nil, shapef("%s is not an aggregate function", v.Func)
	}
	p, ok := v.Arg.(*nodes.Path)
	if !ok {
		return nil, shapef("argument of %s must be a path, got %T", v.Func, v.Arg)
	}
	tpl, ok := s.d.Function(v.Func)
	if !ok {
		return nil, configf("dialect %s has no template for %s", s.d.Name(), v.Func)
	}
	ref, err := s.resolve(p, false)
	if err != nil {
		return nil, err
	}
	s.require(ref.node, joinInner)
	alias := s.aliasOf(ref.node)
	out := &selection{
		aggregate: true,
		tpl:       tpl,
		distinct:  v.Distinct,
		target: SelectTarget{
			Kind:      SelectFunction,
			Path:      p.String(),
			Entity:    ref.node.entity,
			Field:     ref.field,
			Func:      v.Func,
			Aggregate: true,
			Columns:   1,
		},
	}
	if ref.entityValued() {
		if v.Func != nodes.FuncCount {
			return nil, semanticf("%s cannot aggregate entity %s", v.Func, p)
		}
		keys := ref.node.entity.KeyColumns()
		if len(keys) > 1 {
			for _, k := range keys {
				out.countKeys = append(out.countKeys, alias+"."+k.Name)
			}
		} else {
			out.arg = text(alias, ".", keys[0].Name)
		}
		out.target.Type = catalog.Long
		return out, nil
	}
	cols := ref.columns()
	if len(cols) != 1 {
		return nil, semanticf("%s needs a single-column argument, %s maps to %d columns", v.Func, p, len(cols))
	}
	if (v.Func == nodes.FuncSum || v.Func == nodes.FuncAvg) && !ref.typ.Kind.Numeric() {
		return nil, semanticf("%s requires a numeric argument, %s is %s", v.Func, p, ref.typ)
	}
	out.arg = text(alias, ".", cols[0].Name)
	out.target.Type = returnType(v.Func, ref.typ)
	return out, nil
}

// orderBy compiles ORDER BY. Ordering paths are left joined so that rows
// with a missing relationship are still returned.
func (s *state) orderBy(items []*nodes.OrderItem, sel *selection) (*fragment, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if sel.aggregate {
		return nil, semanticf("ORDER BY is not allowed with an aggregate SELECT")
	}
	var parts []*fragment
	for _, it := range items {
		if it == nil || it.Path == nil {
			return nil, shapef("ORDER BY item without a path")
		}
		ref, err := s.resolve(it.Path, false)
		if err != nil {
			return nil, err
		}
		if ref.entityValued() {
			return nil, semanticf("cannot ORDER BY entity-valued path %s", it.Path)
		}
		s.require(ref.node, joinLeft)
		alias := s.aliasOf(ref.node)
		for _, c := range ref.columns() {
			col := alias + "." + c.Name
			sel.orderCols = append(sel.orderCols, col)
			if it.Desc {
				col += " DESC"
			}
			parts = append(parts, text(col))
		}
	}
	return join(parts, ", "), nil
}

// assemble writes the statement once every clause has planned its joins.
func (s *state) assemble(sel *selection, where, order *fragment, distinct bool) (*fragment, error) {
	if sel.aggregate {
		if s.opts.rowLocking {
			return nil, semanticf("row locking is not allowed with an aggregate SELECT")
		}
		return s.assembleAggregate(sel, where), nil
	}
	list := append([]*fragment(nil), sel.list...)
	if distinct {
		listed := make(map[string]bool, len(list))
		for _, f := range list {
			listed[f.String()] = true
		}
		for _, c := range sel.orderCols {
			if !listed[c] {
				listed[c] = true
				list = append(list, text(c))
			}
		}
	}
	cols := join(list, ", ")
	if distinct {
		cols = text("DISTINCT ").append(cols)
	}
	from := s.from()
	whereClause, orderClause := &fragment{}, &fragment{}
	if where != nil {
		whereClause.write(" WHERE ").append(where)
	}
	if order != nil {
		orderClause.write(" ORDER BY ").append(order)
	}
	if s.opts.rowLocking {
		tpl, ok := s.d.RowLocking()
		if !ok {
			return nil, configf("dialect %s does not support row locking", s.d.Name())
		}
		return render(tpl, []*fragment{cols, from, whereClause, orderClause}), nil
	}
	return text("SELECT ").append(cols).write(" FROM ").append(from).append(whereClause).append(orderClause), nil
}

// assembleAggregate writes an aggregate query. Composite key counts and
// aggregates over joins that repeat rows are computed over a DISTINCT
// derived table.
func (s *state) assembleAggregate(sel *selection, where *fragment) *fragment {
	body := text(" FROM ").append(s.from())
	if where != nil {
		body.write(" WHERE ").append(where)
	}
	derived := func(name string) string { return s.d.AliasPrefix() + name + s.d.AliasSuffix() }

	if sel.countKeys != nil {
		t := derived("count")
		return text("SELECT COUNT(*) FROM (SELECT DISTINCT ", strings.Join(sel.countKeys, ", ")).
			append(body).write(") ", t)
	}
	if s.forced {
		t := derived("agg")
		var keys []string
		for _, n := range s.decl {
			alias := s.aliasOf(n)
			for _, k := range n.entity.KeyColumns() {
				keys = append(keys, alias+"."+k.Name)
			}
		}
		arg := text(t, ".c0")
		if sel.distinct {
			arg = text("DISTINCT ").append(arg)
		}
		return text("SELECT ").append(render(sel.tpl, []*fragment{arg})).
			write(" FROM (SELECT DISTINCT ", strings.Join(keys, ", "), ", ").append(sel.arg).write(" AS c0").
			append(body).write(") ", t)
	}
	arg := (&fragment{}).append(sel.arg)
	if sel.distinct {
		arg = text("DISTINCT ").append(arg)
	}
	return text("SELECT ").append(render(sel.tpl, []*fragment{arg})).append(body)
}
