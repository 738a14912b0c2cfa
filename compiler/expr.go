package compiler

import (
	"strconv"

	"github.com/wildfly/cmpql/catalog"
	"github.com/wildfly/cmpql/nodes"
)

// column is one SQL column of a compiled operand. field and property
// name the key field and composite property the column stands for, and
// drive the expansion of entity and value parameters.
type column struct {
	frag     *fragment
	field    string
	property string
	kind     catalog.Kind
}

// value is a compiled operand: a single column for scalars, one column
// per key column for entity references, one column per property for
// composite values.
type value struct {
	typ  catalog.Type
	cols []column
	// nodes are the table instances the operand reads from.
	nodes []*joinNode
	// pending is set for entity, value and untyped parameters, whose
	// columns follow the operand they are compared with.
	pending *nodes.Parameter
}

// frag returns a copy of the single column of a scalar operand.
func (v *value) frag() *fragment {
	return (&fragment{}).append(v.cols[0].frag)
}

func (v *value) composite() bool {
	return v.typ.Kind == catalog.KindEntity || v.typ.Kind == catalog.KindValue
}

func scalarValue(f *fragment, t catalog.Type) *value {
	return &value{typ: t, cols: []column{{frag: f, kind: t.Kind}}}
}

// keyLayout describes the key columns of e, without SQL text, for
// parameter expansion.
func keyLayout(e *catalog.Entity) []column {
	keys := e.KeyColumns()
	out := make([]column, len(keys))
	for i, k := range keys {
		out[i] = column{field: k.Field, property: k.Property, kind: k.Kind}
	}
	return out
}

// expand decomposes parameter p into one placeholder per column of
// layout.
func (s *state) expand(p *nodes.Parameter, t catalog.Type, layout []column) *value {
	out := &value{typ: t, cols: make([]column, len(layout))}
	for i, c := range layout {
		desc := Parameter{Arg: p.Number - 1, SQLType: c.kind.SQLType(), Property: c.property}
		if t.Kind == catalog.KindEntity {
			desc.Entity, desc.Field = t.Name, c.field
		}
		out.cols[i] = column{frag: (&fragment{}).param(desc), field: c.field, property: c.property, kind: c.kind}
	}
	return out
}

// operand compiles an expression used as a comparison operand.
func (s *state) operand(n nodes.Node, strict bool) (*value, error) {
	switch v := n.(type) {
	case *nodes.Path:
		return s.pathValue(v, strict)
	case *nodes.Parameter:
		t, err := s.argType(v)
		if err != nil {
			return nil, err
		}
		if t.Scalar() {
			return scalarValue((&fragment{}).param(Parameter{Arg: v.Number - 1, SQLType: t.Kind.SQLType()}), t), nil
		}
		return &value{typ: t, pending: v}, nil
	case *nodes.StringLiteral:
		return scalarValue(text(s.d.String(v.Value)), catalog.String), nil
	case *nodes.IntLiteral:
		return scalarValue(text(strconv.FormatInt(v.Value, 10)), catalog.Long), nil
	case *nodes.FloatLiteral:
		return scalarValue(text(strconv.FormatFloat(v.Value, 'g', -1, 64)), catalog.Double), nil
	case *nodes.BoolLiteral:
		return scalarValue(text(s.d.Bool(v.Value)), catalog.Boolean), nil
	case *nodes.Arithmetic:
		return s.arithmetic(v, strict)
	case *nodes.Negate:
		x, err := s.scalar(v.Operand, strict)
		if err != nil {
			return nil, err
		}
		if !numeric(x.typ) {
			return nil, semanticf("unary minus requires a numeric operand, got %s", x.typ)
		}
		return scalarValue(text("(-").append(x.frag()).write(")"), x.typ), nil
	case *nodes.Function:
		return s.function(v, strict)
	case *nodes.Aggregate:
		return nil, semanticf("aggregate %s is only allowed in SELECT", v.Func)
	case nil:
		return nil, shapef("missing operand")
	}
	return nil, shapef("unexpected %T in an expression", n)
}

// pathValue compiles a path operand. Entity-valued paths compile to the
// key columns of the entity, read from the foreign key of the parent
// table when the parent owns it.
func (s *state) pathValue(p *nodes.Path, strict bool) (*value, error) {
	ref, err := s.resolve(p, false)
	if err != nil {
		return nil, err
	}
	if !ref.entityValued() {
		s.use(ref.node, joinLeft, use(strict))
		alias := s.aliasOf(ref.node)
		out := &value{typ: ref.typ, nodes: []*joinNode{ref.node}}
		for _, c := range ref.columns() {
			out.cols = append(out.cols, column{frag: text(alias, ".", c.Name), property: c.Property, kind: c.Kind})
		}
		return out, nil
	}
	keys := ref.node.entity.KeyColumns()
	out := &value{typ: ref.typ}
	if r := ref.rel; r != nil && r.Style == catalog.ForeignKey && r.OwnsKey {
		parent := ref.node.parent
		s.use(parent, joinLeft, use(strict))
		alias := s.aliasOf(parent)
		for _, k := range keys {
			from := k.Name
			for _, kp := range r.Keys {
				if kp.To == k.Name {
					from = kp.From
				}
			}
			out.cols = append(out.cols, column{frag: text(alias, ".", from), field: k.Field, property: k.Property, kind: k.Kind})
		}
		out.nodes = []*joinNode{parent}
		return out, nil
	}
	s.use(ref.node, joinLeft, use(strict))
	alias := s.aliasOf(ref.node)
	for _, k := range keys {
		out.cols = append(out.cols, column{frag: text(alias, ".", k.Name), field: k.Field, property: k.Property, kind: k.Kind})
	}
	out.nodes = []*joinNode{ref.node}
	return out, nil
}

// scalar compiles an operand that must map to a single column. Untyped
// parameters bind as SQL OTHER.
func (s *state) scalar(n nodes.Node, strict bool) (*value, error) {
	v, err := s.operand(n, strict)
	if err != nil {
		return nil, err
	}
	return s.single(v, catalog.Unknown)
}

func (s *state) single(v *value, like catalog.Type) (*value, error) {
	if v.pending != nil {
		if v.typ.Kind != catalog.KindUnknown {
			return nil, semanticf("?%d is declared %s and cannot be used as a single value", v.pending.Number, v.typ)
		}
		return scalarValue((&fragment{}).param(Parameter{Arg: v.pending.Number - 1, SQLType: like.Kind.SQLType()}), like), nil
	}
	if v.composite() || len(v.cols) != 1 {
		return nil, semanticf("%s operand maps to %d columns where one is required", v.typ, len(v.cols))
	}
	return v, nil
}

// scalars compiles operands that are compared with each other. Untyped
// parameters take the type of the first typed operand.
func (s *state) scalars(strict bool, ns ...nodes.Node) ([]*value, error) {
	raw := make([]*value, len(ns))
	like := catalog.Unknown
	for i, n := range ns {
		v, err := s.operand(n, strict)
		if err != nil {
			return nil, err
		}
		raw[i] = v
		if v.pending == nil && like.Kind == catalog.KindUnknown {
			like = v.typ
		}
	}
	out := make([]*value, len(raw))
	for i, v := range raw {
		sv, err := s.single(v, like)
		if err != nil {
			return nil, err
		}
		out[i] = sv
	}
	return out, nil
}

func numeric(t catalog.Type) bool {
	return t.Kind == catalog.KindUnknown || t.Kind.Numeric()
}

func isString(t catalog.Type) bool {
	return t.Kind == catalog.KindUnknown || t.Kind == catalog.KindString
}

// comparable checks two single-column operands. Untyped operands compare
// with anything.
func comparable(a, b *value, context string) error {
	if a.typ.Kind == catalog.KindUnknown || b.typ.Kind == catalog.KindUnknown {
		return nil
	}
	if !a.typ.Comparable(b.typ) {
		return semanticf("%s: cannot compare %s with %s", context, a.typ, b.typ)
	}
	return nil
}

// comparison compiles a binary comparison. Entity and composite value
// operands compare column by column and only support = and <>.
func (s *state) comparison(v *nodes.Comparison, strict bool) (*fragment, error) {
	l, err := s.operand(v.Left, strict)
	if err != nil {
		return nil, err
	}
	r, err := s.operand(v.Right, strict)
	if err != nil {
		return nil, err
	}
	if l.pending != nil && r.pending != nil {
		if l, r, err = s.bindParams(l, r); err != nil {
			return nil, err
		}
	}
	if l.pending != nil {
		if l, err = s.bindTo(l, r); err != nil {
			return nil, err
		}
	}
	if r.pending != nil {
		if r, err = s.bindTo(r, l); err != nil {
			return nil, err
		}
	}
	if !l.composite() && !r.composite() {
		if err := comparable(l, r, v.Op.String()); err != nil {
			return nil, err
		}
		return l.frag().write(" ", v.Op.String(), " ").append(r.frag()), nil
	}
	if l.typ != r.typ {
		return nil, semanticf("cannot compare %s with %s", l.typ, r.typ)
	}
	if v.Op != nodes.OpEq && v.Op != nodes.OpNotEq {
		return nil, semanticf("%s values only support = and <>, got %s", l.typ, v.Op)
	}
	if len(l.cols) != len(r.cols) {
		return nil, semanticf("%s operands map to %d and %d columns", l.typ, len(l.cols), len(r.cols))
	}
	if len(l.cols) == 1 {
		return l.frag().write(" ", v.Op.String(), " ").append(r.frag()), nil
	}
	eqs := make([]*fragment, len(l.cols))
	for i := range l.cols {
		eqs[i] = (&fragment{}).append(l.cols[i].frag).write(" = ").append(r.cols[i].frag)
	}
	out := conjunction(eqs)
	if v.Op == nodes.OpNotEq {
		return text("(NOT ").append(out).write(")"), nil
	}
	return out, nil
}

// bindTo expands the pending parameter p against the operand it is
// compared with.
func (s *state) bindTo(p, other *value) (*value, error) {
	switch {
	case p.typ.Kind == catalog.KindUnknown && !other.composite():
		return s.single(p, other.typ)
	case p.typ.Kind == catalog.KindUnknown:
		return s.expand(p.pending, other.typ, other.cols), nil
	case p.typ != other.typ:
		return nil, semanticf("?%d is declared %s and cannot be compared with %s", p.pending.Number, p.typ, other.typ)
	}
	return s.expand(p.pending, p.typ, other.cols), nil
}

// bindParams expands two parameters compared with each other. Entity
// parameters expand over the catalog key; composite values have no
// column layout to follow.
func (s *state) bindParams(l, r *value) (*value, *value, error) {
	t := l.typ
	if t.Kind == catalog.KindUnknown {
		t = r.typ
	}
	switch t.Kind {
	case catalog.KindUnknown:
		lv, _ := s.single(l, t)
		rv, _ := s.single(r, t)
		return lv, rv, nil
	case catalog.KindEntity:
		e, ok := s.c.schema.Entity(t.Name)
		if !ok {
			return nil, nil, semanticf("unknown entity %s for ?%d", t.Name, l.pending.Number)
		}
		if (l.typ.Kind != catalog.KindUnknown && l.typ != t) || (r.typ.Kind != catalog.KindUnknown && r.typ != t) {
			return nil, nil, semanticf("cannot compare %s with %s", l.typ, r.typ)
		}
		layout := keyLayout(e)
		return s.expand(l.pending, t, layout), s.expand(r.pending, t, layout), nil
	}
	return nil, nil, semanticf("cannot compare two %s parameters ?%d and ?%d", t, l.pending.Number, r.pending.Number)
}

func (s *state) arithmetic(v *nodes.Arithmetic, strict bool) (*value, error) {
	ops, err := s.scalars(strict, v.Left, v.Right)
	if err != nil {
		return nil, err
	}
	for _, o := range ops {
		if !numeric(o.typ) {
			return nil, semanticf("arithmetic %s requires numeric operands, got %s", v.Op, o.typ)
		}
	}
	f := text("(").append(ops[0].frag()).write(" ", v.Op.String(), " ").append(ops[1].frag()).write(")")
	return scalarValue(f, widen(ops[0].typ, ops[1].typ)), nil
}

// widen returns the type of an arithmetic result.
func widen(a, b catalog.Type) catalog.Type {
	rank := func(t catalog.Type) int {
		switch t.Kind {
		case catalog.KindInteger:
			return 1
		case catalog.KindLong:
			return 2
		case catalog.KindDecimal:
			return 3
		case catalog.KindDouble:
			return 4
		}
		return 0
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

// function compiles a scalar function call through the dialect template.
func (s *state) function(v *nodes.Function, strict bool) (*value, error) {
	if v.Func.Aggregate() {
		return nil, semanticf("aggregate %s is only allowed in SELECT", v.Func)
	}
	lo, hi := v.Func.Arity()
	if len(v.Args) < lo || len(v.Args) > hi {
		return nil, shapef("%s takes %d to %d arguments, got %d", v.Func, lo, hi, len(v.Args))
	}
	tpl, ok := s.d.Function(v.Func)
	if !ok {
		return nil, configf("dialect %s has no template for %s", s.d.Name(), v.Func)
	}
	args := make([]*value, len(v.Args))
	for i, a := range v.Args {
		x, err := s.scalar(a, strict)
		if err != nil {
			return nil, err
		}
		args[i] = x
	}
	if err := checkArgs(v.Func, args); err != nil {
		return nil, err
	}
	frags := make([]*fragment, 0, hi)
	for _, a := range args {
		frags = append(frags, a.frag())
	}
	if v.Func == nodes.FuncLocate && len(frags) == 2 {
		frags = append(frags, text("1"))
	}
	return scalarValue(render(tpl, frags), returnType(v.Func, args[0].typ)), nil
}

func checkArgs(f nodes.Func, args []*value) error {
	want := func(i int, ok func(catalog.Type) bool, what string) error {
		if i < len(args) && !ok(args[i].typ) {
			return semanticf("argument %d of %s must be %s, got %s", i+1, f, what, args[i].typ)
		}
		return nil
	}
	var checks []error
	switch f {
	case nodes.FuncConcat:
		checks = append(checks, want(0, isString, "a string"), want(1, isString, "a string"))
	case nodes.FuncSubstring:
		checks = append(checks, want(0, isString, "a string"), want(1, numeric, "numeric"), want(2, numeric, "numeric"))
	case nodes.FuncLocate:
		checks = append(checks, want(0, isString, "a string"), want(1, isString, "a string"), want(2, numeric, "numeric"))
	case nodes.FuncLower, nodes.FuncUpper, nodes.FuncLength:
		checks = append(checks, want(0, isString, "a string"))
	case nodes.FuncAbs, nodes.FuncSqrt:
		checks = append(checks, want(0, numeric, "numeric"))
	case nodes.FuncMod:
		checks = append(checks, want(0, numeric, "numeric"), want(1, numeric, "numeric"))
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

// returnType is the declared type of a function result. arg is the type
// of the first argument.
func returnType(f nodes.Func, arg catalog.Type) catalog.Type {
	switch f {
	case nodes.FuncConcat, nodes.FuncSubstring, nodes.FuncLower, nodes.FuncUpper:
		return catalog.String
	case nodes.FuncLocate, nodes.FuncLength, nodes.FuncMod:
		return catalog.Integer
	case nodes.FuncSqrt, nodes.FuncAvg:
		return catalog.Double
	case nodes.FuncCount:
		return catalog.Long
	}
	return arg
}
