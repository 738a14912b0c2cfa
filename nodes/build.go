package nodes

// Param creates the input parameter ?n.
func Param(n int) *Parameter { return &Parameter{Number: n} }

// Str creates a string literal.
func Str(s string) *StringLiteral { return &StringLiteral{Value: s} }

// Int creates an integer literal.
func Int(v int64) *IntLiteral { return &IntLiteral{Value: v} }

// Float creates an approximate numeric literal.
func Float(v float64) *FloatLiteral { return &FloatLiteral{Value: v} }

// Bool creates TRUE or FALSE.
func Bool(v bool) *BoolLiteral { return &BoolLiteral{Value: v} }

// Range declares "entity v".
func Range(entity, v string) *RangeVariable {
	return &RangeVariable{Entity: entity, Var: v}
}

// Collection declares "IN(path) v".
func Collection(path *Path, v string) *CollectionMember {
	return &CollectionMember{Path: path, Var: v}
}

// Obj selects OBJECT(v).
func Obj(v string) *Object { return &Object{Var: v} }

// Compare creates a comparison.
func Compare(op CompareOp, left, right Node) *Comparison {
	return &Comparison{Op: op, Left: left, Right: right}
}

// AndOf joins conditions with AND. A single condition is returned as is.
func AndOf(conds ...Node) Node {
	if len(conds) == 1 {
		return conds[0]
	}
	return &And{Operands: conds}
}

// OrOf joins conditions with OR. A single condition is returned as is.
func OrOf(conds ...Node) Node {
	if len(conds) == 1 {
		return conds[0]
	}
	return &Or{Operands: conds}
}

// NotOf negates a condition.
func NotOf(cond Node) *Not { return &Not{Operand: cond} }

// Group parenthesizes a condition.
func Group(cond Node) *Grouping { return &Grouping{Inner: cond} }

// MemberOfPath creates member MEMBER OF path.
func MemberOfPath(member Node, path *Path) *MemberOf {
	return &MemberOf{Member: member, Path: path}
}

// NotMemberOfPath creates member NOT MEMBER OF path.
func NotMemberOfPath(member Node, path *Path) *MemberOf {
	return &MemberOf{Member: member, Path: path, Not: true}
}

// Call creates a scalar function call.
func Call(f Func, args ...Node) *Function {
	return &Function{Func: f, Args: args}
}

// Agg creates an aggregate.
func Agg(f Func, distinct bool, arg Node) *Aggregate {
	return &Aggregate{Func: f, Distinct: distinct, Arg: arg}
}

// Count creates COUNT(arg).
func Count(arg Node) *Aggregate { return Agg(FuncCount, false, arg) }

// Arith creates a binary arithmetic expression.
func Arith(op ArithOp, left, right Node) *Arithmetic {
	return &Arithmetic{Op: op, Left: left, Right: right}
}

// WhereOf builds a WHERE clause from a condition. A top-level OR is split
// into terms, so each disjunct plans its joins on its own.
func WhereOf(cond Node) *Where {
	if cond == nil {
		return nil
	}
	if or, ok := cond.(*Or); ok {
		return &Where{Terms: append([]Node(nil), or.Operands...)}
	}
	return &Where{Terms: []Node{cond}}
}
