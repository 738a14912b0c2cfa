package nodes

// And is a conjunction of two or more conditions.
type And struct {
	Operands []Node
}

func (*And) node() {}

// Or is a disjunction of two or more conditions.
type Or struct {
	Operands []Node
}

func (*Or) node() {}

// Not negates a condition.
type Not struct {
	Operand Node
}

func (*Not) node() {}

// Grouping is an explicitly parenthesized condition.
type Grouping struct {
	Inner Node
}

func (*Grouping) node() {}

// Comparison compares two operands. Entity and composite value operands
// are compared column by column.
type Comparison struct {
	Op    CompareOp
	Left  Node
	Right Node
}

func (*Comparison) node() {}

// Between is expr [NOT] BETWEEN low AND high.
type Between struct {
	Not  bool
	Expr Node
	Low  Node
	High Node
}

func (*Between) node() {}

// In is expr [NOT] IN (values...).
type In struct {
	Not    bool
	Expr   Node
	Values []Node
}

func (*In) node() {}

// Like is expr [NOT] LIKE pattern [ESCAPE escape].
type Like struct {
	Not     bool
	Expr    Node
	Pattern Node
	Escape  Node // nil when absent
}

func (*Like) node() {}

// IsNull is expr IS [NOT] NULL.
type IsNull struct {
	Not  bool
	Expr Node
}

func (*IsNull) node() {}

// IsEmpty is path IS [NOT] EMPTY over a collection-valued path.
type IsEmpty struct {
	Not  bool
	Path *Path
}

func (*IsEmpty) node() {}

// MemberOf is member [NOT] MEMBER OF path. Member is an entity-valued
// path or parameter.
type MemberOf struct {
	Not    bool
	Member Node
	Path   *Path
}

func (*MemberOf) node() {}

// Arithmetic is a binary arithmetic expression.
type Arithmetic struct {
	Op    ArithOp
	Left  Node
	Right Node
}

func (*Arithmetic) node() {}

// Negate is unary minus.
type Negate struct {
	Operand Node
}

func (*Negate) node() {}

// Function is a scalar function call.
type Function struct {
	Func Func
	Args []Node
}

func (*Function) node() {}

// Aggregate is an aggregate function over a path, valid in SELECT only.
type Aggregate struct {
	Func     Func
	Distinct bool
	Arg      Node
}

func (*Aggregate) node() {}

// Parameter is a positional input parameter ?n. Number is 1-based.
type Parameter struct {
	Number int
}

func (*Parameter) node() {}

// StringLiteral is a quoted string.
type StringLiteral struct {
	Value string
}

func (*StringLiteral) node() {}

// IntLiteral is an integer literal.
type IntLiteral struct {
	Value int64
}

func (*IntLiteral) node() {}

// FloatLiteral is an approximate numeric literal.
type FloatLiteral struct {
	Value float64
}

func (*FloatLiteral) node() {}

// BoolLiteral is TRUE or FALSE.
type BoolLiteral struct {
	Value bool
}

func (*BoolLiteral) node() {}
