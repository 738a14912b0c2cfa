package nodes

// Query is the root of a query tree.
type Query struct {
	Select  *Select
	From    []Declaration
	Where   *Where // nil when the query has no WHERE clause
	OrderBy []*OrderItem
	Limit   Node // *Parameter or *IntLiteral, nil when absent
	Offset  Node // *Parameter or *IntLiteral, nil when absent
}

func (*Query) node() {}

// String renders the query back to query-language text.
func (q *Query) String() string { return Format(q) }

// Select is the SELECT clause. Target is one of *Object, *Path,
// *Aggregate or *Function.
type Select struct {
	Distinct bool
	Target   Node
}

func (*Select) node() {}

// Object selects the entity bound to a range variable: OBJECT(o).
type Object struct {
	Var string
}

func (*Object) node() {}

// RangeVariable declares an identification variable over an entity:
// "Order o".
type RangeVariable struct {
	Entity string
	Var    string
}

func (*RangeVariable) node()        {}
func (*RangeVariable) declaration() {}

// Variable returns the declared identification variable.
func (r *RangeVariable) Variable() string { return r.Var }

// CollectionMember declares a variable ranging over the members of a
// collection-valued path: "IN(o.items) i".
type CollectionMember struct {
	Path *Path
	Var  string
}

func (*CollectionMember) node()        {}
func (*CollectionMember) declaration() {}

// Variable returns the declared identification variable.
func (c *CollectionMember) Variable() string { return c.Var }

// Where is the WHERE clause. Terms are the top-level disjuncts; each term
// is usually an AND-connected condition. Join requirements are scoped to
// the term that introduced them.
type Where struct {
	Terms []Node
}

func (*Where) node() {}

// OrderItem is one ORDER BY entry.
type OrderItem struct {
	Path *Path
	Desc bool
}

func (*OrderItem) node() {}
