package compiler

import (
	"fmt"

	"github.com/wildfly/cmpql/catalog"
	"github.com/wildfly/cmpql/nodes"
)

// ReturnType is the declared result type of a query method.
type ReturnType int

const (
	// ReturnCollection allows duplicate rows.
	ReturnCollection ReturnType = iota
	// ReturnSet implies DISTINCT.
	ReturnSet
	// ReturnSingle expects at most one row.
	ReturnSingle
)

func (r ReturnType) String() string {
	switch r {
	case ReturnSet:
		return "set"
	case ReturnSingle:
		return "single"
	}
	return "collection"
}

// SelectKind classifies the SELECT target.
type SelectKind int

const (
	SelectEntity SelectKind = iota
	SelectField
	SelectFunction
)

func (k SelectKind) String() string {
	switch k {
	case SelectField:
		return "field"
	case SelectFunction:
		return "function"
	}
	return "entity"
}

// SelectTarget describes what each result row holds.
type SelectTarget struct {
	Kind SelectKind
	// Path is the selected path, or the function argument path.
	Path string
	// Entity is the selected entity, or the entity owning the selected
	// field.
	Entity *catalog.Entity
	// Field is set for field selects.
	Field *catalog.Field
	// Func is set for function selects; Aggregate tells aggregates from
	// scalar functions.
	Func      nodes.Func
	Aggregate bool
	Type      catalog.Type
	// Columns is the number of leading result columns holding the
	// target: key columns plus eager columns for entities.
	Columns int
}

// LeftJoinLoad is a relationship read ahead through a left outer join.
// Its columns follow the selected entity's columns in each row.
type LeftJoinLoad struct {
	Path      string
	Entity    *catalog.Entity
	Alias     string
	EagerMask []bool
	Columns   int
}

// Bound is a LIMIT or OFFSET value: a literal captured at compile time,
// or a zero-based reference to a call argument.
type Bound struct {
	Present bool
	Value   int64
	Arg     int
}

// Resolve returns the bound's value for the given call arguments. ok is
// false when the query has no such clause.
func (b Bound) Resolve(args []any) (n int64, ok bool, err error) {
	if !b.Present {
		return 0, false, nil
	}
	if b.Arg < 0 {
		return b.Value, true, nil
	}
	if b.Arg >= len(args) {
		return 0, false, fmt.Errorf("cmpql: argument %d not supplied", b.Arg+1)
	}
	n, err = toInt64(args[b.Arg])
	if err != nil {
		return 0, false, fmt.Errorf("cmpql: argument %d: %w", b.Arg+1, err)
	}
	if n < 0 {
		return 0, false, fmt.Errorf("cmpql: argument %d: negative value %d", b.Arg+1, n)
	}
	return n, true, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	}
	return 0, fmt.Errorf("%T is not an integer", v)
}

// Result is a compiled query.
type Result struct {
	// SQL uses ? placeholders; see dialect.Dialect.Rebind.
	SQL    string
	Params []Parameter
	Select SelectTarget
	// Distinct reports whether the outer SELECT is DISTINCT.
	Distinct bool
	Limit    Bound
	Offset   Bound
	// EagerMask selects, over the entity's fields, the columns loaded
	// after the key columns.
	EagerMask []bool
	LeftJoins []LeftJoinLoad
	Locked    bool
}

// Bind resolves the parameter plan against call arguments, returning
// one value per placeholder.
func (r *Result) Bind(args []any) ([]any, error) {
	out := make([]any, len(r.Params))
	for i, p := range r.Params {
		v, err := p.Value(args)
		if err != nil {
			return nil, fmt.Errorf("cmpql: placeholder %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}
