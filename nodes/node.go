// Package nodes defines the typed query tree consumed by the compiler.
//
// The node set is closed: every type implementing Node lives in this
// package, and consumers dispatch on it with type switches.
package nodes

import (
	"fmt"
	"strings"
)

// Node is the interface that all query tree nodes implement.
type Node interface {
	node()
}

// Declaration is an entry of the FROM clause: either a range variable
// over an entity or a collection member declaration over a path.
type Declaration interface {
	Node
	Variable() string
	declaration()
}

// CompareOp is a binary comparison operator.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNotEq
	OpLt
	OpLtEq
	OpGt
	OpGtEq
)

var compareOps = [...]string{
	OpEq:    "=",
	OpNotEq: "<>",
	OpLt:    "<",
	OpLtEq:  "<=",
	OpGt:    ">",
	OpGtEq:  ">=",
}

func (op CompareOp) String() string {
	if int(op) < len(compareOps) {
		return compareOps[op]
	}
	return fmt.Sprintf("CompareOp(%d)", int(op))
}

// ParseCompareOp maps an operator token to its CompareOp.
func ParseCompareOp(s string) (CompareOp, bool) {
	for i, v := range compareOps {
		if v == s {
			return CompareOp(i), true
		}
	}
	if s == "!=" {
		return OpNotEq, true
	}
	return 0, false
}

// ArithOp is a binary arithmetic operator.
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
)

var arithOps = [...]string{OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/"}

func (op ArithOp) String() string {
	if int(op) < len(arithOps) {
		return arithOps[op]
	}
	return fmt.Sprintf("ArithOp(%d)", int(op))
}

// Func enumerates the functions of the query language. Dialects map each
// kind to an SQL template.
type Func int

const (
	FuncConcat Func = iota
	FuncSubstring
	FuncLocate
	FuncLower
	FuncUpper
	FuncLength
	FuncAbs
	FuncMod
	FuncSqrt
	FuncCount
	FuncMax
	FuncMin
	FuncAvg
	FuncSum
)

var funcNames = [...]string{
	FuncConcat:    "CONCAT",
	FuncSubstring: "SUBSTRING",
	FuncLocate:    "LOCATE",
	FuncLower:     "LOWER",
	FuncUpper:     "UPPER",
	FuncLength:    "LENGTH",
	FuncAbs:       "ABS",
	FuncMod:       "MOD",
	FuncSqrt:      "SQRT",
	FuncCount:     "COUNT",
	FuncMax:       "MAX",
	FuncMin:       "MIN",
	FuncAvg:       "AVG",
	FuncSum:       "SUM",
}

// Funcs lists every function kind in declaration order.
func Funcs() []Func {
	out := make([]Func, len(funcNames))
	for i := range funcNames {
		out[i] = Func(i)
	}
	return out
}

func (f Func) String() string {
	if int(f) < len(funcNames) {
		return funcNames[f]
	}
	return fmt.Sprintf("Func(%d)", int(f))
}

// Aggregate reports whether f is an aggregate function.
func (f Func) Aggregate() bool {
	return f >= FuncCount && f <= FuncSum
}

// ParseFunc resolves a function name, case-insensitively. LCASE and UCASE
// are accepted as aliases of LOWER and UPPER.
func ParseFunc(name string) (Func, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	switch name {
	case "LCASE":
		return FuncLower, true
	case "UCASE":
		return FuncUpper, true
	}
	for i, n := range funcNames {
		if n == name {
			return Func(i), true
		}
	}
	return 0, false
}

// Arity returns the minimum and maximum number of arguments f accepts.
func (f Func) Arity() (min, max int) {
	switch f {
	case FuncConcat, FuncMod:
		return 2, 2
	case FuncSubstring:
		return 3, 3
	case FuncLocate:
		return 2, 3
	}
	return 1, 1
}
