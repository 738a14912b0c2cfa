package compiler

import (
	"errors"
	"fmt"
)

// Sentinel errors for the three failure classes. Every error returned by
// Compile matches exactly one of them under errors.Is.
var (
	// ErrShape is returned for malformed or unexpected query trees: an
	// unknown node type, a missing child, a wrong argument count.
	ErrShape = errors.New("cmpql: malformed query tree")

	// ErrSemantic is returned for user query errors: incompatible operand
	// types, unknown names, a non-integer LIMIT parameter.
	ErrSemantic = errors.New("cmpql: invalid query")

	// ErrConfig is returned when the dialect cannot express the query, for
	// example when a function template is missing.
	ErrConfig = errors.New("cmpql: unsupported by dialect")
)

// ErrorKind classifies an Error.
type ErrorKind int

const (
	KindShape ErrorKind = iota + 1
	KindSemantic
	KindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindShape:
		return "shape"
	case KindSemantic:
		return "semantic"
	case KindConfig:
		return "config"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a terminal compile error.
type Error struct {
	Kind ErrorKind
	Msg  string
}

// Error returns the error string.
func (e *Error) Error() string {
	return "cmpql: " + e.Msg
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindShape:
		return target == ErrShape
	case KindSemantic:
		return target == ErrSemantic
	case KindConfig:
		return target == ErrConfig
	}
	return false
}

func shapef(format string, args ...any) error {
	return &Error{Kind: KindShape, Msg: fmt.Sprintf(format, args...)}
}

func semanticf(format string, args ...any) error {
	return &Error{Kind: KindSemantic, Msg: fmt.Sprintf(format, args...)}
}

func configf(format string, args ...any) error {
	return &Error{Kind: KindConfig, Msg: fmt.Sprintf(format, args...)}
}

// IsShape returns true if err is a malformed-tree error.
func IsShape(err error) bool { return errors.Is(err, ErrShape) }

// IsSemantic returns true if err is a user query error.
func IsSemantic(err error) bool { return errors.Is(err, ErrSemantic) }

// IsConfig returns true if err is a dialect configuration error.
func IsConfig(err error) bool { return errors.Is(err, ErrConfig) }
