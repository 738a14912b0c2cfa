package compiler

import (
	"fmt"

	"github.com/wildfly/cmpql/catalog"
)

// Parameter describes one placeholder of the compiled SQL.
type Parameter struct {
	// Arg is the zero-based index of the call argument.
	Arg     int
	SQLType catalog.SQLType
	// Entity names the entity when the argument is an entity reference
	// decomposed into its key columns.
	Entity string
	// Field is the key field of Entity bound by this placeholder.
	Field string
	// Property is the component of a composite value bound by this
	// placeholder: a property of a composite key field, or of a value
	// argument.
	Property string
}

// Lookup is implemented by arguments that stand for entity references or
// composite values.
type Lookup interface {
	Lookup(name string) (any, bool)
}

// Values is a Lookup over a map. Nested composite values may themselves
// be Values.
type Values map[string]any

// Lookup returns the named component.
func (v Values) Lookup(name string) (any, bool) {
	x, ok := v[name]
	return x, ok
}

func (p Parameter) String() string {
	s := fmt.Sprintf("?%d %s", p.Arg+1, p.SQLType)
	switch {
	case p.Field != "" && p.Property != "":
		s += fmt.Sprintf(" (%s.%s.%s)", p.Entity, p.Field, p.Property)
	case p.Field != "":
		s += fmt.Sprintf(" (%s.%s)", p.Entity, p.Field)
	case p.Property != "":
		s += fmt.Sprintf(" (.%s)", p.Property)
	}
	return s
}

// Value extracts the bound value from the call arguments. A nil entity or
// composite argument binds NULL. An argument that does not implement
// Lookup stands for the key itself, which is only valid for entities with
// a single-column key.
func (p Parameter) Value(args []any) (any, error) {
	if p.Arg < 0 || p.Arg >= len(args) {
		return nil, fmt.Errorf("argument %d not supplied (%d given)", p.Arg+1, len(args))
	}
	v := args[p.Arg]
	if p.Field == "" && p.Property == "" {
		return v, nil
	}
	for _, name := range []string{p.Field, p.Property} {
		if name == "" {
			continue
		}
		if v == nil {
			return nil, nil
		}
		l, ok := v.(Lookup)
		if !ok {
			if p.Property == "" {
				return v, nil
			}
			return nil, fmt.Errorf("argument %d: %T has no component %q", p.Arg+1, v, name)
		}
		if v, ok = l.Lookup(name); !ok {
			return nil, fmt.Errorf("argument %d: missing component %q", p.Arg+1, name)
		}
	}
	return v, nil
}
