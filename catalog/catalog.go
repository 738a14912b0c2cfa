// Package catalog describes the persistent entities a query ranges over:
// their tables, key and persistent fields, relationships and load groups.
//
// A Catalog is read-only once built and may be shared by any number of
// concurrent compilations.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Schema is the lookup the compiler needs from entity metadata.
type Schema interface {
	Entity(name string) (*Entity, bool)
}

// Column is a physical column of an entity table.
type Column struct {
	Name     string
	Property string // component name inside a composite value field
	Kind     Kind
}

// Field is a persistent field. Simple fields map to one column; composite
// value fields map to one column per property.
type Field struct {
	Name    string
	Type    Type
	Columns []Column
}

// Single reports whether the field maps to exactly one column.
func (f *Field) Single() bool { return len(f.Columns) == 1 }

// Style is the mapping style of a relationship.
type Style int

const (
	// ForeignKey relationships store the key of one side in the other
	// side's table.
	ForeignKey Style = iota
	// JoinTable relationships store both keys in a third table.
	JoinTable
)

func (s Style) String() string {
	if s == JoinTable {
		return "join-table"
	}
	return "foreign-key"
}

// KeyPair equates a column on one side of a relationship with a column
// on the other side.
type KeyPair struct {
	From string
	To   string
}

// Relationship is a navigable relationship field of an entity.
type Relationship struct {
	Name   string
	Target string
	Many   bool
	Style  Style

	// Keys pairs source table columns (From) with target table columns
	// (To) for foreign-key relationships.
	Keys []KeyPair
	// OwnsKey is set when the source table holds the foreign key.
	OwnsKey bool

	// Table is the join table for join-table relationships.
	Table string
	// SourceKeys pairs source table columns (From) with join table
	// columns (To).
	SourceKeys []KeyPair
	// TargetKeys pairs target table columns (From) with join table
	// columns (To).
	TargetKeys []KeyPair

	source *Entity
	target *Entity
}

// Source returns the entity declaring the relationship.
func (r *Relationship) Source() *Entity { return r.source }

// TargetEntity returns the related entity.
func (r *Relationship) TargetEntity() *Entity { return r.target }

// KeyColumn is a flattened primary-key column.
type KeyColumn struct {
	Field string
	Column
}

// Entity describes a persistent entity.
type Entity struct {
	Name          string
	Table         string
	PrimaryKey    []string // field names, in key order
	Fields        []*Field
	Relationships []*Relationship
	LoadGroups    map[string][]string
}

// Field returns the named field, or nil.
func (e *Entity) Field(name string) *Field {
	for _, f := range e.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Relationship returns the named relationship, or nil.
func (e *Entity) Relationship(name string) *Relationship {
	for _, r := range e.Relationships {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// KeyColumns returns the primary-key columns in key order, composite
// value keys flattened by property.
func (e *Entity) KeyColumns() []KeyColumn {
	var out []KeyColumn
	for _, name := range e.PrimaryKey {
		f := e.Field(name)
		if f == nil {
			continue
		}
		for _, c := range f.Columns {
			out = append(out, KeyColumn{Field: f.Name, Column: c})
		}
	}
	return out
}

// CompositeKey reports whether the primary key spans several columns.
func (e *Entity) CompositeKey() bool { return len(e.KeyColumns()) > 1 }

// IsKey reports whether the named field is part of the primary key.
func (e *Entity) IsKey(field string) bool {
	for _, k := range e.PrimaryKey {
		if k == field {
			return true
		}
	}
	return false
}

// LoadGroup returns a mask over Fields selecting the non-key fields of the
// named group. The group "*" selects every non-key field.
func (e *Entity) LoadGroup(name string) ([]bool, error) {
	mask := make([]bool, len(e.Fields))
	if name == "*" {
		for i, f := range e.Fields {
			mask[i] = !e.IsKey(f.Name)
		}
		return mask, nil
	}
	names, ok := e.LoadGroups[name]
	if !ok {
		return nil, fmt.Errorf("catalog: entity %s has no load group %q", e.Name, name)
	}
	for _, n := range names {
		found := false
		for i, f := range e.Fields {
			if f.Name == n {
				mask[i] = !e.IsKey(n)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("catalog: load group %q of %s names unknown field %q", name, e.Name, n)
		}
	}
	return mask, nil
}

// Catalog is a validated, linked set of entities.
type Catalog struct {
	entities map[string]*Entity
	order    []*Entity
}

var _ Schema = (*Catalog)(nil)

// New validates the entities and links their relationships.
func New(entities ...*Entity) (*Catalog, error) {
	c := &Catalog{entities: make(map[string]*Entity, len(entities))}
	var errs []error
	for _, e := range entities {
		if e.Name == "" {
			errs = append(errs, errors.New("catalog: entity with empty name"))
			continue
		}
		if _, dup := c.entities[e.Name]; dup {
			errs = append(errs, fmt.Errorf("catalog: duplicate entity %s", e.Name))
			continue
		}
		c.entities[e.Name] = e
		c.order = append(c.order, e)
	}
	for _, e := range c.order {
		errs = append(errs, c.validate(e)...)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate(e *Entity) []error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("catalog: entity %s: "+format, append([]any{e.Name}, args...)...))
	}
	if e.Table == "" {
		fail("no table")
	}
	seen := make(map[string]bool)
	for _, f := range e.Fields {
		if seen[f.Name] {
			fail("duplicate field %s", f.Name)
		}
		seen[f.Name] = true
		switch {
		case len(f.Columns) == 0:
			fail("field %s has no columns", f.Name)
		case f.Type.Kind == KindValue:
			for i := range f.Columns {
				if f.Columns[i].Property == "" {
					fail("value field %s: column %s has no property", f.Name, f.Columns[i].Name)
				}
			}
		case f.Type.Kind == KindEntity:
			fail("field %s: entity-typed fields must be relationships", f.Name)
		default:
			if len(f.Columns) != 1 {
				fail("field %s of type %s must map to one column", f.Name, f.Type)
			}
			if f.Columns[0].Kind == KindUnknown {
				f.Columns[0].Kind = f.Type.Kind
			}
		}
	}
	if len(e.PrimaryKey) == 0 {
		fail("no primary key")
	}
	for _, k := range e.PrimaryKey {
		if !seen[k] {
			fail("primary key field %s is not declared", k)
		}
	}
	for _, r := range e.Relationships {
		if seen[r.Name] {
			fail("relationship %s clashes with a field", r.Name)
		}
		seen[r.Name] = true
		r.source = e
		target, ok := c.Entity(r.Target)
		if !ok {
			fail("relationship %s targets unknown entity %s", r.Name, r.Target)
			continue
		}
		r.target = target
		switch r.Style {
		case ForeignKey:
			if len(r.Keys) == 0 {
				fail("relationship %s has no key columns", r.Name)
			}
		case JoinTable:
			if r.Table == "" {
				fail("relationship %s has no join table", r.Name)
			}
			if len(r.SourceKeys) == 0 || len(r.TargetKeys) == 0 {
				fail("relationship %s needs source and target join columns", r.Name)
			}
		default:
			fail("relationship %s has unknown mapping style %d", r.Name, r.Style)
		}
	}
	return errs
}

// Entity looks an entity up by abstract schema name. An exact match wins
// over a case-insensitive one.
func (c *Catalog) Entity(name string) (*Entity, bool) {
	if e, ok := c.entities[name]; ok {
		return e, true
	}
	for _, e := range c.order {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return nil, false
}

// Entities returns all entities in declaration order.
func (c *Catalog) Entities() []*Entity {
	return append([]*Entity(nil), c.order...)
}
