// Package softdelete provides a Transformer that filters out soft-deleted
// entities by adding a condition on a marker field for every declared
// identification variable.
//
// By default it appends "v.deletedAt IS NULL" for every variable in the
// FROM clause. The field name and the set of entities can be customised
// via options.
//
// # Basic usage
//
//	sd := softdelete.New()
//	q := managers.NewQueryManager("Customer", "c").Use(sd)
//	// SELECT OBJECT(c) FROM Customer c WHERE c.deletedAt IS NULL
//
// # Restrict to specific entities
//
//	sd := softdelete.New(softdelete.WithEntities("Customer"))
//
// # Per-entity fields
//
//	sd := softdelete.New(
//	    softdelete.WithEntityField("Customer", "deletedAt"),
//	    softdelete.WithEntityField("Order", "archived"),
//	)
//
// With a schema (WithSchema), collection members are resolved to their
// entity, variables whose entity lacks the marker field are skipped, and
// boolean markers are tested with "= FALSE" instead of IS NULL.
package softdelete

import (
	"github.com/wildfly/cmpql/catalog"
	"github.com/wildfly/cmpql/nodes"
	"github.com/wildfly/cmpql/plugins"
)

// SoftDelete is a Transformer that appends soft-delete conditions for
// every declared variable (or a configured subset of entities).
type SoftDelete struct {
	Field    string
	Fields   map[string]string // per-entity field overrides (entity name → field name)
	entities map[string]bool   // nil means apply to all entities
	schema   catalog.Schema
}

// Option configures a SoftDelete transformer.
type Option func(*SoftDelete)

// WithField sets the marker field name. Default is "deletedAt".
func WithField(name string) Option {
	return func(sd *SoftDelete) { sd.Field = name }
}

// WithEntities restricts the plugin to the named entities.
func WithEntities(names ...string) Option {
	return func(sd *SoftDelete) {
		sd.entities = make(map[string]bool, len(names))
		for _, n := range names {
			sd.entities[n] = true
		}
	}
}

// WithEntityField sets a per-entity field override. The entity is added
// to the whitelist, restricting the plugin's scope.
func WithEntityField(entity, field string) Option {
	return func(sd *SoftDelete) {
		if sd.Fields == nil {
			sd.Fields = make(map[string]string)
		}
		sd.Fields[entity] = field
		if sd.entities == nil {
			sd.entities = make(map[string]bool)
		}
		sd.entities[entity] = true
	}
}

// WithSchema resolves variables and marker fields against schema.
func WithSchema(schema catalog.Schema) Option {
	return func(sd *SoftDelete) { sd.schema = schema }
}

// New creates a SoftDelete transformer with the given options.
func New(opts ...Option) *SoftDelete {
	sd := &SoftDelete{Field: "deletedAt"}
	for _, o := range opts {
		o(sd)
	}
	return sd
}

// TransformQuery adds one condition per matching variable to every WHERE
// term of q.
func (sd *SoftDelete) TransformQuery(q *nodes.Query) (*nodes.Query, error) {
	if conds := sd.Conditions(q); len(conds) > 0 {
		plugins.Restrict(q, nodes.AndOf(conds...))
	}
	return q, nil
}

// Conditions returns the conditions TransformQuery would add to q.
func (sd *SoftDelete) Conditions(q *nodes.Query) []nodes.Node {
	var conds []nodes.Node
	for _, ref := range plugins.CollectVariables(q, sd.schema) {
		if c := sd.condition(ref); c != nil {
			conds = append(conds, c)
		}
	}
	return conds
}

func (sd *SoftDelete) condition(ref plugins.VariableRef) nodes.Node {
	if !sd.appliesTo(ref.Entity) {
		return nil
	}
	field := sd.fieldFor(ref.Entity)
	marker := &nodes.Path{Segments: []string{ref.Var, field}}
	if sd.schema == nil {
		return marker.IsNull()
	}
	e, ok := sd.schema.Entity(ref.Entity)
	if !ok {
		return nil
	}
	f := e.Field(field)
	if f == nil {
		return nil
	}
	if f.Type.Kind == catalog.KindBoolean {
		return marker.Eq(nodes.Bool(false))
	}
	return marker.IsNull()
}

func (sd *SoftDelete) appliesTo(entity string) bool {
	if sd.entities == nil {
		return true
	}
	return sd.entities[entity]
}

// fieldFor returns the marker field for the given entity, checking Fields
// for a per-entity override before falling back to Field.
func (sd *SoftDelete) fieldFor(entity string) string {
	if sd.Fields != nil {
		if f, ok := sd.Fields[entity]; ok {
			return f
		}
	}
	return sd.Field
}
