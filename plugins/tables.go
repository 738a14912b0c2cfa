package plugins

import (
	"github.com/wildfly/cmpql/catalog"
	"github.com/wildfly/cmpql/nodes"
)

// VariableRef is an identification variable declared in a FROM clause.
type VariableRef struct {
	Var string
	// Entity is the entity the variable ranges over. It is empty for a
	// collection member that could not be resolved.
	Entity string
	// Path is the collection path of an IN(...) declaration, nil for
	// range variables.
	Path *nodes.Path
}

// CollectVariables returns the variables declared by q in declaration
// order. When schema is non-nil, collection members are resolved to the
// target entity of their collection path.
func CollectVariables(q *nodes.Query, schema catalog.Schema) []VariableRef {
	refs := make([]VariableRef, 0, len(q.From))
	entities := make(map[string]string, len(q.From))
	for _, d := range q.From {
		switch v := d.(type) {
		case *nodes.RangeVariable:
			entities[v.Var] = v.Entity
			refs = append(refs, VariableRef{Var: v.Var, Entity: v.Entity})
		case *nodes.CollectionMember:
			name := resolvePath(schema, entities[v.Path.Root()], v.Path.Segments[1:])
			entities[v.Var] = name
			refs = append(refs, VariableRef{Var: v.Var, Entity: name, Path: v.Path})
		}
	}
	return refs
}

func resolvePath(schema catalog.Schema, entity string, segments []string) string {
	if schema == nil || entity == "" {
		return ""
	}
	for _, seg := range segments {
		e, ok := schema.Entity(entity)
		if !ok {
			return ""
		}
		r := e.Relationship(seg)
		if r == nil {
			return ""
		}
		entity = r.Target
	}
	return entity
}
