// Package opa provides a Transformer that enforces Open Policy Agent
// policies on queries by injecting policy-derived WHERE conditions.
//
// You supply a [PolicyFunc] that is called once per identification
// variable declared in the query. The function inspects the entity and
// returns zero or more conditions on that variable. If the function
// returns an error the query is rejected entirely.
//
// # Basic usage
//
//	policy := func(entity, v string) ([]nodes.Node, error) {
//	    if entity == "Secret" {
//	        return nil, errors.New("access denied")
//	    }
//	    if entity == "Customer" {
//	        return []nodes.Node{nodes.P(v + ".tenant").Eq(nodes.Int(42))}, nil
//	    }
//	    return nil, nil
//	}
//
//	q := managers.NewQueryManager("Customer", "c").Use(opa.New(policy))
//	// SELECT OBJECT(c) FROM Customer c WHERE c.tenant = 42
//
// # Server mode
//
// NewFromServer evaluates the policy with partial evaluation on an OPA
// server: data.<Entity> is left unknown and the residual expressions on
// data.<Entity>.<field> become conditions on the variable's fields.
package opa

import (
	"context"
	"fmt"

	"github.com/wildfly/cmpql/catalog"
	"github.com/wildfly/cmpql/nodes"
	"github.com/wildfly/cmpql/plugins"
)

// PolicyFunc evaluates a policy for a variable v ranging over entity and
// returns conditions on v. Returning a non-nil error rejects the query.
type PolicyFunc func(entity, v string) ([]nodes.Node, error)

// Option configures an OPA transformer.
type Option func(*OPA)

// WithSchema resolves collection members to their entity so the policy
// also applies to them. Without a schema only range variables are
// filtered.
func WithSchema(schema catalog.Schema) Option {
	return func(o *OPA) { o.schema = schema }
}

// WithContext sets the context server requests are made with.
func WithContext(ctx context.Context) Option {
	return func(o *OPA) { o.ctx = ctx }
}

// OPA is a Transformer that evaluates a policy for every variable in the
// query and restricts each WHERE term with the result.
type OPA struct {
	evalPolicy PolicyFunc
	client     *Client
	schema     catalog.Schema
	ctx        context.Context
}

// New creates an OPA transformer with the given policy function.
func New(policy PolicyFunc, opts ...Option) *OPA {
	o := &OPA{evalPolicy: policy, ctx: context.Background()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewFromServer creates an OPA transformer backed by the Compile API of
// the server at url (e.g. "http://localhost:8181"). policyPath names the
// rule (e.g. "data.orders.allow") and input is sent with every request.
func NewFromServer(url, policyPath string, input map[string]any, opts ...Option) *OPA {
	o := New(nil, opts...)
	o.client = NewClient(url, policyPath, input)
	return o
}

// TransformQuery evaluates the policy once per entity variable and ANDs
// the conditions into every term of the WHERE clause.
func (o *OPA) TransformQuery(q *nodes.Query) (*nodes.Query, error) {
	var conds []nodes.Node
	for _, ref := range plugins.CollectVariables(q, o.schema) {
		if ref.Entity == "" {
			continue
		}
		got, err := o.conditions(ref)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", ref.Entity, ref.Var, err)
		}
		conds = append(conds, got...)
	}
	if len(conds) > 0 {
		plugins.Restrict(q, nodes.AndOf(conds...))
	}
	return q, nil
}

func (o *OPA) conditions(ref plugins.VariableRef) ([]nodes.Node, error) {
	if o.client != nil {
		return o.client.Compile(o.ctx, ref.Entity, ref.Var)
	}
	return o.evalPolicy(ref.Entity, ref.Var)
}
