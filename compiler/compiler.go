// Package compiler translates query trees into dialect-specific SQL and
// a positional parameter plan.
//
// A Compiler holds only read-only configuration. Every call to Compile
// builds its own state, so one Compiler may be shared by concurrent
// goroutines.
package compiler

import (
	"context"
	"log/slog"

	"github.com/wildfly/cmpql/catalog"
	"github.com/wildfly/cmpql/dialect"
	"github.com/wildfly/cmpql/nodes"
)

// Compiler compiles queries against one catalog for one dialect.
type Compiler struct {
	schema  catalog.Schema
	dialect *dialect.Dialect
	logger  *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger receiving debug summaries of each
// compilation.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Compiler for schema and d.
func New(schema catalog.Schema, d *dialect.Dialect, opts ...Option) *Compiler {
	c := &Compiler{
		schema:  schema,
		dialect: d,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Dialect returns the target dialect.
func (c *Compiler) Dialect() *dialect.Dialect { return c.dialect }

// LeftJoin requests that a relationship of the selected entity be read
// ahead through a left outer join. Path is relative to the selected
// entity, for example "customer" or "lines.item".
type LeftJoin struct {
	Path      string
	EagerLoad string
}

type queryOptions struct {
	eagerLoad  string
	leftJoins  []LeftJoin
	rowLocking bool
}

// QueryOption configures one compilation.
type QueryOption func(*queryOptions)

// WithEagerLoad loads the fields of the named load group alongside the
// key of a selected entity. The group "*" loads every field.
func WithEagerLoad(group string) QueryOption {
	return func(o *queryOptions) { o.eagerLoad = group }
}

// WithLeftJoins reads relationships of a selected entity ahead.
func WithLeftJoins(joins ...LeftJoin) QueryOption {
	return func(o *queryOptions) { o.leftJoins = append(o.leftJoins, joins...) }
}

// WithRowLocking wraps the query in the dialect's row-locking template.
func WithRowLocking() QueryOption {
	return func(o *queryOptions) { o.rowLocking = true }
}

// Compile translates q. args are the declared types of the call
// arguments, referenced by the query as ?1, ?2 and so on.
func (c *Compiler) Compile(q *nodes.Query, ret ReturnType, args []catalog.Type, opts ...QueryOption) (*Result, error) {
	if q == nil || q.Select == nil || q.Select.Target == nil {
		return nil, shapef("query has no SELECT clause")
	}
	if len(q.From) == 0 {
		return nil, shapef("query has no FROM clause")
	}
	s := newState(c, args)
	for _, o := range opts {
		o(&s.opts)
	}
	res, err := s.compile(q, ret)
	if err != nil {
		c.logger.Debug("compile failed", "dialect", c.dialect.Name(), "error", err)
		return nil, err
	}
	inner, left, theta := s.planned()
	c.logger.Debug("compiled query",
		"dialect", c.dialect.Name(),
		"select", res.Select.Kind.String(),
		"distinct", res.Distinct,
		"params", len(res.Params),
		"inner_joins", inner,
		"left_joins", left,
		"theta_joins", theta,
	)
	return res, nil
}

// state is the mutable state of one compilation.
type state struct {
	c       *Compiler
	d       *dialect.Dialect
	args    []catalog.Type
	opts    queryOptions
	aliases *AliasManager

	vars  map[string]*variable
	roots []*joinNode
	nodes map[string]*joinNode
	// decl holds the table instance of every declared variable, in
	// declaration order.
	decl []*joinNode

	// scope collects the path uses of the WHERE term being compiled; nil
	// outside WHERE.
	scope *termScope
	terms int
	// forced is set when the planned joins may repeat rows of the
	// declared variables, which DISTINCT must undo.
	forced    bool
	memberSeq int
}

// variable is a declared identification variable.
type variable struct {
	name string
	node *joinNode
}

func newState(c *Compiler, args []catalog.Type) *state {
	d := c.dialect
	return &state{
		c:       c,
		d:       d,
		args:    args,
		aliases: NewAliasManager(d.AliasPrefix(), d.AliasSuffix(), d.AliasMaxLength()),
		vars:    make(map[string]*variable),
		nodes:   make(map[string]*joinNode),
	}
}

func (s *state) force(reason string) {
	if !s.forced {
		s.c.logger.LogAttrs(context.Background(), slog.LevelDebug, "forcing DISTINCT", slog.String("reason", reason))
	}
	s.forced = true
}

func (s *state) compile(q *nodes.Query, ret ReturnType) (*Result, error) {
	if err := s.declare(q.From); err != nil {
		return nil, err
	}
	sel, err := s.selectClause(q.Select)
	if err != nil {
		return nil, err
	}
	var where *fragment
	if q.Where != nil && len(q.Where.Terms) > 0 {
		if where, err = s.where(q.Where); err != nil {
			return nil, err
		}
	}
	order, err := s.orderBy(q.OrderBy, sel)
	if err != nil {
		return nil, err
	}
	res := &Result{Select: sel.target, EagerMask: sel.eager, LeftJoins: sel.loads}
	if res.Limit, err = s.bound("LIMIT", q.Limit); err != nil {
		return nil, err
	}
	if res.Offset, err = s.bound("OFFSET", q.Offset); err != nil {
		return nil, err
	}

	distinct := q.Select.Distinct || ret == ReturnSet || s.forced
	sql, err := s.assemble(sel, where, order, distinct)
	if err != nil {
		return nil, err
	}
	res.SQL = sql.String()
	res.Params = sql.params
	res.Distinct = distinct && !sel.aggregate
	res.Locked = s.opts.rowLocking
	return res, nil
}

// bound compiles a LIMIT or OFFSET value.
func (s *state) bound(clause string, n nodes.Node) (Bound, error) {
	switch v := n.(type) {
	case nil:
		return Bound{Arg: -1}, nil
	case *nodes.IntLiteral:
		if v.Value < 0 {
			return Bound{}, semanticf("%s must not be negative, got %d", clause, v.Value)
		}
		return Bound{Present: true, Value: v.Value, Arg: -1}, nil
	case *nodes.Parameter:
		t, err := s.argType(v)
		if err != nil {
			return Bound{}, err
		}
		if t.Kind != catalog.KindInteger && t.Kind != catalog.KindLong {
			return Bound{}, semanticf("%s parameter must be an integer, ?%d is declared %s", clause, v.Number, t)
		}
		return Bound{Present: true, Arg: v.Number - 1}, nil
	}
	return Bound{}, shapef("unexpected %T in %s", n, clause)
}

func (s *state) argType(p *nodes.Parameter) (catalog.Type, error) {
	if p.Number < 1 {
		return catalog.Unknown, shapef("parameter number %d is not positive", p.Number)
	}
	if p.Number > len(s.args) {
		return catalog.Unknown, semanticf("parameter ?%d is not declared, the query takes %d arguments", p.Number, len(s.args))
	}
	return s.args[p.Number-1], nil
}
