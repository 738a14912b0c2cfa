// Package qlparse parses query-language text into nodes trees.
//
//	SELECT [DISTINCT] OBJECT(o) | path | FUNC(args)
//	FROM Entity [AS] v, IN(path) [AS] v
//	[WHERE condition]
//	[ORDER BY path [ASC|DESC], ...]
//	[OFFSET n|?n] [LIMIT n|?n]   (in either order)
//
// Keywords are case insensitive.
package qlparse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/wildfly/cmpql/internal/quoting"
	"github.com/wildfly/cmpql/nodes"
)

var options = []participle.Option{
	participle.Lexer(queryLexer),
	participle.Elide("Whitespace"),
	participle.CaseInsensitive("Ident"),
	participle.UseLookahead(64),
}

var (
	queryParser     = participle.MustBuild[rawQuery](options...)
	conditionParser = participle.MustBuild[rawOr](options...)
)

// Parse parses a complete query.
func Parse(src string) (*nodes.Query, error) {
	raw, err := queryParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("qlparse: %w", err)
	}
	return convertQuery(raw)
}

// MustParse is like Parse but panics on error.
func MustParse(src string) *nodes.Query {
	q, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return q
}

// ParseCondition parses a conditional expression as found after WHERE.
// A top-level OR yields an *nodes.Or.
func ParseCondition(src string) (nodes.Node, error) {
	raw, err := conditionParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("qlparse: %w", err)
	}
	return convertOr(raw)
}

func convertQuery(raw *rawQuery) (*nodes.Query, error) {
	q := &nodes.Query{Select: &nodes.Select{Distinct: raw.Select.Distinct}}
	target, err := convertTarget(raw.Select.Target)
	if err != nil {
		return nil, err
	}
	q.Select.Target = target

	for _, d := range raw.From {
		switch {
		case d.Member != nil:
			q.From = append(q.From, nodes.Collection(path(d.Member.Path), d.Member.Var))
		case d.Range != nil:
			q.From = append(q.From, nodes.Range(d.Range.Entity, d.Range.Var))
		}
	}
	if raw.Where != nil {
		cond, err := convertOr(raw.Where)
		if err != nil {
			return nil, err
		}
		q.Where = nodes.WhereOf(cond)
	}
	for _, o := range raw.OrderBy {
		q.OrderBy = append(q.OrderBy, &nodes.OrderItem{Path: path(o.Path), Desc: strings.EqualFold(o.Dir, "DESC")})
	}
	for _, b := range raw.Bounds {
		dst := &q.Limit
		if strings.EqualFold(b.Kind, "OFFSET") {
			dst = &q.Offset
		}
		if *dst != nil {
			return nil, fmt.Errorf("qlparse: %s: duplicate %s", b.Pos, strings.ToUpper(b.Kind))
		}
		if *dst, err = convertBound(b.Value); err != nil {
			return nil, err
		}
	}
	return q, nil
}

func convertTarget(t *rawTarget) (nodes.Node, error) {
	switch {
	case t.Object != nil:
		return nodes.Obj(*t.Object), nil
	case t.Call != nil:
		return convertCall(t.Call)
	}
	return path(t.Path), nil
}

func convertBound(b *rawBound) (nodes.Node, error) {
	switch {
	case b == nil:
		return nil, nil
	case b.Param != nil:
		return param(*b.Param)
	}
	n, err := strconv.ParseInt(*b.Int, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("qlparse: %w", err)
	}
	return nodes.Int(n), nil
}

func path(p *rawPath) *nodes.Path {
	return &nodes.Path{Segments: append([]string(nil), p.Segments...)}
}

func param(tok string) (*nodes.Parameter, error) {
	n, err := strconv.Atoi(tok[1:])
	if err != nil {
		return nil, fmt.Errorf("qlparse: parameter %s: %w", tok, err)
	}
	return nodes.Param(n), nil
}

func convertOr(raw *rawOr) (nodes.Node, error) {
	terms := make([]nodes.Node, 0, len(raw.Terms))
	for _, t := range raw.Terms {
		factors := make([]nodes.Node, 0, len(t.Factors))
		for _, f := range t.Factors {
			c, err := convertNot(f)
			if err != nil {
				return nil, err
			}
			factors = append(factors, c)
		}
		terms = append(terms, nodes.AndOf(factors...))
	}
	return nodes.OrOf(terms...), nil
}

func convertNot(raw *rawNot) (nodes.Node, error) {
	var (
		c   nodes.Node
		err error
	)
	if raw.Cond.Group != nil {
		inner, gerr := convertOr(raw.Cond.Group)
		if gerr != nil {
			return nil, gerr
		}
		c = nodes.Group(inner)
	} else if c, err = convertPredicate(raw.Cond.Pred); err != nil {
		return nil, err
	}
	if raw.Not {
		return nodes.NotOf(c), nil
	}
	return c, nil
}

func convertPredicate(raw *rawPredicate) (nodes.Node, error) {
	left, err := convertExpr(raw.Left)
	if err != nil {
		return nil, err
	}
	switch {
	case raw.Comparison != nil:
		op, ok := nodes.ParseCompareOp(raw.Comparison.Op)
		if !ok {
			return nil, fmt.Errorf("qlparse: %s: unknown operator %s", raw.Pos, raw.Comparison.Op)
		}
		right, err := convertExpr(raw.Comparison.Right)
		if err != nil {
			return nil, err
		}
		return nodes.Compare(op, left, right), nil
	case raw.Between != nil:
		low, err := convertExpr(raw.Between.Low)
		if err != nil {
			return nil, err
		}
		high, err := convertExpr(raw.Between.High)
		if err != nil {
			return nil, err
		}
		return &nodes.Between{Not: raw.Between.Not, Expr: left, Low: low, High: high}, nil
	case raw.In != nil:
		in := &nodes.In{Not: raw.In.Not, Expr: left}
		for _, v := range raw.In.Values {
			x, err := convertExpr(v)
			if err != nil {
				return nil, err
			}
			in.Values = append(in.Values, x)
		}
		return in, nil
	case raw.Like != nil:
		like := &nodes.Like{Not: raw.Like.Not, Expr: left}
		if like.Pattern, err = convertPrimary(raw.Like.Pattern); err != nil {
			return nil, err
		}
		if raw.Like.Escape != nil {
			if like.Escape, err = convertPrimary(raw.Like.Escape); err != nil {
				return nil, err
			}
		}
		return like, nil
	case raw.Is != nil:
		if strings.EqualFold(raw.Is.What, "NULL") {
			return &nodes.IsNull{Not: raw.Is.Not, Expr: left}, nil
		}
		p, ok := left.(*nodes.Path)
		if !ok {
			return nil, fmt.Errorf("qlparse: %s: IS EMPTY needs a collection path", raw.Pos)
		}
		return &nodes.IsEmpty{Not: raw.Is.Not, Path: p}, nil
	case raw.MemberOf != nil:
		return &nodes.MemberOf{Not: raw.MemberOf.Not, Member: left, Path: path(raw.MemberOf.Path)}, nil
	}
	return nil, fmt.Errorf("qlparse: %s: expected a predicate", raw.Pos)
}

func convertExpr(raw *rawExpr) (nodes.Node, error) {
	left, err := convertTerm(raw.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range raw.Rest {
		right, err := convertTerm(r.Term)
		if err != nil {
			return nil, err
		}
		op := nodes.OpAdd
		if r.Op == "-" {
			op = nodes.OpSub
		}
		left = nodes.Arith(op, left, right)
	}
	return left, nil
}

func convertTerm(raw *rawTerm) (nodes.Node, error) {
	left, err := convertFactor(raw.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range raw.Rest {
		right, err := convertFactor(r.Factor)
		if err != nil {
			return nil, err
		}
		op := nodes.OpMul
		if r.Op == "/" {
			op = nodes.OpDiv
		}
		left = nodes.Arith(op, left, right)
	}
	return left, nil
}

func convertFactor(raw *rawFactor) (nodes.Node, error) {
	x, err := convertPrimary(raw.Primary)
	if err != nil || !raw.Neg {
		return x, err
	}
	switch v := x.(type) {
	case *nodes.IntLiteral:
		v.Value = -v.Value
		return v, nil
	case *nodes.FloatLiteral:
		v.Value = -v.Value
		return v, nil
	}
	return &nodes.Negate{Operand: x}, nil
}

func convertPrimary(raw *rawPrimary) (nodes.Node, error) {
	switch {
	case raw.Param != nil:
		return param(*raw.Param)
	case raw.Float != nil:
		f, err := strconv.ParseFloat(*raw.Float, 64)
		if err != nil {
			return nil, fmt.Errorf("qlparse: %w", err)
		}
		return nodes.Float(f), nil
	case raw.Int != nil:
		n, err := strconv.ParseInt(*raw.Int, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("qlparse: %w", err)
		}
		return nodes.Int(n), nil
	case raw.String != nil:
		return nodes.Str(quoting.Unquote(*raw.String)), nil
	case raw.Bool != nil:
		return nodes.Bool(strings.EqualFold(*raw.Bool, "TRUE")), nil
	case raw.Call != nil:
		return convertCall(raw.Call)
	case raw.Path != nil:
		return path(raw.Path), nil
	case raw.Sub != nil:
		return convertExpr(raw.Sub)
	}
	return nil, fmt.Errorf("qlparse: empty expression")
}

func convertCall(raw *rawCall) (nodes.Node, error) {
	f, ok := nodes.ParseFunc(raw.Name)
	if !ok {
		return nil, fmt.Errorf("qlparse: %s: unknown function %s", raw.Pos, raw.Name)
	}
	args := make([]nodes.Node, 0, len(raw.Args))
	for _, a := range raw.Args {
		x, err := convertExpr(a)
		if err != nil {
			return nil, err
		}
		args = append(args, x)
	}
	if f.Aggregate() {
		if len(args) != 1 {
			return nil, fmt.Errorf("qlparse: %s: %s takes one argument, got %d", raw.Pos, f, len(args))
		}
		return nodes.Agg(f, raw.Distinct, args[0]), nil
	}
	if raw.Distinct {
		return nil, fmt.Errorf("qlparse: %s: DISTINCT is only allowed in aggregates", raw.Pos)
	}
	return nodes.Call(f, args...), nil
}
