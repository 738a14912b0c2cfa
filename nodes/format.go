package nodes

import (
	"fmt"
	"strconv"
	"strings"
)

// Operator precedence used when rendering; higher binds tighter.
const (
	precOr = iota + 1
	precAnd
	precNot
	precPredicate
	precAdditive
	precMultiplicative
	precUnary
	precPrimary
)

// Format renders a node as query-language text. Rendering a parsed query
// yields text that parses back to an equivalent tree.
func Format(n Node) string {
	var sb strings.Builder
	format(&sb, n)
	return sb.String()
}

func format(sb *strings.Builder, n Node) {
	switch v := n.(type) {
	case nil:
	case *Query:
		formatQuery(sb, v)
	case *Select:
		sb.WriteString("SELECT ")
		if v.Distinct {
			sb.WriteString("DISTINCT ")
		}
		format(sb, v.Target)
	case *Object:
		fmt.Fprintf(sb, "OBJECT(%s)", v.Var)
	case *RangeVariable:
		fmt.Fprintf(sb, "%s %s", v.Entity, v.Var)
	case *CollectionMember:
		fmt.Fprintf(sb, "IN(%s) %s", v.Path, v.Var)
	case *Where:
		floor := precOr
		if len(v.Terms) > 1 {
			floor = precOr + 1
		}
		for i, t := range v.Terms {
			if i > 0 {
				sb.WriteString(" OR ")
			}
			formatChild(sb, t, floor)
		}
	case *OrderItem:
		sb.WriteString(v.Path.String())
		if v.Desc {
			sb.WriteString(" DESC")
		}
	case *Path:
		sb.WriteString(v.String())
	case *And:
		for i, o := range v.Operands {
			if i > 0 {
				sb.WriteString(" AND ")
			}
			formatChild(sb, o, precAnd+1)
		}
	case *Or:
		for i, o := range v.Operands {
			if i > 0 {
				sb.WriteString(" OR ")
			}
			formatChild(sb, o, precOr+1)
		}
	case *Not:
		sb.WriteString("NOT ")
		formatChild(sb, v.Operand, precNot)
	case *Grouping:
		sb.WriteByte('(')
		format(sb, v.Inner)
		sb.WriteByte(')')
	case *Comparison:
		formatChild(sb, v.Left, precAdditive)
		fmt.Fprintf(sb, " %s ", v.Op)
		formatChild(sb, v.Right, precAdditive)
	case *Between:
		formatChild(sb, v.Expr, precAdditive)
		sb.WriteString(not(v.Not) + " BETWEEN ")
		formatChild(sb, v.Low, precAdditive)
		sb.WriteString(" AND ")
		formatChild(sb, v.High, precAdditive)
	case *In:
		formatChild(sb, v.Expr, precAdditive)
		sb.WriteString(not(v.Not) + " IN (")
		for i, val := range v.Values {
			if i > 0 {
				sb.WriteString(", ")
			}
			format(sb, val)
		}
		sb.WriteByte(')')
	case *Like:
		formatChild(sb, v.Expr, precAdditive)
		sb.WriteString(not(v.Not) + " LIKE ")
		format(sb, v.Pattern)
		if v.Escape != nil {
			sb.WriteString(" ESCAPE ")
			format(sb, v.Escape)
		}
	case *IsNull:
		formatChild(sb, v.Expr, precAdditive)
		sb.WriteString(" IS" + not(v.Not) + " NULL")
	case *IsEmpty:
		sb.WriteString(v.Path.String())
		sb.WriteString(" IS" + not(v.Not) + " EMPTY")
	case *MemberOf:
		format(sb, v.Member)
		sb.WriteString(not(v.Not) + " MEMBER OF ")
		sb.WriteString(v.Path.String())
	case *Arithmetic:
		prec := precAdditive
		if v.Op == OpMul || v.Op == OpDiv {
			prec = precMultiplicative
		}
		formatChild(sb, v.Left, prec)
		fmt.Fprintf(sb, " %s ", v.Op)
		formatChild(sb, v.Right, prec+1)
	case *Negate:
		sb.WriteByte('-')
		formatChild(sb, v.Operand, precUnary)
	case *Function:
		sb.WriteString(v.Func.String())
		sb.WriteByte('(')
		for i, a := range v.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			format(sb, a)
		}
		sb.WriteByte(')')
	case *Aggregate:
		sb.WriteString(v.Func.String())
		sb.WriteByte('(')
		if v.Distinct {
			sb.WriteString("DISTINCT ")
		}
		format(sb, v.Arg)
		sb.WriteByte(')')
	case *Parameter:
		sb.WriteString("?" + strconv.Itoa(v.Number))
	case *StringLiteral:
		sb.WriteString("'" + strings.ReplaceAll(v.Value, "'", "''") + "'")
	case *IntLiteral:
		sb.WriteString(strconv.FormatInt(v.Value, 10))
	case *FloatLiteral:
		s := strconv.FormatFloat(v.Value, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		sb.WriteString(s)
	case *BoolLiteral:
		if v.Value {
			sb.WriteString("TRUE")
		} else {
			sb.WriteString("FALSE")
		}
	default:
		fmt.Fprintf(sb, "<%T>", n)
	}
}

func formatQuery(sb *strings.Builder, q *Query) {
	format(sb, q.Select)
	sb.WriteString(" FROM ")
	for i, d := range q.From {
		if i > 0 {
			sb.WriteString(", ")
		}
		format(sb, d)
	}
	if q.Where != nil && len(q.Where.Terms) > 0 {
		sb.WriteString(" WHERE ")
		format(sb, q.Where)
	}
	if len(q.OrderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, o := range q.OrderBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			format(sb, o)
		}
	}
	if q.Offset != nil {
		sb.WriteString(" OFFSET ")
		format(sb, q.Offset)
	}
	if q.Limit != nil {
		sb.WriteString(" LIMIT ")
		format(sb, q.Limit)
	}
}

// formatChild renders c, parenthesizing it when it binds looser than floor.
func formatChild(sb *strings.Builder, c Node, floor int) {
	if precedence(c) < floor {
		sb.WriteByte('(')
		format(sb, c)
		sb.WriteByte(')')
		return
	}
	format(sb, c)
}

func precedence(n Node) int {
	switch v := n.(type) {
	case *Or:
		return precOr
	case *And:
		return precAnd
	case *Not:
		return precNot
	case *Comparison, *Between, *In, *Like, *IsNull, *IsEmpty, *MemberOf:
		return precPredicate
	case *Arithmetic:
		if v.Op == OpMul || v.Op == OpDiv {
			return precMultiplicative
		}
		return precAdditive
	case *Negate:
		return precUnary
	default:
		return precPrimary
	}
}

func not(b bool) string {
	if b {
		return " NOT"
	}
	return ""
}
