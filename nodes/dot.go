package nodes

import (
	"fmt"
	"strconv"
	"strings"
)

// Color constants for DOT node categories.
const (
	colorStatement  = "#6CA6CD" // blue: query, select, declarations
	colorPath       = "#B0D4E8" // light blue: paths, objects
	colorPredicate  = "#FFB347" // orange: comparisons, predicates
	colorLogical    = "#FFEB80" // yellow: AND, OR, NOT, grouping
	colorLiteral    = "#D3D3D3" // grey: literals, parameters
	colorOrdering   = "#CDA0E0" // purple: ordering
	colorArithmetic = "#98FB98" // mint green: arithmetic
	colorFunction   = "#87CEEB" // sky blue: functions, aggregates
)

// Cluster groups WHERE terms under a labelled dashed box, for example
// the terms a transformer appended.
type Cluster struct {
	Name  string
	Color string
	Terms []int
}

type dotNode struct {
	id    string
	label string
	color string
}

type dotEdge struct {
	from  string
	to    string
	label string
}

type dotWriter struct {
	nextID   int
	nodes    []dotNode
	edges    []dotEdge
	termIDs  map[int][]string
	clusters []Cluster
}

// Dot renders the tree rooted at n as a Graphviz digraph.
func Dot(n Node, clusters ...Cluster) string {
	dw := &dotWriter{termIDs: make(map[int][]string), clusters: clusters}
	dw.visit("", "", n, -1)
	return dw.String()
}

func (dw *dotWriter) visit(parentID, label string, n Node, term int) {
	id := fmt.Sprintf("n%d", dw.nextID)
	dw.nextID++
	text, color := describe(n)
	dw.nodes = append(dw.nodes, dotNode{id: id, label: text, color: color})
	if parentID != "" {
		dw.edges = append(dw.edges, dotEdge{from: parentID, to: id, label: label})
	}
	if term >= 0 {
		dw.termIDs[term] = append(dw.termIDs[term], id)
	}
	for _, e := range children(n) {
		childTerm := term
		if w, ok := n.(*Where); ok && w != nil {
			childTerm, _ = strconv.Atoi(strings.TrimPrefix(e.label, "term"))
		}
		dw.visit(id, e.label, e.node, childTerm)
	}
}

func describe(n Node) (string, string) {
	switch v := n.(type) {
	case *Query:
		return "Query", colorStatement
	case *Select:
		if v.Distinct {
			return "Select\\nDISTINCT", colorStatement
		}
		return "Select", colorStatement
	case *Object:
		return "Object\\n" + v.Var, colorPath
	case *RangeVariable:
		return "Range\\n" + v.Entity + " " + v.Var, colorStatement
	case *CollectionMember:
		return "CollectionMember\\n" + v.Var, colorStatement
	case *Where:
		return "Where", colorLogical
	case *OrderItem:
		if v.Desc {
			return "OrderBy\\nDESC", colorOrdering
		}
		return "OrderBy\\nASC", colorOrdering
	case *Path:
		return "Path\\n" + v.String(), colorPath
	case *And:
		return "AND", colorLogical
	case *Or:
		return "OR", colorLogical
	case *Not:
		return "NOT", colorLogical
	case *Grouping:
		return "Grouping", colorLogical
	case *Comparison:
		return "Comparison\\n" + v.Op.String(), colorPredicate
	case *Between:
		return "Between" + negated(v.Not), colorPredicate
	case *In:
		return "In" + negated(v.Not), colorPredicate
	case *Like:
		return "Like" + negated(v.Not), colorPredicate
	case *IsNull:
		return "IsNull" + negated(v.Not), colorPredicate
	case *IsEmpty:
		return "IsEmpty" + negated(v.Not), colorPredicate
	case *MemberOf:
		return "MemberOf" + negated(v.Not), colorPredicate
	case *Arithmetic:
		return "Arithmetic\\n" + v.Op.String(), colorArithmetic
	case *Negate:
		return "Negate", colorArithmetic
	case *Function:
		return "Function\\n" + v.Func.String(), colorFunction
	case *Aggregate:
		if v.Distinct {
			return "Aggregate\\n" + v.Func.String() + " DISTINCT", colorFunction
		}
		return "Aggregate\\n" + v.Func.String(), colorFunction
	default:
		return Format(n), colorLiteral
	}
}

func negated(not bool) string {
	if not {
		return "\\nNOT"
	}
	return ""
}

// String generates the complete DOT graph text.
func (dw *dotWriter) String() string {
	var sb strings.Builder

	sb.WriteString("digraph Query {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, style=filled, fontname=\"Helvetica\"];\n")
	sb.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n")

	clustered := make(map[string]bool)
	for _, c := range dw.clusters {
		for _, t := range c.Terms {
			for _, id := range dw.termIDs[t] {
				clustered[id] = true
			}
		}
	}

	for _, n := range dw.nodes {
		if !clustered[n.id] {
			writeDotNode(&sb, "  ", n)
		}
	}

	for i, c := range dw.clusters {
		fmt.Fprintf(&sb, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&sb, "    label=\"%s\";\n", escapeLabel(c.Name))
		sb.WriteString("    style=dashed;\n")
		fmt.Fprintf(&sb, "    color=\"%s\";\n", c.Color)
		for _, t := range c.Terms {
			for _, id := range dw.termIDs[t] {
				for _, n := range dw.nodes {
					if n.id == id {
						writeDotNode(&sb, "    ", n)
						break
					}
				}
			}
		}
		sb.WriteString("  }\n")
	}

	for _, e := range dw.edges {
		if e.label != "" {
			fmt.Fprintf(&sb, "  %s -> %s [label=\"%s\"];\n", e.from, e.to, e.label)
		} else {
			fmt.Fprintf(&sb, "  %s -> %s;\n", e.from, e.to)
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

func writeDotNode(sb *strings.Builder, indent string, n dotNode) {
	fmt.Fprintf(sb, "%s%s [label=\"%s\", fillcolor=\"%s\"];\n", indent, n.id, escapeLabel(n.label), n.color)
}

// escapeLabel escapes double quotes in DOT labels. Backslash sequences
// like \n are intentional DOT line breaks and are preserved.
func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}
