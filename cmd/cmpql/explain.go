package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wildfly/cmpql/nodes"
	"github.com/wildfly/cmpql/plugins"
	"github.com/wildfly/cmpql/qlparse"
)

var termColors = []string{"#4682B4", "#CD5C5C", "#2E8B57", "#DAA520", "#8A2BE2"}

func newExplainCommand(a *app) *cobra.Command {
	var dot bool

	cmd := &cobra.Command{
		Use:   "explain <query>",
		Short: "Show how a query is parsed",
		Long: `Print the normalized query, its WHERE terms and the entity each
identification variable ranges over. With --dot the tree is written as a
Graphviz digraph with one cluster per WHERE term.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := qlparse.Parse(args[0])
			if err != nil {
				return err
			}
			ts, err := a.project.transformers()
			if err != nil {
				return err
			}
			q, err = plugins.Apply(q, ts...)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if dot {
				_, err = fmt.Fprint(w, nodes.Dot(q, termClusters(q)...))
				return err
			}
			explain(w, q, a.project)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dot, "dot", false, "write Graphviz DOT instead of text")
	return cmd
}

func termClusters(q *nodes.Query) []nodes.Cluster {
	if q.Where == nil || len(q.Where.Terms) < 2 {
		return nil
	}
	clusters := make([]nodes.Cluster, len(q.Where.Terms))
	for i := range q.Where.Terms {
		clusters[i] = nodes.Cluster{
			Name:  "term " + strconv.Itoa(i+1),
			Color: termColors[i%len(termColors)],
			Terms: []int{i},
		}
	}
	return clusters
}

func explain(w io.Writer, q *nodes.Query, p *project) {
	_, _ = fmt.Fprintln(w, nodes.Format(q))
	if q.Where != nil {
		_, _ = fmt.Fprintln(w, commentColor("-- terms:"))
		for i, t := range q.Where.Terms {
			_, _ = fmt.Fprintf(w, "  %d. %s\n", i+1, nodes.Format(t))
		}
	}
	if p.catalog == nil {
		return
	}
	_, _ = fmt.Fprintln(w, commentColor("-- variables:"))
	for _, v := range plugins.CollectVariables(q, p.catalog) {
		entity := v.Entity
		if entity == "" {
			entity = "?"
		}
		if v.Path != nil {
			_, _ = fmt.Fprintf(w, "  %s: %s in %s\n", v.Var, entity, v.Path)
		} else {
			_, _ = fmt.Fprintf(w, "  %s: %s\n", v.Var, entity)
		}
	}
}
