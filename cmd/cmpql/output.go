package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/wildfly/cmpql/compiler"
	"github.com/wildfly/cmpql/internal/sqlfmt"
)

var (
	errorLabel   = color.New(color.FgRed, color.Bold).SprintFunc()
	commentColor = color.New(color.FgHiBlack).SprintFunc()
)

// printError writes "error: <err>" with the label in red.
func printError(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "%s %v\n", errorLabel("error:"), err)
}

// compiledJSON is the JSON rendition of one compiled query.
type compiledJSON struct {
	Name     string   `json:"name,omitempty"`
	SQL      string   `json:"sql"`
	Params   []string `json:"params"`
	Select   string   `json:"select"`
	Distinct bool     `json:"distinct"`
	Limit    string   `json:"limit,omitempty"`
	Offset   string   `json:"offset,omitempty"`
	Locked   bool     `json:"locked,omitempty"`
}

func describeBound(b compiler.Bound) string {
	switch {
	case !b.Present:
		return ""
	case b.Arg >= 0:
		return "?" + strconv.Itoa(b.Arg+1)
	}
	return strconv.FormatInt(b.Value, 10)
}

func planLines(res *compiler.Result) []string {
	lines := make([]string, 0, len(res.Params))
	for _, p := range res.Params {
		lines = append(lines, p.String())
	}
	return lines
}

// renderer writes compiled queries in the configured format.
type renderer struct {
	w      io.Writer
	format string
	pretty bool
	// sqlFor turns the compiled SQL into the text shown, for example by
	// rebinding placeholders.
	sqlFor func(*compiler.Result) string
}

func (r *renderer) sql(res *compiler.Result) string {
	s := res.SQL
	if r.sqlFor != nil {
		s = r.sqlFor(res)
	}
	if r.pretty {
		s = sqlfmt.Format(s)
	}
	return s
}

func (r *renderer) render(items []*compiled) error {
	if r.format == "json" {
		out := make([]compiledJSON, 0, len(items))
		for _, c := range items {
			out = append(out, compiledJSON{
				Name:     c.Name,
				SQL:      r.sql(c.Result),
				Params:   planLines(c.Result),
				Select:   c.Result.Select.Kind.String(),
				Distinct: c.Result.Distinct,
				Limit:    describeBound(c.Result.Limit),
				Offset:   describeBound(c.Result.Offset),
				Locked:   c.Result.Locked,
			})
		}
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for i, c := range items {
		if i > 0 {
			_, _ = fmt.Fprintln(r.w)
		}
		if c.Name != "" && len(items) > 1 {
			_, _ = fmt.Fprintln(r.w, commentColor("-- "+c.Name))
		}
		_, _ = fmt.Fprintln(r.w, r.sql(c.Result))
		for _, line := range r.details(c.Result) {
			_, _ = fmt.Fprintln(r.w, commentColor("-- "+line))
		}
	}
	return nil
}

func (r *renderer) details(res *compiler.Result) []string {
	var lines []string
	if len(res.Params) > 0 {
		lines = append(lines, "params: "+strings.Join(planLines(res), ", "))
	}
	if s := describeBound(res.Offset); s != "" {
		lines = append(lines, "offset: "+s)
	}
	if s := describeBound(res.Limit); s != "" {
		lines = append(lines, "limit: "+s)
	}
	return lines
}
