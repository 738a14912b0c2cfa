package main

import (
	"sort"
	"strings"

	"github.com/wildfly/cmpql/catalog"
	"github.com/wildfly/cmpql/nodes"
)

var (
	returnKinds = []string{"collection", "set", "single"}
	typeNames   = []string{"boolean", "bytes", "date", "decimal", "double", "entity:", "integer", "long", "string", "time", "timestamp", "value:"}
	keywords    = []string{
		"AND", "AS", "ASC", "BETWEEN", "DESC", "DISTINCT", "EMPTY", "ESCAPE", "FROM", "IN", "IS", "LIKE",
		"LIMIT", "MEMBER", "NOT", "NULL", "OBJECT(", "OF", "OFFSET", "OR", "ORDER BY", "WHERE",
	}
)

// replCompleter implements readline's AutoCompleter interface.
type replCompleter struct {
	sess *Session
}

// Do returns the suffixes completing the token before the cursor.
func (c *replCompleter) Do(line []rune, pos int) (newLine [][]rune, length int) {
	text := string(line[:pos])
	lower := strings.ToLower(text)

	var candidates []string
	prefix := strings.TrimSpace(text)
	matched := false
	for _, cmd := range c.sess.commands {
		if cmd.completer == nil || !strings.HasPrefix(lower, cmd.prefix) {
			continue
		}
		args := text[len(cmd.prefix):]
		prefix = lastToken(args)
		candidates = cmd.completer(c.sess, args)
		matched = true
		break
	}
	if !matched {
		candidates = filterPrefix(c.sess.commandNames(), prefix)
	}

	for _, cand := range candidates {
		suffix := cand[len(prefix):]
		if !strings.HasSuffix(cand, "(") && !strings.HasSuffix(cand, ":") && !strings.HasSuffix(cand, ".") {
			suffix += " "
		}
		newLine = append(newLine, []rune(suffix))
	}
	return newLine, len([]rune(prefix))
}

func completeDialect(s *Session, args string) []string {
	return filterPrefix(s.app.project.registry.Names(), lastToken(args))
}

func completeReturn(_ *Session, args string) []string {
	return filterPrefix(returnKinds, lastToken(args))
}

func completeTypes(s *Session, args string) []string {
	prefix := lastToken(args)
	if kind, name, ok := strings.Cut(prefix, ":"); ok && s.app.project.catalog != nil {
		var out []string
		for _, e := range s.app.project.catalog.Entities() {
			out = append(out, kind+":"+e.Name)
		}
		return filterPrefix(out, kind+":"+name)
	}
	return filterPrefix(typeNames, prefix)
}

// completeQuery offers keywords, functions and entity names, and after
// "v." the fields and relationships of the entity v ranges over.
func completeQuery(s *Session, args string) []string {
	prefix := lastToken(args)
	cat := s.app.project.catalog
	if i := strings.LastIndexByte(prefix, '.'); i > 0 {
		if cat == nil {
			return nil
		}
		e := entityAt(cat, declaredVars(args, cat), prefix[:i])
		if e == nil {
			return nil
		}
		var names []string
		for _, f := range e.Fields {
			names = append(names, prefix[:i+1]+f.Name)
		}
		for _, r := range e.Relationships {
			names = append(names, prefix[:i+1]+r.Name)
		}
		sort.Strings(names)
		return filterPrefix(names, prefix)
	}

	candidates := append([]string(nil), keywords...)
	for _, f := range nodes.Funcs() {
		candidates = append(candidates, f.String()+"(")
	}
	if cat != nil {
		for _, e := range cat.Entities() {
			candidates = append(candidates, e.Name)
		}
	}
	sort.Strings(candidates)
	return filterPrefix(candidates, prefix)
}

// declaredVars finds "Entity v" and "Entity AS v" declarations in
// partially typed query text.
func declaredVars(text string, cat *catalog.Catalog) map[string]*catalog.Entity {
	words := strings.FieldsFunc(text, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' })
	vars := make(map[string]*catalog.Entity)
	for i := 0; i+1 < len(words); i++ {
		e, ok := cat.Entity(words[i])
		if !ok {
			continue
		}
		v := words[i+1]
		if strings.EqualFold(v, "as") && i+2 < len(words) {
			v = words[i+2]
		}
		vars[v] = e
	}
	return vars
}

// entityAt follows a dotted path from a declared variable through
// relationships.
func entityAt(cat *catalog.Catalog, vars map[string]*catalog.Entity, path string) *catalog.Entity {
	segs := strings.Split(path, ".")
	e := vars[segs[0]]
	for _, seg := range segs[1:] {
		if e == nil {
			return nil
		}
		r := e.Relationship(seg)
		if r == nil {
			return nil
		}
		next, ok := cat.Entity(r.Target)
		if !ok {
			return nil
		}
		e = next
	}
	return e
}

// filterPrefix returns items that start with prefix, ignoring case.
func filterPrefix(items []string, prefix string) []string {
	lowerPrefix := strings.ToLower(prefix)
	var result []string
	for _, item := range items {
		if strings.HasPrefix(strings.ToLower(item), lowerPrefix) {
			result = append(result, item)
		}
	}
	return result
}

// lastToken returns the text after the last space, comma or opening
// parenthesis.
func lastToken(s string) string {
	if i := strings.LastIndexAny(s, " ,\t("); i >= 0 {
		return s[i+1:]
	}
	return s
}
