package main

import (
	"sort"
	"strings"
)

// commandEntry maps a REPL prefix to its handler and optional
// tab-completer. A prefix ending in a space takes arguments; any other
// prefix must match the whole line.
type commandEntry struct {
	prefix    string
	handler   func(args string) error
	completer func(s *Session, args string) []string
	hidden    bool
}

func (s *Session) initCommands() {
	s.commands = []commandEntry{
		// --- queries ---
		{prefix: "select ", handler: func(a string) error { return s.cmdQuery("SELECT " + a) }, completer: completeQuery},
		{prefix: "sql", handler: func(_ string) error { return s.cmdSQL() }},
		{prefix: "plan", handler: func(_ string) error { return s.cmdPlan() }},
		{prefix: "explain", handler: func(_ string) error { return s.cmdExplain() }},
		{prefix: "dot ", handler: func(a string) error { return s.cmdDot(a) }},
		{prefix: "reset", handler: func(_ string) error { return s.cmdReset() }},
		{prefix: "help", handler: func(_ string) error { s.cmdHelp(); return nil }},

		// --- compile settings ---
		{prefix: "catalog ", handler: func(a string) error { return s.cmdCatalog(a) }},
		{prefix: "catalog", handler: func(_ string) error { return s.cmdCatalog("") }},
		{prefix: "dialect ", handler: func(a string) error { return s.cmdDialect(a) }, completer: completeDialect},
		{prefix: "dialect", handler: func(_ string) error { return s.cmdDialect("") }},
		{prefix: "dialects", handler: func(_ string) error { return s.cmdDialects() }},
		{prefix: "return ", handler: func(a string) error { return s.cmdReturn(a) }, completer: completeReturn},
		{prefix: "types ", handler: func(a string) error { return s.cmdTypes(a) }, completer: completeTypes},
		{prefix: "types", handler: func(_ string) error { return s.cmdTypes("") }},
		{prefix: "eager ", handler: func(a string) error { return s.cmdEager(a) }},
		{prefix: "leftjoin ", handler: func(a string) error { return s.cmdLeftJoin(a) }},
		{prefix: "lock", handler: func(_ string) error { return s.cmdLock() }},
		{prefix: "pretty", handler: func(_ string) error { return s.cmdPretty() }},
		{prefix: "softdelete ", handler: func(a string) error { return s.cmdSoftDelete(a) }},

		// --- database ---
		{prefix: "connect ", handler: func(a string) error { return s.cmdConnect(a) }},
		{prefix: "connect", handler: func(_ string) error { return s.cmdConnect("") }},
		{prefix: "disconnect", handler: func(_ string) error { return s.cmdDisconnect() }},
		{prefix: "exec ", handler: func(a string) error { return s.cmdExec(a) }},
		{prefix: "exec", handler: func(_ string) error { return s.cmdExec("") }},
		{prefix: "run", handler: func(_ string) error { return s.cmdExec("") }, hidden: true},
	}

	// Longest prefixes first so "dialects" wins over "dialect".
	sort.SliceStable(s.commands, func(i, j int) bool {
		return len(s.commands[i].prefix) > len(s.commands[j].prefix)
	})
}

// commandNames lists the visible command words for tab completion.
func (s *Session) commandNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, cmd := range s.commands {
		if cmd.hidden {
			continue
		}
		name := strings.TrimRight(cmd.prefix, " ")
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, extra := range []string{"exit", "quit"} {
		if !seen[extra] {
			names = append(names, extra)
		}
	}
	sort.Strings(names)
	return names
}
