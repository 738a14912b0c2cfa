package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/wildfly/cmpql/nodes"
	"github.com/wildfly/cmpql/runner"
)

var errNoQuery = errors.New("no query compiled yet (type a SELECT statement first)")

// Session holds the REPL state: the compile settings, the last compiled
// query and an optional database connection.
type Session struct {
	app      *app
	flags    queryFlags
	last     *compiled
	conn     *sql.DB
	dsn      string
	commands []commandEntry
	out      io.Writer
	ctx      context.Context
}

// NewSession creates a session compiling against a's project.
func NewSession(ctx context.Context, a *app, out io.Writer) *Session {
	s := &Session{
		app:   a,
		flags: queryFlags{Return: "collection"},
		out:   out,
		ctx:   ctx,
	}
	s.initCommands()
	return s
}

// Execute runs one REPL line.
func (s *Session) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	lower := strings.ToLower(line)

	for _, cmd := range s.commands {
		if strings.HasSuffix(cmd.prefix, " ") {
			if strings.HasPrefix(lower, cmd.prefix) {
				return cmd.handler(strings.TrimSpace(line[len(cmd.prefix):]))
			}
		} else if lower == cmd.prefix {
			return cmd.handler("")
		}
	}

	word := strings.Fields(line)[0]
	return fmt.Errorf("unknown command: %s (type 'help' for commands)", word)
}

// Close releases the database connection, if any.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *Session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

// --- Query ---

func (s *Session) cmdQuery(text string) error {
	c, err := s.app.project.compiler()
	if err != nil {
		return err
	}
	r, err := s.app.project.compile(c, text, &s.flags)
	if err != nil {
		return err
	}
	s.last = r
	return s.cmdSQL()
}

func (s *Session) cmdSQL() error {
	if s.last == nil {
		return errNoQuery
	}
	return s.app.renderer(s.out, "text").render([]*compiled{s.last})
}

func (s *Session) cmdPlan() error {
	if s.last == nil {
		return errNoQuery
	}
	res := s.last.Result
	s.printf("  select:   %s (%d columns)\n", res.Select.Kind, res.Select.Columns)
	s.printf("  distinct: %t\n", res.Distinct)
	if len(res.Params) == 0 {
		s.printf("  params:   none\n")
	}
	for i, p := range res.Params {
		s.printf("  param %d:  %s\n", i+1, p)
	}
	for _, lj := range res.LeftJoins {
		s.printf("  read ahead: %s as %s (%d columns)\n", lj.Path, lj.Alias, lj.Columns)
	}
	if v := describeBound(res.Offset); v != "" {
		s.printf("  offset:   %s\n", v)
	}
	if v := describeBound(res.Limit); v != "" {
		s.printf("  limit:    %s\n", v)
	}
	return nil
}

func (s *Session) cmdExplain() error {
	if s.last == nil {
		return errNoQuery
	}
	explain(s.out, s.last.Query, s.app.project)
	return nil
}

func (s *Session) cmdDot(path string) error {
	if s.last == nil {
		return errNoQuery
	}
	dot := nodes.Dot(s.last.Query, termClusters(s.last.Query)...)
	if err := afero.WriteFile(s.app.fs, path, []byte(dot), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	s.printf("  Wrote %s\n", path)
	return nil
}

func (s *Session) cmdReset() error {
	s.last = nil
	s.flags = queryFlags{Return: "collection"}
	s.printf("  Query and compile settings cleared\n")
	return nil
}

// --- Settings ---

func (s *Session) cmdCatalog(path string) error {
	if path == "" {
		if s.app.project.catalog == nil {
			return errNoCatalog
		}
		var names []string
		for _, e := range s.app.project.catalog.Entities() {
			names = append(names, e.Name)
		}
		sort.Strings(names)
		s.printf("  Entities: %s\n", strings.Join(names, ", "))
		return nil
	}
	if err := s.app.project.loadCatalog(path); err != nil {
		return err
	}
	s.last = nil
	s.printf("  Loaded %d entities from %s\n", len(s.app.project.catalog.Entities()), path)
	return nil
}

func (s *Session) cmdDialect(name string) error {
	if name == "" {
		s.printf("  Dialect: %s\n", s.app.project.dialect.Name())
		return nil
	}
	if err := s.app.project.setDialect(name); err != nil {
		return err
	}
	s.last = nil
	s.printf("  Dialect: %s\n", s.app.project.dialect.Name())
	return nil
}

func (s *Session) cmdDialects() error {
	for _, n := range s.app.project.registry.Names() {
		s.printf("  %s\n", n)
	}
	return nil
}

func (s *Session) cmdReturn(kind string) error {
	if _, err := parseReturn(kind); err != nil {
		return err
	}
	s.flags.Return = strings.ToLower(kind)
	s.printf("  Return type: %s\n", s.flags.Return)
	return nil
}

func (s *Session) cmdTypes(list string) error {
	fields := strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == ' ' })
	if _, err := parseTypes(fields); err != nil {
		return err
	}
	s.flags.Args = fields
	if len(fields) == 0 {
		s.printf("  Argument types cleared\n")
		return nil
	}
	s.printf("  Argument types: %s\n", strings.Join(fields, ", "))
	return nil
}

func (s *Session) cmdEager(group string) error {
	if strings.EqualFold(group, "off") {
		group = ""
	}
	s.flags.Eager = group
	if group == "" {
		s.printf("  Eager loading off\n")
	} else {
		s.printf("  Eager load group: %s\n", group)
	}
	return nil
}

func (s *Session) cmdLeftJoin(arg string) error {
	if strings.EqualFold(arg, "off") {
		s.flags.LeftJoins = nil
		s.printf("  Read-ahead joins cleared\n")
		return nil
	}
	s.flags.LeftJoins = append(s.flags.LeftJoins, arg)
	s.printf("  Read ahead: %s\n", strings.Join(s.flags.LeftJoins, ", "))
	return nil
}

func (s *Session) cmdLock() error {
	s.flags.Lock = !s.flags.Lock
	s.printf("  Row locking: %s\n", onOff(s.flags.Lock))
	return nil
}

func (s *Session) cmdPretty() error {
	s.app.cfg.Pretty = !s.app.cfg.Pretty
	s.printf("  Pretty SQL: %s\n", onOff(s.app.cfg.Pretty))
	return nil
}

func (s *Session) cmdSoftDelete(field string) error {
	if strings.EqualFold(field, "off") {
		field = ""
	}
	s.app.cfg.SoftDelete = field
	if field == "" {
		s.printf("  Soft-delete filter off\n")
	} else {
		s.printf("  Soft-delete filter: %s IS NULL\n", field)
	}
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// --- Database ---

func (s *Session) cmdConnect(dsn string) error {
	if dsn == "" {
		dsn = s.app.cfg.DSN
	}
	if dsn == "" {
		dsn = s.dsn
	}
	if dsn == "" {
		return errors.New("usage: connect <dsn>")
	}
	db, err := runner.Open(s.ctx, s.app.project.dialect, dsn)
	if err != nil {
		return err
	}
	_ = s.Close()
	s.conn = db
	s.dsn = dsn
	s.printf("  Connected to %s (%s)\n", runner.SanitizeDSN(dsn), s.app.project.dialect.Name())
	return nil
}

func (s *Session) cmdDisconnect() error {
	if s.conn == nil {
		return errors.New("not connected")
	}
	if err := s.Close(); err != nil {
		return err
	}
	s.printf("  Disconnected\n")
	return nil
}

func (s *Session) cmdExec(values string) error {
	if s.last == nil {
		return errNoQuery
	}
	if s.conn == nil {
		return errors.New("not connected (use 'connect <dsn>')")
	}
	types, err := parseTypes(s.flags.Args)
	if err != nil {
		return err
	}
	args, err := convertArgs(types, strings.Fields(values))
	if err != nil {
		return err
	}
	rows, err := runner.New(s.conn, s.app.project.dialect,
		runner.WithLogger(s.app.logger),
		runner.WithMaxRows(s.app.cfg.MaxRows),
	).Query(s.ctx, s.last.Result, args)
	if err != nil {
		return err
	}
	s.printf("%s", formatRows(rows, s.app.cfg.MaxRows))
	return nil
}

func (s *Session) cmdHelp() {
	_, _ = fmt.Fprintln(s.out, `
  Queries:
    SELECT ...                Compile a query and show its SQL
    sql                       Show the SQL of the last query
    plan                      Show the parameter plan and result shape
    explain                   Show the normalized query and its terms
    dot <file>                Write the query tree as Graphviz DOT
    reset                     Forget the last query and compile settings

  Compile settings:
    catalog [<file>]          Load a catalog, or list its entities
    dialect [<name>]          Switch dialect, or show the current one
    dialects                  List dialects
    return <kind>             Result type: collection, set or single
    types <t1,t2,...>         Declare argument types (empty clears)
    eager <group>|off         Load group read with a selected entity
    leftjoin <path[:group]>|off   Read a relationship ahead
    lock                      Toggle row locking
    softdelete <field>|off    Exclude rows whose field is set
    pretty                    Toggle multi-line SQL

  Database:
    connect [<dsn>]           Connect (default $DATABASE_URL)
    disconnect                Close the connection
    exec [<values...>]        Run the last query with values for ?1, ?2...

    help                      Show this help
    exit                      Leave the REPL`)
}
