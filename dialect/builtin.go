package dialect

import (
	"fmt"
	"sort"

	"github.com/wildfly/cmpql/nodes"
)

var common = []Option{
	WithFunction(nodes.FuncLower, "lower(?1)"),
	WithFunction(nodes.FuncUpper, "upper(?1)"),
	WithFunction(nodes.FuncAbs, "abs(?1)"),
	WithFunction(nodes.FuncSqrt, "sqrt(?1)"),
	WithFunction(nodes.FuncCount, "count(?1)"),
	WithFunction(nodes.FuncMax, "max(?1)"),
	WithFunction(nodes.FuncMin, "min(?1)"),
	WithFunction(nodes.FuncAvg, "avg(?1)"),
	WithFunction(nodes.FuncSum, "sum(?1)"),
}

func options(extra ...Option) []Option {
	return append(append([]Option(nil), common...), extra...)
}

// Postgres targets PostgreSQL. Parameters are rebound to $n.
var Postgres = mustNew("postgres",
	WithAlias("t_", "", 63),
	WithPlaceholder(Dollar),
	WithFunction(nodes.FuncConcat, "(?1 || ?2)"),
	WithFunction(nodes.FuncSubstring, "substring(?1 FROM ?2 FOR ?3)"),
	WithFunction(nodes.FuncLocate, "(CASE position(?1 IN substring(?2 FROM ?3)) WHEN 0 THEN 0 ELSE position(?1 IN substring(?2 FROM ?3)) + ?3 - 1 END)"),
	WithFunction(nodes.FuncLength, "length(?1)"),
	WithFunction(nodes.FuncMod, "mod(?1, ?2)"),
	WithRowLocking("SELECT ?1 FROM ?2?3?4 FOR UPDATE"),
)

// MySQL targets MySQL 5.x and later.
var MySQL = mustNew("mysql",
	WithAlias("t_", "", 64),
	WithBackslashEscapes(true),
	WithFunction(nodes.FuncConcat, "concat(?1, ?2)"),
	WithFunction(nodes.FuncSubstring, "substring(?1, ?2, ?3)"),
	WithFunction(nodes.FuncLocate, "locate(?1, ?2, ?3)"),
	WithFunction(nodes.FuncLength, "char_length(?1)"),
	WithFunction(nodes.FuncMod, "mod(?1, ?2)"),
	WithRowLocking("SELECT ?1 FROM ?2?3?4 FOR UPDATE"),
)

// MySQLLegacy targets MySQL servers without correlated subqueries.
// Existence tests are compiled to outer joins.
var MySQLLegacy = MySQL.MustWith(
	func(d *Dialect) { d.name = "mysql-legacy" },
	WithSubqueries(false),
	WithAlias("t_", "", 32),
)

// SQLite targets SQLite 3. Row locking is not available.
var SQLite = mustNew("sqlite",
	WithAlias("t_", "", 0),
	WithBooleans("1", "0"),
	WithFunction(nodes.FuncConcat, "(?1 || ?2)"),
	WithFunction(nodes.FuncSubstring, "substr(?1, ?2, ?3)"),
	WithFunction(nodes.FuncLocate, "(CASE instr(substr(?2, ?3), ?1) WHEN 0 THEN 0 ELSE instr(substr(?2, ?3), ?1) + ?3 - 1 END)"),
	WithFunction(nodes.FuncLength, "length(?1)"),
	WithFunction(nodes.FuncMod, "(?1 % ?2)"),
)

func mustNew(name string, opts ...Option) *Dialect {
	d, err := New(name, options(opts...)...)
	if err != nil {
		panic(err)
	}
	return d
}

var builtins = map[string]*Dialect{
	Postgres.Name():    Postgres,
	MySQL.Name():       MySQL,
	MySQLLegacy.Name(): MySQLLegacy,
	SQLite.Name():      SQLite,
}

var aliases = map[string]string{
	"postgresql": "postgres",
	"pg":         "postgres",
	"sqlite3":    "sqlite",
	"mariadb":    "mysql",
}

// Lookup returns a built-in dialect by name.
func Lookup(name string) (*Dialect, error) {
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	d, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("dialect: unknown dialect %q (available: %v)", name, Names())
	}
	return d, nil
}

// Names lists the built-in dialect names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
