package dialect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildfly/cmpql/nodes"
)

// --- Templates ---

func TestParseTemplate(t *testing.T) {
	t.Parallel()
	tpl, err := ParseTemplate("substring(?1 FROM ?2 FOR ?3)")
	require.NoError(t, err)
	assert.Equal(t, 3, tpl.Arity())
	got, err := tpl.Render("a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, "substring(a FROM b FOR c)", got)
}

func TestTemplateRepeatsArguments(t *testing.T) {
	t.Parallel()
	tpl := MustParseTemplate("(?2 + ?2 * ?1)")
	assert.Equal(t, 2, tpl.Arity())
	got, err := tpl.Render("x", "y")
	require.NoError(t, err)
	assert.Equal(t, "(y + y * x)", got)

	var args []int
	for _, p := range tpl.Parts() {
		if p.Arg >= 0 {
			args = append(args, p.Arg)
		}
	}
	assert.Equal(t, []int{1, 1, 0}, args)
}

func TestTemplateAdjacentArguments(t *testing.T) {
	t.Parallel()
	tpl := MustParseTemplate("SELECT ?1 FROM ?2?3?4 FOR UPDATE")
	got, err := tpl.Render("a", "T t", " WHERE x", "")
	require.NoError(t, err)
	assert.Equal(t, "SELECT a FROM T t WHERE x FOR UPDATE", got)
}

func TestParseTemplateErrors(t *testing.T) {
	t.Parallel()
	for _, src := range []string{"lower(?)", "f(?0)", "f(?1, ?)"} {
		_, err := ParseTemplate(src)
		assert.Error(t, err, src)
	}
}

func TestTemplateRenderTooFewArguments(t *testing.T) {
	t.Parallel()
	_, err := MustParseTemplate("mod(?1, ?2)").Render("a")
	assert.Error(t, err)
}

// --- Dialects ---

func TestBuiltins(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"mysql", "mysql-legacy", "postgres", "sqlite"}, Names())
	for _, name := range Names() {
		d, err := Lookup(name)
		require.NoError(t, err)
		for _, f := range nodes.Funcs() {
			_, ok := d.Function(f)
			assert.True(t, ok, "%s lacks %s", name, f)
		}
	}
}

func TestLookupAliases(t *testing.T) {
	t.Parallel()
	d, err := Lookup("postgresql")
	require.NoError(t, err)
	assert.Same(t, Postgres, d)

	_, err = Lookup("oracle")
	assert.ErrorContains(t, err, "unknown dialect")
}

func TestMySQLLegacy(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "mysql-legacy", MySQLLegacy.Name())
	assert.False(t, MySQLLegacy.Subqueries())
	assert.Equal(t, 32, MySQLLegacy.AliasMaxLength())
	assert.True(t, MySQL.Subqueries())
	concat, ok := MySQLLegacy.Function(nodes.FuncConcat)
	require.True(t, ok)
	assert.Equal(t, "concat(?1, ?2)", concat.Source())
}

func TestRowLocking(t *testing.T) {
	t.Parallel()
	_, ok := SQLite.RowLocking()
	assert.False(t, ok)
	tpl, ok := Postgres.RowLocking()
	require.True(t, ok)
	assert.Equal(t, 4, tpl.Arity())
}

func TestLiterals(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "TRUE", Postgres.Bool(true))
	assert.Equal(t, "0", SQLite.Bool(false))
	assert.Equal(t, `'it''s'`, Postgres.String("it's"))
	assert.Equal(t, `'a\\b'`, MySQL.String(`a\b`))
	assert.Equal(t, `'a\b'`, SQLite.String(`a\b`))
}

func TestRebind(t *testing.T) {
	t.Parallel()
	sql := "SELECT t_o.id FROM ORDERS t_o WHERE t_o.status = ? AND t_o.number LIKE '?%' AND t_o.total > ?"
	assert.Equal(t,
		"SELECT t_o.id FROM ORDERS t_o WHERE t_o.status = $1 AND t_o.number LIKE '?%' AND t_o.total > $2",
		Postgres.Rebind(sql))
	assert.Equal(t, sql, MySQL.Rebind(sql))
}

func TestValidation(t *testing.T) {
	t.Parallel()
	cases := map[string][]Option{
		"alias max":       {WithAlias("t_", "", 8)},
		"decoration":      {WithAlias("prefix_prefix_", "", 20)},
		"booleans":        {WithBooleans("", "0")},
		"bad template":    {WithFunction(nodes.FuncLower, "lower(?)")},
		"arity":           {WithFunction(nodes.FuncUpper, "upper(?1, ?2)")},
		"aggregate arity": {WithFunction(nodes.FuncCount, "count(?2)")},
		"row locking":     {WithRowLocking("?5")},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := New("custom", opts...)
			assert.Error(t, err)
		})
	}
	_, err := New("")
	assert.Error(t, err)
}

func TestWithDoesNotMutateBase(t *testing.T) {
	t.Parallel()
	d, err := Postgres.With(WithoutFunction(nodes.FuncSqrt), WithBooleans("1", "0"))
	require.NoError(t, err)
	_, ok := d.Function(nodes.FuncSqrt)
	assert.False(t, ok)
	_, ok = Postgres.Function(nodes.FuncSqrt)
	assert.True(t, ok)
	assert.Equal(t, "TRUE", Postgres.Bool(true))
	assert.Equal(t, "1", d.Bool(true))
}

func TestDescribe(t *testing.T) {
	t.Parallel()
	lines := Postgres.Describe()
	assert.Equal(t, "name: postgres", lines[0])
	assert.Contains(t, lines, "function CONCAT: (?1 || ?2)")
	assert.Contains(t, lines, "row locking: SELECT ?1 FROM ?2?3?4 FOR UPDATE")
}

// --- Loading ---

const customDialects = `
dialects:
  - name: h2
    subqueries: true
    alias:
      prefix: "a_"
      maxLength: 30
    functions:
      CONCAT: "concat(?1, ?2)"
      SUBSTRING: "substring(?1, ?2, ?3)"
      LOCATE: "locate(?1, ?2, ?3)"
      LENGTH: "length(?1)"
      MOD: "mod(?1, ?2)"
  - name: old-pg
    extends: postgres
    subqueries: false
    trueLiteral: "'t'"
    falseLiteral: "'f'"
    functions:
      sqrt: ""
    rowLocking: ""
`

func TestRegistryLoad(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	loaded, err := r.Load(strings.NewReader(customDialects))
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	h2, err := r.Lookup("h2")
	require.NoError(t, err)
	assert.True(t, h2.Subqueries())
	assert.Equal(t, "a_", h2.AliasPrefix())
	assert.Equal(t, 30, h2.AliasMaxLength())
	_, ok := h2.Function(nodes.FuncUpper)
	assert.True(t, ok, "common functions are inherited by new dialects")

	old, err := r.Lookup("old-pg")
	require.NoError(t, err)
	assert.False(t, old.Subqueries())
	assert.Equal(t, Dollar, old.Placeholder())
	assert.Equal(t, "'t'", old.Bool(true))
	_, ok = old.Function(nodes.FuncSqrt)
	assert.False(t, ok)
	_, ok = old.RowLocking()
	assert.False(t, ok)

	assert.Contains(t, r.Names(), "old-pg")
	mysql, err := r.Lookup("mysql")
	require.NoError(t, err)
	assert.Same(t, MySQL, mysql)
}

func TestRegistryLoadErrors(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"unknown key":      "dialects:\n  - name: x\n    colour: red\n",
		"unknown function": "dialects:\n  - name: x\n    functions:\n      TRIM: \"trim(?1)\"\n",
		"unknown base":     "dialects:\n  - name: x\n    extends: oracle\n",
		"no name":          "dialects:\n  - subqueries: false\n",
		"placeholder":      "dialects:\n  - name: x\n    placeholder: colon\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := NewRegistry().Load(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}
