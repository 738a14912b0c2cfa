package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildfly/cmpql/compiler"
	"github.com/wildfly/cmpql/internal/testutil"
)

const openOrders = "SELECT OBJECT(o) FROM Order o WHERE o.status = ?1"

func memFS(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "catalog.yaml", []byte(testutil.CatalogYAML), 0o644))
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(body), 0o644))
	}
	return fs
}

func execute(t *testing.T, fs afero.Fs, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand(fs)
	var stdout, stderr bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// --- compile ---

func TestCompileInline(t *testing.T) {
	t.Parallel()
	out, _, err := execute(t, memFS(t, nil), "compile", "-c", "catalog.yaml", "-e", openOrders, "-t", "string")
	require.NoError(t, err)
	assert.Equal(t, "SELECT t_o.id FROM ORDERS t_o WHERE t_o.status = $1\n-- params: ?1 VARCHAR\n", out)
}

func TestCompileFilesKeepArgumentOrder(t *testing.T) {
	t.Parallel()
	fs := memFS(t, map[string]string{
		"b.ql": "SELECT c.name FROM Customer c",
		"a.ql": "SELECT OBJECT(o) FROM Order o WHERE o.status = 'open'",
	})
	out, _, err := execute(t, fs, "compile", "-d", "mysql", "-c", "catalog.yaml", "b.ql", "a.ql")
	require.NoError(t, err)
	want := "-- b.ql\nSELECT t_c.name FROM CUSTOMER t_c\n\n" +
		"-- a.ql\nSELECT t_o.id FROM ORDERS t_o WHERE t_o.status = 'open'\n"
	assert.Equal(t, want, out)
}

func TestCompileReadsStdin(t *testing.T) {
	t.Parallel()
	cmd := NewRootCommand(memFS(t, nil))
	var stdout bytes.Buffer
	cmd.SetArgs([]string{"compile", "-c", "catalog.yaml", "-"})
	cmd.SetIn(strings.NewReader("SELECT c.email FROM Customer c"))
	cmd.SetOut(&stdout)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "SELECT t_c.email FROM CUSTOMER t_c\n", stdout.String())
}

func TestCompileJSON(t *testing.T) {
	t.Parallel()
	out, _, err := execute(t, memFS(t, nil),
		"compile", "-c", "catalog.yaml", "--format", "json", "-r", "set",
		"-e", openOrders+" ORDER BY o.id OFFSET 5 LIMIT ?2", "-t", "string,integer")
	require.NoError(t, err)

	var got []compiledJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "query 1", got[0].Name)
	assert.True(t, got[0].Distinct)
	assert.Equal(t, "entity", got[0].Select)
	assert.Equal(t, []string{"?1 VARCHAR"}, got[0].Params)
	assert.Equal(t, "?2", got[0].Limit)
	assert.Equal(t, "5", got[0].Offset)
	assert.True(t, strings.HasPrefix(got[0].SQL, "SELECT DISTINCT t_o.id FROM ORDERS t_o"))
}

func TestCompilePretty(t *testing.T) {
	t.Parallel()
	out, _, err := execute(t, memFS(t, nil), "compile", "-c", "catalog.yaml", "--pretty", "-e", openOrders, "-t", "string")
	require.NoError(t, err)
	assert.Equal(t, "SELECT t_o.id\nFROM ORDERS t_o\nWHERE t_o.status = $1\n-- params: ?1 VARCHAR\n", out)
}

func TestCompileSoftDelete(t *testing.T) {
	t.Parallel()
	out, _, err := execute(t, memFS(t, nil),
		"compile", "-d", "sqlite", "-c", "catalog.yaml", "--soft-delete", "deletedAt",
		"-e", "SELECT c.id FROM Customer c WHERE c.name = ?1", "-t", "string")
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT t_c.id FROM CUSTOMER t_c WHERE t_c.name = ? AND t_c.deleted_at IS NULL")
}

func TestCompileOPAPolicy(t *testing.T) {
	t.Parallel()
	inputs := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input    json.RawMessage `json:"input"`
			Unknowns []string        `json:"unknowns"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		select {
		case inputs <- string(req.Input):
		default:
		}
		_, _ = io.WriteString(w, `{"result":{"queries":[[{"index":0,"terms":[`+
			`{"type":"ref","value":[{"type":"var","value":"eq"}]},`+
			`{"type":"ref","value":[{"type":"var","value":"data"},{"type":"string","value":"Customer"},{"type":"var","value":"$01"},{"type":"string","value":"email"}]},`+
			`{"type":"string","value":"ada@acme.test"}]}]]}}`)
	}))
	t.Cleanup(srv.Close)

	out, _, err := execute(t, memFS(t, nil),
		"compile", "-d", "mysql", "-c", "catalog.yaml",
		"--opa-url", srv.URL, "--opa-policy", "crm.allow", "--opa-input", `{"user":"ada"}`,
		"-e", "SELECT c.name FROM Customer c")
	require.NoError(t, err)
	assert.Equal(t, "SELECT t_c.name FROM CUSTOMER t_c WHERE t_c.email = 'ada@acme.test'\n", out)
	assert.JSONEq(t, `{"user":"ada"}`, <-inputs)

	_, _, err = execute(t, memFS(t, nil), "compile", "-c", "catalog.yaml", "--opa-url", srv.URL, "-e", "SELECT c.name FROM Customer c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--opa-policy is required")
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()
	fs := memFS(t, nil)

	_, _, err := execute(t, fs, "compile", "-e", openOrders)
	assert.ErrorIs(t, err, errNoCatalog)

	_, _, err = execute(t, fs, "compile", "-c", "catalog.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to compile")

	_, _, err = execute(t, fs, "compile", "-c", "catalog.yaml", "-e", "SELECT FROM")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query 1:")

	_, _, err = execute(t, fs, "compile", "-c", "catalog.yaml", "-e", openOrders+" LIMIT ?2", "-t", "string,string")
	assert.ErrorIs(t, err, compiler.ErrSemantic)

	_, _, err = execute(t, fs, "compile", "-c", "catalog.yaml", "missing.ql")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading missing.ql")

	_, _, err = execute(t, fs, "compile", "-c", "catalog.yaml", "-r", "bag", "-e", openOrders)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid return type")

	_, _, err = execute(t, fs, "compile", "-d", "oracle", "-c", "catalog.yaml", "-e", openOrders)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dialect")
}

// --- configuration ---

func TestConfigFile(t *testing.T) {
	t.Parallel()
	fs := memFS(t, map[string]string{"cmpql.yaml": "dialect: mysql\ncatalog: catalog.yaml\n"})
	out, _, err := execute(t, fs, "--config", "cmpql.yaml", "compile", "-e", openOrders, "-t", "string")
	require.NoError(t, err)
	assert.Contains(t, out, "WHERE t_o.status = ?\n")
}

func TestFlagOverridesConfigFile(t *testing.T) {
	t.Parallel()
	fs := memFS(t, map[string]string{"cmpql.yaml": "dialect: mysql\ncatalog: catalog.yaml\n"})
	out, _, err := execute(t, fs, "--config", "cmpql.yaml", "-d", "postgres", "compile", "-e", openOrders, "-t", "string")
	require.NoError(t, err)
	assert.Contains(t, out, "WHERE t_o.status = $1\n")
}

func TestMissingConfigFile(t *testing.T) {
	t.Parallel()
	_, _, err := execute(t, memFS(t, nil), "--config", "nope.yaml", "dialects")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config:")
}

func TestInvalidFormat(t *testing.T) {
	t.Parallel()
	_, _, err := execute(t, memFS(t, nil), "--format", "xml", "dialects")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestEnvironmentOverridesConfigFile(t *testing.T) {
	t.Setenv("CMPQL_DIALECT", "sqlite")
	fs := memFS(t, map[string]string{"cmpql.yaml": "dialect: mysql\n"})
	out, _, err := execute(t, fs, "--config", "cmpql.yaml", "dialects")
	require.NoError(t, err)
	assert.Contains(t, out, "* sqlite\n")
}

func TestDotEnv(t *testing.T) {
	t.Setenv("CMPQL_CATALOG", "")
	require.NoError(t, os.Unsetenv("CMPQL_CATALOG"))
	fs := memFS(t, map[string]string{".env": "CMPQL_CATALOG=catalog.yaml\n"})
	out, _, err := execute(t, fs, "compile", "-e", "SELECT c.name FROM Customer c")
	require.NoError(t, err)
	assert.Equal(t, "SELECT t_c.name FROM CUSTOMER t_c\n", out)
}

// --- dialects ---

func TestDialectsList(t *testing.T) {
	t.Parallel()
	out, _, err := execute(t, memFS(t, nil), "dialects")
	require.NoError(t, err)
	assert.Contains(t, out, "* postgres\n")
	assert.Contains(t, out, "  mysql-legacy\n")
	assert.Contains(t, out, "  sqlite\n")
}

func TestDialectsDescribe(t *testing.T) {
	t.Parallel()
	out, _, err := execute(t, memFS(t, nil), "dialects", "mysql-legacy")
	require.NoError(t, err)
	assert.Contains(t, out, "name: mysql-legacy\n")
	assert.Contains(t, out, "subqueries: false\n")
}

func TestCustomDialectFile(t *testing.T) {
	t.Parallel()
	fs := memFS(t, map[string]string{"dialects.yaml": `
dialects:
  - name: acme
    extends: postgres
    alias: {prefix: x_, maxLength: 30}
`})
	out, _, err := execute(t, fs, "--dialects", "dialects.yaml", "-d", "acme",
		"compile", "-c", "catalog.yaml", "-e", "SELECT OBJECT(o) FROM Order o")
	require.NoError(t, err)
	assert.Equal(t, "SELECT x_o.id FROM ORDERS x_o\n", out)

	out, _, err = execute(t, fs, "--dialects", "dialects.yaml", "dialects")
	require.NoError(t, err)
	assert.Contains(t, out, "  acme\n")
}

// --- explain ---

func TestExplainText(t *testing.T) {
	t.Parallel()
	out, _, err := execute(t, memFS(t, nil), "explain", "-c", "catalog.yaml",
		"select object(o) from Order o, in(o.items) i where i.name = 'bolt' or o.status = 'open'")
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT OBJECT(o) FROM Order o, IN(o.items) i WHERE i.name = 'bolt' OR o.status = 'open'\n")
	assert.Contains(t, out, "  1. i.name = 'bolt'\n")
	assert.Contains(t, out, "  2. o.status = 'open'\n")
	assert.Contains(t, out, "  o: Order\n")
	assert.Contains(t, out, "  i: Item in o.items\n")
}

func TestExplainDot(t *testing.T) {
	t.Parallel()
	out, _, err := execute(t, memFS(t, nil), "explain", "--dot",
		"SELECT OBJECT(o) FROM Order o WHERE o.a = 1 OR o.b = 2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "digraph Query {\n"))
	assert.Contains(t, out, "subgraph cluster_0")
	assert.Contains(t, out, "subgraph cluster_1")
	assert.Contains(t, out, `label="term 2"`)
}

// --- exec ---

func seededSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	_, err = db.Exec(testutil.SQLiteSchema)
	require.NoError(t, err)
	return path
}

func TestExecAgainstSQLite(t *testing.T) {
	t.Parallel()
	dsn := seededSQLite(t)
	out, _, err := execute(t, memFS(t, nil), "exec", "-d", "sqlite", "--dsn", dsn, "-c", "catalog.yaml",
		"SELECT o.number FROM Order o WHERE o.status = ?1", "open", "-t", "string")
	require.NoError(t, err)
	assert.Contains(t, out, "| order_number |")
	assert.Contains(t, out, "| A-1          |")
	assert.Contains(t, out, "| A-2          |")
	assert.Contains(t, out, "(2 rows)\n")
}

func TestExecTruncates(t *testing.T) {
	t.Parallel()
	dsn := seededSQLite(t)
	out, _, err := execute(t, memFS(t, nil), "exec", "-d", "sqlite", "--dsn", dsn, "-c", "catalog.yaml",
		"--max-rows", "1", "SELECT o.number FROM Order o")
	require.NoError(t, err)
	assert.Contains(t, out, "(1 row)\n(truncated at 1 rows)\n")
}

func TestExecNeedsDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CMPQL_DSN", "")
	_, _, err := execute(t, memFS(t, nil), "exec", "-c", "catalog.yaml", "SELECT OBJECT(o) FROM Order o")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database configured")
}

func TestConvertArgs(t *testing.T) {
	t.Parallel()
	types, err := parseTypes([]string{"integer", "double", "boolean", "entity:Customer", "value:LineItemKey"})
	require.NoError(t, err)
	args, err := convertArgs(types, []string{"7", "2.5", "true", "100", "order=1,line.no=2", "extra"})
	require.NoError(t, err)
	assert.Equal(t, []any{
		int64(7), 2.5, true, int64(100),
		compiler.Values{"order": int64(1), "line": compiler.Values{"no": int64(2)}},
		"extra",
	}, args)

	args, err = convertArgs(types[:1], []string{"NULL"})
	require.NoError(t, err)
	assert.Equal(t, []any{nil}, args)

	_, err = convertArgs(types[:1], []string{"seven"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value 1:")

	_, err = parseValues("order")
	assert.Error(t, err)
}

// --- main ---

func TestRunPrintsErrors(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer
	code := run([]string{"dialects", "oracle"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.True(t, strings.HasPrefix(stderr.String(), "error: "), stderr.String())
}

func TestRunSucceeds(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer
	code := run([]string{"dialects", "sqlite"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "booleans: 1/0")
}

func TestErrorLabelIsPlainWithoutTerminal(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	printError(&buf, errors.New("boom"))
	assert.Equal(t, "error: boom\n", buf.String())
}
