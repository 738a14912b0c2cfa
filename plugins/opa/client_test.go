package opa

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wildfly/cmpql/compiler"
	"github.com/wildfly/cmpql/dialect"
	"github.com/wildfly/cmpql/internal/testutil"
	"github.com/wildfly/cmpql/nodes"
)

func parseExpr(t *testing.T, raw string) compileExpression {
	t.Helper()
	var expr compileExpression
	if err := json.Unmarshal([]byte(raw), &expr); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return expr
}

func translate(t *testing.T, raw string) string {
	t.Helper()
	n, err := translateExpression(parseExpr(t, raw), "c")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	return nodes.Format(n)
}

// expr builds a residual expression "op(data.Customer.<field>, value)".
func expr(op, field, value string) string {
	return `{"index":0,"terms":[` +
		`{"type":"ref","value":[{"type":"var","value":"` + op + `"}]},` +
		`{"type":"ref","value":[{"type":"var","value":"data"},{"type":"string","value":"Customer"},{"type":"var","value":"$01"},{"type":"string","value":"` + field + `"}]},` +
		value + `]}`
}

// --- Terms ---

func TestCompileTermNumbers(t *testing.T) {
	t.Parallel()
	var ct compileTerm
	if err := json.Unmarshal([]byte(`{"type":"number","value":42}`), &ct); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ct.Value != int64(42) {
		t.Errorf("expected int64 42, got %v (%T)", ct.Value, ct.Value)
	}
	if err := json.Unmarshal([]byte(`{"type":"number","value":2.5}`), &ct); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ct.Value != 2.5 {
		t.Errorf("expected 2.5, got %v", ct.Value)
	}
}

func TestCompileTermUnknownType(t *testing.T) {
	t.Parallel()
	var ct compileTerm
	if err := json.Unmarshal([]byte(`{"type":"set","value":[]}`), &ct); err == nil {
		t.Error("expected an error for an unknown term type")
	}
}

// --- Translation ---

func TestTranslateComparisons(t *testing.T) {
	t.Parallel()
	tests := []struct {
		op, value, want string
	}{
		{"eq", `{"type":"string","value":"Ada"}`, "c.name = 'Ada'"},
		{"equal", `{"type":"number","value":7}`, "c.name = 7"},
		{"neq", `{"type":"boolean","value":true}`, "c.name <> TRUE"},
		{"lt", `{"type":"number","value":1.5}`, "c.name < 1.5"},
		{"lte", `{"type":"number","value":3}`, "c.name <= 3"},
		{"gt", `{"type":"number","value":3}`, "c.name > 3"},
		{"gte", `{"type":"number","value":3}`, "c.name >= 3"},
		{"eq", `{"type":"null","value":null}`, "c.name IS NULL"},
		{"neq", `{"type":"null","value":null}`, "c.name IS NOT NULL"},
	}
	for _, tt := range tests {
		testutil.AssertEqual(t, translate(t, expr(tt.op, "name", tt.value)), tt.want)
	}
}

func TestTranslateSwappedOperands(t *testing.T) {
	t.Parallel()
	raw := `{"index":0,"terms":[` +
		`{"type":"ref","value":[{"type":"var","value":"eq"}]},` +
		`{"type":"string","value":"open"},` +
		`{"type":"ref","value":[{"type":"var","value":"data"},{"type":"string","value":"Order"},{"type":"var","value":"$01"},{"type":"string","value":"status"}]}]}`
	testutil.AssertEqual(t, translate(t, raw), "c.status = 'open'")
}

func TestTranslateEmbeddedField(t *testing.T) {
	t.Parallel()
	raw := `{"index":0,"terms":[` +
		`{"type":"ref","value":[{"type":"var","value":"eq"}]},` +
		`{"type":"ref","value":[{"type":"var","value":"data"},{"type":"string","value":"Customer"},{"type":"var","value":"$01"},{"type":"string","value":"address"},{"type":"string","value":"city"}]},` +
		`{"type":"string","value":"Oslo"}]}`
	testutil.AssertEqual(t, translate(t, raw), "c.address.city = 'Oslo'")
}

func TestTranslateLikeOperators(t *testing.T) {
	t.Parallel()
	testutil.AssertEqual(t, translate(t, expr("startswith", "email", `{"type":"string","value":"admin_"}`)),
		"c.email LIKE 'admin!_%' ESCAPE '!'")
	testutil.AssertEqual(t, translate(t, expr("endswith", "email", `{"type":"string","value":"@acme.test"}`)),
		"c.email LIKE '%@acme.test' ESCAPE '!'")
	testutil.AssertEqual(t, translate(t, expr("contains", "email", `{"type":"string","value":"100%!"}`)),
		"c.email LIKE '%100!%!!%' ESCAPE '!'")
}

func TestTranslateRejects(t *testing.T) {
	t.Parallel()
	bad := []string{
		expr("startswith", "email", `{"type":"number","value":1}`),
		expr("regex", "email", `{"type":"string","value":"x"}`),
		`{"index":0,"terms":[{"type":"ref","value":[{"type":"var","value":"eq"}]},{"type":"string","value":"a"},{"type":"string","value":"b"}]}`,
		`{"index":0,"terms":[{"type":"ref","value":[{"type":"var","value":"eq"}]}]}`,
		`{"index":0,"terms":[{"type":"string","value":"eq"},{"type":"string","value":"a"},{"type":"string","value":"b"}]}`,
		`{"index":0,"terms":[{"type":"ref","value":[{"type":"var","value":"eq"}]},{"type":"ref","value":[{"type":"var","value":"data"},{"type":"string","value":"Customer"}]},{"type":"string","value":"b"}]}`,
	}
	for _, raw := range bad {
		if _, err := translateExpression(parseExpr(t, raw), "c"); err == nil {
			t.Errorf("expected an error for %s", raw)
		}
	}
}

func TestTranslateQueries(t *testing.T) {
	t.Parallel()
	a := parseExpr(t, expr("eq", "name", `{"type":"string","value":"Ada"}`))
	b := parseExpr(t, expr("gt", "id", `{"type":"number","value":10}`))

	if _, err := translateQueries(nil, "c"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected access denied, got %v", err)
	}

	conds, err := translateQueries([][]compileExpression{{}}, "c")
	if err != nil || conds != nil {
		t.Errorf("expected unconditional allow, got %v, %v", conds, err)
	}

	conds, err = translateQueries([][]compileExpression{{a, b}}, "c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, len(conds), 2)

	conds, err = translateQueries([][]compileExpression{{a, b}, {b}}, "c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, nodes.Format(conds[0]), "(c.name = 'Ada' AND c.id > 10 OR c.id > 10)")

	conds, err = translateQueries([][]compileExpression{{a}, {}}, "c")
	if err != nil || conds != nil {
		t.Errorf("expected an empty branch to allow everything, got %v, %v", conds, err)
	}
}

// --- Server ---

func opaServer(t *testing.T, handler func(req compileRequest) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/compile" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req compileRequest
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, handler(req))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientCompile(t *testing.T) {
	t.Parallel()
	var got compileRequest
	srv := opaServer(t, func(req compileRequest) string {
		got = req
		return `{"result":{"queries":[[` + expr("eq", "email", `{"type":"string","value":"ada@acme.test"}`) + `]]}}`
	})
	c := NewClient(srv.URL+"/", "crm.allow", map[string]any{"user": "ada"})
	conds, err := c.Compile(context.Background(), "Customer", "c")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	testutil.AssertEqual(t, nodes.Format(conds[0]), "c.email = 'ada@acme.test'")
	testutil.AssertEqual(t, got.Query, "data.crm.allow == true")
	testutil.AssertEqual(t, strings.Join(got.Unknowns, ","), "data.Customer")
}

func TestClientCompileDenied(t *testing.T) {
	t.Parallel()
	srv := opaServer(t, func(compileRequest) string { return `{"result":{}}` })
	_, err := NewClient(srv.URL, "data.crm.allow", nil).Compile(context.Background(), "Customer", "c")
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
}

func TestClientServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "policy missing", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	_, err := NewClient(srv.URL, "crm.allow", nil).Compile(context.Background(), "Customer", "c")
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Fatalf("expected a status error, got %v", err)
	}
}

func TestDiscoverInputs(t *testing.T) {
	t.Parallel()
	srv := opaServer(t, func(req compileRequest) string {
		return `{"result":{"queries":[[{"index":0,"terms":[` +
			`{"type":"ref","value":[{"type":"var","value":"eq"}]},` +
			`{"type":"ref","value":[{"type":"var","value":"input"},{"type":"string","value":"subject"},{"type":"string","value":"role"}]},` +
			`{"type":"string","value":"admin"}]}],[{"index":0,"terms":[` +
			`{"type":"ref","value":[{"type":"var","value":"eq"}]},` +
			`{"type":"ref","value":[{"type":"var","value":"input"},{"type":"string","value":"tenant"}]},` +
			`{"type":"ref","value":[{"type":"var","value":"data"},{"type":"string","value":"Customer"},{"type":"var","value":"$01"},{"type":"string","value":"tenant"}]}]}]]}}`
	})
	paths, err := NewClient(srv.URL, "crm.allow", nil).DiscoverInputs(context.Background(), "data.Customer")
	if err != nil {
		t.Fatalf("DiscoverInputs failed: %v", err)
	}
	testutil.AssertEqual(t, strings.Join(paths, ","), "subject.role,tenant")
}

func TestServerPolicyCompilesToSQL(t *testing.T) {
	t.Parallel()
	srv := opaServer(t, func(req compileRequest) string {
		if req.Unknowns[0] != "data.Order" {
			return `{"result":{"queries":[[]]}}`
		}
		return `{"result":{"queries":[[{"index":0,"terms":[` +
			`{"type":"ref","value":[{"type":"var","value":"neq"}]},` +
			`{"type":"ref","value":[{"type":"var","value":"data"},{"type":"string","value":"Order"},{"type":"var","value":"$01"},{"type":"string","value":"status"}]},` +
			`{"type":"string","value":"closed"}]}]]}}`
	})
	o := NewFromServer(srv.URL, "shop.allow", nil, WithSchema(testutil.Catalog()))
	q, err := o.TransformQuery(customerOrders())
	if err != nil {
		t.Fatalf("TransformQuery failed: %v", err)
	}
	res, err := compiler.New(testutil.Catalog(), dialect.Postgres).Compile(q, compiler.ReturnCollection, nil)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !strings.Contains(res.SQL, "t_o.status <> 'closed'") {
		t.Errorf("expected the policy condition in the SQL, got %s", res.SQL)
	}
}
