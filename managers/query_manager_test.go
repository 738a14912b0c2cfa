package managers

import (
	"errors"
	"testing"

	"github.com/wildfly/cmpql/catalog"
	"github.com/wildfly/cmpql/compiler"
	"github.com/wildfly/cmpql/dialect"
	"github.com/wildfly/cmpql/internal/testutil"
	"github.com/wildfly/cmpql/nodes"
	"github.com/wildfly/cmpql/plugins"
	"github.com/wildfly/cmpql/plugins/softdelete"
)

// --- NewQueryManager ---

func TestNewQueryManagerSelectsObject(t *testing.T) {
	t.Parallel()
	m := NewQueryManager("Order", "o")
	testutil.AssertEqual(t, m.String(), "SELECT OBJECT(o) FROM Order o")
	if m.Query.Where != nil {
		t.Error("expected no WHERE clause")
	}
	if len(m.Transformers()) != 0 {
		t.Error("expected no transformers")
	}
}

// --- Select / Distinct ---

func TestSelectReplacesTarget(t *testing.T) {
	t.Parallel()
	m := NewQueryManager("Order", "o").Select(nodes.P("o.customer.name")).Distinct()
	testutil.AssertEqual(t, m.String(), "SELECT DISTINCT o.customer.name FROM Order o")

	m.Distinct(false).Select(nodes.Count(nodes.P("o")))
	testutil.AssertEqual(t, m.String(), "SELECT COUNT(o) FROM Order o")
}

// --- From / Join ---

func TestFromAndJoinDeclareVariables(t *testing.T) {
	t.Parallel()
	m := NewQueryManager("Order", "o").
		Join(nodes.P("o.lines")).As("l").
		From("Item", "i")
	testutil.AssertEqual(t, m.String(), "SELECT OBJECT(o) FROM Order o, IN(o.lines) l, Item i")
}

// --- Where / Or ---

func TestWhereAndsIntoCurrentTerm(t *testing.T) {
	t.Parallel()
	m := NewQueryManager("Order", "o").
		Where(nodes.P("o.status").Eq(nodes.Param(1))).
		Where(nodes.P("o.total").Gt(nodes.Int(10)), nodes.P("o.archived").Eq(nodes.Bool(false)))

	if len(m.Query.Where.Terms) != 1 {
		t.Fatalf("expected 1 term, got %d", len(m.Query.Where.Terms))
	}
	testutil.AssertEqual(t, m.String(),
		"SELECT OBJECT(o) FROM Order o WHERE o.status = ?1 AND o.total > 10 AND o.archived = FALSE")
}

func TestOrStartsNewTerm(t *testing.T) {
	t.Parallel()
	m := NewQueryManager("Order", "o").
		Where(nodes.P("o.status").Eq(nodes.Str("open"))).
		Or(nodes.P("o.customer.name").Eq(nodes.Param(1))).
		Where(nodes.P("o.total").Gt(nodes.Int(10)))

	if len(m.Query.Where.Terms) != 2 {
		t.Fatalf("expected 2 terms, got %d", len(m.Query.Where.Terms))
	}
	testutil.AssertEqual(t, m.String(),
		"SELECT OBJECT(o) FROM Order o WHERE o.status = 'open' OR o.customer.name = ?1 AND o.total > 10")
}

func TestWhereWithoutConditionsIsNoOp(t *testing.T) {
	t.Parallel()
	m := NewQueryManager("Order", "o").Where().Or()
	if m.Query.Where != nil {
		t.Error("expected no WHERE clause")
	}
}

// --- Order / Limit / Offset ---

func TestOrderLimitOffset(t *testing.T) {
	t.Parallel()
	m := NewQueryManager("Order", "o").
		Order(nodes.P("o.number").Desc(), nodes.P("o.id").Asc()).
		Offset(20).
		Limit(10)
	testutil.AssertEqual(t, m.String(), "SELECT OBJECT(o) FROM Order o ORDER BY o.number DESC, o.id OFFSET 20 LIMIT 10")

	m.OffsetParam(2).LimitParam(3)
	testutil.AssertEqual(t, m.String(), "SELECT OBJECT(o) FROM Order o ORDER BY o.number DESC, o.id OFFSET ?2 LIMIT ?3")
}

// --- Transformers ---

func TestBuildAppliesTransformersToCopy(t *testing.T) {
	t.Parallel()
	m := NewQueryManager("Customer", "c").
		Where(nodes.P("c.name").Eq(nodes.Param(1))).
		Use(softdelete.New())

	q, err := m.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, q.String(),
		"SELECT OBJECT(c) FROM Customer c WHERE c.name = ?1 AND c.deletedAt IS NULL")
	testutil.AssertEqual(t, m.String(), "SELECT OBJECT(c) FROM Customer c WHERE c.name = ?1")
}

func TestBuildTransformerError(t *testing.T) {
	t.Parallel()
	boom := errors.New("denied")
	m := NewQueryManager("Order", "o").Use(plugins.TransformerFunc(func(*nodes.Query) (*nodes.Query, error) {
		return nil, boom
	}))
	if _, err := m.Build(); !errors.Is(err, boom) {
		t.Fatalf("expected transformer error, got %v", err)
	}
	if _, err := m.Compile(compiler.New(testutil.Catalog(), dialect.Postgres), compiler.ReturnCollection, nil); !errors.Is(err, boom) {
		t.Fatalf("expected transformer error from Compile, got %v", err)
	}
}

func TestCloneQueryIsIndependent(t *testing.T) {
	t.Parallel()
	m := NewQueryManager("Order", "o").Where(nodes.P("o.status").IsNull())
	q := m.CloneQuery()
	q.From = append(q.From, nodes.Range("Item", "i"))
	q.Where.Terms[0] = nodes.P("o.total").IsNull()
	q.Select.Distinct = true

	testutil.AssertEqual(t, m.String(), "SELECT OBJECT(o) FROM Order o WHERE o.status IS NULL")
}

// --- Compile ---

func TestCompile(t *testing.T) {
	t.Parallel()
	c := compiler.New(testutil.Catalog(), dialect.Postgres)
	res, err := NewQueryManager("Order", "o").
		Where(nodes.P("o.customer.name").Eq(nodes.Param(1))).
		Order(nodes.P("o.number").Asc()).
		Compile(c, compiler.ReturnCollection, []catalog.Type{catalog.String})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertSQL(t, res.SQL, `SELECT t_o.id FROM ORDERS t_o
		INNER JOIN CUSTOMER t_o_customer ON t_o.customer_id = t_o_customer.id
		WHERE t_o_customer.name = ? ORDER BY t_o.order_number`)
	testutil.AssertPlaceholders(t, res.SQL, len(res.Params))
}
