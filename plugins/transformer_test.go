package plugins

import (
	"errors"
	"testing"

	"github.com/wildfly/cmpql/internal/testutil"
	"github.com/wildfly/cmpql/nodes"
)

func customers(where nodes.Node) *nodes.Query {
	return &nodes.Query{
		Select: &nodes.Select{Target: nodes.Obj("c")},
		From:   []nodes.Declaration{nodes.Range("Customer", "c")},
		Where:  nodes.WhereOf(where),
	}
}

// --- Apply ---

func TestApplyRunsInOrder(t *testing.T) {
	t.Parallel()
	var seen []string
	mark := func(name string) Transformer {
		return TransformerFunc(func(q *nodes.Query) (*nodes.Query, error) {
			seen = append(seen, name)
			return q, nil
		})
	}
	q := customers(nil)
	got, err := Apply(q, mark("a"), mark("b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != q {
		t.Error("expected Apply to return the transformed query")
	}
	testutil.AssertEqual(t, len(seen), 2)
	testutil.AssertEqual(t, seen[0]+seen[1], "ab")
}

func TestApplyStopsOnError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	called := false
	_, err := Apply(customers(nil),
		TransformerFunc(func(*nodes.Query) (*nodes.Query, error) { return nil, boom }),
		TransformerFunc(func(q *nodes.Query) (*nodes.Query, error) { called = true; return q, nil }),
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if called {
		t.Error("expected the second transformer to be skipped")
	}
}

// --- Restrict ---

func TestRestrictWithoutWhere(t *testing.T) {
	t.Parallel()
	q := customers(nil)
	Restrict(q, nodes.P("c.deletedAt").IsNull())
	testutil.AssertEqual(t, q.String(), "SELECT OBJECT(c) FROM Customer c WHERE c.deletedAt IS NULL")
}

func TestRestrictDistributesOverTerms(t *testing.T) {
	t.Parallel()
	q := customers(nodes.OrOf(
		nodes.P("c.name").Eq(nodes.Param(1)),
		nodes.P("c.email").Eq(nodes.Param(2)),
	))
	Restrict(q, nodes.P("c.deletedAt").IsNull())
	testutil.AssertEqual(t, len(q.Where.Terms), 2)
	testutil.AssertEqual(t, q.String(),
		"SELECT OBJECT(c) FROM Customer c WHERE c.name = ?1 AND c.deletedAt IS NULL OR c.email = ?2 AND c.deletedAt IS NULL")
}

func TestRestrictGroupsDisjunction(t *testing.T) {
	t.Parallel()
	q := customers(nodes.P("c.name").Eq(nodes.Param(1)))
	Restrict(q, nodes.OrOf(nodes.P("c.deletedAt").IsNull(), nodes.P("c.email").IsNull()))
	testutil.AssertEqual(t, q.String(),
		"SELECT OBJECT(c) FROM Customer c WHERE c.name = ?1 AND (c.deletedAt IS NULL OR c.email IS NULL)")
}

func TestRestrictNil(t *testing.T) {
	t.Parallel()
	q := customers(nil)
	Restrict(q, nil)
	if q.Where != nil {
		t.Error("expected WHERE to stay empty")
	}
}
