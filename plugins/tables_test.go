package plugins

import (
	"testing"

	"github.com/wildfly/cmpql/internal/testutil"
	"github.com/wildfly/cmpql/nodes"
)

func TestCollectVariablesRange(t *testing.T) {
	t.Parallel()
	refs := CollectVariables(customers(nil), nil)
	if len(refs) != 1 {
		t.Fatalf("expected 1 ref, got %d", len(refs))
	}
	testutil.AssertEqual(t, refs[0].Var, "c")
	testutil.AssertEqual(t, refs[0].Entity, "Customer")
	if refs[0].Path != nil {
		t.Error("expected no path for a range variable")
	}
}

func TestCollectVariablesResolvesCollections(t *testing.T) {
	t.Parallel()
	q := &nodes.Query{
		Select: &nodes.Select{Target: nodes.Obj("o")},
		From: []nodes.Declaration{
			nodes.Range("Customer", "c"),
			nodes.Collection(nodes.P("c.orders"), "o"),
			nodes.Collection(nodes.P("o.lines"), "l"),
		},
	}
	refs := CollectVariables(q, testutil.Catalog())
	if len(refs) != 3 {
		t.Fatalf("expected 3 refs, got %d", len(refs))
	}
	testutil.AssertEqual(t, refs[1].Entity, "Order")
	testutil.AssertEqual(t, refs[1].Path.String(), "c.orders")
	testutil.AssertEqual(t, refs[2].Entity, "LineItem")
}

func TestCollectVariablesUnresolved(t *testing.T) {
	t.Parallel()
	q := &nodes.Query{
		Select: &nodes.Select{Target: nodes.Obj("c")},
		From: []nodes.Declaration{
			nodes.Range("Customer", "c"),
			nodes.Collection(nodes.P("c.orders"), "o"),
			nodes.Collection(nodes.P("c.wishlist"), "w"),
		},
	}
	withoutSchema := CollectVariables(q, nil)
	testutil.AssertEqual(t, withoutSchema[1].Entity, "")

	withSchema := CollectVariables(q, testutil.Catalog())
	testutil.AssertEqual(t, withSchema[1].Entity, "Order")
	testutil.AssertEqual(t, withSchema[2].Entity, "")
}
