package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAliasStable(t *testing.T) {
	t.Parallel()
	m := NewAliasManager("t_", "", 0)
	a := m.Alias("o.customer")
	assert.Equal(t, "t_o_customer", a)
	assert.Equal(t, a, m.Alias("o.customer"))
	assert.Equal(t, a, m.Alias(" O . customer "), "variables are case insensitive and segments trimmed")
	assert.NotEqual(t, a, m.Alias("o.Customer"), "relationship names are case sensitive")
}

func TestAliasCollisionAfterSanitizing(t *testing.T) {
	t.Parallel()
	m := NewAliasManager("t_", "", 0)
	first := m.Alias("o.a_b")
	second := m.Alias("o.a.b")
	assert.Equal(t, "t_o_a_b", first)
	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(second, "t_o_a_b_"), second)
	assert.Len(t, second, len("t_o_a_b")+hashLen)
}

func TestAliasTruncation(t *testing.T) {
	t.Parallel()
	m := NewAliasManager("t_", "", 16)
	a := m.Alias("o.customer.orders.items")
	assert.Len(t, a, 16)
	assert.True(t, strings.HasPrefix(a, "t_o_cus_"), a)

	b := m.Alias("o.customer.orders.lines")
	assert.Len(t, b, 16)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, m.Alias("o.customer.orders.items"))
}

func TestAliasLimitBelowMinimumIsRaised(t *testing.T) {
	t.Parallel()
	m := NewAliasManager("t_", "_x", 4)
	assert.Equal(t, MinAliasLength("t_", "_x"), m.MaxLength())

	a := m.Alias("o.customer.orders.items")
	b := m.Alias("o.customer.orders.lines")
	assert.LessOrEqual(t, len(a), m.MaxLength())
	assert.LessOrEqual(t, len(b), m.MaxLength())
	assert.NotEqual(t, a, b)
	assert.Equal(t, 0, NewAliasManager("t_", "", 0).MaxLength())
}

func TestAliasSuffix(t *testing.T) {
	t.Parallel()
	m := NewAliasManager("x", "_", 20)
	a := m.Alias("order.customer.address.city")
	assert.LessOrEqual(t, len(a), 20)
	assert.True(t, strings.HasPrefix(a, "x"), a)
	assert.True(t, strings.HasSuffix(a, "_"), a)
}

func TestJoinTableAlias(t *testing.T) {
	t.Parallel()
	m := NewAliasManager("t_", "", 0)
	jt := m.JoinTableAlias("o.items")
	assert.Equal(t, "t_o_items_jt", jt)
	assert.Equal(t, jt, m.JoinTableAlias("o.items"))
	assert.NotEqual(t, jt, m.Alias("o.items"))

	// a path spelled like a join table alias still gets its own alias
	assert.NotEqual(t, jt, m.Alias("o.items_jt"))
}

func TestAliasBind(t *testing.T) {
	t.Parallel()
	m := NewAliasManager("t_", "", 0)
	i := m.Alias("i")
	m.Bind("o.items", i)
	assert.Equal(t, "t_i", m.Alias("o.items"))
	assert.NotEqual(t, i, m.Alias("o.lines"))
}

func TestAliasReset(t *testing.T) {
	t.Parallel()
	m := NewAliasManager("t_", "", 0)
	m.Bind("o.items", "t_i")
	m.Reset()
	assert.Equal(t, "t_o_items", m.Alias("o.items"))
}

func TestAliasSanitizes(t *testing.T) {
	t.Parallel()
	m := NewAliasManager("t_", "", 0)
	assert.Equal(t, "t_o_stra_e", m.Alias("ö.straße"))
	assert.Equal(t, "t_o_caf_", m.Alias("o.caf$"))
}
