package sqlfmt

import (
	"testing"

	"github.com/wildfly/cmpql/internal/testutil"
)

func TestFormatClauses(t *testing.T) {
	t.Parallel()
	sql := "SELECT DISTINCT t_o.id, t_o.status FROM ORDERS t_o INNER JOIN CUSTOMER t_c ON t_o.customer_id = t_c.id " +
		"WHERE t_c.name = ? AND t_o.total BETWEEN 1 AND 2 OR t_o.status = 'a, b AND c' ORDER BY t_o.status DESC, t_o.id"
	want := "SELECT DISTINCT t_o.id\n\t,t_o.status\n" +
		"FROM ORDERS t_o\n" +
		"INNER JOIN CUSTOMER t_c ON t_o.customer_id = t_c.id\n" +
		"WHERE t_c.name = ?\n" +
		"\tAND t_o.total BETWEEN 1 AND 2\n" +
		"\tOR t_o.status = 'a, b AND c'\n" +
		"ORDER BY t_o.status DESC\n\t,t_o.id"
	testutil.AssertEqual(t, Format(sql), want)
	testutil.AssertEqual(t, Compact(Format(sql)), sql)
}

func TestFormatLeavesSubqueriesAlone(t *testing.T) {
	t.Parallel()
	sql := "SELECT t_o.id FROM ORDERS t_o WHERE NOT EXISTS (SELECT t_i.id FROM ITEM t_i WHERE t_i.a = 1 AND t_i.b = 2) FOR UPDATE"
	want := "SELECT t_o.id\n" +
		"FROM ORDERS t_o\n" +
		"WHERE NOT EXISTS (SELECT t_i.id FROM ITEM t_i WHERE t_i.a = 1 AND t_i.b = 2)\n" +
		"FOR UPDATE"
	testutil.AssertEqual(t, Format(sql), want)
	testutil.AssertEqual(t, Compact(Format(sql)), sql)
}

func TestFormatOuterJoin(t *testing.T) {
	t.Parallel()
	sql := "SELECT DISTINCT t_o.id FROM ORDERS t_o LEFT OUTER JOIN order_item t_jt ON t_o.id = t_jt.order_id AND t_jt.item_id = ? WHERE t_jt.item_id IS NULL"
	want := "SELECT DISTINCT t_o.id\n" +
		"FROM ORDERS t_o\n" +
		"LEFT OUTER JOIN order_item t_jt ON t_o.id = t_jt.order_id\n" +
		"\tAND t_jt.item_id = ?\n" +
		"WHERE t_jt.item_id IS NULL"
	testutil.AssertEqual(t, Format(sql), want)
}

func TestCompactSingleLine(t *testing.T) {
	t.Parallel()
	testutil.AssertEqual(t, Compact("SELECT 1"), "SELECT 1")
	testutil.AssertEqual(t, Format(""), "")
}
