// Package testutil provides shared test helpers and fixtures for the cmpql
// packages.
package testutil

import (
	"github.com/wildfly/cmpql/catalog"
)

func col(name string) []catalog.Column { return []catalog.Column{{Name: name}} }

// Catalog returns the order-entry catalog used throughout the tests.
//
//	Customer 1-n Order        foreign key ORDERS.customer_id
//	Order    n-m Item         join table order_item(order_id, item_id)
//	Order    1-n LineItem     foreign key LINE_ITEM.order_id, composite key
//	Order    1-n Shipment     foreign key SHIPMENT.order_id, composite value key
//	LineItem n-1 Item         foreign key LINE_ITEM.item_id
//
// Order.shipTo is a composite value field (street, city).
func Catalog() *catalog.Catalog {
	customer := &catalog.Entity{
		Name:       "Customer",
		Table:      "CUSTOMER",
		PrimaryKey: []string{"id"},
		Fields: []*catalog.Field{
			{Name: "id", Type: catalog.Long, Columns: col("id")},
			{Name: "name", Type: catalog.String, Columns: col("name")},
			{Name: "email", Type: catalog.String, Columns: col("email")},
			{Name: "deletedAt", Type: catalog.Timestamp, Columns: col("deleted_at")},
		},
		Relationships: []*catalog.Relationship{
			{
				Name: "orders", Target: "Order", Many: true, Style: catalog.ForeignKey,
				Keys: []catalog.KeyPair{{From: "id", To: "customer_id"}},
			},
		},
	}
	order := &catalog.Entity{
		Name:       "Order",
		Table:      "ORDERS",
		PrimaryKey: []string{"id"},
		Fields: []*catalog.Field{
			{Name: "id", Type: catalog.Long, Columns: col("id")},
			{Name: "number", Type: catalog.String, Columns: col("order_number")},
			{Name: "status", Type: catalog.String, Columns: col("status")},
			{Name: "total", Type: catalog.Decimal, Columns: col("total")},
			{Name: "shipTo", Type: catalog.ValueType("Address"), Columns: []catalog.Column{
				{Name: "ship_street", Property: "street", Kind: catalog.KindString},
				{Name: "ship_city", Property: "city", Kind: catalog.KindString},
			}},
			{Name: "archived", Type: catalog.Boolean, Columns: col("archived")},
		},
		Relationships: []*catalog.Relationship{
			{
				Name: "customer", Target: "Customer", Style: catalog.ForeignKey, OwnsKey: true,
				Keys: []catalog.KeyPair{{From: "customer_id", To: "id"}},
			},
			{
				Name: "items", Target: "Item", Many: true, Style: catalog.JoinTable,
				Table:      "order_item",
				SourceKeys: []catalog.KeyPair{{From: "id", To: "order_id"}},
				TargetKeys: []catalog.KeyPair{{From: "id", To: "item_id"}},
			},
			{
				Name: "lines", Target: "LineItem", Many: true, Style: catalog.ForeignKey,
				Keys: []catalog.KeyPair{{From: "id", To: "order_id"}},
			},
			{
				Name: "shipments", Target: "Shipment", Many: true, Style: catalog.ForeignKey,
				Keys: []catalog.KeyPair{{From: "id", To: "order_id"}},
			},
		},
		LoadGroups: map[string][]string{
			"summary": {"number", "status"},
		},
	}
	item := &catalog.Entity{
		Name:       "Item",
		Table:      "ITEM",
		PrimaryKey: []string{"id"},
		Fields: []*catalog.Field{
			{Name: "id", Type: catalog.Long, Columns: col("id")},
			{Name: "name", Type: catalog.String, Columns: col("name")},
			{Name: "price", Type: catalog.Double, Columns: col("price")},
		},
	}
	line := &catalog.Entity{
		Name:       "LineItem",
		Table:      "LINE_ITEM",
		PrimaryKey: []string{"orderId", "lineNo"},
		Fields: []*catalog.Field{
			{Name: "orderId", Type: catalog.Long, Columns: col("order_id")},
			{Name: "lineNo", Type: catalog.Integer, Columns: col("line_no")},
			{Name: "quantity", Type: catalog.Integer, Columns: col("quantity")},
		},
		Relationships: []*catalog.Relationship{
			{
				Name: "order", Target: "Order", Style: catalog.ForeignKey, OwnsKey: true,
				Keys: []catalog.KeyPair{{From: "order_id", To: "id"}},
			},
			{
				Name: "item", Target: "Item", Style: catalog.ForeignKey, OwnsKey: true,
				Keys: []catalog.KeyPair{{From: "item_id", To: "id"}},
			},
		},
	}
	shipment := &catalog.Entity{
		Name:       "Shipment",
		Table:      "SHIPMENT",
		PrimaryKey: []string{"key"},
		Fields: []*catalog.Field{
			{Name: "key", Type: catalog.ValueType("ShipmentKey"), Columns: []catalog.Column{
				{Name: "carrier", Property: "carrier", Kind: catalog.KindString},
				{Name: "tracking_code", Property: "tracking", Kind: catalog.KindString},
			}},
			{Name: "shippedAt", Type: catalog.Timestamp, Columns: col("shipped_at")},
		},
		Relationships: []*catalog.Relationship{
			{
				Name: "order", Target: "Order", Style: catalog.ForeignKey, OwnsKey: true,
				Keys: []catalog.KeyPair{{From: "order_id", To: "id"}},
			},
		},
	}
	c, err := catalog.New(customer, order, item, line, shipment)
	if err != nil {
		panic(err)
	}
	return c
}

// CompositeCatalog returns a catalog whose Order entity has a two-column
// primary key (region, number).
func CompositeCatalog() *catalog.Catalog {
	order := &catalog.Entity{
		Name:       "Order",
		Table:      "ORDERS",
		PrimaryKey: []string{"region", "number"},
		Fields: []*catalog.Field{
			{Name: "region", Type: catalog.String, Columns: col("region")},
			{Name: "number", Type: catalog.Long, Columns: col("order_number")},
			{Name: "status", Type: catalog.String, Columns: col("status")},
		},
	}
	c, err := catalog.New(order)
	if err != nil {
		panic(err)
	}
	return c
}

// CatalogYAML is the YAML rendition of Catalog.
const CatalogYAML = `
entities:
  - name: Customer
    table: CUSTOMER
    primaryKey: [id]
    fields:
      - {name: id, type: long}
      - {name: name, type: string}
      - {name: email, type: string}
      - {name: deletedAt, type: timestamp, column: deleted_at}
    relationships:
      - name: orders
        target: Order
        many: true
        foreignKey:
          owner: target
          columns: [{source: id, target: customer_id}]
  - name: Order
    table: ORDERS
    primaryKey: [id]
    fields:
      - {name: id, type: long}
      - {name: number, type: string, column: order_number}
      - {name: status, type: string}
      - {name: total, type: decimal}
      - name: shipTo
        type: value:Address
        columns:
          - {name: ship_street, property: street, type: string}
          - {name: ship_city, property: city, type: string}
      - {name: archived, type: boolean}
    relationships:
      - name: customer
        target: Customer
        foreignKey:
          columns: [{source: customer_id, target: id}]
      - name: items
        target: Item
        many: true
        joinTable:
          table: order_item
          source: [{entity: id, table: order_id}]
          target: [{entity: id, table: item_id}]
      - name: lines
        target: LineItem
        many: true
        foreignKey:
          columns: [{source: id, target: order_id}]
      - name: shipments
        target: Shipment
        many: true
        foreignKey:
          columns: [{source: id, target: order_id}]
    loadGroups:
      summary: [number, status]
  - name: Item
    table: ITEM
    primaryKey: [id]
    fields:
      - {name: id, type: long}
      - {name: name, type: string}
      - {name: price, type: double}
  - name: LineItem
    table: LINE_ITEM
    primaryKey: [orderId, lineNo]
    fields:
      - {name: orderId, type: long, column: order_id}
      - {name: lineNo, type: integer, column: line_no}
      - {name: quantity, type: integer}
    relationships:
      - name: order
        target: Order
        foreignKey:
          columns: [{source: order_id, target: id}]
      - name: item
        target: Item
        foreignKey:
          columns: [{source: item_id, target: id}]
  - name: Shipment
    table: SHIPMENT
    primaryKey: [key]
    fields:
      - name: key
        type: value:ShipmentKey
        columns:
          - {name: carrier, property: carrier, type: string}
          - {name: tracking_code, property: tracking, type: string}
      - {name: shippedAt, type: timestamp, column: shipped_at}
    relationships:
      - name: order
        target: Order
        foreignKey:
          columns: [{source: order_id, target: id}]
`

// SQLiteSchema creates and seeds the tables of Catalog.
//
//	orders 1 (open, items 10 and 11), 2 (open, item 10), 3 (closed, no items)
const SQLiteSchema = `
CREATE TABLE CUSTOMER (id INTEGER PRIMARY KEY, name TEXT, email TEXT, deleted_at TIMESTAMP);
CREATE TABLE ORDERS (
	id INTEGER PRIMARY KEY, order_number TEXT, status TEXT, total NUMERIC,
	ship_street TEXT, ship_city TEXT, archived BOOLEAN, customer_id INTEGER
);
CREATE TABLE ITEM (id INTEGER PRIMARY KEY, name TEXT, price REAL);
CREATE TABLE order_item (order_id INTEGER, item_id INTEGER);
CREATE TABLE LINE_ITEM (order_id INTEGER, line_no INTEGER, quantity INTEGER, item_id INTEGER);
CREATE TABLE SHIPMENT (carrier TEXT, tracking_code TEXT, shipped_at TIMESTAMP, order_id INTEGER);

INSERT INTO CUSTOMER VALUES (100, 'Ada', 'ada@example.com', NULL), (101, 'Brian', 'brian@example.com', NULL);
INSERT INTO ORDERS VALUES
	(1, 'A-1', 'open', 30.5, '1 Main St', 'Leeds', 0, 100),
	(2, 'A-2', 'open', 12, '1 Main St', 'Leeds', 0, 100),
	(3, 'B-1', 'closed', 99, '9 High St', 'York', 1, 101);
INSERT INTO ITEM VALUES (10, 'bolt', 0.25), (11, 'nut', 0.1);
INSERT INTO order_item VALUES (1, 10), (1, 11), (2, 10);
INSERT INTO LINE_ITEM VALUES (1, 1, 4, 10), (1, 2, 8, 11), (2, 1, 2, 10);
`
