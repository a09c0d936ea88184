// Package testutil holds shared fixtures for planner tests: an orders
// schema with one join, a matching dataset, and filter shorthands.
package testutil

import (
	"github.com/roach88/nestq/internal/filter"
	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/schema"
	"github.com/roach88/nestq/internal/store"
)

// OrdersSchemaYAML declares orders with a many-to-one join to customer.
// country, segment, and weight live on customer; everything else on orders.
const OrdersSchemaYAML = `
tables:
  - name: orders
    fields:
      - {name: id, type: INTEGER}
      - {name: region}
      - {name: status}
      - {name: amount, type: DECIMAL}
      - {name: customer_id, type: INTEGER}
      - {name: country, expression: "{{customer.country}}"}
      - {name: segment, expression: "{{customer.segment}}"}
      - {name: big, type: BOOLEAN, expression: "{{amount}} >= 100"}
    metrics:
      - {name: revenue, expression: "SUM({{amount}})"}
      - {name: max_order, expression: "MAX({{amount}})"}
      - {name: min_order, expression: "MIN({{amount}})"}
      - {name: order_count, type: INTEGER, expression: "COUNT({{id}})"}
      - {name: avg_order, expression: "AVG({{amount}})"}
      - {name: weighted, expression: "SUM({{amount}} * {{customer.weight}})"}
      - {name: scaled, expression: "SUM({{amount}} * {{@rate}})"}
    joins:
      - {name: customer, table: customer, from: customer_id, to: id}
  - name: customer
    physical: customers
    fields:
      - {name: id, type: INTEGER}
      - {name: country}
      - {name: segment}
      - {name: weight, type: DECIMAL}
`

// OrdersCatalog parses OrdersSchemaYAML. It panics on error.
func OrdersCatalog() *schema.Catalog {
	c, err := schema.ParseYAML([]byte(OrdersSchemaYAML))
	if err != nil {
		panic(err)
	}
	return c
}

// OrdersDataset returns rows for OrdersCatalog. Order 7 has no customer.
func OrdersDataset() store.Dataset {
	return store.Dataset{Tables: []store.TableData{
		{
			Name: "orders",
			Columns: []store.Column{
				{Name: "id", Type: "INTEGER"},
				{Name: "region"},
				{Name: "status"},
				{Name: "amount", Type: "REAL"},
				{Name: "customer_id", Type: "INTEGER"},
			},
			Rows: [][]any{
				{1, "EU", "open", 120, 1},
				{2, "EU", "closed", 30, 2},
				{3, "US", "open", 200, 3},
				{4, "US", "open", 15, 3},
				{5, "EU", "open", 60, 4},
				{6, "EU", "closed", 90, 1},
				{7, "APAC", "open", 45, nil},
				{8, "US", "closed", 300, 4},
			},
		},
		{
			Name: "customers",
			Columns: []store.Column{
				{Name: "id", Type: "INTEGER"},
				{Name: "country"},
				{Name: "segment"},
				{Name: "weight", Type: "REAL"},
			},
			Rows: [][]any{
				{1, "DE", "retail", 1.0},
				{2, "FR", "retail", 2.0},
				{3, "US", "enterprise", 0.5},
				{4, "DE", "enterprise", 1.5},
			},
		},
	}}
}

// Pred builds a predicate on an orders field. Values go through ir.FromAny
// and it panics on values that cannot convert.
func Pred(field string, op filter.Operator, values ...any) filter.Predicate {
	irValues := make([]ir.IRValue, len(values))
	for i, v := range values {
		iv, err := ir.FromAny(v)
		if err != nil {
			panic(err)
		}
		irValues[i] = iv
	}
	return filter.NewPredicate("orders", field, op, irValues...)
}
