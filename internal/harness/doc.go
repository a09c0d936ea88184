// Package harness runs planner scenarios against a real SQLite database.
//
// A scenario names a schema, a dataset, and a query. The harness plans the
// query, executes the plan and a flat plan of the same query over the
// dataset, and evaluates assertions over the plan shape, the split of the
// filter, and the rows.
//
// # Scenario Format
//
//	name: revenue_by_country
//	description: "Revenue per customer country for open orders"
//	schema: ../schema/orders.yaml
//	dataset: ../data/orders.yaml
//	query:
//	  table: orders
//	  metrics: [revenue]
//	  dimensions: [country]
//	  filter: {field: status, op: in, values: [open]}
//	  arguments: {rate: 2}
//	assertions:
//	  - type: nested
//	    expect: true
//	  - type: inner_filter
//	    filter: "orders.status in ('open')"
//	  - type: equivalent
//	  - type: rows
//	    rows:
//	      - [null, 45]
//	      - [DE, 180]
//
// Paths are relative to the scenario file.
//
// # Assertion Types
//
//   - nested: the plan is (or is not) nested
//   - fallback: the plan fell back to flat (or did not)
//   - inner_filter, outer_filter: the split fragment renders as given;
//     "TRUE" means no constraint at that level
//   - equivalent: the plan returns the same rows as a flat plan
//   - rows: the plan returns exactly these rows, in order
package harness
