// Package query is the logical query model shared by the planner and the
// SQL compiler.
//
// A Queryable is anything a query can read from: a schema Table, or another
// Query (the inner level of a nested plan). Columns of a Queryable are
// ColumnProjections; metrics that know how to split themselves across two
// query levels also implement Nestable.
//
// A Plan is the output of planning: one query when flat, an inner and an
// outer query when nested.
package query
