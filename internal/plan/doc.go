// Package plan assembles query plans.
//
// The Assembler splits a query's filter between the join-free inner level
// and the outer level that performs joins, asks every metric for its inner
// and outer versions, and combines both into a nested query.Plan. When a
// query needs no joins, or a metric cannot nest, the plan stays flat.
package plan
