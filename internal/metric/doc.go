// Package metric implements aggregate column projections that can split
// themselves across the two levels of a nested query plan.
//
// A Projection whose expression is a single top-level SUM, MIN, MAX, or
// COUNT call can nest: the inner query computes it exactly as declared and
// the outer query re-applies the same aggregate over the inner column,
// e.g. SUM(amount) becomes SUM({{revenue}}) over the inner result.
//
// The test is syntactic and conservative. Classifier isolates it so a real
// expression grammar can replace the regular expression later.
package metric
