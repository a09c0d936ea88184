// Package filter provides the boolean filter expression model used by the
// query planner.
//
// A filter is an immutable tree of Predicate, And, Or, and Not nodes. Trees
// are plain values with no back-references; equality is structural (Equal)
// and identity is content-addressed (Hash).
//
// SEALED INTERFACE:
//
// Expression is a sealed interface using the marker method pattern. Only
// types in this package implement it, so consumers can switch exhaustively:
//
//	switch x := e.(type) {
//	case filter.Predicate:
//	case filter.And:
//	case filter.Or:
//	case filter.Not:
//	}
//
// ABSENT FRAGMENTS:
//
// A nil Expression means "no constraint". AndOf and OrOf are the only
// helpers that combine possibly absent fragments; everything that builds
// trees from optional parts goes through them.
//
// NORMALIZATION:
//
// NegationNormalizer pushes negation down to the predicates so that Not only
// ever wraps a Predicate. The splitter relies on this shape: negating a
// fragment that was split across query levels is not sound.
//
// DOCUMENTS:
//
// Parse reads YAML or JSON filter documents; Encode produces the same shape
// for canonical hashing and golden snapshots.
package filter
