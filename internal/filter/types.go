package filter

import (
	"slices"

	"github.com/roach88/nestq/internal/ir"
)

// Expression represents a boolean filter over the fields of a logical table.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the splitter and SQL compiler.
//
// Expression types:
//   - Predicate: an atomic condition on one field
//   - And: both sides must be true
//   - Or: at least one side must be true
//   - Not: the negated expression must be false
//
// A nil Expression means "no filter" and behaves as the constant true
// wherever expressions are combined.
type Expression interface {
	filterNode() // Marker method - seals interface to this package
}

// Predicate represents an atomic filter condition on one field.
//
// Semantics:
//
//	<table>.<field> <operator> <values>
//
// Table names the logical table that owns Field; the join requirement of a
// predicate is a property of (Table, Field) alone, so a predicate is never
// split.
//
// Example:
//
//	Predicate{
//	  Table:    "orders",
//	  Field:    "region",
//	  Operator: OpIn,
//	  Values:   []ir.IRValue{ir.IRString("west"), ir.IRString("east")},
//	}
//
// Translates to SQL:
//
//	region IN (?, ?)
//
// Values is never mutated after construction; NewPredicate copies its input.
type Predicate struct {
	Table    string       // Logical table that owns Field
	Field    string       // Logical field name
	Operator Operator     // Comparison operator
	Values   []ir.IRValue // Operands; count depends on Operator.Arity
}

func (Predicate) filterNode() {}

// NewPredicate builds a predicate with its own copy of values.
func NewPredicate(table, field string, op Operator, values ...ir.IRValue) Predicate {
	return Predicate{
		Table:    table,
		Field:    field,
		Operator: op,
		Values:   slices.Clone(values),
	}
}

// WithOperator returns a copy of the predicate using a different operator.
func (p Predicate) WithOperator(op Operator) Predicate {
	return NewPredicate(p.Table, p.Field, op, p.Values...)
}

// And represents a conjunction (both sides must be true).
//
// Semantics:
//
//	<left> AND <right>
//
// Use AndOf to combine fragments that may be absent.
type And struct {
	Left  Expression
	Right Expression
}

func (And) filterNode() {}

// Or represents a disjunction (at least one side must be true).
//
// Semantics:
//
//	<left> OR <right>
//
// Use OrOf to combine fragments that may be absent.
type Or struct {
	Left  Expression
	Right Expression
}

func (Or) filterNode() {}

// Not represents a negation.
//
// Semantics:
//
//	NOT <negated>
type Not struct {
	Negated Expression
}

func (Not) filterNode() {}

// AndOf conjoins two possibly absent expressions.
// An absent side is the identity (true): AndOf(nil, r) is r, and AndOf(nil, nil) is nil.
func AndOf(left, right Expression) Expression {
	switch {
	case left == nil:
		return right
	case right == nil:
		return left
	default:
		return And{Left: left, Right: right}
	}
}

// OrOf disjoins two possibly absent expressions with the same null-safe
// contract as AndOf. Callers that need "absent means true" semantics for a
// disjunct must not pass nil here; the splitter only ORs present fragments.
func OrOf(left, right Expression) Expression {
	switch {
	case left == nil:
		return right
	case right == nil:
		return left
	default:
		return Or{Left: left, Right: right}
	}
}

// AllOf folds expressions left to right with AndOf, skipping nils.
func AllOf(exprs ...Expression) Expression {
	var out Expression
	for _, e := range exprs {
		out = AndOf(out, e)
	}
	return out
}

// AnyOf folds expressions left to right with OrOf, skipping nils.
func AnyOf(exprs ...Expression) Expression {
	var out Expression
	for _, e := range exprs {
		out = OrOf(out, e)
	}
	return out
}

// Equal reports whether two expressions are structurally equal.
func Equal(a, b Expression) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case Predicate:
		y, ok := b.(Predicate)
		if !ok || x.Table != y.Table || x.Field != y.Field || x.Operator != y.Operator ||
			len(x.Values) != len(y.Values) {
			return false
		}
		for i := range x.Values {
			if !ir.Equal(x.Values[i], y.Values[i]) {
				return false
			}
		}
		return true
	case And:
		y, ok := b.(And)
		return ok && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case Or:
		y, ok := b.(Or)
		return ok && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case Not:
		y, ok := b.(Not)
		return ok && Equal(x.Negated, y.Negated)
	default:
		return false
	}
}

// FieldRef identifies a field of a logical table.
type FieldRef struct {
	Table string
	Field string
}

// Fields returns every field referenced by e, in first-seen order without duplicates.
func Fields(e Expression) []FieldRef {
	var refs []FieldRef
	seen := make(map[FieldRef]bool)
	Walk(e, func(p Predicate) {
		ref := FieldRef{Table: p.Table, Field: p.Field}
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	})
	return refs
}

// Walk calls fn for every predicate in e, left to right.
func Walk(e Expression, fn func(Predicate)) {
	switch x := e.(type) {
	case nil:
	case Predicate:
		fn(x)
	case And:
		Walk(x.Left, fn)
		Walk(x.Right, fn)
	case Or:
		Walk(x.Left, fn)
		Walk(x.Right, fn)
	case Not:
		Walk(x.Negated, fn)
	}
}
