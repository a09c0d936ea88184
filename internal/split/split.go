package split

import (
	"errors"
	"fmt"

	"github.com/roach88/nestq/internal/filter"
)

// ErrMixedNegation is returned by SplitChecked when a Not wraps a subtree
// whose split populated both the outer and the inner fragment.
// NOT (inner AND outer) is not NOT inner AND NOT outer, so such a split
// cannot be expressed as a conjunction of per-level fragments.
var ErrMixedNegation = errors.New("negation over a mixed inner/outer subtree")

// JoinOracle reports the joins required to resolve a field.
//
// An empty result means the field resolves without crossing a join and a
// predicate on it may run in the join-free inner query. Implementations must
// be deterministic for a fixed schema and safe for concurrent reads.
type JoinOracle interface {
	ResolvedJoins(table, field string) []string
}

// Metadata maps the entity named by a predicate to the table identity the
// oracle understands.
type Metadata interface {
	ResolveTable(entity string) (string, bool)
}

// Placement says at which query level a predicate must be evaluated.
type Placement int

const (
	// PlaceInner predicates touch no joined field.
	PlaceInner Placement = iota
	// PlaceOuter predicates need at least one join.
	PlaceOuter
)

func (p Placement) String() string {
	if p == PlaceOuter {
		return "outer"
	}
	return "inner"
}

// Result is the split of one filter subtree.
//
// Outer must run in the query that performs the joins; Inner only touches
// fields of the base table. A nil side contributes no constraint at that
// level (the identity for conjunction). At the top of the tree,
// AND(Outer, Inner) is logically equivalent to the original filter.
type Result struct {
	Outer filter.Expression
	Inner filter.Expression
}

// Combined re-joins both fragments with AndOf.
func (r Result) Combined() filter.Expression {
	return filter.AndOf(r.Outer, r.Inner)
}

// Empty reports whether neither level carries a constraint.
func (r Result) Empty() bool {
	return r.Outer == nil && r.Inner == nil
}

// Splitter partitions normalized filters between the inner (join-free) and
// outer (join) query levels.
//
// A Splitter holds no mutable state and is safe for concurrent use when its
// oracle and metadata are.
type Splitter struct {
	Oracle   JoinOracle
	Metadata Metadata

	// Normalizer runs before splitting; nil means filter.NegationNormalizer.
	Normalizer filter.Normalizer
}

// New creates a Splitter with the default normalizer.
func New(oracle JoinOracle, metadata Metadata) *Splitter {
	return &Splitter{Oracle: oracle, Metadata: metadata}
}

// Split normalizes and partitions expr. It is total: it never fails.
//
// A nil expression yields an empty Result.
func Split(oracle JoinOracle, metadata Metadata, expr filter.Expression) Result {
	return New(oracle, metadata).Split(expr)
}

// Split normalizes and partitions expr.
//
// Negations are applied to each fragment independently. That is only sound
// when the negated subtree landed on a single level; the default normalizer
// guarantees this by pushing Not onto predicates. Use SplitChecked with a
// custom normalizer that does not.
func (s *Splitter) Split(expr filter.Expression) Result {
	res, _ := s.split(expr, false)
	return res
}

// SplitChecked is Split, but fails with ErrMixedNegation instead of negating
// a subtree whose split populated both levels.
func (s *Splitter) SplitChecked(expr filter.Expression) (Result, error) {
	return s.split(expr, true)
}

func (s *Splitter) split(expr filter.Expression, checked bool) (Result, error) {
	if expr == nil {
		return Result{}, nil
	}
	normalizer := s.Normalizer
	if normalizer == nil {
		normalizer = filter.NegationNormalizer{}
	}
	expr = normalizer.Normalize(expr)
	// A Not over a bare predicate cannot populate both levels.
	if checked && filter.IsNormalized(expr) {
		checked = false
	}
	return s.visit(expr, checked)
}

func (s *Splitter) visit(expr filter.Expression, checked bool) (Result, error) {
	switch e := expr.(type) {
	case nil:
		return Result{}, nil

	case filter.Predicate:
		if s.Classify(e) == PlaceOuter {
			return Result{Outer: e}, nil
		}
		return Result{Inner: e}, nil

	case filter.And:
		lhs, rhs, err := s.visitPair(e.Left, e.Right, checked)
		if err != nil {
			return Result{}, err
		}
		// Conjunction distributes across levels: each conjunct keeps its placement.
		return Result{
			Outer: filter.AndOf(lhs.Outer, rhs.Outer),
			Inner: filter.AndOf(lhs.Inner, rhs.Inner),
		}, nil

	case filter.Or:
		lhs, rhs, err := s.visitPair(e.Left, e.Right, checked)
		if err != nil {
			return Result{}, err
		}
		// An inner-only partial OR would drop rows that only match the outer
		// disjunct before aggregation, so any outer part pulls the whole OR out.
		// AND is the only node that splits, so each side is re-joined with AND.
		if lhs.Outer != nil || rhs.Outer != nil {
			return Result{Outer: filter.OrOf(lhs.Combined(), rhs.Combined())}, nil
		}
		return Result{Inner: filter.OrOf(lhs.Inner, rhs.Inner)}, nil

	case filter.Not:
		negated, err := s.visit(e.Negated, checked)
		if err != nil {
			return Result{}, err
		}
		if checked && negated.Outer != nil && negated.Inner != nil {
			return Result{}, fmt.Errorf("%w: %s", ErrMixedNegation, filter.String(e))
		}
		var res Result
		if negated.Outer != nil {
			res.Outer = filter.Not{Negated: negated.Outer}
		}
		if negated.Inner != nil {
			res.Inner = filter.Not{Negated: negated.Inner}
		}
		return res, nil

	default:
		// Unknown nodes cannot be classified; keep them where joins are available.
		return Result{Outer: expr}, nil
	}
}

func (s *Splitter) visitPair(left, right filter.Expression, checked bool) (Result, Result, error) {
	lhs, err := s.visit(left, checked)
	if err != nil {
		return Result{}, Result{}, err
	}
	rhs, err := s.visit(right, checked)
	if err != nil {
		return Result{}, Result{}, err
	}
	return lhs, rhs, nil
}

// Classify decides the placement of a single predicate.
//
// A predicate whose table is unknown to the metadata is placed outer: the
// outer query sees every column, so the filter stays correct even when the
// schema cannot vouch for it.
func (s *Splitter) Classify(p filter.Predicate) Placement {
	table, ok := s.Metadata.ResolveTable(p.Table)
	if !ok {
		return PlaceOuter
	}
	if len(s.Oracle.ResolvedJoins(table, p.Field)) > 0 {
		return PlaceOuter
	}
	return PlaceInner
}
