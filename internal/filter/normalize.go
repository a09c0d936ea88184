package filter

// Normalizer rewrites an expression into a logically equivalent canonical
// shape before it is split.
type Normalizer interface {
	Normalize(e Expression) Expression
}

// NormalizerFunc adapts a plain function to the Normalizer interface.
type NormalizerFunc func(Expression) Expression

// Normalize calls f(e).
func (f NormalizerFunc) Normalize(e Expression) Expression {
	return f(e)
}

// NegationNormalizer pushes negation down to the predicates.
//
// Rewrites:
//
//	NOT NOT x         → x
//	NOT (a AND b)     → NOT a OR NOT b
//	NOT (a OR b)      → NOT a AND NOT b
//	NOT p             → p with the complement operator, when one exists
//
// In the output, Not only ever wraps a Predicate whose operator has no
// complement (prefix, postfix, infix).
type NegationNormalizer struct{}

// Normalize implements Normalizer.
func (NegationNormalizer) Normalize(e Expression) Expression {
	return pushNegation(e, false)
}

func pushNegation(e Expression, negate bool) Expression {
	switch x := e.(type) {
	case nil:
		return nil
	case Predicate:
		if !negate {
			return x
		}
		if op, ok := x.Operator.Negate(); ok {
			return x.WithOperator(op)
		}
		return Not{Negated: x}
	case And:
		left := pushNegation(x.Left, negate)
		right := pushNegation(x.Right, negate)
		if negate {
			return Or{Left: left, Right: right}
		}
		return And{Left: left, Right: right}
	case Or:
		left := pushNegation(x.Left, negate)
		right := pushNegation(x.Right, negate)
		if negate {
			return And{Left: left, Right: right}
		}
		return Or{Left: left, Right: right}
	case Not:
		return pushNegation(x.Negated, !negate)
	default:
		return e
	}
}

// IsNormalized reports whether every Not in e wraps a bare Predicate.
func IsNormalized(e Expression) bool {
	switch x := e.(type) {
	case nil, Predicate:
		return true
	case And:
		return IsNormalized(x.Left) && IsNormalized(x.Right)
	case Or:
		return IsNormalized(x.Left) && IsNormalized(x.Right)
	case Not:
		_, ok := x.Negated.(Predicate)
		return ok
	default:
		return false
	}
}
