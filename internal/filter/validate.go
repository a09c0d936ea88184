package filter

import (
	"errors"
	"fmt"

	"github.com/roach88/nestq/internal/ir"
)

// Validate checks that every node of e is well formed:
//  1. No nil children inside And, Or, or Not
//  2. Predicates name a field and use a known operator
//  3. Predicate value counts match the operator arity
//  4. Values are scalars
//
// A nil expression is valid (no filter). All problems are reported, joined
// with errors.Join, in left-to-right order.
//
// Validate is a pure function with no side effects.
func Validate(e Expression) error {
	v := &validator{}
	v.validate(e, "")
	return errors.Join(v.errs...)
}

// validator accumulates problems during traversal.
type validator struct {
	errs []error
}

func (v *validator) addf(path, format string, args ...any) {
	if path == "" {
		path = "filter"
	}
	v.errs = append(v.errs, fmt.Errorf("%s: %s", path, fmt.Sprintf(format, args...)))
}

func (v *validator) validate(e Expression, path string) {
	switch x := e.(type) {
	case nil:
		if path != "" {
			v.addf(path, "missing operand")
		}
	case Predicate:
		if err := validatePredicate(x); err != nil {
			v.addf(path, "%v", err)
		}
	case And:
		v.validate(x.Left, joinPath(path, "and[0]"))
		v.validate(x.Right, joinPath(path, "and[1]"))
	case Or:
		v.validate(x.Left, joinPath(path, "or[0]"))
		v.validate(x.Right, joinPath(path, "or[1]"))
	case Not:
		v.validate(x.Negated, joinPath(path, "not"))
	default:
		v.addf(path, "unknown expression type %T", e)
	}
}

// validatePredicate checks a single predicate.
func validatePredicate(p Predicate) error {
	if p.Field == "" {
		return fmt.Errorf("predicate requires a field")
	}
	if !p.Operator.Valid() {
		return fmt.Errorf("unknown operator %q on field %q", p.Operator, p.Field)
	}

	n := len(p.Values)
	switch p.Operator.Arity() {
	case ArityNone:
		if n != 0 {
			return fmt.Errorf("operator %q takes no values, got %d", p.Operator, n)
		}
	case ArityOne:
		if n != 1 {
			return fmt.Errorf("operator %q takes exactly one value, got %d", p.Operator, n)
		}
	case ArityTwo:
		if n != 2 {
			return fmt.Errorf("operator %q takes exactly two values, got %d", p.Operator, n)
		}
	case ArityMany:
		if n == 0 {
			return fmt.Errorf("operator %q takes at least one value", p.Operator)
		}
	}

	for i, val := range p.Values {
		switch val.(type) {
		case ir.IRString, ir.IRInt, ir.IRBool, ir.IRDecimal:
		case nil:
			return fmt.Errorf("value %d of field %q is missing", i, p.Field)
		default:
			return fmt.Errorf("value %d of field %q must be a scalar, got %T", i, p.Field, val)
		}
	}
	return nil
}
