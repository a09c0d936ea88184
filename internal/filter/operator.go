package filter

import "strings"

// Operator is a predicate comparison operator.
type Operator string

const (
	OpIn         Operator = "in"
	OpNotIn      Operator = "notin"
	OpPrefix     Operator = "prefix"
	OpPostfix    Operator = "postfix"
	OpInfix      Operator = "infix"
	OpIsNull     Operator = "isnull"
	OpNotNull    Operator = "notnull"
	OpLT         Operator = "lt"
	OpLE         Operator = "le"
	OpGT         Operator = "gt"
	OpGE         Operator = "ge"
	OpBetween    Operator = "between"
	OpNotBetween Operator = "notbetween"
	OpTrue       Operator = "true"
	OpFalse      Operator = "false"
)

// Arity describes how many values an operator takes.
type Arity int

const (
	// ArityNone operators take no values (isnull, true).
	ArityNone Arity = iota
	// ArityOne operators take exactly one value (lt, prefix).
	ArityOne
	// ArityTwo operators take exactly two values (between).
	ArityTwo
	// ArityMany operators take one or more values (in).
	ArityMany
)

type operatorInfo struct {
	arity  Arity
	negate Operator
}

var operators = map[Operator]operatorInfo{
	OpIn:         {arity: ArityMany, negate: OpNotIn},
	OpNotIn:      {arity: ArityMany, negate: OpIn},
	OpPrefix:     {arity: ArityOne},
	OpPostfix:    {arity: ArityOne},
	OpInfix:      {arity: ArityOne},
	OpIsNull:     {arity: ArityNone, negate: OpNotNull},
	OpNotNull:    {arity: ArityNone, negate: OpIsNull},
	OpLT:         {arity: ArityOne, negate: OpGE},
	OpLE:         {arity: ArityOne, negate: OpGT},
	OpGT:         {arity: ArityOne, negate: OpLE},
	OpGE:         {arity: ArityOne, negate: OpLT},
	OpBetween:    {arity: ArityTwo, negate: OpNotBetween},
	OpNotBetween: {arity: ArityTwo, negate: OpBetween},
	OpTrue:       {arity: ArityNone, negate: OpFalse},
	OpFalse:      {arity: ArityNone, negate: OpTrue},
}

// ParseOperator looks up an operator by name, case-insensitively.
func ParseOperator(s string) (Operator, bool) {
	op := Operator(strings.ToLower(strings.TrimSpace(s)))
	_, ok := operators[op]
	return op, ok
}

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	_, ok := operators[op]
	return ok
}

// Arity returns the number of values op expects.
func (op Operator) Arity() Arity {
	return operators[op].arity
}

// Negate returns the complement operator, if op has one.
// The pattern-match operators (prefix, postfix, infix) have no complement
// and stay wrapped in Not after normalization.
func (op Operator) Negate() (Operator, bool) {
	info, ok := operators[op]
	if !ok || info.negate == "" {
		return "", false
	}
	return info.negate, true
}
