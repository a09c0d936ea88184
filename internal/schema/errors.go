package schema

import "fmt"

// SchemaError reports a problem with a table definition.
type SchemaError struct {
	// Code identifies the error category.
	Code SchemaErrorCode

	// Table and Field locate the problem; Field may be empty.
	Table string
	Field string

	// Message is a human-readable description.
	Message string
}

// SchemaErrorCode categorizes schema errors.
type SchemaErrorCode string

const (
	// ErrCodeUnknownTable indicates a join targets an undeclared table.
	ErrCodeUnknownTable SchemaErrorCode = "UNKNOWN_TABLE"

	// ErrCodeUnknownField indicates a reference to an undeclared field.
	ErrCodeUnknownField SchemaErrorCode = "UNKNOWN_FIELD"

	// ErrCodeUnknownJoin indicates a {{join.name}} reference to an undeclared join.
	ErrCodeUnknownJoin SchemaErrorCode = "UNKNOWN_JOIN"

	// ErrCodeReferenceCycle indicates fields that reference each other.
	ErrCodeReferenceCycle SchemaErrorCode = "REFERENCE_CYCLE"

	// ErrCodeMultiHopJoin indicates a joined field that itself needs a join.
	ErrCodeMultiHopJoin SchemaErrorCode = "MULTI_HOP_JOIN"

	// ErrCodeEmptyExpression indicates a metric without an expression.
	ErrCodeEmptyExpression SchemaErrorCode = "EMPTY_EXPRESSION"

	// ErrCodeMixedReference indicates a field that needs a join but also
	// reads a physical column directly. Such a field cannot be computed
	// above a nested query, where only logical columns are visible.
	ErrCodeMixedReference SchemaErrorCode = "MIXED_REFERENCE"

	// ErrCodeDuplicateName indicates two declarations with one name.
	ErrCodeDuplicateName SchemaErrorCode = "DUPLICATE_NAME"
)

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (table=%s, field=%s)", e.Code, e.Message, e.Table, e.Field)
	}
	if e.Table != "" {
		return fmt.Sprintf("%s: %s (table=%s)", e.Code, e.Message, e.Table)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HasCode reports whether err contains a SchemaError with the given code.
// Errors joined with errors.Join are searched too.
func HasCode(err error, code SchemaErrorCode) bool {
	for _, se := range Errors(err) {
		if se.Code == code {
			return true
		}
	}
	return false
}

// Errors flattens err into its SchemaErrors, looking through wrapping
// and errors.Join.
func Errors(err error) []*SchemaError {
	switch e := err.(type) {
	case nil:
		return nil
	case *SchemaError:
		return []*SchemaError{e}
	case interface{ Unwrap() []error }:
		var out []*SchemaError
		for _, inner := range e.Unwrap() {
			out = append(out, Errors(inner)...)
		}
		return out
	case interface{ Unwrap() error }:
		return Errors(e.Unwrap())
	}
	return nil
}

func newError(code SchemaErrorCode, table, field, format string, args ...any) *SchemaError {
	return &SchemaError{
		Code:    code,
		Table:   table,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}
