package filter

import (
	"fmt"
	"strings"

	"github.com/roach88/nestq/internal/ir"
)

// String renders e in an infix, SQL-like form for logs and diagnostics.
// Nil renders as "TRUE".
func String(e Expression) string {
	switch x := e.(type) {
	case nil:
		return "TRUE"
	case Predicate:
		return x.String()
	case And:
		return "(" + String(x.Left) + " AND " + String(x.Right) + ")"
	case Or:
		return "(" + String(x.Left) + " OR " + String(x.Right) + ")"
	case Not:
		return "NOT " + String(x.Negated)
	default:
		return fmt.Sprintf("<%T>", e)
	}
}

// String implements fmt.Stringer.
func (p Predicate) String() string {
	name := p.Field
	if p.Table != "" {
		name = p.Table + "." + p.Field
	}
	if len(p.Values) == 0 {
		return name + " " + string(p.Operator)
	}
	parts := make([]string, len(p.Values))
	for i, v := range p.Values {
		parts[i] = ir.Format(v)
	}
	return name + " " + string(p.Operator) + " (" + strings.Join(parts, ", ") + ")"
}

func (a And) String() string { return String(a) }
func (o Or) String() string  { return String(o) }
func (n Not) String() string { return String(n) }

// Encode converts e into the document shape accepted by Parse, suitable for
// ir.MarshalCanonical. Nil encodes as nil.
//
// Shapes:
//
//	{"table": t, "field": f, "op": o, "values": [...]}
//	{"and": [l, r]}
//	{"or": [l, r]}
//	{"not": x}
func Encode(e Expression) any {
	switch x := e.(type) {
	case nil:
		return nil
	case Predicate:
		values := make([]any, len(x.Values))
		for i, v := range x.Values {
			values[i] = v
		}
		doc := map[string]any{
			"field":  x.Field,
			"op":     string(x.Operator),
			"values": values,
		}
		if x.Table != "" {
			doc["table"] = x.Table
		}
		return doc
	case And:
		return map[string]any{"and": []any{Encode(x.Left), Encode(x.Right)}}
	case Or:
		return map[string]any{"or": []any{Encode(x.Left), Encode(x.Right)}}
	case Not:
		return map[string]any{"not": Encode(x.Negated)}
	default:
		return nil
	}
}

// Hash returns the content-addressed identity of e.
// Structurally equal expressions hash equal.
func Hash(e Expression) (string, error) {
	if e == nil {
		return ir.Hash(ir.DomainFilter, map[string]any{})
	}
	return ir.Hash(ir.DomainFilter, Encode(e))
}
