package query

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/nestq/internal/filter"
	"github.com/roach88/nestq/internal/ir"
)

// planNamespace scopes name-based plan IDs.
var planNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte(ir.DomainPlan))

// Plan is the result of planning a Query.
//
// A flat plan has only Outer, reading straight from the base table. A nested
// plan has Inner reading from the base table without joins and Outer
// reading from Inner.
type Plan struct {
	// ID is a name-based UUID of the canonical plan encoding.
	// Structurally equal plans share an ID.
	ID string

	Nested bool
	Inner  *Query
	Outer  *Query

	// Fallback explains why a query that needed nesting was planned flat.
	Fallback string
}

// Resolver turns a query and one of its metrics into a plan.
type Resolver interface {
	Resolve(q Query, metric ColumnProjection) (*Plan, error)
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc func(Query, ColumnProjection) (*Plan, error)

// Resolve calls f(q, metric).
func (f ResolverFunc) Resolve(q Query, metric ColumnProjection) (*Plan, error) {
	return f(q, metric)
}

// DefaultResolver plans the metric flat over the query's source, keeping the
// query's dimensions and filter.
type DefaultResolver struct{}

// Resolve implements Resolver.
func (DefaultResolver) Resolve(q Query, metric ColumnProjection) (*Plan, error) {
	return NewFlatPlan(Query{
		From:       q.From,
		Metrics:    []ColumnProjection{metric},
		Dimensions: q.Dimensions,
		Where:      q.Where,
	})
}

// NewFlatPlan builds a single-level plan and assigns its ID.
func NewFlatPlan(q Query) (*Plan, error) {
	p := &Plan{Outer: &q}
	return p, p.assignID()
}

// NewFallbackPlan builds a flat plan for a query that needed nesting but
// could not get it, recording why.
func NewFallbackPlan(q Query, reason string) (*Plan, error) {
	p := &Plan{Outer: &q, Fallback: reason}
	return p, p.assignID()
}

// NewNestedPlan builds a two-level plan and assigns its ID.
// outer.From is replaced with inner.
func NewNestedPlan(inner, outer Query) (*Plan, error) {
	outer.From = inner
	p := &Plan{Nested: true, Inner: &inner, Outer: &outer}
	return p, p.assignID()
}

func (p *Plan) assignID() error {
	data, err := ir.MarshalCanonical(p.Encode())
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	p.ID = uuid.NewSHA1(planNamespace, data).String()
	return nil
}

// Encode converts p into a canonical document for hashing and snapshots.
// The ID itself is not part of the document.
func (p *Plan) Encode() map[string]any {
	doc := map[string]any{
		"nested": p.Nested,
		"outer":  EncodeQuery(p.Outer),
	}
	if p.Inner != nil {
		doc["inner"] = EncodeQuery(p.Inner)
	}
	if p.Fallback != "" {
		doc["fallback"] = p.Fallback
	}
	return doc
}

// EncodeQuery converts q into a canonical document.
func EncodeQuery(q *Query) map[string]any {
	if q == nil {
		return map[string]any{}
	}
	doc := map[string]any{
		"from":       sourceName(q.From),
		"dimensions": encodeColumns(q.Dimensions),
		"metrics":    encodeColumns(q.Metrics),
	}
	if q.Where != nil {
		doc["where"] = filter.Encode(q.Where)
	}
	return doc
}

func sourceName(src Queryable) string {
	switch s := src.(type) {
	case nil:
		return ""
	case Table:
		return s.Name()
	default:
		return "(" + s.Name() + ")"
	}
}

func encodeColumns(cols []ColumnProjection) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		doc := map[string]any{
			"name":       c.Name(),
			"alias":      c.SafeAlias(),
			"expression": c.Expression(),
			"type":       string(c.ValueType()),
			"projected":  c.Projected(),
		}
		if args := c.Arguments(); len(args) > 0 {
			obj := make(ir.IRObject, len(args))
			for _, a := range args {
				obj[a.Name] = a.Value
			}
			doc["arguments"] = obj
		}
		out[i] = doc
	}
	return out
}
