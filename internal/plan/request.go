package plan

import (
	"errors"
	"fmt"

	"github.com/roach88/nestq/internal/filter"
	"github.com/roach88/nestq/internal/metric"
	"github.com/roach88/nestq/internal/query"
)

// ErrInvalidRequest marks requests that name unknown tables or columns.
var ErrInvalidRequest = errors.New("invalid request")

// Request names the columns of a query over one catalog table.
type Request struct {
	Table      string
	Metrics    []string
	Dimensions []string
	Filter     filter.Expression

	// Arguments are bound to every requested metric.
	Arguments []query.Argument
}

// Build resolves req against the catalog.
//
// Every name must exist, and every filter predicate must name a field of
// req.Table; a predicate without a table is taken to mean req.Table.
func (a *Assembler) Build(req Request) (query.Query, error) {
	t, ok := a.Catalog.Table(req.Table)
	if !ok {
		return query.Query{}, fmt.Errorf("%w: unknown table %q", ErrInvalidRequest, req.Table)
	}
	if len(req.Metrics) == 0 && len(req.Dimensions) == 0 {
		return query.Query{}, fmt.Errorf("%w: no metrics or dimensions requested", ErrInvalidRequest)
	}

	q := query.Query{From: query.NewTable(t)}
	for _, name := range req.Dimensions {
		col, ok := q.From.ColumnProjection(name)
		if !ok {
			return query.Query{}, fmt.Errorf("%w: %s has no field %q", ErrInvalidRequest, req.Table, name)
		}
		q.Dimensions = append(q.Dimensions, col)
	}
	for _, name := range req.Metrics {
		m, ok := t.Metric(name)
		if !ok {
			return query.Query{}, fmt.Errorf("%w: %s has no metric %q", ErrInvalidRequest, req.Table, name)
		}
		p, err := metric.FromSchema(m, metric.WithArguments(req.Arguments...))
		if err != nil {
			return query.Query{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		q.Metrics = append(q.Metrics, p)
	}

	where, err := a.bindFilter(req.Table, req.Filter)
	if err != nil {
		return query.Query{}, err
	}
	q.Where = where
	return q, nil
}

// bindFilter checks that f only names fields of table.
func (a *Assembler) bindFilter(table string, f filter.Expression) (filter.Expression, error) {
	if f == nil {
		return nil, nil
	}
	if err := filter.Validate(f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	t, _ := a.Catalog.Table(table)

	var errs []error
	bound := rewriteTables(f, table)
	filter.Walk(bound, func(p filter.Predicate) {
		if p.Table != table {
			errs = append(errs, fmt.Errorf("%w: predicate %s names table %q, not %q", ErrInvalidRequest, p, p.Table, table))
			return
		}
		if _, ok := t.Field(p.Field); !ok {
			errs = append(errs, fmt.Errorf("%w: %s has no field %q", ErrInvalidRequest, table, p.Field))
		}
	})
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return bound, nil
}

// rewriteTables fills in table on predicates that have none.
func rewriteTables(e filter.Expression, table string) filter.Expression {
	switch x := e.(type) {
	case filter.Predicate:
		if x.Table == "" {
			x.Table = table
		}
		return x
	case filter.And:
		return filter.And{Left: rewriteTables(x.Left, table), Right: rewriteTables(x.Right, table)}
	case filter.Or:
		return filter.Or{Left: rewriteTables(x.Left, table), Right: rewriteTables(x.Right, table)}
	case filter.Not:
		return filter.Not{Negated: rewriteTables(x.Negated, table)}
	default:
		return e
	}
}

// Plan builds and assembles req.
func (a *Assembler) Plan(req Request) (*query.Plan, error) {
	q, err := a.Build(req)
	if err != nil {
		return nil, err
	}
	return a.Assemble(q)
}
