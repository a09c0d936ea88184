package plan

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/nestq/internal/filter"
	"github.com/roach88/nestq/internal/metric"
	"github.com/roach88/nestq/internal/query"
	"github.com/roach88/nestq/internal/schema"
	"github.com/roach88/nestq/internal/split"
)

// Assembler turns queries over a catalog into plans.
//
// An Assembler is safe for concurrent use.
type Assembler struct {
	Catalog *schema.Catalog

	// Logger receives plan decisions at debug level; nil means slog.Default().
	Logger *slog.Logger

	// Normalizer runs before splitting; nil means filter.NegationNormalizer.
	Normalizer filter.Normalizer

	// Checked makes splitting fail with split.ErrMixedNegation instead of
	// negating a subtree that spans both levels.
	Checked bool
}

// New creates an Assembler over catalog.
func New(catalog *schema.Catalog, logger *slog.Logger) *Assembler {
	return &Assembler{Catalog: catalog, Logger: logger}
}

func (a *Assembler) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

func (a *Assembler) splitter() *split.Splitter {
	s := split.New(a.Catalog, a.Catalog)
	s.Normalizer = a.Normalizer
	return s
}

// Split partitions f for queries over the catalog.
func (a *Assembler) Split(f filter.Expression) (split.Result, error) {
	s := a.splitter()
	if a.Checked {
		return s.SplitChecked(f)
	}
	return s.Split(f), nil
}

// Resolve plans q restricted to a single metric. It lets an Assembler serve
// as a metric's query.Resolver.
func (a *Assembler) Resolve(q query.Query, m query.ColumnProjection) (*query.Plan, error) {
	q.Metrics = []query.ColumnProjection{m}
	return a.Assemble(q)
}

// Assemble plans q.
//
// The plan is nested when the outer split of the filter is non-empty or a
// dimension needs a join. A nested plan reads the base table without joins
// in Inner, with the join-free part of the filter; Outer reads Inner,
// performs the joins, applies the rest of the filter, and re-aggregates.
//
// If a metric cannot nest the plan falls back to flat and Plan.Fallback
// says why. That is not an error.
func (a *Assembler) Assemble(q query.Query) (*query.Plan, error) {
	base, ok := q.From.(query.Table)
	if !ok {
		return nil, fmt.Errorf("assemble: query must read a base table, got %T", q.From)
	}
	table := base.Name()
	log := a.logger().With("table", table)

	parts, err := a.Split(q.Where)
	if err != nil {
		return nil, fmt.Errorf("assemble %s: %w", table, err)
	}

	var joinDims []string
	for _, d := range q.Dimensions {
		if len(a.Catalog.ExpressionJoins(table, d.Expression())) > 0 {
			joinDims = append(joinDims, d.Name())
		}
	}

	if parts.Outer == nil && len(joinDims) == 0 {
		log.Debug("flat plan", "reason", "no joins needed", "filter", filter.String(q.Where))
		return query.NewFlatPlan(q)
	}

	inner, outer, reason, err := a.nest(q, table, parts)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		log.Debug("flat plan", "reason", reason)
		return query.NewFallbackPlan(q, reason)
	}

	p, err := query.NewNestedPlan(inner, outer)
	if err != nil {
		return nil, err
	}
	log.Debug("nested plan",
		"id", p.ID,
		"inner_filter", filter.String(parts.Inner),
		"outer_filter", filter.String(parts.Outer),
		"join_dimensions", joinDims,
	)
	return p, nil
}

// nest builds both levels. A non-empty reason means nesting is impossible
// and the caller must plan flat.
func (a *Assembler) nest(q query.Query, table string, parts split.Result) (inner, outer query.Query, reason string, err error) {
	inner = query.Query{From: q.From, Where: parts.Inner}
	outer = query.Query{Where: parts.Outer}

	for _, m := range q.Metrics {
		n, ok := m.(query.Nestable)
		if !ok {
			return inner, outer, fmt.Sprintf("metric %s cannot nest", m.Name()), nil
		}
		if joins := a.Catalog.ExpressionJoins(table, m.Expression()); len(joins) > 0 {
			return inner, outer, fmt.Sprintf("metric %s needs joins %v", m.Name(), joins), nil
		}

		innerCols, err := n.InnerQuery(q, true)
		if errors.Is(err, metric.ErrUnsupportedNesting) {
			return inner, outer, err.Error(), nil
		}
		if err != nil {
			return inner, outer, "", fmt.Errorf("metric %s: %w", m.Name(), err)
		}
		outerCol, err := n.OuterQuery(q, true)
		if errors.Is(err, metric.ErrUnsupportedNesting) {
			return inner, outer, err.Error(), nil
		}
		if err != nil {
			return inner, outer, "", fmt.Errorf("metric %s: %w", m.Name(), err)
		}
		if strings.HasPrefix(outerCol.Expression(), "COUNT(") {
			a.logger().Debug("count re-aggregates inner groups",
				"table", table, "metric", m.Name(), "expression", outerCol.Expression())
		}
		inner.Metrics = append(inner.Metrics, innerCols...)
		outer.Metrics = append(outer.Metrics, outerCol)
	}

	dims := newDimensionSet()
	for _, d := range q.Dimensions {
		if len(a.Catalog.ExpressionJoins(table, d.Expression())) > 0 {
			outer.Dimensions = append(outer.Dimensions, d)
			dims.addHelpers(a.Catalog, table, d.Expression())
			continue
		}
		dims.add(d)
		// The inner query computed it; the outer one groups by the result.
		if qd, ok := d.(query.Dimension); ok {
			outer.Dimensions = append(outer.Dimensions, qd.WithExpression(schema.Ref(d.SafeAlias())))
		} else {
			outer.Dimensions = append(outer.Dimensions,
				query.NewDimension(d.Name(), schema.Ref(d.SafeAlias()), d.ValueType()).
					WithAlias(d.Alias()).
					WithProjected(d.Projected()))
		}
	}

	// Outer predicates read local fields from the inner result.
	for _, ref := range filter.Fields(parts.Outer) {
		if ref.Table != table {
			continue
		}
		dims.addHelpers(a.Catalog, table, schema.Ref(ref.Field))
	}

	inner.Dimensions = dims.resolve(a.Catalog, table)
	return inner, outer, "", nil
}

// dimensionSet collects inner dimensions in order without duplicates.
// Requested dimensions are kept as given; helpers are added by field name
// and are not projected.
type dimensionSet struct {
	cols    []query.ColumnProjection
	helpers []string
	seen    map[string]bool
}

func newDimensionSet() *dimensionSet {
	return &dimensionSet{seen: make(map[string]bool)}
}

func (s *dimensionSet) add(d query.ColumnProjection) {
	if s.seen[d.Name()] {
		return
	}
	s.seen[d.Name()] = true
	s.cols = append(s.cols, d)
}

func (s *dimensionSet) addHelpers(c *schema.Catalog, table, expr string) {
	s.helpers = append(s.helpers, c.LocalDependencies(table, expr)...)
}

func (s *dimensionSet) resolve(c *schema.Catalog, table string) []query.ColumnProjection {
	t, _ := c.Table(table)
	for _, name := range s.helpers {
		if s.seen[name] {
			continue
		}
		f, ok := t.Field(name)
		if !ok {
			continue
		}
		s.seen[name] = true
		s.cols = append(s.cols, query.FieldDimension(f).WithProjected(false))
	}
	return s.cols
}
