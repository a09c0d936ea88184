package metric

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/query"
	"github.com/roach88/nestq/internal/schema"
)

// Projection is an aggregate column of a query.
//
// Projections are immutable values: every operation returns a new one. The
// resolver and classifier are behavior, not data, and take no part in Equal.
type Projection struct {
	name       string
	alias      string
	expression string
	valueType  schema.ValueType
	columnType schema.ColumnType
	arguments  []query.Argument
	projected  bool

	resolver   query.Resolver
	classifier Classifier
}

var _ query.Nestable = Projection{}

// Option configures a Projection built by New.
type Option func(*Projection)

// WithAlias sets the output alias.
func WithAlias(alias string) Option {
	return func(p *Projection) { p.alias = alias }
}

// WithValueType sets the declared value type.
func WithValueType(vt schema.ValueType) Option {
	return func(p *Projection) { p.valueType = vt }
}

// WithColumnType sets the declared column type.
func WithColumnType(ct schema.ColumnType) Option {
	return func(p *Projection) { p.columnType = ct }
}

// WithArguments binds arguments. Later bindings of a name win.
func WithArguments(args ...query.Argument) Option {
	return func(p *Projection) {
		for _, a := range args {
			i := slices.IndexFunc(p.arguments, func(b query.Argument) bool { return b.Name == a.Name })
			if i >= 0 {
				p.arguments[i] = a
				continue
			}
			p.arguments = append(p.arguments, a)
		}
	}
}

// WithProjected sets whether the column is selected.
func WithProjected(projected bool) Option {
	return func(p *Projection) { p.projected = projected }
}

// WithResolver replaces the plan resolver.
func WithResolver(r query.Resolver) Option {
	return func(p *Projection) { p.resolver = r }
}

// WithClassifier replaces the nesting classifier.
func WithClassifier(c Classifier) Option {
	return func(p *Projection) { p.classifier = c }
}

// New builds a projected metric. The resolver defaults to
// query.DefaultResolver and the classifier to AggregateClassifier.
func New(name, expression string, opts ...Option) (Projection, error) {
	if strings.TrimSpace(expression) == "" {
		return Projection{}, fmt.Errorf("metric %q: empty expression", name)
	}
	p := Projection{
		name:       name,
		expression: expression,
		valueType:  schema.TypeDecimal,
		columnType: schema.ColumnFormula,
		projected:  true,
		resolver:   query.DefaultResolver{},
		classifier: AggregateClassifier{},
	}
	for _, opt := range opts {
		opt(&p)
	}
	p.arguments = query.SortArguments(p.arguments)
	return p, nil
}

// FromSchema builds a projection for a catalog metric.
func FromSchema(m schema.Metric, opts ...Option) (Projection, error) {
	base := []Option{WithValueType(m.Type)}
	return New(m.Name, m.Expression, append(base, opts...)...)
}

func (p Projection) Name() string                  { return p.name }
func (p Projection) Alias() string                 { return p.alias }
func (p Projection) SafeAlias() string             { return query.SafeAlias(p.name, p.alias) }
func (p Projection) Expression() string            { return p.expression }
func (p Projection) ValueType() schema.ValueType   { return p.valueType }
func (p Projection) ColumnType() schema.ColumnType { return p.columnType }
func (p Projection) Projected() bool               { return p.projected }

// Arguments returns the bound arguments sorted by name.
func (p Projection) Arguments() []query.Argument {
	return slices.Clone(p.arguments)
}

// Argument returns the value bound to name.
func (p Projection) Argument(name string) (ir.IRValue, bool) {
	for _, a := range p.arguments {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

func (p Projection) classify() (string, bool) {
	c := p.classifier
	if c == nil {
		c = AggregateClassifier{}
	}
	return c.Match(p.expression)
}

// CanNest reports whether the expression is a single aggregate call that
// can be re-applied over its own pre-aggregated result.
func (p Projection) CanNest() bool {
	_, ok := p.classify()
	return ok
}

// OuterQuery returns the outer-level version of p: the same aggregate over
// the inner column, e.g. SUM({{revenue}}). It is projected only when source
// has a column named like p, selected or not.
func (p Projection) OuterQuery(source query.Queryable, joinInOuter bool) (query.ColumnProjection, error) {
	keyword, ok := p.classify()
	if !ok {
		return nil, &NestingError{Metric: p.name, Expression: p.expression}
	}

	out := p
	out.arguments = slices.Clone(p.arguments)
	out.expression = keyword + "(" + schema.Ref(p.SafeAlias()) + ")"
	out.projected = false
	if source != nil {
		// Existence decides: a source column kept only for joins or
		// ordering still makes the rewrite selected.
		_, found := source.ColumnProjection(p.name)
		out.projected = found
	}
	return out, nil
}

// InnerQuery returns p unchanged as the only inner-level column.
func (p Projection) InnerQuery(source query.Queryable, joinInOuter bool) ([]query.ColumnProjection, error) {
	if !p.CanNest() {
		return nil, &NestingError{Metric: p.name, Expression: p.expression}
	}
	return []query.ColumnProjection{p}, nil
}

// Resolve delegates to the configured resolver.
func (p Projection) Resolve(q query.Query) (*query.Plan, error) {
	r := p.resolver
	if r == nil {
		r = query.DefaultResolver{}
	}
	return r.Resolve(q, p)
}

// Equal compares data fields; resolver and classifier are ignored.
func (p Projection) Equal(other Projection) bool {
	if p.name != other.name ||
		p.alias != other.alias ||
		p.expression != other.expression ||
		p.valueType != other.valueType ||
		p.columnType != other.columnType ||
		p.projected != other.projected ||
		len(p.arguments) != len(other.arguments) {
		return false
	}
	for i, a := range p.arguments {
		b := other.arguments[i]
		if a.Name != b.Name || !ir.Equal(a.Value, b.Value) {
			return false
		}
	}
	return true
}
