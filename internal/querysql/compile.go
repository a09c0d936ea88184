package querysql

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/nestq/internal/filter"
	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/query"
	"github.com/roach88/nestq/internal/schema"
)

// NestedAlias is the alias of the inner query inside the outer one.
const NestedAlias = "nested"

// SQLCompiler compiles query plans to parameterized SQL for SQLite.
//
// All values are parameterized, never interpolated. Every top-level query
// with dimensions ends in ORDER BY over them, so results are deterministic.
// Dimensions group by output position.
type SQLCompiler struct {
	Catalog *schema.Catalog
}

// NewSQLCompiler creates a compiler that expands templates through catalog.
func NewSQLCompiler(catalog *schema.Catalog) *SQLCompiler {
	return &SQLCompiler{Catalog: catalog}
}

// Compile converts a plan to SQL. Returns (sql, params, error).
//
// A flat plan compiles to one SELECT over the base table and its joins.
// A nested plan compiles the inner query into a subquery aliased "nested";
// the outer query joins against it and reads inner columns as
// "nested"."<alias>".
func (c *SQLCompiler) Compile(p *query.Plan) (string, []any, error) {
	if p == nil || p.Outer == nil {
		return "", nil, fmt.Errorf("cannot compile empty plan")
	}
	if !p.Nested {
		return c.CompileQuery(p.Outer)
	}
	if p.Inner == nil {
		return "", nil, fmt.Errorf("nested plan has no inner query")
	}

	base, err := c.baseTable(p.Inner)
	if err != nil {
		return "", nil, err
	}

	innerScope := newScope(c.Catalog, base, base.Name, nil)
	innerSQL, innerParams, err := c.compileSelect(p.Inner, innerScope, true)
	if err != nil {
		return "", nil, fmt.Errorf("compile inner query: %w", err)
	}
	if len(innerScope.joins) > 0 {
		return "", nil, fmt.Errorf("compile inner query: needs joins %v", innerScope.joinNames())
	}

	outerScope := newScope(c.Catalog, base, NestedAlias, p.Inner)
	outerScope.from = "(" + innerSQL + ") AS " + quoteIdent(NestedAlias)
	outerScope.fromParams = innerParams
	sql, params, err := c.compileSelect(p.Outer, outerScope, false)
	if err != nil {
		return "", nil, fmt.Errorf("compile outer query: %w", err)
	}
	return sql, params, nil
}

// CompileQuery compiles a single-level query over a base table.
func (c *SQLCompiler) CompileQuery(q *query.Query) (string, []any, error) {
	base, err := c.baseTable(q)
	if err != nil {
		return "", nil, err
	}
	return c.compileSelect(q, newScope(c.Catalog, base, base.Name, nil), false)
}

func (c *SQLCompiler) baseTable(q *query.Query) (*schema.Table, error) {
	src, ok := q.From.(query.Table)
	if !ok {
		return nil, fmt.Errorf("query must read a base table, got %T", q.From)
	}
	t, ok := c.Catalog.Table(src.Name())
	if !ok {
		return nil, fmt.Errorf("unknown table %q", src.Name())
	}
	return t, nil
}

// compileSelect renders q in scope s. Inner queries select every column so
// the outer level can read them; other queries select projected ones only.
func (c *SQLCompiler) compileSelect(q *query.Query, s *scope, inner bool) (string, []any, error) {
	var (
		selects      []string
		selectParams []any
		groups       []string
		groupParams  []any
		orders       []string
	)

	for _, d := range q.Dimensions {
		expr, params, err := s.expand(d.Expression(), d.Arguments())
		if err != nil {
			return "", nil, fmt.Errorf("dimension %s: %w", d.Name(), err)
		}
		if inner || d.Projected() {
			selects = append(selects, expr+" AS "+quoteIdent(d.SafeAlias()))
			selectParams = append(selectParams, params...)
			pos := strconv.Itoa(len(selects))
			groups = append(groups, pos)
			orders = append(orders, pos)
			continue
		}
		groups = append(groups, expr)
		groupParams = append(groupParams, params...)
	}

	for _, m := range q.Metrics {
		if !inner && !m.Projected() {
			continue
		}
		expr, params, err := s.expand(m.Expression(), m.Arguments())
		if err != nil {
			return "", nil, fmt.Errorf("metric %s: %w", m.Name(), err)
		}
		selects = append(selects, expr+" AS "+quoteIdent(m.SafeAlias()))
		selectParams = append(selectParams, params...)
	}

	if len(selects) == 0 {
		return "", nil, fmt.Errorf("query selects no columns")
	}

	var whereSQL string
	var whereParams []any
	if q.Where != nil {
		sql, params, err := s.compilePredicate(q.Where)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		whereSQL = " WHERE " + sql
		whereParams = params
	}

	joinSQL, err := s.joinClauses()
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(selects, ", "))
	b.WriteString(" FROM ")
	b.WriteString(s.from)
	b.WriteString(joinSQL)
	b.WriteString(whereSQL)
	if len(groups) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(groups, ", "))
	}
	if !inner && len(orders) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(orders, ", "))
	}

	params := make([]any, 0, len(selectParams)+len(s.fromParams)+len(whereParams)+len(groupParams))
	params = append(params, selectParams...)
	params = append(params, s.fromParams...)
	params = append(params, whereParams...)
	params = append(params, groupParams...)
	return b.String(), params, nil
}

// compilePredicate compiles a filter to a WHERE clause fragment.
// Values are never interpolated: they always become ? placeholders.
func (s *scope) compilePredicate(e filter.Expression) (string, []any, error) {
	switch x := e.(type) {
	case nil:
		return "1 = 1", nil, nil
	case filter.Predicate:
		return s.compileComparison(x)
	case filter.And:
		return s.compileBinary("AND", x.Left, x.Right)
	case filter.Or:
		return s.compileBinary("OR", x.Left, x.Right)
	case filter.Not:
		sql, params, err := s.compilePredicate(x.Negated)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + sql + ")", params, nil
	default:
		return "", nil, fmt.Errorf("unsupported filter type: %T", e)
	}
}

func (s *scope) compileBinary(op string, left, right filter.Expression) (string, []any, error) {
	l, lp, err := s.compilePredicate(left)
	if err != nil {
		return "", nil, err
	}
	r, rp, err := s.compilePredicate(right)
	if err != nil {
		return "", nil, err
	}
	return "(" + l + " " + op + " " + r + ")", append(lp, rp...), nil
}

func (s *scope) compileComparison(p filter.Predicate) (string, []any, error) {
	if err := filter.Validate(p); err != nil {
		return "", nil, err
	}
	col, _, err := s.field(p.Field)
	if err != nil {
		return "", nil, err
	}

	params := make([]any, len(p.Values))
	for i, v := range p.Values {
		param, err := ir.ToParam(v)
		if err != nil {
			return "", nil, fmt.Errorf("convert value: %w", err)
		}
		params[i] = param
	}

	switch p.Operator {
	case filter.OpIn, filter.OpNotIn:
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(params)), ", ")
		op := " IN ("
		if p.Operator == filter.OpNotIn {
			op = " NOT IN ("
		}
		return col + op + marks + ")", params, nil
	case filter.OpPrefix, filter.OpPostfix, filter.OpInfix:
		pattern, ok := params[0].(string)
		if !ok {
			return "", nil, fmt.Errorf("operator %s needs a string value", p.Operator)
		}
		pattern = escapeLike(pattern)
		switch p.Operator {
		case filter.OpPrefix:
			pattern += "%"
		case filter.OpPostfix:
			pattern = "%" + pattern
		default:
			pattern = "%" + pattern + "%"
		}
		return col + ` LIKE ? ESCAPE '\'`, []any{pattern}, nil
	case filter.OpIsNull:
		return col + " IS NULL", nil, nil
	case filter.OpNotNull:
		return col + " IS NOT NULL", nil, nil
	case filter.OpLT:
		return col + " < ?", params, nil
	case filter.OpLE:
		return col + " <= ?", params, nil
	case filter.OpGT:
		return col + " > ?", params, nil
	case filter.OpGE:
		return col + " >= ?", params, nil
	case filter.OpBetween:
		return col + " BETWEEN ? AND ?", params, nil
	case filter.OpNotBetween:
		return col + " NOT BETWEEN ? AND ?", params, nil
	case filter.OpTrue:
		return "1 = 1", nil, nil
	case filter.OpFalse:
		return "1 = 0", nil, nil
	default:
		return "", nil, fmt.Errorf("unsupported operator: %s", p.Operator)
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// quoteIdent quotes a SQL identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func column(alias, name string) string {
	return quoteIdent(alias) + "." + quoteIdent(name)
}

// joinAlias names the joined table inside the query.
func joinAlias(table, join string) string {
	return table + "_" + join
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
