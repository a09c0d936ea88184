package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/nestq/internal/ir"
	"github.com/roach88/nestq/internal/query"
	"github.com/roach88/nestq/internal/schema"
)

// scope expands templated expressions for one query level.
//
// At the base level, {{$col}} reads the base table and {{field}} expands the
// field's expression. Above a nested query, {{name}} first looks for an
// inner column of that name or alias, and physical columns are out of reach.
// In both, {{join.field}} expands the joined table's field and marks the
// join as used.
type scope struct {
	catalog *schema.Catalog
	table   *schema.Table
	alias   string

	// nested is the inner query when this scope sits above it.
	nested *query.Query

	from       string
	fromParams []any

	joins map[string]bool
}

func newScope(catalog *schema.Catalog, table *schema.Table, alias string, nested *query.Query) *scope {
	return &scope{
		catalog: catalog,
		table:   table,
		alias:   alias,
		nested:  nested,
		from:    quoteIdent(table.Physical) + " AS " + quoteIdent(alias),
		joins:   make(map[string]bool),
	}
}

// expand renders expr, binding {{@name}} references to args.
func (s *scope) expand(expr string, args []query.Argument) (string, []any, error) {
	var params []any
	out, err := schema.Expand(expr, func(ref schema.Reference) (string, error) {
		switch ref.Kind {
		case schema.RefColumn:
			if s.nested != nil {
				return "", fmt.Errorf("column %s is not visible above the nested query", ref.Raw)
			}
			return column(s.alias, ref.Name), nil
		case schema.RefField:
			sql, p, err := s.field(ref.Name)
			params = append(params, p...)
			return sql, err
		case schema.RefJoin:
			return s.joinField(ref.Join, ref.Name)
		case schema.RefArgument:
			v, ok := argument(args, ref.Name)
			if !ok {
				return "", fmt.Errorf("argument %s is not bound", ref.Name)
			}
			param, err := ir.ToParam(v)
			if err != nil {
				return "", fmt.Errorf("argument %s: %w", ref.Name, err)
			}
			params = append(params, param)
			return "?", nil
		default:
			return "", fmt.Errorf("unsupported reference %s", ref.Raw)
		}
	})
	if err != nil {
		return "", nil, err
	}
	return out, params, nil
}

func argument(args []query.Argument, name string) (ir.IRValue, bool) {
	for _, a := range args {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// field renders a logical field of the scope's table.
func (s *scope) field(name string) (string, []any, error) {
	if s.nested != nil {
		for _, col := range s.nested.ColumnProjections() {
			if col.Name() == name || col.SafeAlias() == name {
				return column(s.alias, col.SafeAlias()), nil, nil
			}
		}
	}

	f, ok := s.table.Field(name)
	if !ok {
		return "", nil, fmt.Errorf("table %s has no field %q", s.table.Name, name)
	}
	if s.nested != nil && !s.catalog.RequiresJoin(s.table.Name, name) {
		return "", nil, fmt.Errorf("field %s is not selected by the nested query", name)
	}

	sql, params, err := s.expand(f.Expression, nil)
	if err != nil {
		return "", nil, fmt.Errorf("field %s: %w", name, err)
	}
	return wrap(f.Expression, sql), params, nil
}

// joinField renders a field of a joined table.
func (s *scope) joinField(joinName, fieldName string) (string, error) {
	j, ok := s.table.Join(joinName)
	if !ok {
		return "", fmt.Errorf("table %s has no join %q", s.table.Name, joinName)
	}
	target, ok := s.catalog.Table(j.Table)
	if !ok {
		return "", fmt.Errorf("join %s targets unknown table %q", joinName, j.Table)
	}
	s.joins[joinName] = true

	joined := newScope(s.catalog, target, joinAlias(s.table.Name, joinName), nil)
	sql, _, err := joined.field(fieldName)
	if err != nil {
		return "", fmt.Errorf("join %s: %w", joinName, err)
	}
	if len(joined.joins) > 0 {
		return "", fmt.Errorf("join %s: field %s needs a further join", joinName, fieldName)
	}
	return sql, nil
}

// joinClauses renders LEFT JOINs for every join used so far, by name.
func (s *scope) joinClauses() (string, error) {
	var b strings.Builder
	for _, name := range s.joinNames() {
		j, _ := s.table.Join(name)
		target, _ := s.catalog.Table(j.Table)
		key, _, err := s.field(j.From)
		if err != nil {
			return "", fmt.Errorf("join %s key: %w", name, err)
		}
		alias := joinAlias(s.table.Name, name)
		fmt.Fprintf(&b, " LEFT JOIN %s AS %s ON %s = %s",
			quoteIdent(target.Physical), quoteIdent(alias), column(alias, j.To), key)
	}
	return b.String(), nil
}

func (s *scope) joinNames() []string {
	return sortedKeys(s.joins)
}

// wrap parenthesizes an expanded field unless its template is a single
// reference.
func wrap(template, sql string) string {
	refs := schema.References(template)
	if len(refs) == 1 && strings.TrimSpace(template) == refs[0].Raw {
		return sql
	}
	return "(" + sql + ")"
}
