package schema

import (
	"errors"
	"slices"
)

// Catalog is a validated, read-only set of tables.
type Catalog struct {
	tables map[string]*Table
	names  []string

	// joins caches ResolvedJoins for every field and metric.
	joins map[columnKey][]string
}

type columnKey struct {
	table string
	name  string
}

// New validates tables and builds a Catalog.
//
// Defaults are applied first: Physical falls back to Name, a field without
// an expression reads the physical column of the same name, and an empty
// type means TEXT. All validation problems are returned joined; each is a
// *SchemaError.
func New(tables ...Table) (*Catalog, error) {
	c := &Catalog{
		tables: make(map[string]*Table, len(tables)),
		joins:  make(map[columnKey][]string),
	}

	var errs []error
	for _, t := range tables {
		t := withDefaults(t)
		if _, dup := c.tables[t.Name]; dup {
			errs = append(errs, newError(ErrCodeDuplicateName, t.Name, "", "table declared twice"))
			continue
		}
		c.tables[t.Name] = &t
		c.names = append(c.names, t.Name)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNew is New for fixtures; it panics on error.
func MustNew(tables ...Table) *Catalog {
	c, err := New(tables...)
	if err != nil {
		panic(err)
	}
	return c
}

func withDefaults(t Table) Table {
	if t.Physical == "" {
		t.Physical = t.Name
	}
	t.Fields = slices.Clone(t.Fields)
	for i := range t.Fields {
		f := &t.Fields[i]
		if f.Type == "" {
			f.Type = TypeText
		}
		if f.Expression == "" {
			f.Expression = "{{$" + f.Name + "}}"
		}
	}
	t.Metrics = slices.Clone(t.Metrics)
	for i := range t.Metrics {
		if t.Metrics[i].Type == "" {
			t.Metrics[i].Type = TypeDecimal
		}
	}
	t.Joins = slices.Clone(t.Joins)
	return t
}

// Table returns the named table. The result must not be modified.
func (c *Catalog) Table(name string) (*Table, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// Tables returns table names in declaration order.
func (c *Catalog) Tables() []string {
	return slices.Clone(c.names)
}

// ResolveTable maps a predicate entity to a table name.
func (c *Catalog) ResolveTable(entity string) (string, bool) {
	if _, ok := c.tables[entity]; !ok {
		return "", false
	}
	return entity, true
}

// ResolvedJoins returns the sorted names of the joins needed to compute the
// named field or metric of table. Unknown names need no joins.
func (c *Catalog) ResolvedJoins(table, name string) []string {
	return slices.Clone(c.joins[columnKey{table, name}])
}

// RequiresJoin reports whether the named column needs at least one join.
func (c *Catalog) RequiresJoin(table, name string) bool {
	return len(c.joins[columnKey{table, name}]) > 0
}

// ExpressionJoins returns the sorted join names needed by an ad hoc
// expression evaluated in the scope of table.
func (c *Catalog) ExpressionJoins(table, expr string) []string {
	var out []string
	for _, ref := range References(expr) {
		switch ref.Kind {
		case RefField:
			out = append(out, c.joins[columnKey{table, ref.Name}]...)
		case RefJoin:
			out = append(out, ref.Join)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// LocalDependencies returns the join-free fields of table that an
// expression needs when it is evaluated above a nested query: every
// join-free field it references, the join keys of every join it crosses,
// and the same for the join-dependent fields it references. Names are in
// first-seen order.
func (c *Catalog) LocalDependencies(table, expr string) []string {
	t, ok := c.tables[table]
	if !ok {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	var walk func(expr string)
	walk = func(expr string) {
		for _, ref := range References(expr) {
			switch ref.Kind {
			case RefField:
				if !c.RequiresJoin(table, ref.Name) {
					add(ref.Name)
					continue
				}
				f, _ := t.Field(ref.Name)
				walk(f.Expression)
			case RefJoin:
				if j, ok := t.Join(ref.Join); ok {
					add(j.From)
				}
			}
		}
	}
	walk(expr)
	return out
}
