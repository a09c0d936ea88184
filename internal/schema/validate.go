package schema

import (
	"errors"
	"slices"
	"strings"
)

// validate checks references, then resolves joins, then checks join depth.
// Each phase only runs when the previous one found nothing, because cycle
// detection needs known references and the depth check needs join sets.
func (c *Catalog) validate() error {
	var errs []error
	for _, name := range c.names {
		errs = append(errs, c.checkTable(c.tables[name])...)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for _, name := range c.names {
		errs = append(errs, c.resolveTable(c.tables[name])...)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for _, name := range c.names {
		errs = append(errs, c.checkJoinDepth(c.tables[name])...)
	}
	return errors.Join(errs...)
}

// SafeIdent maps s to a SQL identifier. Characters outside [A-Za-z0-9_]
// become underscores.
func SafeIdent(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

// checkTable reports duplicate names and dangling references. Names that
// differ but map to the same SafeIdent would share an output column, so they
// count as duplicates too.
func (c *Catalog) checkTable(t *Table) []error {
	var errs []error
	seen := make(map[string]bool)
	idents := make(map[string]string)
	declare := func(kind, name string) {
		if name == "" {
			errs = append(errs, newError(ErrCodeUnknownField, t.Name, "", "%s without a name", kind))
			return
		}
		if seen[name] {
			errs = append(errs, newError(ErrCodeDuplicateName, t.Name, name, "%s name already declared", kind))
			return
		}
		seen[name] = true
		ident := SafeIdent(name)
		if other, ok := idents[ident]; ok {
			errs = append(errs, newError(ErrCodeDuplicateName, t.Name, name, "%s name collides with %q as column %q", kind, other, ident))
			return
		}
		idents[ident] = name
	}

	for _, f := range t.Fields {
		declare("field", f.Name)
		errs = append(errs, c.checkReferences(t, f.Name, f.Expression, false)...)
	}
	for _, m := range t.Metrics {
		declare("metric", m.Name)
		if strings.TrimSpace(m.Expression) == "" {
			errs = append(errs, newError(ErrCodeEmptyExpression, t.Name, m.Name, "metric requires an expression"))
			continue
		}
		errs = append(errs, c.checkReferences(t, m.Name, m.Expression, true)...)
	}

	joins := make(map[string]bool)
	for _, j := range t.Joins {
		if joins[j.Name] {
			errs = append(errs, newError(ErrCodeDuplicateName, t.Name, j.Name, "join declared twice"))
		}
		joins[j.Name] = true
		if _, ok := c.tables[j.Table]; !ok {
			errs = append(errs, newError(ErrCodeUnknownTable, t.Name, j.Name, "join targets unknown table %q", j.Table))
		}
		if _, ok := t.Field(j.From); !ok {
			errs = append(errs, newError(ErrCodeUnknownField, t.Name, j.Name, "join key %q is not a field", j.From))
		}
		if j.To == "" {
			errs = append(errs, newError(ErrCodeUnknownField, t.Name, j.Name, "join requires a target column"))
		}
	}
	return errs
}

// checkReferences reports dangling references. Only metrics take arguments.
func (c *Catalog) checkReferences(t *Table, column, expr string, allowArgs bool) []error {
	var errs []error
	for _, ref := range References(expr) {
		switch ref.Kind {
		case RefArgument:
			if !allowArgs || ref.Name == "" {
				errs = append(errs, newError(ErrCodeUnknownField, t.Name, column, "argument reference %s is only allowed in metrics", ref.Raw))
			}
		case RefColumn:
			if ref.Name == "" {
				errs = append(errs, newError(ErrCodeUnknownField, t.Name, column, "empty column reference %s", ref.Raw))
			}
		case RefField:
			if _, ok := t.Field(ref.Name); !ok {
				errs = append(errs, newError(ErrCodeUnknownField, t.Name, column, "reference %s names no field", ref.Raw))
			}
		case RefJoin:
			j, ok := t.Join(ref.Join)
			if !ok {
				errs = append(errs, newError(ErrCodeUnknownJoin, t.Name, column, "reference %s names no join", ref.Raw))
				continue
			}
			target, ok := c.tables[j.Table]
			if !ok {
				continue // reported on the join itself
			}
			if _, ok := target.Field(ref.Name); !ok {
				errs = append(errs, newError(ErrCodeUnknownField, t.Name, column, "reference %s names no field of %s", ref.Raw, j.Table))
			}
		}
	}
	return errs
}

// resolveTable fills the join cache for every field and metric of t.
func (c *Catalog) resolveTable(t *Table) []error {
	var errs []error
	state := make(map[string]int) // 0 unvisited, 1 visiting, 2 done

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case 1:
			cycle := append(slices.Clone(path[slices.Index(path, name):]), name)
			return newError(ErrCodeReferenceCycle, t.Name, name, "reference cycle %s", strings.Join(cycle, " -> "))
		case 2:
			return nil
		}
		state[name] = 1
		f, _ := t.Field(name)
		var joins []string
		for _, ref := range References(f.Expression) {
			switch ref.Kind {
			case RefField:
				if err := visit(ref.Name, append(path, name)); err != nil {
					return err
				}
				joins = append(joins, c.joins[columnKey{t.Name, ref.Name}]...)
			case RefJoin:
				joins = append(joins, ref.Join)
			}
		}
		slices.Sort(joins)
		c.joins[columnKey{t.Name, name}] = slices.Compact(joins)
		state[name] = 2
		return nil
	}

	for _, f := range t.Fields {
		if state[f.Name] == 2 {
			continue
		}
		if err := visit(f.Name, nil); err != nil {
			errs = append(errs, err)
			// Mark the rest of the cycle so it is reported once.
			for k, v := range state {
				if v == 1 {
					state[k] = 2
				}
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}

	for _, m := range t.Metrics {
		c.joins[columnKey{t.Name, m.Name}] = c.ExpressionJoins(t.Name, m.Expression)
	}
	return nil
}

// checkJoinDepth rejects joined fields that need a join of their own, and
// join-dependent fields that read physical columns.
func (c *Catalog) checkJoinDepth(t *Table) []error {
	var errs []error
	for _, j := range t.Joins {
		if c.RequiresJoin(t.Name, j.From) {
			errs = append(errs, newError(ErrCodeMultiHopJoin, t.Name, j.Name, "join key %q itself needs a join", j.From))
		}
	}
	check := func(column, expr string) {
		for _, ref := range References(expr) {
			if ref.Kind != RefJoin {
				continue
			}
			j, _ := t.Join(ref.Join)
			if c.RequiresJoin(j.Table, ref.Name) {
				errs = append(errs, newError(ErrCodeMultiHopJoin, t.Name, column, "reference %s needs a join of %s", ref.Raw, j.Table))
			}
		}
	}
	for _, f := range t.Fields {
		check(f.Name, f.Expression)
		if !c.RequiresJoin(t.Name, f.Name) {
			continue
		}
		for _, ref := range References(f.Expression) {
			if ref.Kind == RefColumn {
				errs = append(errs, newError(ErrCodeMixedReference, t.Name, f.Name, "field needs a join and reads column %s; reference a field instead", ref.Raw))
			}
		}
	}
	for _, m := range t.Metrics {
		check(m.Name, m.Expression)
	}
	return errs
}
