package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// cueSchema closes the accepted document shape so that typos in keys are
// reported with a position instead of being ignored.
const cueSchema = `
#Field: {
	type?:       string
	expression?: string
}
#Metric: {
	type?:      string
	expression: string
}
#Join: {
	table: string
	from:  string
	to:    string
}
#Table: {
	physical?: string
	field?: [string]:  #Field
	metric?: [string]: #Metric
	join?: [string]:   #Join
}
table: [string]: #Table
`

// CompileError is a schema document error with a source position.
type CompileError struct {
	Path    string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// LoadCUE loads every .cue file of the package in dir and builds a Catalog.
//
// Document shape:
//
//	table: orders: {
//		physical: "orders"
//		field: region: {type: "TEXT"}
//		field: country: {expression: "{{customer.country}}"}
//		metric: revenue: {type: "DECIMAL", expression: "SUM({{amount}})"}
//		join: customer: {table: "customer", from: "customer_id", to: "id"}
//	}
func LoadCUE(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	ctx := cuecontext.New()
	return compileValue(ctx, ctx.BuildInstance(inst))
}

// CompileCUE builds a Catalog from a single CUE source.
// filename is only used in error positions.
func CompileCUE(src []byte, filename string) (*Catalog, error) {
	ctx := cuecontext.New()
	return compileValue(ctx, ctx.CompileBytes(src, cue.Filename(filename)))
}

func compileValue(ctx *cue.Context, v cue.Value) (*Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v = ctx.CompileString(cueSchema, cue.Filename("schema.cue")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return nil, &CompileError{Path: "table", Message: "no tables declared", Pos: v.Pos()}
	}

	var tables []Table
	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		t, err := compileTable(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return New(tables...)
}

func compileTable(name string, v cue.Value) (Table, error) {
	t := Table{Name: name}

	var err error
	if t.Physical, err = optionalString(v, "physical"); err != nil {
		return Table{}, err
	}

	err = eachField(v, "field", func(label string, fv cue.Value) error {
		f := Field{Name: label}
		typ, err := optionalString(fv, "type")
		if err != nil {
			return err
		}
		if f.Type, err = ParseValueType(typ); err != nil {
			return &CompileError{Path: "table." + name + ".field." + label, Message: err.Error(), Pos: fv.Pos()}
		}
		f.Expression, err = optionalString(fv, "expression")
		t.Fields = append(t.Fields, f)
		return err
	})
	if err != nil {
		return Table{}, err
	}

	err = eachField(v, "metric", func(label string, mv cue.Value) error {
		m := Metric{Name: label}
		typ, err := optionalString(mv, "type")
		if err != nil {
			return err
		}
		if typ != "" {
			if m.Type, err = ParseValueType(typ); err != nil {
				return &CompileError{Path: "table." + name + ".metric." + label, Message: err.Error(), Pos: mv.Pos()}
			}
		}
		m.Expression, err = optionalString(mv, "expression")
		t.Metrics = append(t.Metrics, m)
		return err
	})
	if err != nil {
		return Table{}, err
	}

	err = eachField(v, "join", func(label string, jv cue.Value) error {
		j := Join{Name: label}
		var err error
		if j.Table, err = optionalString(jv, "table"); err != nil {
			return err
		}
		if j.From, err = optionalString(jv, "from"); err != nil {
			return err
		}
		j.To, err = optionalString(jv, "to")
		t.Joins = append(t.Joins, j)
		return err
	})
	if err != nil {
		return Table{}, err
	}
	return t, nil
}

// eachField calls fn for every label of the struct at path, in declaration order.
func eachField(v cue.Value, path string, fn func(label string, v cue.Value) error) error {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Label(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func optionalString(v cue.Value, path string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return "", nil
	}
	s, err := sv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Path:    "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
