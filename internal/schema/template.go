package schema

import (
	"regexp"
	"strings"
)

// RefKind classifies a templated reference.
type RefKind int

const (
	// RefColumn is {{$col}}: a physical column.
	RefColumn RefKind = iota
	// RefField is {{name}}: a logical column in the current scope.
	RefField
	// RefJoin is {{join.name}}: a logical field behind a join.
	RefJoin
	// RefArgument is {{@name}}: a value bound to the column at query time.
	RefArgument
)

// Reference is one {{...}} occurrence in an expression.
type Reference struct {
	Kind RefKind
	Join string // Set for RefJoin
	Name string // Column, field, or joined field name
	Raw  string // The full {{...}} text
}

var referencePattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// References lists the templated references of expr in order of appearance.
func References(expr string) []Reference {
	matches := referencePattern.FindAllStringSubmatch(expr, -1)
	refs := make([]Reference, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, parseReference(m[0], m[1]))
	}
	return refs
}

func parseReference(raw, body string) Reference {
	if name, ok := strings.CutPrefix(body, "@"); ok {
		return Reference{Kind: RefArgument, Name: name, Raw: raw}
	}
	if name, ok := strings.CutPrefix(body, "$"); ok {
		return Reference{Kind: RefColumn, Name: name, Raw: raw}
	}
	if join, name, ok := strings.Cut(body, "."); ok {
		return Reference{Kind: RefJoin, Join: join, Name: name, Raw: raw}
	}
	return Reference{Kind: RefField, Name: body, Raw: raw}
}

// Expand replaces every reference in expr with the result of fn.
// The first error returned by fn aborts the expansion.
func Expand(expr string, fn func(Reference) (string, error)) (string, error) {
	var firstErr error
	out := referencePattern.ReplaceAllStringFunc(expr, func(raw string) string {
		if firstErr != nil {
			return raw
		}
		body := referencePattern.FindStringSubmatch(raw)[1]
		s, err := fn(parseReference(raw, body))
		if err != nil {
			firstErr = err
			return raw
		}
		return s
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// Ref builds the {{name}} reference text.
func Ref(name string) string {
	return "{{" + name + "}}"
}
