package filter

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nestq/internal/ir"
)

// ParseError reports a malformed filter document.
type ParseError struct {
	Path    string // Location inside the document, e.g. "and[1].or[0]"
	Line    int    // 1-based line, 0 when unknown
	Column  int    // 1-based column, 0 when unknown
	Message string
}

func (e *ParseError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "filter"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d, column %d): %s", loc, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", loc, e.Message)
}

// Parse decodes a YAML or JSON filter document.
//
// Document shapes:
//
//	{and: [e1, e2, ...]}     n-ary, folded left into binary And nodes
//	{or: [e1, e2, ...]}      n-ary, folded left into binary Or nodes
//	{not: e}
//	{table: t, field: f, op: o, values: [...]}
//
// A predicate without "table" gets defaultTable. Scalar "values" is accepted
// as a single-element list. An empty document parses to nil (no filter).
//
// Error conditions:
//   - Invalid YAML/JSON syntax
//   - Unknown keys or operators
//   - Empty and/or lists
//   - Null or unsupported literal values
func Parse(data []byte, defaultTable string) (Expression, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("invalid document: %v", err)}
	}
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil, nil
		}
		return ParseNode(doc.Content[0], defaultTable)
	}
	return ParseNode(&doc, defaultTable)
}

// ParseNode decodes a filter from an already parsed YAML node.
// Used when a filter is embedded in a larger document (scenarios, CLI input).
func ParseNode(node *yaml.Node, defaultTable string) (Expression, error) {
	if node == nil || node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.Tag == "!!null") {
		return nil, nil
	}
	p := &parser{defaultTable: defaultTable}
	return p.parseExpression(node, "")
}

type parser struct {
	defaultTable string
}

func (p *parser) errorf(node *yaml.Node, path, format string, args ...any) error {
	return &ParseError{
		Path:    path,
		Line:    node.Line,
		Column:  node.Column,
		Message: fmt.Sprintf(format, args...),
	}
}

func (p *parser) parseExpression(node *yaml.Node, path string) (Expression, error) {
	if node.Kind != yaml.MappingNode {
		return nil, p.errorf(node, path, "expected a mapping, got %s", kindName(node))
	}

	keys := make(map[string]*yaml.Node, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keys[node.Content[i].Value] = node.Content[i+1]
	}

	for _, combinator := range []string{"and", "or", "not"} {
		child, ok := keys[combinator]
		if !ok {
			continue
		}
		if len(keys) != 1 {
			return nil, p.errorf(node, path, "%q must be the only key in its mapping", combinator)
		}
		childPath := joinPath(path, combinator)
		if combinator == "not" {
			negated, err := p.parseExpression(child, childPath)
			if err != nil {
				return nil, err
			}
			return Not{Negated: negated}, nil
		}
		return p.parseList(child, childPath, combinator)
	}

	return p.parsePredicate(node, keys, path)
}

func (p *parser) parseList(node *yaml.Node, path, combinator string) (Expression, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, p.errorf(node, path, "expected a list, got %s", kindName(node))
	}
	if len(node.Content) == 0 {
		return nil, p.errorf(node, path, "%q needs at least one operand", combinator)
	}

	operands := make([]Expression, 0, len(node.Content))
	for i, child := range node.Content {
		expr, err := p.parseExpression(child, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		operands = append(operands, expr)
	}
	if combinator == "and" {
		return AllOf(operands...), nil
	}
	return AnyOf(operands...), nil
}

func (p *parser) parsePredicate(node *yaml.Node, keys map[string]*yaml.Node, path string) (Expression, error) {
	for k := range keys {
		switch k {
		case "table", "field", "op", "values":
		default:
			return nil, p.errorf(node, path, "unknown key %q", k)
		}
	}

	pred := Predicate{Table: p.defaultTable}
	if n, ok := keys["table"]; ok {
		pred.Table = n.Value
	}

	fieldNode, ok := keys["field"]
	if !ok || fieldNode.Value == "" {
		return nil, p.errorf(node, path, "predicate requires a field")
	}
	pred.Field = fieldNode.Value

	opNode, ok := keys["op"]
	if !ok {
		return nil, p.errorf(node, path, "predicate requires an op")
	}
	op, valid := ParseOperator(opNode.Value)
	if !valid {
		return nil, p.errorf(opNode, joinPath(path, "op"), "unknown operator %q", opNode.Value)
	}
	pred.Operator = op

	if valuesNode, ok := keys["values"]; ok {
		values, err := p.parseValues(valuesNode, joinPath(path, "values"))
		if err != nil {
			return nil, err
		}
		pred.Values = values
	}

	if err := validatePredicate(pred); err != nil {
		return nil, p.errorf(node, path, "%v", err)
	}
	return pred, nil
}

func (p *parser) parseValues(node *yaml.Node, path string) ([]ir.IRValue, error) {
	items := []*yaml.Node{node}
	if node.Kind == yaml.SequenceNode {
		items = node.Content
	}

	values := make([]ir.IRValue, 0, len(items))
	for i, item := range items {
		if item.Kind != yaml.ScalarNode {
			return nil, p.errorf(item, fmt.Sprintf("%s[%d]", path, i), "values must be scalars")
		}
		var raw any
		if err := item.Decode(&raw); err != nil {
			return nil, p.errorf(item, fmt.Sprintf("%s[%d]", path, i), "%v", err)
		}
		v, err := ir.FromAny(raw)
		if err != nil {
			return nil, p.errorf(item, fmt.Sprintf("%s[%d]", path, i), "%v", err)
		}
		values = append(values, v)
	}
	return values, nil
}

func joinPath(path, elem string) string {
	if path == "" {
		return elem
	}
	return path + "." + elem
}

func kindName(node *yaml.Node) string {
	switch node.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "list"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}
