package schema

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type yamlDocument struct {
	Tables []yamlTable `yaml:"tables"`
}

type yamlTable struct {
	Name     string       `yaml:"name"`
	Physical string       `yaml:"physical"`
	Fields   []yamlColumn `yaml:"fields"`
	Metrics  []yamlColumn `yaml:"metrics"`
	Joins    []yamlJoin   `yaml:"joins"`
}

type yamlColumn struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Expression string `yaml:"expression"`
}

type yamlJoin struct {
	Name  string `yaml:"name"`
	Table string `yaml:"table"`
	From  string `yaml:"from"`
	To    string `yaml:"to"`
}

// LoadYAML reads a YAML schema file and builds a Catalog.
func LoadYAML(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	c, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseYAML builds a Catalog from a YAML document.
//
// Document shape:
//
//	tables:
//	  - name: orders
//	    fields:
//	      - {name: region, type: TEXT}
//	    metrics:
//	      - {name: revenue, type: DECIMAL, expression: "SUM({{amount}})"}
//	    joins:
//	      - {name: customer, table: customer, from: customer_id, to: id}
//
// Unknown keys are rejected.
func ParseYAML(data []byte) (*Catalog, error) {
	var doc yamlDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	if len(doc.Tables) == 0 {
		return nil, fmt.Errorf("parse schema: no tables declared")
	}

	tables := make([]Table, 0, len(doc.Tables))
	for _, yt := range doc.Tables {
		t := Table{Name: yt.Name, Physical: yt.Physical}
		for _, yf := range yt.Fields {
			vt, err := ParseValueType(yf.Type)
			if err != nil {
				return nil, fmt.Errorf("table %s field %s: %w", yt.Name, yf.Name, err)
			}
			t.Fields = append(t.Fields, Field{Name: yf.Name, Type: vt, Expression: yf.Expression})
		}
		for _, ym := range yt.Metrics {
			m := Metric{Name: ym.Name, Expression: ym.Expression}
			if ym.Type != "" {
				vt, err := ParseValueType(ym.Type)
				if err != nil {
					return nil, fmt.Errorf("table %s metric %s: %w", yt.Name, ym.Name, err)
				}
				m.Type = vt
			}
			t.Metrics = append(t.Metrics, m)
		}
		for _, yj := range yt.Joins {
			t.Joins = append(t.Joins, Join(yj))
		}
		tables = append(tables, t)
	}
	return New(tables...)
}

// Load picks the loader by path: a directory loads as CUE, a .cue file
// compiles alone, anything else parses as YAML.
func Load(path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	if info.IsDir() {
		return LoadCUE(path)
	}
	if filepath.Ext(path) == ".cue" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read schema: %w", err)
		}
		return CompileCUE(data, path)
	}
	return LoadYAML(path)
}
