// Package schema is the metadata store behind the query planner.
//
// A Catalog holds logical tables. Each table maps to a physical table and
// declares fields, metrics, and single-hop joins. Field and metric
// expressions are SQL fragments with templated references:
//
//	{{$col}}        physical column of the owning table
//	{{name}}        logical field of the same table
//	{{join.name}}   logical field of the table reached through join
//	{{@name}}       argument bound to the column when it is queried
//
// The catalog answers the one question the splitter asks: which joins does
// a field need (ResolvedJoins). Answers are computed once when the catalog
// is built; a Catalog is read-only afterwards and safe for concurrent use.
//
// Catalogs load from CUE (LoadCUE, CompileCUE) or YAML (LoadYAML, ParseYAML).
package schema
