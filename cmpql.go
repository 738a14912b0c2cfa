// Package cmpql compiles object queries over an entity catalog into SQL.
//
// This package re-exports commonly used types and functions from subpackages
// for convenience. Advanced users can import subpackages directly:
//   - github.com/wildfly/cmpql/catalog (entities, fields, relationships)
//   - github.com/wildfly/cmpql/nodes (query trees)
//   - github.com/wildfly/cmpql/qlparse (query text parser)
//   - github.com/wildfly/cmpql/managers (query builders)
//   - github.com/wildfly/cmpql/compiler (SQL generation)
//   - github.com/wildfly/cmpql/dialect (target databases)
//   - github.com/wildfly/cmpql/plugins (query transformers)
//   - github.com/wildfly/cmpql/runner (execution)
package cmpql

import (
	"github.com/wildfly/cmpql/catalog"
	"github.com/wildfly/cmpql/compiler"
	"github.com/wildfly/cmpql/dialect"
	"github.com/wildfly/cmpql/managers"
	"github.com/wildfly/cmpql/nodes"
	"github.com/wildfly/cmpql/qlparse"
)

// --- Core Types ---

// Query is the root of a query tree.
type Query = nodes.Query

// Catalog describes the entities a query ranges over.
type Catalog = catalog.Catalog

// Type is a declared argument type.
type Type = catalog.Type

// Dialect is a target database configuration.
type Dialect = dialect.Dialect

// Compiler translates query trees to SQL for one catalog and dialect.
type Compiler = compiler.Compiler

// Result is a compiled query: SQL text and its parameter plan.
type Result = compiler.Result

// QueryManager provides a fluent API for building query trees.
type QueryManager = managers.QueryManager

// --- Return Types ---

const (
	ReturnCollection = compiler.ReturnCollection
	ReturnSet        = compiler.ReturnSet
	ReturnSingle     = compiler.ReturnSingle
)

// --- Argument Types ---

var (
	String    = catalog.String
	Integer   = catalog.Integer
	Long      = catalog.Long
	Double    = catalog.Double
	Decimal   = catalog.Decimal
	Boolean   = catalog.Boolean
	Date      = catalog.Date
	Time      = catalog.Time
	Timestamp = catalog.Timestamp
)

// Entity is the type of an argument referencing the named entity.
func Entity(name string) Type { return catalog.EntityType(name) }

// --- Dialects ---

var (
	Postgres    = dialect.Postgres
	MySQL       = dialect.MySQL
	MySQLLegacy = dialect.MySQLLegacy
	SQLite      = dialect.SQLite
)

// LookupDialect returns a built-in dialect by name.
func LookupDialect(name string) (*Dialect, error) {
	return dialect.Lookup(name)
}

// --- Constructors ---

// LoadCatalog reads a YAML catalog document.
func LoadCatalog(path string) (*Catalog, error) {
	return catalog.LoadFile(path)
}

// New creates a Compiler for schema and d.
func New(schema catalog.Schema, d *Dialect, opts ...compiler.Option) *Compiler {
	return compiler.New(schema, d, opts...)
}

// Parse parses query text into a query tree.
func Parse(text string) (*Query, error) {
	return qlparse.Parse(text)
}

// NewQuery starts a query selecting the entity bound to v.
func NewQuery(entity, v string) *QueryManager {
	return managers.NewQueryManager(entity, v)
}

// Compile parses text and compiles it in one step. args are the declared
// types of ?1, ?2 and so on.
func Compile(text string, schema catalog.Schema, d *Dialect, ret compiler.ReturnType, args ...Type) (*Result, error) {
	q, err := qlparse.Parse(text)
	if err != nil {
		return nil, err
	}
	return compiler.New(schema, d).Compile(q, ret, args)
}
