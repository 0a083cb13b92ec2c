package store

import (
	"fmt"
)

// Dialect abstracts database-specific SQL generation and catalog access.
// Every catalog query returns the information_schema column names
// (table_name, column_name, data_type, ...) regardless of the backend.
type Dialect interface {
	// Name returns "postgres" or "sqlite".
	Name() string

	// DriverName returns the database/sql driver name ("pgx" or "sqlite").
	DriverName() string

	// DefaultSchema returns the schema whose tables are exposed when none is configured.
	DefaultSchema() string

	// NewParamBuilder creates a dialect-aware parameter builder.
	NewParamBuilder() ParamBuilder

	// NowExpr returns the SQL expression for the current timestamp.
	NowExpr() string

	// ListTablesSQL lists base tables ordered by name. Takes the schema as first parameter.
	ListTablesSQL() string

	// TableExistsSQL returns one row when the table (param 2) is a base table
	// of the schema (param 1).
	TableExistsSQL() string

	// ColumnsSQL describes the columns of a table (schema, table) in ordinal order:
	// column_name, data_type, character_maximum_length, is_nullable, column_default, ordinal_position.
	ColumnsSQL() string

	// PrimaryKeysSQL returns column_name for every primary-key column of (schema, table),
	// in key order.
	PrimaryKeysSQL() string

	// TextExpr casts an already-quoted column expression to text.
	TextExpr(column string) string

	// ContainsExpr builds a case-insensitive "column contains pattern" predicate.
	// The pattern placeholder must already carry the wildcards.
	ContainsExpr(column string, placeholder string) string

	// InExpr builds "field IN values".
	// PostgreSQL: "field = ANY($n)" with a single array param.
	// SQLite: "field IN (?n, ?n+1, ...)" expanding the slice.
	InExpr(field string, pb ParamBuilder, values []string) string

	// TextInExpr is InExpr comparing the text form of field against text values.
	TextInExpr(field string, pb ParamBuilder, values []string) string

	// JSONExpr wraps a placeholder bound to a JSON document so it is stored as JSON.
	JSONExpr(placeholder string) string

	// NeedsBoolFix returns true if boolean columns come back as integers (SQLite).
	NeedsBoolFix() bool

	// BootstrapSQL returns the DDL for the tables this service reads and writes.
	BootstrapSQL() string
}

// ParamBuilder accumulates query parameters and generates dialect-specific placeholders.
type ParamBuilder interface {
	// Add appends a value and returns the placeholder string.
	Add(v any) string

	// Params returns all accumulated parameter values.
	Params() []any

	// Count returns the number of parameters added so far.
	Count() int
}

// NewDialect creates a Dialect for the given driver name ("postgres" or "sqlite").
func NewDialect(driver string) Dialect {
	switch driver {
	case "sqlite":
		return &SQLiteDialect{}
	default:
		return &PostgresDialect{}
	}
}

// --- PostgreSQL ParamBuilder ---

type pgParamBuilder struct {
	params []any
	n      int
}

func (p *pgParamBuilder) Add(v any) string {
	p.n++
	p.params = append(p.params, v)
	return fmt.Sprintf("$%d", p.n)
}

func (p *pgParamBuilder) Params() []any { return p.params }
func (p *pgParamBuilder) Count() int    { return p.n }

// --- SQLite ParamBuilder ---

type sqliteParamBuilder struct {
	params []any
	n      int
}

func (p *sqliteParamBuilder) Add(v any) string {
	p.n++
	p.params = append(p.params, v)
	return fmt.Sprintf("?%d", p.n)
}

func (p *sqliteParamBuilder) Params() []any { return p.params }
func (p *sqliteParamBuilder) Count() int    { return p.n }
