package metadata

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"ogabook-admin/internal/store"
)

// ErrTableNotFound is returned for names that are not base tables of the exposed schema.
var ErrTableNotFound = errors.New("table not found")

// Introspector reads table and column metadata from the database catalog.
type Introspector struct {
	store *store.Store
}

func NewIntrospector(s *store.Store) *Introspector {
	return &Introspector{store: s}
}

// ListTables returns every base table of the schema, ordered by name.
func (i *Introspector) ListTables(ctx context.Context) ([]TableRef, error) {
	rows, err := store.QueryRows(ctx, i.store.DB, i.store.Dialect.ListTablesSQL(), i.store.Schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	tables := make([]TableRef, 0, len(rows))
	for _, row := range rows {
		tables = append(tables, TableRef{
			Name:   asString(row["table_name"]),
			Schema: asString(row["table_schema"]),
		})
	}
	return tables, nil
}

// HasTable reports whether name is one of the tables ListTables returns.
// It runs the same catalog predicate restricted to one name.
func (i *Introspector) HasTable(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	rows, err := store.QueryRows(ctx, i.store.DB, i.store.Dialect.TableExistsSQL(), i.store.Schema, name)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return len(rows) > 0, nil
}

// DescribeTable returns the ordered columns and primary key of a table.
// Unknown names yield ErrTableNotFound.
func (i *Introspector) DescribeTable(ctx context.Context, name string) (*Table, error) {
	ok, err := i.HasTable(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}

	colRows, err := store.QueryRows(ctx, i.store.DB, i.store.Dialect.ColumnsSQL(), i.store.Schema, name)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", name, err)
	}
	pkRows, err := store.QueryRows(ctx, i.store.DB, i.store.Dialect.PrimaryKeysSQL(), i.store.Schema, name)
	if err != nil {
		return nil, fmt.Errorf("primary key of %s: %w", name, err)
	}

	table := &Table{
		Name:        name,
		Schema:      i.store.Schema,
		Columns:     make([]Column, 0, len(colRows)),
		PrimaryKeys: make([]string, 0, len(pkRows)),
	}
	for _, row := range colRows {
		col := Column{
			Name:            asString(row["column_name"]),
			DataType:        asString(row["data_type"]),
			Nullable:        asString(row["is_nullable"]) == "YES",
			OrdinalPosition: int(asInt64(row["ordinal_position"])),
		}
		if v := row["character_maximum_length"]; v != nil {
			n := asInt64(v)
			col.MaxLength = &n
		}
		if v := row["column_default"]; v != nil {
			def := asString(v)
			col.Default = &def
		}
		table.Columns = append(table.Columns, col)
	}
	for _, row := range pkRows {
		table.PrimaryKeys = append(table.PrimaryKeys, asString(row["column_name"]))
	}
	return table, nil
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

func asInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int32:
		return int64(val)
	case int:
		return int64(val)
	case float64:
		return int64(val)
	case string:
		n, _ := strconv.ParseInt(val, 10, 64)
		return n
	default:
		return 0
	}
}
