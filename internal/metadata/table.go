package metadata

import (
	"strings"

	"github.com/goccy/go-json"
)

// TableRef is one entry of the table listing.
type TableRef struct {
	Name   string `json:"table_name"`
	Schema string `json:"table_schema"`
}

// Table describes a table as found in the catalog at request time.
// It is never cached; every request builds a fresh one.
type Table struct {
	Name        string   `json:"name"`
	Schema      string   `json:"schema"`
	Columns     []Column `json:"columns"`
	PrimaryKeys []string `json:"primaryKeys"`
}

// Column is an immutable snapshot of one catalog column.
type Column struct {
	Name            string
	DataType        string
	MaxLength       *int64
	Nullable        bool
	Default         *string
	OrdinalPosition int
}

// MarshalJSON renders the column with the information_schema field names
// and its "YES"/"NO" nullability.
func (c Column) MarshalJSON() ([]byte, error) {
	nullable := "NO"
	if c.Nullable {
		nullable = "YES"
	}
	return json.Marshal(struct {
		Name            string  `json:"column_name"`
		DataType        string  `json:"data_type"`
		MaxLength       *int64  `json:"character_maximum_length"`
		Nullable        string  `json:"is_nullable"`
		Default         *string `json:"column_default"`
		OrdinalPosition int     `json:"ordinal_position"`
	}{c.Name, c.DataType, c.MaxLength, nullable, c.Default, c.OrdinalPosition})
}

// PrimaryKey returns the first primary-key column, or "" when the table has none.
func (t *Table) PrimaryKey() string {
	if len(t.PrimaryKeys) == 0 {
		return ""
	}
	return t.PrimaryKeys[0]
}

// HasPrimaryKey reports whether single-row operations can target this table.
func (t *Table) HasPrimaryKey() bool {
	return t.PrimaryKey() != ""
}

// GetColumn returns a pointer to the column with the given name, or nil.
func (t *Table) GetColumn(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// HasColumn returns true if the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	return t.GetColumn(name) != nil
}

// ColumnNames returns all column names in ordinal order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// OrderColumn resolves the default ordering column: the primary key, else
// an "id" column, else "created_at". Empty means backend-defined order.
func (t *Table) OrderColumn() string {
	if pk := t.PrimaryKey(); pk != "" {
		return pk
	}
	for _, name := range []string{"id", "created_at"} {
		if t.HasColumn(name) {
			return name
		}
	}
	return ""
}

// BoolColumns returns the columns declared as boolean.
func (t *Table) BoolColumns() []string {
	var names []string
	for _, c := range t.Columns {
		if strings.Contains(strings.ToLower(c.DataType), "bool") {
			names = append(names, c.Name)
		}
	}
	return names
}
