package engine

import (
	"fmt"
	"strings"

	"ogabook-admin/internal/metadata"
	"ogabook-admin/internal/store"
)

// QuerySpec describes one page of a table listing.
type QuerySpec struct {
	Table        *metadata.Table
	Page         int
	Limit        int
	Search       string
	SearchColumn string
	// OrderColumn overrides the table's resolved ordering column when set.
	OrderColumn string
}

type QueryResult struct {
	SQL    string
	Params []any
}

// Builder turns validated table descriptors into parameterized statements.
// Values are always bound; identifiers only pass through quoteIdent.
type Builder struct {
	dialect store.Dialect
}

func NewBuilder(d store.Dialect) *Builder {
	return &Builder{dialect: d}
}

// quoteIdent is the only place identifiers enter generated SQL. An empty
// name means the table itself, schema-qualified; any other name must be a
// column of the table.
func quoteIdent(table *metadata.Table, name string) (string, error) {
	if name == "" {
		if table.Name == "" {
			return "", fmt.Errorf("table has no name")
		}
		return quote(table.Schema) + "." + quote(table.Name), nil
	}
	if !table.HasColumn(name) {
		return "", fmt.Errorf("unknown column %q on table %s", name, table.Name)
	}
	return quote(name), nil
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// BuildSelect builds the page query: shared filter, order column descending,
// bound LIMIT and OFFSET.
func (b *Builder) BuildSelect(spec QuerySpec) (QueryResult, error) {
	pb := b.dialect.NewParamBuilder()
	from, where, err := b.filter(spec, pb)
	if err != nil {
		return QueryResult{}, err
	}

	sql := "SELECT * FROM " + from + where

	orderCol := spec.OrderColumn
	if orderCol == "" {
		orderCol = spec.Table.OrderColumn()
	}
	if orderCol != "" {
		col, err := quoteIdent(spec.Table, orderCol)
		if err != nil {
			return QueryResult{}, err
		}
		sql += " ORDER BY " + col + " DESC"
	}

	limit := pb.Add(spec.Limit)
	offset := pb.Add((spec.Page - 1) * spec.Limit)
	sql += fmt.Sprintf(" LIMIT %s OFFSET %s", limit, offset)

	return QueryResult{SQL: sql, Params: pb.Params()}, nil
}

// BuildCount builds a COUNT query with the same filter as BuildSelect.
func (b *Builder) BuildCount(spec QuerySpec) (QueryResult, error) {
	pb := b.dialect.NewParamBuilder()
	from, where, err := b.filter(spec, pb)
	if err != nil {
		return QueryResult{}, err
	}
	return QueryResult{SQL: "SELECT COUNT(*) AS count FROM " + from + where, Params: pb.Params()}, nil
}

func (b *Builder) filter(spec QuerySpec, pb store.ParamBuilder) (string, string, error) {
	from, err := quoteIdent(spec.Table, "")
	if err != nil {
		return "", "", err
	}
	if spec.Search == "" || spec.SearchColumn == "" {
		return from, "", nil
	}
	col, err := quoteIdent(spec.Table, spec.SearchColumn)
	if err != nil {
		return "", "", err
	}
	pattern := pb.Add("%" + spec.Search + "%")
	return from, " WHERE " + b.dialect.ContainsExpr(col, pattern), nil
}

// BuildGetByPK selects the row whose primary key equals id.
func (b *Builder) BuildGetByPK(table *metadata.Table, id string) (QueryResult, error) {
	pb := b.dialect.NewParamBuilder()
	from, pk, err := b.target(table)
	if err != nil {
		return QueryResult{}, err
	}
	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s = %s", from, pk, pb.Add(id))
	return QueryResult{SQL: sql, Params: pb.Params()}, nil
}

// BuildInsert inserts the fields of rec that are columns of table and
// returns the created row. It fails with errNoColumns when none are.
func (b *Builder) BuildInsert(table *metadata.Table, rec Record) (QueryResult, error) {
	pb := b.dialect.NewParamBuilder()
	from, err := quoteIdent(table, "")
	if err != nil {
		return QueryResult{}, err
	}

	names := rec.Columns(table)
	if len(names) == 0 {
		return QueryResult{}, errNoColumns
	}

	cols := make([]string, len(names))
	placeholders := make([]string, len(names))
	for i, name := range names {
		col, err := quoteIdent(table, name)
		if err != nil {
			return QueryResult{}, err
		}
		cols[i] = col
		placeholders[i] = b.bind(table, name, rec[name], pb)
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		from, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return QueryResult{SQL: sql, Params: pb.Params()}, nil
}

// BuildUpdate sets the fields of rec that are columns of table, never the
// primary key, on the row identified by id and returns the updated row.
func (b *Builder) BuildUpdate(table *metadata.Table, id string, rec Record) (QueryResult, error) {
	pb := b.dialect.NewParamBuilder()
	from, pk, err := b.target(table)
	if err != nil {
		return QueryResult{}, err
	}

	names := rec.Columns(table, table.PrimaryKey())
	if len(names) == 0 {
		return QueryResult{}, errNoColumns
	}

	sets := make([]string, len(names))
	for i, name := range names {
		col, err := quoteIdent(table, name)
		if err != nil {
			return QueryResult{}, err
		}
		sets[i] = fmt.Sprintf("%s = %s", col, b.bind(table, name, rec[name], pb))
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s RETURNING *",
		from, strings.Join(sets, ", "), pk, pb.Add(id))
	return QueryResult{SQL: sql, Params: pb.Params()}, nil
}

// BuildDelete deletes the row identified by id and returns it.
func (b *Builder) BuildDelete(table *metadata.Table, id string) (QueryResult, error) {
	pb := b.dialect.NewParamBuilder()
	from, pk, err := b.target(table)
	if err != nil {
		return QueryResult{}, err
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s = %s RETURNING *", from, pk, pb.Add(id))
	return QueryResult{SQL: sql, Params: pb.Params()}, nil
}

// target returns the quoted table and primary-key column for single-row statements.
func (b *Builder) target(table *metadata.Table) (string, string, error) {
	if !table.HasPrimaryKey() {
		return "", "", errNoPrimaryKey
	}
	from, err := quoteIdent(table, "")
	if err != nil {
		return "", "", err
	}
	pk, err := quoteIdent(table, table.PrimaryKey())
	if err != nil {
		return "", "", err
	}
	return from, pk, nil
}

// bind adds the value and returns its placeholder. Objects and arrays going
// into a JSON column are wrapped so the driver stores them as JSON.
func (b *Builder) bind(table *metadata.Table, name string, v Value, pb store.ParamBuilder) string {
	ph := pb.Add(v.Arg())
	if v.Kind == KindJSON && isJSONColumn(table.GetColumn(name)) {
		return b.dialect.JSONExpr(ph)
	}
	return ph
}

func isJSONColumn(col *metadata.Column) bool {
	return col != nil && strings.Contains(strings.ToLower(col.DataType), "json")
}
