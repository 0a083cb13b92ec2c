package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"ogabook-admin/internal/config"
	"ogabook-admin/internal/instrument"
	"ogabook-admin/internal/metadata"
	"ogabook-admin/internal/store"
)

var (
	errNoColumns    = errors.New("no valid columns")
	errNoPrimaryKey = errors.New("table has no primary key")
)

// ListParams are the caller-supplied paging and search options of a listing.
type ListParams struct {
	Page         int
	Limit        int
	Search       string
	SearchColumn string
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

type ListResult struct {
	Data       []map[string]any `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

type Structure struct {
	Columns     []metadata.Column `json:"columns"`
	PrimaryKeys []string          `json:"primaryKeys"`
}

type RawResult struct {
	Data     []map[string]any `json:"data"`
	RowCount int64            `json:"rowCount"`
}

// Engine runs the generic per-table operations. Every call describes the
// table afresh, so it always sees the current catalog.
type Engine struct {
	store   *store.Store
	intro   *metadata.Introspector
	builder *Builder
	limits  config.QueryConfig
}

func NewEngine(s *store.Store, limits config.QueryConfig) *Engine {
	if limits.DefaultLimit <= 0 {
		limits.DefaultLimit = 100
	}
	if limits.MaxLimit <= 0 {
		limits.MaxLimit = 1000
	}
	return &Engine{
		store:   s,
		intro:   metadata.NewIntrospector(s),
		builder: NewBuilder(s.Dialect),
		limits:  limits,
	}
}

// ListTables returns the base tables of the exposed schema.
func (e *Engine) ListTables(ctx context.Context) ([]metadata.TableRef, error) {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "engine", "introspector", "tables.list")
	defer span.End()

	tables, err := e.intro.ListTables(ctx)
	if err != nil {
		span.SetStatus("error")
		return nil, DataLayerError("Error fetching tables", err)
	}
	span.SetMetadata("count", len(tables))
	return tables, nil
}

// Structure returns the columns and primary key of a table.
func (e *Engine) Structure(ctx context.Context, name string) (*Structure, error) {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "engine", "introspector", "tables.structure")
	defer span.End()
	span.SetEntity(name, "")

	table, err := e.resolveTable(ctx, name, "Error fetching table structure")
	if err != nil {
		span.SetStatus("error")
		return nil, err
	}
	return &Structure{Columns: table.Columns, PrimaryKeys: table.PrimaryKeys}, nil
}

// List returns one page of rows and the total of the filtered set.
func (e *Engine) List(ctx context.Context, name string, params ListParams) (*ListResult, error) {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "engine", "crud", "data.list")
	defer span.End()
	span.SetEntity(name, "")

	table, err := e.resolveTable(ctx, name, "Error fetching table data")
	if err != nil {
		span.SetStatus("error")
		return nil, err
	}

	spec := QuerySpec{
		Table:        table,
		Page:         params.Page,
		Limit:        params.Limit,
		Search:       strings.TrimSpace(params.Search),
		SearchColumn: params.SearchColumn,
	}
	e.normalizePaging(&spec)
	if spec.Search != "" && spec.SearchColumn != "" && !table.HasColumn(spec.SearchColumn) {
		span.SetStatus("error")
		return nil, BadRequestError("VALIDATION_FAILED", fmt.Sprintf("Unknown search column: %s", spec.SearchColumn))
	}

	qr, err := e.builder.BuildSelect(spec)
	if err != nil {
		return nil, InternalError("Error fetching table data", err)
	}
	cr, err := e.builder.BuildCount(spec)
	if err != nil {
		return nil, InternalError("Error fetching table data", err)
	}

	// page and count share the filter and run side by side
	var (
		rows  []map[string]any
		total int64
	)
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		var err error
		rows, err = store.QueryRows(ctx, e.store.DB, qr.SQL, qr.Params...)
		return err
	})
	p.Go(func(ctx context.Context) error {
		countRow, err := store.QueryRow(ctx, e.store.DB, cr.SQL, cr.Params...)
		if err != nil {
			return err
		}
		total = toInt64(countRow["count"])
		return nil
	})
	if err := p.Wait(); err != nil {
		span.SetStatus("error")
		return nil, DataLayerError("Error fetching table data", err)
	}

	e.fixBooleans(table, rows)
	if rows == nil {
		rows = []map[string]any{}
	}

	span.SetMetadata("rows", len(rows))
	return &ListResult{
		Data: rows,
		Pagination: Pagination{
			Page:       spec.Page,
			Limit:      spec.Limit,
			Total:      total,
			TotalPages: totalPages(total, spec.Limit),
		},
	}, nil
}

// Get returns the row whose primary key equals id.
func (e *Engine) Get(ctx context.Context, name, id string) (map[string]any, error) {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "engine", "crud", "data.get")
	defer span.End()
	span.SetEntity(name, id)

	table, err := e.resolveTable(ctx, name, "Error fetching record")
	if err != nil {
		span.SetStatus("error")
		return nil, err
	}
	qr, err := e.builder.BuildGetByPK(table, id)
	if err != nil {
		span.SetStatus("error")
		return nil, builderError(err, "Error fetching record")
	}
	return e.singleRow(ctx, table, qr, "Error fetching record")
}

// Create inserts the known columns of rec and returns the created row.
func (e *Engine) Create(ctx context.Context, name string, rec Record) (map[string]any, error) {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "engine", "crud", "data.create")
	defer span.End()
	span.SetEntity(name, "")

	table, err := e.resolveTable(ctx, name, "Error creating record")
	if err != nil {
		span.SetStatus("error")
		return nil, err
	}
	qr, err := e.builder.BuildInsert(table, rec)
	if err != nil {
		span.SetStatus("error")
		return nil, builderError(err, "Error creating record")
	}
	return e.singleRow(ctx, table, qr, "Error creating record")
}

// Update sets the known non-key columns of rec on the row identified by id.
func (e *Engine) Update(ctx context.Context, name, id string, rec Record) (map[string]any, error) {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "engine", "crud", "data.update")
	defer span.End()
	span.SetEntity(name, id)

	table, err := e.resolveTable(ctx, name, "Error updating record")
	if err != nil {
		span.SetStatus("error")
		return nil, err
	}
	qr, err := e.builder.BuildUpdate(table, id, rec)
	if err != nil {
		span.SetStatus("error")
		if errors.Is(err, errNoColumns) {
			return nil, NoValidColumnsError("No valid columns to update")
		}
		return nil, builderError(err, "Error updating record")
	}
	return e.singleRow(ctx, table, qr, "Error updating record")
}

// Delete removes the row identified by id and returns it.
func (e *Engine) Delete(ctx context.Context, name, id string) (map[string]any, error) {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "engine", "crud", "data.delete")
	defer span.End()
	span.SetEntity(name, id)

	table, err := e.resolveTable(ctx, name, "Error deleting record")
	if err != nil {
		span.SetStatus("error")
		return nil, err
	}
	qr, err := e.builder.BuildDelete(table, id)
	if err != nil {
		span.SetStatus("error")
		return nil, builderError(err, "Error deleting record")
	}
	return e.singleRow(ctx, table, qr, "Error deleting record")
}

// RawQuery runs an operator-supplied statement verbatim unless it contains
// a denylisted keyword, in which case nothing is sent to the database.
func (e *Engine) RawQuery(ctx context.Context, sql string) (*RawResult, error) {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "engine", "crud", "query.raw")
	defer span.End()

	if strings.TrimSpace(sql) == "" {
		return nil, BadRequestError("VALIDATION_FAILED", "SQL query is required")
	}
	if IsDeniedQuery(sql) {
		span.SetStatus("rejected")
		instrument.Logger(ctx).WithField("query", sql).Warn("raw query rejected")
		return nil, QueryRejectedError()
	}

	if returnsRows(sql) {
		rows, err := store.QueryRows(ctx, e.store.DB, sql)
		if err != nil {
			span.SetStatus("error")
			return nil, DataLayerError("Error executing query", err)
		}
		if rows == nil {
			rows = []map[string]any{}
		}
		return &RawResult{Data: rows, RowCount: int64(len(rows))}, nil
	}

	n, err := store.Exec(ctx, e.store.DB, sql)
	if err != nil {
		span.SetStatus("error")
		return nil, DataLayerError("Error executing query", err)
	}
	return &RawResult{Data: []map[string]any{}, RowCount: n}, nil
}

func (e *Engine) resolveTable(ctx context.Context, name, failMsg string) (*metadata.Table, error) {
	table, err := e.intro.DescribeTable(ctx, name)
	if err != nil {
		if errors.Is(err, metadata.ErrTableNotFound) {
			return nil, TableNotFoundError(name)
		}
		return nil, DataLayerError(failMsg, err)
	}
	return table, nil
}

func (e *Engine) singleRow(ctx context.Context, table *metadata.Table, qr QueryResult, failMsg string) (map[string]any, error) {
	row, err := store.QueryRow(ctx, e.store.DB, qr.SQL, qr.Params...)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, RecordNotFoundError()
		}
		return nil, DataLayerError(failMsg, err)
	}
	e.fixBooleans(table, []map[string]any{row})
	return row, nil
}

func (e *Engine) fixBooleans(table *metadata.Table, rows []map[string]any) {
	if e.store.Dialect.NeedsBoolFix() {
		store.NormalizeBooleans(rows, table.BoolColumns())
	}
}

func (e *Engine) normalizePaging(spec *QuerySpec) {
	if spec.Page < 1 {
		spec.Page = 1
	}
	if spec.Limit < 1 {
		spec.Limit = e.limits.DefaultLimit
	}
	if spec.Limit > e.limits.MaxLimit {
		spec.Limit = e.limits.MaxLimit
	}
}

func builderError(err error, failMsg string) *AppError {
	switch {
	case errors.Is(err, errNoPrimaryKey):
		return NoPrimaryKeyError()
	case errors.Is(err, errNoColumns):
		return NoValidColumnsError("No valid columns provided")
	default:
		return InternalError(failMsg, err)
	}
}

func totalPages(total int64, limit int) int64 {
	if total == 0 || limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}

func toInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int32:
		return int64(val)
	case int:
		return int64(val)
	case float64:
		return int64(val)
	default:
		return 0
	}
}
