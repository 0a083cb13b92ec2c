package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ogabook-admin/internal/config"
	"ogabook-admin/internal/engine"
	"ogabook-admin/internal/store"
	"ogabook-admin/internal/testutil"
)

func newEngine(t *testing.T) (*engine.Engine, *store.Store) {
	t.Helper()
	s := testutil.NewStore(t)
	testutil.MustExec(t, s, `CREATE TABLE orders (
		id INTEGER PRIMARY KEY,
		customer TEXT NOT NULL,
		total REAL,
		paid BOOLEAN DEFAULT 0
	)`)
	return engine.NewEngine(s, config.QueryConfig{DefaultLimit: 100, MaxLimit: 1000}), s
}

func seedOrders(t *testing.T, s *store.Store, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		testutil.MustExec(t, s, `INSERT INTO orders (id, customer, total) VALUES (?1, ?2, ?3)`,
			i, fmt.Sprintf("customer-%02d", i), float64(i)*10)
	}
}

func requireAppError(t *testing.T, err error, status int, code string) *engine.AppError {
	t.Helper()
	var appErr *engine.AppError
	require.True(t, errors.As(err, &appErr), "expected *AppError, got %T: %v", err, err)
	assert.Equal(t, status, appErr.Status)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func TestList_PaginationScenario(t *testing.T) {
	e, s := newEngine(t)
	seedOrders(t, s, 25)

	res, err := e.List(context.Background(), "orders", engine.ListParams{Page: 2, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, engine.Pagination{Page: 2, Limit: 10, Total: 25, TotalPages: 3}, res.Pagination)
	require.Len(t, res.Data, 10)
	for i, row := range res.Data {
		assert.Equal(t, int64(15-i), row["id"])
	}
}

func TestList_TotalInvariantUnderPaging(t *testing.T) {
	e, s := newEngine(t)
	seedOrders(t, s, 25)

	for _, p := range []engine.ListParams{{Page: 1, Limit: 7}, {Page: 4, Limit: 7}, {Page: 9, Limit: 3}, {Page: 1, Limit: 100}} {
		res, err := e.List(context.Background(), "orders", p)
		require.NoError(t, err)
		assert.Equal(t, int64(25), res.Pagination.Total)
		assert.LessOrEqual(t, len(res.Data), p.Limit)
	}

	res, err := e.List(context.Background(), "orders", engine.ListParams{Page: 5, Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
}

func TestList_SearchFiltersTotal(t *testing.T) {
	e, s := newEngine(t)
	seedOrders(t, s, 25)

	res, err := e.List(context.Background(), "orders", engine.ListParams{Page: 1, Limit: 5, Search: "CUSTOMER-1", SearchColumn: "customer"})
	require.NoError(t, err)
	// customer-10 .. customer-19
	assert.Equal(t, int64(10), res.Pagination.Total)
	assert.Equal(t, int64(2), res.Pagination.TotalPages)
	assert.Len(t, res.Data, 5)
	assert.Equal(t, "customer-19", res.Data[0]["customer"])

	_, err = e.List(context.Background(), "orders", engine.ListParams{Search: "x", SearchColumn: "nope"})
	requireAppError(t, err, 400, "VALIDATION_FAILED")
}

func TestList_DefaultsAndClamp(t *testing.T) {
	s := testutil.NewStore(t)
	testutil.MustExec(t, s, `CREATE TABLE orders (id INTEGER PRIMARY KEY, customer TEXT)`)
	e := engine.NewEngine(s, config.QueryConfig{DefaultLimit: 20, MaxLimit: 50})

	res, err := e.List(context.Background(), "orders", engine.ListParams{Page: 0, Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, engine.Pagination{Page: 1, Limit: 20, Total: 0, TotalPages: 0}, res.Pagination)

	res, err = e.List(context.Background(), "orders", engine.ListParams{Page: 1, Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, 50, res.Pagination.Limit)
}

func TestCreateGetRoundTrip(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	rec, err := engine.DecodeRecord([]byte(`{"customer":"Ada","total":12.5,"paid":true,"bogus":"dropped"}`))
	require.NoError(t, err)

	created, err := e.Create(ctx, "orders", rec)
	require.NoError(t, err)
	assert.NotContains(t, created, "bogus")

	got, err := e.Get(ctx, "orders", fmt.Sprint(created["id"]))
	require.NoError(t, err)
	assert.Equal(t, "Ada", got["customer"])
	assert.Equal(t, 12.5, got["total"])
	assert.Equal(t, true, got["paid"])
	assert.Equal(t, created, got)
}

func TestCreate_NoValidColumns(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Create(context.Background(), "orders", engine.Record{"bogus": {Kind: engine.KindString, Str: "x"}})
	appErr := requireAppError(t, err, 400, "NO_VALID_COLUMNS")
	assert.Equal(t, "No valid columns provided", appErr.Message)
}

func TestCreate_ConstraintViolationIsDataLayerError(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Create(context.Background(), "orders", engine.Record{"total": {Kind: engine.KindFloat, Float: 1}})
	appErr := requireAppError(t, err, 500, "DATABASE_ERROR")
	assert.Equal(t, string(store.KindNotNull), appErr.Kind)
	assert.NotEmpty(t, appErr.Hint)
}

func TestUpdate(t *testing.T) {
	e, s := newEngine(t)
	seedOrders(t, s, 3)
	ctx := context.Background()

	updated, err := e.Update(ctx, "orders", "2", engine.Record{
		"id":       {Kind: engine.KindInt, Int: 99},
		"customer": {Kind: engine.KindString, Str: "renamed"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated["id"])
	assert.Equal(t, "renamed", updated["customer"])

	_, err = e.Update(ctx, "orders", "2", engine.Record{})
	requireAppError(t, err, 400, "NO_VALID_COLUMNS")

	_, err = e.Update(ctx, "orders", "2", engine.Record{"id": {Kind: engine.KindInt, Int: 5}})
	requireAppError(t, err, 400, "NO_VALID_COLUMNS")

	_, err = e.Update(ctx, "orders", "404", engine.Record{"customer": {Kind: engine.KindString, Str: "x"}})
	requireAppError(t, err, 404, "NOT_FOUND")
}

func TestDelete(t *testing.T) {
	e, s := newEngine(t)
	seedOrders(t, s, 2)
	ctx := context.Background()

	deleted, err := e.Delete(ctx, "orders", "1")
	require.NoError(t, err)
	assert.Equal(t, "customer-01", deleted["customer"])

	_, err = e.Get(ctx, "orders", "1")
	requireAppError(t, err, 404, "NOT_FOUND")

	_, err = e.Delete(ctx, "orders", "1")
	requireAppError(t, err, 404, "NOT_FOUND")
}

func TestUnknownTableIsNotFoundEverywhere(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	name := `orders"; DROP TABLE users; --`
	rec := engine.Record{"customer": {Kind: engine.KindString, Str: "x"}}

	_, err := e.Structure(ctx, name)
	requireAppError(t, err, 404, "TABLE_NOT_FOUND")
	_, err = e.List(ctx, name, engine.ListParams{})
	requireAppError(t, err, 404, "TABLE_NOT_FOUND")
	_, err = e.Get(ctx, name, "1")
	requireAppError(t, err, 404, "TABLE_NOT_FOUND")
	_, err = e.Create(ctx, name, rec)
	requireAppError(t, err, 404, "TABLE_NOT_FOUND")
	_, err = e.Update(ctx, name, "1", rec)
	requireAppError(t, err, 404, "TABLE_NOT_FOUND")
	_, err = e.Delete(ctx, name, "1")
	requireAppError(t, err, 404, "TABLE_NOT_FOUND")

	tables, err := e.ListTables(ctx)
	require.NoError(t, err)
	for _, tbl := range tables {
		_, err := e.Structure(ctx, tbl.Name)
		assert.NoError(t, err, tbl.Name)
	}
}

func TestNoPrimaryKeyRejectsSingleRowOperations(t *testing.T) {
	e, s := newEngine(t)
	testutil.MustExec(t, s, `CREATE TABLE audit_log (message TEXT, created_at TEXT)`)
	testutil.MustExec(t, s, `INSERT INTO audit_log VALUES ('a', '2024-01-01 00:00:00'), ('b', '2024-02-01 00:00:00')`)
	ctx := context.Background()

	res, err := e.List(ctx, "audit_log", engine.ListParams{})
	require.NoError(t, err)
	require.Len(t, res.Data, 2)
	assert.Equal(t, "b", res.Data[0]["message"])

	_, err = e.Get(ctx, "audit_log", "1")
	requireAppError(t, err, 400, "NO_PRIMARY_KEY")
	_, err = e.Update(ctx, "audit_log", "1", engine.Record{"message": {Kind: engine.KindString, Str: "x"}})
	requireAppError(t, err, 400, "NO_PRIMARY_KEY")
	_, err = e.Delete(ctx, "audit_log", "1")
	requireAppError(t, err, 400, "NO_PRIMARY_KEY")

	created, err := e.Create(ctx, "audit_log", engine.Record{"message": {Kind: engine.KindString, Str: "c"}})
	require.NoError(t, err)
	assert.Equal(t, "c", created["message"])
}

func TestStructure(t *testing.T) {
	e, _ := newEngine(t)
	st, err := e.Structure(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, st.PrimaryKeys)
	require.Len(t, st.Columns, 4)
	assert.Equal(t, "customer", st.Columns[1].Name)
}

func TestRawQuery(t *testing.T) {
	e, s := newEngine(t)
	seedOrders(t, s, 3)
	ctx := context.Background()

	res, err := e.RawQuery(ctx, "SELECT id FROM orders ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.RowCount)
	assert.Equal(t, int64(1), res.Data[0]["id"])

	res, err = e.RawQuery(ctx, "UPDATE orders SET paid = 1 WHERE id < 3")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RowCount)
	assert.Empty(t, res.Data)

	_, err = e.RawQuery(ctx, "   ")
	requireAppError(t, err, 400, "VALIDATION_FAILED")

	_, err = e.RawQuery(ctx, "SELECT * FROM missing_table")
	appErr := requireAppError(t, err, 500, "DATABASE_ERROR")
	assert.Equal(t, string(store.KindUndefinedTable), appErr.Kind)
}

func TestRawQuery_DenylistExecutesNothing(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	for _, q := range []string{"DROP TABLE users", "drop table users", "SELECT 1; Drop Table users"} {
		_, err := e.RawQuery(ctx, q)
		requireAppError(t, err, 403, "QUERY_REJECTED")
	}

	tables, err := e.ListTables(ctx)
	require.NoError(t, err)
	var names []string
	for _, tbl := range tables {
		names = append(names, tbl.Name)
	}
	assert.Contains(t, names, "users")
}
