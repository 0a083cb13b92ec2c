package metadata_test

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ogabook-admin/internal/metadata"
	"ogabook-admin/internal/testutil"
)

func TestListTables_SortedBaseTables(t *testing.T) {
	s := testutil.NewStore(t)
	testutil.MustExec(t, s, `CREATE TABLE orders (id INTEGER PRIMARY KEY, total REAL)`)
	testutil.MustExec(t, s, `CREATE VIEW order_totals AS SELECT total FROM orders`)

	tables, err := metadata.NewIntrospector(s).ListTables(context.Background())
	require.NoError(t, err)

	var names []string
	for _, tbl := range tables {
		names = append(names, tbl.Name)
		assert.Equal(t, "main", tbl.Schema)
	}
	assert.Equal(t, []string{"app_settings", "notification_templates", "notifications", "orders", "users"}, names)
}

func TestDescribeTable_ColumnsAndPrimaryKey(t *testing.T) {
	s := testutil.NewStore(t)
	testutil.MustExec(t, s, `CREATE TABLE orders (
		id INTEGER PRIMARY KEY,
		customer TEXT NOT NULL,
		paid BOOLEAN DEFAULT 0,
		created_at TEXT
	)`)

	table, err := metadata.NewIntrospector(s).DescribeTable(context.Background(), "orders")
	require.NoError(t, err)

	assert.Equal(t, "orders", table.Name)
	assert.Equal(t, []string{"id", "customer", "paid", "created_at"}, table.ColumnNames())
	assert.Equal(t, "id", table.PrimaryKey())
	assert.Equal(t, "id", table.OrderColumn())
	assert.Equal(t, []string{"paid"}, table.BoolColumns())

	customer := table.GetColumn("customer")
	require.NotNil(t, customer)
	assert.False(t, customer.Nullable)
	assert.Equal(t, 2, customer.OrdinalPosition)

	paid := table.GetColumn("paid")
	require.NotNil(t, paid.Default)
	assert.Equal(t, "0", *paid.Default)
}

func TestDescribeTable_UnknownTable(t *testing.T) {
	s := testutil.NewStore(t)
	intro := metadata.NewIntrospector(s)

	for _, name := range []string{"missing", "", `users"; DROP TABLE users; --`} {
		_, err := intro.DescribeTable(context.Background(), name)
		assert.ErrorIs(t, err, metadata.ErrTableNotFound, name)
	}
}

func TestDescribeTable_NoPrimaryKeyFallsBackToOrderingColumn(t *testing.T) {
	s := testutil.NewStore(t)
	testutil.MustExec(t, s, `CREATE TABLE audit_log (message TEXT, created_at TEXT)`)
	testutil.MustExec(t, s, `CREATE TABLE bare (message TEXT)`)
	intro := metadata.NewIntrospector(s)

	audit, err := intro.DescribeTable(context.Background(), "audit_log")
	require.NoError(t, err)
	assert.False(t, audit.HasPrimaryKey())
	assert.Equal(t, "created_at", audit.OrderColumn())

	bare, err := intro.DescribeTable(context.Background(), "bare")
	require.NoError(t, err)
	assert.Equal(t, "", bare.OrderColumn())
}

func TestColumn_MarshalJSON(t *testing.T) {
	def := "now()"
	b, err := json.Marshal(metadata.Column{Name: "created_at", DataType: "timestamp", Nullable: true, Default: &def, OrdinalPosition: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"column_name": "created_at",
		"data_type": "timestamp",
		"character_maximum_length": null,
		"is_nullable": "YES",
		"column_default": "now()",
		"ordinal_position": 3
	}`, string(b))
}
