package store

import (
	"fmt"
	"strings"
)

// SQLiteDialect implements Dialect for SQLite via modernc.org/sqlite.
// Catalog queries go through sqlite_master and the pragma table-valued
// functions, aliased to the information_schema column names.
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string          { return "sqlite" }
func (d *SQLiteDialect) DriverName() string    { return "sqlite" }
func (d *SQLiteDialect) DefaultSchema() string { return "main" }
func (d *SQLiteDialect) NowExpr() string       { return "datetime('now')" }
func (d *SQLiteDialect) NeedsBoolFix() bool    { return true }

func (d *SQLiteDialect) NewParamBuilder() ParamBuilder {
	return &sqliteParamBuilder{}
}

func (d *SQLiteDialect) ListTablesSQL() string {
	return `SELECT name AS table_name, ?1 AS table_schema
		FROM sqlite_master
		WHERE type = 'table'
		AND name NOT LIKE 'sqlite_%'
		ORDER BY name`
}

func (d *SQLiteDialect) TableExistsSQL() string {
	return `SELECT name AS table_name, ?1 AS table_schema
		FROM sqlite_master
		WHERE type = 'table'
		AND name NOT LIKE 'sqlite_%'
		AND name = ?2`
}

func (d *SQLiteDialect) ColumnsSQL() string {
	return `SELECT name AS column_name,
			type AS data_type,
			NULL AS character_maximum_length,
			CASE WHEN "notnull" = 1 THEN 'NO' ELSE 'YES' END AS is_nullable,
			dflt_value AS column_default,
			cid + 1 AS ordinal_position
		FROM pragma_table_info(?2, ?1)
		ORDER BY cid`
}

func (d *SQLiteDialect) PrimaryKeysSQL() string {
	return `SELECT name AS column_name
		FROM pragma_table_info(?2, ?1)
		WHERE pk > 0
		ORDER BY pk`
}

func (d *SQLiteDialect) TextExpr(column string) string {
	return fmt.Sprintf("CAST(%s AS TEXT)", column)
}

// ContainsExpr relies on SQLite's LIKE being case-insensitive for ASCII.
func (d *SQLiteDialect) ContainsExpr(column string, placeholder string) string {
	return fmt.Sprintf("%s LIKE %s", d.TextExpr(column), placeholder)
}

func (d *SQLiteDialect) InExpr(field string, pb ParamBuilder, values []string) string {
	if len(values) == 0 {
		return "1=0" // always false
	}
	phs := make([]string, len(values))
	for i, v := range values {
		phs[i] = pb.Add(v)
	}
	return fmt.Sprintf("%s IN (%s)", field, strings.Join(phs, ", "))
}

func (d *SQLiteDialect) TextInExpr(field string, pb ParamBuilder, values []string) string {
	return d.InExpr(d.TextExpr(field), pb, values)
}

func (d *SQLiteDialect) JSONExpr(placeholder string) string {
	return placeholder
}

func (d *SQLiteDialect) BootstrapSQL() string {
	return sqliteBootstrapSQL
}

const sqliteBootstrapSQL = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    username      TEXT,
    password_hash TEXT,
    role          TEXT NOT NULL DEFAULT 'manager',
    is_active     BOOLEAN DEFAULT 1,
    phone         TEXT,
    first_name    TEXT,
    last_name     TEXT,
    business_type TEXT,
    created_at    TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS notification_templates (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT NOT NULL,
    title      TEXT NOT NULL,
    message    TEXT NOT NULL,
    category   TEXT,
    is_active  BOOLEAN NOT NULL DEFAULT 1,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS notifications (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id          TEXT NOT NULL,
    transaction_id      TEXT NOT NULL,
    receipt_number      TEXT,
    customer_id         TEXT,
    customer_name       TEXT,
    customer_phone      TEXT,
    admin_title         TEXT,
    admin_message       TEXT,
    type                TEXT NOT NULL CHECK (type IN ('outstanding_payment', 'admin_notification', 'system_notification')),
    user_role           TEXT NOT NULL CHECK (user_role IN ('manager', 'cashier')),
    total               REAL NOT NULL DEFAULT 0,
    paid_amount         REAL NOT NULL DEFAULT 0,
    outstanding_balance REAL NOT NULL DEFAULT 0,
    read                BOOLEAN NOT NULL DEFAULT 0,
    created_at          TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS app_settings (
    key        TEXT PRIMARY KEY,
    value      TEXT,
    updated_at TEXT DEFAULT (datetime('now'))
);
`
