package store

import (
	"fmt"
)

// PostgresDialect implements Dialect for PostgreSQL via pgx/stdlib.
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string          { return "postgres" }
func (d *PostgresDialect) DriverName() string    { return "pgx" }
func (d *PostgresDialect) DefaultSchema() string { return "public" }
func (d *PostgresDialect) NowExpr() string       { return "NOW()" }
func (d *PostgresDialect) NeedsBoolFix() bool    { return false }

func (d *PostgresDialect) NewParamBuilder() ParamBuilder {
	return &pgParamBuilder{}
}

func (d *PostgresDialect) ListTablesSQL() string {
	return `SELECT table_name, table_schema
		FROM information_schema.tables
		WHERE table_schema = $1
		AND table_type = 'BASE TABLE'
		ORDER BY table_name`
}

func (d *PostgresDialect) TableExistsSQL() string {
	return `SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		AND table_type = 'BASE TABLE'
		AND table_name = $2`
}

func (d *PostgresDialect) ColumnsSQL() string {
	return `SELECT column_name, data_type, character_maximum_length,
			is_nullable, column_default, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = $1
		AND table_name = $2
		ORDER BY ordinal_position`
}

func (d *PostgresDialect) PrimaryKeysSQL() string {
	return `SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		WHERE tc.table_schema = $1
			AND tc.table_name = $2
			AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.ordinal_position`
}

func (d *PostgresDialect) TextExpr(column string) string {
	return column + "::text"
}

func (d *PostgresDialect) ContainsExpr(column string, placeholder string) string {
	return fmt.Sprintf("%s ILIKE %s", d.TextExpr(column), placeholder)
}

func (d *PostgresDialect) InExpr(field string, pb ParamBuilder, values []string) string {
	ph := pb.Add(values)
	return fmt.Sprintf("%s = ANY(%s)", field, ph)
}

func (d *PostgresDialect) TextInExpr(field string, pb ParamBuilder, values []string) string {
	ph := pb.Add(values)
	return fmt.Sprintf("%s = ANY(%s::text[])", d.TextExpr(field), ph)
}

func (d *PostgresDialect) JSONExpr(placeholder string) string {
	return placeholder + "::jsonb"
}

func (d *PostgresDialect) BootstrapSQL() string {
	return pgBootstrapSQL
}

const pgBootstrapSQL = `
CREATE TABLE IF NOT EXISTS users (
    id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    email         TEXT NOT NULL UNIQUE,
    username      TEXT,
    password_hash TEXT,
    role          TEXT NOT NULL DEFAULT 'manager',
    is_active     BOOLEAN DEFAULT true,
    phone         TEXT,
    first_name    TEXT,
    last_name     TEXT,
    business_type TEXT,
    created_at    TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS notification_templates (
    id         SERIAL PRIMARY KEY,
    name       TEXT NOT NULL,
    title      TEXT NOT NULL,
    message    TEXT NOT NULL,
    category   TEXT,
    is_active  BOOLEAN NOT NULL DEFAULT true,
    created_at TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS notifications (
    id                  BIGSERIAL PRIMARY KEY,
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
    total               NUMERIC NOT NULL DEFAULT 0,
    paid_amount         NUMERIC NOT NULL DEFAULT 0,
    outstanding_balance NUMERIC NOT NULL DEFAULT 0,
    read                BOOLEAN NOT NULL DEFAULT false,
    created_at          TIMESTAMPTZ DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS app_settings (
    key        TEXT PRIMARY KEY,
    value      JSONB,
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
`
