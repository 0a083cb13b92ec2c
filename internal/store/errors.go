package store

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorKind classifies a driver error for operators.
type ErrorKind string

const (
	KindHostUnreachable ErrorKind = "host_unreachable"
	KindAuthFailed      ErrorKind = "auth_failed"
	KindUndefinedTable  ErrorKind = "undefined_table"
	KindUndefinedColumn ErrorKind = "undefined_column"
	KindUnique          ErrorKind = "unique_violation"
	KindForeignKey      ErrorKind = "foreign_key_violation"
	KindNotNull         ErrorKind = "not_null_violation"
	KindCheck           ErrorKind = "check_violation"
	KindInvalidInput    ErrorKind = "invalid_input"
	KindSyntax          ErrorKind = "syntax_error"
	KindTimeout         ErrorKind = "timeout"
	KindGeneric         ErrorKind = "generic"
)

var hints = map[ErrorKind]string{
	KindHostUnreachable: "Database host could not be resolved or reached. Check DATABASE_URL; on serverless platforms use the connection pooler URL instead of the direct db.<ref> host.",
	KindAuthFailed:      "Database rejected the credentials. Check the user and password in DATABASE_URL.",
	KindUndefinedTable:  "The table does not exist in the configured schema. Check the table name or run the schema setup.",
	KindUndefinedColumn: "A referenced column does not exist on the table.",
	KindUnique:          "A record with this value already exists.",
	KindForeignKey:      "The value references a row that does not exist, or the row is still referenced elsewhere.",
	KindNotNull:         "A required column was left empty.",
	KindCheck:           "A value is outside the set allowed by a check constraint.",
	KindInvalidInput:    "A value could not be converted to the column type.",
	KindSyntax:          "The SQL statement could not be parsed.",
	KindTimeout:         "The database did not answer in time. Check pool size and connectivity.",
	KindGeneric:         "Unexpected database error. See server logs for details.",
}

// DBError is a classified database failure. It wraps the driver error.
type DBError struct {
	Kind ErrorKind
	Code string // SQLSTATE, when known
	Err  error
}

func (e *DBError) Error() string { return e.Err.Error() }
func (e *DBError) Unwrap() error { return e.Err }

// Hint returns an operator-facing diagnostic for the error kind.
func (e *DBError) Hint() string { return hints[e.Kind] }

// Detail returns the driver's detail line, when it has one.
func (e *DBError) Detail() string {
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		return pgErr.Detail
	}
	return ""
}

// Classify inspects err and returns it wrapped in a *DBError. A nil err
// returns nil; an already classified error is returned as is.
func Classify(err error) *DBError {
	if err == nil {
		return nil
	}
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		return dbErr
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &DBError{Kind: kindForSQLState(pgErr.Code), Code: pgErr.Code, Err: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &DBError{Kind: KindHostUnreachable, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &DBError{Kind: KindHostUnreachable, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &DBError{Kind: KindTimeout, Err: err}
	}

	return &DBError{Kind: kindForMessage(err.Error()), Err: err}
}

func kindForSQLState(code string) ErrorKind {
	switch code {
	case "28P01", "28000":
		return KindAuthFailed
	case "42P01":
		return KindUndefinedTable
	case "42703":
		return KindUndefinedColumn
	case "23505":
		return KindUnique
	case "23503":
		return KindForeignKey
	case "23502":
		return KindNotNull
	case "23514":
		return KindCheck
	case "42601":
		return KindSyntax
	case "57014":
		return KindTimeout
	}
	if strings.HasPrefix(code, "22") {
		return KindInvalidInput
	}
	if strings.HasPrefix(code, "08") {
		return KindHostUnreachable
	}
	return KindGeneric
}

// kindForMessage covers drivers without structured codes (SQLite) and
// connection errors that only surface as text.
func kindForMessage(msg string) ErrorKind {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "enotfound"), strings.Contains(lower, "no such host"),
		strings.Contains(lower, "connection refused"):
		return KindHostUnreachable
	case strings.Contains(lower, "password authentication failed"):
		return KindAuthFailed
	case strings.Contains(lower, "no such table"):
		return KindUndefinedTable
	case strings.Contains(lower, "no such column"), strings.Contains(lower, "has no column named"):
		return KindUndefinedColumn
	case strings.Contains(lower, "unique constraint"), strings.Contains(lower, "duplicate key"):
		return KindUnique
	case strings.Contains(lower, "foreign key constraint"):
		return KindForeignKey
	case strings.Contains(lower, "not null constraint"):
		return KindNotNull
	case strings.Contains(lower, "check constraint"):
		return KindCheck
	case strings.Contains(lower, "syntax error"):
		return KindSyntax
	}
	return KindGeneric
}
