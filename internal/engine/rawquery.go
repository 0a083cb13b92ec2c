package engine

import (
	"strings"
)

// deniedKeywords are rejected anywhere in a raw statement, case-insensitively.
// This is a substring match, not a parser: it stops the obvious destructive
// statements and nothing more.
var deniedKeywords = []string{"DROP", "TRUNCATE", "DELETE FROM", "ALTER TABLE", "CREATE TABLE", "DROP TABLE"}

// rowReturningVerbs start statements whose result is a row set.
var rowReturningVerbs = []string{"SELECT", "WITH", "SHOW", "EXPLAIN", "VALUES", "TABLE", "PRAGMA"}

// IsDeniedQuery reports whether sql contains a denylisted keyword.
func IsDeniedQuery(sql string) bool {
	upper := strings.ToUpper(sql)
	for _, kw := range deniedKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

// returnsRows guesses whether sql produces a row set; otherwise it is run
// as a statement and only the affected row count is reported.
func returnsRows(sql string) bool {
	upper := strings.ToUpper(strings.TrimSpace(sql))
	if strings.Contains(upper, "RETURNING") {
		return true
	}
	for _, verb := range rowReturningVerbs {
		if strings.HasPrefix(upper, verb) {
			return true
		}
	}
	return false
}
