package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// CanonicalIDs renders identifiers in their string form, drops empty ones
// and removes duplicates while keeping first-seen order.
func CanonicalIDs(ids []any) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		var s string
		switch v := id.(type) {
		case nil:
			continue
		case string:
			s = v
		case float64:
			// JSON numbers decode as float64
			s = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			s = fmt.Sprint(v)
		}
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// FindByIDs loads the rows of table whose id is one of ids. It first
// compares the typed id column, then retries the ids that did not match
// against the text form of the column, so UUID and string keys both
// resolve. The table and columns are fixed by the caller's code, never
// taken from a request.
func (s *Store) FindByIDs(ctx context.Context, table string, columns []string, ids []string) ([]map[string]any, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	selectSQL := fmt.Sprintf("SELECT %s FROM %s WHERE ", strings.Join(columns, ", "), table)

	pb := s.Dialect.NewParamBuilder()
	rows, err := QueryRows(ctx, s.DB, selectSQL+s.Dialect.InExpr("id", pb, ids), pb.Params()...)
	if err != nil {
		// A key that does not parse as the column type fails the whole typed match
		log.WithError(err).WithField("table", table).Debug("typed id lookup failed, retrying as text")
		rows = nil
	}

	found := make(map[string]bool, len(rows))
	for _, row := range rows {
		found[fmt.Sprint(row["id"])] = true
	}
	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return rows, nil
	}

	pb = s.Dialect.NewParamBuilder()
	more, err := QueryRows(ctx, s.DB, selectSQL+s.Dialect.TextInExpr("id", pb, missing), pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("lookup %s by id: %w", table, err)
	}
	for _, row := range more {
		key := fmt.Sprint(row["id"])
		if found[key] {
			continue
		}
		found[key] = true
		rows = append(rows, row)
	}
	return rows, nil
}
