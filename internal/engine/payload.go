package engine

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/goccy/go-json"

	"ogabook-admin/internal/metadata"
)

// ValueKind tags the JSON type a payload field arrived as.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindJSON // object or array, kept as its JSON text
)

// Value is one field of a create/update payload.
type Value struct {
	Kind  ValueKind
	Bool  bool
	Int   int64
	Float float64
	Str   string
}

// Arg returns the value in the form bound to a statement parameter.
func (v Value) Arg() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindString, KindJSON:
		return v.Str
	default:
		return nil
	}
}

// Record maps column names to payload values. It is untrusted until
// filtered against a table with Columns.
type Record map[string]Value

// DecodeRecord parses a JSON object body into a Record.
func DecodeRecord(body []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decode payload: expected a JSON object")
	}

	rec := make(Record, len(raw))
	for k, v := range raw {
		val, err := toValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		rec[k] = val
	}
	return rec, nil
}

func toValue(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Value{Kind: KindNull}, nil
	case bool:
		return Value{Kind: KindBool, Bool: val}, nil
	case json.Number:
		if n, err := strconv.ParseInt(val.String(), 10, 64); err == nil {
			return Value{Kind: KindInt, Int: n}, nil
		}
		f, err := strconv.ParseFloat(val.String(), 64)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindFloat, Float: f}, nil
	case string:
		return Value{Kind: KindString, Str: val}, nil
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindJSON, Str: string(b)}, nil
	default:
		return Value{}, fmt.Errorf("unsupported value of type %T", v)
	}
}

// Columns keeps the fields whose keys are columns of table, skipping the
// excluded names, and returns them in ordinal order. Unknown keys are dropped.
func (r Record) Columns(table *metadata.Table, exclude ...string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}

	cols := make([]string, 0, len(r))
	for name := range r {
		if skip[name] || !table.HasColumn(name) {
			continue
		}
		cols = append(cols, name)
	}
	sort.Slice(cols, func(i, j int) bool {
		return table.GetColumn(cols[i]).OrdinalPosition < table.GetColumn(cols[j]).OrdinalPosition
	})
	return cols
}
