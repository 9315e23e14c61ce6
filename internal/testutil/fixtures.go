// Package testutil provides table and row builders shared by the
// evaluation tests. Fixtures are plain values; nothing here touches the
// evaluator.
package testutil

import (
	"github.com/roach88/quarrel/internal/relrow"
	"github.com/roach88/quarrel/internal/relval"
)

// Schema builds a schema from alternating name, kind pairs.
//
// Example: Schema("id", relval.KindInt, "city", relval.KindString)
func Schema(pairs ...any) relrow.Schema {
	if len(pairs)%2 != 0 {
		panic("testutil.Schema: odd argument count")
	}
	cols := make([]relrow.Column, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		cols = append(cols, relrow.Col(pairs[i].(string), pairs[i+1].(relval.Kind)))
	}
	return relrow.NewSchema(cols...)
}

// Row builds a row, converting bare Go values: nil becomes NULL, int
// becomes Int, float64 becomes Double, string becomes an uncollated
// String, bool becomes Bool. relval.Value arguments pass through.
func Row(vals ...any) relrow.Row {
	row := make(relrow.Row, len(vals))
	for i, v := range vals {
		row[i] = Val(v)
	}
	return row
}

// Val converts one bare Go value the way Row does.
func Val(v any) relval.Value {
	switch x := v.(type) {
	case nil:
		return relval.Null{}
	case relval.Value:
		return x
	case bool:
		return relval.Bool(x)
	case int:
		return relval.Int(x)
	case int64:
		return relval.Int(x)
	case float64:
		return relval.Double(x)
	case string:
		return relval.NewString(x)
	default:
		panic("testutil.Val: unsupported fixture value")
	}
}

// Table builds a materialized table over the schema.
func Table(schema relrow.Schema, rows ...relrow.Row) *relrow.Table {
	t := relrow.NewTable(schema)
	t.Append(rows...)
	return t
}

// Rows renders every row of a table with relval.Format, one string per
// row, for compact assertions.
func Rows(t *relrow.Table) []string {
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		s := ""
		for j, v := range row {
			if j > 0 {
				s += "|"
			}
			s += relval.Format(v)
		}
		out[i] = s
	}
	return out
}
