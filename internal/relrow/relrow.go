// Package relrow holds the row-shaped containers the evaluation core
// flows between operators: Schema, Row, Table and the grouping-key
// bitset. Rows are positionally aligned to their Schema and are never
// mutated after construction; operators produce new rows.
package relrow

import (
	"math/bits"

	"github.com/roach88/quarrel/internal/relval"
)

// Column is one schema entry.
type Column struct {
	Name     string
	Type     relval.Kind
	Nullable bool
}

// Schema is an ordered sequence of columns. Names need not be unique;
// operations that require uniqueness (BY NAME matching) check and reject
// duplicates themselves.
type Schema struct {
	Columns []Column
}

// NewSchema builds a schema from columns in order.
func NewSchema(cols ...Column) Schema {
	return Schema{Columns: cols}
}

// Col is a shorthand Column constructor for nullable columns.
func Col(name string, t relval.Kind) Column {
	return Column{Name: name, Type: t, Nullable: true}
}

// Len returns the number of columns.
func (s Schema) Len() int { return len(s.Columns) }

// Index returns the position of the first column with the given name,
// or -1 when absent.
func (s Schema) Index(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// HasDuplicateNames reports whether any column name repeats, returning
// the first offender.
func (s Schema) HasDuplicateNames() (string, bool) {
	seen := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		if seen[c.Name] {
			return c.Name, true
		}
		seen[c.Name] = true
	}
	return "", false
}

// Concat appends another schema's columns after this one's.
func (s Schema) Concat(o Schema) Schema {
	cols := make([]Column, 0, len(s.Columns)+len(o.Columns))
	cols = append(cols, s.Columns...)
	cols = append(cols, o.Columns...)
	return Schema{Columns: cols}
}

// NullRow returns a row of NULLs shaped like this schema. Used by outer
// joins and name-matched set operations for the padded side.
func (s Schema) NullRow() Row {
	row := make(Row, len(s.Columns))
	for i := range row {
		row[i] = relval.Null{}
	}
	return row
}

// Row is an ordered, fixed-length value tuple aligned to a Schema.
type Row []relval.Value

// Concat produces a new row holding left's values then right's.
// JoinRow construction in the join executor goes through here.
func Concat(left, right Row) Row {
	out := make(Row, 0, len(left)+len(right))
	out = append(out, left...)
	return append(out, right...)
}

// Project picks the listed positions into a new row.
func (r Row) Project(idx []int) Row {
	out := make(Row, len(idx))
	for i, j := range idx {
		out[i] = r[j]
	}
	return out
}

// Table is a schema plus a row sequence. Ordered is set only after an
// ORDER BY stage; everywhere else row order is an implementation detail
// callers must not rely on (operators still keep it deterministic).
type Table struct {
	Schema  Schema
	Rows    []Row
	Ordered bool
}

// NewTable creates an empty table with the given schema.
func NewTable(schema Schema) *Table {
	return &Table{Schema: schema}
}

// Append adds rows to the table.
func (t *Table) Append(rows ...Row) {
	t.Rows = append(t.Rows, rows...)
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.Rows) }

// MaxGroupingColumns bounds the grouping-key bitset width.
const MaxGroupingColumns = 64

// GroupingKey is a bitset over grouping columns: bit i set means column i
// participates in the grouping set. Columns excluded from the set are
// NULL-filled in group output rows; the key is the only place the
// "grouping NULL" placeholder stays distinguishable from a data NULL.
type GroupingKey uint64

// Has reports whether column i participates.
func (k GroupingKey) Has(i int) bool { return k&(1<<uint(i)) != 0 }

// With returns the key with column i included.
func (k GroupingKey) With(i int) GroupingKey { return k | 1<<uint(i) }

// Count returns the number of participating columns.
func (k GroupingKey) Count() int { return bits.OnesCount64(uint64(k)) }
