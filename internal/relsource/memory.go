// Package relsource provides RowProducer and CorrelatedProducer
// implementations for the evaluation core: in-memory fixtures, SQLite
// scans and array unnesting. The core itself never knows where rows come
// from; these are the batteries shipped alongside it.
package relsource

import (
	"github.com/roach88/quarrel/internal/relplan"
	"github.com/roach88/quarrel/internal/relrow"
)

// MemoryTable serves a fixed row set. Produce hands out a fresh Table
// each call over the same shared row slices, so one MemoryTable may back
// any number of Scan nodes in one plan.
type MemoryTable struct {
	schema relrow.Schema
	rows   []relrow.Row
}

// NewMemoryTable builds a producer over the given schema and rows.
func NewMemoryTable(schema relrow.Schema, rows ...relrow.Row) *MemoryTable {
	return &MemoryTable{schema: schema, rows: rows}
}

// Schema implements relplan.RowProducer.
func (m *MemoryTable) Schema() relrow.Schema { return m.schema }

// Produce implements relplan.RowProducer.
func (m *MemoryTable) Produce(*relplan.EvalContext) (*relrow.Table, error) {
	t := relrow.NewTable(m.schema)
	t.Append(m.rows...)
	return t, nil
}
