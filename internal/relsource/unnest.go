package relsource

import (
	"github.com/roach88/quarrel/internal/relerr"
	"github.com/roach88/quarrel/internal/relplan"
	"github.com/roach88/quarrel/internal/relrow"
	"github.com/roach88/quarrel/internal/relval"
)

// Unnest expands an ARRAY-valued expression into one row per element,
// correlated against the outer row. It is the canonical LATERAL right
// side: under CROSS/INNER an empty or NULL array contributes nothing and
// the outer row disappears; under LEFT LATERAL the join pads the outer
// row with a NULL element instead.
type Unnest struct {
	// Expr computes the array from the outer row.
	Expr relplan.Scalar
	// As names the single element column.
	As string
	// Type is the element type.
	Type relval.Kind
	// WithOffset adds a second INT64 column holding the zero-based
	// element position.
	Offset bool
	// OffsetAs names the offset column; empty means "offset".
	OffsetAs string
}

// Schema implements relplan.CorrelatedProducer.
func (u *Unnest) Schema() relrow.Schema {
	cols := []relrow.Column{relrow.Col(u.As, u.Type)}
	if u.Offset {
		name := u.OffsetAs
		if name == "" {
			name = "offset"
		}
		cols = append(cols, relrow.Col(name, relval.KindInt))
	}
	return relrow.NewSchema(cols...)
}

// ProduceFor implements relplan.CorrelatedProducer.
func (u *Unnest) ProduceFor(ctx *relplan.EvalContext, outer relrow.Row) (*relrow.Table, error) {
	v, err := u.Expr.Eval(ctx, outer)
	if err != nil {
		return nil, err
	}
	t := relrow.NewTable(u.Schema())
	if relval.IsNull(v) {
		return t, nil
	}
	arr, ok := v.(relval.Array)
	if !ok {
		return nil, relerr.New(relerr.CodeTypeMismatch, "unnest",
			"UNNEST wants an ARRAY, got %s", v.Kind())
	}
	for i, elem := range arr {
		row := relrow.Row{elem}
		if u.Offset {
			row = append(row, relval.Int(i))
		}
		t.Append(row)
	}
	return t, nil
}
