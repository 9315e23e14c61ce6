// Package relfunc carries reference implementations of the aggregate
// collaborator contract (relplan.Accumulator). The evaluation core does
// not depend on these; they exist so the CLI and the test suite have real
// aggregates to drive the grouping engine with. A production embedder
// supplies its own function library through the same interfaces.
package relfunc

import (
	"github.com/roach88/quarrel/internal/relerr"
	"github.com/roach88/quarrel/internal/relplan"
	"github.com/roach88/quarrel/internal/relval"
)

// CountStar counts rows.
func CountStar() relplan.AggregateSpec {
	return relplan.AggregateSpec{
		Name: "count(*)",
		Type: relval.KindInt,
		New:  func() relplan.Accumulator { return &countAcc{countNulls: true} },
	}
}

// Count counts non-NULL argument values.
func Count(arg relplan.Scalar) relplan.AggregateSpec {
	return relplan.AggregateSpec{
		Name: "count",
		Arg:  arg,
		Type: relval.KindInt,
		New:  func() relplan.Accumulator { return &countAcc{} },
	}
}

// CountDistinct counts distinct non-NULL argument values.
func CountDistinct(arg relplan.Scalar) relplan.AggregateSpec {
	spec := Count(arg)
	spec.Name = "count distinct"
	spec.Distinct = true
	return spec
}

type countAcc struct {
	countNulls bool
	n          int64
}

func (a *countAcc) Accumulate(v relval.Value) error {
	if a.countNulls || !relval.IsNull(v) {
		a.n++
	}
	return nil
}

func (a *countAcc) Finalize() (relval.Value, error) {
	return relval.Int(a.n), nil
}

// SumInt sums INT64 values, NULLs ignored; all-NULL input sums to NULL.
func SumInt(arg relplan.Scalar) relplan.AggregateSpec {
	return relplan.AggregateSpec{
		Name: "sum",
		Arg:  arg,
		Type: relval.KindInt,
		New:  func() relplan.Accumulator { return &sumIntAcc{} },
	}
}

type sumIntAcc struct {
	sum int64
	any bool
}

func (a *sumIntAcc) Accumulate(v relval.Value) error {
	switch val := v.(type) {
	case relval.Null:
		return nil
	case relval.Int:
		a.sum += int64(val)
		a.any = true
		return nil
	default:
		return relerr.New(relerr.CodeTypeMismatch, "sum", "SUM(INT64) got %s", v.Kind())
	}
}

func (a *sumIntAcc) Finalize() (relval.Value, error) {
	if !a.any {
		return relval.Null{}, nil
	}
	return relval.Int(a.sum), nil
}

// SumDouble sums DOUBLE values, NULLs ignored; all-NULL input sums to NULL.
func SumDouble(arg relplan.Scalar) relplan.AggregateSpec {
	return relplan.AggregateSpec{
		Name: "sum",
		Arg:  arg,
		Type: relval.KindDouble,
		New:  func() relplan.Accumulator { return &sumDoubleAcc{} },
	}
}

type sumDoubleAcc struct {
	sum float64
	any bool
}

func (a *sumDoubleAcc) Accumulate(v relval.Value) error {
	switch val := v.(type) {
	case relval.Null:
		return nil
	case relval.Double:
		a.sum += float64(val)
		a.any = true
		return nil
	case relval.Int:
		a.sum += float64(val)
		a.any = true
		return nil
	default:
		return relerr.New(relerr.CodeTypeMismatch, "sum", "SUM(DOUBLE) got %s", v.Kind())
	}
}

func (a *sumDoubleAcc) Finalize() (relval.Value, error) {
	if !a.any {
		return relval.Null{}, nil
	}
	return relval.Double(a.sum), nil
}

// Min returns the least non-NULL value under the sorting order. The
// collation context must match the one the evaluator runs with so string
// aggregation agrees with string comparison elsewhere.
func Min(arg relplan.Scalar, t relval.Kind, coll *relval.CollationContext) relplan.AggregateSpec {
	return relplan.AggregateSpec{
		Name: "min",
		Arg:  arg,
		Type: t,
		New:  func() relplan.Accumulator { return &extremeAcc{coll: coll, want: relval.Less} },
	}
}

// Max returns the greatest non-NULL value under the sorting order.
func Max(arg relplan.Scalar, t relval.Kind, coll *relval.CollationContext) relplan.AggregateSpec {
	return relplan.AggregateSpec{
		Name: "max",
		Arg:  arg,
		Type: t,
		New:  func() relplan.Accumulator { return &extremeAcc{coll: coll, want: relval.Greater} },
	}
}

type extremeAcc struct {
	coll *relval.CollationContext
	want relval.Ordering
	best relval.Value
}

func (a *extremeAcc) Accumulate(v relval.Value) error {
	if relval.IsNull(v) {
		return nil
	}
	if a.best == nil {
		a.best = v
		return nil
	}
	o, err := relval.Compare(a.coll, v, a.best)
	if err != nil {
		return err
	}
	if o == relval.Incomparable {
		return relerr.New(relerr.CodeTypeMismatch, "min/max",
			"%s has no order", v.Kind())
	}
	if o == a.want {
		a.best = v
	}
	return nil
}

func (a *extremeAcc) Finalize() (relval.Value, error) {
	if a.best == nil {
		return relval.Null{}, nil
	}
	return a.best, nil
}
