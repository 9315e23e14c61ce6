package relplan

import (
	"fmt"
	"sort"

	"github.com/roach88/quarrel/internal/relerr"
	"github.com/roach88/quarrel/internal/relrow"
	"github.com/roach88/quarrel/internal/relval"
)

// EvalContext carries evaluation-wide state into scalar evaluation.
// It replaces any notion of ambient locale or session state.
type EvalContext struct {
	Collation *relval.CollationContext
}

// Scalar is a resolved, type-checked scalar expression over one row.
//
// This is the contract the external scalar-function library implements;
// the predicate combinators in this package (Cmp, And, Or, Not, ...) cover
// the comparison semantics that belong to the core itself. ColumnRefs
// reports which input positions the expression reads (used by GROUP BY
// ALL inference and correlation analysis); HasAggregate reports whether
// an aggregate call appears anywhere inside.
type Scalar interface {
	Eval(ctx *EvalContext, row relrow.Row) (relval.Value, error)
	ColumnRefs() []int
	HasAggregate() bool
}

// pathed is implemented by expressions with a stable access path
// (column references and struct field access chains). GROUP BY ALL uses
// paths to drop items that are pure prefixes of other inferred items.
type pathed interface {
	accessPath() []string
}

// ColumnRef reads one input column by position.
type ColumnRef struct {
	Index int
	Name  string // diagnostic only
}

func (c ColumnRef) Eval(_ *EvalContext, row relrow.Row) (relval.Value, error) {
	if c.Index < 0 || c.Index >= len(row) {
		return nil, relerr.New(relerr.CodeIndexOutOfRange, "column-ref",
			"column index %d out of range for row of width %d", c.Index, len(row))
	}
	return row[c.Index], nil
}

func (c ColumnRef) ColumnRefs() []int  { return []int{c.Index} }
func (c ColumnRef) HasAggregate() bool { return false }
func (c ColumnRef) accessPath() []string {
	return []string{fmt.Sprintf("#%d", c.Index)}
}

// Literal is a constant value.
type Literal struct {
	V relval.Value
}

func (l Literal) Eval(*EvalContext, relrow.Row) (relval.Value, error) { return l.V, nil }
func (l Literal) ColumnRefs() []int                                   { return nil }
func (l Literal) HasAggregate() bool                                  { return false }

// FieldAccess reads a named field out of a STRUCT-valued expression.
// NULL input yields NULL.
type FieldAccess struct {
	Base  Scalar
	Field string
}

func (f FieldAccess) Eval(ctx *EvalContext, row relrow.Row) (relval.Value, error) {
	base, err := f.Base.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if relval.IsNull(base) {
		return relval.Null{}, nil
	}
	st, ok := base.(relval.Struct)
	if !ok {
		return nil, relerr.New(relerr.CodeTypeMismatch, "field-access",
			"field access .%s on non-STRUCT value of kind %s", f.Field, base.Kind())
	}
	for _, fld := range st.Fields {
		if fld.Name == f.Field {
			return fld.Value, nil
		}
	}
	return nil, relerr.New(relerr.CodeTypeMismatch, "field-access",
		"STRUCT has no field %q", f.Field)
}

func (f FieldAccess) ColumnRefs() []int  { return f.Base.ColumnRefs() }
func (f FieldAccess) HasAggregate() bool { return f.Base.HasAggregate() }
func (f FieldAccess) accessPath() []string {
	p, ok := f.Base.(pathed)
	if !ok {
		return nil
	}
	base := p.accessPath()
	if base == nil {
		return nil
	}
	return append(append([]string{}, base...), f.Field)
}

// CmpOp enumerates comparison operators.
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

func (op CmpOp) String() string {
	switch op {
	case CmpEq:
		return "="
	case CmpNe:
		return "!="
	case CmpLt:
		return "<"
	case CmpLe:
		return "<="
	case CmpGt:
		return ">"
	default:
		return ">="
	}
}

// Cmp is a three-valued comparison.
//
// NULL operands yield NULL. NaN follows the predicate rules, not the sort
// order: every comparison against NaN is FALSE except != which is TRUE.
// Equality delegates to Equals3VL (so STRUCT equality works); ordering
// comparisons reject unordered kinds.
type Cmp struct {
	Op CmpOp
	L  Scalar
	R  Scalar
}

func (c Cmp) Eval(ctx *EvalContext, row relrow.Row) (relval.Value, error) {
	lv, err := c.L.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	rv, err := c.R.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	t, err := CompareValues(ctx, c.Op, lv, rv)
	if err != nil {
		return nil, err
	}
	return t.Value(), nil
}

func (c Cmp) ColumnRefs() []int  { return mergeRefs(c.L, c.R) }
func (c Cmp) HasAggregate() bool { return c.L.HasAggregate() || c.R.HasAggregate() }

// CompareValues applies one comparison operator to two values with full
// three-valued and NaN semantics.
func CompareValues(ctx *EvalContext, op CmpOp, lv, rv relval.Value) (relval.TriBool, error) {
	if relval.IsNull(lv) || relval.IsNull(rv) {
		return relval.Unknown, nil
	}
	switch op {
	case CmpEq:
		t, err := relval.Equals3VL(ctx.Collation, lv, rv)
		return t, wrapValueErr(err)
	case CmpNe:
		t, err := relval.Equals3VL(ctx.Collation, lv, rv)
		return t.Not(), wrapValueErr(err)
	}
	if isNaNValue(lv) || isNaNValue(rv) {
		return relval.False, nil
	}
	o, err := relval.Compare(ctx.Collation, lv, rv)
	if err != nil {
		return relval.Unknown, wrapValueErr(err)
	}
	if o == relval.Incomparable {
		return relval.Unknown, relerr.New(relerr.CodeTypeMismatch, "comparison",
			"%s not defined for %s and %s", op, lv.Kind(), rv.Kind())
	}
	switch op {
	case CmpLt:
		return relval.FromBool(o == relval.Less), nil
	case CmpLe:
		return relval.FromBool(o != relval.Greater), nil
	case CmpGt:
		return relval.FromBool(o == relval.Greater), nil
	default: // CmpGe
		return relval.FromBool(o != relval.Less), nil
	}
}

func isNaNValue(v relval.Value) bool {
	d, ok := v.(relval.Double)
	return ok && d != d
}

// And is the three-valued conjunction of its operands. Evaluation runs
// left to right and stops once the result is determined (permitted: the
// evaluation order of AND operands is unspecified).
type And struct {
	Exprs []Scalar
}

func (a And) Eval(ctx *EvalContext, row relrow.Row) (relval.Value, error) {
	result := relval.True
	for _, e := range a.Exprs {
		v, err := e.Eval(ctx, row)
		if err != nil {
			return nil, err
		}
		t, ok := relval.TriFromValue(v)
		if !ok {
			return nil, relerr.New(relerr.CodeTypeMismatch, "and",
				"AND operand is %s, want BOOL", v.Kind())
		}
		result = result.And(t)
		if result == relval.False {
			break
		}
	}
	return result.Value(), nil
}

func (a And) ColumnRefs() []int  { return mergeRefs(a.Exprs...) }
func (a And) HasAggregate() bool { return anyAggregate(a.Exprs) }

// Or is the three-valued disjunction, short-circuiting on TRUE.
type Or struct {
	Exprs []Scalar
}

func (o Or) Eval(ctx *EvalContext, row relrow.Row) (relval.Value, error) {
	result := relval.False
	for _, e := range o.Exprs {
		v, err := e.Eval(ctx, row)
		if err != nil {
			return nil, err
		}
		t, ok := relval.TriFromValue(v)
		if !ok {
			return nil, relerr.New(relerr.CodeTypeMismatch, "or",
				"OR operand is %s, want BOOL", v.Kind())
		}
		result = result.Or(t)
		if result == relval.True {
			break
		}
	}
	return result.Value(), nil
}

func (o Or) ColumnRefs() []int  { return mergeRefs(o.Exprs...) }
func (o Or) HasAggregate() bool { return anyAggregate(o.Exprs) }

// Not is three-valued negation.
type Not struct {
	X Scalar
}

func (n Not) Eval(ctx *EvalContext, row relrow.Row) (relval.Value, error) {
	v, err := n.X.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	t, ok := relval.TriFromValue(v)
	if !ok {
		return nil, relerr.New(relerr.CodeTypeMismatch, "not",
			"NOT operand is %s, want BOOL", v.Kind())
	}
	return t.Not().Value(), nil
}

func (n Not) ColumnRefs() []int  { return n.X.ColumnRefs() }
func (n Not) HasAggregate() bool { return n.X.HasAggregate() }

// IsNull implements `x IS [NOT] NULL`. Never returns NULL.
type IsNull struct {
	X      Scalar
	Negate bool
}

func (i IsNull) Eval(ctx *EvalContext, row relrow.Row) (relval.Value, error) {
	v, err := i.X.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	return relval.Bool(relval.IsNull(v) != i.Negate), nil
}

func (i IsNull) ColumnRefs() []int  { return i.X.ColumnRefs() }
func (i IsNull) HasAggregate() bool { return i.X.HasAggregate() }

// IsUnknown implements `x IS [NOT] UNKNOWN` over a boolean operand.
// Never returns NULL.
type IsUnknown struct {
	X      Scalar
	Negate bool
}

func (i IsUnknown) Eval(ctx *EvalContext, row relrow.Row) (relval.Value, error) {
	v, err := i.X.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	t, ok := relval.TriFromValue(v)
	if !ok {
		return nil, relerr.New(relerr.CodeTypeMismatch, "is-unknown",
			"IS UNKNOWN operand is %s, want BOOL", v.Kind())
	}
	return relval.Bool((t == relval.Unknown) != i.Negate), nil
}

func (i IsUnknown) ColumnRefs() []int  { return i.X.ColumnRefs() }
func (i IsUnknown) HasAggregate() bool { return i.X.HasAggregate() }

// IsDistinct implements `a IS [NOT] DISTINCT FROM b`. Never returns NULL:
// NULL is not distinct from NULL.
type IsDistinct struct {
	L      Scalar
	R      Scalar
	Negate bool
}

func (d IsDistinct) Eval(ctx *EvalContext, row relrow.Row) (relval.Value, error) {
	lv, err := d.L.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	rv, err := d.R.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	distinct, err := relval.IsDistinctFrom(ctx.Collation, lv, rv)
	if err != nil {
		return nil, wrapValueErr(err)
	}
	return relval.Bool(distinct != d.Negate), nil
}

func (d IsDistinct) ColumnRefs() []int  { return mergeRefs(d.L, d.R) }
func (d IsDistinct) HasAggregate() bool { return d.L.HasAggregate() || d.R.HasAggregate() }

// Like implements `input LIKE pattern`, three-valued on NULL operands.
type Like struct {
	Input   Scalar
	Pattern Scalar
}

func (l Like) Eval(ctx *EvalContext, row relrow.Row) (relval.Value, error) {
	in, err := l.Input.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	pat, err := l.Pattern.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if relval.IsNull(in) || relval.IsNull(pat) {
		return relval.Null{}, nil
	}
	is, ok1 := in.(relval.String)
	ps, ok2 := pat.(relval.String)
	if !ok1 || !ok2 {
		return nil, relerr.New(relerr.CodeTypeMismatch, "like",
			"LIKE wants STRING operands, got %s and %s", in.Kind(), pat.Kind())
	}
	t, err := relval.Like(ctx.Collation, is, ps)
	if err != nil {
		return nil, wrapValueErr(err)
	}
	return t.Value(), nil
}

func (l Like) ColumnRefs() []int  { return mergeRefs(l.Input, l.Pattern) }
func (l Like) HasAggregate() bool { return l.Input.HasAggregate() || l.Pattern.HasAggregate() }

// In implements `x IN (e1, ..., en)` with three-valued membership:
// any TRUE match wins; otherwise any NULL comparison makes the result
// NULL; otherwise FALSE. STRUCT operands are allowed (IN is one of the
// three operators STRUCT supports).
type In struct {
	X    Scalar
	List []Scalar
}

func (in In) Eval(ctx *EvalContext, row relrow.Row) (relval.Value, error) {
	xv, err := in.X.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	result := relval.False
	for _, e := range in.List {
		ev, err := e.Eval(ctx, row)
		if err != nil {
			return nil, err
		}
		t, err := CompareValues(ctx, CmpEq, xv, ev)
		if err != nil {
			return nil, err
		}
		result = result.Or(t)
		if result == relval.True {
			break
		}
	}
	return result.Value(), nil
}

func (in In) ColumnRefs() []int {
	return mergeRefs(append([]Scalar{in.X}, in.List...)...)
}
func (in In) HasAggregate() bool {
	return in.X.HasAggregate() || anyAggregate(in.List)
}

// Func adapts an externally evaluated scalar function into the plan.
// Refs must list the columns the function reads; Aggregate marks
// aggregate calls so GROUP BY ALL inference can exclude the item.
type Func struct {
	Name      string
	Refs      []int
	Aggregate bool
	Fn        func(ctx *EvalContext, row relrow.Row) (relval.Value, error)
}

func (f Func) Eval(ctx *EvalContext, row relrow.Row) (relval.Value, error) {
	return f.Fn(ctx, row)
}

func (f Func) ColumnRefs() []int  { return f.Refs }
func (f Func) HasAggregate() bool { return f.Aggregate }

func mergeRefs(exprs ...Scalar) []int {
	seen := make(map[int]bool)
	var out []int
	for _, e := range exprs {
		for _, r := range e.ColumnRefs() {
			if !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}
	sort.Ints(out)
	return out
}

func anyAggregate(exprs []Scalar) bool {
	for _, e := range exprs {
		if e.HasAggregate() {
			return true
		}
	}
	return false
}

// wrapValueErr maps relval's typed errors onto the structured error
// surface, passing EvalErrors through unchanged.
func wrapValueErr(err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *relerr.EvalError:
		return err
	case *relval.CollationError:
		return relerr.Wrap(relerr.CodeCollationConflict, "comparison", err)
	case *relval.TypeError:
		return relerr.Wrap(relerr.CodeTypeMismatch, "comparison", err)
	default:
		return err
	}
}

// AggRef references the result of Query.Aggregates[Index] inside a
// grouped query's select list, HAVING or QUALIFY. The orchestrator
// substitutes the aggregate's output column before evaluation; reaching
// Eval means the reference appeared outside a grouped projection.
type AggRef struct {
	Index int
}

func (a AggRef) Eval(*EvalContext, relrow.Row) (relval.Value, error) {
	return nil, relerr.New(relerr.CodeTypeMismatch, "agg-ref",
		"aggregate reference #%d outside a grouped projection", a.Index)
}

func (a AggRef) ColumnRefs() []int  { return nil }
func (a AggRef) HasAggregate() bool { return true }
