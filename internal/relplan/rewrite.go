package relplan

// BindAggRefs rewrites every AggRef{i} in the expression into
// ColumnRef{base + i}, binding aggregate references to the aggregate
// output columns of a grouped row. Expressions are immutable, so the
// rewrite returns a new tree and leaves the input untouched.
func BindAggRefs(s Scalar, base int) Scalar {
	switch e := s.(type) {
	case AggRef:
		return ColumnRef{Index: base + e.Index, Name: "agg"}
	case Cmp:
		return Cmp{Op: e.Op, L: BindAggRefs(e.L, base), R: BindAggRefs(e.R, base)}
	case And:
		return And{Exprs: bindAggRefList(e.Exprs, base)}
	case Or:
		return Or{Exprs: bindAggRefList(e.Exprs, base)}
	case Not:
		return Not{X: BindAggRefs(e.X, base)}
	case IsNull:
		return IsNull{X: BindAggRefs(e.X, base), Negate: e.Negate}
	case IsUnknown:
		return IsUnknown{X: BindAggRefs(e.X, base), Negate: e.Negate}
	case IsDistinct:
		return IsDistinct{L: BindAggRefs(e.L, base), R: BindAggRefs(e.R, base), Negate: e.Negate}
	case Like:
		return Like{Input: BindAggRefs(e.Input, base), Pattern: BindAggRefs(e.Pattern, base)}
	case In:
		return In{X: BindAggRefs(e.X, base), List: bindAggRefList(e.List, base)}
	case FieldAccess:
		return FieldAccess{Base: BindAggRefs(e.Base, base), Field: e.Field}
	default:
		// Literal, ColumnRef, Func and external scalars carry no AggRefs.
		return s
	}
}

func bindAggRefList(exprs []Scalar, base int) []Scalar {
	out := make([]Scalar, len(exprs))
	for i, e := range exprs {
		out[i] = BindAggRefs(e, base)
	}
	return out
}
