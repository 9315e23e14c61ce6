package releng

import (
	"context"
	"sort"

	"github.com/roach88/quarrel/internal/relerr"
	"github.com/roach88/quarrel/internal/relplan"
	"github.com/roach88/quarrel/internal/relrow"
	"github.com/roach88/quarrel/internal/relval"
)

// evalQuery runs the fixed clause pipeline: FROM, WHERE, grouping and
// aggregation, HAVING, QUALIFY, projection, DISTINCT, ORDER BY,
// OFFSET/LIMIT. Clauses the query omits are skipped; the order never
// changes.
func (e *Evaluator) evalQuery(ctx context.Context, ev *env, q *relplan.Query) (*relrow.Table, error) {
	input, err := e.evalFrom(ctx, ev, q)
	if err != nil {
		return nil, err
	}

	if q.Where != nil {
		input, err = e.filterRows(input, q.Where)
		if err != nil {
			return nil, err
		}
	}

	// An aggregate or a HAVING clause forces grouping even without an
	// explicit GROUP BY: the implicit GROUP BY () makes the whole input
	// one group.
	var projected *relrow.Table
	if q.GroupBy != nil || len(q.Aggregates) > 0 || q.Having != nil {
		projected, err = e.groupedPipeline(input, q)
	} else {
		projected, err = e.project(input, q.Select)
	}
	if err != nil {
		return nil, err
	}

	if q.Distinct {
		projected, err = e.distinctRows(projected)
		if err != nil {
			return nil, err
		}
	}

	if len(q.OrderBy) > 0 {
		if err := e.sortRows(projected, q.OrderBy); err != nil {
			return nil, err
		}
	}

	return sliceRows(projected, q.Offset, q.Limit)
}

// evalFrom materializes the FROM input. A query without FROM evaluates
// its select list once, over a single zero-width row.
func (e *Evaluator) evalFrom(ctx context.Context, ev *env, q *relplan.Query) (*relrow.Table, error) {
	if q.From == nil {
		t := relrow.NewTable(relrow.NewSchema())
		t.Append(relrow.Row{})
		return t, nil
	}
	return e.evalNode(ctx, ev, q.From)
}

// filterRows keeps the rows the predicate maps to TRUE. FALSE and
// UNKNOWN both drop the row.
func (e *Evaluator) filterRows(t *relrow.Table, pred relplan.Scalar) (*relrow.Table, error) {
	out := relrow.NewTable(t.Schema)
	for _, row := range t.Rows {
		tb, err := e.evalTri(pred, row)
		if err != nil {
			return nil, err
		}
		if tb == relval.True {
			out.Append(row)
		}
	}
	return out, nil
}

// groupedPipeline runs grouping, HAVING, QUALIFY and projection for a
// grouped query. In simple and grouping-sets modes the select list,
// HAVING and QUALIFY evaluate over the group output shape
// [keys..., aggregates...] with AggRefs bound to the aggregate columns.
// GROUP BY ALL instead infers the keys from a select list written over
// the FROM row; see projectGroupByAll.
func (e *Evaluator) groupedPipeline(input *relrow.Table, q *relplan.Query) (*relrow.Table, error) {
	spec := relplan.GroupingSpec{Mode: relplan.GroupBySimple}
	if q.GroupBy != nil {
		spec = *q.GroupBy
	}

	var allIdx []int
	if spec.Mode == relplan.GroupByAll {
		inferred, idx := relplan.InferGroupByAllIndexed(q.Select)
		spec = *inferred
		allIdx = idx
	}

	res, err := e.group(input, spec, q.Aggregates)
	if err != nil {
		return nil, err
	}

	keyWidth := len(spec.Items)
	for _, pred := range []relplan.Scalar{q.Having, q.Qualify} {
		if pred == nil {
			continue
		}
		bound := relplan.BindAggRefs(pred, keyWidth)
		if err := e.filterGroups(res, bound); err != nil {
			return nil, err
		}
	}

	if spec.Mode == relplan.GroupByAll {
		return e.projectGroupByAll(res, q.Select, allIdx, keyWidth)
	}

	if len(q.Select) == 0 {
		return res.Table, nil
	}
	bound := make([]relplan.OutputExpr, len(q.Select))
	for i, out := range q.Select {
		bound[i] = relplan.OutputExpr{
			Name: out.Name,
			Expr: relplan.BindAggRefs(out.Expr, keyWidth),
			Type: out.Type,
		}
	}
	return e.project(res.Table, bound)
}

// filterGroups applies a post-aggregation predicate in place, keeping
// Masks and Reps aligned with the surviving rows.
func (e *Evaluator) filterGroups(res *GroupResult, pred relplan.Scalar) error {
	kept := 0
	for i, row := range res.Table.Rows {
		tb, err := e.evalTri(pred, row)
		if err != nil {
			return err
		}
		if tb != relval.True {
			continue
		}
		res.Table.Rows[kept] = row
		res.Masks[kept] = res.Masks[i]
		res.Reps[kept] = res.Reps[i]
		kept++
	}
	res.Table.Rows = res.Table.Rows[:kept]
	res.Masks = res.Masks[:kept]
	res.Reps = res.Reps[:kept]
	return nil
}

// projectGroupByAll builds the output of a GROUP BY ALL query. Retained
// select items read their group key column directly. Aggregate-bearing
// items evaluate over the group row with AggRefs bound (columns outside
// aggregate arguments are not resolvable there, matching the rule that
// a non-grouped bare column may not appear next to an aggregate).
// Dropped items, the path prefixes and constants, evaluate over the
// group's representative row: every row of the group agrees on a
// dropped prefix, so the first row speaks for all of them.
func (e *Evaluator) projectGroupByAll(res *GroupResult, selectList []relplan.OutputExpr, allIdx []int, keyWidth int) (*relrow.Table, error) {
	keyOf := make(map[int]int, len(allIdx)) // select index -> key column
	for k, si := range allIdx {
		keyOf[si] = k
	}

	cols := make([]relrow.Column, len(selectList))
	for i, out := range selectList {
		cols[i] = relrow.Col(out.Name, out.Type)
	}
	ectx := e.exprCtx()

	out := relrow.NewTable(relrow.NewSchema(cols...))
	for g, groupRow := range res.Table.Rows {
		row := make(relrow.Row, len(selectList))
		for i, item := range selectList {
			keyCol, isKey := keyOf[i]
			switch {
			case isKey:
				row[i] = groupRow[keyCol]
			case item.Expr.HasAggregate():
				v, err := relplan.BindAggRefs(item.Expr, keyWidth).Eval(ectx, groupRow)
				if err != nil {
					return nil, err
				}
				row[i] = v
			default:
				rep := res.Reps[g]
				v, err := item.Expr.Eval(ectx, rep)
				if err != nil {
					return nil, err
				}
				row[i] = v
			}
		}
		out.Append(row)
	}
	return out, nil
}

// project evaluates the select list per input row. An empty select list
// passes the input through unchanged (the SELECT * shape).
func (e *Evaluator) project(t *relrow.Table, selectList []relplan.OutputExpr) (*relrow.Table, error) {
	if len(selectList) == 0 {
		out := relrow.NewTable(t.Schema)
		out.Append(t.Rows...)
		return out, nil
	}
	cols := make([]relrow.Column, len(selectList))
	for i, out := range selectList {
		cols[i] = relrow.Col(out.Name, out.Type)
	}
	ectx := e.exprCtx()
	out := relrow.NewTable(relrow.NewSchema(cols...))
	for _, row := range t.Rows {
		projected := make(relrow.Row, len(selectList))
		for i, item := range selectList {
			v, err := item.Expr.Eval(ectx, row)
			if err != nil {
				return nil, err
			}
			projected[i] = v
		}
		out.Append(projected)
	}
	return out, nil
}

// distinctRows keeps the first occurrence of each row under grouping
// sameness, so SELECT DISTINCT can never disagree with GROUP BY about
// which rows are the same.
func (e *Evaluator) distinctRows(t *relrow.Table) (*relrow.Table, error) {
	out := relrow.NewTable(t.Schema)
	seen := make(map[string]bool, len(t.Rows))
	for _, row := range t.Rows {
		key, err := e.rowKey(row)
		if err != nil {
			return nil, err
		}
		if !seen[key] {
			seen[key] = true
			out.Append(row)
		}
	}
	return out, nil
}

// sortRows orders the table in place, stably, by the sort keys. The sort
// uses the total order (NULL lowest, NaN above NULL, below -Inf), so
// ascending order defaults to NULLs first and descending to NULLs last;
// NullsFirst overrides the placement per key.
func (e *Evaluator) sortRows(t *relrow.Table, keys []relplan.SortKey) error {
	ectx := e.exprCtx()
	type keyed struct {
		row  relrow.Row
		vals relrow.Row
	}
	rows := make([]keyed, len(t.Rows))
	for i, row := range t.Rows {
		vals := make(relrow.Row, len(keys))
		for j, k := range keys {
			v, err := k.Expr.Eval(ectx, row)
			if err != nil {
				return err
			}
			vals[j] = v
		}
		rows[i] = keyed{row: row, vals: vals}
	}

	var sortErr error
	sort.SliceStable(rows, func(a, b int) bool {
		if sortErr != nil {
			return false
		}
		for j := range keys {
			c, err := e.compareSortKey(rows[a].vals[j], rows[b].vals[j], keys[j])
			if err != nil {
				sortErr = err
				return false
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
	if sortErr != nil {
		return sortErr
	}

	for i := range rows {
		t.Rows[i] = rows[i].row
	}
	t.Ordered = true
	return nil
}

func (e *Evaluator) compareSortKey(a, b relval.Value, k relplan.SortKey) (int, error) {
	an, bn := relval.IsNull(a), relval.IsNull(b)
	if an || bn {
		if an && bn {
			return 0, nil
		}
		nullsFirst := !k.Desc
		if k.NullsFirst != nil {
			nullsFirst = *k.NullsFirst
		}
		if an == nullsFirst {
			return -1, nil
		}
		return 1, nil
	}
	o, err := e.compareTotal(a, b)
	if err != nil {
		return 0, err
	}
	c := int(o)
	if k.Desc {
		c = -c
	}
	return c, nil
}

func (e *Evaluator) compareTotal(a, b relval.Value) (relval.Ordering, error) {
	o, err := relval.Compare(e.coll, a, b)
	if err != nil {
		return 0, wrapCompareErr("order-by", err)
	}
	if o == relval.Incomparable {
		return 0, relerr.New(relerr.CodeTypeMismatch, "order-by",
			"sort not defined for %s and %s", a.Kind(), b.Kind())
	}
	return o, nil
}

// sliceRows applies OFFSET then LIMIT. Both clamp rather than error when
// they run past the end; negative values are rejected.
func sliceRows(t *relrow.Table, offset, limit *int64) (*relrow.Table, error) {
	if offset == nil && limit == nil {
		return t, nil
	}
	start := int64(0)
	if offset != nil {
		if *offset < 0 {
			return nil, relerr.New(relerr.CodeIndexOutOfRange, "offset",
				"OFFSET %d is negative", *offset)
		}
		start = *offset
	}
	n := int64(len(t.Rows))
	if start > n {
		start = n
	}
	end := n
	if limit != nil {
		if *limit < 0 {
			return nil, relerr.New(relerr.CodeIndexOutOfRange, "limit",
				"LIMIT %d is negative", *limit)
		}
		if start+*limit < end {
			end = start + *limit
		}
	}
	out := relrow.NewTable(t.Schema)
	out.Ordered = t.Ordered
	out.Append(t.Rows[start:end]...)
	return out, nil
}
