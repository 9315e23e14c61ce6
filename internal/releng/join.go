package releng

import (
	"context"

	"github.com/roach88/quarrel/internal/relerr"
	"github.com/roach88/quarrel/internal/relplan"
	"github.com/roach88/quarrel/internal/relrow"
	"github.com/roach88/quarrel/internal/relval"
)

// joinShape fixes the output schema of one join and knows how to build
// an output row from a (left, right) pair where either side may be nil,
// meaning NULL padding for that side.
type joinShape struct {
	out   relrow.Schema
	build func(l, r relrow.Row) relrow.Row
}

// evalJoin executes one join node. Row order is deterministic:
// left-major for matched and left-padded rows, then unmatched right rows
// in right order for RIGHT/FULL.
func (e *Evaluator) evalJoin(ctx context.Context, ev *env, j *relplan.Join) (*relrow.Table, error) {
	left, err := e.evalNode(ctx, ev, j.Left)
	if err != nil {
		return nil, err
	}

	var rightSchema relrow.Schema
	var rightRows []relrow.Row
	correlated := j.LateralRight != nil
	if correlated {
		rightSchema = j.LateralRight.Schema()
	} else {
		right, err := e.evalNode(ctx, ev, j.Right)
		if err != nil {
			return nil, err
		}
		rightSchema = right.Schema
		rightRows = right.Rows
	}

	shape, usingIdx, err := makeJoinShape(j, left.Schema, rightSchema)
	if err != nil {
		return nil, err
	}

	out := relrow.NewTable(shape.out)
	var matchedRight []bool
	if !correlated && (j.Kind == relplan.RightJoin || j.Kind == relplan.FullJoin) {
		matchedRight = make([]bool, len(rightRows))
	}

	for _, l := range left.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows := rightRows
		if correlated {
			// The right producer is re-evaluated per left row with the
			// left row as an explicit parameter. No memoization promise.
			rt, err := j.LateralRight.ProduceFor(e.exprCtx(), l)
			if err != nil {
				return nil, err
			}
			rows = rt.Rows
		}

		leftMatched := false
		for ri, r := range rows {
			ok, err := e.joinPairMatches(j, usingIdx, l, r)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			leftMatched = true
			if matchedRight != nil {
				matchedRight[ri] = true
			}
			out.Append(shape.build(l, r))
		}

		// Zero matches: LEFT and FULL preserve the left row with NULL
		// padding; CROSS and INNER drop it (a correlated cross with an
		// empty right side behaves as a correlated inner).
		if !leftMatched && (j.Kind == relplan.LeftJoin || j.Kind == relplan.FullJoin) {
			out.Append(shape.build(l, nil))
		}
	}

	if matchedRight != nil {
		for ri, r := range rightRows {
			if !matchedRight[ri] {
				out.Append(shape.build(nil, r))
			}
		}
	}
	return out, nil
}

// joinPairMatches decides whether one (left, right) pair joins.
// USING comparisons require TRUE equality per column; NULL never
// matches. An ON condition evaluates with three-valued semantics over
// the concatenated row; NULL and FALSE both exclude the pair. A nil
// condition matches unconditionally (CROSS, or LEFT LATERAL's ON TRUE).
func (e *Evaluator) joinPairMatches(j *relplan.Join, usingIdx [][2]int, l, r relrow.Row) (bool, error) {
	if len(j.Using) > 0 {
		for _, pair := range usingIdx {
			t, err := relval.Equals3VL(e.coll, l[pair[0]], r[pair[1]])
			if err != nil {
				return false, wrapCompareErr("join", err)
			}
			if t != relval.True {
				return false, nil
			}
		}
		return true, nil
	}
	if j.On == nil {
		return true, nil
	}
	t, err := e.evalTri(j.On, relrow.Concat(l, r))
	if err != nil {
		return false, err
	}
	return t == relval.True, nil
}

// makeJoinShape computes the output schema and row builder. ON-style
// joins concatenate left then right columns. USING merges the named
// columns once: INNER and LEFT take the merged value from the left
// input, RIGHT from the right input, FULL coalesces left then right.
func makeJoinShape(j *relplan.Join, left, right relrow.Schema) (joinShape, [][2]int, error) {
	if len(j.Using) == 0 {
		return joinShape{
			out: left.Concat(right),
			build: func(l, r relrow.Row) relrow.Row {
				if l == nil {
					l = left.NullRow()
				}
				if r == nil {
					r = right.NullRow()
				}
				return relrow.Concat(l, r)
			},
		}, nil, nil
	}

	usingIdx := make([][2]int, len(j.Using))
	inUsingLeft := make(map[int]bool, len(j.Using))
	inUsingRight := make(map[int]bool, len(j.Using))
	for i, name := range j.Using {
		li, ri := left.Index(name), right.Index(name)
		if li < 0 {
			return joinShape{}, nil, relerr.New(relerr.CodeInvalidJoinShape, "join",
				"USING column %q missing from left input", name)
		}
		if ri < 0 {
			return joinShape{}, nil, relerr.New(relerr.CodeInvalidJoinShape, "join",
				"USING column %q missing from right input", name)
		}
		usingIdx[i] = [2]int{li, ri}
		inUsingLeft[li] = true
		inUsingRight[ri] = true
	}

	var cols []relrow.Column
	for _, pair := range usingIdx {
		cols = append(cols, left.Columns[pair[0]])
	}
	var restLeft, restRight []int
	for i, c := range left.Columns {
		if !inUsingLeft[i] {
			cols = append(cols, c)
			restLeft = append(restLeft, i)
		}
	}
	for i, c := range right.Columns {
		if !inUsingRight[i] {
			cols = append(cols, c)
			restRight = append(restRight, i)
		}
	}

	kind := j.Kind
	shape := joinShape{
		out: relrow.NewSchema(cols...),
		build: func(l, r relrow.Row) relrow.Row {
			out := make(relrow.Row, 0, len(cols))
			for _, pair := range usingIdx {
				out = append(out, usingValue(kind, l, r, pair))
			}
			for _, li := range restLeft {
				if l == nil {
					out = append(out, relval.Null{})
				} else {
					out = append(out, l[li])
				}
			}
			for _, ri := range restRight {
				if r == nil {
					out = append(out, relval.Null{})
				} else {
					out = append(out, r[ri])
				}
			}
			return out
		},
	}
	return shape, usingIdx, nil
}

// usingValue picks the merged column value: left for INNER/LEFT, right
// for RIGHT, coalesce left-then-right for FULL.
func usingValue(kind relplan.JoinKind, l, r relrow.Row, pair [2]int) relval.Value {
	switch kind {
	case relplan.RightJoin:
		if r == nil {
			return relval.Null{}
		}
		return r[pair[1]]
	case relplan.FullJoin:
		// Value-level coalesce, not just row presence: a NULL left value
		// still falls through to the right side.
		var lv, rv relval.Value = relval.Null{}, relval.Null{}
		if l != nil {
			lv = l[pair[0]]
		}
		if r != nil {
			rv = r[pair[1]]
		}
		if !relval.IsNull(lv) {
			return lv
		}
		return rv
	default:
		if l == nil {
			return relval.Null{}
		}
		return l[pair[0]]
	}
}
