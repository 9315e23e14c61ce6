package releng

import (
	"context"

	"github.com/roach88/quarrel/internal/relerr"
	"github.com/roach88/quarrel/internal/relplan"
	"github.com/roach88/quarrel/internal/relrow"
	"github.com/roach88/quarrel/internal/relval"
)

// evalSetOp executes UNION/INTERSECT/EXCEPT over two inputs.
//
// Column reconciliation happens first (positionally or by name), both
// inputs are projected to the common output schema, then multiset
// arithmetic runs over grouping-sameness row keys: for a row with
// multiplicity m on the left and n on the right, UNION ALL keeps m+n,
// INTERSECT ALL keeps min(m,n), EXCEPT ALL keeps max(m-n, 0); DISTINCT
// variants cap multiplicity at one. Output order is deterministic:
// left-input order first, then (for UNION) right-input order.
func (e *Evaluator) evalSetOp(ctx context.Context, ev *env, s *relplan.SetOp) (*relrow.Table, error) {
	left, err := e.evalNode(ctx, ev, s.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.evalNode(ctx, ev, s.Right)
	if err != nil {
		return nil, err
	}

	out, leftIdx, rightIdx, err := e.reconcileColumns(s, left.Schema, right.Schema)
	if err != nil {
		return nil, err
	}

	leftRows := projectRows(left.Rows, leftIdx)
	rightRows := projectRows(right.Rows, rightIdx)

	result := relrow.NewTable(out)
	switch s.Op {
	case relplan.Union:
		err = e.combineUnion(result, leftRows, rightRows, s.Mode)
	case relplan.Intersect:
		err = e.combineIntersect(result, leftRows, rightRows, s.Mode)
	default:
		err = e.combineExcept(result, leftRows, rightRows, s.Mode)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// projection index -1 means the side lacks the column: NULL-fill.
func projectRows(rows []relrow.Row, idx []int) []relrow.Row {
	out := make([]relrow.Row, len(rows))
	for i, row := range rows {
		projected := make(relrow.Row, len(idx))
		for j, src := range idx {
			if src < 0 {
				projected[j] = relval.Null{}
			} else {
				projected[j] = row[src]
			}
		}
		out[i] = projected
	}
	return out
}

// reconcileColumns pairs the two inputs' columns per the match mode and
// returns the output schema plus per-side projection indexes.
func (e *Evaluator) reconcileColumns(s *relplan.SetOp, left, right relrow.Schema) (relrow.Schema, []int, []int, error) {
	op := s.Op.String()

	if s.Match == relplan.Positional {
		if left.Len() != right.Len() {
			return relrow.Schema{}, nil, nil, relerr.New(relerr.CodeColumnSetMismatch, op,
				"column count mismatch: %d vs %d", left.Len(), right.Len())
		}
		cols := make([]relrow.Column, left.Len())
		leftIdx := make([]int, left.Len())
		rightIdx := make([]int, left.Len())
		for i := range left.Columns {
			super, err := e.coercer.CommonSupertype(left.Columns[i].Type, right.Columns[i].Type)
			if err != nil {
				return relrow.Schema{}, nil, nil, err
			}
			// Output column names come from the left input.
			cols[i] = relrow.Col(left.Columns[i].Name, super)
			leftIdx[i], rightIdx[i] = i, i
		}
		return relrow.NewSchema(cols...), leftIdx, rightIdx, nil
	}

	// Name matching needs unambiguous names on both sides.
	if dup, ok := left.HasDuplicateNames(); ok {
		return relrow.Schema{}, nil, nil, relerr.New(relerr.CodeColumnSetMismatch, op,
			"duplicate column %q on left input", dup)
	}
	if dup, ok := right.HasDuplicateNames(); ok {
		return relrow.Schema{}, nil, nil, relerr.New(relerr.CodeColumnSetMismatch, op,
			"duplicate column %q on right input", dup)
	}

	type pairing struct {
		name   string
		li, ri int // -1 = absent on that side
	}
	var pairs []pairing

	switch s.Match {
	case relplan.ByNameStrict:
		if left.Len() != right.Len() {
			return relrow.Schema{}, nil, nil, relerr.New(relerr.CodeColumnSetMismatch, op,
				"BY NAME requires the same column set: %d vs %d columns", left.Len(), right.Len())
		}
		for li, c := range left.Columns {
			ri := right.Index(c.Name)
			if ri < 0 {
				return relrow.Schema{}, nil, nil, relerr.New(relerr.CodeColumnSetMismatch, op,
					"BY NAME column %q missing from right input", c.Name)
			}
			pairs = append(pairs, pairing{name: c.Name, li: li, ri: ri})
		}
	case relplan.ByNameInner:
		for li, c := range left.Columns {
			if ri := right.Index(c.Name); ri >= 0 {
				pairs = append(pairs, pairing{name: c.Name, li: li, ri: ri})
			}
		}
		if len(pairs) == 0 {
			return relrow.Schema{}, nil, nil, relerr.New(relerr.CodeColumnSetMismatch, op,
				"CORRESPONDING requires at least one common column")
		}
	case relplan.ByNameLeft:
		for li, c := range left.Columns {
			pairs = append(pairs, pairing{name: c.Name, li: li, ri: right.Index(c.Name)})
		}
	case relplan.ByNameFull:
		for li, c := range left.Columns {
			pairs = append(pairs, pairing{name: c.Name, li: li, ri: right.Index(c.Name)})
		}
		for ri, c := range right.Columns {
			if left.Index(c.Name) < 0 {
				pairs = append(pairs, pairing{name: c.Name, li: -1, ri: ri})
			}
		}
	default:
		return relrow.Schema{}, nil, nil, relerr.New(relerr.CodeColumnSetMismatch, op,
			"unknown match mode %d", s.Match)
	}

	// ON/BY column list: restrict to exactly the listed columns in the
	// listed order.
	if len(s.ByColumns) > 0 {
		byName := make(map[string]pairing, len(pairs))
		for _, p := range pairs {
			byName[p.name] = p
		}
		restricted := make([]pairing, 0, len(s.ByColumns))
		for _, name := range s.ByColumns {
			p, ok := byName[name]
			if !ok {
				return relrow.Schema{}, nil, nil, relerr.New(relerr.CodeColumnSetMismatch, op,
					"BY column %q is not a matched column", name)
			}
			restricted = append(restricted, p)
		}
		pairs = restricted
	}

	cols := make([]relrow.Column, len(pairs))
	leftIdx := make([]int, len(pairs))
	rightIdx := make([]int, len(pairs))
	for i, p := range pairs {
		t := relval.KindNull
		switch {
		case p.li >= 0 && p.ri >= 0:
			super, err := e.coercer.CommonSupertype(left.Columns[p.li].Type, right.Columns[p.ri].Type)
			if err != nil {
				return relrow.Schema{}, nil, nil, err
			}
			t = super
		case p.li >= 0:
			t = left.Columns[p.li].Type
		default:
			t = right.Columns[p.ri].Type
		}
		cols[i] = relrow.Col(p.name, t)
		leftIdx[i], rightIdx[i] = p.li, p.ri
	}
	return relrow.NewSchema(cols...), leftIdx, rightIdx, nil
}

func (e *Evaluator) rowKey(row relrow.Row) (string, error) {
	return relval.GroupKeyOfRowValues(e.coll, row)
}

func (e *Evaluator) combineUnion(out *relrow.Table, left, right []relrow.Row, mode relplan.SetMode) error {
	if mode == relplan.All {
		out.Append(left...)
		out.Append(right...)
		return nil
	}
	seen := make(map[string]bool)
	for _, row := range append(append([]relrow.Row{}, left...), right...) {
		key, err := e.rowKey(row)
		if err != nil {
			return err
		}
		if !seen[key] {
			seen[key] = true
			out.Append(row)
		}
	}
	return nil
}

func (e *Evaluator) combineIntersect(out *relrow.Table, left, right []relrow.Row, mode relplan.SetMode) error {
	counts := make(map[string]int)
	for _, row := range right {
		key, err := e.rowKey(row)
		if err != nil {
			return err
		}
		counts[key]++
	}
	emitted := make(map[string]bool)
	for _, row := range left {
		key, err := e.rowKey(row)
		if err != nil {
			return err
		}
		switch mode {
		case relplan.All:
			if counts[key] > 0 {
				counts[key]--
				out.Append(row)
			}
		default:
			if counts[key] > 0 && !emitted[key] {
				emitted[key] = true
				out.Append(row)
			}
		}
	}
	return nil
}

func (e *Evaluator) combineExcept(out *relrow.Table, left, right []relrow.Row, mode relplan.SetMode) error {
	counts := make(map[string]int)
	for _, row := range right {
		key, err := e.rowKey(row)
		if err != nil {
			return err
		}
		counts[key]++
	}
	emitted := make(map[string]bool)
	for _, row := range left {
		key, err := e.rowKey(row)
		if err != nil {
			return err
		}
		switch mode {
		case relplan.All:
			if counts[key] > 0 {
				counts[key]--
				continue
			}
			out.Append(row)
		default:
			if counts[key] == 0 && !emitted[key] {
				emitted[key] = true
				out.Append(row)
			}
		}
	}
	return nil
}
