package releng

import (
	"github.com/roach88/quarrel/internal/relplan"
	"github.com/roach88/quarrel/internal/relrow"
	"github.com/roach88/quarrel/internal/relval"
)

// GroupResult is the grouping engine's output. Masks carries, per output
// row, the grouping-set bitset that produced it: a NULL key column whose
// mask bit is clear is a grouping placeholder, not data. Reps holds one
// representative input row per group (the group's first row in input
// order), used by GROUP BY ALL projection; a zero-row group (the
// GROUP BY () case on empty input) has a nil representative.
type GroupResult struct {
	Table *relrow.Table
	Masks []relrow.GroupingKey
	Reps  []relrow.Row
}

// groupState accumulates one group of one grouping set.
type groupState struct {
	keyVals relrow.Row
	first   relrow.Row
	accs    []relplan.Accumulator
	seen    []map[string]bool // distinct-aggregate argument sets
}

// group partitions the input per grouping set and applies aggregates in
// row order. Grouping sameness treats all NULLs as one key, which is
// distinct from predicate equality on purpose. Output rows are shaped
// [key items..., aggregate results...], key columns excluded from a set
// NULL-filled; sets emit in ExpandSets order and, within one set, groups
// emit in first-appearance order.
func (e *Evaluator) group(input *relrow.Table, spec relplan.GroupingSpec, aggs []relplan.AggregateSpec) (*GroupResult, error) {
	keys, err := spec.ExpandSets()
	if err != nil {
		return nil, err
	}

	cols := make([]relrow.Column, 0, len(spec.Items)+len(aggs))
	for _, item := range spec.Items {
		cols = append(cols, relrow.Col(item.Name, item.Type))
	}
	for _, agg := range aggs {
		cols = append(cols, relrow.Col(agg.Name, agg.Type))
	}

	res := &GroupResult{Table: relrow.NewTable(relrow.NewSchema(cols...))}
	for _, mask := range keys {
		if err := e.groupOneSet(input, spec.Items, aggs, mask, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (e *Evaluator) groupOneSet(input *relrow.Table, items []relplan.GroupItem, aggs []relplan.AggregateSpec, mask relrow.GroupingKey, res *GroupResult) error {
	ectx := e.exprCtx()
	groups := make(map[string]*groupState)
	var order []string

	newState := func(keyVals relrow.Row, first relrow.Row) *groupState {
		st := &groupState{
			keyVals: keyVals,
			first:   first,
			accs:    make([]relplan.Accumulator, len(aggs)),
			seen:    make([]map[string]bool, len(aggs)),
		}
		for i, agg := range aggs {
			st.accs[i] = agg.New()
			if agg.Distinct {
				st.seen[i] = make(map[string]bool)
			}
		}
		return st
	}

	for _, row := range input.Rows {
		keyVals := make(relrow.Row, len(items))
		var encoded []byte
		for i, item := range items {
			if !mask.Has(i) {
				// Grouping placeholder; the mask keeps it distinguishable
				// from a data NULL.
				keyVals[i] = relval.Null{}
				encoded = append(encoded, 'x')
				continue
			}
			v, err := item.Expr.Eval(ectx, row)
			if err != nil {
				return err
			}
			keyVals[i] = v
			encoded, err = relval.AppendGroupKey(encoded, e.coll, v)
			if err != nil {
				return err
			}
		}

		key := string(encoded)
		st, ok := groups[key]
		if !ok {
			st = newState(keyVals, row)
			groups[key] = st
			order = append(order, key)
		}

		for i, agg := range aggs {
			arg := relval.Value(relval.Bool(true))
			if agg.Arg != nil {
				var err error
				arg, err = agg.Arg.Eval(ectx, row)
				if err != nil {
					return err
				}
			}
			if agg.Distinct {
				argKey, err := relval.AppendGroupKey(nil, e.coll, arg)
				if err != nil {
					return err
				}
				if st.seen[i][string(argKey)] {
					continue
				}
				st.seen[i][string(argKey)] = true
			}
			if err := st.accs[i].Accumulate(arg); err != nil {
				return err
			}
		}
	}

	// A grouping set with no key columns yields exactly one group even
	// over zero input rows (the grand-total row of GROUP BY () and the
	// empty set inside ROLLUP/CUBE).
	if len(order) == 0 && maskEmpty(mask, len(items)) {
		keyVals := make(relrow.Row, len(items))
		for i := range keyVals {
			keyVals[i] = relval.Null{}
		}
		st := newState(keyVals, nil)
		groups["\x00empty"] = st
		order = append(order, "\x00empty")
	}

	for _, key := range order {
		st := groups[key]
		out := make(relrow.Row, 0, len(items)+len(aggs))
		out = append(out, st.keyVals...)
		for _, acc := range st.accs {
			v, err := acc.Finalize()
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		res.Table.Append(out)
		res.Masks = append(res.Masks, mask)
		res.Reps = append(res.Reps, st.first)
	}
	return nil
}

func maskEmpty(mask relrow.GroupingKey, numItems int) bool {
	for i := 0; i < numItems; i++ {
		if mask.Has(i) {
			return false
		}
	}
	return true
}
