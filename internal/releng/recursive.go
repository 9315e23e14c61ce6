package releng

import (
	"context"

	"github.com/roach88/quarrel/internal/relerr"
	"github.com/roach88/quarrel/internal/relplan"
	"github.com/roach88/quarrel/internal/relrow"
)

// evalWith materializes each WITH binding once, in dependency order, then
// evaluates the body with every binding in scope. Inner WITH clauses
// shadow outer bindings of the same name for the duration of the node.
func (e *Evaluator) evalWith(ctx context.Context, ev *env, w *relplan.With) (*relrow.Table, error) {
	order, err := relplan.TopoOrder(w.Bindings)
	if err != nil {
		return nil, err
	}

	shadowed := make(map[string]*relrow.Table, len(w.Bindings))
	defer func() {
		for _, b := range w.Bindings {
			if prev, ok := shadowed[b.Name]; ok {
				ev.ctes[b.Name] = prev
			} else {
				delete(ev.ctes, b.Name)
			}
		}
	}()

	for _, i := range order {
		b := w.Bindings[i]
		if prev, ok := ev.ctes[b.Name]; ok {
			shadowed[b.Name] = prev
		}
		var t *relrow.Table
		if b.Recursive {
			t, err = e.evalRecursive(ctx, ev, b)
		} else {
			t, err = e.evalNode(ctx, ev, b.Plain)
		}
		if err != nil {
			return nil, err
		}
		ev.ctes[b.Name] = t
	}
	return e.evalNode(ctx, ev, w.Body)
}

// evalRecursive runs the iterative fixpoint for one recursive binding.
//
// The base term seeds both the result and the first working set. Each
// iteration evaluates the recursive term against the previous working
// set only (never the accumulated result), appends what it produced, and
// makes that the next working set. Under DISTINCT accumulation the rows
// appended and carried forward are only those not already in the result,
// keyed by grouping sameness. The loop halts when an iteration
// contributes nothing; exceeding the iteration cap aborts with
// NON_TERMINATING_RECURSION and no partial result.
func (e *Evaluator) evalRecursive(ctx context.Context, ev *env, cte relplan.CTE) (*relrow.Table, error) {
	base, err := e.evalNode(ctx, ev, cte.Base)
	if err != nil {
		return nil, err
	}

	result := relrow.NewTable(base.Schema)
	var seen map[string]bool
	if cte.Distinct {
		seen = make(map[string]bool)
	}

	working := relrow.NewTable(base.Schema)
	for _, row := range base.Rows {
		if cte.Distinct {
			key, err := e.rowKey(row)
			if err != nil {
				return nil, err
			}
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		result.Append(row)
		working.Append(row)
	}

	defer delete(ev.working, cte.Name)

	for iter := 0; len(working.Rows) > 0; iter++ {
		if iter >= e.maxIterations {
			return nil, relerr.New(relerr.CodeNonTerminatingRecursion, cte.Name,
				"recursive CTE %q did not converge within %d iterations", cte.Name, e.maxIterations)
		}
		ev.working[cte.Name] = working

		step, err := e.evalNode(ctx, ev, cte.Step)
		if err != nil {
			return nil, err
		}
		if err := checkStepSchema(e.coercer, cte.Name, base.Schema, step.Schema); err != nil {
			return nil, err
		}

		next := relrow.NewTable(base.Schema)
		for _, row := range step.Rows {
			if cte.Distinct {
				key, err := e.rowKey(row)
				if err != nil {
					return nil, err
				}
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			result.Append(row)
			next.Append(row)
		}
		working = next
	}
	return result, nil
}

// checkStepSchema verifies the recursive term's output against the base
// term's schema. Accumulation is positional union, so the result carries
// the base term's column names; each step column must still share a type
// domain with its base column.
func checkStepSchema(c relplan.Coercer, name string, base, step relrow.Schema) error {
	if step.Len() != base.Len() {
		return relerr.New(relerr.CodeColumnSetMismatch, name,
			"recursive term of %q produced %d columns, base produced %d",
			name, step.Len(), base.Len())
	}
	for i := range base.Columns {
		if _, err := c.CommonSupertype(base.Columns[i].Type, step.Columns[i].Type); err != nil {
			return relerr.New(relerr.CodeColumnSetMismatch, name,
				"recursive term of %q column %d has type %s, base has %s",
				name, i, step.Columns[i].Type, base.Columns[i].Type)
		}
	}
	return nil
}
