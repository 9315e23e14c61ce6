package relplan

import (
	"github.com/roach88/quarrel/internal/relerr"
)

// Validate performs every construction-time structural check on a plan
// tree, before any row flows:
//
//   - join shapes: ON vs USING exclusivity, USING on CROSS, LATERAL with
//     RIGHT/FULL, unparenthesized comma cross join followed by RIGHT/FULL
//   - set operations: ON/BY column lists only with name matching
//   - WITH bindings: unique names, recursive term shape (exactly one
//     self-reference, only in an allowed FROM position), acyclic
//     cross-binding references
//
// Errors are *relerr.EvalError with codes INVALID_JOIN_SHAPE,
// INVALID_RECURSIVE_SHAPE or COLUMN_SET_MISMATCH.
func Validate(n Node) error {
	return validateNode(n)
}

func validateNode(n Node) error {
	switch node := n.(type) {
	case nil:
		return relerr.New(relerr.CodeInvalidJoinShape, "plan", "nil plan node")
	case *Scan, *CTERef, *SelfRef:
		return nil
	case *Join:
		return validateJoin(node)
	case *SetOp:
		return validateSetOp(node)
	case *Group:
		if node.Spec.Mode == GroupBySets && len(node.Spec.Sets) == 0 {
			return relerr.New(relerr.CodeInvalidJoinShape, "group",
				"GROUPING SETS mode with no sets")
		}
		return validateNode(node.Input)
	case *With:
		return validateWith(node)
	case *Query:
		if node.From != nil {
			return validateNode(node.From)
		}
		return nil
	default:
		return relerr.New(relerr.CodeInvalidJoinShape, "plan",
			"unknown plan node %T", n)
	}
}

func validateJoin(j *Join) error {
	if (j.Right == nil) == (j.LateralRight == nil) {
		return relerr.New(relerr.CodeInvalidJoinShape, "join",
			"join needs exactly one of a plan right side or a lateral producer")
	}
	if j.On != nil && len(j.Using) > 0 {
		return relerr.New(relerr.CodeInvalidJoinShape, "join",
			"ON and USING are mutually exclusive")
	}
	if len(j.Using) > 0 && j.Kind == CrossJoin {
		return relerr.New(relerr.CodeInvalidJoinShape, "join",
			"CROSS JOIN does not take USING")
	}
	if j.LateralRight != nil {
		switch j.Kind {
		case CrossJoin, InnerJoin, LeftJoin:
			// allowed
		default:
			return relerr.New(relerr.CodeInvalidJoinShape, "join",
				"LATERAL is not allowed with %s JOIN", j.Kind)
		}
	}
	if j.CommaCross && j.Kind != CrossJoin {
		return relerr.New(relerr.CodeInvalidJoinShape, "join",
			"comma syntax only produces CROSS joins")
	}
	// Joins associate left-to-right; a comma cross join cannot be
	// immediately followed by an unparenthesized RIGHT or FULL join.
	if j.Kind == RightJoin || j.Kind == FullJoin {
		if left, ok := j.Left.(*Join); ok && left.CommaCross {
			return relerr.New(relerr.CodeInvalidJoinShape, "join",
				"%s JOIN cannot directly follow a comma cross join", j.Kind)
		}
	}
	if err := validateNode(j.Left); err != nil {
		return err
	}
	if j.Right != nil {
		return validateNode(j.Right)
	}
	return nil
}

func validateSetOp(s *SetOp) error {
	if len(s.ByColumns) > 0 && s.Match == Positional {
		return relerr.New(relerr.CodeColumnSetMismatch, "set-op",
			"ON/BY column list requires name matching")
	}
	if err := validateNode(s.Left); err != nil {
		return err
	}
	return validateNode(s.Right)
}

func validateWith(w *With) error {
	names := make(map[string]bool, len(w.Bindings))
	for _, b := range w.Bindings {
		if names[b.Name] {
			return relerr.New(relerr.CodeInvalidRecursiveShape, b.Name,
				"duplicate WITH binding %q", b.Name)
		}
		names[b.Name] = true
	}

	for _, b := range w.Bindings {
		if err := validateBinding(b); err != nil {
			return err
		}
	}
	if _, err := TopoOrder(w.Bindings); err != nil {
		return err
	}
	return validateNode(w.Body)
}

func validateBinding(b CTE) error {
	if !b.Recursive {
		if b.Plain == nil || b.Base != nil || b.Step != nil {
			return relerr.New(relerr.CodeInvalidRecursiveShape, b.Name,
				"non-recursive binding must set Plain only")
		}
		count := 0
		if err := walkSelfRefs(b.Plain, b.Name, false, &count); err != nil {
			return err
		}
		if err := checkSelfCTERef(b.Plain, b.Name); err != nil {
			return err
		}
		return validateNode(b.Plain)
	}

	if b.Plain != nil || b.Base == nil || b.Step == nil {
		return relerr.New(relerr.CodeInvalidRecursiveShape, b.Name,
			"recursive binding must set Base and Step")
	}
	// The base term may not see the binding at all.
	count := 0
	if err := walkSelfRefs(b.Base, b.Name, false, &count); err != nil {
		return err
	}
	// The recursive term must reference the binding exactly once and only
	// in an allowed FROM position.
	count = 0
	if err := walkSelfRefs(b.Step, b.Name, true, &count); err != nil {
		return err
	}
	if count != 1 {
		return relerr.New(relerr.CodeInvalidRecursiveShape, b.Name,
			"recursive term must contain exactly one self-reference, found %d", count)
	}
	if err := validateNode(b.Base); err != nil {
		return err
	}
	return validateNode(b.Step)
}

// walkSelfRefs walks a recursive term tracking whether a self-reference
// is currently permitted. A self-reference is disallowed under DISTINCT,
// GROUP BY, aggregation, ORDER BY, LIMIT/OFFSET, and on the NULL-padded
// side of an outer join (the right operand of LEFT, the left operand of
// RIGHT, anywhere under FULL).
func walkSelfRefs(n Node, name string, allowed bool, count *int) error {
	switch node := n.(type) {
	case nil:
		return nil
	case *Scan, *CTERef:
		return nil
	case *SelfRef:
		if node.Name != name {
			return relerr.New(relerr.CodeInvalidRecursiveShape, name,
				"self-reference to %q inside term of %q", node.Name, name)
		}
		if !allowed {
			return relerr.New(relerr.CodeInvalidRecursiveShape, name,
				"self-reference in a disallowed position")
		}
		*count++
		return nil
	case *Join:
		leftAllowed, rightAllowed := allowed, allowed
		switch node.Kind {
		case LeftJoin:
			rightAllowed = false
		case RightJoin:
			leftAllowed = false
		case FullJoin:
			leftAllowed, rightAllowed = false, false
		}
		if err := walkSelfRefs(node.Left, name, leftAllowed, count); err != nil {
			return err
		}
		if node.Right != nil {
			return walkSelfRefs(node.Right, name, rightAllowed, count)
		}
		return nil
	case *SetOp:
		if err := walkSelfRefs(node.Left, name, allowed, count); err != nil {
			return err
		}
		return walkSelfRefs(node.Right, name, allowed, count)
	case *Group:
		return walkSelfRefs(node.Input, name, false, count)
	case *Query:
		sub := allowed
		if node.Distinct || node.GroupBy != nil || len(node.Aggregates) > 0 ||
			len(node.OrderBy) > 0 || node.Limit != nil || node.Offset != nil {
			sub = false
		}
		return walkSelfRefs(node.From, name, sub, count)
	case *With:
		for _, b := range node.Bindings {
			for _, sub := range []Node{b.Plain, b.Base, b.Step} {
				if err := walkSelfRefs(sub, name, false, count); err != nil {
					return err
				}
			}
		}
		return walkSelfRefs(node.Body, name, false, count)
	default:
		return relerr.New(relerr.CodeInvalidRecursiveShape, name,
			"unknown plan node %T", n)
	}
}

// checkSelfCTERef rejects a non-recursive binding that reads itself
// through a CTERef; only recursive bindings may self-reference, and only
// through SelfRef.
func checkSelfCTERef(n Node, name string) error {
	found := false
	forEachCTERef(n, func(ref string) {
		if ref == name {
			found = true
		}
	})
	if found {
		return relerr.New(relerr.CodeInvalidRecursiveShape, name,
			"non-recursive binding %q references itself", name)
	}
	return nil
}

// forEachCTERef visits every CTERef name in a subtree.
func forEachCTERef(n Node, fn func(name string)) {
	switch node := n.(type) {
	case nil:
		return
	case *CTERef:
		fn(node.Name)
	case *Join:
		forEachCTERef(node.Left, fn)
		forEachCTERef(node.Right, fn)
	case *SetOp:
		forEachCTERef(node.Left, fn)
		forEachCTERef(node.Right, fn)
	case *Group:
		forEachCTERef(node.Input, fn)
	case *Query:
		forEachCTERef(node.From, fn)
	case *With:
		for _, b := range node.Bindings {
			forEachCTERef(b.Plain, fn)
			forEachCTERef(b.Base, fn)
			forEachCTERef(b.Step, fn)
		}
		forEachCTERef(node.Body, fn)
	}
}

// TopoOrder computes an evaluation order for WITH bindings by
// topological sort over non-self reference edges. Bindings may reference
// each other forward or backward; cyclic references are rejected with
// INVALID_RECURSIVE_SHAPE. The order is deterministic: among ready
// bindings, declaration order wins.
func TopoOrder(bindings []CTE) ([]int, error) {
	index := make(map[string]int, len(bindings))
	for i, b := range bindings {
		index[b.Name] = i
	}

	// deps[i] = set of binding indexes i reads.
	deps := make([]map[int]bool, len(bindings))
	for i, b := range bindings {
		deps[i] = make(map[int]bool)
		collect := func(ref string) {
			if j, ok := index[ref]; ok && j != i {
				deps[i][j] = true
			}
		}
		forEachCTERef(b.Plain, collect)
		forEachCTERef(b.Base, collect)
		forEachCTERef(b.Step, collect)
	}

	order := make([]int, 0, len(bindings))
	done := make([]bool, len(bindings))
	for len(order) < len(bindings) {
		progressed := false
		for i := range bindings {
			if done[i] {
				continue
			}
			ready := true
			for j := range deps[i] {
				if !done[j] {
					ready = false
					break
				}
			}
			if ready {
				done[i] = true
				order = append(order, i)
				progressed = true
			}
		}
		if !progressed {
			var cyclic []string
			for i, b := range bindings {
				if !done[i] {
					cyclic = append(cyclic, b.Name)
				}
			}
			return nil, relerr.New(relerr.CodeInvalidRecursiveShape, "with",
				"cyclic WITH references among %v", cyclic)
		}
	}
	return order, nil
}
