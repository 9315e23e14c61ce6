package relplan

import (
	"github.com/roach88/quarrel/internal/relerr"
	"github.com/roach88/quarrel/internal/relrow"
	"github.com/roach88/quarrel/internal/relval"
)

// GroupingMode selects how grouping keys are determined.
type GroupingMode int

const (
	// GroupBySimple groups by the listed items. Zero items means
	// GROUP BY (): one group over all rows, emitted even for empty input.
	GroupBySimple GroupingMode = iota
	// GroupByAll infers the items from the select list (InferGroupByAll).
	GroupByAll
	// GroupBySets groups independently per grouping set and unions the
	// results (GROUPING SETS / ROLLUP / CUBE).
	GroupBySets
)

// GroupItem is one grouping key expression with its output name and type.
type GroupItem struct {
	Name string
	Expr Scalar
	Type relval.Kind
}

// GroupingElementKind distinguishes the forms a GROUPING SETS list item
// can take.
type GroupingElementKind int

const (
	// ElementTuple is a plain column tuple; () is a tuple of zero columns.
	ElementTuple GroupingElementKind = iota
	// ElementRollup expands to all prefixes of its columns, the empty
	// prefix included: ROLLUP(a,b,c) -> (a,b,c),(a,b),(a),().
	ElementRollup
	// ElementCube expands to the power set of its columns:
	// CUBE(a,b) -> (a,b),(a),(b),().
	ElementCube
)

// GroupingElement is one entry in a GROUPING SETS list. Columns index
// into GroupingSpec.Items.
type GroupingElement struct {
	Kind    GroupingElementKind
	Columns []int
}

// Rollup builds a ROLLUP element over item indexes.
func Rollup(cols ...int) GroupingElement {
	return GroupingElement{Kind: ElementRollup, Columns: cols}
}

// Cube builds a CUBE element over item indexes.
func Cube(cols ...int) GroupingElement {
	return GroupingElement{Kind: ElementCube, Columns: cols}
}

// Tuple builds a plain grouping-set element over item indexes.
func Tuple(cols ...int) GroupingElement {
	return GroupingElement{Kind: ElementTuple, Columns: cols}
}

// GroupingSpec describes the grouping clause of one query.
type GroupingSpec struct {
	Mode  GroupingMode
	Items []GroupItem
	// Sets applies in GroupBySets mode. Each element contributes one or
	// more concrete grouping sets; results are unioned in order, and a
	// set listed twice groups twice.
	Sets []GroupingElement
}

// Simple builds a plain GROUP BY spec over the given items.
func Simple(items ...GroupItem) *GroupingSpec {
	return &GroupingSpec{Mode: GroupBySimple, Items: items}
}

// ExpandSets resolves the spec to concrete grouping keys, one bitset per
// grouping set, in deterministic output order. Simple mode yields the
// single all-items key (the empty key for zero items).
func (s *GroupingSpec) ExpandSets() ([]relrow.GroupingKey, error) {
	if len(s.Items) > relrow.MaxGroupingColumns {
		return nil, relerr.New(relerr.CodeTypeMismatch, "group",
			"too many grouping items: %d exceeds %d", len(s.Items), relrow.MaxGroupingColumns)
	}
	switch s.Mode {
	case GroupBySimple, GroupByAll:
		var key relrow.GroupingKey
		for i := range s.Items {
			key = key.With(i)
		}
		return []relrow.GroupingKey{key}, nil
	case GroupBySets:
		var keys []relrow.GroupingKey
		for _, elem := range s.Sets {
			expanded, err := expandElement(elem, len(s.Items))
			if err != nil {
				return nil, err
			}
			keys = append(keys, expanded...)
		}
		if len(keys) == 0 {
			return nil, relerr.New(relerr.CodeTypeMismatch, "group",
				"GROUPING SETS requires at least one set")
		}
		return keys, nil
	default:
		return nil, relerr.New(relerr.CodeTypeMismatch, "group",
			"unknown grouping mode %d", s.Mode)
	}
}

func expandElement(elem GroupingElement, numItems int) ([]relrow.GroupingKey, error) {
	for _, c := range elem.Columns {
		if c < 0 || c >= numItems {
			return nil, relerr.New(relerr.CodeIndexOutOfRange, "group",
				"grouping element references item %d of %d", c, numItems)
		}
	}
	switch elem.Kind {
	case ElementTuple:
		var key relrow.GroupingKey
		for _, c := range elem.Columns {
			key = key.With(c)
		}
		return []relrow.GroupingKey{key}, nil
	case ElementRollup:
		// All prefixes, longest first, empty set last: n+1 keys.
		keys := make([]relrow.GroupingKey, 0, len(elem.Columns)+1)
		for n := len(elem.Columns); n >= 0; n-- {
			var key relrow.GroupingKey
			for _, c := range elem.Columns[:n] {
				key = key.With(c)
			}
			keys = append(keys, key)
		}
		return keys, nil
	case ElementCube:
		// Power set: 2^n keys, enumerated so earlier columns vary slower,
		// full set first and empty set last.
		n := len(elem.Columns)
		if n > 20 {
			return nil, relerr.New(relerr.CodeTypeMismatch, "group",
				"CUBE over %d columns expands to 2^%d sets", n, n)
		}
		total := 1 << n
		keys := make([]relrow.GroupingKey, 0, total)
		for mask := total - 1; mask >= 0; mask-- {
			var key relrow.GroupingKey
			for i, c := range elem.Columns {
				if mask&(1<<(n-1-i)) != 0 {
					key = key.With(c)
				}
			}
			keys = append(keys, key)
		}
		return keys, nil
	default:
		return nil, relerr.New(relerr.CodeTypeMismatch, "group",
			"unknown grouping element kind %d", elem.Kind)
	}
}

// InferGroupByAll resolves GROUP BY ALL against a select list.
//
// An item becomes a grouping key when it contains no aggregate call and
// references at least one FROM column. Items whose access path is a pure
// prefix of another retained item's path are dropped (grouping by the
// longer path already determines the prefix). An empty result is the
// GROUP BY () shape: one group over all rows, even for zero input rows.
func InferGroupByAll(selectList []OutputExpr) *GroupingSpec {
	spec, _ := InferGroupByAllIndexed(selectList)
	return spec
}

// InferGroupByAllIndexed is InferGroupByAll plus, aligned with the
// returned spec's Items, the select-list index each retained item came
// from. The orchestrator uses the mapping to route retained select items
// to their group key columns.
func InferGroupByAllIndexed(selectList []OutputExpr) (*GroupingSpec, []int) {
	var cands []allCandidate
	for si, out := range selectList {
		if out.Expr.HasAggregate() || len(out.Expr.ColumnRefs()) == 0 {
			continue
		}
		var path []string
		if p, ok := out.Expr.(pathed); ok {
			path = p.accessPath()
		}
		cands = append(cands, allCandidate{
			item:      GroupItem{Name: out.Name, Expr: out.Expr, Type: out.Type},
			path:      path,
			selectIdx: si,
		})
	}

	items := make([]GroupItem, 0, len(cands))
	idx := make([]int, 0, len(cands))
	for i, c := range cands {
		if c.path != nil && hasProperExtension(c.path, cands, i) {
			continue
		}
		items = append(items, c.item)
		idx = append(idx, c.selectIdx)
	}
	return &GroupingSpec{Mode: GroupByAll, Items: items}, idx
}

type allCandidate struct {
	item      GroupItem
	path      []string
	selectIdx int
}

// hasProperExtension reports whether some other candidate's path strictly
// extends path.
func hasProperExtension(path []string, cands []allCandidate, self int) bool {
	for j, other := range cands {
		if j == self || len(other.path) <= len(path) {
			continue
		}
		if isPathPrefix(path, other.path) {
			return true
		}
	}
	return false
}

func isPathPrefix(prefix, full []string) bool {
	for i, p := range prefix {
		if full[i] != p {
			return false
		}
	}
	return true
}
