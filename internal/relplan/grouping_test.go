package relplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quarrel/internal/relrow"
	"github.com/roach88/quarrel/internal/relval"
)

func items(names ...string) []GroupItem {
	out := make([]GroupItem, len(names))
	for i, n := range names {
		out[i] = GroupItem{Name: n, Expr: ColumnRef{Index: i, Name: n}, Type: relval.KindInt}
	}
	return out
}

func keyOf(bits ...int) relrow.GroupingKey {
	var k relrow.GroupingKey
	for _, b := range bits {
		k = k.With(b)
	}
	return k
}

// TestExpandSets_SimpleMode: one key covering all items; zero items is
// the single empty key.
func TestExpandSets_SimpleMode(t *testing.T) {
	spec := Simple(items("a", "b")...)
	keys, err := spec.ExpandSets()
	require.NoError(t, err)
	assert.Equal(t, []relrow.GroupingKey{keyOf(0, 1)}, keys)

	keys, err = Simple().ExpandSets()
	require.NoError(t, err)
	assert.Equal(t, []relrow.GroupingKey{keyOf()}, keys)
}

// TestExpandSets_Rollup: ROLLUP(a,b,c) expands to 4 sets, prefixes
// longest first with the empty set last.
func TestExpandSets_Rollup(t *testing.T) {
	spec := &GroupingSpec{
		Mode:  GroupBySets,
		Items: items("a", "b", "c"),
		Sets:  []GroupingElement{Rollup(0, 1, 2)},
	}
	keys, err := spec.ExpandSets()
	require.NoError(t, err)
	assert.Equal(t, []relrow.GroupingKey{
		keyOf(0, 1, 2),
		keyOf(0, 1),
		keyOf(0),
		keyOf(),
	}, keys)
}

// TestExpandSets_Cube: CUBE(a,b) expands to the 4-element power set,
// full set first and empty set last.
func TestExpandSets_Cube(t *testing.T) {
	spec := &GroupingSpec{
		Mode:  GroupBySets,
		Items: items("a", "b"),
		Sets:  []GroupingElement{Cube(0, 1)},
	}
	keys, err := spec.ExpandSets()
	require.NoError(t, err)
	assert.Equal(t, []relrow.GroupingKey{
		keyOf(0, 1),
		keyOf(0),
		keyOf(1),
		keyOf(),
	}, keys)
}

// TestExpandSets_MixedElements concatenates element expansions in order,
// duplicates preserved: a set listed twice groups twice.
func TestExpandSets_MixedElements(t *testing.T) {
	spec := &GroupingSpec{
		Mode:  GroupBySets,
		Items: items("a", "b"),
		Sets: []GroupingElement{
			Tuple(0),
			Tuple(0),
			Rollup(1),
		},
	}
	keys, err := spec.ExpandSets()
	require.NoError(t, err)
	assert.Equal(t, []relrow.GroupingKey{
		keyOf(0),
		keyOf(0),
		keyOf(1),
		keyOf(),
	}, keys)
}

// TestExpandSets_EmptySetsRejected: GROUPING SETS needs at least one set.
func TestExpandSets_EmptySetsRejected(t *testing.T) {
	spec := &GroupingSpec{Mode: GroupBySets, Items: items("a")}
	_, err := spec.ExpandSets()
	require.Error(t, err)
}

// TestExpandSets_ColumnIndexOutOfRange.
func TestExpandSets_ColumnIndexOutOfRange(t *testing.T) {
	spec := &GroupingSpec{
		Mode:  GroupBySets,
		Items: items("a"),
		Sets:  []GroupingElement{Tuple(3)},
	}
	_, err := spec.ExpandSets()
	require.Error(t, err)
}

// TestInferGroupByAll_ExcludesAggregatesAndConstants.
func TestInferGroupByAll_ExcludesAggregatesAndConstants(t *testing.T) {
	sel := []OutputExpr{
		{Name: "city", Expr: ColumnRef{Index: 0, Name: "city"}, Type: relval.KindString},
		{Name: "n", Expr: AggRef{Index: 0}, Type: relval.KindInt},
		{Name: "tag", Expr: Literal{V: relval.NewString("x")}, Type: relval.KindString},
	}
	spec, idx := InferGroupByAllIndexed(sel)
	require.Len(t, spec.Items, 1)
	assert.Equal(t, "city", spec.Items[0].Name)
	assert.Equal(t, []int{0}, idx)
}

// TestInferGroupByAll_PrefixDropped: an item whose access path is a pure
// prefix of another item's path is dropped; the extension is kept.
func TestInferGroupByAll_PrefixDropped(t *testing.T) {
	base := ColumnRef{Index: 0, Name: "s"}
	sel := []OutputExpr{
		{Name: "s", Expr: base, Type: relval.KindStruct},
		{Name: "s_x", Expr: FieldAccess{Base: base, Field: "x"}, Type: relval.KindInt},
	}
	spec, idx := InferGroupByAllIndexed(sel)
	require.Len(t, spec.Items, 1)
	assert.Equal(t, "s_x", spec.Items[0].Name)
	assert.Equal(t, []int{1}, idx)
}

// TestInferGroupByAll_SiblingFieldsBothKept: two extensions of the same
// base are not prefixes of each other.
func TestInferGroupByAll_SiblingFieldsBothKept(t *testing.T) {
	base := ColumnRef{Index: 0, Name: "s"}
	sel := []OutputExpr{
		{Name: "s_x", Expr: FieldAccess{Base: base, Field: "x"}, Type: relval.KindInt},
		{Name: "s_y", Expr: FieldAccess{Base: base, Field: "y"}, Type: relval.KindInt},
	}
	spec, _ := InferGroupByAllIndexed(sel)
	assert.Len(t, spec.Items, 2)
}

// TestInferGroupByAll_EmptyResult: aggregates only means GROUP BY ().
func TestInferGroupByAll_EmptyResult(t *testing.T) {
	sel := []OutputExpr{
		{Name: "n", Expr: AggRef{Index: 0}, Type: relval.KindInt},
	}
	spec, idx := InferGroupByAllIndexed(sel)
	assert.Empty(t, spec.Items)
	assert.Empty(t, idx)
	keys, err := spec.ExpandSets()
	require.NoError(t, err)
	assert.Equal(t, []relrow.GroupingKey{keyOf()}, keys)
}
