package releng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quarrel/internal/relfunc"
	"github.com/roach88/quarrel/internal/relplan"
	"github.com/roach88/quarrel/internal/relrow"
	"github.com/roach88/quarrel/internal/relval"
	"github.com/roach88/quarrel/internal/testutil"
)

func salesTable() *relrow.Table {
	return testutil.Table(
		testutil.Schema("region", relval.KindString, "city", relval.KindString, "amount", relval.KindInt),
		testutil.Row("west", "sf", 10),
		testutil.Row("west", "la", 20),
		testutil.Row("east", "ny", 30),
		testutil.Row("west", "sf", 40),
	)
}

func item(name string, idx int) relplan.GroupItem {
	return relplan.GroupItem{Name: name, Expr: col(idx), Type: relval.KindString}
}

// TestGroupBySimple groups in first-appearance order with the output
// shape [keys..., aggregates...].
func TestGroupBySimple(t *testing.T) {
	e := New()
	res, err := e.group(salesTable(),
		*relplan.Simple(item("region", 0)),
		[]relplan.AggregateSpec{relfunc.CountStar(), relfunc.SumInt(col(2))})
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "count(*)", "sum"}, res.Table.Schema.Names())
	assert.Equal(t, []string{"west|3|70", "east|1|30"}, testutil.Rows(res.Table))
}

// TestGroupBy_NullsShareOneGroup: grouping sameness puts every NULL key
// in a single group, unlike predicate equality.
func TestGroupBy_NullsShareOneGroup(t *testing.T) {
	input := testutil.Table(
		testutil.Schema("k", relval.KindString, "v", relval.KindInt),
		testutil.Row(nil, 1),
		testutil.Row("a", 2),
		testutil.Row(nil, 3),
	)

	e := New()
	res, err := e.group(input, *relplan.Simple(item("k", 0)),
		[]relplan.AggregateSpec{relfunc.SumInt(col(1))})
	require.NoError(t, err)
	assert.Equal(t, []string{"NULL|4", "a|2"}, testutil.Rows(res.Table))
}

// TestGroupBy_NumericUnification: INT64 1 and DOUBLE 1.0 land in the
// same group.
func TestGroupBy_NumericUnification(t *testing.T) {
	input := testutil.Table(
		testutil.Schema("k", relval.KindDouble),
		testutil.Row(relval.Int(1)),
		testutil.Row(1.0),
		testutil.Row(2.0),
	)

	e := New()
	res, err := e.group(input,
		*relplan.Simple(relplan.GroupItem{Name: "k", Expr: col(0), Type: relval.KindDouble}),
		[]relplan.AggregateSpec{relfunc.CountStar()})
	require.NoError(t, err)
	// The unified group keeps its first row's key value.
	assert.Equal(t, []string{"1|2", "2|1"}, testutil.Rows(res.Table))
}

// TestRollup expands to all prefixes plus the grand total, sets emitted
// in order, placeholder key columns NULL-filled.
func TestRollup(t *testing.T) {
	spec := relplan.GroupingSpec{
		Mode:  relplan.GroupBySets,
		Items: []relplan.GroupItem{item("region", 0), item("city", 1)},
		Sets:  []relplan.GroupingElement{relplan.Rollup(0, 1)},
	}

	e := New()
	res, err := e.group(salesTable(), spec,
		[]relplan.AggregateSpec{relfunc.SumInt(col(2))})
	require.NoError(t, err)

	assert.Equal(t, []string{
		// (region, city)
		"west|sf|50",
		"west|la|20",
		"east|ny|30",
		// (region)
		"west|NULL|70",
		"east|NULL|30",
		// ()
		"NULL|NULL|100",
	}, testutil.Rows(res.Table))

	// The mask tells placeholder NULLs apart from data NULLs.
	require.Len(t, res.Masks, 6)
	assert.True(t, res.Masks[0].Has(1))
	assert.False(t, res.Masks[3].Has(1))
	assert.Equal(t, 0, res.Masks[5].Count())
}

// TestCube expands to the power set, full set first and empty set last.
func TestCube(t *testing.T) {
	spec := relplan.GroupingSpec{
		Mode:  relplan.GroupBySets,
		Items: []relplan.GroupItem{item("region", 0), item("city", 1)},
		Sets:  []relplan.GroupingElement{relplan.Cube(0, 1)},
	}

	e := New()
	res, err := e.group(salesTable(), spec,
		[]relplan.AggregateSpec{relfunc.CountStar()})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"west|sf|2",
		"west|la|1",
		"east|ny|1",
		"west|NULL|3",
		"east|NULL|1",
		"NULL|sf|2",
		"NULL|la|1",
		"NULL|ny|1",
		"NULL|NULL|4",
	}, testutil.Rows(res.Table))
}

// TestGroupingSets_DuplicateSetGroupsTwice: listing a set twice groups
// twice, by design.
func TestGroupingSets_DuplicateSetGroupsTwice(t *testing.T) {
	spec := relplan.GroupingSpec{
		Mode:  relplan.GroupBySets,
		Items: []relplan.GroupItem{item("region", 0)},
		Sets:  []relplan.GroupingElement{relplan.Tuple(0), relplan.Tuple(0)},
	}

	e := New()
	res, err := e.group(salesTable(), spec,
		[]relplan.AggregateSpec{relfunc.CountStar()})
	require.NoError(t, err)
	assert.Equal(t, []string{"west|3", "east|1", "west|3", "east|1"}, testutil.Rows(res.Table))
}

// TestGroupByEmpty_GrandTotalOnEmptyInput: GROUP BY () yields exactly one
// group even over zero rows; COUNT is 0 and SUM is NULL there.
func TestGroupByEmpty_GrandTotalOnEmptyInput(t *testing.T) {
	empty := testutil.Table(testutil.Schema("v", relval.KindInt))

	e := New()
	res, err := e.group(empty, *relplan.Simple(),
		[]relplan.AggregateSpec{relfunc.CountStar(), relfunc.SumInt(col(0))})
	require.NoError(t, err)
	assert.Equal(t, []string{"0|NULL"}, testutil.Rows(res.Table))
	assert.Nil(t, res.Reps[0])
}

// TestGroupBy_PlaceholderNullVsDataNull: a rollup subtotal row and a
// data-NULL key row can render identically; only the mask separates them.
func TestGroupBy_PlaceholderNullVsDataNull(t *testing.T) {
	input := testutil.Table(
		testutil.Schema("k", relval.KindString, "v", relval.KindInt),
		testutil.Row(nil, 5),
		testutil.Row("a", 7),
	)
	spec := relplan.GroupingSpec{
		Mode:  relplan.GroupBySets,
		Items: []relplan.GroupItem{item("k", 0)},
		Sets:  []relplan.GroupingElement{relplan.Rollup(0)},
	}

	e := New()
	res, err := e.group(input, spec, []relplan.AggregateSpec{relfunc.SumInt(col(1))})
	require.NoError(t, err)

	assert.Equal(t, []string{"NULL|5", "a|7", "NULL|12"}, testutil.Rows(res.Table))
	assert.True(t, res.Masks[0].Has(0), "data NULL keeps its mask bit")
	assert.False(t, res.Masks[2].Has(0), "subtotal NULL is a placeholder")
}

// TestDistinctAggregate feeds each distinct argument once, distinctness
// by grouping sameness.
func TestDistinctAggregate(t *testing.T) {
	input := testutil.Table(
		testutil.Schema("v", relval.KindDouble),
		testutil.Row(relval.Int(1)),
		testutil.Row(1.0),
		testutil.Row(2.0),
		testutil.Row(nil),
	)

	e := New()
	res, err := e.group(input, *relplan.Simple(),
		[]relplan.AggregateSpec{relfunc.CountDistinct(col(0))})
	require.NoError(t, err)
	// 1 and 1.0 collapse; NULL is skipped by COUNT itself.
	assert.Equal(t, []string{"2"}, testutil.Rows(res.Table))
}

// TestGroupBy_RepsAreFirstRows: the representative row of each group is
// its first input row.
func TestGroupBy_RepsAreFirstRows(t *testing.T) {
	e := New()
	res, err := e.group(salesTable(), *relplan.Simple(item("region", 0)), nil)
	require.NoError(t, err)
	require.Len(t, res.Reps, 2)
	assert.Equal(t, relval.NewString("sf"), res.Reps[0][1])
	assert.Equal(t, relval.NewString("ny"), res.Reps[1][1])
}
