package releng

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/quarrel/internal/relerr"
	"github.com/roach88/quarrel/internal/relplan"
	"github.com/roach88/quarrel/internal/relrow"
	"github.com/roach88/quarrel/internal/relval"
	"github.com/roach88/quarrel/internal/testutil"
)

func ints(name string, vals ...any) relplan.Node {
	schema := testutil.Schema(name, relval.KindInt)
	rows := make([]relrow.Row, len(vals))
	for i, v := range vals {
		rows[i] = testutil.Row(v)
	}
	return scan(testutil.Table(schema, rows...))
}

// TestUnionAll concatenates: left rows first, then right rows.
func TestUnionAll(t *testing.T) {
	out := mustEval(t, New(), &relplan.SetOp{
		Op: relplan.Union, Mode: relplan.All,
		Left:  ints("x", 1, 2, 2),
		Right: ints("x", 2, 3),
	})
	assert.Equal(t, []string{"1", "2", "2", "2", "3"}, testutil.Rows(out))
}

// TestUnionDistinct keeps first occurrences; NULL counts as one value.
func TestUnionDistinct(t *testing.T) {
	out := mustEval(t, New(), &relplan.SetOp{
		Op: relplan.Union, Mode: relplan.Distinct,
		Left:  ints("x", 1, nil, 2, 2),
		Right: ints("x", nil, 3, 1),
	})
	assert.Equal(t, []string{"1", "NULL", "2", "3"}, testutil.Rows(out))
}

// TestIntersectAll keeps min(m, n) copies per row.
func TestIntersectAll(t *testing.T) {
	out := mustEval(t, New(), &relplan.SetOp{
		Op: relplan.Intersect, Mode: relplan.All,
		Left:  ints("x", 1, 2, 3, 3, 4),
		Right: ints("x", 2, 3, 3, 5),
	})
	assert.Equal(t, []string{"2", "3", "3"}, testutil.Rows(out))
}

// TestIntersectDistinct emits each common row once.
func TestIntersectDistinct(t *testing.T) {
	out := mustEval(t, New(), &relplan.SetOp{
		Op: relplan.Intersect, Mode: relplan.Distinct,
		Left:  ints("x", 1, 2, 2, 3),
		Right: ints("x", 2, 2, 2, 4),
	})
	assert.Equal(t, []string{"2"}, testutil.Rows(out))
}

// TestExceptAll keeps max(m-n, 0) copies per row.
func TestExceptAll(t *testing.T) {
	out := mustEval(t, New(), &relplan.SetOp{
		Op: relplan.Except, Mode: relplan.All,
		Left:  ints("x", 1, 2, 2, 2, 3),
		Right: ints("x", 2, 3, 3),
	})
	assert.Equal(t, []string{"1", "2", "2"}, testutil.Rows(out))
}

// TestExceptDistinct emits left rows with zero right occurrences, once.
func TestExceptDistinct(t *testing.T) {
	out := mustEval(t, New(), &relplan.SetOp{
		Op: relplan.Except, Mode: relplan.Distinct,
		Left:  ints("x", 1, 1, 2, 3),
		Right: ints("x", 2),
	})
	assert.Equal(t, []string{"1", "3"}, testutil.Rows(out))
}

// TestSetOp_PositionalCountMismatch.
func TestSetOp_PositionalCountMismatch(t *testing.T) {
	two := scan(testutil.Table(
		testutil.Schema("a", relval.KindInt, "b", relval.KindInt),
		testutil.Row(1, 2)))
	err := evalErr(t, New(), &relplan.SetOp{
		Op: relplan.Union, Mode: relplan.All,
		Left:  ints("x", 1),
		Right: two,
	})
	assertCode(t, err, relerr.CodeColumnSetMismatch)
}

// TestSetOp_PositionalNamesFromLeft: output column names come from the
// left input even when the right side disagrees.
func TestSetOp_PositionalNamesFromLeft(t *testing.T) {
	out := mustEval(t, New(), &relplan.SetOp{
		Op: relplan.Union, Mode: relplan.All,
		Left:  ints("left_name", 1),
		Right: ints("right_name", 2),
	})
	assert.Equal(t, []string{"left_name"}, out.Schema.Names())
}

// TestSetOp_ByNameReorders: BY NAME pairs columns by name regardless of
// position, output in left order.
func TestSetOp_ByNameReorders(t *testing.T) {
	left := scan(testutil.Table(
		testutil.Schema("a", relval.KindInt, "b", relval.KindString),
		testutil.Row(1, "x")))
	right := scan(testutil.Table(
		testutil.Schema("b", relval.KindString, "a", relval.KindInt),
		testutil.Row("y", 2)))

	out := mustEval(t, New(), &relplan.SetOp{
		Op: relplan.Union, Mode: relplan.All, Match: relplan.ByNameStrict,
		Left: left, Right: right,
	})
	assert.Equal(t, []string{"a", "b"}, out.Schema.Names())
	assert.Equal(t, []string{"1|x", "2|y"}, testutil.Rows(out))
}

// TestSetOp_ByNameStrictRejectsExtra: STRICT CORRESPONDING requires the
// exact same column-name set on both sides.
func TestSetOp_ByNameStrictRejectsExtra(t *testing.T) {
	left := scan(testutil.Table(
		testutil.Schema("a", relval.KindInt, "b", relval.KindInt),
		testutil.Row(1, 2)))
	right := scan(testutil.Table(
		testutil.Schema("a", relval.KindInt, "c", relval.KindInt),
		testutil.Row(3, 4)))

	err := evalErr(t, New(), &relplan.SetOp{
		Op: relplan.Union, Mode: relplan.All, Match: relplan.ByNameStrict,
		Left: left, Right: right,
	})
	assertCode(t, err, relerr.CodeColumnSetMismatch)
}

// TestSetOp_CorrespondingKeepsCommon: INNER name matching keeps only the
// shared columns; no shared columns is an error.
func TestSetOp_CorrespondingKeepsCommon(t *testing.T) {
	left := scan(testutil.Table(
		testutil.Schema("a", relval.KindInt, "b", relval.KindInt),
		testutil.Row(1, 2)))
	right := scan(testutil.Table(
		testutil.Schema("a", relval.KindInt, "c", relval.KindInt),
		testutil.Row(3, 4)))

	out := mustEval(t, New(), &relplan.SetOp{
		Op: relplan.Union, Mode: relplan.All, Match: relplan.ByNameInner,
		Left: left, Right: right,
	})
	assert.Equal(t, []string{"a"}, out.Schema.Names())
	assert.Equal(t, []string{"1", "3"}, testutil.Rows(out))

	disjoint := scan(testutil.Table(testutil.Schema("z", relval.KindInt), testutil.Row(9)))
	err := evalErr(t, New(), &relplan.SetOp{
		Op: relplan.Union, Mode: relplan.All, Match: relplan.ByNameInner,
		Left: left, Right: disjoint,
	})
	assertCode(t, err, relerr.CodeColumnSetMismatch)
}

// TestSetOp_ByNameFullNullFills: FULL keeps the column union, left
// columns first, NULL-filling the side that lacks one.
func TestSetOp_ByNameFullNullFills(t *testing.T) {
	left := scan(testutil.Table(
		testutil.Schema("a", relval.KindInt, "b", relval.KindInt),
		testutil.Row(1, 2)))
	right := scan(testutil.Table(
		testutil.Schema("a", relval.KindInt, "c", relval.KindInt),
		testutil.Row(3, 4)))

	out := mustEval(t, New(), &relplan.SetOp{
		Op: relplan.Union, Mode: relplan.All, Match: relplan.ByNameFull,
		Left: left, Right: right,
	})
	assert.Equal(t, []string{"a", "b", "c"}, out.Schema.Names())
	assert.Equal(t, []string{"1|2|NULL", "3|NULL|4"}, testutil.Rows(out))
}

// TestSetOp_ByNameLeftShape: LEFT keeps exactly the left side's columns.
func TestSetOp_ByNameLeftShape(t *testing.T) {
	left := scan(testutil.Table(
		testutil.Schema("a", relval.KindInt, "b", relval.KindInt),
		testutil.Row(1, 2)))
	right := scan(testutil.Table(
		testutil.Schema("a", relval.KindInt, "c", relval.KindInt),
		testutil.Row(3, 4)))

	out := mustEval(t, New(), &relplan.SetOp{
		Op: relplan.Union, Mode: relplan.All, Match: relplan.ByNameLeft,
		Left: left, Right: right,
	})
	assert.Equal(t, []string{"a", "b"}, out.Schema.Names())
	assert.Equal(t, []string{"1|2", "3|NULL"}, testutil.Rows(out))
}

// TestSetOp_ByNameRejectsDuplicates: name matching refuses ambiguous
// column names on either side.
func TestSetOp_ByNameRejectsDuplicates(t *testing.T) {
	dup := scan(testutil.Table(
		testutil.Schema("a", relval.KindInt, "a", relval.KindInt),
		testutil.Row(1, 2)))
	clean := scan(testutil.Table(testutil.Schema("a", relval.KindInt), testutil.Row(3)))

	err := evalErr(t, New(), &relplan.SetOp{
		Op: relplan.Union, Mode: relplan.All, Match: relplan.ByNameStrict,
		Left: dup, Right: clean,
	})
	assertCode(t, err, relerr.CodeColumnSetMismatch)
}

// TestSetOp_ByColumnsRestricts: the ON/BY list narrows a name-matched
// output to the listed columns, in the listed order.
func TestSetOp_ByColumnsRestricts(t *testing.T) {
	left := scan(testutil.Table(
		testutil.Schema("a", relval.KindInt, "b", relval.KindInt, "c", relval.KindInt),
		testutil.Row(1, 2, 3)))
	right := scan(testutil.Table(
		testutil.Schema("c", relval.KindInt, "b", relval.KindInt, "a", relval.KindInt),
		testutil.Row(30, 20, 10)))

	out := mustEval(t, New(), &relplan.SetOp{
		Op: relplan.Union, Mode: relplan.All, Match: relplan.ByNameStrict,
		ByColumns: []string{"c", "a"},
		Left:      left, Right: right,
	})
	assert.Equal(t, []string{"c", "a"}, out.Schema.Names())
	assert.Equal(t, []string{"3|1", "30|10"}, testutil.Rows(out))
}

// TestSetOp_GroupingSameness: row sameness in DISTINCT set operations
// uses grouping keys, so INT 1 and DOUBLE 1.0 collapse and both NULLs
// and both NaNs do too.
func TestSetOp_GroupingSameness(t *testing.T) {
	left := scan(testutil.Table(testutil.Schema("x", relval.KindDouble),
		testutil.Row(relval.Int(1)),
		testutil.Row(relval.Double(math.NaN())),
	))
	right := scan(testutil.Table(testutil.Schema("x", relval.KindDouble),
		testutil.Row(1.0),
		testutil.Row(relval.Double(math.NaN())),
	))

	out := mustEval(t, New(), &relplan.SetOp{
		Op: relplan.Intersect, Mode: relplan.Distinct,
		Left: left, Right: right,
	})
	assert.Len(t, out.Rows, 2)
}

// TestUnionDistinct_Idempotent: unioning a table with itself under
// DISTINCT returns its distinct rows.
func TestUnionDistinct_Idempotent(t *testing.T) {
	src := ints("x", 1, 2, 2, 3)
	out := mustEval(t, New(), &relplan.SetOp{
		Op: relplan.Union, Mode: relplan.Distinct,
		Left: src, Right: src,
	})
	assert.Equal(t, []string{"1", "2", "3"}, testutil.Rows(out))
}
