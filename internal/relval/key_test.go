package relval

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func distinct(t *testing.T, ctx *CollationContext, a, b Value) bool {
	t.Helper()
	d, err := IsDistinctFrom(ctx, a, b)
	require.NoError(t, err)
	return d
}

// TestIsDistinctFrom_Nulls: NULL is not distinct from NULL, and is
// distinct from every non-NULL value. Never UNKNOWN.
func TestIsDistinctFrom_Nulls(t *testing.T) {
	ctx := NewCollationContext(CollationBinary)
	assert.False(t, distinct(t, ctx, Null{}, Null{}))
	assert.True(t, distinct(t, ctx, Null{}, Int(0)))
	assert.True(t, distinct(t, ctx, Bool(false), Null{}))
}

// TestIsDistinctFrom_NonNulls behaves as plain inequality away from NULL.
func TestIsDistinctFrom_NonNulls(t *testing.T) {
	ctx := NewCollationContext(CollationBinary)
	assert.False(t, distinct(t, ctx, Int(3), Int(3)))
	assert.True(t, distinct(t, ctx, Int(3), Int(4)))
}

// TestGroupKey_NumericUnification: Int 1, Double 1.0 and NUMERIC 1.00
// are one grouping key; -0.0 groups with 0.
func TestGroupKey_NumericUnification(t *testing.T) {
	ctx := NewCollationContext(CollationBinary)

	assert.False(t, distinct(t, ctx, Int(1), Double(1.0)))
	assert.False(t, distinct(t, ctx, Int(1), MustNumeric("1.00")))
	assert.False(t, distinct(t, ctx, Double(1.0), MustNumeric("1")))
	assert.False(t, distinct(t, ctx, Double(math.Copysign(0, -1)), Int(0)))
	assert.False(t, distinct(t, ctx, MustNumeric("0.00"), Int(0)))

	assert.True(t, distinct(t, ctx, Int(1), Double(1.5)))
}

// TestGroupKey_NaNSameness: under grouping sameness all NaNs are one
// key, unlike predicate equality.
func TestGroupKey_NaNSameness(t *testing.T) {
	ctx := NewCollationContext(CollationBinary)
	nan := Double(math.NaN())
	assert.False(t, distinct(t, ctx, nan, nan))
	assert.True(t, distinct(t, ctx, nan, Double(0)))
	assert.True(t, distinct(t, ctx, nan, Double(math.Inf(1))))
}

// TestGroupKey_Infinities keep their own keys.
func TestGroupKey_Infinities(t *testing.T) {
	ctx := NewCollationContext(CollationBinary)
	assert.False(t, distinct(t, ctx, Double(math.Inf(1)), Double(math.Inf(1))))
	assert.True(t, distinct(t, ctx, Double(math.Inf(1)), Double(math.Inf(-1))))
}

// TestGroupKey_CollatedStrings: a case-insensitive collation groups case
// variants together; binary keeps them apart.
func TestGroupKey_CollatedStrings(t *testing.T) {
	ctx := NewCollationContext(CollationBinary)

	assert.True(t, distinct(t, ctx, NewString("Go"), NewString("go")))
	assert.False(t, distinct(t, ctx,
		NewCollatedString("Go", "und:ci"), NewCollatedString("go", "und:ci")))
}

// TestGroupKey_DefaultCollationApplies: uncollated strings group under
// the context default.
func TestGroupKey_DefaultCollationApplies(t *testing.T) {
	ci := NewCollationContext("und:ci")
	assert.False(t, distinct(t, ci, NewString("Go"), NewString("go")))
}

// TestGroupKey_NoColumnAliasing: length prefixes keep adjacent values
// from sliding into each other.
func TestGroupKey_NoColumnAliasing(t *testing.T) {
	ctx := NewCollationContext(CollationBinary)
	a, err := GroupKeyOfRowValues(ctx, []Value{NewString("ab"), NewString("c")})
	require.NoError(t, err)
	b, err := GroupKeyOfRowValues(ctx, []Value{NewString("a"), NewString("bc")})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

// TestGroupKey_NestedValues recurse: arrays and structs group by their
// element keys, NULL elements included.
func TestGroupKey_NestedValues(t *testing.T) {
	ctx := NewCollationContext(CollationBinary)

	assert.False(t, distinct(t, ctx, Array{Int(1), Null{}}, Array{Double(1.0), Null{}}))
	assert.True(t, distinct(t, ctx, Array{Int(1)}, Array{Int(1), Null{}}))

	assert.False(t, distinct(t, ctx,
		NewStruct(F("x", Null{})), NewStruct(F("x", Null{}))))
}

// TestGroupKey_LeavesNumericIntact: key encoding reduces the decimal
// representation to unify trailing zeros, and that reduction must happen
// on a copy. A coefficient wide enough to spill out of apd's inline
// storage shares its backing with the source Value, so reducing in place
// would rewrite the value already sitting in an output row.
func TestGroupKey_LeavesNumericIntact(t *testing.T) {
	ctx := NewCollationContext(CollationBinary)
	text := strings.Repeat("9", 60) + ".00"
	v := MustNumeric(text)

	_, err := AppendGroupKey(nil, ctx, v)
	require.NoError(t, err)
	assert.Equal(t, text, v.Dec.Text('f'))

	// Same key as the reduced spelling, and still unified across widths.
	assert.False(t, distinct(t, ctx, v, MustNumeric(strings.Repeat("9", 60))))

	small := MustNumeric("1.00")
	_, err = AppendGroupKey(nil, ctx, small)
	require.NoError(t, err)
	assert.Equal(t, "1.00", small.Dec.Text('f'))
}
