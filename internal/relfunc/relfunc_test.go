package relfunc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quarrel/internal/relplan"
	"github.com/roach88/quarrel/internal/relval"
)

func run(t *testing.T, spec relplan.AggregateSpec, vals ...relval.Value) relval.Value {
	t.Helper()
	acc := spec.New()
	for _, v := range vals {
		require.NoError(t, acc.Accumulate(v))
	}
	out, err := acc.Finalize()
	require.NoError(t, err)
	return out
}

// TestCountStar counts every row, NULL arguments included.
func TestCountStar(t *testing.T) {
	spec := CountStar()
	out := run(t, spec, relval.Bool(true), relval.Bool(true), relval.Null{})
	assert.Equal(t, relval.Int(3), out)
}

// TestCount skips NULL arguments.
func TestCount(t *testing.T) {
	spec := Count(relplan.ColumnRef{Index: 0})
	out := run(t, spec, relval.Int(1), relval.Null{}, relval.Int(2))
	assert.Equal(t, relval.Int(2), out)
}

// TestSumInt_AllNullIsNull: SUM over no non-NULL input is NULL, not 0.
func TestSumInt_AllNullIsNull(t *testing.T) {
	spec := SumInt(relplan.ColumnRef{Index: 0})
	assert.Equal(t, relval.Null{}, run(t, spec, relval.Null{}, relval.Null{}))
	assert.Equal(t, relval.Null{}, run(t, spec))
	assert.Equal(t, relval.Int(7), run(t, spec, relval.Int(3), relval.Null{}, relval.Int(4)))
}

// TestSumDouble accepts INT64 inputs too.
func TestSumDouble(t *testing.T) {
	spec := SumDouble(relplan.ColumnRef{Index: 0})
	out := run(t, spec, relval.Double(1.5), relval.Int(2))
	assert.Equal(t, relval.Double(3.5), out)
}

// TestSumInt_TypeMismatch.
func TestSumInt_TypeMismatch(t *testing.T) {
	acc := SumInt(relplan.ColumnRef{Index: 0}).New()
	err := acc.Accumulate(relval.NewString("x"))
	require.Error(t, err)
}

// TestMinMax pick extremes under the sorting order and ignore NULLs.
func TestMinMax(t *testing.T) {
	coll := relval.NewCollationContext(relval.CollationBinary)

	minSpec := Min(relplan.ColumnRef{Index: 0}, relval.KindInt, coll)
	out := run(t, minSpec, relval.Int(5), relval.Null{}, relval.Int(2), relval.Int(9))
	assert.Equal(t, relval.Int(2), out)

	maxSpec := Max(relplan.ColumnRef{Index: 0}, relval.KindInt, coll)
	out = run(t, maxSpec, relval.Int(5), relval.Null{}, relval.Int(2), relval.Int(9))
	assert.Equal(t, relval.Int(9), out)

	assert.Equal(t, relval.Null{}, run(t, minSpec, relval.Null{}))
}

// TestMinMax_CollationAware: a case-insensitive collation changes which
// string is the minimum.
func TestMinMax_CollationAware(t *testing.T) {
	ci := relval.NewCollationContext("und:ci")
	spec := Min(relplan.ColumnRef{Index: 0}, relval.KindString, ci)
	out := run(t, spec, relval.NewString("Zebra"), relval.NewString("apple"))
	assert.Equal(t, relval.NewString("apple"), out)
}
