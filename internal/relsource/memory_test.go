package relsource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quarrel/internal/relval"
	"github.com/roach88/quarrel/internal/testutil"
)

// TestMemoryTable_ProduceFresh: each Produce call hands out a fresh
// Table, so appending to one result cannot corrupt the next scan.
func TestMemoryTable_ProduceFresh(t *testing.T) {
	m := NewMemoryTable(
		testutil.Schema("id", relval.KindInt),
		testutil.Row(1), testutil.Row(2))

	first, err := m.Produce(nil)
	require.NoError(t, err)
	first.Append(testutil.Row(99))

	second, err := m.Produce(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, testutil.Rows(second))
	assert.Equal(t, m.Schema(), second.Schema)
}
