package releng

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/quarrel/internal/relfunc"
	"github.com/roach88/quarrel/internal/relplan"
	"github.com/roach88/quarrel/internal/relrow"
	"github.com/roach88/quarrel/internal/relval"
	"github.com/roach88/quarrel/internal/testutil"
)

// renderTable produces the canonical text form used by the golden files:
// a header line of column names, then one line per row, pipe-separated.
func renderTable(t *relrow.Table) []byte {
	var b strings.Builder
	b.WriteString(strings.Join(t.Schema.Names(), "|"))
	b.WriteByte('\n')
	for _, line := range testutil.Rows(t) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func assertGolden(t *testing.T, name string, table *relrow.Table) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, renderTable(table))
}

// TestGolden_SalesRollup pins the full output of a ROLLUP report:
// per-city rows, regional subtotals, grand total.
func TestGolden_SalesRollup(t *testing.T) {
	out := mustEval(t, New(), &relplan.Query{
		From: salesScan(),
		GroupBy: &relplan.GroupingSpec{
			Mode: relplan.GroupBySets,
			Items: []relplan.GroupItem{
				{Name: "region", Expr: col(0), Type: relval.KindString},
				{Name: "city", Expr: col(1), Type: relval.KindString},
			},
			Sets: []relplan.GroupingElement{relplan.Rollup(0, 1)},
		},
		Aggregates: []relplan.AggregateSpec{relfunc.SumInt(col(2)), relfunc.CountStar()},
	})
	assertGolden(t, "sales_rollup", out)
}

// TestGolden_SetOpReport pins a BY NAME union with NULL fill.
func TestGolden_SetOpReport(t *testing.T) {
	left := scan(testutil.Table(
		testutil.Schema("name", relval.KindString, "score", relval.KindInt),
		testutil.Row("ada", 90),
		testutil.Row("bob", 80)))
	right := scan(testutil.Table(
		testutil.Schema("rank", relval.KindInt, "name", relval.KindString),
		testutil.Row(1, "cyd")))

	out := mustEval(t, New(), &relplan.SetOp{
		Op: relplan.Union, Mode: relplan.All, Match: relplan.ByNameFull,
		Left: left, Right: right,
	})
	assertGolden(t, "setop_by_name_full", out)
}
