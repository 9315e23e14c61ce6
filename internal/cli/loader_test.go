package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quarrel/internal/releng"
	"github.com/roach88/quarrel/internal/relplan"
	"github.com/roach88/quarrel/internal/relval"
)

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const peopleFixture = `
tables:
  people:
    columns:
      - {name: city, type: STRING}
      - {name: age, type: INT64}
    rows:
      - [sf, 30]
      - [sf, 40]
      - [la, 25]
query:
  from: people
  group_by: [city]
  aggregates:
    - {fn: count}
    - {fn: sum, column: age, as: total_age}
  order_by:
    - {column: total_age, desc: true}
`

func TestLoadFixture_MissingFile(t *testing.T) {
	_, err := LoadFixture(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read fixture")
}

func TestLoadFixture_NoTables(t *testing.T) {
	path := writeFixture(t, "query:\n  from: t\n")
	_, err := LoadFixture(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tables")
}

func TestBuildPlan_GroupedQuery(t *testing.T) {
	fx, err := LoadFixture(writeFixture(t, peopleFixture))
	require.NoError(t, err)

	plan, coll, err := fx.BuildPlan()
	require.NoError(t, err)
	require.NotNil(t, coll)

	out, err := releng.New(releng.WithCollation(coll)).Evaluate(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "count(*)", "total_age"}, out.Schema.Names())
	require.Len(t, out.Rows, 2)
	// ORDER BY total_age DESC puts sf (70) first.
	assert.Equal(t, "sf", relval.Format(out.Rows[0][0]))
	assert.Equal(t, "70", relval.Format(out.Rows[0][2]))
}

func TestBuildPlan_UnknownTable(t *testing.T) {
	fx, err := LoadFixture(writeFixture(t, `
tables:
  people:
    columns: [{name: id, type: INT64}]
    rows: [[1]]
query:
  from: nobody
`))
	require.NoError(t, err)
	_, _, err = fx.BuildPlan()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown table")
}

func TestBuildPlan_SelectWithGroupByRejected(t *testing.T) {
	fx, err := LoadFixture(writeFixture(t, `
tables:
  people:
    columns: [{name: city, type: STRING}]
    rows: [[sf]]
query:
  from: people
  select: [{column: city}]
  group_by: [city]
`))
	require.NoError(t, err)
	_, _, err = fx.BuildPlan()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be combined")
}

func TestBuildPlan_SetOpModes(t *testing.T) {
	fx, err := LoadFixture(writeFixture(t, `
tables:
  a:
    columns: [{name: x, type: INT64}]
    rows: [[1], [2]]
  b:
    columns: [{name: x, type: INT64}]
    rows: [[2], [3]]
query:
  from: a
  set_op:
    op: union
    mode: all
    match: by_name
    query:
      from: b
`))
	require.NoError(t, err)
	plan, _, err := fx.BuildPlan()
	require.NoError(t, err)

	s, ok := plan.(*relplan.SetOp)
	require.True(t, ok)
	assert.Equal(t, relplan.Union, s.Op)
	assert.Equal(t, relplan.All, s.Mode)
	assert.Equal(t, relplan.ByNameStrict, s.Match)

	out, err := releng.New().Evaluate(context.Background(), plan)
	require.NoError(t, err)
	assert.Len(t, out.Rows, 4)
}

func TestBuildPlan_BadSetOp(t *testing.T) {
	fx, err := LoadFixture(writeFixture(t, `
tables:
  a:
    columns: [{name: x, type: INT64}]
    rows: [[1]]
query:
  from: a
  set_op:
    op: merge
    query:
      from: a
`))
	require.NoError(t, err)
	_, _, err = fx.BuildPlan()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set_op op")
}

func TestBuildPlan_OrderByUnknownColumn(t *testing.T) {
	fx, err := LoadFixture(writeFixture(t, `
tables:
  a:
    columns: [{name: x, type: INT64}]
    rows: [[1]]
query:
  from: a
  order_by: [{column: y}]
`))
	require.NoError(t, err)
	_, _, err = fx.BuildPlan()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output column")
}

func TestBuildPlan_DefaultCollation(t *testing.T) {
	fx, err := LoadFixture(writeFixture(t, `
default_collation: "und:ci"
tables:
  a:
    columns: [{name: name, type: STRING}]
    rows: [[Go], [go], [other]]
query:
  from: a
  distinct: true
`))
	require.NoError(t, err)
	plan, coll, err := fx.BuildPlan()
	require.NoError(t, err)

	out, err := releng.New(releng.WithCollation(coll)).Evaluate(context.Background(), plan)
	require.NoError(t, err)
	// Case-insensitive default collation collapses Go and go.
	assert.Len(t, out.Rows, 2)
}

func TestBuildPlan_BadAggregate(t *testing.T) {
	fx, err := LoadFixture(writeFixture(t, `
tables:
  a:
    columns: [{name: x, type: STRING}]
    rows: [[hi]]
query:
  from: a
  aggregates: [{fn: sum, column: x}]
`))
	require.NoError(t, err)
	_, _, err = fx.BuildPlan()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum over STRING")
}
