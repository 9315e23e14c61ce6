package cli

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/quarrel/internal/relfunc"
	"github.com/roach88/quarrel/internal/relplan"
	"github.com/roach88/quarrel/internal/relrow"
	"github.com/roach88/quarrel/internal/relsource"
	"github.com/roach88/quarrel/internal/relval"
)

// Fixture is the YAML shape the CLI evaluates: named tables plus one
// query over them. The query language is deliberately narrow; anything
// beyond it goes through the relplan API directly.
type Fixture struct {
	Tables  map[string]FixtureTable `yaml:"tables"`
	Query   FixtureQuery            `yaml:"query"`
	Default string                  `yaml:"default_collation"`
}

// FixtureTable declares one table's schema and rows.
type FixtureTable struct {
	Columns []FixtureColumn `yaml:"columns"`
	Rows    [][]any         `yaml:"rows"`
}

// FixtureColumn declares one column.
type FixtureColumn struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Collation string `yaml:"collation"`
}

// FixtureQuery is the query description. Select applies to ungrouped
// queries only; a grouped query always outputs its group keys followed
// by its aggregates.
type FixtureQuery struct {
	From       string            `yaml:"from"`
	Select     []FixtureSelect   `yaml:"select"`
	GroupBy    []string          `yaml:"group_by"`
	Aggregates []FixtureAgg      `yaml:"aggregates"`
	Distinct   bool              `yaml:"distinct"`
	OrderBy    []FixtureSort     `yaml:"order_by"`
	Offset     *int64            `yaml:"offset"`
	Limit      *int64            `yaml:"limit"`
	SetOp      *FixtureSetBranch `yaml:"set_op"`
}

// FixtureSelect is one output column of an ungrouped query.
type FixtureSelect struct {
	Column string `yaml:"column"`
	As     string `yaml:"as"`
}

// FixtureAgg is one aggregate call. Fn is one of count, count_distinct,
// sum, min, max; count without a column is COUNT(*).
type FixtureAgg struct {
	Fn     string `yaml:"fn"`
	Column string `yaml:"column"`
	As     string `yaml:"as"`
}

// FixtureSort is one ORDER BY term, naming an output column. Nulls is
// "", "first" or "last".
type FixtureSort struct {
	Column string `yaml:"column"`
	Desc   bool   `yaml:"desc"`
	Nulls  string `yaml:"nulls"`
}

// FixtureSetBranch combines the query with a second one.
type FixtureSetBranch struct {
	Op    string       `yaml:"op"`    // union | intersect | except
	Mode  string       `yaml:"mode"`  // all | distinct
	Match string       `yaml:"match"` // positional | by_name | by_name_full | by_name_left | corresponding
	Query FixtureQuery `yaml:"query"`
}

// LoadFixture reads and decodes a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	if len(fx.Tables) == 0 {
		return nil, fmt.Errorf("fixture %s declares no tables", path)
	}
	return &fx, nil
}

// BuildPlan turns the fixture into a plan node plus the collation
// context to evaluate it under.
func (fx *Fixture) BuildPlan() (relplan.Node, *relval.CollationContext, error) {
	def := fx.Default
	if def == "" {
		def = relval.CollationBinary
	}
	coll := relval.NewCollationContext(def)

	producers := make(map[string]*relsource.MemoryTable, len(fx.Tables))
	schemas := make(map[string]relrow.Schema, len(fx.Tables))
	for name, ft := range fx.Tables {
		schema, rows, err := buildTable(name, ft)
		if err != nil {
			return nil, nil, err
		}
		producers[name] = relsource.NewMemoryTable(schema, rows...)
		schemas[name] = schema
	}

	node, err := buildQuery(fx.Query, producers, schemas, coll)
	if err != nil {
		return nil, nil, err
	}
	return node, coll, nil
}

func buildTable(name string, ft FixtureTable) (relrow.Schema, []relrow.Row, error) {
	if len(ft.Columns) == 0 {
		return relrow.Schema{}, nil, fmt.Errorf("table %s has no columns", name)
	}
	cols := make([]relrow.Column, len(ft.Columns))
	for i, fc := range ft.Columns {
		kind, err := parseKind(fc.Type)
		if err != nil {
			return relrow.Schema{}, nil, fmt.Errorf("table %s column %s: %w", name, fc.Name, err)
		}
		cols[i] = relrow.Col(fc.Name, kind)
	}
	schema := relrow.NewSchema(cols...)

	rows := make([]relrow.Row, len(ft.Rows))
	for ri, raw := range ft.Rows {
		if len(raw) != len(ft.Columns) {
			return relrow.Schema{}, nil, fmt.Errorf("table %s row %d has %d values, want %d",
				name, ri, len(raw), len(ft.Columns))
		}
		row := make(relrow.Row, len(raw))
		for ci, cell := range raw {
			v, err := convertCell(cell, ft.Columns[ci])
			if err != nil {
				return relrow.Schema{}, nil, fmt.Errorf("table %s row %d column %s: %w",
					name, ri, ft.Columns[ci].Name, err)
			}
			row[ci] = v
		}
		rows[ri] = row
	}
	return schema, rows, nil
}

func parseKind(s string) (relval.Kind, error) {
	switch strings.ToUpper(s) {
	case "BOOL":
		return relval.KindBool, nil
	case "INT64", "INT":
		return relval.KindInt, nil
	case "DOUBLE", "FLOAT64":
		return relval.KindDouble, nil
	case "NUMERIC":
		return relval.KindNumeric, nil
	case "STRING":
		return relval.KindString, nil
	case "BYTES":
		return relval.KindBytes, nil
	case "JSON":
		return relval.KindJSON, nil
	default:
		return relval.KindNull, fmt.Errorf("unsupported column type %q", s)
	}
}

func convertCell(cell any, col FixtureColumn) (relval.Value, error) {
	if cell == nil {
		return relval.Null{}, nil
	}
	kind, _ := parseKind(col.Type)
	switch kind {
	case relval.KindBool:
		if b, ok := cell.(bool); ok {
			return relval.Bool(b), nil
		}
	case relval.KindInt:
		if n, ok := cell.(int); ok {
			return relval.Int(n), nil
		}
	case relval.KindDouble:
		switch n := cell.(type) {
		case float64:
			return relval.Double(n), nil
		case int:
			return relval.Double(n), nil
		}
	case relval.KindNumeric:
		switch n := cell.(type) {
		case string:
			return relval.ParseNumeric(n)
		case int:
			return relval.ParseNumeric(fmt.Sprintf("%d", n))
		case float64:
			return relval.ParseNumeric(fmt.Sprintf("%g", n))
		}
	case relval.KindString:
		if s, ok := cell.(string); ok {
			if col.Collation != "" {
				return relval.NewCollatedString(s, col.Collation), nil
			}
			return relval.NewString(s), nil
		}
	case relval.KindBytes:
		if s, ok := cell.(string); ok {
			return relval.Bytes(s), nil
		}
	case relval.KindJSON:
		if s, ok := cell.(string); ok {
			return relval.JSON(s), nil
		}
	}
	return nil, fmt.Errorf("cannot use %T as %s", cell, col.Type)
}

func buildQuery(fq FixtureQuery, producers map[string]*relsource.MemoryTable, schemas map[string]relrow.Schema, coll *relval.CollationContext) (relplan.Node, error) {
	producer, ok := producers[fq.From]
	if !ok {
		return nil, fmt.Errorf("query references unknown table %q", fq.From)
	}
	schema := schemas[fq.From]

	q := &relplan.Query{
		From:     &relplan.Scan{Producer: producer},
		Distinct: fq.Distinct,
		Offset:   fq.Offset,
		Limit:    fq.Limit,
	}

	outNames, err := buildProjection(fq, schema, coll, q)
	if err != nil {
		return nil, err
	}

	for _, fs := range fq.OrderBy {
		idx := indexOf(outNames, fs.Column)
		if idx < 0 {
			return nil, fmt.Errorf("order_by references unknown output column %q", fs.Column)
		}
		key := relplan.SortKey{
			Expr: relplan.ColumnRef{Index: idx, Name: fs.Column},
			Desc: fs.Desc,
		}
		switch fs.Nulls {
		case "":
		case "first":
			t := true
			key.NullsFirst = &t
		case "last":
			f := false
			key.NullsFirst = &f
		default:
			return nil, fmt.Errorf("order_by nulls must be \"first\" or \"last\", got %q", fs.Nulls)
		}
		q.OrderBy = append(q.OrderBy, key)
	}

	if fq.SetOp == nil {
		return q, nil
	}
	right, err := buildQuery(fq.SetOp.Query, producers, schemas, coll)
	if err != nil {
		return nil, err
	}
	return buildSetOp(fq.SetOp, q, right)
}

// buildProjection fills the grouping or select clauses and returns the
// output column names for ORDER BY resolution.
func buildProjection(fq FixtureQuery, schema relrow.Schema, coll *relval.CollationContext, q *relplan.Query) ([]string, error) {
	if len(fq.GroupBy) == 0 && len(fq.Aggregates) == 0 {
		if len(fq.Select) == 0 {
			return schema.Names(), nil
		}
		names := make([]string, len(fq.Select))
		for i, fs := range fq.Select {
			idx := schema.Index(fs.Column)
			if idx < 0 {
				return nil, fmt.Errorf("select references unknown column %q", fs.Column)
			}
			name := fs.As
			if name == "" {
				name = fs.Column
			}
			names[i] = name
			q.Select = append(q.Select, relplan.OutputExpr{
				Name: name,
				Expr: relplan.ColumnRef{Index: idx, Name: fs.Column},
				Type: schema.Columns[idx].Type,
			})
		}
		return names, nil
	}

	if len(fq.Select) > 0 {
		return nil, fmt.Errorf("select and group_by/aggregates cannot be combined; a grouped query outputs its keys and aggregates")
	}

	var names []string
	items := make([]relplan.GroupItem, len(fq.GroupBy))
	for i, col := range fq.GroupBy {
		idx := schema.Index(col)
		if idx < 0 {
			return nil, fmt.Errorf("group_by references unknown column %q", col)
		}
		items[i] = relplan.GroupItem{
			Name: col,
			Expr: relplan.ColumnRef{Index: idx, Name: col},
			Type: schema.Columns[idx].Type,
		}
		names = append(names, col)
	}
	q.GroupBy = relplan.Simple(items...)

	for _, fa := range fq.Aggregates {
		spec, err := buildAggregate(fa, schema, coll)
		if err != nil {
			return nil, err
		}
		q.Aggregates = append(q.Aggregates, spec)
		names = append(names, spec.Name)
	}
	return names, nil
}

func buildAggregate(fa FixtureAgg, schema relrow.Schema, coll *relval.CollationContext) (relplan.AggregateSpec, error) {
	var arg relplan.Scalar
	var argType relval.Kind
	if fa.Column != "" {
		idx := schema.Index(fa.Column)
		if idx < 0 {
			return relplan.AggregateSpec{}, fmt.Errorf("aggregate references unknown column %q", fa.Column)
		}
		arg = relplan.ColumnRef{Index: idx, Name: fa.Column}
		argType = schema.Columns[idx].Type
	}

	var spec relplan.AggregateSpec
	switch fa.Fn {
	case "count":
		if arg == nil {
			spec = relfunc.CountStar()
		} else {
			spec = relfunc.Count(arg)
		}
	case "count_distinct":
		if arg == nil {
			return relplan.AggregateSpec{}, fmt.Errorf("count_distinct needs a column")
		}
		spec = relfunc.CountDistinct(arg)
	case "sum":
		switch argType {
		case relval.KindInt:
			spec = relfunc.SumInt(arg)
		case relval.KindDouble:
			spec = relfunc.SumDouble(arg)
		default:
			return relplan.AggregateSpec{}, fmt.Errorf("sum over %s is not supported", argType)
		}
	case "min", "max":
		if arg == nil {
			return relplan.AggregateSpec{}, fmt.Errorf("%s needs a column", fa.Fn)
		}
		if fa.Fn == "min" {
			spec = relfunc.Min(arg, argType, coll)
		} else {
			spec = relfunc.Max(arg, argType, coll)
		}
	default:
		return relplan.AggregateSpec{}, fmt.Errorf("unknown aggregate %q", fa.Fn)
	}
	if fa.As != "" {
		spec.Name = fa.As
	}
	return spec, nil
}

func buildSetOp(branch *FixtureSetBranch, left, right relplan.Node) (relplan.Node, error) {
	s := &relplan.SetOp{Left: left, Right: right}

	switch branch.Op {
	case "union":
		s.Op = relplan.Union
	case "intersect":
		s.Op = relplan.Intersect
	case "except":
		s.Op = relplan.Except
	default:
		return nil, fmt.Errorf("set_op op must be union, intersect or except, got %q", branch.Op)
	}

	switch branch.Mode {
	case "all":
		s.Mode = relplan.All
	case "", "distinct":
		s.Mode = relplan.Distinct
	default:
		return nil, fmt.Errorf("set_op mode must be all or distinct, got %q", branch.Mode)
	}

	switch branch.Match {
	case "", "positional":
		s.Match = relplan.Positional
	case "by_name":
		s.Match = relplan.ByNameStrict
	case "corresponding":
		s.Match = relplan.ByNameInner
	case "by_name_full":
		s.Match = relplan.ByNameFull
	case "by_name_left":
		s.Match = relplan.ByNameLeft
	default:
		return nil, fmt.Errorf("unknown set_op match mode %q", branch.Match)
	}
	return s, nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
