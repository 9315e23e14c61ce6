package relplan

import (
	"github.com/roach88/quarrel/internal/relrow"
	"github.com/roach88/quarrel/internal/relval"
)

// Node is the sealed interface over logical plan operators.
// Only types in this package implement it, so executors type-switch
// exhaustively. Nodes are pure descriptions; evaluation lives in releng.
type Node interface {
	planNode() // sealed
}

// RowProducer supplies rows for a base relation. Producers come from the
// caller (in-memory fixtures, a SQLite scan, ...); the core never knows
// where rows are stored. Produce may be called more than once and must
// return equivalent contents each time within one query evaluation.
type RowProducer interface {
	Schema() relrow.Schema
	Produce(ctx *EvalContext) (*relrow.Table, error)
}

// CorrelatedProducer supplies the right side of a LATERAL or otherwise
// correlated join. The outer row is passed as an explicit parameter, not
// captured by reference; ownership of the outer row stays with the join
// executor across re-evaluations.
type CorrelatedProducer interface {
	Schema() relrow.Schema
	ProduceFor(ctx *EvalContext, outer relrow.Row) (*relrow.Table, error)
}

// Coercer is the external type-coercion collaborator. The set operation
// combinator consults it for the common supertype of positionally paired
// columns.
type Coercer interface {
	CommonSupertype(a, b relval.Kind) (relval.Kind, error)
}

// Accumulator is the external aggregate-function contract. One
// accumulator instance sees the rows of exactly one group, in row order.
type Accumulator interface {
	Accumulate(v relval.Value) error
	Finalize() (relval.Value, error)
}

// AggregateSpec binds an aggregate call site to its accumulator factory.
type AggregateSpec struct {
	Name string
	// Arg computes the accumulated value per input row. Nil means the
	// accumulator is fed a TRUE marker per row (COUNT(*) shape).
	Arg Scalar
	// Type is the finalized result type.
	Type relval.Kind
	// New creates a fresh accumulator for one group.
	New func() Accumulator
	// Distinct feeds each distinct argument value once, using grouping
	// sameness for distinctness.
	Distinct bool
}

// OutputExpr is one select-list item: an expression with its output
// column name and resolved type.
type OutputExpr struct {
	Name string
	Expr Scalar
	Type relval.Kind
}

// Scan produces the rows of a base relation.
type Scan struct {
	Producer RowProducer
}

func (*Scan) planNode() {}

// CTERef reads a WITH binding by name.
type CTERef struct {
	Name string
}

func (*CTERef) planNode() {}

// SelfRef is the self-reference inside a recursive CTE's recursive term.
// During iteration k it reads iteration k-1's working set.
type SelfRef struct {
	Name string
}

func (*SelfRef) planNode() {}

// JoinKind enumerates join flavors.
type JoinKind int

const (
	CrossJoin JoinKind = iota
	InnerJoin
	LeftJoin
	RightJoin
	FullJoin
)

func (k JoinKind) String() string {
	switch k {
	case CrossJoin:
		return "CROSS"
	case InnerJoin:
		return "INNER"
	case LeftJoin:
		return "LEFT"
	case RightJoin:
		return "RIGHT"
	default:
		return "FULL"
	}
}

// Join combines two inputs.
//
// Exactly one of Right and LateralRight is set. LateralRight makes the
// join correlated: the right side is re-evaluated per left row with the
// left row as explicit parameter. LATERAL is valid with CROSS, INNER and
// LEFT only (Validate rejects RIGHT/FULL).
//
// On and Using are mutually exclusive. A nil condition on CROSS means an
// unconditional cross product; on LEFT LATERAL it means ON TRUE.
// CommaCross marks a cross join written with the comma syntax; an
// unparenthesized RIGHT or FULL join may not immediately follow one
// (Validate rejects that too).
type Join struct {
	Kind         JoinKind
	Left         Node
	Right        Node
	LateralRight CorrelatedProducer
	On           Scalar
	Using        []string
	CommaCross   bool
}

func (*Join) planNode() {}

// SetOpKind enumerates set operations.
type SetOpKind int

const (
	Union SetOpKind = iota
	Intersect
	Except
)

func (k SetOpKind) String() string {
	switch k {
	case Union:
		return "UNION"
	case Intersect:
		return "INTERSECT"
	default:
		return "EXCEPT"
	}
}

// SetMode picks multiset (ALL) or set (DISTINCT) semantics.
type SetMode int

const (
	All SetMode = iota
	Distinct
)

func (m SetMode) String() string {
	if m == All {
		return "ALL"
	}
	return "DISTINCT"
}

// MatchMode picks how the two inputs' columns are paired.
type MatchMode int

const (
	// Positional pairs columns by position; column counts must match.
	Positional MatchMode = iota
	// ByNameStrict (BY NAME / STRICT CORRESPONDING) requires identical
	// column-name sets, order-independent.
	ByNameStrict
	// ByNameInner (CORRESPONDING / INNER BY NAME) keeps only columns
	// present on both sides; at least one is required.
	ByNameInner
	// ByNameFull (FULL BY NAME) keeps the union of columns, NULL-filling
	// the absent side; left columns first, then right-only columns.
	ByNameFull
	// ByNameLeft (LEFT BY NAME) keeps the left side's columns,
	// NULL-filling right rows for columns the right side lacks.
	ByNameLeft
)

func (m MatchMode) String() string {
	switch m {
	case Positional:
		return "POSITIONAL"
	case ByNameStrict:
		return "STRICT CORRESPONDING"
	case ByNameInner:
		return "CORRESPONDING"
	case ByNameFull:
		return "FULL CORRESPONDING"
	default:
		return "LEFT CORRESPONDING"
	}
}

// SetOp combines two inputs with UNION/INTERSECT/EXCEPT semantics.
// Chains of three or more inputs are built strictly left-to-right by the
// plan builder, so one node always has exactly two children.
//
// ByColumns, when non-empty, restricts a name-matched output to exactly
// the listed columns in the listed order (the ON/BY column list form).
type SetOp struct {
	Op        SetOpKind
	Mode      SetMode
	Match     MatchMode
	ByColumns []string
	Left      Node
	Right     Node
}

func (*SetOp) planNode() {}

// Group partitions its input rows and applies aggregates per group.
type Group struct {
	Input      Node
	Spec       GroupingSpec
	Aggregates []AggregateSpec
}

func (*Group) planNode() {}

// CTE is one WITH binding. Non-recursive bindings set Plain; recursive
// bindings set Base and Step, where Step contains exactly one SelfRef in
// a FROM position. Distinct selects UNION DISTINCT accumulation for the
// recursive fixpoint; otherwise UNION ALL.
type CTE struct {
	Name      string
	Recursive bool
	Plain     Node
	Base      Node
	Step      Node
	Distinct  bool
}

// With evaluates bindings in dependency order, then the body with all
// binding results in scope. Bindings may reference each other forward or
// backward but not cyclically.
type With struct {
	Bindings []CTE
	Body     Node
}

func (*With) planNode() {}

// SortKey is one ORDER BY term. NullsFirst overrides the default
// placement (NULL sorts lowest, so ascending order puts NULLs first and
// descending puts them last).
type SortKey struct {
	Expr       Scalar
	Desc       bool
	NullsFirst *bool
}

// Query is the orchestrated SELECT shape. Stages always run in the fixed
// clause order FROM, WHERE, GROUP BY/aggregation, HAVING, QUALIFY,
// select-list projection, DISTINCT, ORDER BY, OFFSET/LIMIT, regardless of
// source syntax order. (Window functions are an external stage; QUALIFY
// here is a second post-aggregation filter over the same row shape as
// HAVING.)
//
// When GroupBy is nil the query is ungrouped and Select evaluates over
// the FROM row. When GroupBy is set, the grouping stage emits rows shaped
// [group keys..., aggregate results...] and Select, Having and Qualify
// evaluate over that shape — except in GROUP BY ALL mode, where Select
// items are written over the FROM row and the keys are inferred from
// them (see InferGroupByAll).
type Query struct {
	From       Node
	Where      Scalar
	GroupBy    *GroupingSpec
	Aggregates []AggregateSpec
	Having     Scalar
	Qualify    Scalar
	Select     []OutputExpr
	Distinct   bool
	OrderBy    []SortKey
	Offset     *int64
	Limit      *int64
}

func (*Query) planNode() {}
