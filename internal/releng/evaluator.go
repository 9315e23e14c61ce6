package releng

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/roach88/quarrel/internal/relerr"
	"github.com/roach88/quarrel/internal/relplan"
	"github.com/roach88/quarrel/internal/relrow"
	"github.com/roach88/quarrel/internal/relval"
)

// DefaultMaxIterations bounds recursive CTE fixpoint loops. The bound is
// a safety valve: hitting it raises NON_TERMINATING_RECURSION rather
// than hanging the caller.
const DefaultMaxIterations = 10000

// Evaluator executes validated plans. One Evaluator may run many
// queries; it holds no per-query state.
type Evaluator struct {
	coll          *relval.CollationContext
	coercer       relplan.Coercer
	maxIterations int
	evalID        string
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithCollation sets the collation context every comparison runs under.
func WithCollation(c *relval.CollationContext) Option {
	return func(e *Evaluator) { e.coll = c }
}

// WithCoercer sets the external type-coercion collaborator consulted by
// positional set operations.
func WithCoercer(c relplan.Coercer) Option {
	return func(e *Evaluator) { e.coercer = c }
}

// WithMaxIterations overrides the recursive CTE iteration cap.
func WithMaxIterations(n int) Option {
	return func(e *Evaluator) { e.maxIterations = n }
}

// New creates an Evaluator with binary default collation, the built-in
// strict coercer and the default iteration cap.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		coll:          relval.NewCollationContext(relval.CollationBinary),
		coercer:       relplan.DefaultCoercer{},
		maxIterations: DefaultMaxIterations,
		evalID:        uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ID returns the evaluator's identifier. It appears in the details of
// every structured error the evaluator returns, so a failure can be tied
// back to the run that produced it.
func (e *Evaluator) ID() string { return e.evalID }

// Evaluate validates the plan, then executes it and returns the
// materialized result. On failure the partial output is discarded and
// the structured error is returned; there are no partial results and no
// retries.
func (e *Evaluator) Evaluate(ctx context.Context, n relplan.Node) (*relrow.Table, error) {
	if err := relplan.Validate(n); err != nil {
		return nil, e.stamp(err)
	}
	t, err := e.evalNode(ctx, newEnv(), n)
	if err != nil {
		return nil, e.stamp(err)
	}
	return t, nil
}

// stamp tags a structured error with the evaluation ID.
func (e *Evaluator) stamp(err error) error {
	var ee *relerr.EvalError
	if errors.As(err, &ee) {
		if ee.Details == nil {
			ee.Details = make(map[string]string, 1)
		}
		ee.Details["evaluation"] = e.evalID
	}
	return err
}

// exprCtx builds the context handed to scalar evaluation.
func (e *Evaluator) exprCtx() *relplan.EvalContext {
	return &relplan.EvalContext{Collation: e.coll}
}

// env scopes CTE bindings during one evaluation. ctes holds finished
// binding results; working holds the previous iteration's working set
// for the recursive binding currently being iterated.
type env struct {
	ctes    map[string]*relrow.Table
	working map[string]*relrow.Table
}

func newEnv() *env {
	return &env{
		ctes:    make(map[string]*relrow.Table),
		working: make(map[string]*relrow.Table),
	}
}

// evalNode dispatches over the sealed plan node set. The context is
// checked on entry so cancellation aborts between stages.
func (e *Evaluator) evalNode(ctx context.Context, ev *env, n relplan.Node) (*relrow.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch node := n.(type) {
	case *relplan.Scan:
		return node.Producer.Produce(e.exprCtx())
	case *relplan.CTERef:
		t, ok := ev.ctes[node.Name]
		if !ok {
			return nil, relerr.New(relerr.CodeInvalidRecursiveShape, node.Name,
				"reference to unknown WITH binding %q", node.Name)
		}
		return t, nil
	case *relplan.SelfRef:
		t, ok := ev.working[node.Name]
		if !ok {
			return nil, relerr.New(relerr.CodeInvalidRecursiveShape, node.Name,
				"self-reference to %q outside its recursive term", node.Name)
		}
		return t, nil
	case *relplan.Join:
		return e.evalJoin(ctx, ev, node)
	case *relplan.SetOp:
		return e.evalSetOp(ctx, ev, node)
	case *relplan.Group:
		input, err := e.evalNode(ctx, ev, node.Input)
		if err != nil {
			return nil, err
		}
		res, err := e.group(input, node.Spec, node.Aggregates)
		if err != nil {
			return nil, err
		}
		return res.Table, nil
	case *relplan.With:
		return e.evalWith(ctx, ev, node)
	case *relplan.Query:
		return e.evalQuery(ctx, ev, node)
	default:
		return nil, relerr.New(relerr.CodeInvalidJoinShape, "plan",
			"unknown plan node %T", n)
	}
}

// wrapCompareErr maps relval's typed comparison errors onto the
// structured error surface, passing EvalErrors through unchanged.
func wrapCompareErr(operator string, err error) error {
	switch err.(type) {
	case *relerr.EvalError:
		return err
	case *relval.CollationError:
		return relerr.Wrap(relerr.CodeCollationConflict, operator, err)
	default:
		return relerr.Wrap(relerr.CodeTypeMismatch, operator, err)
	}
}

// evalTri evaluates a predicate to a TriBool over one row.
func (e *Evaluator) evalTri(s relplan.Scalar, row relrow.Row) (relval.TriBool, error) {
	v, err := s.Eval(e.exprCtx(), row)
	if err != nil {
		return relval.Unknown, err
	}
	t, ok := relval.TriFromValue(v)
	if !ok {
		return relval.Unknown, relerr.New(relerr.CodeTypeMismatch, "predicate",
			"predicate evaluated to %s, want BOOL", v.Kind())
	}
	return t, nil
}
