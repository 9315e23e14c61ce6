// Package releng executes resolved logical plans.
//
// The evaluator is a pipeline of pure transformations over immutable
// tables: each operator materializes its output before the next stage
// reads it, no operator mutates a row after construction, and the only
// shared state is read-only schema and table handles. Cancellation is
// checked between stages through the caller's context; no stage blocks
// on I/O.
//
// Determinism matters more than throughput here. Operators preserve
// left-major, declaration-order row sequencing even where the contract
// leaves ordering unspecified, so repeated evaluations of one plan over
// one dataset produce byte-identical results. Ordering is guaranteed to
// callers only after an explicit ORDER BY.
//
// Recursive CTE evaluation is an explicit iterative loop over a held
// working set, never language-level recursion: iteration k+1 depends on
// iteration k's complete output, memory stays inspectable, and a hard
// iteration cap (WithMaxIterations) turns runaway recursion into a
// NON_TERMINATING_RECURSION error instead of a hang.
package releng
