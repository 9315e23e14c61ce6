// Package relplan defines the resolved logical plan the evaluation core
// consumes: plan nodes (scans, joins, set operations, grouping, recursive
// bindings, queries), resolved scalar expressions, and the collaborator
// interfaces the core depends on (row producers, aggregate accumulators,
// type coercion).
//
// Plan nodes form a sealed interface: only types in this package
// implement Node, so executors can type-switch exhaustively. Scalar is
// deliberately NOT sealed; an external scalar-function library plugs in
// through it (or through the Func adapter).
//
// This package performs no evaluation. It does perform all the structural
// validity checks that must fail before any row flows: join shapes,
// recursive self-reference placement, and WITH dependency cycles
// (Validate).
package relplan
