// Package relval defines the value model for the quarrel evaluation core.
//
// Values form a closed, sealed variant: Null, Bool, Int, Double, Numeric,
// String, Bytes, Date, Time, Timestamp, Interval, Array, Struct, and JSON.
// Dispatch is always an exhaustive type switch over the sealed interface,
// never reflection. Values are immutable once constructed; every transform
// produces a new Value.
//
// Two distinct rule sets govern comparison and they must not be conflated:
//
//   - Ordering (Compare): a total order used by ORDER BY and sort-based
//     operators. NULL orders before everything, NaN orders between NULL
//     and -Inf, and -0.0 ties with +0.0.
//
//   - Equality (Equals3VL): three-valued predicate equality. Any NULL
//     operand yields Unknown, and NaN is equal to nothing, itself included.
//
// A third notion, grouping sameness, backs GROUP BY, DISTINCT, set
// operations and IS [NOT] DISTINCT FROM: NULLs are the same as each other
// and NaNs are the same as each other. It is realized as a byte-comparable
// key encoding (AppendGroupKey) so that hash-based operators and the
// distinctness predicate cannot disagree.
//
// String comparison is collation-aware. There is no ambient locale: every
// comparison receives an explicit CollationContext.
package relval
