package relplan

import (
	"github.com/roach88/quarrel/internal/relerr"
	"github.com/roach88/quarrel/internal/relval"
)

// DefaultCoercer is a strict built-in Coercer: identical kinds coerce to
// themselves and the numeric family widens INT64 -> NUMERIC -> DOUBLE.
// Callers with a richer type system inject their own Coercer; this one
// exists so positional set operations work out of the box.
type DefaultCoercer struct{}

// CommonSupertype implements Coercer.
func (DefaultCoercer) CommonSupertype(a, b relval.Kind) (relval.Kind, error) {
	if a == b {
		return a, nil
	}
	// NULL literals adopt the other side's type.
	if a == relval.KindNull {
		return b, nil
	}
	if b == relval.KindNull {
		return a, nil
	}
	if rank(a) > 0 && rank(b) > 0 {
		if rank(a) >= rank(b) {
			return a, nil
		}
		return b, nil
	}
	return 0, relerr.New(relerr.CodeTypeMismatch, "set-op",
		"no common supertype for %s and %s", a, b)
}

func rank(k relval.Kind) int {
	switch k {
	case relval.KindInt:
		return 1
	case relval.KindNumeric:
		return 2
	case relval.KindDouble:
		return 3
	default:
		return 0
	}
}
