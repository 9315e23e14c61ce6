package relval

import (
	"bytes"
	"math"

	"github.com/cockroachdb/apd/v3"
)

// Ordering is the result of a Compare call.
type Ordering int8

const (
	Less         Ordering = -1
	Equal        Ordering = 0
	Greater      Ordering = 1
	Incomparable Ordering = 2
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "Less"
	case Equal:
		return "Equal"
	case Greater:
		return "Greater"
	default:
		return "Incomparable"
	}
}

func orderingOf(c int) Ordering {
	switch {
	case c < 0:
		return Less
	case c > 0:
		return Greater
	default:
		return Equal
	}
}

// numClass buckets a numeric value for the total sort order:
// NaN < -Inf < finite < +Inf.
type numClass int8

const (
	numNaN numClass = iota
	numNegInf
	numFinite
	numPosInf
)

// numRep reduces Int, Double and Numeric to a comparable representation.
// Finite values land in one decimal domain so cross-kind comparison within
// the numeric family is exact.
func numRep(v Value) (numClass, *apd.Decimal, error) {
	switch val := v.(type) {
	case Int:
		var d apd.Decimal
		d.SetInt64(int64(val))
		return numFinite, &d, nil
	case Numeric:
		d := val.Dec
		return numFinite, &d, nil
	case Double:
		f := float64(val)
		switch {
		case math.IsNaN(f):
			return numNaN, nil, nil
		case math.IsInf(f, 1):
			return numPosInf, nil, nil
		case math.IsInf(f, -1):
			return numNegInf, nil, nil
		}
		var d apd.Decimal
		if _, err := d.SetFloat64(f); err != nil {
			return numFinite, nil, err
		}
		return numFinite, &d, nil
	default:
		return numFinite, nil, &TypeError{Op: "numeric compare", Left: v.Kind(), Right: v.Kind()}
	}
}

func isNumericKind(k Kind) bool {
	return k == KindInt || k == KindDouble || k == KindNumeric
}

// Compare orders two values under the sorting total order:
//
//	NULL < NaN < -Inf < negatives < 0 < positives < +Inf
//
// This order exists for ORDER BY and sort-based operators only. It is not
// predicate equality; use Equals3VL for that. STRUCT and JSON values have
// no order and compare as Incomparable (with a nil error; rejecting them
// is the caller's decision).
func Compare(ctx *CollationContext, a, b Value) (Ordering, error) {
	an, bn := IsNull(a), IsNull(b)
	switch {
	case an && bn:
		return Equal, nil
	case an:
		return Less, nil
	case bn:
		return Greater, nil
	}

	if isNumericKind(a.Kind()) && isNumericKind(b.Kind()) {
		return compareNumbers(a, b)
	}
	if a.Kind() != b.Kind() {
		return Incomparable, &TypeError{Op: "comparison", Left: a.Kind(), Right: b.Kind()}
	}

	switch av := a.(type) {
	case Bool:
		bv := b.(Bool)
		switch {
		case !bool(av) && bool(bv):
			return Less, nil
		case bool(av) && !bool(bv):
			return Greater, nil
		default:
			return Equal, nil
		}
	case String:
		c, err := ctx.CompareStrings(av, b.(String))
		if err != nil {
			return Incomparable, err
		}
		return orderingOf(c), nil
	case Bytes:
		return orderingOf(bytes.Compare(av, b.(Bytes))), nil
	case Date:
		return orderingOf(compareInt64(int64(av), int64(b.(Date)))), nil
	case Time:
		return orderingOf(compareInt64(int64(av), int64(b.(Time)))), nil
	case Timestamp:
		return orderingOf(compareInt64(int64(av), int64(b.(Timestamp)))), nil
	case Interval:
		return compareIntervals(av, b.(Interval)), nil
	case Array:
		return compareArrays(ctx, av, b.(Array))
	case Struct, JSON:
		return Incomparable, nil
	default:
		return Incomparable, &TypeError{Op: "comparison", Left: a.Kind(), Right: b.Kind()}
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareNumbers(a, b Value) (Ordering, error) {
	ac, ad, err := numRep(a)
	if err != nil {
		return Incomparable, err
	}
	bc, bd, err := numRep(b)
	if err != nil {
		return Incomparable, err
	}
	if ac != bc {
		if ac < bc {
			return Less, nil
		}
		return Greater, nil
	}
	if ac != numFinite {
		return Equal, nil
	}
	return orderingOf(ad.Cmp(bd)), nil
}

const nanosPerDay = 86400_000_000_000

// compareIntervals normalizes months to 30 days and days to 24 hours
// before comparing.
func compareIntervals(a, b Interval) Ordering {
	ad, an := intervalParts(a)
	bd, bn := intervalParts(b)
	if c := compareInt64(ad, bd); c != 0 {
		return orderingOf(c)
	}
	return orderingOf(compareInt64(an, bn))
}

func intervalParts(iv Interval) (days, nanos int64) {
	days = int64(iv.Months)*30 + int64(iv.Days)
	days += iv.Nanos / nanosPerDay
	nanos = iv.Nanos % nanosPerDay
	if nanos < 0 {
		nanos += nanosPerDay
		days--
	}
	return days, nanos
}

// compareArrays orders arrays elementwise, shorter prefix first.
// NULL elements participate via the total order (NULL least).
func compareArrays(ctx *CollationContext, a, b Array) (Ordering, error) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		o, err := Compare(ctx, a[i], b[i])
		if err != nil || o == Incomparable {
			return Incomparable, err
		}
		if o != Equal {
			return o, nil
		}
	}
	return orderingOf(compareInt64(int64(len(a)), int64(len(b)))), nil
}

// Equals3VL is three-valued predicate equality.
//
// Any NULL operand yields Unknown. NaN equals nothing, itself included
// (so `x != NaN` is True via negation at the expression layer). STRUCT
// equality is positional with the NULL-field rule: one differing non-null
// pair forces False; otherwise any NULL-involved pair forces Unknown.
// JSON does not support equality.
func Equals3VL(ctx *CollationContext, a, b Value) (TriBool, error) {
	if IsNull(a) || IsNull(b) {
		return Unknown, nil
	}

	if isNumericKind(a.Kind()) && isNumericKind(b.Kind()) {
		if isNaN(a) || isNaN(b) {
			return False, nil
		}
		o, err := compareNumbers(a, b)
		if err != nil {
			return Unknown, err
		}
		return FromBool(o == Equal), nil
	}
	if a.Kind() != b.Kind() {
		return Unknown, &TypeError{Op: "=", Left: a.Kind(), Right: b.Kind()}
	}

	switch av := a.(type) {
	case Array:
		return arrayEquals(ctx, av, b.(Array))
	case Struct:
		return structEquals(ctx, av, b.(Struct))
	case JSON:
		return Unknown, &TypeError{Op: "=", Left: KindJSON, Right: KindJSON}
	default:
		o, err := Compare(ctx, a, b)
		if err != nil {
			return Unknown, err
		}
		if o == Incomparable {
			return Unknown, &TypeError{Op: "=", Left: a.Kind(), Right: b.Kind()}
		}
		return FromBool(o == Equal), nil
	}
}

func isNaN(v Value) bool {
	d, ok := v.(Double)
	return ok && math.IsNaN(float64(d))
}

func arrayEquals(ctx *CollationContext, a, b Array) (TriBool, error) {
	if len(a) != len(b) {
		return False, nil
	}
	result := True
	for i := range a {
		t, err := Equals3VL(ctx, a[i], b[i])
		if err != nil {
			return Unknown, err
		}
		if t == False {
			return False, nil
		}
		result = result.And(t)
	}
	return result, nil
}

func structEquals(ctx *CollationContext, a, b Struct) (TriBool, error) {
	if len(a.Fields) != len(b.Fields) {
		return Unknown, &TypeError{Op: "=", Left: KindStruct, Right: KindStruct}
	}
	sawUnknown := false
	for i := range a.Fields {
		fa, fb := a.Fields[i].Value, b.Fields[i].Value
		if IsNull(fa) || IsNull(fb) {
			sawUnknown = true
			continue
		}
		t, err := Equals3VL(ctx, fa, fb)
		if err != nil {
			return Unknown, err
		}
		switch t {
		case False:
			return False, nil
		case Unknown:
			sawUnknown = true
		}
	}
	if sawUnknown {
		return Unknown, nil
	}
	return True, nil
}

// IsDistinctFrom implements `a IS DISTINCT FROM b`: two-valued, never
// Unknown. NULL is not distinct from NULL, and NaN is not distinct from
// NaN, matching grouping sameness. Implemented over the group-key
// encoding so this predicate and GROUP BY can never disagree.
func IsDistinctFrom(ctx *CollationContext, a, b Value) (bool, error) {
	ka, err := AppendGroupKey(nil, ctx, a)
	if err != nil {
		return false, err
	}
	kb, err := AppendGroupKey(nil, ctx, b)
	if err != nil {
		return false, err
	}
	return !bytes.Equal(ka, kb), nil
}
