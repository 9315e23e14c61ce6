package relval

import (
	"encoding/binary"

	"github.com/cockroachdb/apd/v3"
)

// Group-key encoding tags. One byte per variant; NULL shares a single tag
// across all types so grouping treats NULLs of any type as the same key.
const (
	tagNull      = 'N'
	tagBool      = 'b'
	tagNumber    = 'n'
	tagNaN       = 'f'
	tagNegInf    = 'm'
	tagPosInf    = 'p'
	tagString    = 's'
	tagBytes     = 'y'
	tagDate      = 'D'
	tagTime      = 'T'
	tagTimestamp = 'Z'
	tagInterval  = 'I'
	tagArray     = 'a'
	tagStruct    = 't'
	tagJSON      = 'j'
)

// AppendGroupKey appends a byte encoding of v under grouping sameness:
// two values encode identically iff GROUP BY, DISTINCT, set operations and
// IS DISTINCT FROM treat them as the same.
//
// This is deliberately NOT predicate equality: NULLs encode the same as
// each other, NaNs encode the same as each other, -0.0 encodes as 0.0,
// and Int 1, Double 1.0 and NUMERIC 1.00 all encode to one key. Strings
// encode through their collation sort key so case-insensitive collations
// group case-insensitively.
//
// Variable-length parts are length-prefixed so adjacent key columns can
// never alias each other.
func AppendGroupKey(dst []byte, ctx *CollationContext, v Value) ([]byte, error) {
	switch val := v.(type) {
	case Null:
		return append(dst, tagNull), nil
	case Bool:
		dst = append(dst, tagBool)
		if val {
			return append(dst, 1), nil
		}
		return append(dst, 0), nil
	case Int, Double, Numeric:
		return appendNumberKey(dst, v)
	case String:
		spec := val.Collation
		if explicitSpec(spec) == "" {
			spec = ctx.Default()
		}
		key, err := ctx.SortKey(spec, val.S)
		if err != nil {
			return nil, err
		}
		dst = append(dst, tagString)
		dst = binary.AppendUvarint(dst, uint64(len(key)))
		return append(dst, key...), nil
	case Bytes:
		dst = append(dst, tagBytes)
		dst = binary.AppendUvarint(dst, uint64(len(val)))
		return append(dst, val...), nil
	case Date:
		dst = append(dst, tagDate)
		return binary.BigEndian.AppendUint32(dst, uint32(val)), nil
	case Time:
		dst = append(dst, tagTime)
		return binary.BigEndian.AppendUint64(dst, uint64(val)), nil
	case Timestamp:
		dst = append(dst, tagTimestamp)
		return binary.BigEndian.AppendUint64(dst, uint64(val)), nil
	case Interval:
		days, nanos := intervalParts(val)
		dst = append(dst, tagInterval)
		dst = binary.BigEndian.AppendUint64(dst, uint64(days))
		return binary.BigEndian.AppendUint64(dst, uint64(nanos)), nil
	case Array:
		dst = append(dst, tagArray)
		dst = binary.AppendUvarint(dst, uint64(len(val)))
		var err error
		for _, e := range val {
			if dst, err = AppendGroupKey(dst, ctx, e); err != nil {
				return nil, err
			}
		}
		return dst, nil
	case Struct:
		dst = append(dst, tagStruct)
		dst = binary.AppendUvarint(dst, uint64(len(val.Fields)))
		var err error
		for _, f := range val.Fields {
			if dst, err = AppendGroupKey(dst, ctx, f.Value); err != nil {
				return nil, err
			}
		}
		return dst, nil
	case JSON:
		dst = append(dst, tagJSON)
		dst = binary.AppendUvarint(dst, uint64(len(val)))
		return append(dst, val...), nil
	default:
		return nil, &TypeError{Op: "group key", Left: v.Kind(), Right: v.Kind()}
	}
}

// appendNumberKey encodes Int, Double and Numeric into one shared numeric
// key space. Finite values go through the decimal representation in
// reduced form so equal quantities of different kinds collide.
func appendNumberKey(dst []byte, v Value) ([]byte, error) {
	class, dec, err := numRep(v)
	if err != nil {
		return nil, err
	}
	switch class {
	case numNaN:
		return append(dst, tagNaN), nil
	case numNegInf:
		return append(dst, tagNegInf), nil
	case numPosInf:
		return append(dst, tagPosInf), nil
	}
	// Reduce into a fresh decimal: the representation from numRep can
	// alias the coefficient storage of the Value it came from, and key
	// encoding must never write through a Value.
	var red apd.Decimal
	if dec.IsZero() {
		// Unify 0, -0 and 0.00.
		red.SetInt64(0)
	} else {
		red.Reduce(dec)
	}
	text := red.Text('E')
	dst = append(dst, tagNumber)
	dst = binary.AppendUvarint(dst, uint64(len(text)))
	return append(dst, text...), nil
}

// GroupKeyOfRowValues encodes a tuple of values into one key.
func GroupKeyOfRowValues(ctx *CollationContext, vals []Value) (string, error) {
	var dst []byte
	var err error
	for _, v := range vals {
		if dst, err = AppendGroupKey(dst, ctx, v); err != nil {
			return "", err
		}
	}
	return string(dst), nil
}
