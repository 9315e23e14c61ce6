package relval

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Kind identifies the variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindDouble
	KindNumeric
	KindString
	KindBytes
	KindDate
	KindTime
	KindTimestamp
	KindInterval
	KindArray
	KindStruct
	KindJSON
)

// String returns the SQL-facing name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindBool:
		return "BOOL"
	case KindInt:
		return "INT64"
	case KindDouble:
		return "DOUBLE"
	case KindNumeric:
		return "NUMERIC"
	case KindString:
		return "STRING"
	case KindBytes:
		return "BYTES"
	case KindDate:
		return "DATE"
	case KindTime:
		return "TIME"
	case KindTimestamp:
		return "TIMESTAMP"
	case KindInterval:
		return "INTERVAL"
	case KindArray:
		return "ARRAY"
	case KindStruct:
		return "STRUCT"
	case KindJSON:
		return "JSON"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a sealed interface over the closed set of value variants.
// Only the types in this package implement it. The marker method keeps
// external packages from adding variants, which keeps every type switch
// in the comparison and key-encoding dispatchers exhaustive.
type Value interface {
	value() // sealed
	Kind() Kind
}

// Null is the SQL NULL of any type.
type Null struct{}

func (Null) value()     {}
func (Null) Kind() Kind { return KindNull }

// Bool is a SQL BOOL. FALSE orders before TRUE.
type Bool bool

func (Bool) value()     {}
func (Bool) Kind() Kind { return KindBool }

// Int is a SQL INT64.
type Int int64

func (Int) value()     {}
func (Int) Kind() Kind { return KindInt }

// Double is a SQL DOUBLE (IEEE 754 binary64, NaN and infinities included).
type Double float64

func (Double) value()     {}
func (Double) Kind() Kind { return KindDouble }

// Numeric is an arbitrary-precision decimal backed by apd.
type Numeric struct {
	Dec apd.Decimal
}

func (Numeric) value()     {}
func (Numeric) Kind() Kind { return KindNumeric }

// ParseNumeric parses a decimal literal into a Numeric value.
func ParseNumeric(s string) (Numeric, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Numeric{}, fmt.Errorf("parse NUMERIC %q: %w", s, err)
	}
	return Numeric{Dec: *d}, nil
}

// MustNumeric parses a decimal literal, panicking on malformed input.
// Intended for literals in tests and fixtures.
func MustNumeric(s string) Numeric {
	n, err := ParseNumeric(s)
	if err != nil {
		panic(err)
	}
	return n
}

// String is a SQL STRING with an optional collation specification.
//
// The collation spec has the form "language_tag[:attribute]", for example
// "und:ci". Empty means no explicit collation: comparisons fall back to the
// CollationContext default, which is codepoint-order ("binary") unless
// configured otherwise.
type String struct {
	S         string
	Collation string
}

func (String) value()     {}
func (String) Kind() Kind { return KindString }

// NewString creates a String with no explicit collation.
func NewString(s string) String {
	return String{S: s}
}

// NewCollatedString creates a String carrying an explicit collation spec.
func NewCollatedString(s, collation string) String {
	return String{S: s, Collation: collation}
}

// Bytes is a SQL BYTES value, compared bytewise.
type Bytes []byte

func (Bytes) value()     {}
func (Bytes) Kind() Kind { return KindBytes }

// Date is a SQL DATE as days since 1970-01-01.
type Date int32

func (Date) value()     {}
func (Date) Kind() Kind { return KindDate }

// Time is a SQL TIME as nanoseconds since midnight.
type Time int64

func (Time) value()     {}
func (Time) Kind() Kind { return KindTime }

// Timestamp is a SQL TIMESTAMP as microseconds since the Unix epoch.
type Timestamp int64

func (Timestamp) value()     {}
func (Timestamp) Kind() Kind { return KindTimestamp }

// Interval is a SQL INTERVAL in its canonical three-part form.
// Comparison normalizes one month to 30 days and one day to 24 hours.
type Interval struct {
	Months int32
	Days   int32
	Nanos  int64
}

func (Interval) value()     {}
func (Interval) Kind() Kind { return KindInterval }

// Array is an ordered sequence of element Values.
type Array []Value

func (Array) value()     {}
func (Array) Kind() Kind { return KindArray }

// StructField is one named field of a Struct value.
type StructField struct {
	Name  string
	Value Value
}

// Struct is an ordered sequence of named field Values.
// Structs support only equality comparison, never ordering.
type Struct struct {
	Fields []StructField
}

func (Struct) value()     {}
func (Struct) Kind() Kind { return KindStruct }

// NewStruct builds a Struct from fields in order.
func NewStruct(fields ...StructField) Struct {
	return Struct{Fields: fields}
}

// F is a shorthand StructField constructor.
// Example: NewStruct(F("x", Int(1)), F("y", NewString("a")))
func F(name string, v Value) StructField {
	return StructField{Name: name, Value: v}
}

// JSON holds a JSON document as text. JSON supports neither equality nor
// ordering; it only passes through the pipeline.
type JSON string

func (JSON) value()     {}
func (JSON) Kind() Kind { return KindJSON }

// IsNull reports whether v is the NULL value.
func IsNull(v Value) bool {
	_, ok := v.(Null)
	return ok
}

// Format renders a value for diagnostics and result printing.
// Not a SQL-standard cast; formatting/casting proper is a collaborator
// concern outside this core.
func Format(v Value) string {
	switch val := v.(type) {
	case Null:
		return "NULL"
	case Bool:
		if val {
			return "true"
		}
		return "false"
	case Int:
		return fmt.Sprintf("%d", int64(val))
	case Double:
		return fmt.Sprintf("%g", float64(val))
	case Numeric:
		d := val.Dec
		return d.Text('f')
	case String:
		return string(val.S)
	case Bytes:
		return fmt.Sprintf("b%q", string(val))
	case Date:
		return fmt.Sprintf("DATE(%d)", int32(val))
	case Time:
		return fmt.Sprintf("TIME(%d)", int64(val))
	case Timestamp:
		return fmt.Sprintf("TIMESTAMP(%d)", int64(val))
	case Interval:
		return fmt.Sprintf("INTERVAL(%d,%d,%d)", val.Months, val.Days, val.Nanos)
	case Array:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = Format(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case Struct:
		parts := make([]string, len(val.Fields))
		for i, f := range val.Fields {
			parts[i] = f.Name + ":" + Format(f.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case JSON:
		return string(val)
	default:
		return fmt.Sprintf("<%T>", v)
	}
}
