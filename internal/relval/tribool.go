package relval

// TriBool is the three-valued truth domain: True, False, Unknown.
// Unknown is SQL NULL in a boolean position.
type TriBool uint8

const (
	False TriBool = iota
	True
	Unknown
)

// FromBool lifts a Go bool into the three-valued domain.
func FromBool(b bool) TriBool {
	if b {
		return True
	}
	return False
}

// And applies the three-valued AND truth table.
//
//	F AND x = F; T AND T = T; otherwise Unknown.
//
// Either operand may determine the result alone, so callers are free to
// skip evaluating one operand when the other is already False.
func (t TriBool) And(u TriBool) TriBool {
	if t == False || u == False {
		return False
	}
	if t == Unknown || u == Unknown {
		return Unknown
	}
	return True
}

// Or applies the three-valued OR truth table.
//
//	T OR x = T; F OR F = F; otherwise Unknown.
func (t TriBool) Or(u TriBool) TriBool {
	if t == True || u == True {
		return True
	}
	if t == Unknown || u == Unknown {
		return Unknown
	}
	return False
}

// Not applies the three-valued NOT truth table. NOT Unknown is Unknown.
func (t TriBool) Not() TriBool {
	switch t {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

// Value lowers a TriBool to a Value: Unknown becomes NULL.
func (t TriBool) Value() Value {
	switch t {
	case True:
		return Bool(true)
	case False:
		return Bool(false)
	default:
		return Null{}
	}
}

// TriFromValue lifts a BOOL-typed Value into the three-valued domain.
// NULL lifts to Unknown. Any other kind is a type error at the call site;
// this helper reports it via ok=false.
func TriFromValue(v Value) (t TriBool, ok bool) {
	switch val := v.(type) {
	case Null:
		return Unknown, true
	case Bool:
		return FromBool(bool(val)), true
	default:
		return Unknown, false
	}
}

// String returns "TRUE", "FALSE" or "UNKNOWN".
func (t TriBool) String() string {
	switch t {
	case True:
		return "TRUE"
	case False:
		return "FALSE"
	default:
		return "UNKNOWN"
	}
}
