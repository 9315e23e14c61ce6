// Package relerr defines the structured error surface of the evaluation
// core. Every failure, whether caught at plan validation or mid
// evaluation, is an *EvalError with a stable code, a human-readable
// message and the offending operator. Errors are unrecoverable: the
// evaluator aborts the query and discards partial output.
package relerr

import (
	"errors"
	"fmt"
)

// Code categorizes evaluation errors.
type Code string

const (
	// CodeTypeMismatch indicates operands with no common comparison or
	// coercion domain.
	CodeTypeMismatch Code = "TYPE_MISMATCH"

	// CodeCollationConflict indicates two different explicit collation
	// specs meeting in one comparison.
	CodeCollationConflict Code = "COLLATION_CONFLICT"

	// CodeInvalidJoinShape indicates a structurally invalid join, such as
	// LATERAL with RIGHT/FULL or an unparenthesized comma cross join
	// followed by RIGHT/FULL.
	CodeInvalidJoinShape Code = "INVALID_JOIN_SHAPE"

	// CodeInvalidRecursiveShape indicates a disallowed self-reference
	// placement, a wrong self-reference count, or cyclic CTE references.
	CodeInvalidRecursiveShape Code = "INVALID_RECURSIVE_SHAPE"

	// CodeColumnSetMismatch indicates BY NAME / CORRESPONDING inputs whose
	// column name sets cannot be reconciled under the requested mode.
	CodeColumnSetMismatch Code = "COLUMN_SET_MISMATCH"

	// CodeDivisionByZero is surfaced unchanged from the scalar-function
	// collaborator.
	CodeDivisionByZero Code = "DIVISION_BY_ZERO"

	// CodeIndexOutOfRange is surfaced unchanged from the scalar-function
	// collaborator.
	CodeIndexOutOfRange Code = "INDEX_OUT_OF_RANGE"

	// CodeNonTerminatingRecursion indicates the recursive CTE iteration
	// cap was exceeded.
	CodeNonTerminatingRecursion Code = "NON_TERMINATING_RECURSION"
)

// EvalError is the structured error for plan validation and evaluation.
type EvalError struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Operator names the offending operator ("join", "set-op", the CTE
	// name, ...) when known.
	Operator string

	// Details carries additional context.
	Details map[string]string

	// Err is the wrapped cause, if any.
	Err error
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	if e.Operator != "" {
		return fmt.Sprintf("%s: %s (operator=%s)", e.Code, e.Message, e.Operator)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause.
func (e *EvalError) Unwrap() error { return e.Err }

// New creates an EvalError with a formatted message.
func New(code Code, operator, format string, args ...any) *EvalError {
	return &EvalError{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Operator: operator,
	}
}

// Wrap attaches a code and operator to an underlying error.
func Wrap(code Code, operator string, err error) *EvalError {
	return &EvalError{
		Code:     code,
		Message:  err.Error(),
		Operator: operator,
		Err:      err,
	}
}

// CodeOf extracts the code from an error, or "" when it is not an
// EvalError. Uses errors.As to handle wrapping.
func CodeOf(err error) Code {
	var ee *EvalError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// Is reports whether err is an EvalError with the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
