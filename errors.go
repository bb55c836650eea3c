// errors.go - error kinds for the IA-32 interpretive core.
//
// Sentinel errors, wrapped with fmt.Errorf("%w: ...") at the call site so
// errors.Is still matches while the message carries the offending
// address/opcode.

package vm

import "errors"

// Sentinel error kinds.
var (
	// ErrOutOfBounds is returned by Memory and RegisterFile accesses whose
	// offset/size fall outside the defined range.
	ErrOutOfBounds = errors.New("out of bounds")

	// ErrStackOverflow is returned when StackPush would move ESP below
	// CodeSegmentEnd.
	ErrStackOverflow = errors.New("stack overflow")

	// ErrInvalidOpcode is returned when no registered handler accepts the
	// primary opcode (and its extension field, if any).
	ErrInvalidOpcode = errors.New("invalid opcode")

	// ErrInvalidEncoding is returned when ModR/M/SIB decode to a
	// structurally malformed form.
	ErrInvalidEncoding = errors.New("invalid encoding")
)
