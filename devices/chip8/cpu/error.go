package cpu

import (
	"fmt"

	"github.com/pkg/errors"
)

// Failure kinds. Every one of them is fatal to the Step call that raised it.
var (
	ErrOutOfRange         = errors.New("address out of range")
	ErrProgramTooLarge    = errors.New("program too large")
	ErrStackUnderflow     = errors.New("stack underflow")
	ErrStackOverflow      = errors.New("stack overflow")
	ErrIllegalInstruction = errors.New("illegal instruction")
)

// Error defines a runtime error, tied to the instruction that raised it.
type Error struct {
	Instruction
	Err error
}

// NewError creates a new runtime error for the given instruction.
func NewError(instr Instruction, err error) *Error {
	return &Error{
		Instruction: instr,
		Err:         err,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%04x: %s: %v", e.Address, e.Opcode, e.Err)
}

// Unwrap returns the underlying failure, so errors.Is can match the kinds above.
func (e *Error) Unwrap() error {
	return e.Err
}

// Cause implements the causer interface of github.com/pkg/errors.
func (e *Error) Cause() error {
	return e.Err
}
