package vm

import (
	"errors"
	"fmt"
)

// RuntimeError is the closed set of faults a run can end with.
// It implements error so a fault can be returned from Run without allocating.
type RuntimeError uint8

const (
	NoRuntimeError RuntimeError = iota
	DivisionByZero
	ModuloByZero
	InstructionLimitExceeded
)

var runtimeErrorNames = [...]string{
	NoRuntimeError:           "no error",
	DivisionByZero:           "division by zero",
	ModuloByZero:             "modulo by zero",
	InstructionLimitExceeded: "instruction limit exceeded",
}

func (e RuntimeError) String() string {
	if int(e) < len(runtimeErrorNames) {
		return runtimeErrorNames[e]
	}
	return fmt.Sprintf("RuntimeError(%d)", uint8(e))
}

func (e RuntimeError) Error() string { return e.String() }

// Construction errors returned by NewProgram. They indicate a malformed
// instruction sequence, which the compiler never produces.
var (
	ErrEmptyProgram   = errors.New("vm: empty program")
	ErrStackUnderflow = errors.New("vm: stack underflow")
	ErrUnbalanced     = errors.New("vm: program must leave exactly one value")
	ErrBadOpcode      = errors.New("vm: unknown opcode")
	ErrBadVariable    = errors.New("vm: unknown variable")
)
