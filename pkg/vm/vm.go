// Package vm executes compiled bytebeat programs.
//
// A Program is a flat sequence of stack instructions with no jumps, so every
// run is bounded by the program length. MaxInstructions caps it anyway so a
// run can never stall a real-time audio callback.
package vm

import "fmt"

// MaxInstructions is the instruction ceiling of a single run.
const MaxInstructions = 4096

// Program is a compiled instruction sequence together with the variable table
// and evaluation stack it owns. A Program is not safe for concurrent use; the
// owner serialises Run, Set and Get.
type Program struct {
	code  []Instruction
	vars  Variables
	stack []Value

	ic  uint64
	err RuntimeError
}

// NewProgram validates code and returns a ready-to-run Program.
// The code slice is copied.
func NewProgram(code []Instruction) (*Program, error) {
	if len(code) == 0 {
		return nil, ErrEmptyProgram
	}

	depth, maxDepth := 0, 0
	for i, in := range code {
		if !in.Op.Valid() {
			return nil, fmt.Errorf("%w %d at instruction %d", ErrBadOpcode, in.Op, i)
		}
		if in.Op == OpLOAD && (in.Arg > 0xFF || !IsVariable(byte(in.Arg))) {
			return nil, fmt.Errorf("%w %d at instruction %d", ErrBadVariable, in.Arg, i)
		}
		n := in.Op.Arity()
		if depth < n {
			return nil, fmt.Errorf("%w at instruction %d (%s)", ErrStackUnderflow, i, in)
		}
		depth = depth - n + 1
		if depth > maxDepth {
			maxDepth = depth
		}
	}
	if depth != 1 {
		return nil, fmt.Errorf("%w, got %d", ErrUnbalanced, depth)
	}

	p := &Program{
		code:  make([]Instruction, len(code)),
		stack: make([]Value, maxDepth),
	}
	copy(p.code, code)
	return p, nil
}

// Set writes a variable. Unrecognised names are ignored.
func (p *Program) Set(name byte, v Value) { p.vars.Set(name, v) }

// Get reads a variable. Unrecognised names read as 0.
func (p *Program) Get(name byte) Value { return p.vars.Get(name) }

// InstructionCount is the number of instructions executed by the last run,
// including a faulting instruction.
func (p *Program) InstructionCount() uint64 { return p.ic }

// Err is the status of the last run.
func (p *Program) Err() RuntimeError { return p.err }

// Code returns the instruction sequence. Callers must not modify it.
func (p *Program) Code() []Instruction { return p.code }

// Len is the number of instructions in the program.
func (p *Program) Len() int { return len(p.code) }

// StackSize is the evaluation stack depth the program needs.
func (p *Program) StackSize() int { return len(p.stack) }

// Run executes the program once against the current variable values.
// On success it returns the computed value and a nil error; otherwise it
// returns 0 and a RuntimeError. A fault does not invalidate the Program.
func (p *Program) Run() (Value, error) {
	p.ic = 0
	p.err = NoRuntimeError

	sp := 0
	s := p.stack
	for _, in := range p.code {
		if p.ic >= MaxInstructions {
			p.err = InstructionLimitExceeded
			return 0, p.err
		}
		p.ic++

		switch in.Op {
		case OpPUSH:
			s[sp] = in.Arg
			sp++
		case OpLOAD:
			s[sp] = p.vars[in.Arg]
			sp++

		case OpNEG:
			s[sp-1] = -s[sp-1]
		case OpNOT:
			s[sp-1] = ^s[sp-1]
		case OpLNOT:
			s[sp-1] = b2v(s[sp-1] == 0)

		case OpSEL:
			sp -= 2
			if s[sp-1] != 0 {
				s[sp-1] = s[sp]
			} else {
				s[sp-1] = s[sp+1]
			}

		default:
			sp--
			a, b := s[sp-1], s[sp]
			r, fault := binary(in.Op, a, b)
			if fault != NoRuntimeError {
				p.err = fault
				return 0, fault
			}
			s[sp-1] = r
		}
	}
	return s[0], nil
}

func binary(op Op, a, b Value) (Value, RuntimeError) {
	switch op {
	case OpADD:
		return a + b, NoRuntimeError
	case OpSUB:
		return a - b, NoRuntimeError
	case OpMUL:
		return a * b, NoRuntimeError
	case OpDIV:
		if b == 0 {
			return 0, DivisionByZero
		}
		return a / b, NoRuntimeError
	case OpMOD:
		if b == 0 {
			return 0, ModuloByZero
		}
		return a % b, NoRuntimeError
	case OpAND:
		return a & b, NoRuntimeError
	case OpOR:
		return a | b, NoRuntimeError
	case OpXOR:
		return a ^ b, NoRuntimeError
	case OpSHL:
		return a << b, NoRuntimeError
	case OpSHR:
		return a >> b, NoRuntimeError
	case OpEQ:
		return b2v(a == b), NoRuntimeError
	case OpNE:
		return b2v(a != b), NoRuntimeError
	case OpLT:
		return b2v(a < b), NoRuntimeError
	case OpGT:
		return b2v(a > b), NoRuntimeError
	case OpLE:
		return b2v(a <= b), NoRuntimeError
	case OpGE:
		return b2v(a >= b), NoRuntimeError
	case OpLAND:
		return b2v(a != 0 && b != 0), NoRuntimeError
	case OpLOR:
		return b2v(a != 0 || b != 0), NoRuntimeError
	}
	return 0, NoRuntimeError
}

// Eval applies a binary op to two constants. It reports false when the
// operation would fault at run time.
func Eval(op Op, a, b Value) (Value, bool) {
	r, fault := binary(op, a, b)
	return r, fault == NoRuntimeError
}

// EvalUnary applies a unary op to a constant.
func EvalUnary(op Op, a Value) Value {
	switch op {
	case OpNEG:
		return -a
	case OpNOT:
		return ^a
	case OpLNOT:
		return b2v(a == 0)
	}
	return a
}

func b2v(b bool) Value {
	if b {
		return 1
	}
	return 0
}
