package vm

import "fmt"

// Op is a primitive VM operation.
type Op uint8

const (
	OpPUSH Op = iota // push Arg
	OpLOAD           // push variable Arg
	OpADD
	OpSUB
	OpMUL
	OpDIV
	OpMOD
	OpAND
	OpOR
	OpXOR
	OpSHL
	OpSHR
	OpEQ
	OpNE
	OpLT
	OpGT
	OpLE
	OpGE
	OpLAND // logical and, yields 0 or 1
	OpLOR  // logical or, yields 0 or 1
	OpNEG  // two's complement negation
	OpNOT  // bitwise not
	OpLNOT // logical not
	OpSEL  // cond, a, b -> a if cond != 0 else b

	numOps
)

var opNames = [...]string{
	OpPUSH: "PUSH",
	OpLOAD: "LOAD",
	OpADD:  "ADD",
	OpSUB:  "SUB",
	OpMUL:  "MUL",
	OpDIV:  "DIV",
	OpMOD:  "MOD",
	OpAND:  "AND",
	OpOR:   "OR",
	OpXOR:  "XOR",
	OpSHL:  "SHL",
	OpSHR:  "SHR",
	OpEQ:   "EQ",
	OpNE:   "NE",
	OpLT:   "LT",
	OpGT:   "GT",
	OpLE:   "LE",
	OpGE:   "GE",
	OpLAND: "LAND",
	OpLOR:  "LOR",
	OpNEG:  "NEG",
	OpNOT:  "NOT",
	OpLNOT: "LNOT",
	OpSEL:  "SEL",
}

func (op Op) String() string {
	if op < numOps {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// Valid reports whether op is a known operation.
func (op Op) Valid() bool { return op < numOps }

// Arity is the number of stack operands op consumes. Every op pushes exactly one value.
func (op Op) Arity() int {
	switch op {
	case OpPUSH, OpLOAD:
		return 0
	case OpNEG, OpNOT, OpLNOT:
		return 1
	case OpSEL:
		return 3
	default:
		return 2
	}
}

// OpByName maps a mnemonic (upper case) to its Op.
func OpByName(name string) (Op, bool) {
	for i, n := range opNames {
		if n == name {
			return Op(i), true
		}
	}
	return 0, false
}

// Instruction is a single decoded VM instruction. Arg is the constant for
// PUSH and the variable name for LOAD; it is ignored by every other op.
type Instruction struct {
	Op  Op
	Arg Value
}

func (in Instruction) String() string {
	switch in.Op {
	case OpPUSH:
		return fmt.Sprintf("%s %d", in.Op, in.Arg)
	case OpLOAD:
		return fmt.Sprintf("%s %c", in.Op, rune(in.Arg))
	default:
		return in.Op.String()
	}
}
