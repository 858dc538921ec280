package compiler

import (
	"fmt"

	"evaluator/pkg/vm"
)

var binaryOps = map[TokenType]vm.Op{
	PLUS:        vm.OpADD,
	MINUS:       vm.OpSUB,
	STAR:        vm.OpMUL,
	SLASH:       vm.OpDIV,
	PERCENT:     vm.OpMOD,
	AND:         vm.OpAND,
	PIPE:        vm.OpOR,
	CARET:       vm.OpXOR,
	SHL_OP:      vm.OpSHL,
	SHR_OP:      vm.OpSHR,
	EQUALS:      vm.OpEQ,
	NOT_EQ:      vm.OpNE,
	LESS:        vm.OpLT,
	GREATER:     vm.OpGT,
	LESS_EQ:     vm.OpLE,
	GREATER_EQ:  vm.OpGE,
	AND_LOGICAL: vm.OpLAND,
	OR_LOGICAL:  vm.OpLOR,
}

var unaryOps = map[TokenType]vm.Op{
	MINUS: vm.OpNEG,
	TILDE: vm.OpNOT,
	NOT:   vm.OpLNOT,
}

// CodeGen walks an expression tree and emits VM instructions in post-order,
// so every operand is on the stack before its operator runs.
type CodeGen struct {
	code []vm.Instruction
}

func (cg *CodeGen) emit(op vm.Op, arg vm.Value) {
	cg.code = append(cg.code, vm.Instruction{Op: op, Arg: arg})
}

// genExpr leaves the value of e on top of the stack.
func (cg *CodeGen) genExpr(e Expr) error {
	switch n := e.(type) {
	case *Literal:
		cg.emit(vm.OpPUSH, n.Value)

	case *VarRef:
		cg.emit(vm.OpLOAD, vm.Value(n.Name))

	case *UnaryExpr:
		op, ok := unaryOps[n.Op]
		if !ok {
			return fmt.Errorf("codegen: unknown unary operator %s", n.Op)
		}
		if err := cg.genExpr(n.Right); err != nil {
			return err
		}
		cg.emit(op, 0)

	case *BinaryExpr:
		op, ok := binaryOps[n.Op]
		if !ok {
			return fmt.Errorf("codegen: unknown binary operator %s", n.Op)
		}
		if err := cg.genExpr(n.Left); err != nil {
			return err
		}
		if err := cg.genExpr(n.Right); err != nil {
			return err
		}
		cg.emit(op, 0)

	case *CondExpr:
		// Both arms are evaluated; SEL picks one without branching.
		if err := cg.genExpr(n.Cond); err != nil {
			return err
		}
		if err := cg.genExpr(n.Then); err != nil {
			return err
		}
		if err := cg.genExpr(n.Else); err != nil {
			return err
		}
		cg.emit(vm.OpSEL, 0)

	default:
		return fmt.Errorf("codegen: unsupported node %T", e)
	}
	return nil
}

// Generate lowers an expression tree into a flat instruction sequence.
func Generate(e Expr) ([]vm.Instruction, error) {
	cg := &CodeGen{}
	if err := cg.genExpr(e); err != nil {
		return nil, err
	}
	return cg.code, nil
}
