package compiler

import "evaluator/pkg/vm"

// foldConstants collapses sub-trees whose operands are all literals.
// A division or modulo by a literal zero is left in place so it still
// faults at run time, and a conditional with a literal condition keeps both
// arms when either arm could fault.
func foldConstants(e Expr) Expr {
	switch n := e.(type) {
	case *BinaryExpr:
		n.Left = foldConstants(n.Left)
		n.Right = foldConstants(n.Right)
		left, lok := n.Left.(*Literal)
		right, rok := n.Right.(*Literal)
		if !lok || !rok {
			return n
		}
		if res, ok := vm.Eval(binaryOps[n.Op], left.Value, right.Value); ok {
			return &Literal{Value: res}
		}
		return n

	case *UnaryExpr:
		n.Right = foldConstants(n.Right)
		if lit, ok := n.Right.(*Literal); ok {
			return &Literal{Value: vm.EvalUnary(unaryOps[n.Op], lit.Value)}
		}
		return n

	case *CondExpr:
		n.Cond = foldConstants(n.Cond)
		n.Then = foldConstants(n.Then)
		n.Else = foldConstants(n.Else)
		cond, ok := n.Cond.(*Literal)
		if !ok || mayFault(n.Then) || mayFault(n.Else) {
			return n
		}
		if cond.Value != 0 {
			return n.Then
		}
		return n.Else
	}
	return e
}

// mayFault reports whether evaluating e could end in a run-time error.
func mayFault(e Expr) bool {
	switch n := e.(type) {
	case *BinaryExpr:
		if n.Op == SLASH || n.Op == PERCENT {
			if lit, ok := n.Right.(*Literal); !ok || lit.Value == 0 {
				return true
			}
		}
		return mayFault(n.Left) || mayFault(n.Right)
	case *UnaryExpr:
		return mayFault(n.Right)
	case *CondExpr:
		return mayFault(n.Cond) || mayFault(n.Then) || mayFault(n.Else)
	}
	return false
}
