package compiler

import "fmt"

// Expr is implemented by every node of an expression tree.
type Expr interface {
	exprNode()
	String() string
}

// Literal is a compile-time integer constant.
//
//	t*128
//	  ^^^  Literal{Value: 128}
type Literal struct {
	Value uint64
}

func (*Literal) exprNode()        {}
func (l *Literal) String() string { return fmt.Sprintf("%d", l.Value) }

// VarRef is a read of one of the fixed variables.
//
//	t*128
//	^  VarRef{Name: 't'}
type VarRef struct {
	Name byte
}

func (*VarRef) exprNode()        {}
func (v *VarRef) String() string { return string(v.Name) }

// BinaryExpr represents Left Op Right. Logical && and || are binary
// expressions too: both operands are always evaluated.
//
//	t >> 4
//	^ ^^ ^
//	| |  Right
//	| Op
//	Left
type BinaryExpr struct {
	Op    TokenType
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// UnaryExpr represents Op Right for -, ~ and !.
type UnaryExpr struct {
	Op    TokenType
	Right Expr
}

func (*UnaryExpr) exprNode()        {}
func (u *UnaryExpr) String() string { return fmt.Sprintf("(%s %s)", u.Op, u.Right) }

// CondExpr is the ternary Cond ? Then : Else.
type CondExpr struct {
	Cond Expr
	Then Expr
	Else Expr
}

func (*CondExpr) exprNode() {}
func (c *CondExpr) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", c.Cond, c.Then, c.Else)
}
