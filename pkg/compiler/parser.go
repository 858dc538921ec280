package compiler

import (
	"strconv"
	"strings"

	"evaluator/pkg/vm"
)

// Parser pulls tokens from a Lexer and builds an expression tree.
//
// Grammar:
//
//	program        = expression EOF
//	expression     = logical_or ("?" expression ":" expression)?
//	logical_or     = logical_and ("||" logical_and)*
//	logical_and    = bitwise_or ("&&" bitwise_or)*
//	bitwise_or     = bitwise_xor ("|" bitwise_xor)*
//	bitwise_xor    = bitwise_and ("^" bitwise_and)*
//	bitwise_and    = equality ("&" equality)*
//	equality       = relational (("==" | "!=") relational)*
//	relational     = shift (("<" | ">" | "<=" | ">=") shift)*
//	shift          = additive (("<<" | ">>") additive)*
//	additive       = multiplicative (("+" | "-") multiplicative)*
//	multiplicative = unary (("*" | "/" | "%") unary)*
//	unary          = ("-" | "~" | "!") unary | primary
//	primary        = INTEGER | IDENTIFIER | "~" | "(" expression ")"
//
// A prefix "~" is bitwise-not when an operand follows it and the
// sample-rate variable otherwise.
//
// Nesting (parentheses, prefix operators and conditionals) is limited to
// MaxDepth and the number of binary operators to MaxNodes, so the tree
// walks that follow parsing stay within a bounded stack.
type Parser struct {
	lex   *Lexer
	tok   Token // current token
	next  Token // one token of lookahead
	depth int
	nodes int
}

const (
	MaxDepth = 256
	MaxNodes = 1 << 16
)

// NewParser returns a Parser reading from l.
func NewParser(l *Lexer) *Parser {
	p := &Parser{lex: l}
	p.tok = l.Next()
	p.next = l.Next()
	return p
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token { return p.tok }

// peekNext returns the token immediately after the current one.
func (p *Parser) peekNext() Token { return p.next }

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.tok
	p.tok = p.next
	if p.next.Type != EOF {
		p.next = p.lex.Next()
	}
	return tok
}

// nest enters one level of nesting at tok.
func (p *Parser) nest(tok Token) error {
	if p.depth >= MaxDepth {
		return newError(UnexpectedToken, tok)
	}
	p.depth++
	return nil
}

func (p *Parser) unnest() { p.depth-- }

// errOperand reports tok where an operand was required.
func errOperand(tok Token) error {
	switch tok.Type {
	case ILLEGAL:
		return newError(LexicalError, tok)
	case EOF:
		return newError(UnterminatedExpression, tok)
	}
	return newError(UnexpectedToken, tok)
}

// expectClose consumes the ")" matching an open parenthesis.
func (p *Parser) expectClose() error {
	tok := p.advance()
	switch tok.Type {
	case RPAREN:
		return nil
	case ILLEGAL:
		return newError(LexicalError, tok)
	}
	return newError(UnbalancedParenthesis, tok)
}

// expectColon consumes the ":" of a conditional.
func (p *Parser) expectColon() error {
	tok := p.advance()
	switch tok.Type {
	case COLON:
		return nil
	case ILLEGAL:
		return newError(LexicalError, tok)
	case EOF:
		return newError(UnterminatedExpression, tok)
	}
	return newError(UnexpectedToken, tok)
}

// parseExpression is the entry point for expression parsing.
func (p *Parser) parseExpression() (Expr, error) {
	cond, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	if p.peek().Type != QUESTION {
		return cond, nil
	}
	if err := p.nest(p.peek()); err != nil {
		return nil, err
	}
	defer p.unnest()
	p.advance() // ?
	then, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectColon(); err != nil {
		return nil, err
	}
	els, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &CondExpr{Cond: cond, Then: then, Else: els}, nil
}

// binaryLevel parses one left-associative precedence level.
func (p *Parser) binaryLevel(next func() (Expr, error), ops ...TokenType) (Expr, error) {
	expr, err := next()
	if err != nil {
		return nil, err
	}
	for matches(p.peek().Type, ops) {
		if p.nodes >= MaxNodes {
			return nil, newError(UnexpectedToken, p.peek())
		}
		p.nodes++
		op := p.advance().Type
		right, err := next()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Op: op, Left: expr, Right: right}
	}
	return expr, nil
}

func matches(tt TokenType, ops []TokenType) bool {
	for _, op := range ops {
		if tt == op {
			return true
		}
	}
	return false
}

// parseLogicalOr handles ||
func (p *Parser) parseLogicalOr() (Expr, error) {
	return p.binaryLevel(p.parseLogicalAnd, OR_LOGICAL)
}

// parseLogicalAnd handles &&
func (p *Parser) parseLogicalAnd() (Expr, error) {
	return p.binaryLevel(p.parseBitwiseOr, AND_LOGICAL)
}

// parseBitwiseOr handles | (lowest precedence among bitwise ops)
func (p *Parser) parseBitwiseOr() (Expr, error) {
	return p.binaryLevel(p.parseBitwiseXor, PIPE)
}

// parseBitwiseXor handles ^
func (p *Parser) parseBitwiseXor() (Expr, error) {
	return p.binaryLevel(p.parseBitwiseAnd, CARET)
}

// parseBitwiseAnd handles &
func (p *Parser) parseBitwiseAnd() (Expr, error) {
	return p.binaryLevel(p.parseEquality, AND)
}

// parseEquality handles == and !=
func (p *Parser) parseEquality() (Expr, error) {
	return p.binaryLevel(p.parseRelational, EQUALS, NOT_EQ)
}

// parseRelational handles <, >, <= and >=
func (p *Parser) parseRelational() (Expr, error) {
	return p.binaryLevel(p.parseShift, LESS, GREATER, LESS_EQ, GREATER_EQ)
}

// parseShift handles << and >>
func (p *Parser) parseShift() (Expr, error) {
	return p.binaryLevel(p.parseAdditive, SHL_OP, SHR_OP)
}

// parseAdditive handles + and -
func (p *Parser) parseAdditive() (Expr, error) {
	return p.binaryLevel(p.parseMultiplicative, PLUS, MINUS)
}

// parseMultiplicative handles *, / and %
func (p *Parser) parseMultiplicative() (Expr, error) {
	return p.binaryLevel(p.parseUnary, STAR, SLASH, PERCENT)
}

// parseUnary handles prefix -, ~ and !
func (p *Parser) parseUnary() (Expr, error) {
	tt := p.peek().Type
	if tt == MINUS || tt == NOT || (tt == TILDE && p.peekNext().Type.startsOperand()) {
		if err := p.nest(p.peek()); err != nil {
			return nil, err
		}
		op := p.advance().Type
		right, err := p.parseUnary()
		p.unnest()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: op, Right: right}, nil
	}
	return p.parsePrimary()
}

// parsePrimary handles literals, variables, and parenthesised expressions.
func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case INTEGER:
		p.advance()
		val, ok := parseInteger(tok.Lexeme)
		if !ok {
			return nil, newError(LexicalError, tok)
		}
		return &Literal{Value: val}, nil

	case IDENTIFIER:
		p.advance()
		if len(tok.Lexeme) != 1 || !vm.IsVariable(tok.Lexeme[0]) {
			return nil, newError(UnknownIdentifier, tok)
		}
		return &VarRef{Name: tok.Lexeme[0]}, nil

	case TILDE:
		p.advance()
		return &VarRef{Name: '~'}, nil

	case LPAREN:
		if err := p.nest(tok); err != nil {
			return nil, err
		}
		defer p.unnest()
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectClose(); err != nil {
			return nil, err
		}
		return expr, nil

	default:
		return nil, errOperand(tok)
	}
}

// parseInteger converts a decimal, 0x hex or 0b binary literal.
// Leading zeros are decimal, not octal.
func parseInteger(lexeme string) (uint64, bool) {
	base := 10
	digits := lexeme
	switch {
	case strings.HasPrefix(lexeme, "0x"), strings.HasPrefix(lexeme, "0X"):
		base, digits = 16, lexeme[2:]
	case strings.HasPrefix(lexeme, "0b"), strings.HasPrefix(lexeme, "0B"):
		base, digits = 2, lexeme[2:]
	}
	if digits == "" {
		return 0, false
	}
	val, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, false
	}
	return val, true
}

// Parse reads one complete expression from src. It stops at the first
// malformed construct and returns a *Error locating it.
func Parse(src string) (Expr, error) {
	p := NewParser(NewLexer(src))
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	switch tok := p.peek(); tok.Type {
	case EOF:
		return expr, nil
	case ILLEGAL:
		return nil, newError(LexicalError, tok)
	case RPAREN:
		return nil, newError(UnbalancedParenthesis, tok)
	default:
		return nil, newError(UnexpectedToken, tok)
	}
}
