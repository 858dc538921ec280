package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF     TokenType = iota // sentinel: end of input
	ILLEGAL                  // a character the language does not use

	// Literals
	IDENTIFIER // variable name (validated by the parser)
	INTEGER    // decimal, 0x hex or 0b binary literal

	// Paired delimiters
	LPAREN // (
	RPAREN // )

	// Conditional
	QUESTION // ?
	COLON    // :

	// Arithmetic operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %

	// Bitwise operators
	AND    // &
	PIPE   // |
	CARET  // ^
	TILDE  // ~ (bitwise not, or the sample-rate variable)
	SHL_OP // <<
	SHR_OP // >>

	// Logical operators
	AND_LOGICAL // &&
	OR_LOGICAL  // ||
	NOT         // !

	// Comparison
	EQUALS     // ==
	NOT_EQ     // !=
	LESS       // <
	GREATER    // >
	LESS_EQ    // <=
	GREATER_EQ // >=
)

var tokenNames = [...]string{
	EOF:         "EOF",
	ILLEGAL:     "ILLEGAL",
	IDENTIFIER:  "IDENTIFIER",
	INTEGER:     "INTEGER",
	LPAREN:      "LPAREN",
	RPAREN:      "RPAREN",
	QUESTION:    "QUESTION",
	COLON:       "COLON",
	PLUS:        "PLUS",
	MINUS:       "MINUS",
	STAR:        "STAR",
	SLASH:       "SLASH",
	PERCENT:     "PERCENT",
	AND:         "AND",
	PIPE:        "PIPE",
	CARET:       "CARET",
	TILDE:       "TILDE",
	SHL_OP:      "SHL_OP",
	SHR_OP:      "SHR_OP",
	AND_LOGICAL: "AND_LOGICAL",
	OR_LOGICAL:  "OR_LOGICAL",
	NOT:         "NOT",
	EQUALS:      "EQUALS",
	NOT_EQ:      "NOT_EQ",
	LESS:        "LESS",
	GREATER:     "GREATER",
	LESS_EQ:     "LESS_EQ",
	GREATER_EQ:  "GREATER_EQ",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Offset int    // zero-based byte offset of the first character
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-8q  offset %d", t.Type, t.Lexeme, t.Offset)
}

// startsOperand reports whether a token of this type can begin an operand.
// It decides whether a prefix '~' is bitwise-not or the sample-rate variable.
func (tt TokenType) startsOperand() bool {
	switch tt {
	case INTEGER, IDENTIFIER, LPAREN, NOT, TILDE:
		return true
	}
	return false
}
