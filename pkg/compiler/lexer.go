package compiler

import "unicode/utf8"

// Lexer produces tokens from src on demand. It holds no state besides the
// scan position, so Reset restarts the stream from the beginning.
type Lexer struct {
	src string
	pos int // byte offset of the next character to consume
}

// NewLexer returns a Lexer positioned at the start of src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src}
}

// Reset rewinds the lexer to the start of its source.
func (l *Lexer) Reset() {
	l.pos = 0
}

// peek returns the byte at the current position without advancing.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the byte one position ahead of the current position.
func (l *Lexer) peek2() byte {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			l.pos++
		default:
			return
		}
	}
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// scanIdent collects a whole word. Only single-character names are valid
// variables, but the full word is kept so the parser can report it.
func (l *Lexer) scanIdent() Token {
	start := l.pos
	for l.pos < len(l.src) && (isLetter(l.src[l.pos]) || isDigit(l.src[l.pos])) {
		l.pos++
	}
	return Token{Type: IDENTIFIER, Lexeme: l.src[start:l.pos], Offset: start}
}

// scanInt collects a decimal, 0x hex or 0b binary literal. Trailing letters
// or digits are swallowed into the lexeme so "12ab" fails as one literal.
// The first digit must still be at l.peek().
func (l *Lexer) scanInt() Token {
	start := l.pos
	if l.peek() == '0' && (l.peek2() == 'x' || l.peek2() == 'X' || l.peek2() == 'b' || l.peek2() == 'B') {
		l.pos += 2
	}
	for l.pos < len(l.src) && (isHexDigit(l.src[l.pos]) || isLetter(l.src[l.pos])) {
		l.pos++
	}
	return Token{Type: INTEGER, Lexeme: l.src[start:l.pos], Offset: start}
}

// Next returns the next token. Once the input is exhausted every call
// returns an EOF token at len(src).
func (l *Lexer) Next() Token {
	l.skipWhitespace()
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Lexeme: "", Offset: len(l.src)}
	}

	ch := l.peek()
	start := l.pos

	if isLetter(ch) {
		return l.scanIdent()
	}
	if isDigit(ch) {
		return l.scanInt()
	}

	tok := func(tt TokenType, n int) Token {
		l.pos += n
		return Token{Type: tt, Lexeme: l.src[start:l.pos], Offset: start}
	}

	switch ch {
	case '(':
		return tok(LPAREN, 1)
	case ')':
		return tok(RPAREN, 1)
	case '?':
		return tok(QUESTION, 1)
	case ':':
		return tok(COLON, 1)
	case '+':
		return tok(PLUS, 1)
	case '-':
		return tok(MINUS, 1)
	case '*':
		return tok(STAR, 1)
	case '/':
		return tok(SLASH, 1)
	case '%':
		return tok(PERCENT, 1)
	case '^':
		return tok(CARET, 1)
	case '~':
		return tok(TILDE, 1)
	case '&':
		if l.peek2() == '&' {
			return tok(AND_LOGICAL, 2)
		}
		return tok(AND, 1)
	case '|':
		if l.peek2() == '|' {
			return tok(OR_LOGICAL, 2)
		}
		return tok(PIPE, 1)
	case '!':
		if l.peek2() == '=' {
			return tok(NOT_EQ, 2)
		}
		return tok(NOT, 1)
	case '=':
		if l.peek2() == '=' {
			return tok(EQUALS, 2)
		}
	case '<':
		switch l.peek2() {
		case '=':
			return tok(LESS_EQ, 2)
		case '<':
			return tok(SHL_OP, 2)
		}
		return tok(LESS, 1)
	case '>':
		switch l.peek2() {
		case '=':
			return tok(GREATER_EQ, 2)
		case '>':
			return tok(SHR_OP, 2)
		}
		return tok(GREATER, 1)
	}

	// Unknown character (or a lone '='): consume one whole rune.
	_, size := utf8.DecodeRuneInString(l.src[l.pos:])
	return tok(ILLEGAL, size)
}

// Lex tokenises src and returns all tokens including the final EOF token.
// It returns a *Error of kind LexicalError on the first illegal character,
// together with the tokens scanned before it.
func Lex(src string) ([]Token, error) {
	l := NewLexer(src)
	var tokens []Token
	for {
		tok := l.Next()
		if tok.Type == ILLEGAL {
			return tokens, newError(LexicalError, tok)
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}
