package compiler

import "fmt"

// ErrorKind is the closed set of reasons a compile can fail.
type ErrorKind uint8

const (
	NoCompileError ErrorKind = iota
	UnexpectedToken
	UnterminatedExpression
	UnbalancedParenthesis
	UnknownIdentifier
	LexicalError
)

var errorKindNames = [...]string{
	NoCompileError:         "no error",
	UnexpectedToken:        "unexpected token",
	UnterminatedExpression: "unterminated expression",
	UnbalancedParenthesis:  "unbalanced parenthesis",
	UnknownIdentifier:      "unknown identifier",
	LexicalError:           "invalid character",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// Error lets a bare kind be used as an errors.Is target.
func (k ErrorKind) Error() string { return k.String() }

// Error is a compile failure: what went wrong and where.
type Error struct {
	Kind   ErrorKind
	Offset int    // zero-based byte offset into the source
	Lexeme string // offending text, empty at end of input
}

func newError(kind ErrorKind, tok Token) *Error {
	return &Error{Kind: kind, Offset: tok.Offset, Lexeme: tok.Lexeme}
}

func (e *Error) Error() string {
	if e.Lexeme == "" {
		return fmt.Sprintf("offset %d: %s", e.Offset, e.Kind)
	}
	return fmt.Sprintf("offset %d: %s %q", e.Offset, e.Kind, e.Lexeme)
}

// Is matches another *Error of the same kind, or a bare ErrorKind.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case ErrorKind:
		return e.Kind == t
	case *Error:
		return e.Kind == t.Kind
	}
	return false
}
