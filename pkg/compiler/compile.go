package compiler

import (
	"errors"
	"fmt"

	"evaluator/pkg/vm"
)

// Compile turns program text into a ready-to-run Program.
// On failure it returns a nil Program and a *Error; the caller keeps
// whichever Program it had before.
func Compile(src string) (*vm.Program, error) {
	expr, err := Parse(src)
	if err != nil {
		return nil, err
	}

	code, err := Generate(foldConstants(expr))
	if err != nil {
		return nil, fmt.Errorf("codegen: %w", err)
	}

	prog, err := vm.NewProgram(code)
	if err != nil {
		return nil, fmt.Errorf("codegen: %w", err)
	}
	return prog, nil
}

// MustCompile is like Compile but panics on error. It is meant for
// program text known at build time.
func MustCompile(src string) *vm.Program {
	prog, err := Compile(src)
	if err != nil {
		panic(fmt.Sprintf("compiler: Compile(%q): %v", src, err))
	}
	return prog
}

// Position extracts the kind and source offset from a compile error.
// A nil error reports NoCompileError at offset 0.
func Position(err error) (ErrorKind, int) {
	if err == nil {
		return NoCompileError, 0
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind, cerr.Offset
	}
	return UnexpectedToken, 0
}
