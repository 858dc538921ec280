package main

import (
	"testing"

	"evaluator/pkg/asm"
	"evaluator/pkg/compiler"
	"evaluator/pkg/vm"
)

func TestCompilerAndVM(t *testing.T) {
	// 1. Define source
	source := `
#define MELODY (t*(42&t>>10))
// two voices
MELODY | (t>>5 & t>>7)
`
	src, err := compiler.Preprocess(source)
	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}

	// 2. Lex and Parse
	if _, err := compiler.Lex(src); err != nil {
		t.Fatalf("Lexing failed: %v", err)
	}
	tree, err := compiler.Parse(src)
	if err != nil {
		t.Fatalf("Parsing failed: %v", err)
	}

	// 3. Generate instructions
	code, err := compiler.Generate(tree)
	if err != nil {
		t.Fatalf("Code generation failed: %v", err)
	}

	// 4. Round trip through the text listing
	reassembled, err := asm.Assemble(asm.Listing(code))
	if err != nil {
		t.Fatalf("Assembly failed: %v", err)
	}
	prog, err := vm.NewProgram(reassembled)
	if err != nil {
		t.Fatalf("NewProgram failed: %v", err)
	}

	// 5. Compare with the one-step compile and a direct evaluation
	direct := compiler.MustCompile(src)
	for tick := vm.Value(0); tick < 1<<16; tick += 97 {
		prog.Set('t', tick)
		direct.Set('t', tick)
		a, errA := prog.Run()
		b, errB := direct.Run()
		want := (tick * (42 & (tick >> 10))) | (tick >> 5 & (tick >> 7))
		if errA != nil || errB != nil {
			t.Fatalf("t=%d: unexpected errors %v, %v", tick, errA, errB)
		}
		if a != want || b != want {
			t.Fatalf("t=%d: got %d and %d, want %d", tick, a, b, want)
		}
	}
}

func TestCompileErrorsEndToEnd(t *testing.T) {
	tests := []struct {
		source string
		kind   compiler.ErrorKind
		offset int
	}{
		{"t*", compiler.UnterminatedExpression, 2},
		{"z+1", compiler.UnknownIdentifier, 0},
		{"((t)", compiler.UnbalancedParenthesis, 4},
		{"t @ 2", compiler.LexicalError, 2},
		{"t t", compiler.UnexpectedToken, 2},
	}
	for _, tt := range tests {
		prog, err := compiler.Compile(tt.source)
		if prog != nil {
			t.Errorf("%q: expected no program", tt.source)
		}
		kind, offset := compiler.Position(err)
		if kind != tt.kind || offset != tt.offset {
			t.Errorf("%q: got %s at %d, want %s at %d", tt.source, kind, offset, tt.kind, tt.offset)
		}
	}
}
