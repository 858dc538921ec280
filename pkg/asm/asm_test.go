package asm

import (
	"strings"
	"testing"

	"evaluator/pkg/compiler"
	"evaluator/pkg/vm"
)

func TestAssemble(t *testing.T) {
	src := `
; t*128
load t
PUSH 0x80   ; hex constants are fine
mul
`
	code, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	want := []vm.Instruction{
		{Op: vm.OpLOAD, Arg: 't'},
		{Op: vm.OpPUSH, Arg: 128},
		{Op: vm.OpMUL},
	}
	if len(code) != len(want) {
		t.Fatalf("expected %d instructions, got %d", len(want), len(code))
	}
	for i := range want {
		if code[i] != want[i] {
			t.Errorf("instruction %d: expected %v, got %v", i, want[i], code[i])
		}
	}

	prog, err := vm.NewProgram(code)
	if err != nil {
		t.Fatal(err)
	}
	prog.Set('t', 5)
	if got, _ := prog.Run(); got != 640 {
		t.Errorf("expected 640, got %d", got)
	}
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"", "no instructions"},
		{"; only a comment", "no instructions"},
		{"PUSH 1\nJMP 0", "unknown instruction on line 2"},
		{"PUSH", "expects 1 operand(s) on line 1"},
		{"PUSH 1\nADD 2", "expects 0 operand(s) on line 2"},
		{"PUSH one", "invalid constant on line 1"},
		{"LOAD x", "unknown variable on line 1"},
		{"LOAD tt", "unknown variable on line 1"},
	}
	for _, tt := range tests {
		_, err := Assemble(tt.src)
		if err == nil {
			t.Errorf("%q: expected error", tt.src)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%q: expected %q in error, got %q", tt.src, tt.want, err.Error())
		}
	}
}

func TestListingRoundTrip(t *testing.T) {
	prog := compiler.MustCompile("n ? t*n*v/64 : (~t & 0xff) >> 2")
	listing := Listing(prog.Code())

	code, err := Assemble(listing)
	if err != nil {
		t.Fatalf("Assemble(Listing) failed: %v\n%s", err, listing)
	}
	if len(code) != prog.Len() {
		t.Fatalf("expected %d instructions, got %d", prog.Len(), len(code))
	}
	for i, in := range prog.Code() {
		if code[i] != in {
			t.Errorf("instruction %d: expected %v, got %v", i, in, code[i])
		}
	}
}

func TestDisassemble(t *testing.T) {
	prog := compiler.MustCompile("t*128")
	got := Disassemble(prog.Code())
	want := "0000  LOAD t\n0001  PUSH 128\n0002  MUL\n"
	if got != want {
		t.Errorf("Disassemble:\n%s\nwant:\n%s", got, want)
	}
}

func BenchmarkAssemble(b *testing.B) {
	listing := Listing(compiler.MustCompile("(t*5&t>>7)|(t*3&t>>10)").Code())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Assemble(listing); err != nil {
			b.Fatal(err)
		}
	}
}
