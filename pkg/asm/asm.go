// Package asm converts between vm instruction sequences and a textual listing.
//
//	; t*128
//	LOAD t
//	PUSH 128
//	MUL
package asm

import (
	"fmt"
	"strconv"
	"strings"

	"evaluator/pkg/vm"
)

type parsedLine struct {
	lineNo   int
	mnemonic string
	operands []string
}

// Assemble parses a listing into instructions. Mnemonics are case
// insensitive; ';' starts a comment. Errors name the offending line.
func Assemble(code string) ([]vm.Instruction, error) {
	var out []vm.Instruction
	for i, raw := range strings.Split(code, "\n") {
		p := parseLine(raw, i+1)
		if p.mnemonic == "" {
			continue
		}
		in, err := encode(p)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no instructions")
	}
	return out, nil
}

func parseLine(raw string, lineNo int) parsedLine {
	if idx := strings.IndexByte(raw, ';'); idx >= 0 {
		raw = raw[:idx]
	}
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return parsedLine{lineNo: lineNo}
	}
	return parsedLine{
		lineNo:   lineNo,
		mnemonic: strings.ToUpper(fields[0]),
		operands: fields[1:],
	}
}

func encode(p parsedLine) (vm.Instruction, error) {
	op, ok := vm.OpByName(p.mnemonic)
	if !ok {
		return vm.Instruction{}, fmt.Errorf("unknown instruction on line %d: %s", p.lineNo, p.mnemonic)
	}

	wantOperands := 0
	if op == vm.OpPUSH || op == vm.OpLOAD {
		wantOperands = 1
	}
	if len(p.operands) != wantOperands {
		return vm.Instruction{}, fmt.Errorf("%s expects %d operand(s) on line %d, got %d",
			p.mnemonic, wantOperands, p.lineNo, len(p.operands))
	}

	switch op {
	case vm.OpPUSH:
		val, err := strconv.ParseUint(p.operands[0], 0, 64)
		if err != nil {
			return vm.Instruction{}, fmt.Errorf("invalid constant on line %d: %s", p.lineNo, p.operands[0])
		}
		return vm.Instruction{Op: op, Arg: val}, nil

	case vm.OpLOAD:
		name := p.operands[0]
		if len(name) != 1 || !vm.IsVariable(name[0]) {
			return vm.Instruction{}, fmt.Errorf("unknown variable on line %d: %s", p.lineNo, name)
		}
		return vm.Instruction{Op: op, Arg: vm.Value(name[0])}, nil
	}
	return vm.Instruction{Op: op}, nil
}

// Disassemble renders instructions one per line, each prefixed with its index.
func Disassemble(code []vm.Instruction) string {
	var b strings.Builder
	for i, in := range code {
		fmt.Fprintf(&b, "%04d  %s\n", i, in)
	}
	return b.String()
}

// Listing renders instructions in a form Assemble accepts.
func Listing(code []vm.Instruction) string {
	var b strings.Builder
	for _, in := range code {
		b.WriteString(in.String())
		b.WriteByte('\n')
	}
	return b.String()
}
