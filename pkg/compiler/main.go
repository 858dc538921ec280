// Package compiler turns bytebeat program text into vm Programs.
//
// Pipeline: source → Lex → Parse → fold constants → Generate → vm.NewProgram
package compiler
