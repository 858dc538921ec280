package main

import (
	"fmt"
	"os"

	"evaluator/pkg/asm"
	"evaluator/pkg/compiler"
	"evaluator/pkg/diag"
	"evaluator/pkg/utils"
)

const testSource = `#define BEAT (t>>11)
// a short arpeggio
t * ((BEAT & 3) + 4) & (t >> 7) | t >> 4
`

func main() {
	src := testSource
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = string(data)
	}

	src, err := compiler.Preprocess(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "preprocess error:", err)
		os.Exit(1)
	}

	fmt.Printf("Source:\n%s\n\n", src)

	tokens, err := compiler.Lex(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, diag.Describe(src, err))
		os.Exit(1)
	}

	fmt.Printf("Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Println(" ", tok)
	}
	fmt.Println()

	tree, err := compiler.Parse(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, diag.Describe(src, err))
		os.Exit(1)
	}

	fmt.Println("AST")
	fmt.Println(" ", tree)
	fmt.Println()

	prog, err := compiler.Compile(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, diag.Describe(src, err))
		os.Exit(1)
	}

	fmt.Printf("Instructions (%d, stack %d)\n", prog.Len(), prog.StackSize())
	fmt.Print(asm.Disassemble(prog.Code()))

	if len(os.Args) > 2 {
		out, err := utils.ExpandPath(os.Args[2])
		if err != nil {
			fmt.Fprintln(os.Stderr, "path error:", err)
			os.Exit(1)
		}
		if err := os.WriteFile(out, []byte(asm.Listing(prog.Code())), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "write error:", err)
			os.Exit(1)
		}
		fmt.Println()
		fmt.Println("Listing written to", out)
	}
}
