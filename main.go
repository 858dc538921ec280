//go:build !js

package main

import (
	"flag"
	"fmt"
	"os"

	"evaluator/pkg/asm"
	"evaluator/pkg/compiler"
	"evaluator/pkg/diag"
	"evaluator/pkg/engine"
	"evaluator/pkg/utils"
	"evaluator/pkg/vm"
)

func main() {
	expr := flag.String("expr", "", "program text to compile")
	inPath := flag.String("in", "", "read program text from a file")
	asmPath := flag.String("asm", "", "run a hand-written instruction listing instead of program text")
	showAsm := flag.Bool("show-asm", false, "print the compiled instructions")
	samples := flag.Int("n", 16, "number of ticks to evaluate")
	start := flag.Uint64("t", 1, "first tick")
	bits := flag.Int("bits", engine.DefaultBitDepth, "bit depth used for r")
	rate := flag.Uint64("rate", uint64(engine.DefaultSampleRate), "sample rate used for ~, m and q")
	tempo := flag.Float64("tempo", engine.DefaultTempo, "tempo used for q")
	note := flag.Uint64("note", 0, "value of n")
	velocity := flag.Uint64("velocity", 0, "value of v")
	flag.Parse()

	if *expr != "" && *inPath != "" {
		fmt.Fprintln(os.Stderr, "use either -expr or -in, not both")
		os.Exit(2)
	}

	var prog *vm.Program
	switch {
	case *asmPath != "":
		p, err := loadListing(*asmPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load listing %q: %v\n", *asmPath, err)
			os.Exit(1)
		}
		prog = p

	default:
		src := *expr
		if *inPath != "" {
			text, err := utils.ReadProgram(*inPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to read input file %q: %v\n", *inPath, err)
				os.Exit(1)
			}
			src, err = compiler.Preprocess(text)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to preprocess %q: %v\n", *inPath, err)
				os.Exit(1)
			}
		}
		if src == "" {
			fmt.Fprintln(os.Stderr, "nothing to do: provide -expr, -in or -asm")
			flag.Usage()
			os.Exit(2)
		}

		p, err := compiler.Compile(src)
		if err != nil {
			fmt.Fprintln(os.Stderr, diag.Describe(src, err))
			os.Exit(1)
		}
		prog = p
	}

	if *showAsm {
		fmt.Print(asm.Disassemble(prog.Code()))
	}

	sampleRate := *rate
	if sampleRate == 0 {
		sampleRate = 1
	}
	if *tempo <= 0 {
		*tempo = engine.DefaultTempo
	}
	mdenom := max(sampleRate/1000, 1)
	qdenom := max(uint64(float64(sampleRate)/(*tempo/60))/128, 1)

	prog.Set('r', vm.Value(1)<<uint(*bits))
	prog.Set('~', sampleRate)
	prog.Set('n', *note)
	prog.Set('v', *velocity)

	for i := 0; i < *samples; i++ {
		tick := *start + uint64(i)
		prog.Set('t', tick)
		prog.Set('m', tick/mdenom)
		prog.Set('q', tick/qdenom)

		val, err := prog.Run()
		if err != nil {
			fmt.Printf("t=%d\t%s (IC %d)\n", tick, diag.RuntimeReport(err), prog.InstructionCount())
			continue
		}
		fmt.Printf("t=%d\t%d\n", tick, val)
	}
}

func loadListing(path string) (*vm.Program, error) {
	full, _, err := utils.GetPathInfo(path)
	if err != nil {
		return nil, err
	}
	text, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}
	code, err := asm.Assemble(string(text))
	if err != nil {
		return nil, err
	}
	return vm.NewProgram(code)
}
