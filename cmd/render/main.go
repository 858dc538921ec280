// Command render writes a program's output to a 16-bit stereo WAV file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"evaluator/pkg/compiler"
	"evaluator/pkg/diag"
	"evaluator/pkg/engine"
	"evaluator/pkg/midi"
	"evaluator/pkg/presets"
	"evaluator/pkg/stream"
	"evaluator/pkg/utils"
)

func main() {
	expr := flag.String("expr", "", "program text")
	inPath := flag.String("in", "", "read program text from a file")
	preset := flag.String("preset", "", "render a factory or saved preset")
	outPath := flag.String("o", "out.wav", "output file")
	seconds := flag.Float64("seconds", 10, "length to render")
	rate := flag.Int("rate", int(engine.DefaultSampleRate), "sample rate in Hz")
	bits := flag.Int("bits", engine.DefaultBitDepth, "bit depth")
	gain := flag.Float64("gain", engine.DefaultGain, "gain in percent")
	tempo := flag.Float64("tempo", engine.DefaultTempo, "tempo in beats per minute")
	note := flag.Int("note", -1, "hold this MIDI note for the whole render")
	velocity := flag.Int("velocity", 100, "velocity of the held note")
	flag.Parse()

	ev := engine.New()
	ev.SetSampleRate(float64(*rate))
	ev.SetTempo(*tempo)
	ev.SetBitDepth(*bits)
	ev.SetGain(*gain)

	src := *expr
	switch {
	case *preset != "":
		p, err := loadPreset(*preset)
		if err != nil {
			log.Fatalf("Failed to load preset %q: %v", *preset, err)
		}
		if err := ev.ApplyPreset(p); err != nil {
			log.Fatalf("Preset %q does not compile:\n%s", *preset, diag.Describe(p.Program, err))
		}
		src = p.Program

	case *inPath != "":
		text, err := utils.ReadProgram(*inPath)
		if err != nil {
			log.Fatalf("Failed to read source file: %v", err)
		}
		if src, err = compiler.Preprocess(text); err != nil {
			log.Fatalf("Failed to preprocess source file: %v", err)
		}
	}
	if src == "" {
		src = engine.DefaultProgram
	}
	if err := ev.SetProgramText(src); err != nil {
		fmt.Fprintln(os.Stderr, diag.Describe(src, err))
		os.Exit(1)
	}

	if *note >= 0 {
		ev.ProcessMidi(midi.NewNoteOn(0, byte(*note), byte(*velocity)))
	}

	out, err := utils.ExpandPath(*outPath)
	if err != nil {
		log.Fatalf("Bad output path: %v", err)
	}
	f, err := os.Create(out)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	frames := int(*seconds * float64(*rate))
	start := time.Now()
	if err := stream.WriteWAV(f, ev, *rate, frames); err != nil {
		log.Fatalf("Render failed: %v", err)
	}
	log.Printf("Rendered %d frames of %q to %s in %v", frames, src, out, time.Since(start))
	log.Printf("Final state:\n%s", ev.Console())
}

// loadPreset looks in the user's preset bank first, then the factory set.
func loadPreset(name string) (presets.Preset, error) {
	bank := presets.NewBank()
	if dir, err := presets.DefaultDir(); err == nil {
		if err := bank.LoadFrom(dir); err != nil {
			log.Printf("Failed to read preset bank: %v", err)
		}
	}
	if p, err := bank.Load(name); err == nil {
		return p, nil
	}
	if p, ok := presets.Lookup(name); ok {
		return p, nil
	}
	return presets.Preset{}, presets.ErrPresetNotFound
}
