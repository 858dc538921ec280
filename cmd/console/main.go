package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	pa "github.com/gordonklaus/portaudio"
	"github.com/oklog/ulid/v2"
	"github.com/peterh/liner"

	"evaluator/pkg/asm"
	"evaluator/pkg/compiler"
	"evaluator/pkg/diag"
	"evaluator/pkg/engine"
	"evaluator/pkg/midi"
	"evaluator/pkg/presets"
	"evaluator/pkg/utils"
)

const (
	historyFile    = ".evaluator_history"
	framesPerBlock = 256
	prompt         = "bb> "
)

const help = `Type a program to hear it, or a command:
  :bits N         set bit depth
  :gain N         set gain in percent
  :preset NAME    load a factory or saved preset
  :save [NAME]    save current settings to the preset bank
  :delete NAME    remove a saved preset
  :list           list presets
  :note N [VEL]   press a note
  :off N          release a note
  :asm            show the compiled instructions
  :state          show variables
  :quit           exit`

// session interprets console input against an Evaluator.
type session struct {
	ev   *engine.Evaluator
	bank *presets.Bank
}

// exec runs one line of input and returns the text to print. quit is set
// when the user asked to leave.
func (s *session) exec(line string) (out string, quit bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	if !strings.HasPrefix(line, ":") {
		if err := s.ev.SetProgramText(line); err != nil {
			return diag.Describe(line, err), false
		}
		return "ok", false
	}

	fields := strings.Fields(line)
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case ":quit", ":q":
		return "", true

	case ":help":
		return help, false

	case ":bits":
		n, err := intArg(args, 0)
		if err != nil {
			return err.Error(), false
		}
		s.ev.SetBitDepth(n)
		return fmt.Sprintf("bits %d", s.ev.BitDepth()), false

	case ":gain":
		if len(args) != 1 {
			return "usage: :gain N", false
		}
		g, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return "gain must be a number", false
		}
		s.ev.SetGain(g)
		return fmt.Sprintf("gain %.0f%%", s.ev.Gain()), false

	case ":preset":
		if len(args) != 1 {
			return "usage: :preset NAME", false
		}
		p, err := s.bank.Load(args[0])
		if err != nil {
			var ok bool
			if p, ok = presets.Lookup(args[0]); !ok {
				return fmt.Sprintf("%s: %v", args[0], presets.ErrPresetNotFound), false
			}
		}
		if err := s.ev.ApplyPreset(p); err != nil {
			return diag.Describe(p.Program, err), false
		}
		return fmt.Sprintf("%s: %s", p.Name, p.Program), false

	case ":save":
		name := ulid.Make().String()
		if len(args) > 0 {
			name = args[0]
		}
		if err := s.bank.Save(s.ev.Snapshot(name)); err != nil {
			return fmt.Sprintf("%s: %v", name, err), false
		}
		return "saved " + name, false

	case ":delete":
		if len(args) != 1 {
			return "usage: :delete NAME", false
		}
		if err := s.bank.Delete(args[0]); err != nil {
			return fmt.Sprintf("%s: %v", args[0], err), false
		}
		return "deleted " + args[0], false

	case ":list":
		var b strings.Builder
		b.WriteString("factory:")
		for _, p := range presets.Factory() {
			b.WriteString(" " + p.Name)
		}
		b.WriteString("\nsaved:")
		for _, name := range s.bank.List() {
			b.WriteString(" " + name)
		}
		return b.String(), false

	case ":note":
		n, err := intArg(args, 0)
		if err != nil {
			return err.Error(), false
		}
		vel := 100
		if len(args) > 1 {
			if vel, err = intArg(args, 1); err != nil {
				return err.Error(), false
			}
		}
		s.ev.ProcessMidi(midi.NewNoteOn(0, byte(n), byte(vel)))
		return "", false

	case ":off":
		n, err := intArg(args, 0)
		if err != nil {
			return err.Error(), false
		}
		s.ev.ProcessMidi(midi.NewNoteOff(0, byte(n)))
		return "", false

	case ":asm":
		prog, err := compiler.Compile(s.ev.ProgramText())
		if err != nil {
			return diag.Describe(s.ev.ProgramText(), err), false
		}
		return strings.TrimRight(asm.Disassemble(prog.Code()), "\n"), false

	case ":state":
		return s.ev.Console(), false
	}
	return "unknown command. Type :help for a list.", false
}

func intArg(args []string, i int) (int, error) {
	if len(args) <= i {
		return 0, errors.New("missing argument")
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("not a number: %s", args[i])
	}
	return n, nil
}

// audioOut renders the evaluator into a portaudio callback stream. The
// scratch buffers are sized once so the callback does not allocate.
type audioOut struct {
	ev      *engine.Evaluator
	scratch [][]float64
}

func (a *audioOut) process(out [][]float32) {
	n := len(out[0])
	if len(a.scratch[0]) < n {
		a.scratch = [][]float64{make([]float64, n), make([]float64, n)}
	}
	a.ev.ProcessBlock(nil, a.scratch, n)
	for ch := range out {
		src := a.scratch[ch%2]
		for i := range out[ch] {
			out[ch][i] = float32(src[i])
		}
	}
}

func openAudio(ev *engine.Evaluator) (*pa.Stream, error) {
	if err := pa.Initialize(); err != nil {
		return nil, err
	}
	dev, err := pa.DefaultOutputDevice()
	if err != nil {
		pa.Terminate()
		return nil, err
	}
	ev.SetSampleRate(dev.DefaultSampleRate)
	ev.Reset(framesPerBlock)

	out := &audioOut{
		ev:      ev,
		scratch: [][]float64{make([]float64, framesPerBlock), make([]float64, framesPerBlock)},
	}
	stream, err := pa.OpenDefaultStream(0, 2, dev.DefaultSampleRate, framesPerBlock, out.process)
	if err != nil {
		pa.Terminate()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		pa.Terminate()
		return nil, err
	}
	log.Printf("Audio output: %s at %.0f Hz", dev.Name, dev.DefaultSampleRate)
	return stream, nil
}

// startDiskSyncer flushes the preset bank to dir every interval while stop is open.
func startDiskSyncer(bank *presets.Bank, dir string, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if bank.IsDirty() {
				if err := bank.PersistTo(dir); err != nil {
					log.Printf("Failed to persist presets: %v", err)
				}
			}
		case <-stop:
			return
		}
	}
}

func main() {
	ev := engine.New()
	if len(os.Args) > 1 {
		src, err := utils.ReadProgram(os.Args[1])
		if err != nil {
			log.Fatalf("Failed to read source file: %v", err)
		}
		if src, err = compiler.Preprocess(src); err != nil {
			log.Fatalf("Failed to preprocess source file: %v", err)
		}
		if err := ev.SetProgramText(src); err != nil {
			fmt.Fprintln(os.Stderr, diag.Describe(src, err))
		}
	}

	bank := presets.NewBank()
	dir, err := presets.DefaultDir()
	if err != nil {
		log.Fatalf("Failed to locate preset directory: %v", err)
	}
	if err := bank.LoadFrom(dir); err != nil {
		log.Printf("Failed to load presets: %v", err)
	}

	stream, err := openAudio(ev)
	if err != nil {
		log.Fatalf("Unable to set up portaudio: %v", err)
	}
	defer func() {
		stream.Stop()
		stream.Close()
		pa.Terminate()
	}()

	stopSyncer := make(chan struct{})
	go startDiskSyncer(bank, dir, 3*time.Second, stopSyncer)
	defer func() {
		close(stopSyncer)
		if bank.IsDirty() {
			_ = bank.PersistTo(dir)
		}
	}()

	run(&session{ev: ev, bank: bank})
}

func run(s *session) {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := historyFile
	if home, err := utils.ExpandPath("~"); err == nil {
		histPath = filepath.Join(home, historyFile)
	}
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	fmt.Println(help)
	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			return
		}
		if err != nil {
			log.Printf("Failed to read input: %v", err)
			return
		}

		out, quit := s.exec(line)
		if quit {
			return
		}
		if out != "" {
			fmt.Println(out)
		}
		ln.AppendHistory(line)
	}
}
