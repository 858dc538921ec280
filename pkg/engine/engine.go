// Package engine drives a compiled program at audio rate.
//
// An Evaluator owns the live Program and the variables the program reads.
// One mutex serialises rendering against recompilation and parameter changes,
// so a block is never rendered against a half-replaced Program.
package engine

import (
	"fmt"
	"sync"

	"evaluator/pkg/compiler"
	"evaluator/pkg/diag"
	"evaluator/pkg/midi"
	"evaluator/pkg/vm"
)

const (
	// DefaultProgram is the program text of a fresh Evaluator.
	DefaultProgram = "t*128"
	// FallbackProgram replaces a program that failed to compile so there is
	// always something to run.
	FallbackProgram = "r/2"

	BitDepthMin     = 1
	BitDepthMax     = 24
	DefaultBitDepth = 15

	DefaultGain       = 50.0 // percent
	DefaultSampleRate = 44100.0
	DefaultTempo      = 120.0 // beats per minute
	DefaultBlockSize  = 512
)

// Evaluator renders a bytebeat program into a stereo signal.
type Evaluator struct {
	mu sync.Mutex

	prog  *vm.Program
	text  string
	valid bool

	gain       float64 // percent, 0..100
	bitDepth   int
	sampleRate float64
	tempo      float64

	tick  uint64
	queue *midi.Queue
	notes midi.NoteStack

	compileMsg string
	runErr     error
}

// New returns an Evaluator running DefaultProgram with default parameters.
func New() *Evaluator {
	e := &Evaluator{
		gain:       DefaultGain,
		bitDepth:   DefaultBitDepth,
		sampleRate: DefaultSampleRate,
		tempo:      DefaultTempo,
		queue:      midi.NewQueue(DefaultBlockSize),
	}
	_ = e.SetProgramText(DefaultProgram)
	return e
}

// SetProgramText compiles src and installs it as the live program. When src
// does not compile the fallback program is installed instead and the compile
// error is returned. Either way the tick restarts and n and v are cleared.
func (e *Evaluator) SetProgramText(src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.compileLocked(src)
}

func (e *Evaluator) compileLocked(src string) error {
	prog, err := compiler.Compile(src)
	e.text = src
	e.valid = err == nil
	if err != nil {
		e.compileMsg = diag.CompileReport(src, err)
		prog = compiler.MustCompile(FallbackProgram)
	} else {
		e.compileMsg = ""
	}
	e.prog = prog
	e.runErr = nil

	e.tick = 0
	e.prog.Set('n', 0)
	e.prog.Set('v', 0)
	return err
}

// ProgramText is the text of the last SetProgramText call, even if it failed.
func (e *Evaluator) ProgramText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

// ProgramIsValid reports whether the program text compiled.
func (e *Evaluator) ProgramIsValid() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.valid
}

// SetGain sets the output level in percent, clamped to 0..100.
func (e *Evaluator) SetGain(percent float64) {
	e.mu.Lock()
	e.gain = clampGain(percent)
	e.mu.Unlock()
}

func clampGain(percent float64) float64 {
	return min(max(percent, 0), 100)
}

// Gain is the output level in percent.
func (e *Evaluator) Gain() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gain
}

// SetBitDepth sets the quantisation depth, clamped to BitDepthMin..BitDepthMax.
func (e *Evaluator) SetBitDepth(bits int) {
	e.mu.Lock()
	e.bitDepth = clampBits(bits)
	e.mu.Unlock()
}

func clampBits(bits int) int {
	return min(max(bits, BitDepthMin), BitDepthMax)
}

func (e *Evaluator) BitDepth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bitDepth
}

// SetSampleRate sets the host sample rate in Hz. Non-positive rates are ignored.
func (e *Evaluator) SetSampleRate(hz float64) {
	if hz <= 0 {
		return
	}
	e.mu.Lock()
	e.sampleRate = hz
	e.mu.Unlock()
}

func (e *Evaluator) SampleRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sampleRate
}

// SetTempo sets the host tempo in beats per minute. Non-positive tempos are ignored.
func (e *Evaluator) SetTempo(bpm float64) {
	if bpm <= 0 {
		return
	}
	e.mu.Lock()
	e.tempo = bpm
	e.mu.Unlock()
}

// ProcessMidi queues a message for the next ProcessBlock.
func (e *Evaluator) ProcessMidi(m midi.Message) {
	e.queue.Add(m)
}

// Reset reinstalls the current program text from scratch, drops pending
// MIDI and releases all notes. blockSize sizes the MIDI queue.
func (e *Evaluator) Reset(blockSize int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.prog = nil
	_ = e.compileLocked(e.text)
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	e.queue.Resize(blockSize)
	e.notes.Clear()
}

// Get reads a program variable.
func (e *Evaluator) Get(name byte) vm.Value {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prog.Get(name)
}

// Console is the text for the status panel: the compile report while the
// program text is invalid, otherwise the run-time error of the last block
// or the program state.
func (e *Evaluator) Console() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.valid {
		return e.compileMsg
	}
	if e.runErr != nil {
		return diag.RuntimeReport(e.runErr)
	}
	return e.stateLocked()
}

// State is the instruction count of the last run and the variable values.
func (e *Evaluator) State() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Evaluator) stateLocked() string {
	p := e.prog
	return fmt.Sprintf("IC: %d\nr=%d\nn=%d\nv=%d\nt=%d\nm=%d\nq=%d",
		p.InstructionCount(),
		p.Get('r'),
		p.Get('n'),
		p.Get('v'),
		p.Get('t'),
		p.Get('m'),
		p.Get('q'))
}
