package engine

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"evaluator/pkg/compiler"
	"evaluator/pkg/midi"
)

func block(n int) [][]float64 {
	return [][]float64{make([]float64, n), make([]float64, n)}
}

// expectedSample mirrors the output mapping for a program result.
func expectedSample(result uint64, bits int, gainPercent float64) float64 {
	rng := uint64(1) << uint(bits)
	return gainPercent / 100 * (-1 + 2*float64(result%rng)/float64(rng-1))
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-12 }

func TestNewEvaluator(t *testing.T) {
	e := New()
	if e.ProgramText() != DefaultProgram || !e.ProgramIsValid() {
		t.Errorf("unexpected initial program %q valid=%v", e.ProgramText(), e.ProgramIsValid())
	}
	if e.Gain() != DefaultGain || e.BitDepth() != DefaultBitDepth || e.SampleRate() != DefaultSampleRate {
		t.Errorf("unexpected defaults gain=%v bits=%d rate=%v", e.Gain(), e.BitDepth(), e.SampleRate())
	}
}

func TestProcessBlockOutput(t *testing.T) {
	e := New()
	out := block(4)
	e.ProcessBlock(nil, out, 4)

	for s := 0; s < 4; s++ {
		want := expectedSample(uint64(s+1)*128, DefaultBitDepth, DefaultGain)
		if !near(out[0][s], want) || !near(out[1][s], want) {
			t.Errorf("sample %d: got %v/%v, want %v", s, out[0][s], out[1][s], want)
		}
	}
	if e.Get('t') != 4 {
		t.Errorf("t = %d after 4 frames", e.Get('t'))
	}
	if e.Get('r') != 1<<DefaultBitDepth || e.Get('~') != 44100 {
		t.Errorf("r=%d ~=%d", e.Get('r'), e.Get('~'))
	}
}

func TestProcessBlockAddsInput(t *testing.T) {
	e := New()
	e.SetGain(0)
	in := [][]float64{{0.25, 0.5}, {-0.25, -0.5}}
	out := block(2)
	e.ProcessBlock(in, out, 2)
	for ch := 0; ch < 2; ch++ {
		for s := 0; s < 2; s++ {
			if out[ch][s] != in[ch][s] {
				t.Errorf("ch %d sample %d: got %v, want %v", ch, s, out[ch][s], in[ch][s])
			}
		}
	}
}

func TestFallbackOnCompileError(t *testing.T) {
	e := New()
	err := e.SetProgramText("t*")
	if !errors.Is(err, compiler.UnterminatedExpression) {
		t.Fatalf("expected unterminated expression, got %v", err)
	}
	if e.ProgramIsValid() {
		t.Error("expected invalid program")
	}
	if e.ProgramText() != "t*" {
		t.Errorf("program text should be kept, got %q", e.ProgramText())
	}
	if got := e.Console(); got != "Compile Error:\nunterminated expression\nAt:\n" {
		t.Errorf("unexpected console %q", got)
	}

	// The fallback r/2 keeps producing sound.
	out := block(2)
	e.ProcessBlock(nil, out, 2)
	want := expectedSample(1<<(DefaultBitDepth-1), DefaultBitDepth, DefaultGain)
	if !near(out[0][1], want) {
		t.Errorf("fallback sample = %v, want %v", out[0][1], want)
	}

	if err := e.SetProgramText("t"); err != nil {
		t.Fatal(err)
	}
	if !e.ProgramIsValid() || strings.HasPrefix(e.Console(), "Compile Error") {
		t.Error("expected recovery after a good program")
	}
}

func TestRuntimeErrorReported(t *testing.T) {
	e := New()
	if err := e.SetProgramText("t/n"); err != nil {
		t.Fatal(err)
	}
	out := block(3)
	e.ProcessBlock(nil, out, 3)

	if got := e.Console(); got != "Runtime Error: division by zero" {
		t.Errorf("unexpected console %q", got)
	}
	// A faulting run yields 0, the bottom of the range.
	if want := -DefaultGain / 100; !near(out[0][0], want) {
		t.Errorf("sample = %v, want %v", out[0][0], want)
	}

	e.ProcessMidi(midi.NewNoteOn(0, 60, 100))
	e.ProcessBlock(nil, out, 3)
	if got := e.Console(); !strings.HasPrefix(got, "IC: 3\n") {
		t.Errorf("expected state after the fault cleared, got %q", got)
	}
}

func TestStateText(t *testing.T) {
	e := New()
	e.SetBitDepth(8)
	e.ProcessBlock(nil, block(5), 5)
	want := "IC: 3\nr=256\nn=0\nv=0\nt=5\nm=0\nq=0"
	if got := e.State(); got != want {
		t.Errorf("State() = %q, want %q", got, want)
	}
}

func TestTimeVariables(t *testing.T) {
	e := New()
	e.SetSampleRate(1000)
	e.SetTempo(60)
	// 1 tick per millisecond; 1000/1/128 = 7 ticks per 128th of a beat.
	e.ProcessBlock(nil, block(15), 15)
	if e.Get('m') != 15 || e.Get('q') != 2 {
		t.Errorf("m=%d q=%d", e.Get('m'), e.Get('q'))
	}

	// Rates so low the denominators would be zero are clamped to 1.
	e.SetSampleRate(100)
	e.SetTempo(6000)
	e.ProcessBlock(nil, block(1), 1)
	if e.Get('m') != 16 || e.Get('q') != 16 {
		t.Errorf("m=%d q=%d with clamped denominators", e.Get('m'), e.Get('q'))
	}

	e.SetSampleRate(-1)
	e.SetTempo(0)
	if e.SampleRate() != 100 {
		t.Error("non-positive sample rate should be ignored")
	}
}

func TestParameterClamping(t *testing.T) {
	e := New()
	e.SetBitDepth(0)
	if e.BitDepth() != BitDepthMin {
		t.Errorf("bits = %d", e.BitDepth())
	}
	e.SetBitDepth(64)
	if e.BitDepth() != BitDepthMax {
		t.Errorf("bits = %d", e.BitDepth())
	}
	e.SetGain(-3)
	if e.Gain() != 0 {
		t.Errorf("gain = %v", e.Gain())
	}
	e.SetGain(300)
	if e.Gain() != 100 {
		t.Errorf("gain = %v", e.Gain())
	}
}

func TestMidiNotes(t *testing.T) {
	e := New()
	if err := e.SetProgramText("t"); err != nil {
		t.Fatal(err)
	}
	e.ProcessBlock(nil, block(8), 8)

	// A note from silence restarts the tick at its offset.
	e.ProcessMidi(midi.NewNoteOn(2, 60, 100))
	e.ProcessBlock(nil, block(4), 4)
	if e.Get('t') != 2 || e.Get('n') != 60 || e.Get('v') != 100 {
		t.Fatalf("after note-on: t=%d n=%d v=%d", e.Get('t'), e.Get('n'), e.Get('v'))
	}

	// A second held note takes over without restarting.
	e.ProcessMidi(midi.NewNoteOn(0, 64, 80))
	e.ProcessBlock(nil, block(4), 4)
	if e.Get('t') != 6 || e.Get('n') != 64 || e.Get('v') != 80 {
		t.Fatalf("after legato note: t=%d n=%d v=%d", e.Get('t'), e.Get('n'), e.Get('v'))
	}

	// Releasing it falls back to the earlier note.
	e.ProcessMidi(midi.NewNoteOff(0, 64))
	e.ProcessBlock(nil, block(1), 1)
	if e.Get('n') != 60 || e.Get('v') != 100 {
		t.Fatalf("after release: n=%d v=%d", e.Get('n'), e.Get('v'))
	}

	// Velocity-zero note-on releases the last note.
	e.ProcessMidi(midi.NewNoteOn(0, 60, 0))
	e.ProcessBlock(nil, block(1), 1)
	if e.Get('n') != 0 || e.Get('v') != 0 {
		t.Fatalf("after all released: n=%d v=%d", e.Get('n'), e.Get('v'))
	}
}

func TestMidiCarriedToNextBlock(t *testing.T) {
	e := New()
	_ = e.SetProgramText("n")
	e.ProcessMidi(midi.NewNoteOn(6, 50, 90))

	out := block(4)
	e.ProcessBlock(nil, out, 4)
	if e.Get('n') != 0 {
		t.Fatal("note scheduled past the block applied early")
	}
	e.ProcessBlock(nil, out, 4)
	if e.Get('n') != 50 {
		t.Fatal("note not applied in the following block")
	}
	if out[0][1] == out[0][2] {
		t.Error("expected output to change at the note offset")
	}
}

func TestSetProgramClearsNotes(t *testing.T) {
	e := New()
	_ = e.SetProgramText("t")
	e.ProcessMidi(midi.NewNoteOn(0, 60, 100))
	e.ProcessBlock(nil, block(10), 10)

	_ = e.SetProgramText("t+n")
	if e.Get('t') != 0 || e.Get('n') != 0 || e.Get('v') != 0 {
		t.Errorf("expected fresh variables, t=%d n=%d v=%d", e.Get('t'), e.Get('n'), e.Get('v'))
	}

	e.ProcessMidi(midi.NewNoteOn(5, 61, 1))
	e.Reset(128)
	e.ProcessBlock(nil, block(10), 10)
	if e.Get('n') != 0 || e.Get('t') != 10 {
		t.Errorf("Reset should drop pending MIDI, n=%d t=%d", e.Get('n'), e.Get('t'))
	}
}

func TestProcessBlockDoesNotAllocate(t *testing.T) {
	e := New()
	_ = e.SetProgramText("(t*5&t>>7)|(t*3&t>>10)")
	out := block(DefaultBlockSize)
	allocs := testing.AllocsPerRun(20, func() {
		e.ProcessBlock(nil, out, DefaultBlockSize)
	})
	if allocs != 0 {
		t.Errorf("ProcessBlock allocated %v times per block", allocs)
	}
}

func TestConcurrentRecompile(t *testing.T) {
	e := New()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		out := block(64)
		for i := 0; i < 200; i++ {
			e.ProcessBlock(nil, out, 64)
		}
	}()
	go func() {
		defer wg.Done()
		progs := []string{"t", "t*", "t>>4", "r/2", "n ? t : 0"}
		for i := 0; i < 200; i++ {
			_ = e.SetProgramText(progs[i%len(progs)])
			_ = e.Console()
		}
	}()
	wg.Wait()
}

func BenchmarkProcessBlock(b *testing.B) {
	e := New()
	_ = e.SetProgramText("t*(42&t>>10)")
	out := block(DefaultBlockSize)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		e.ProcessBlock(nil, out, DefaultBlockSize)
	}
}
