package engine

import (
	"errors"
	"sync"
	"testing"

	"evaluator/pkg/presets"
)

func TestStateRoundTrip(t *testing.T) {
	src := New()
	_ = src.SetProgramText("t&t>>8")
	src.SetGain(33)
	src.SetBitDepth(9)
	data := src.MarshalState()

	dst := New()
	n, err := dst.UnmarshalState(data)
	if err != nil || n != len(data) {
		t.Fatalf("UnmarshalState = %d, %v", n, err)
	}
	if dst.ProgramText() != "t&t>>8" || dst.Gain() != 33 || dst.BitDepth() != 9 {
		t.Errorf("restored text=%q gain=%v bits=%d", dst.ProgramText(), dst.Gain(), dst.BitDepth())
	}
	if !dst.ProgramIsValid() {
		t.Error("restored program should compile")
	}
	if !dst.CompareState(data) || !src.CompareState(dst.MarshalState()) {
		t.Error("expected states to compare equal")
	}

	dst.SetGain(34)
	if dst.CompareState(data) {
		t.Error("gain change should make states differ")
	}
	dst.SetGain(33)
	_ = dst.SetProgramText("t&t>>9")
	if dst.CompareState(data) {
		t.Error("program change should make states differ")
	}
	if dst.CompareState(data[:3]) {
		t.Error("truncated blob should not compare equal")
	}
}

func TestUnmarshalInvalidProgram(t *testing.T) {
	blob, _ := presets.Preset{Gain: 20, BitDepth: 5, Program: "t*("}.MarshalBinary()
	e := New()
	if _, err := e.UnmarshalState(blob); err != nil {
		t.Fatalf("a restored compile failure is not a state error: %v", err)
	}
	if e.ProgramIsValid() || e.ProgramText() != "t*(" {
		t.Errorf("expected invalid program kept, got %q valid=%v", e.ProgramText(), e.ProgramIsValid())
	}
	if e.BitDepth() != 5 {
		t.Errorf("bits = %d", e.BitDepth())
	}
}

func TestUnmarshalShortState(t *testing.T) {
	e := New()
	e.SetGain(80)

	// Too short for the text: empty program, parameters unchanged.
	n, err := e.UnmarshalState([]byte{1, 2})
	if !errors.Is(err, presets.ErrShortState) || n != 0 {
		t.Fatalf("expected short state, got %d, %v", n, err)
	}
	if e.ProgramText() != "" || e.ProgramIsValid() || e.Gain() != 80 {
		t.Errorf("text=%q valid=%v gain=%v", e.ProgramText(), e.ProgramIsValid(), e.Gain())
	}

	// Text present but parameters missing: text restored, parameters kept.
	blob, _ := presets.Preset{Gain: 10, BitDepth: 3, Program: "t>>1"}.MarshalBinary()
	n, err = e.UnmarshalState(blob[:8])
	if !errors.Is(err, presets.ErrShortState) || n != 8 {
		t.Fatalf("expected short parameters, got %d, %v", n, err)
	}
	if e.ProgramText() != "t>>1" || !e.ProgramIsValid() || e.Gain() != 80 {
		t.Errorf("text=%q valid=%v gain=%v", e.ProgramText(), e.ProgramIsValid(), e.Gain())
	}
}

func TestPresets(t *testing.T) {
	e := New()
	for _, p := range presets.Factory() {
		if err := e.ApplyPreset(p); err != nil {
			t.Errorf("factory preset %s does not compile: %v", p.Name, err)
			continue
		}
		e.ProcessBlock(nil, block(64), 64)
		snap := e.Snapshot(p.Name)
		if snap != p {
			t.Errorf("Snapshot after %s = %+v", p.Name, snap)
		}
	}
}

func TestApplyPresetIsAtomic(t *testing.T) {
	a := presets.Preset{Name: "a", Gain: 100, BitDepth: 8, Program: "200"}
	b := presets.Preset{Name: "b", Gain: 50, BitDepth: 4, Program: "9"}
	blobA, _ := a.MarshalBinary()
	blobB, _ := b.MarshalBinary()
	wantA := expectedSample(200, 8, 100)
	wantB := expectedSample(9, 4, 50)

	e := New()
	_ = e.ApplyPreset(a)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				_ = e.ApplyPreset(b)
				_, _ = e.UnmarshalState(blobA)
			} else {
				_ = e.ApplyPreset(a)
				_, _ = e.UnmarshalState(blobB)
			}
		}
	}()
	go func() {
		defer wg.Done()
		out := block(16)
		for i := 0; i < 200; i++ {
			e.ProcessBlock(nil, out, 16)
			if got := out[0][0]; !near(got, wantA) && !near(got, wantB) {
				t.Errorf("block %d rendered %v, a mix of two presets", i, got)
				return
			}
		}
	}()
	wg.Wait()
}
