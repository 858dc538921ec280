package engine

import (
	"bytes"
	"encoding/binary"
	"math"

	"evaluator/pkg/presets"
)

// Snapshot captures the current settings as a preset named name.
func (e *Evaluator) Snapshot(name string) presets.Preset {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(name)
}

func (e *Evaluator) snapshotLocked(name string) presets.Preset {
	return presets.Preset{
		Name:     name,
		Gain:     e.gain,
		BitDepth: e.bitDepth,
		Program:  e.text,
	}
}

// ApplyPreset installs the preset's parameters and program text in one
// step, so no block renders a mix of old and new settings. The returned
// error is the program's compile error, if any.
func (e *Evaluator) ApplyPreset(p presets.Preset) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gain = clampGain(p.Gain)
	e.bitDepth = clampBits(p.BitDepth)
	return e.compileLocked(p.Program)
}

// MarshalState serialises the program text and parameters for the host.
func (e *Evaluator) MarshalState() []byte {
	data, _ := e.Snapshot("").MarshalBinary()
	return data
}

// UnmarshalState restores state written by MarshalState and recompiles the
// program. It returns the number of bytes consumed. A blob too short to hold
// the program text installs an empty (and so invalid) program, like a host
// that failed to read the string; missing parameters keep their values.
// A compile failure of the restored text is not an error here: the fallback
// program is running and Console reports it.
func (e *Evaluator) UnmarshalState(data []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.snapshotLocked("")
	n, err := p.Decode(data)
	if n > 0 {
		e.gain = clampGain(p.Gain)
		e.bitDepth = clampBits(p.BitDepth)
	}
	_ = e.compileLocked(p.Program)
	return n, err
}

// CompareState reports whether data describes the current state: the program
// text must match exactly, parameters within a small tolerance.
func (e *Evaluator) CompareState(data []byte) bool {
	cur := e.MarshalState()
	textLen := 4 + int(binary.LittleEndian.Uint32(cur))
	if len(data) < textLen || !bytes.Equal(data[:textLen], cur[:textLen]) {
		return false
	}

	var other presets.Preset
	if err := other.UnmarshalBinary(data); err != nil {
		return false
	}
	mine := e.Snapshot("")
	return math.Abs(other.Gain-mine.Gain) < 1e-6 && other.BitDepth == mine.BitDepth
}
