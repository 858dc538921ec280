// Package presets stores named engine settings: program text, gain and bit depth.
package presets

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var ErrShortState = errors.New("presets: truncated state")

// MaxProgramLength bounds the program text accepted from a state blob.
const MaxProgramLength = 1 << 16

// Preset is one set of engine settings. Only source text is stored, never
// compiled code.
type Preset struct {
	Name     string
	Gain     float64 // percent, 0..100
	BitDepth int
	Program  string
}

// MarshalBinary encodes the program text as a length-prefixed string
// followed by the parameter values:
//
//	uint32 LE  program length
//	[]byte     program text
//	float64 LE gain (percent)
//	int32 LE   bit depth
//
// The name is not part of the encoding; it is the key the state is stored under.
func (p Preset) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(4 + len(p.Program) + 12)
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(p.Program)))
	buf.WriteString(p.Program)
	_ = binary.Write(buf, binary.LittleEndian, math.Float64bits(p.Gain))
	_ = binary.Write(buf, binary.LittleEndian, int32(p.BitDepth))
	return buf.Bytes(), nil
}

// Decode reads a state blob into p and returns the number of bytes consumed.
// When the program text cannot be read p.Program is left empty; when the
// parameters are missing they keep their previous values. Both cases
// return ErrShortState.
func (p *Preset) Decode(data []byte) (int, error) {
	p.Program = ""
	if len(data) < 4 {
		return 0, ErrShortState
	}
	n := binary.LittleEndian.Uint32(data)
	if n > MaxProgramLength || uint64(len(data)) < 4+uint64(n) {
		return 0, fmt.Errorf("%w: program of %d bytes", ErrShortState, n)
	}
	pos := 4 + int(n)
	p.Program = string(data[4:pos])

	if len(data) < pos+12 {
		return pos, fmt.Errorf("%w: missing parameters", ErrShortState)
	}
	p.Gain = math.Float64frombits(binary.LittleEndian.Uint64(data[pos:]))
	p.BitDepth = int(int32(binary.LittleEndian.Uint32(data[pos+8:])))
	return pos + 12, nil
}

// UnmarshalBinary decodes a complete state blob.
func (p *Preset) UnmarshalBinary(data []byte) error {
	_, err := p.Decode(data)
	return err
}

// Factory returns the built-in presets. The first one is the default.
func Factory() []Preset {
	return []Preset{
		{Name: "init", Gain: 50, BitDepth: 15, Program: "t*128"},
		{Name: "sierpinski", Gain: 50, BitDepth: 8, Program: "t&t>>8"},
		{Name: "fortytwo", Gain: 40, BitDepth: 8, Program: "t*(42&t>>10)"},
		{Name: "crowd", Gain: 40, BitDepth: 8, Program: "((t<<1)^((t<<1)+(t>>7)&t>>12))|t>>(4-(1^7&(t>>19)))|t>>7"},
		{Name: "keys", Gain: 50, BitDepth: 12, Program: "n ? t*n*v/64 : 0"},
		{Name: "pulse", Gain: 30, BitDepth: 4, Program: "t&16 ? t*2 : t/2"},
		{Name: "tempo", Gain: 40, BitDepth: 8, Program: "(q&32 ? t*3 : t*2) & (m>>3)"},
		{Name: "fallback", Gain: 50, BitDepth: 15, Program: "r/2"},
	}
}

// Lookup returns the factory preset with the given name.
func Lookup(name string) (Preset, bool) {
	for _, p := range Factory() {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
