// Package stream turns an engine into audio data: a byte stream for audio
// players and WAV files for offline rendering.
package stream

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"evaluator/pkg/engine"
)

// Renderer is the part of an engine the stream needs.
type Renderer interface {
	ProcessBlock(inputs, outputs [][]float64, nFrames int)
}

var _ Renderer = (*engine.Evaluator)(nil)

// BytesPerFrame is the size of one interleaved 16-bit stereo frame.
const BytesPerFrame = 4

// Reader is an endless io.Reader of interleaved signed 16-bit little-endian
// stereo frames, rendered block by block.
type Reader struct {
	r     Renderer
	block [][]float64
	pcm   []byte
	off   int // read position within pcm
}

// NewReader renders from r in blocks of blockSize frames.
func NewReader(r Renderer, blockSize int) *Reader {
	if blockSize <= 0 {
		blockSize = engine.DefaultBlockSize
	}
	return &Reader{
		r:     r,
		block: [][]float64{make([]float64, blockSize), make([]float64, blockSize)},
		pcm:   make([]byte, 0, blockSize*BytesPerFrame),
	}
}

// Read fills p with whole frames; it never returns an error.
func (sr *Reader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if sr.off >= len(sr.pcm) {
			sr.renderBlock()
		}
		c := copy(p[n:], sr.pcm[sr.off:])
		sr.off += c
		n += c
	}
	return n, nil
}

func (sr *Reader) renderBlock() {
	frames := len(sr.block[0])
	sr.r.ProcessBlock(nil, sr.block, frames)

	sr.pcm = sr.pcm[:frames*BytesPerFrame]
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(sr.pcm[i*4:], uint16(ToInt16(sr.block[0][i])))
		binary.LittleEndian.PutUint16(sr.pcm[i*4+2:], uint16(ToInt16(sr.block[1][i])))
	}
	sr.off = 0
}

// ToInt16 converts a sample in -1..1 to 16-bit PCM, clipping out-of-range values.
func ToInt16(s float64) int16 {
	if s > 1 {
		s = 1
	}
	if s < -1 {
		s = -1
	}
	return int16(math.Round(s * math.MaxInt16))
}

// Render produces frames of stereo output, left and right.
func Render(r Renderer, frames, blockSize int) [2][]float64 {
	if blockSize <= 0 {
		blockSize = engine.DefaultBlockSize
	}
	out := [2][]float64{make([]float64, frames), make([]float64, frames)}
	for pos := 0; pos < frames; pos += blockSize {
		n := blockSize
		if pos+n > frames {
			n = frames - pos
		}
		r.ProcessBlock(nil, [][]float64{out[0][pos : pos+n], out[1][pos : pos+n]}, n)
	}
	return out
}

// WriteWAV renders frames of audio at sampleRate and writes a 16-bit stereo
// WAV file to w.
func WriteWAV(w io.WriteSeeker, r Renderer, sampleRate, frames int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 2, 1)

	const chunk = 4096
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           make([]int, 0, chunk*2),
		SourceBitDepth: 16,
	}
	for pos := 0; pos < frames; pos += chunk {
		n := chunk
		if pos+n > frames {
			n = frames - pos
		}
		out := Render(r, n, engine.DefaultBlockSize)
		buf.Data = buf.Data[:0]
		for i := 0; i < n; i++ {
			buf.Data = append(buf.Data, int(ToInt16(out[0][i])), int(ToInt16(out[1][i])))
		}
		if err := enc.Write(buf); err != nil {
			return err
		}
	}
	return enc.Close()
}
