package engine

import (
	"evaluator/pkg/midi"
	"evaluator/pkg/vm"
)

// ProcessBlock renders nFrames samples. The program output is added to the
// input on both channels; inputs may be nil for silence. outputs must hold
// two slices of at least nFrames samples.
//
// Nothing is allocated while rendering.
func (e *Evaluator) ProcessBlock(inputs, outputs [][]float64, nFrames int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.prog
	rng := vm.Value(1) << uint(e.bitDepth)
	mdenom := uint64(e.sampleRate / 1000)
	qdenom := uint64(e.sampleRate/(e.tempo/60)) / 128
	if mdenom == 0 {
		mdenom = 1
	}
	if qdenom == 0 {
		qdenom = 1
	}

	p.Set('r', rng)
	p.Set('~', vm.Value(e.sampleRate))

	scale := float64(rng - 1)
	gain := e.gain / 100
	var err error
	for s := 0; s < nFrames; s++ {
		e.drainMidi(s)

		e.tick++
		p.Set('t', e.tick)
		p.Set('m', e.tick/mdenom)
		p.Set('q', e.tick/qdenom)

		var result vm.Value
		result, err = p.Run()
		sample := gain * (-1.0 + 2.0*(float64(result%rng)/scale))

		for ch := 0; ch < 2; ch++ {
			var in float64
			if ch < len(inputs) && inputs[ch] != nil {
				in = inputs[ch][s]
			}
			outputs[ch][s] = in + sample
		}
	}

	e.queue.Flush(nFrames)
	if nFrames > 0 {
		e.runErr = err
	}
}

// drainMidi applies every queued message due at or before sample s.
func (e *Evaluator) drainMidi(s int) {
	for {
		m, ok := e.queue.Peek()
		if !ok || m.Offset > s {
			return
		}

		switch m.Kind() {
		case midi.NoteOn:
			if e.notes.On(m) {
				e.tick = 0
			}
			e.prog.Set('n', vm.Value(m.Note()))
			e.prog.Set('v', vm.Value(m.Velocity()))

		case midi.NoteOff:
			e.notes.Off(m.Note())
			if top, ok := e.notes.Top(); ok {
				e.prog.Set('n', vm.Value(top.Note()))
				e.prog.Set('v', vm.Value(top.Velocity()))
			} else {
				e.prog.Set('n', 0)
				e.prog.Set('v', 0)
			}
		}

		e.queue.Remove()
	}
}
