package midi

// NoteStack tracks the held notes in the order they were pressed.
// The most recent note is the one the program hears as n and v.
type NoteStack struct {
	held []Message
}

// On pushes a pressed note. It reports whether the stack was empty before,
// which is when the engine restarts its tick counter.
func (s *NoteStack) On(m Message) (fromSilence bool) {
	fromSilence = len(s.held) == 0
	s.held = append(s.held, m)
	return fromSilence
}

// Off removes the most recent held note with the same pitch.
func (s *NoteStack) Off(note byte) {
	for i := len(s.held) - 1; i >= 0; i-- {
		if s.held[i].Note() == note {
			s.held = append(s.held[:i], s.held[i+1:]...)
			return
		}
	}
}

// Top returns the most recent held note.
func (s *NoteStack) Top() (Message, bool) {
	if len(s.held) == 0 {
		return Message{}, false
	}
	return s.held[len(s.held)-1], true
}

func (s *NoteStack) Empty() bool { return len(s.held) == 0 }
func (s *NoteStack) Len() int    { return len(s.held) }

// Clear releases every note.
func (s *NoteStack) Clear() { s.held = s.held[:0] }
