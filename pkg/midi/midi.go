// Package midi holds the note events the engine consumes while rendering a block.
package midi

import (
	"fmt"
	"sync"
)

// Status nibbles of the channel voice messages the engine reacts to.
const (
	StatusNoteOff byte = 0x80
	StatusNoteOn  byte = 0x90
)

// Kind classifies a Message.
type Kind int

const (
	Other Kind = iota
	NoteOn
	NoteOff
)

// Message is a short MIDI message scheduled at a sample offset within the
// current block.
type Message struct {
	Offset int // sample frame within the block
	Status byte
	Data1  byte
	Data2  byte
}

// NewNoteOn builds a note-on for channel 0.
func NewNoteOn(offset int, note, velocity byte) Message {
	return Message{Offset: offset, Status: StatusNoteOn, Data1: note & 0x7F, Data2: velocity & 0x7F}
}

// NewNoteOff builds a note-off for channel 0.
func NewNoteOff(offset int, note byte) Message {
	return Message{Offset: offset, Status: StatusNoteOff, Data1: note & 0x7F}
}

// Kind reports what the message does. A note-on with velocity 0 is a note-off.
func (m Message) Kind() Kind {
	switch m.Status & 0xF0 {
	case StatusNoteOn:
		if m.Data2 == 0 {
			return NoteOff
		}
		return NoteOn
	case StatusNoteOff:
		return NoteOff
	}
	return Other
}

func (m Message) Note() byte     { return m.Data1 }
func (m Message) Velocity() byte { return m.Data2 }

func (m Message) String() string {
	return fmt.Sprintf("@%d %02X %d %d", m.Offset, m.Status, m.Data1, m.Data2)
}

// Queue buffers incoming messages until the audio thread drains them.
// Messages must be added in non-decreasing Offset order.
type Queue struct {
	mu   sync.Mutex
	msgs []Message
	head int
}

// NewQueue returns a Queue with room for capacity messages before it grows.
func NewQueue(capacity int) *Queue {
	return &Queue{msgs: make([]Message, 0, capacity)}
}

// Add appends a message.
func (q *Queue) Add(m Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, m)
}

// Empty reports whether no message is pending.
func (q *Queue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.head >= len(q.msgs)
}

// Peek returns the oldest pending message.
func (q *Queue) Peek() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head >= len(q.msgs) {
		return Message{}, false
	}
	return q.msgs[q.head], true
}

// Remove drops the oldest pending message.
func (q *Queue) Remove() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head < len(q.msgs) {
		q.head++
	}
}

// Len is the number of pending messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs) - q.head
}

// Flush is called at the end of a block of nFrames samples. Consumed
// messages are discarded and the offsets of the remaining ones are moved
// into the next block.
func (q *Queue) Flush(nFrames int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	remaining := q.msgs[q.head:]
	n := copy(q.msgs, remaining)
	q.msgs = q.msgs[:n]
	q.head = 0
	for i := range q.msgs {
		q.msgs[i].Offset -= nFrames
		if q.msgs[i].Offset < 0 {
			q.msgs[i].Offset = 0
		}
	}
}

// Resize drops every pending message and reserves room for capacity more.
func (q *Queue) Resize(capacity int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if cap(q.msgs) < capacity {
		q.msgs = make([]Message, 0, capacity)
	} else {
		q.msgs = q.msgs[:0]
	}
	q.head = 0
}
