// Package dialog keeps the bounded conversation log used to build prompts.
package dialog

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// DefaultSize is the number of turns kept when no size is configured.
const DefaultSize = 10

// Turn is one entry of the conversation log.
type Turn struct {
	Role Role
	Text string
}

// Buffer is a fixed-size ring of the most recent turns. Not safe for
// concurrent use; callers hold the owning session's lock.
type Buffer struct {
	ring  []Turn
	start int
	count int
	total int
}

// NewBuffer returns a buffer that exposes at most size turns.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Buffer{ring: make([]Turn, size)}
}

// Append records a turn, silently dropping the oldest one when full.
func (b *Buffer) Append(role Role, text string) {
	size := len(b.ring)
	if b.count < size {
		b.ring[(b.start+b.count)%size] = Turn{Role: role, Text: text}
		b.count++
	} else {
		b.ring[b.start] = Turn{Role: role, Text: text}
		b.start = (b.start + 1) % size
	}
	b.total++
}

// Window returns a copy of the retained turns, oldest first.
func (b *Buffer) Window() []Turn {
	out := make([]Turn, b.count)
	for i := range out {
		out[i] = b.ring[(b.start+i)%len(b.ring)]
	}
	return out
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	clear(b.ring)
	b.start, b.count, b.total = 0, 0, 0
}

// Len reports how many turns were appended since the last reset,
// including the ones already dropped from the window.
func (b *Buffer) Len() int { return b.total }

// Cap is the window size.
func (b *Buffer) Cap() int { return len(b.ring) }
