package domain

import "github.com/bft-labs/gateship/internal/singer"

// StreamMeta holds the schema and key properties declared by the most recent
// SCHEMA message for a stream. Entries are created or overwritten, never
// deleted, for the duration of a run.
type StreamMeta struct {
	Schema        singer.Schema
	KeyProperties []string
}

// Buffer is an ordered aggregate of messages awaiting delivery.
// It maintains the invariant that all buffered messages share one
// (stream, version) identity; Accepts reports whether a message may be
// appended without violating it.
type Buffer struct {
	messages []singer.BatchMessage

	// bytes is the sum of the raw input line lengths appended so far.
	// Request bodies are larger than this, but it tracks the same order of
	// magnitude and is what the flush trigger compares against.
	bytes int
}

// NewBuffer creates a new empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{messages: make([]singer.BatchMessage, 0)}
}

// Append adds a message and the byte length of its raw input line.
func (b *Buffer) Append(m singer.BatchMessage, lineLen int) {
	b.messages = append(b.messages, m)
	b.bytes += lineLen
}

// Accepts reports whether m shares the buffer's (stream, version) identity.
// An empty buffer accepts anything.
func (b *Buffer) Accepts(m singer.BatchMessage) bool {
	if len(b.messages) == 0 {
		return true
	}
	head := b.messages[0]
	if head.StreamName() != m.StreamName() {
		return false
	}
	hv, hok := head.StreamVersion()
	mv, mok := m.StreamVersion()
	return hok == mok && hv == mv
}

// Stream returns the stream name the buffer belongs to, or "" when empty.
func (b *Buffer) Stream() string {
	if len(b.messages) == 0 {
		return ""
	}
	return b.messages[0].StreamName()
}

// Messages returns the buffered messages in arrival order. The returned
// slice is a copy: Reset recycles the internal one, so a caller may retain
// the batch past the next Append cycle.
func (b *Buffer) Messages() []singer.BatchMessage {
	out := make([]singer.BatchMessage, len(b.messages))
	copy(out, b.messages)
	return out
}

// Len returns the number of buffered messages.
func (b *Buffer) Len() int {
	return len(b.messages)
}

// Bytes returns the accumulated raw line byte count.
func (b *Buffer) Bytes() int {
	return b.bytes
}

// Empty returns true if nothing is buffered.
func (b *Buffer) Empty() bool {
	return len(b.messages) == 0
}

// Reset clears the buffer for the next batch.
func (b *Buffer) Reset() {
	b.messages = b.messages[:0]
	b.bytes = 0
}
