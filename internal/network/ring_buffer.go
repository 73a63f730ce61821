package network

import "fmt"

// RingBuffer is a thread-unsafe circular byte buffer; callers that share
// one across goroutines must serialise access themselves (as
// transceiver.socket does, from the single poll goroutine per transport).
type RingBuffer struct {
	buffer   []byte
	head     int
	tail     int
	size     int
	capacity int
	name     string
}

// NewRingBuffer creates a ring buffer of the given capacity.
func NewRingBuffer(capacity int, name string) *RingBuffer {
	return &RingBuffer{
		buffer:   make([]byte, capacity+1), // one spare byte; fill level is tracked by size
		capacity: capacity,
		name:     name,
	}
}

// AddData appends data to the buffer. Returns false (and drops nothing) if
// there isn't enough free space.
func (rb *RingBuffer) AddData(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	if !rb.HasSpace(len(data)) {
		return false
	}
	for _, b := range data {
		rb.buffer[rb.head] = b
		rb.head = (rb.head + 1) % len(rb.buffer)
		rb.size++
	}
	return true
}

// GetData fills data from the front of the buffer and consumes it. Returns
// false if fewer than len(data) bytes are buffered.
func (rb *RingBuffer) GetData(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	if rb.size < len(data) {
		return false
	}
	for i := range data {
		data[i] = rb.buffer[rb.tail]
		rb.tail = (rb.tail + 1) % len(rb.buffer)
		rb.size--
	}
	return true
}

// Peek copies up to len(data) bytes from the front without consuming them.
// Returns false if fewer than len(data) bytes are buffered.
func (rb *RingBuffer) Peek(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	if rb.size < len(data) {
		return false
	}
	t := rb.tail
	for i := range data {
		data[i] = rb.buffer[t]
		t = (t + 1) % len(rb.buffer)
	}
	return true
}

// PeekAll returns a copy of every byte currently buffered, without
// consuming them.
func (rb *RingBuffer) PeekAll() []byte {
	out := make([]byte, rb.size)
	rb.Peek(out)
	return out
}

// Discard consumes n bytes from the front without returning them.
func (rb *RingBuffer) Discard(n int) {
	if n > rb.size {
		n = rb.size
	}
	rb.tail = (rb.tail + n) % len(rb.buffer)
	rb.size -= n
}

// Clear empties the buffer.
func (rb *RingBuffer) Clear() {
	rb.head = 0
	rb.tail = 0
	rb.size = 0
}

// FreeSpace returns the number of bytes that can still be added.
func (rb *RingBuffer) FreeSpace() int { return rb.capacity - rb.size }

// DataSize returns the number of bytes currently buffered.
func (rb *RingBuffer) DataSize() int { return rb.size }

// HasSpace reports whether at least length bytes of free space remain.
func (rb *RingBuffer) HasSpace(length int) bool { return rb.FreeSpace() >= length }

// HasData reports whether the buffer holds any data.
func (rb *RingBuffer) HasData() bool { return rb.size > 0 }

// IsEmpty reports whether the buffer is empty.
func (rb *RingBuffer) IsEmpty() bool { return rb.size == 0 }

// GetName returns the buffer's debug name.
func (rb *RingBuffer) GetName() string { return rb.name }

func (rb *RingBuffer) String() string {
	return fmt.Sprintf("RingBuffer[%s]: size=%d, capacity=%d, head=%d, tail=%d",
		rb.name, rb.size, rb.capacity, rb.head, rb.tail)
}
