package magenta

import (
	"iter"
	"slices"

	"github.com/wippyai/magenta-go/sys"
)

// MessageBuf receives one message: its bytes and the handles it carried.
// Each handle slot can be taken once; slots still holding a handle are
// closed by Reset and Close.
//
// The zero value is an empty buffer ready for use.
type MessageBuf struct {
	sys     sys.System
	bytes   []byte
	handles []sys.Handle
}

// NewMessageBuf returns an empty buffer.
func NewMessageBuf() *MessageBuf {
	return &MessageBuf{}
}

// EnsureCapacityBytes grows the byte region to hold at least n bytes.
func (m *MessageBuf) EnsureCapacityBytes(n int) {
	if n > cap(m.bytes) {
		m.bytes = slices.Grow(m.bytes, n-len(m.bytes))
	}
}

// EnsureCapacityHandles grows the handle region to hold at least n handles.
func (m *MessageBuf) EnsureCapacityHandles(n int) {
	if n > cap(m.handles) {
		m.handles = slices.Grow(m.handles, n-len(m.handles))
	}
}

// Bytes returns the received payload. It is valid until the next read.
func (m *MessageBuf) Bytes() []byte {
	return m.bytes
}

// NHandles returns how many handles the last message carried, taken or not.
func (m *MessageBuf) NHandles() int {
	return len(m.handles)
}

// TakeHandle takes ownership of the handle in slot i. It reports false if
// the slot was already taken or i is out of range.
func (m *MessageBuf) TakeHandle(i int) (*Handle, bool) {
	if i < 0 || i >= len(m.handles) || m.handles[i] == sys.HandleInvalid {
		return nil, false
	}
	h := NewHandle(m.sys, m.handles[i])
	m.handles[i] = sys.HandleInvalid
	return h, true
}

// Handles drains the untaken slots in index order. Stopping early leaves
// the remaining slots in the buffer.
func (m *MessageBuf) Handles() iter.Seq[*Handle] {
	return func(yield func(*Handle) bool) {
		for i := range m.handles {
			h, ok := m.TakeHandle(i)
			if !ok {
				continue
			}
			if !yield(h) {
				return
			}
		}
	}
}

// Reset closes every untaken handle and empties the buffer, keeping its
// capacity.
func (m *MessageBuf) Reset() {
	m.closeUntaken()
	m.bytes = m.bytes[:0]
	clear(m.handles[:cap(m.handles)])
	m.handles = m.handles[:0]
}

// Close closes every untaken handle.
func (m *MessageBuf) Close() error {
	m.closeUntaken()
	return nil
}

func (m *MessageBuf) closeUntaken() {
	for h := range m.Handles() {
		h.Close()
	}
}

// receive points the buffer at s and exposes its full capacity to a read.
func (m *MessageBuf) receive(s sys.System) ([]byte, []sys.Handle) {
	m.Reset()
	m.sys = s
	return m.bytes[:cap(m.bytes)], m.handles[:cap(m.handles)]
}

// deliver truncates the buffer to what a read delivered.
func (m *MessageBuf) deliver(nBytes, nHandles uint32) {
	m.bytes = m.bytes[:nBytes]
	m.handles = m.handles[:nHandles]
}
