// Package seq detects in-band control sequences in a byte stream.
package seq

import "bytes"

// Length is the length of the control sequences.
const Length = 3

// Control sequences recognized on the wire.
var (
	// Report requests a counter report.
	Report = []byte("\r#\r")
	// Reset zeroes all counters.
	Reset = []byte("\r%\r")
)

// Window keeps the last n bytes pushed. It is not safe for concurrent use.
type Window struct {
	buf []byte
}

// NewWindow creates a zero-filled Window of n bytes.
func NewWindow(n int) *Window {
	return &Window{buf: make([]byte, n)}
}

// Push shifts the window left by one and stores b in the last slot.
func (w *Window) Push(b byte) {
	if len(w.buf) == 0 {
		return
	}
	copy(w.buf, w.buf[1:])
	w.buf[len(w.buf)-1] = b
}

// Matches checks the window equals s position by position.
func (w *Window) Matches(s []byte) bool {
	return bytes.Equal(w.buf, s)
}

// Bytes returns a copy of the window content, oldest first.
func (w *Window) Bytes() []byte {
	return append([]byte(nil), w.buf...)
}

// Clear restores the zero-filled state.
func (w *Window) Clear() {
	for i := range w.buf {
		w.buf[i] = 0
	}
}
