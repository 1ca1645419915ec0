// Package panel implements the button and seven-segment display
// collaborators polled by the receiving task.
package panel

import (
	"sync"
)

// Buttons is the discrete input state, one bit per button.
type Buttons uint8

// Buttons on the panel.
const (
	BTN0 Buttons = 1 << iota
	BTN1
	BTN2
	BTN3
)

// Segments are the two digit words driven on the display, least
// significant digit first.
type Segments [2]uint8

const digitSelect uint8 = 0x80

var segmentTable = [10]uint8{
	0x3f, // 0
	0x30, // 1
	0x5b, // 2
	0x79, // 3
	0x74, // 4
	0x6d, // 5
	0x6f, // 6
	0x38, // 7
	0x7f, // 8
	0x7c, // 9
}

// Encode encodes the two least significant decimal digits of value.
// The least significant digit carries the digit select bit.
func Encode(value uint32) Segments {
	return Segments{
		segmentTable[value%10] | digitSelect,
		segmentTable[(value/10)%10],
	}
}

// Memory is an in-process panel.
type Memory struct {
	lock    sync.Mutex
	buttons Buttons
	value   uint32
	updates int
}

// NewMemory creates a Memory panel.
func NewMemory() *Memory {
	return &Memory{}
}

// Press sets the buttons held down.
func (m *Memory) Press(b Buttons) {
	m.lock.Lock()
	m.buttons = b
	m.lock.Unlock()
}

// Buttons returns the buttons held down.
func (m *Memory) Buttons() (Buttons, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.buttons, nil
}

// Display shows value.
func (m *Memory) Display(value uint32) error {
	m.lock.Lock()
	m.value = value
	m.updates++
	m.lock.Unlock()
	return nil
}

// Value returns the value shown and how many times Display was called.
func (m *Memory) Value() (uint32, int) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.value, m.updates
}
