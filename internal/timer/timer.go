// Package timer implements the DMG divider and programmable timer
// (DIV, TIMA, TMA, TAC).
package timer

import "dmgo/internal/interrupt"

// Register addresses
const (
	DIV  = 0xFF04
	TIMA = 0xFF05
	TMA  = 0xFF06
	TAC  = 0xFF07
)

const (
	tacEnable = 0x04
	tacSelect = 0x03

	// internal divider value when the boot ROM hands over to the cartridge
	postBootCounter = 0xABCC
)

// divider bit watched by the falling edge detector for each TAC clock select.
// 4096 Hz, 262144 Hz, 65536 Hz and 16384 Hz respectively.
var selectBits = [4]uint16{1 << 9, 1 << 3, 1 << 5, 1 << 7}

// Timer is advanced in M-cycles by the step driver.
type Timer struct {
	counter uint16 // DIV is the upper byte
	tima    uint8
	tma     uint8
	tac     uint8

	// overflowed is set for the M-cycle after TIMA wraps, during which TIMA
	// reads 0x00. reloaded is set for the M-cycle in which TMA was copied.
	overflowed bool
	reloaded   bool

	irq interrupt.Requester
}

// New creates a timer that raises interrupts through irq.
func New(irq interrupt.Requester) *Timer {
	return &Timer{irq: irq}
}

// Reset puts the timer into its power-on state, or into the state the boot
// ROM leaves it in.
func (t *Timer) Reset(postBoot bool) {
	t.counter = 0
	if postBoot {
		t.counter = postBootCounter
	}
	t.tima = 0
	t.tma = 0
	t.tac = 0
	t.overflowed = false
	t.reloaded = false
}

// Tick advances the timer by the given number of M-cycles.
func (t *Timer) Tick(mcycles int) {
	for i := 0; i < mcycles; i++ {
		t.step()
	}
}

func (t *Timer) step() {
	t.reloaded = false
	if t.overflowed {
		t.overflowed = false
		t.tima = t.tma
		t.reloaded = true
		t.irq.Request(interrupt.Timer)
	}

	before := t.signal()
	t.counter += 4
	if before && !t.signal() {
		t.increment()
	}
}

// signal is the input of the falling edge detector: the selected divider bit
// ANDed with the enable bit.
func (t *Timer) signal() bool {
	return t.tac&tacEnable != 0 && t.counter&selectBits[t.tac&tacSelect] != 0
}

func (t *Timer) increment() {
	t.tima++
	if t.tima == 0 {
		t.overflowed = true
	}
}

// ResetDivider clears the internal divider as a DIV write or STOP does. A
// falling edge caused by the reset still clocks TIMA.
func (t *Timer) ResetDivider() {
	before := t.signal()
	t.counter = 0
	if before {
		t.increment()
	}
}

// Divider returns the full 16-bit internal divider.
func (t *Timer) Divider() uint16 {
	return t.counter
}

// Read returns the value of a timer register.
func (t *Timer) Read(address uint16) uint8 {
	switch address {
	case DIV:
		return uint8(t.counter >> 8)
	case TIMA:
		return t.tima
	case TMA:
		return t.tma
	case TAC:
		return t.tac | 0xF8
	}
	return 0xFF
}

// Write updates a timer register.
func (t *Timer) Write(address uint16, value uint8) {
	switch address {
	case DIV:
		t.ResetDivider()
	case TIMA:
		if t.reloaded {
			// the reload wins in the cycle TMA is copied
			return
		}
		// writing during the delay cycle cancels the pending reload
		t.overflowed = false
		t.tima = value
	case TMA:
		t.tma = value
		if t.reloaded {
			t.tima = value
		}
	case TAC:
		before := t.signal()
		t.tac = value & 0x07
		if before && !t.signal() {
			t.increment()
		}
	}
}
