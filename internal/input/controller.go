// Package input implements the DMG joypad register (FF00).
package input

import (
	"dmgo/internal/interrupt"
	"dmgo/internal/logger"
)

// Button identifies one of the eight joypad buttons.
type Button uint8

const (
	Right Button = iota
	Left
	Up
	Down
	A
	B
	Select
	Start
)

var buttonNames = [...]string{"Right", "Left", "Up", "Down", "A", "B", "Select", "Start"}

func (b Button) String() string {
	if int(b) < len(buttonNames) {
		return buttonNames[b]
	}
	return "unknown"
}

// select lines are active low
const (
	selectDirections = 0x10
	selectActions    = 0x20
)

// Joypad is the button matrix behind FF00. Buttons 0-3 are the directions,
// 4-7 the action buttons; each group shares the low nibble.
type Joypad struct {
	pressed [8]bool
	selects uint8

	irq   interrupt.Requester
	debug logger.Switch
}

// New creates a joypad with no buttons pressed and neither group selected.
func New(irq interrupt.Requester) *Joypad {
	return &Joypad{
		selects: selectDirections | selectActions,
		irq:     irq,
	}
}

// Reset releases every button.
func (j *Joypad) Reset() {
	j.pressed = [8]bool{}
	j.selects = selectDirections | selectActions
}

// SetDebug turns button logging on or off.
func (j *Joypad) SetDebug(enabled bool) {
	j.debug.Set(enabled)
}

// Read returns FF00: bits 6-7 read 1, bits 4-5 are the select lines and the
// low nibble is 0 for every pressed button in a selected group.
func (j *Joypad) Read() uint8 {
	return 0xC0 | j.selects | j.nibble()
}

// Write updates the select lines. The low nibble is read-only.
func (j *Joypad) Write(value uint8) {
	j.selects = value & (selectDirections | selectActions)
}

func (j *Joypad) nibble() uint8 {
	n := uint8(0x0F)
	if j.selects&selectDirections == 0 {
		for i := 0; i < 4; i++ {
			if j.pressed[i] {
				n &^= 1 << i
			}
		}
	}
	if j.selects&selectActions == 0 {
		for i := 0; i < 4; i++ {
			if j.pressed[i+4] {
				n &^= 1 << i
			}
		}
	}
	return n
}

// SetButton changes one button. A press requests the joypad interrupt and
// reports true so the caller can wake a stopped CPU.
func (j *Joypad) SetButton(button Button, pressed bool) bool {
	if int(button) >= len(j.pressed) {
		return false
	}
	was := j.pressed[button]
	j.pressed[button] = pressed
	if pressed && !was {
		logger.Logf(&j.debug, "joypad", "%v pressed", button)
		if j.irq != nil {
			j.irq.Request(interrupt.Joypad)
		}
		return true
	}
	return false
}

// SetButtons replaces the state of every button, indexed by Button.
func (j *Joypad) SetButtons(buttons [8]bool) bool {
	woke := false
	for i, pressed := range buttons {
		if j.SetButton(Button(i), pressed) {
			woke = true
		}
	}
	return woke
}

// IsPressed reports whether a button is held.
func (j *Joypad) IsPressed(button Button) bool {
	return int(button) < len(j.pressed) && j.pressed[button]
}
