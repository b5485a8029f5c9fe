package input

import (
	"testing"

	"dmgo/internal/interrupt"
)

type recorder struct {
	requests []interrupt.Source
}

func (r *recorder) Request(source interrupt.Source) {
	r.requests = append(r.requests, source)
}

func TestNew_ShouldReadAllReleased(t *testing.T) {
	joypad := New(nil)

	if got := joypad.Read(); got != 0xFF {
		t.Errorf("Expected FF with nothing selected, got %02X", got)
	}
}

func TestRead_SelectLines(t *testing.T) {
	tests := []struct {
		Name     string
		Pressed  []Button
		Select   uint8
		Expected uint8
	}{
		{"Directions selected, Right held", []Button{Right}, 0x20, 0xEE},
		{"Directions selected, Down held", []Button{Down}, 0x20, 0xE7},
		{"Actions selected, Start held", []Button{Start}, 0x10, 0xD7},
		{"Actions selected, A and B held", []Button{A, B}, 0x10, 0xDC},
		{"Actions selected, direction ignored", []Button{Left}, 0x10, 0xDF},
		{"Neither selected", []Button{A, Up}, 0x30, 0xFF},
		{"Both selected merge groups", []Button{Right, B}, 0x00, 0xCC},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			joypad := New(nil)
			for _, b := range tt.Pressed {
				joypad.SetButton(b, true)
			}
			joypad.Write(tt.Select)

			if got := joypad.Read(); got != tt.Expected {
				t.Errorf("Read() = %02X, want %02X", got, tt.Expected)
			}
		})
	}
}

func TestWrite_LowNibbleReadOnly(t *testing.T) {
	joypad := New(nil)
	joypad.Write(0x2F)

	if got := joypad.Read(); got != 0xEF {
		t.Errorf("Read() = %02X, want EF", got)
	}
}

func TestSetButton_PressRequestsInterrupt(t *testing.T) {
	irq := &recorder{}
	joypad := New(irq)

	if !joypad.SetButton(A, true) {
		t.Error("SetButton should report a press transition")
	}
	if joypad.SetButton(A, true) {
		t.Error("holding a button is not a new press")
	}
	if joypad.SetButton(A, false) {
		t.Error("release is not a press")
	}

	if len(irq.requests) != 1 || irq.requests[0] != interrupt.Joypad {
		t.Errorf("requests = %v, want one Joypad", irq.requests)
	}
}

func TestSetButtons_ShouldReplaceState(t *testing.T) {
	irq := &recorder{}
	joypad := New(irq)
	joypad.SetButton(Up, true)

	woke := joypad.SetButtons([8]bool{Start: true, Select: true})
	if !woke {
		t.Error("SetButtons should report the new presses")
	}
	if joypad.IsPressed(Up) {
		t.Error("Up should be released")
	}
	if !joypad.IsPressed(Start) || !joypad.IsPressed(Select) {
		t.Error("Start and Select should be pressed")
	}
	if len(irq.requests) != 3 {
		t.Errorf("Expected 3 interrupt requests, got %d", len(irq.requests))
	}
}

func TestReset_ShouldReleaseButtons(t *testing.T) {
	joypad := New(nil)
	joypad.SetButton(Down, true)
	joypad.Write(0x00)

	joypad.Reset()

	if joypad.IsPressed(Down) {
		t.Error("Down should be released after reset")
	}
	if got := joypad.Read(); got != 0xFF {
		t.Errorf("Read() = %02X, want FF", got)
	}
}
