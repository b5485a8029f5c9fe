package graphics

import "testing"

func TestFit(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		integer bool
		scale   float64
		dx, dy  float64
	}{
		{"exact", 160, 144, true, 1, 0, 0},
		{"4x", 640, 576, true, 4, 0, 0},
		{"wide integer", 800, 576, true, 4, 80, 0},
		{"between multiples", 500, 500, true, 3, 10, 34},
		{"between multiples linear", 480, 500, false, 3, 0, 34},
		{"smaller than lcd", 80, 72, true, 0.5, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scale, dx, dy := fit(tt.w, tt.h, tt.integer)
			if scale != tt.scale || dx != tt.dx || dy != tt.dy {
				t.Errorf("fit(%d, %d, %v) = %v, %v, %v; want %v, %v, %v",
					tt.w, tt.h, tt.integer, scale, dx, dy, tt.scale, tt.dx, tt.dy)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	for _, bt := range []BackendType{BackendHeadless, BackendTerminal, BackendEbitengine} {
		backend, err := CreateBackend(bt)
		if err != nil {
			t.Fatalf("CreateBackend(%q): %v", bt, err)
		}
		if backend.GetName() == "" {
			t.Errorf("CreateBackend(%q) has no name", bt)
		}
	}

	if _, err := CreateBackend("sdl"); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}

func TestBackendInitializeTwice(t *testing.T) {
	backend := NewHeadlessBackend()
	if err := backend.Initialize(Config{Headless: true}); err != nil {
		t.Fatal(err)
	}
	if err := backend.Initialize(Config{Headless: true}); err == nil {
		t.Error("second Initialize succeeded")
	}
}

func TestCreateWindowBeforeInitialize(t *testing.T) {
	if _, err := NewHeadlessBackend().CreateWindow("dmgo", 160, 144); err == nil {
		t.Error("CreateWindow succeeded on an uninitialized backend")
	}
}

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		key  Key
		want InputEvent
	}{
		{KeyJ, InputEvent{Type: InputEventTypeButton, Button: ButtonA, Pressed: true}},
		{KeyZ, InputEvent{Type: InputEventTypeButton, Button: ButtonB, Pressed: true}},
		{KeyEnter, InputEvent{Type: InputEventTypeButton, Button: ButtonStart, Pressed: true}},
		{KeyW, InputEvent{Type: InputEventTypeButton, Button: ButtonUp, Pressed: true}},
		{KeyF12, InputEvent{Type: InputEventTypeKey, Key: KeyF12, Pressed: true}},
	}

	for _, tt := range tests {
		if got := translateKey(tt.key, true); got != tt.want {
			t.Errorf("translateKey(%v) = %+v, want %+v", tt.key, got, tt.want)
		}
	}
}
