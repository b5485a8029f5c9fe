package app

import (
	"testing"
	"time"

	"dmgo/internal/bus"
	"dmgo/internal/cartridge"
)

func newTestEmulator(t *testing.T) (*Emulator, *time.Time) {
	t.Helper()
	b, err := bus.New(cartridge.CreateMinimalTestROM(), nil)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Unix(0, 0)
	e := NewEmulator(b, NewConfig())
	e.now = func() time.Time { return now }
	e.Reset()
	e.Start()
	return e, &now
}

func TestEmulatorPacing(t *testing.T) {
	e, now := newTestEmulator(t)
	frame := e.GetTargetFrameTime()

	if frame < 16740*time.Microsecond || frame > 16745*time.Microsecond {
		t.Fatalf("target frame time = %v, want about 16.742ms", frame)
	}

	if n := e.Update(); n != 0 {
		t.Errorf("ran %d frames with no time elapsed", n)
	}

	*now = now.Add(2*frame + time.Millisecond)
	if n := e.Update(); n != 2 {
		t.Errorf("ran %d frames, want 2", n)
	}

	// the millisecond left over carries into the next update
	*now = now.Add(frame - time.Millisecond)
	if n := e.Update(); n != 1 {
		t.Errorf("ran %d frames, want 1", n)
	}

	if e.GetFrameCount() != 3 {
		t.Errorf("frame count = %d, want 3", e.GetFrameCount())
	}
	// the first frame ends at the first VBlank, the rest are whole frames
	if got := e.GetCycleCount(); got < 2*bus.CyclesPerFrame {
		t.Errorf("cycles = %d, want more than %d", got, 2*bus.CyclesPerFrame)
	}
}

func TestEmulatorCatchUpLimit(t *testing.T) {
	e, now := newTestEmulator(t)
	frame := e.GetTargetFrameTime()

	*now = now.Add(10*frame + frame/2)
	if n := e.Update(); n != maxCatchUp {
		t.Errorf("ran %d frames, want %d", n, maxCatchUp)
	}
	if e.GetDroppedFrames() != 6 {
		t.Errorf("dropped = %d, want 6", e.GetDroppedFrames())
	}

	*now = now.Add(frame / 2)
	if n := e.Update(); n != 1 {
		t.Errorf("ran %d frames after catching up, want 1", n)
	}
}

func TestEmulatorStopped(t *testing.T) {
	e, now := newTestEmulator(t)
	e.Stop()

	*now = now.Add(time.Second)
	if n := e.Update(); n != 0 {
		t.Errorf("stopped emulator ran %d frames", n)
	}
	if e.IsRunning() {
		t.Error("IsRunning after Stop")
	}

	// time spent stopped is not owed
	e.Start()
	*now = now.Add(e.GetTargetFrameTime())
	if n := e.Update(); n != 1 {
		t.Errorf("ran %d frames after restart, want 1", n)
	}
}

func TestEmulatorAudioDrain(t *testing.T) {
	e, _ := newTestEmulator(t)
	e.StepFrame()
	e.DrainAudioSamples()
	e.StepFrame()

	samples := e.DrainAudioSamples()
	// about 738 stereo pairs per frame at 44.1 kHz
	if len(samples) < 2*730 || len(samples) > 2*745 {
		t.Errorf("one frame produced %d samples", len(samples))
	}
	if len(e.DrainAudioSamples()) != 0 {
		t.Error("samples not drained")
	}
}
