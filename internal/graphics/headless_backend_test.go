package graphics

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"dmgo/internal/ppu"
)

func newHeadlessWindow(t *testing.T) *HeadlessWindow {
	t.Helper()
	backend, err := CreateBackend(BackendHeadless)
	if err != nil {
		t.Fatal(err)
	}
	if err := backend.Initialize(Config{Headless: true}); err != nil {
		t.Fatal(err)
	}
	window, err := backend.CreateWindow("test", ppu.ScreenWidth, ppu.ScreenHeight)
	if err != nil {
		t.Fatal(err)
	}
	hw, ok := AsHeadlessWindow(window)
	if !ok {
		t.Fatalf("window is %T", window)
	}
	return hw
}

func TestHeadlessScreenshot(t *testing.T) {
	w := newHeadlessWindow(t)
	palette, _ := LookupPalette("dmg")
	vp := NewVideoProcessor(palette, 1, 1, 1)

	var frame ppu.FrameBuffer
	frame[5*ppu.ScreenWidth+7] = 3
	if err := w.RenderFrame(vp.ProcessFrame(&frame)); err != nil {
		t.Fatal(err)
	}

	filename := filepath.Join(t.TempDir(), "shots", "frame.png")
	if err := w.SaveScreenshot(filename); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}

	if img.Bounds().Dx() != ppu.ScreenWidth || img.Bounds().Dy() != ppu.ScreenHeight {
		t.Fatalf("png size = %v", img.Bounds())
	}
	r, g, b, _ := img.At(7, 5).RGBA()
	if uint8(r>>8) != palette[3].R || uint8(g>>8) != palette[3].G || uint8(b>>8) != palette[3].B {
		t.Errorf("pixel (7,5) = %v, want %v", img.At(7, 5), palette[3])
	}
	r, _, _, _ = img.At(0, 0).RGBA()
	if uint8(r>>8) != palette[0].R {
		t.Errorf("pixel (0,0) = %v, want %v", img.At(0, 0), palette[0])
	}
}

func TestHeadlessFrameDump(t *testing.T) {
	w := newHeadlessWindow(t)
	dir := t.TempDir()
	w.SetFrameDump(dir, 2)

	vp := NewVideoProcessor(palettes["gray"], 1, 1, 1)
	var frame ppu.FrameBuffer
	for i := 0; i < 5; i++ {
		if err := w.RenderFrame(vp.ProcessFrame(&frame)); err != nil {
			t.Fatal(err)
		}
	}

	if w.GetFrameCount() != 5 {
		t.Errorf("frame count = %d, want 5", w.GetFrameCount())
	}
	files, _ := filepath.Glob(filepath.Join(dir, "*.png"))
	if len(files) != 2 {
		t.Errorf("dumped %d frames, want 2: %v", len(files), files)
	}
}

func TestHeadlessCleanup(t *testing.T) {
	w := newHeadlessWindow(t)
	if w.ShouldClose() {
		t.Fatal("new window should be open")
	}
	w.Cleanup()
	if !w.ShouldClose() {
		t.Error("window should close after cleanup")
	}
}
