package graphics

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"dmgo/internal/ppu"
)

// HeadlessBackend renders into memory only, for tests and batch runs
type HeadlessBackend struct {
	base
}

// HeadlessWindow keeps the last rendered frame so it can be written out as a
// PNG. Every nth frame can also be dumped to a directory.
type HeadlessWindow struct {
	title      string
	running    bool
	frameCount int
	last       *image.RGBA

	// dumpEvery of zero disables dumping
	outputPath string
	dumpEvery  int
}

// NewHeadlessBackend creates a new headless graphics backend
func NewHeadlessBackend() Backend {
	return &HeadlessBackend{base{name: "Headless"}}
}

// CreateWindow creates a headless window. The size is ignored.
func (b *HeadlessBackend) CreateWindow(title string, width, height int) (Window, error) {
	if err := b.checkInitialized(); err != nil {
		return nil, err
	}

	return &HeadlessWindow{
		title:   title,
		running: true,
		last:    image.NewRGBA(image.Rect(0, 0, ppu.ScreenWidth, ppu.ScreenHeight)),
	}, nil
}

// SetTitle records the title
func (w *HeadlessWindow) SetTitle(title string) {
	w.title = title
}

// Title returns the last title set
func (w *HeadlessWindow) Title() string {
	return w.title
}

// ShouldClose returns true if window should close
func (w *HeadlessWindow) ShouldClose() bool {
	return !w.running
}

// PollEvents returns empty events list (no input in headless mode)
func (w *HeadlessWindow) PollEvents() []InputEvent {
	return nil
}

// RenderFrame keeps a copy of the frame and dumps it when frame dumping is
// enabled
func (w *HeadlessWindow) RenderFrame(frame *image.RGBA) error {
	if len(frame.Pix) != len(w.last.Pix) {
		return errFrameSize(frame)
	}
	w.frameCount++
	copy(w.last.Pix, frame.Pix)

	if w.dumpEvery > 0 && w.frameCount%w.dumpEvery == 0 {
		filename := filepath.Join(w.outputPath, fmt.Sprintf("frame_%05d.png", w.frameCount))
		return w.SaveScreenshot(filename)
	}

	return nil
}

// SaveScreenshot writes the last rendered frame as a PNG file
func (w *HeadlessWindow) SaveScreenshot(filename string) error {
	return SavePNG(w.last, filename)
}

// LastFrame returns the last rendered frame
func (w *HeadlessWindow) LastFrame() *image.RGBA {
	return w.last
}

// Cleanup releases window resources
func (w *HeadlessWindow) Cleanup() error {
	w.running = false
	return nil
}

// SetFrameDump writes every nth frame to dir. Zero disables dumping.
func (w *HeadlessWindow) SetFrameDump(dir string, every int) {
	w.outputPath = dir
	w.dumpEvery = every
}

// GetFrameCount returns the current frame count
func (w *HeadlessWindow) GetFrameCount() int {
	return w.frameCount
}

// SavePNG writes an image to filename, creating the directory if needed
func SavePNG(img image.Image, filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", filename, err)
	}

	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", filename, err)
	}
	return file.Close()
}
