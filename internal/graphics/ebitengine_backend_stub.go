//go:build headless

package graphics

import (
	"errors"
	"image"
)

var errNoEbitengine = errors.New("Ebitengine backend not available in headless build")

// EbitengineBackend stub for headless builds
type EbitengineBackend struct {
	base
}

// EbitengineWindow stub for headless builds
type EbitengineWindow struct{}

// NewEbitengineBackend creates a stub backend for headless builds
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{base{name: "Ebitengine (unavailable)"}}
}

func (b *EbitengineBackend) Initialize(config Config) error {
	return errNoEbitengine
}

func (b *EbitengineBackend) CreateWindow(title string, width, height int) (Window, error) {
	return nil, errNoEbitengine
}

func (w *EbitengineWindow) SetTitle(title string) {}
func (w *EbitengineWindow) ShouldClose() bool { return true }
func (w *EbitengineWindow) PollEvents() []InputEvent { return nil }
func (w *EbitengineWindow) RenderFrame(frame *image.RGBA) error { return errNoEbitengine }
func (w *EbitengineWindow) Cleanup() error { return nil }
func (w *EbitengineWindow) Run() error { return errNoEbitengine }
func (w *EbitengineWindow) SetEmulatorUpdateFunc(update func() error) {}
