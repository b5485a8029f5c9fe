// Package graphics provides an abstraction layer for different rendering backends
package graphics

import (
	"fmt"
	"image"
	"math"

	"dmgo/internal/ppu"
)

// Backend creates windows for one kind of output (Ebitengine, terminal,
// headless)
type Backend interface {
	Initialize(config Config) error
	CreateWindow(title string, width, height int) (Window, error)
	Cleanup() error
	GetName() string
}

// Window receives frames and reports input. Frames are always 160x144; the
// window scales them.
type Window interface {
	SetTitle(title string)
	ShouldClose() bool
	PollEvents() []InputEvent
	RenderFrame(frame *image.RGBA) error
	Cleanup() error
}

// base holds the state every backend shares
type base struct {
	name        string
	initialized bool
	config      Config
}

// Initialize stores the configuration. A backend is initialized once.
func (b *base) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("%s backend already initialized", b.name)
	}
	b.config = config
	b.initialized = true
	return nil
}

// Cleanup marks the backend as released
func (b *base) Cleanup() error {
	b.initialized = false
	return nil
}

// GetName returns the backend name
func (b *base) GetName() string {
	return b.name
}

func (b *base) checkInitialized() error {
	if !b.initialized {
		return fmt.Errorf("%s backend not initialized", b.name)
	}
	return nil
}

// Config contains configuration for graphics backends
type Config struct {
	Fullscreen bool
	VSync      bool
	Filter     string // "nearest" scales by whole multiples, "linear" fills the window
	Headless   bool
}

// InputEvent represents an input event from the window
type InputEvent struct {
	Type    InputEventType
	Key     Key
	Button  Button
	Pressed bool
}

// InputEventType represents the type of input event
type InputEventType int

const (
	InputEventTypeKey InputEventType = iota
	InputEventTypeButton
	InputEventTypeQuit
)

// Key represents keyboard keys
type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeyEnter
	KeySpace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyW
	KeyA
	KeyS
	KeyD
	KeyJ
	KeyK
	KeyX
	KeyZ
	KeyP
	KeyR
	KeyF1
	KeyF2
	KeyF12
)

// Button represents the DMG joypad buttons
type Button int

const (
	ButtonUnknown Button = iota
	ButtonA
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

// buttonMappings maps keyboard keys to joypad buttons. Keys not listed are
// passed through as key events.
var buttonMappings = map[Key]Button{
	KeyUp:    ButtonUp,
	KeyDown:  ButtonDown,
	KeyLeft:  ButtonLeft,
	KeyRight: ButtonRight,
	KeyW:     ButtonUp,
	KeyS:     ButtonDown,
	KeyA:     ButtonLeft,
	KeyD:     ButtonRight,
	KeyJ:     ButtonA,
	KeyX:     ButtonA,
	KeyK:     ButtonB,
	KeyZ:     ButtonB,
	KeyEnter: ButtonStart,
	KeySpace: ButtonSelect,
}

// translateKey converts a key event into a button event when the key is
// bound to a joypad button.
func translateKey(key Key, pressed bool) InputEvent {
	if button, ok := buttonMappings[key]; ok {
		return InputEvent{Type: InputEventTypeButton, Button: button, Pressed: pressed}
	}
	return InputEvent{Type: InputEventTypeKey, Key: key, Pressed: pressed}
}

// fit returns the scale and offset that centre the LCD in a w x h output.
// With integer set the scale is a whole multiple whenever the output is at
// least LCD sized.
func fit(w, h int, integer bool) (scale, dx, dy float64) {
	scale = math.Min(float64(w)/ppu.ScreenWidth, float64(h)/ppu.ScreenHeight)
	if integer && scale >= 1 {
		scale = math.Floor(scale)
	}
	dx = (float64(w) - ppu.ScreenWidth*scale) / 2
	dy = (float64(h) - ppu.ScreenHeight*scale) / 2
	return scale, dx, dy
}

func errFrameSize(frame *image.RGBA) error {
	return fmt.Errorf("frame is %v, want %dx%d", frame.Bounds().Size(), ppu.ScreenWidth, ppu.ScreenHeight)
}

// BackendType represents different graphics backend types
type BackendType string

const (
	BackendEbitengine BackendType = "ebitengine"
	BackendHeadless   BackendType = "headless"
	BackendTerminal   BackendType = "terminal"
)

var backends = map[BackendType]func() Backend{
	BackendEbitengine: NewEbitengineBackend,
	BackendHeadless:   NewHeadlessBackend,
	BackendTerminal:   NewTerminalBackend,
}

// CreateBackend creates a graphics backend of the specified type
func CreateBackend(backendType BackendType) (Backend, error) {
	create, ok := backends[backendType]
	if !ok {
		return nil, fmt.Errorf("unknown graphics backend %q", backendType)
	}
	return create(), nil
}

// AsEbitengineWindow returns the window as an Ebitengine window, which
// drives the main loop itself
func AsEbitengineWindow(window Window) (*EbitengineWindow, bool) {
	w, ok := window.(*EbitengineWindow)
	return w, ok
}

// AsHeadlessWindow returns the window as a headless window
func AsHeadlessWindow(window Window) (*HeadlessWindow, bool) {
	w, ok := window.(*HeadlessWindow)
	return w, ok
}
