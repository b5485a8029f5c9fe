//go:build !headless

package graphics

import (
	"errors"
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"dmgo/internal/logger"
	"dmgo/internal/ppu"
)

// EbitengineBackend opens a desktop window through Ebitengine
type EbitengineBackend struct {
	base
}

// EbitengineWindow is both the Window and the ebiten.Game. Ebitengine owns the
// main loop, so the emulator runs from the update func it calls every tick.
type EbitengineWindow struct {
	lcd     *ebiten.Image
	filter  ebiten.Filter
	integer bool
	outW    int
	outH    int

	running bool
	events  []InputEvent
	update  func() error
}

var ebitenKeys = map[ebiten.Key]Key{
	ebiten.KeyEnter:      KeyEnter,
	ebiten.KeySpace:      KeySpace,
	ebiten.KeyArrowUp:    KeyUp,
	ebiten.KeyArrowDown:  KeyDown,
	ebiten.KeyArrowLeft:  KeyLeft,
	ebiten.KeyArrowRight: KeyRight,
	ebiten.KeyW:          KeyW,
	ebiten.KeyA:          KeyA,
	ebiten.KeyS:          KeyS,
	ebiten.KeyD:          KeyD,
	ebiten.KeyJ:          KeyJ,
	ebiten.KeyK:          KeyK,
	ebiten.KeyX:          KeyX,
	ebiten.KeyZ:          KeyZ,
	ebiten.KeyP:          KeyP,
	ebiten.KeyR:          KeyR,
	ebiten.KeyF1:         KeyF1,
	ebiten.KeyF2:         KeyF2,
	ebiten.KeyF12:        KeyF12,
}

// NewEbitengineBackend creates a new Ebitengine graphics backend
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{base{name: "Ebitengine"}}
}

// CreateWindow sets up the desktop window. It is shown once Run is called.
func (b *EbitengineBackend) CreateWindow(title string, width, height int) (Window, error) {
	if err := b.checkInitialized(); err != nil {
		return nil, err
	}
	if b.config.Headless {
		return nil, errors.New("cannot open a window in headless mode")
	}

	w := &EbitengineWindow{
		lcd:     ebiten.NewImage(ppu.ScreenWidth, ppu.ScreenHeight),
		filter:  ebiten.FilterNearest,
		integer: true,
		outW:    width,
		outH:    height,
		running: true,
	}
	if b.config.Filter == "linear" {
		w.filter = ebiten.FilterLinear
		w.integer = false
	}

	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetVsyncEnabled(b.config.VSync)
	ebiten.SetFullscreen(b.config.Fullscreen)

	return w, nil
}

// SetTitle sets the window title
func (w *EbitengineWindow) SetTitle(title string) {
	ebiten.SetWindowTitle(title)
}

// ShouldClose returns true once the window has been cleaned up
func (w *EbitengineWindow) ShouldClose() bool {
	return !w.running
}

// PollEvents returns the input events gathered since the last call
func (w *EbitengineWindow) PollEvents() []InputEvent {
	events := w.events
	w.events = nil
	return events
}

// RenderFrame uploads a frame to the LCD texture
func (w *EbitengineWindow) RenderFrame(frame *image.RGBA) error {
	if len(frame.Pix) != ppu.ScreenWidth*ppu.ScreenHeight*4 {
		return errFrameSize(frame)
	}
	w.lcd.WritePixels(frame.Pix)
	return nil
}

// Cleanup ends the game loop on its next tick
func (w *EbitengineWindow) Cleanup() error {
	w.running = false
	return nil
}

// Run starts the Ebitengine game loop. It blocks until the window closes.
func (w *EbitengineWindow) Run() error {
	return ebiten.RunGame(w)
}

// SetEmulatorUpdateFunc sets the function called once per tick
func (w *EbitengineWindow) SetEmulatorUpdateFunc(update func() error) {
	w.update = update
}

// Update implements ebiten.Game
func (w *EbitengineWindow) Update() error {
	if !w.running {
		return ebiten.Termination
	}

	w.pollKeys()

	if w.update != nil {
		if err := w.update(); err != nil {
			logger.Logf(logger.Allow, "ebitengine", "emulator update: %v", err)
		}
	}
	return nil
}

// Draw implements ebiten.Game
func (w *EbitengineWindow) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{A: 255})

	scale, dx, dy := fit(w.outW, w.outH, w.integer)
	op := &ebiten.DrawImageOptions{Filter: w.filter}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(dx, dy)
	screen.DrawImage(w.lcd, op)
}

// Layout implements ebiten.Game
func (w *EbitengineWindow) Layout(outsideWidth, outsideHeight int) (int, int) {
	w.outW = outsideWidth
	w.outH = outsideHeight
	return outsideWidth, outsideHeight
}

// pollKeys turns key transitions into input events. Escape quits.
func (w *EbitengineWindow) pollKeys() {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		w.events = append(w.events, InputEvent{Type: InputEventTypeQuit, Pressed: true})
	}

	for ebitenKey, key := range ebitenKeys {
		switch {
		case inpututil.IsKeyJustPressed(ebitenKey):
			w.events = append(w.events, translateKey(key, true))
		case inpututil.IsKeyJustReleased(ebitenKey):
			w.events = append(w.events, translateKey(key, false))
		}
	}
}
