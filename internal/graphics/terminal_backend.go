package graphics

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/gdamore/tcell"

	"dmgo/internal/ppu"
)

// terminals report key presses but not releases, so a key counts as held
// until no press or repeat has been seen for holdTime
const holdTime = 250 * time.Millisecond

// TerminalBackend draws into the controlling terminal with tcell
type TerminalBackend struct {
	base
}

// TerminalWindow draws frames into a terminal with half-block characters,
// two pixels per cell.
type TerminalWindow struct {
	screen tcell.Screen
	title  string

	mu      sync.Mutex
	running bool
	events  []InputEvent
	held    map[Key]time.Time

	now func() time.Time
}

var terminalKeys = map[tcell.Key]Key{
	tcell.KeyEscape: KeyEscape,
	tcell.KeyEnter:  KeyEnter,
	tcell.KeyUp:     KeyUp,
	tcell.KeyDown:   KeyDown,
	tcell.KeyLeft:   KeyLeft,
	tcell.KeyRight:  KeyRight,
	tcell.KeyF1:     KeyF1,
	tcell.KeyF2:     KeyF2,
	tcell.KeyF12:    KeyF12,
}

var terminalRunes = map[rune]Key{
	' ': KeySpace,
	'w': KeyW,
	'a': KeyA,
	's': KeyS,
	'd': KeyD,
	'j': KeyJ,
	'k': KeyK,
	'x': KeyX,
	'z': KeyZ,
	'p': KeyP,
	'r': KeyR,
}

// NewTerminalBackend creates a new terminal graphics backend
func NewTerminalBackend() Backend {
	return &TerminalBackend{base{name: "Terminal"}}
}

// CreateWindow takes over the terminal. The size is ignored; frames are
// scaled to the terminal.
func (b *TerminalBackend) CreateWindow(title string, width, height int) (Window, error) {
	if err := b.checkInitialized(); err != nil {
		return nil, err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to open terminal: %w", err)
	}
	w, err := newTerminalWindow(screen, title)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func newTerminalWindow(screen tcell.Screen, title string) (*TerminalWindow, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise terminal: %w", err)
	}
	screen.HideCursor()
	screen.Clear()

	w := &TerminalWindow{
		screen:  screen,
		title:   title,
		running: true,
		held:    make(map[Key]time.Time),
		now:     time.Now,
	}
	go w.poll()
	return w, nil
}

// poll reads terminal events until the screen is finalised
func (w *TerminalWindow) poll() {
	for {
		switch ev := w.screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventKey:
			w.handleKey(ev)
		case *tcell.EventResize:
			w.screen.Sync()
		}
	}
}

func (w *TerminalWindow) handleKey(ev *tcell.EventKey) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ev.Key() == tcell.KeyCtrlC {
		w.events = append(w.events, InputEvent{Type: InputEventTypeQuit, Pressed: true})
		return
	}

	var key Key
	if ev.Key() == tcell.KeyRune {
		key = terminalRunes[ev.Rune()]
	} else {
		key = terminalKeys[ev.Key()]
	}
	if key == KeyUnknown {
		return
	}
	if key == KeyEscape {
		w.events = append(w.events, InputEvent{Type: InputEventTypeQuit, Pressed: true})
		return
	}

	// repeats only extend the hold
	if _, ok := w.held[key]; !ok {
		w.events = append(w.events, translateKey(key, true))
	}
	w.held[key] = w.now()
}

// SetTitle shows the title on the last line of the terminal
func (w *TerminalWindow) SetTitle(title string) {
	w.title = title
}

// ShouldClose returns true if window should close
func (w *TerminalWindow) ShouldClose() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.running
}

// PollEvents returns the key events seen since the last call, with releases
// for keys that have not repeated recently
func (w *TerminalWindow) PollEvents() []InputEvent {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	for key, seen := range w.held {
		if now.Sub(seen) >= holdTime {
			delete(w.held, key)
			w.events = append(w.events, translateKey(key, false))
		}
	}

	events := w.events
	w.events = nil
	return events
}

// RenderFrame draws the frame using the upper half block, foreground for the
// top pixel and background for the bottom one. Frames larger than the
// terminal are sampled down.
func (w *TerminalWindow) RenderFrame(frame *image.RGBA) error {
	cols, rows := w.screen.Size()
	if cols < 1 || rows < 2 {
		return nil
	}

	// the last row is the status line
	rows--
	step := 1
	for ppu.ScreenWidth/step > cols || ppu.ScreenHeight/(2*step) > rows {
		step++
	}

	for cy := 0; cy*2*step < ppu.ScreenHeight; cy++ {
		top := cy * 2 * step
		bottom := top + step
		for cx := 0; cx*step < ppu.ScreenWidth; cx++ {
			x := cx * step
			style := tcell.StyleDefault.
				Foreground(pixelColor(frame, x, top)).
				Background(pixelColor(frame, x, bottom))
			w.screen.SetContent(cx, cy, '▀', nil, style)
		}
	}

	status := tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	for i, r := range []rune(w.title) {
		if i >= cols {
			break
		}
		w.screen.SetContent(i, rows, r, nil, status)
	}

	w.screen.Show()
	return nil
}

func pixelColor(frame *image.RGBA, x, y int) tcell.Color {
	if y >= ppu.ScreenHeight {
		return tcell.ColorBlack
	}
	c := frame.RGBAAt(x, y)
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

// Cleanup restores the terminal
func (w *TerminalWindow) Cleanup() error {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		w.screen.Fini()
	}
	return nil
}
