package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"dmgo/internal/audio"
	"dmgo/internal/bus"
	"dmgo/internal/cartridge"
	"dmgo/internal/graphics"
	"dmgo/internal/input"
	"dmgo/internal/logger"
	"dmgo/internal/statsview"
	"dmgo/internal/version"
)

// hostTick is the loop period for backends that do not drive the loop
// themselves
const hostTick = time.Second / 60

// Application represents the emulator application: one session plus its
// window, audio output and save handling
type Application struct {
	// Core emulation components
	bus      *bus.Bus
	emulator *Emulator

	// Graphics backend
	graphicsBackend graphics.Backend
	window          graphics.Window
	videoProcessor  *graphics.VideoProcessor
	paletteName     string

	// Audio output
	player   *audio.Player
	recorder *audio.Recorder

	// Application state
	config *Config
	saves  *SaveManager
	stats  *statsview.Server

	// Control flags
	running     atomic.Bool
	paused      bool
	initialized bool
	headless    bool

	// Performance tracking
	frameCount  uint64
	startTime   time.Time
	lastFPSTime time.Time
	fpsFrames   uint64
	currentFPS  float64

	// ROM management
	romPath string
}

// ApplicationError represents application-specific errors
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("Application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// NewApplication creates a new application using the configured backend
func NewApplication(configPath string) (*Application, error) {
	return NewApplicationWithMode(configPath, false)
}

// NewApplicationWithMode creates a new application, optionally forcing the
// headless backend
func NewApplicationWithMode(configPath string, headless bool) (*Application, error) {
	config := NewConfig()
	if configPath != "" {
		if err := config.LoadFromFile(configPath); err != nil {
			fmt.Printf("[APP_WARNING] Could not load config from %s, using defaults: %v\n", configPath, err)
			config = NewConfig()
		}
	}
	return NewApplicationWithConfig(config, headless)
}

// NewApplicationWithConfig creates a new application from a ready config
func NewApplicationWithConfig(config *Config, headless bool) (*Application, error) {
	app := &Application{
		config:      config,
		headless:    headless || config.Video.Backend == string(graphics.BackendHeadless),
		startTime:   time.Now(),
		lastFPSTime: time.Now(),
		saves:       NewSaveManager(config.Paths.SaveData),
		paletteName: config.Video.Palette,
	}

	if err := app.initializeComponents(); err != nil {
		return nil, &ApplicationError{
			Component: "initialization",
			Operation: "component setup",
			Err:       err,
		}
	}

	return app, nil
}

// initializeComponents initializes everything that does not need a ROM
func (app *Application) initializeComponents() error {
	if app.config.Debug.LogLevel == "DEBUG" {
		logger.SetEcho(os.Stderr)
	}
	logger.Log(logger.Allow, "app", version.GetDetailedVersion())

	if err := app.initializeGraphicsBackend(); err != nil {
		return fmt.Errorf("failed to initialize graphics backend: %w", err)
	}

	if app.config.Debug.Statsview {
		app.stats = statsview.Launch(os.Stdout, app.config.Debug.StatsviewAddr)
	}

	app.initialized = true
	return nil
}

// initializeGraphicsBackend initializes the graphics backend based on configuration
func (app *Application) initializeGraphicsBackend() error {
	backendType := graphics.BackendType(app.config.Video.Backend)
	if app.headless {
		backendType = graphics.BackendHeadless
	}

	var err error
	app.graphicsBackend, err = graphics.CreateBackend(backendType)
	if err != nil {
		return fmt.Errorf("failed to create graphics backend: %w", err)
	}

	width, height := app.config.GetWindowResolution()
	graphicsConfig := graphics.Config{
		Fullscreen: app.config.Window.Fullscreen,
		VSync:      app.config.Video.VSync,
		Filter:     app.config.Video.Filter,
		Headless:   app.headless,
	}

	if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
		// If Ebitengine fails (e.g., no DISPLAY), fallback to headless mode
		if backendType != graphics.BackendEbitengine {
			return fmt.Errorf("failed to initialize graphics backend: %w", err)
		}
		fmt.Printf("[APP_WARNING] Ebitengine backend failed (%v), falling back to headless mode\n", err)
		app.headless = true
		graphicsConfig.Headless = true
		app.graphicsBackend = graphics.NewHeadlessBackend()
		if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
			return fmt.Errorf("failed to initialize fallback headless backend: %w", err)
		}
	}

	app.window, err = app.graphicsBackend.CreateWindow("dmgo", width, height)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	logger.Logf(logger.Allow, "app", "graphics backend: %s", app.graphicsBackend.GetName())

	palette, err := graphics.LookupPalette(app.paletteName)
	if err != nil {
		return err
	}
	app.videoProcessor = graphics.NewVideoProcessor(
		palette,
		app.config.Video.Brightness,
		app.config.Video.Contrast,
		app.config.Video.Saturation,
	)

	return nil
}

// LoadROM starts a session for a ROM file, restoring battery RAM when a save
// exists
func (app *Application) LoadROM(romPath string) error {
	if !app.initialized {
		return errors.New("application not initialized")
	}

	rom, err := os.ReadFile(romPath)
	if err != nil {
		return &ApplicationError{Component: "cartridge", Operation: "read ROM", Err: err}
	}

	var boot []byte
	if app.config.Emulation.BootROM != "" {
		boot, err = os.ReadFile(app.config.Emulation.BootROM)
		if err != nil {
			return &ApplicationError{Component: "boot rom", Operation: "read", Err: err}
		}
	}

	b, err := bus.New(rom, boot)
	if err != nil {
		return &ApplicationError{Component: "cartridge", Operation: "load ROM", Err: err}
	}

	// persist the session being replaced
	if app.bus != nil {
		app.saveBattery()
	}

	app.bus = b
	app.romPath = romPath

	cart := b.Cartridge()
	if rtc := cart.RTC(); rtc != nil && app.config.Emulation.RTCRealtime {
		rtc.SetClock(cartridge.SystemClock{})
	}
	if _, err := app.saves.Load(cart, romPath); err != nil {
		fmt.Printf("[APP_WARNING] %v\n", err)
	}

	b.SetAudioSampleRate(app.config.Audio.SampleRate)
	if app.headless {
		b.SetSerialOutput(os.Stdout)
	}

	app.emulator = NewEmulator(b, app.config)
	app.ApplyDebugSettings()

	if app.window != nil {
		app.window.SetTitle(fmt.Sprintf("dmgo - %s", cart.Header().Title))
	}

	if err := app.initializeAudio(); err != nil {
		fmt.Printf("[APP_WARNING] Audio disabled: %v\n", err)
	}

	log.Printf("loaded %s: %v", filepath.Base(romPath), cart.Header())
	app.emulator.Start()
	return nil
}

// initializeAudio opens the audio device and the WAV recorder as configured.
// Each is opened once and kept across ROM changes.
func (app *Application) initializeAudio() error {
	if app.config.Audio.RecordWAV != "" && app.recorder == nil {
		rec, err := audio.NewRecorder(app.config.Audio.RecordWAV, app.config.Audio.SampleRate)
		if err != nil {
			return err
		}
		app.recorder = rec
	}

	if !app.config.Audio.Enabled || app.headless || app.player != nil {
		return nil
	}
	player, err := audio.NewPlayer(app.config.Audio.SampleRate, app.config.Audio.BufferSize, float64(app.config.Audio.Volume))
	if err != nil {
		return err
	}
	app.player = player
	return nil
}

// Run starts the main application loop
func (app *Application) Run() error {
	if !app.initialized {
		return errors.New("application not initialized")
	}
	if app.bus == nil {
		return errors.New("no ROM loaded")
	}

	app.running.Store(true)
	app.startTime = time.Now()
	app.lastFPSTime = time.Now()

	if ebitengineWindow, ok := graphics.AsEbitengineWindow(app.window); ok {
		ebitengineWindow.SetEmulatorUpdateFunc(func() error {
			if !app.running.Load() {
				app.window.Cleanup()
				return nil
			}
			return app.tick()
		})
		return ebitengineWindow.Run()
	}

	ticker := time.NewTicker(hostTick)
	defer ticker.Stop()
	for app.running.Load() {
		if err := app.tick(); err != nil {
			logger.Logf(logger.Allow, "app", "update error: %v", err)
		}
		if app.window != nil && app.window.ShouldClose() {
			app.Stop()
		}
		<-ticker.C
	}
	return nil
}

// tick handles input, runs the frames owed and presents the result
func (app *Application) tick() error {
	app.processInput()

	if app.paused {
		return nil
	}

	frames := app.emulator.Update()
	app.pushAudio()
	if frames == 0 {
		return nil
	}

	app.updatePerformanceMetrics(frames)
	return app.render()
}

// RunHeadless runs n frames as fast as possible, rendering each into the
// window, and stops early when ctx is cancelled
func (app *Application) RunHeadless(ctx context.Context, n int) error {
	if app.bus == nil {
		return errors.New("no ROM loaded")
	}

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		app.emulator.StepFrame()
		app.pushAudio()
		app.updatePerformanceMetrics(1)
		if err := app.render(); err != nil {
			return err
		}
	}
	return nil
}

func (app *Application) pushAudio() {
	samples := app.emulator.DrainAudioSamples()
	if len(samples) == 0 {
		return
	}
	if app.player != nil {
		app.player.Push(samples)
	}
	if app.recorder != nil {
		if err := app.recorder.Write(samples); err != nil {
			fmt.Printf("[APP_ERROR] %v, recording stopped\n", err)
			app.recorder.Close()
			app.recorder = nil
		}
	}
}

// processInput processes input events from the graphics backend
func (app *Application) processInput() {
	if app.window == nil {
		return
	}

	for _, event := range app.window.PollEvents() {
		switch event.Type {
		case graphics.InputEventTypeQuit:
			app.Stop()
			return

		case graphics.InputEventTypeButton:
			if button, ok := graphicsButtonToInputButton(event.Button); ok {
				app.bus.SetButton(button, event.Pressed)
			}

		case graphics.InputEventTypeKey:
			if event.Pressed {
				app.handleKeyInput(event.Key)
			}
		}
	}
}

// handleKeyInput handles the emulator hotkeys
func (app *Application) handleKeyInput(key graphics.Key) {
	switch key {
	case graphics.KeyP:
		app.TogglePause()
		fmt.Printf("Paused: %v\n", app.paused)
	case graphics.KeyR:
		if err := app.Reset(); err != nil {
			fmt.Printf("[APP_ERROR] Reset failed: %v\n", err)
		}
	case graphics.KeyF1:
		app.cyclePalette()
	case graphics.KeyF2:
		app.saveBattery()
	case graphics.KeyF12:
		path, err := app.Screenshot()
		if err != nil {
			fmt.Printf("[APP_ERROR] Screenshot failed: %v\n", err)
		} else {
			fmt.Printf("Screenshot saved to %s\n", path)
		}
	}
}

// graphicsButtonToInputButton converts graphics.Button to input.Button
func graphicsButtonToInputButton(gButton graphics.Button) (input.Button, bool) {
	switch gButton {
	case graphics.ButtonA:
		return input.A, true
	case graphics.ButtonB:
		return input.B, true
	case graphics.ButtonSelect:
		return input.Select, true
	case graphics.ButtonStart:
		return input.Start, true
	case graphics.ButtonUp:
		return input.Up, true
	case graphics.ButtonDown:
		return input.Down, true
	case graphics.ButtonLeft:
		return input.Left, true
	case graphics.ButtonRight:
		return input.Right, true
	}
	return 0, false
}

// render presents the last completed frame
func (app *Application) render() error {
	if app.window == nil {
		return nil
	}

	img := app.videoProcessor.ProcessFrame(app.bus.FrameBuffer())
	if err := app.window.RenderFrame(img); err != nil {
		return fmt.Errorf("failed to render frame: %w", err)
	}
	return nil
}

// updatePerformanceMetrics counts frames and refreshes the FPS figure once a
// second
func (app *Application) updatePerformanceMetrics(frames int) {
	app.frameCount += uint64(frames)
	app.fpsFrames += uint64(frames)

	now := time.Now()
	elapsed := now.Sub(app.lastFPSTime)
	if elapsed < time.Second {
		return
	}

	app.currentFPS = float64(app.fpsFrames) / elapsed.Seconds()
	app.fpsFrames = 0
	app.lastFPSTime = now

	if app.config.Debug.ShowFPS {
		line := fmt.Sprintf("FPS: %.2f speed: %.1fx dropped: %d",
			app.currentFPS, app.emulator.GetEmulationSpeed(), app.emulator.GetDroppedFrames())
		if app.player != nil {
			line += fmt.Sprintf(" audio queued: %d", app.player.Queued())
		}
		log.Print(line)
		if app.window != nil && !app.headless {
			app.window.SetTitle(fmt.Sprintf("dmgo - %s (%.1f fps)", app.bus.Cartridge().Header().Title, app.currentFPS))
		}
	}
}

func (app *Application) cyclePalette() {
	names := graphics.PaletteNames()
	next := names[0]
	for i, name := range names {
		if name == app.paletteName {
			next = names[(i+1)%len(names)]
		}
	}
	palette, err := graphics.LookupPalette(next)
	if err != nil {
		return
	}
	app.paletteName = next
	app.videoProcessor.SetPalette(palette)
	fmt.Printf("Palette: %s\n", next)
}

// Screenshot writes the current frame to the screenshot directory and
// returns its path
func (app *Application) Screenshot() (string, error) {
	if app.bus == nil {
		return "", errors.New("no ROM loaded")
	}
	name := fmt.Sprintf("%s_%s.png",
		sanitizeName(app.bus.Cartridge().Header().Title), time.Now().Format("20060102_150405"))
	path := filepath.Join(app.config.Paths.Screenshots, name)
	return path, app.SaveScreenshot(path)
}

// SaveScreenshot writes the current frame as a PNG
func (app *Application) SaveScreenshot(path string) error {
	if app.bus == nil {
		return errors.New("no ROM loaded")
	}
	return graphics.SavePNG(app.videoProcessor.ProcessFrame(app.bus.FrameBuffer()), path)
}

func (app *Application) saveBattery() {
	if app.bus == nil {
		return
	}
	if err := app.saves.Save(app.bus.Cartridge(), app.romPath); err != nil {
		fmt.Printf("[APP_ERROR] Battery save failed: %v\n", err)
	}
}

// Stop stops the application. It is safe to call from another goroutine.
func (app *Application) Stop() {
	app.running.Store(false)
}

// Pause pauses the emulator
func (app *Application) Pause() {
	app.paused = true
}

// Resume resumes the emulator
func (app *Application) Resume() {
	app.paused = false
	if app.emulator != nil {
		app.emulator.Start()
	}
}

// TogglePause toggles pause state
func (app *Application) TogglePause() {
	if app.paused {
		app.Resume()
	} else {
		app.Pause()
	}
}

// Reset power cycles the machine. Battery RAM is saved first and restored
// into the new session.
func (app *Application) Reset() error {
	if app.romPath == "" {
		return errors.New("no ROM loaded")
	}
	return app.LoadROM(app.romPath)
}

// IsRunning returns whether the application is running
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// IsPaused returns whether the emulator is paused
func (app *Application) IsPaused() bool {
	return app.paused
}

// GetFPS returns the current FPS
func (app *Application) GetFPS() float64 {
	return app.currentFPS
}

// GetFrameCount returns the total frame count
func (app *Application) GetFrameCount() uint64 {
	return app.frameCount
}

// GetUptime returns the application uptime
func (app *Application) GetUptime() time.Duration {
	return time.Since(app.startTime)
}

// GetROMPath returns the currently loaded ROM path
func (app *Application) GetROMPath() string {
	return app.romPath
}

// GetConfig returns the application configuration
func (app *Application) GetConfig() *Config {
	return app.config
}

// GetBus returns the session for direct access
func (app *Application) GetBus() *bus.Bus {
	return app.bus
}

// GetWindow returns the active window
func (app *Application) GetWindow() graphics.Window {
	return app.window
}

// ApplyDebugSettings applies debug settings to the session
func (app *Application) ApplyDebugSettings() {
	if app.bus == nil {
		return
	}

	app.bus.EnableCPUTrace(app.config.Debug.CPUTracing)
	app.bus.EnableMemoryDebug(app.config.Debug.MemoryDebugging)

	if app.config.Debug.CPUTracing {
		fmt.Printf("[DEBUG] CPU tracing enabled (very high performance impact)\n")
	}
	if app.config.Debug.MemoryDebugging {
		fmt.Printf("[DEBUG] Memory debugging enabled\n")
	}
}

// Cleanup saves battery RAM and releases all resources
func (app *Application) Cleanup() error {
	var lastErr error

	if app.bus != nil && app.config.Emulation.AutoSave {
		if err := app.saves.Save(app.bus.Cartridge(), app.romPath); err != nil {
			lastErr = err
			fmt.Printf("[APP_ERROR] Battery save failed: %v\n", err)
		}
	}

	if app.recorder != nil {
		if err := app.recorder.Close(); err != nil {
			lastErr = err
			fmt.Printf("[APP_ERROR] Recorder cleanup error: %v\n", err)
		}
		app.recorder = nil
	}

	if app.player != nil {
		if err := app.player.Close(); err != nil {
			lastErr = err
			fmt.Printf("[APP_ERROR] Audio cleanup error: %v\n", err)
		}
		app.player = nil
	}

	if app.stats != nil {
		app.stats.Stop()
		app.stats = nil
	}

	if app.window != nil {
		if err := app.window.Cleanup(); err != nil {
			lastErr = err
			fmt.Printf("[APP_ERROR] Window cleanup error: %v\n", err)
		}
	}

	if app.graphicsBackend != nil {
		if err := app.graphicsBackend.Cleanup(); err != nil {
			lastErr = err
			fmt.Printf("[APP_ERROR] Graphics backend cleanup error: %v\n", err)
		}
	}

	if app.config.Paths.Logs != "" {
		if err := app.writeLog(); err != nil {
			lastErr = err
		}
	}

	app.initialized = false
	return lastErr
}

// writeLog dumps the central log to the log directory
func (app *Application) writeLog() error {
	if err := os.MkdirAll(app.config.Paths.Logs, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.Create(filepath.Join(app.config.Paths.Logs, "dmgo.log"))
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	logger.Write(f)
	return f.Close()
}
