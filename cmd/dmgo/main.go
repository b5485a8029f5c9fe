// Package main implements the dmgo Game Boy emulator executable.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dmgo/internal/app"
	"dmgo/internal/graphics"
	"dmgo/internal/version"
)

func main() {
	// Parse command line flags
	var (
		romFile    = flag.String("rom", "", "Path to Game Boy ROM file (may also be given as the first argument)")
		configFile = flag.String("config", "", "Path to configuration file")
		bootFile   = flag.String("boot", "", "Path to a 256 byte DMG boot ROM")
		backend    = flag.String("backend", "", "Video backend: ebitengine, terminal or headless")
		palette    = flag.String("palette", "", "Colour palette: "+fmt.Sprint(graphics.PaletteNames()))
		scale      = flag.Int("scale", 0, "Window scale factor")
		record     = flag.String("record", "", "Record audio to a WAV file")
		stats      = flag.Bool("statsview", false, "Serve runtime statistics over HTTP")
		debug      = flag.Bool("debug", false, "Enable debug mode")
		nogui      = flag.Bool("nogui", false, "Run without GUI (headless mode)")
		frames     = flag.Int("frames", 600, "Frames to run in headless mode")
		screenshot = flag.String("screenshot", "", "Write the last frame as PNG after a headless run")
		dumpDir    = flag.String("dump", "", "Directory for frame dumps in headless mode")
		dumpEvery  = flag.Int("dump-every", 60, "Dump every nth frame when -dump is set")
		help       = flag.Bool("help", false, "Show help message")
		version    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *help {
		printUsage()
		os.Exit(0)
	}

	if *version {
		printVersion()
		os.Exit(0)
	}

	if *romFile == "" && flag.NArg() > 0 {
		*romFile = flag.Arg(0)
	}
	if *romFile == "" {
		printUsage()
		os.Exit(2)
	}

	fmt.Println("🎮 dmgo - Game Boy Emulator Starting...")

	// Determine config file path
	configPath := *configFile
	if configPath == "" {
		configPath = app.GetDefaultConfigPath()
	}

	config := app.NewConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		fmt.Printf("[APP_WARNING] Could not load config from %s, using defaults: %v\n", configPath, err)
		config = app.NewConfig()
	}

	// Command line flags override the config file
	if *backend != "" {
		config.Video.Backend = *backend
	}
	if *palette != "" {
		if _, err := graphics.LookupPalette(*palette); err != nil {
			log.Fatalf("Invalid palette: %v", err)
		}
		config.Video.Palette = *palette
	}
	if *scale > 0 {
		config.Window.Scale = *scale
	}
	if *bootFile != "" {
		config.Emulation.BootROM = *bootFile
	}
	if *record != "" {
		config.Audio.RecordWAV = *record
	}
	if *stats {
		config.Debug.Statsview = true
	}
	if *debug {
		config.Debug.LogLevel = "DEBUG"
		config.Debug.CPUTracing = true
		config.Debug.MemoryDebugging = true
		fmt.Println("🐛 Debug mode enabled")
	}
	if *nogui {
		fmt.Println("🖥️  Headless mode requested")
	}

	// Create application
	application, err := app.NewApplicationWithConfig(config, *nogui)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	fmt.Printf("📁 Loading ROM: %s\n", *romFile)
	if err := application.LoadROM(*romFile); err != nil {
		application.Cleanup()
		log.Fatalf("Failed to load ROM: %v", err)
	}
	fmt.Println("✅ ROM loaded successfully")

	if *nogui {
		err = runHeadlessMode(application, *frames, *screenshot, *dumpDir, *dumpEvery)
	} else {
		err = runGUIMode(application)
	}

	if cleanupErr := application.Cleanup(); cleanupErr != nil {
		log.Printf("Application cleanup error: %v", cleanupErr)
	}
	if err != nil {
		log.Fatalf("Emulator stopped: %v", err)
	}

	fmt.Println("👋 Emulator shutting down...")
}

// runGUIMode runs the interactive application until the window closes or a
// signal arrives
func runGUIMode(application *app.Application) error {
	fmt.Println("🚀 Initializing GUI application...")

	// Display startup information
	config := application.GetConfig()
	windowWidth, windowHeight := config.GetWindowResolution()
	fmt.Printf("   Window: %dx%d (Scale: %dx)\n", windowWidth, windowHeight, config.Window.Scale)
	fmt.Printf("   Audio: %s (%d Hz, %.0f%% volume)\n",
		enabledString(config.Audio.Enabled),
		config.Audio.SampleRate,
		config.Audio.Volume*100)
	fmt.Printf("   Video: %s, %s palette, VSync: %s\n",
		config.Video.Backend,
		config.Video.Palette,
		enabledString(config.Video.VSync))

	stop := setupGracefulShutdown(application.Stop)
	defer stop()

	fmt.Println("🎯 Starting main application loop...")
	if err := application.Run(); err != nil {
		return fmt.Errorf("application run failed: %w", err)
	}

	// Display shutdown statistics
	fmt.Printf("📊 Session Statistics:\n")
	fmt.Printf("   Frames rendered: %d\n", application.GetFrameCount())
	fmt.Printf("   Session time: %v\n", application.GetUptime())
	fmt.Printf("   Average FPS: %.1f\n", application.GetFPS())

	return nil
}

// runHeadlessMode runs a fixed number of frames as fast as possible. Serial
// output goes to stdout, which is how test ROMs report results.
func runHeadlessMode(application *app.Application, frames int, screenshot, dumpDir string, dumpEvery int) error {
	fmt.Printf("Running %d frames in headless mode...\n", frames)

	if dumpDir != "" {
		if window, ok := graphics.AsHeadlessWindow(application.GetWindow()); ok {
			window.SetFrameDump(dumpDir, dumpEvery)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := application.RunHeadless(ctx, frames)
	if errors.Is(err, context.Canceled) {
		fmt.Println("\n🛑 Interrupt received, shutting down gracefully...")
		err = nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("✅ %d frames complete\n", application.GetFrameCount())

	if screenshot != "" {
		if err := application.SaveScreenshot(screenshot); err != nil {
			return err
		}
		fmt.Printf("📸 Screenshot saved to %s\n", screenshot)
	}
	return nil
}

// setupGracefulShutdown calls stop when an interrupt or SIGTERM arrives. The
// returned func releases the signal handler.
func setupGracefulShutdown(stop func()) func() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case <-c:
			fmt.Println("\n🛑 Interrupt received, shutting down gracefully...")
			stop()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(c)
		close(done)
	}
}

// enabledString returns "enabled" or "disabled" based on boolean value
func enabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func printVersion() {
	version.WriteBuildInfo(os.Stdout)
}

func printUsage() {
	fmt.Println("dmgo - DMG-01 Game Boy Emulator")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  A cycle-accurate emulator of the original Game Boy written in Go.")
	fmt.Println("  Runs in a window, in the terminal or headless, with battery saves")
	fmt.Println("  and WAV audio recording.")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  dmgo [options] <rom>")
	fmt.Println("  dmgo -rom <file> [options]")
	fmt.Println("  dmgo -nogui -frames 600 -rom <file>   # Run headless, serial output to stdout")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  dmgo tetris.gb                          # Play in a window")
	fmt.Println("  dmgo -backend terminal tetris.gb        # Play in the terminal")
	fmt.Println("  dmgo -palette pocket -scale 3 tetris.gb # Pocket colours, 3x window")
	fmt.Println("  dmgo -nogui -frames 3000 cpu_instrs.gb  # Run a test ROM")
	fmt.Println("  dmgo -nogui -screenshot out.png game.gb # Capture the screen")
	fmt.Println()
	fmt.Println("CONTROLS (Default):")
	fmt.Println("    Arrow Keys / WASD - D-Pad")
	fmt.Println("    J / X             - A Button")
	fmt.Println("    K / Z             - B Button")
	fmt.Println("    Enter             - Start")
	fmt.Println("    Space             - Select")
	fmt.Println()
	fmt.Println("  Special Keys:")
	fmt.Println("    P                 - Pause")
	fmt.Println("    R                 - Reset")
	fmt.Println("    F1                - Next Palette")
	fmt.Println("    F2                - Write Battery Save")
	fmt.Println("    F12               - Screenshot")
	fmt.Println("    Escape            - Quit")
	fmt.Println()
	fmt.Println("CONFIGURATION:")
	fmt.Println("  Config file: ./config/dmgo.json")
	fmt.Println("  ROMs:        ./roms/")
	fmt.Println("  Saves:       ./saves/")
	fmt.Println("  Screenshots: ./screenshots/")
	fmt.Println()
	fmt.Println("SUPPORTED CARTRIDGES:")
	fmt.Println("  - ROM only, ROM+RAM")
	fmt.Println("  - MBC1, MBC3 (with RTC)")
}
