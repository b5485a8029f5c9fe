package app

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"dmgo/internal/cartridge"
	"dmgo/internal/graphics"
	"dmgo/internal/input"
)

func newHeadlessApp(t *testing.T) (*Application, string) {
	t.Helper()
	dir := t.TempDir()

	config := NewConfig()
	config.Video.Backend = string(graphics.BackendHeadless)
	config.Audio.Enabled = false
	config.Paths = PathsConfig{
		ROMs:        filepath.Join(dir, "roms"),
		SaveData:    filepath.Join(dir, "saves"),
		Screenshots: filepath.Join(dir, "shots"),
		Logs:        filepath.Join(dir, "logs"),
	}

	app, err := NewApplicationWithConfig(config, true)
	if err != nil {
		t.Fatal(err)
	}
	return app, dir
}

func writeROM(t *testing.T, dir string, builder *cartridge.TestROMBuilder) string {
	t.Helper()
	rom, err := builder.Build()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "test.gb")
	if err := os.WriteFile(path, rom, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunWithoutROM(t *testing.T) {
	app, _ := newHeadlessApp(t)
	if err := app.Run(); err == nil {
		t.Error("Run succeeded without a ROM")
	}
	if err := app.RunHeadless(context.Background(), 1); err == nil {
		t.Error("RunHeadless succeeded without a ROM")
	}
}

func TestLoadROMErrors(t *testing.T) {
	app, dir := newHeadlessApp(t)

	var appErr *ApplicationError
	if err := app.LoadROM(filepath.Join(dir, "missing.gb")); !errors.As(err, &appErr) {
		t.Errorf("missing file: err = %v", err)
	}

	path := writeROM(t, dir, cartridge.NewTestROMBuilder().WithBadChecksum())
	err := app.LoadROM(path)
	if !errors.Is(err, cartridge.ErrHeaderChecksum) {
		t.Errorf("bad checksum: err = %v", err)
	}
}

func TestHeadlessRunAndScreenshot(t *testing.T) {
	app, dir := newHeadlessApp(t)
	path := writeROM(t, dir, cartridge.NewTestROMBuilder().WithTitle("HEADLESS").WithProgram([]uint8{0x18, 0xFE}))

	if err := app.LoadROM(path); err != nil {
		t.Fatal(err)
	}
	if err := app.RunHeadless(context.Background(), 3); err != nil {
		t.Fatal(err)
	}
	if app.GetFrameCount() != 3 || app.GetBus().FrameCount() != 3 {
		t.Errorf("frames = %d, bus frames = %d", app.GetFrameCount(), app.GetBus().FrameCount())
	}

	hw, ok := graphics.AsHeadlessWindow(app.GetWindow())
	if !ok {
		t.Fatalf("window is %T", app.GetWindow())
	}
	if hw.GetFrameCount() != 3 {
		t.Errorf("rendered %d frames, want 3", hw.GetFrameCount())
	}
	if hw.Title() != "dmgo - HEADLESS" {
		t.Errorf("title = %q", hw.Title())
	}

	shot, err := app.Screenshot()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(shot) != app.GetConfig().Paths.Screenshots {
		t.Errorf("screenshot written to %s", shot)
	}
	f, err := os.Open(shot)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("screenshot is not a png: %v", err)
	}
}

func TestRunHeadlessCancelled(t *testing.T) {
	app, dir := newHeadlessApp(t)
	if err := app.LoadROM(writeROM(t, dir, cartridge.NewTestROMBuilder())); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := app.RunHeadless(ctx, 5); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestBatteryPersistsAcrossSessions(t *testing.T) {
	app, dir := newHeadlessApp(t)
	program := []uint8{
		0x3E, 0x0A,       // LD A,0A
		0xEA, 0x00, 0x00, // LD (0000),A ; enable RAM
		0x3E, 0x42,       // LD A,42
		0xEA, 0x00, 0xA0, // LD (A000),A
		0x18, 0xFE,       // JR -2
	}
	path := writeROM(t, dir, cartridge.NewTestROMBuilder().
		WithTitle("BATTERY").
		WithType(0x03).
		WithRAMSizeCode(2).
		WithProgram(program))

	if err := app.LoadROM(path); err != nil {
		t.Fatal(err)
	}
	if err := app.RunHeadless(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if err := app.Cleanup(); err != nil {
		t.Fatal(err)
	}

	save := filepath.Join(app.GetConfig().Paths.SaveData, "BATTERY.sav")
	data, err := os.ReadFile(save)
	if err != nil {
		t.Fatalf("battery save not written: %v", err)
	}
	if data[0] != 0x42 {
		t.Errorf("saved RAM[0] = %02X, want 42", data[0])
	}
	if _, err := os.Stat(filepath.Join(app.GetConfig().Paths.Logs, "dmgo.log")); err != nil {
		t.Errorf("log not written: %v", err)
	}

	next, _ := newHeadlessApp(t)
	next.config.Paths.SaveData = app.GetConfig().Paths.SaveData
	next.saves = NewSaveManager(next.config.Paths.SaveData)
	if err := next.LoadROM(path); err != nil {
		t.Fatal(err)
	}
	cart := next.GetBus().Cartridge()
	cart.Write(0x0000, 0x0A)
	if cart.Read(0xA000) != 0x42 {
		t.Errorf("restored RAM[0] = %02X, want 42", cart.Read(0xA000))
	}
}

func TestKeyHandling(t *testing.T) {
	app, dir := newHeadlessApp(t)
	if err := app.LoadROM(writeROM(t, dir, cartridge.NewTestROMBuilder())); err != nil {
		t.Fatal(err)
	}

	app.handleKeyInput(graphics.KeyP)
	if !app.IsPaused() {
		t.Error("P should pause")
	}
	app.handleKeyInput(graphics.KeyP)
	if app.IsPaused() {
		t.Error("P should resume")
	}

	before := app.paletteName
	app.handleKeyInput(graphics.KeyF1)
	if app.paletteName == before {
		t.Error("F1 should change the palette")
	}

	button, ok := graphicsButtonToInputButton(graphics.ButtonStart)
	if !ok || button != input.Start {
		t.Errorf("Start maps to %v, %v", button, ok)
	}
	if _, ok := graphicsButtonToInputButton(graphics.ButtonUnknown); ok {
		t.Error("unknown button should not map")
	}
}
