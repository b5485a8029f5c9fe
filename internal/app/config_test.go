package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dmgo/internal/bus"
	"dmgo/internal/ppu"
)

func TestNewConfigDefaults(t *testing.T) {
	c := NewConfig()

	if c.Video.Backend != "ebitengine" || c.Video.Palette != "dmg" {
		t.Errorf("video = %+v", c.Video)
	}
	if c.Emulation.FrameRate != bus.FrameRate {
		t.Errorf("frame rate = %v, want %v", c.Emulation.FrameRate, bus.FrameRate)
	}
	w, h := c.GetWindowResolution()
	if w != ppu.ScreenWidth*c.Window.Scale || h != ppu.ScreenHeight*c.Window.Scale {
		t.Errorf("window = %dx%d", w, h)
	}
}

func TestLoadFromFileCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "dmgo.json")
	c := NewConfig()
	if err := c.LoadFromFile(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if c.GetConfigPath() != path {
		t.Errorf("config path = %q", c.GetConfigPath())
	}
}

func TestLoadFromFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dmgo.json")

	c := NewConfig()
	c.Video.Backend = "terminal"
	c.Video.Palette = "pocket"
	c.Audio.RecordWAV = "out.wav"
	c.Emulation.BootROM = "dmg_boot.bin"
	c.Debug.Statsview = true
	c.Paths = PathsConfig{
		ROMs:        filepath.Join(dir, "roms"),
		SaveData:    filepath.Join(dir, "saves"),
		Screenshots: filepath.Join(dir, "shots"),
		Logs:        filepath.Join(dir, "logs"),
	}
	if err := c.SaveToFile(path); err != nil {
		t.Fatal(err)
	}

	loaded := NewConfig()
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatal(err)
	}
	if !loaded.IsLoaded() {
		t.Error("IsLoaded = false")
	}
	if loaded.Video != c.Video || loaded.Audio != c.Audio || loaded.Emulation != c.Emulation || loaded.Debug != c.Debug {
		t.Errorf("loaded %+v, want %+v", loaded, c)
	}
	if _, err := os.Stat(c.Paths.SaveData); err != nil {
		t.Errorf("save directory not created: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		Name   string
		Modify func(*Config)
		Field  string
		Check  func(*Config) bool
	}{
		{"unknown backend", func(c *Config) { c.Video.Backend = "sdl2" }, "video.backend", nil},
		{"unknown palette", func(c *Config) { c.Video.Palette = "sepia" }, "video.palette", nil},
		{"unknown filter", func(c *Config) { c.Video.Filter = "bicubic" }, "video.filter", nil},
		{"scale reset", func(c *Config) { c.Window.Scale = 0 }, "",
			func(c *Config) bool { return c.Window.Scale == 1 }},
		{"volume reset", func(c *Config) { c.Audio.Volume = 4 }, "",
			func(c *Config) bool { return c.Audio.Volume == 0.8 }},
		{"frame rate reset", func(c *Config) { c.Emulation.FrameRate = -1 }, "",
			func(c *Config) bool { return c.Emulation.FrameRate == bus.FrameRate }},
		{"brightness reset", func(c *Config) { c.Video.Brightness = 10 }, "",
			func(c *Config) bool { return c.Video.Brightness == 1 }},
		{"saturation zero kept", func(c *Config) { c.Video.Saturation = 0 }, "",
			func(c *Config) bool { return c.Video.Saturation == 0 }},
		{"log level normalised", func(c *Config) { c.Debug.LogLevel = "debug" }, "",
			func(c *Config) bool { return c.Debug.LogLevel == "DEBUG" }},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			c := NewConfig()
			tt.Modify(c)
			err := c.validate()

			if tt.Field != "" {
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) || cfgErr.Field != tt.Field {
					t.Fatalf("err = %v, want ConfigError for %s", err, tt.Field)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !tt.Check(c) {
				t.Errorf("value not reset: %+v", c)
			}
		})
	}
}

func TestClone(t *testing.T) {
	c := NewConfig()
	c.Video.Palette = "gray"
	clone := c.Clone()
	clone.Video.Palette = "pocket"
	if c.Video.Palette != "gray" {
		t.Error("clone shares state with the original")
	}
}
