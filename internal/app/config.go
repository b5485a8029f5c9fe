// Package app provides configuration management and the run loop for the
// emulator.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"dmgo/internal/apu"
	"dmgo/internal/bus"
	"dmgo/internal/graphics"
	"dmgo/internal/ppu"
	"dmgo/internal/statsview"
)

// Config holds all application configuration
type Config struct {
	Window    WindowConfig    `json:"window"`
	Video     VideoConfig     `json:"video"`
	Audio     AudioConfig     `json:"audio"`
	Emulation EmulationConfig `json:"emulation"`
	Debug     DebugConfig     `json:"debug"`
	Paths     PathsConfig     `json:"paths"`

	// Internal state
	configPath string
	loaded     bool
}

// WindowConfig contains window-related configuration
type WindowConfig struct {
	Scale      int  `json:"scale"` // 160x144 multiplier
	Fullscreen bool `json:"fullscreen"`
}

// VideoConfig contains video rendering configuration
type VideoConfig struct {
	Backend    string  `json:"backend"` // "ebitengine", "terminal", "headless"
	Palette    string  `json:"palette"` // "dmg", "gray", "pocket"
	Filter     string  `json:"filter"`  // "nearest", "linear"
	VSync      bool    `json:"vsync"`
	Brightness float32 `json:"brightness"`
	Contrast   float32 `json:"contrast"`
	Saturation float32 `json:"saturation"`
}

// AudioConfig contains audio configuration
type AudioConfig struct {
	Enabled    bool    `json:"enabled"`
	SampleRate int     `json:"sample_rate"`
	BufferSize int     `json:"buffer_size"` // stereo frames
	Volume     float32 `json:"volume"`
	RecordWAV  string  `json:"record_wav"` // empty disables recording
}

// EmulationConfig contains emulation-specific settings
type EmulationConfig struct {
	BootROM     string  `json:"boot_rom"`     // optional 256 byte DMG boot ROM
	RTCRealtime bool    `json:"rtc_realtime"` // advance the MBC3 clock from the wall clock
	FrameRate   float64 `json:"frame_rate"`   // Target frame rate
	AutoSave    bool    `json:"auto_save"`    // Write battery RAM on exit
}

// DebugConfig contains debugging and development options
type DebugConfig struct {
	ShowFPS         bool   `json:"show_fps"`
	LogLevel        string `json:"log_level"` // "DEBUG", "INFO", "WARN", "ERROR"
	CPUTracing      bool   `json:"cpu_tracing"`
	MemoryDebugging bool   `json:"memory_debugging"`
	Statsview       bool   `json:"statsview"`
	StatsviewAddr   string `json:"statsview_addr"`
}

// PathsConfig contains file and directory paths
type PathsConfig struct {
	ROMs        string `json:"roms"`
	SaveData    string `json:"save_data"`
	Screenshots string `json:"screenshots"`
	Logs        string `json:"logs"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Scale:      4,
			Fullscreen: false,
		},
		Video: VideoConfig{
			Backend:    string(graphics.BackendEbitengine),
			Palette:    "dmg",
			Filter:     "nearest",
			VSync:      true,
			Brightness: 1.0,
			Contrast:   1.0,
			Saturation: 1.0,
		},
		Audio: AudioConfig{
			Enabled:    true,
			SampleRate: apu.DefaultSampleRate,
			BufferSize: 2048,
			Volume:     0.8,
		},
		Emulation: EmulationConfig{
			RTCRealtime: true,
			FrameRate:   bus.FrameRate,
			AutoSave:    true,
		},
		Debug: DebugConfig{
			LogLevel:      "INFO",
			StatsviewAddr: statsview.Address,
		},
		Paths: PathsConfig{
			ROMs:        "./roms",
			SaveData:    "./saves",
			Screenshots: "./screenshots",
			Logs:        "./logs",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. A missing file is
// created with the current values.
func (c *Config) LoadFromFile(path string) error {
	c.configPath = path

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c.SaveToFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.createDirectories(); err != nil {
		return err
	}

	c.loaded = true
	return nil
}

// SaveToFile writes the configuration as indented JSON. The file is replaced
// atomically.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config file: %w", err)
	}

	c.configPath = path
	return nil
}

// Save writes the configuration back to the file it was loaded from
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New("no config file path set")
	}
	return c.SaveToFile(c.configPath)
}

// float32 settings outside [min, max] are reset to def
type floatRange struct {
	value         *float32
	min, max, def float32
}

// validate rejects settings that cannot work and resets out of range values
// to their defaults
func (c *Config) validate() error {
	switch graphics.BackendType(c.Video.Backend) {
	case graphics.BackendEbitengine, graphics.BackendTerminal, graphics.BackendHeadless:
	default:
		return &ConfigError{Field: "video.backend", Value: c.Video.Backend, Err: errors.New("unknown backend")}
	}
	if _, err := graphics.LookupPalette(c.Video.Palette); err != nil {
		return &ConfigError{Field: "video.palette", Value: c.Video.Palette, Err: err}
	}
	if c.Video.Filter != "nearest" && c.Video.Filter != "linear" {
		return &ConfigError{Field: "video.filter", Value: c.Video.Filter, Err: errors.New("want nearest or linear")}
	}

	for _, r := range []floatRange{
		{&c.Video.Brightness, 0.1, 3, 1},
		{&c.Video.Contrast, 0.1, 3, 1},
		{&c.Video.Saturation, 0, 3, 1},
		{&c.Audio.Volume, 0, 1, 0.8},
	} {
		if *r.value < r.min || *r.value > r.max {
			*r.value = r.def
		}
	}

	if c.Window.Scale <= 0 {
		c.Window.Scale = 1
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = apu.DefaultSampleRate
	}
	if c.Audio.BufferSize <= 0 {
		c.Audio.BufferSize = 2048
	}
	if c.Emulation.FrameRate <= 0 {
		c.Emulation.FrameRate = bus.FrameRate
	}
	if c.Debug.StatsviewAddr == "" {
		c.Debug.StatsviewAddr = statsview.Address
	}
	c.Debug.LogLevel = strings.ToUpper(c.Debug.LogLevel)

	return nil
}

// createDirectories creates the configured directories that are set
func (c *Config) createDirectories() error {
	for _, dir := range []string{c.Paths.ROMs, c.Paths.SaveData, c.Paths.Screenshots, c.Paths.Logs} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetWindowResolution returns the window resolution based on scale
func (c *Config) GetWindowResolution() (int, int) {
	return ppu.ScreenWidth * c.Window.Scale, ppu.ScreenHeight * c.Window.Scale
}

// IsLoaded returns whether the configuration was loaded from file
func (c *Config) IsLoaded() bool {
	return c.loaded
}

// GetConfigPath returns the path to the config file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Clone returns a copy of the configuration. Config holds only values, so a
// shallow copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return "./config/dmgo.json"
}

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s' with value '%v': %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
