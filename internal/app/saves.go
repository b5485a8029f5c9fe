package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dmgo/internal/cartridge"
	"dmgo/internal/logger"
)

// SaveManager reads and writes battery backed cartridge RAM as .sav files.
type SaveManager struct {
	saveDirectory string
}

// SaveInfo describes the save file for a cartridge
type SaveInfo struct {
	FilePath string
	Exists   bool
	Size     int64
	Modified time.Time
}

// NewSaveManager creates a save manager writing to saveDirectory
func NewSaveManager(saveDirectory string) *SaveManager {
	return &SaveManager{saveDirectory: saveDirectory}
}

// FilePath returns the save file for a cartridge: the header title, or the
// ROM file name when the title is empty, with a .sav extension.
func (sm *SaveManager) FilePath(cart *cartridge.Cartridge, romPath string) string {
	name := sanitizeName(cart.Header().Title)
	if name == "" {
		base := filepath.Base(romPath)
		name = sanitizeName(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	if name == "" {
		name = "untitled"
	}
	return filepath.Join(sm.saveDirectory, name+".sav")
}

func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Load restores cartridge RAM from its save file. It reports whether a save
// was found. Cartridges without a battery are left alone.
func (sm *SaveManager) Load(cart *cartridge.Cartridge, romPath string) (bool, error) {
	if !cart.HasBattery() {
		return false, nil
	}

	path := sm.FilePath(cart, romPath)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read save file: %w", err)
	}

	cart.LoadRAM(data)
	logger.Logf(logger.Allow, "saves", "loaded %d bytes from %s", len(data), path)
	return true, nil
}

// Save writes cartridge RAM to its save file. The file is replaced
// atomically so a crash never leaves a truncated save.
func (sm *SaveManager) Save(cart *cartridge.Cartridge, romPath string) error {
	if !cart.HasBattery() {
		return nil
	}
	data := cart.RAM()
	if len(data) == 0 {
		return nil
	}

	if err := os.MkdirAll(sm.saveDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create save directory: %w", err)
	}

	path := sm.FilePath(cart, romPath)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write save file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace save file: %w", err)
	}

	logger.Logf(logger.Allow, "saves", "wrote %d bytes to %s", len(data), path)
	return nil
}

// Info returns information about the save file for a cartridge
func (sm *SaveManager) Info(cart *cartridge.Cartridge, romPath string) SaveInfo {
	info := SaveInfo{FilePath: sm.FilePath(cart, romPath)}
	if st, err := os.Stat(info.FilePath); err == nil {
		info.Exists = true
		info.Size = st.Size()
		info.Modified = st.ModTime()
	}
	return info
}

// Delete removes the save file for a cartridge
func (sm *SaveManager) Delete(cart *cartridge.Cartridge, romPath string) error {
	err := os.Remove(sm.FilePath(cart, romPath))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete save file: %w", err)
	}
	return nil
}

// GetSaveDirectory returns the save directory
func (sm *SaveManager) GetSaveDirectory() string {
	return sm.saveDirectory
}
