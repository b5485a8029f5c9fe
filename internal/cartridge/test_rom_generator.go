package cartridge

import (
	"fmt"
)

// TestROMGenerator builds small ROM images with valid headers for tests of
// this and other packages.

// Entry point and program start used by generated ROMs
const (
	EntryPoint   = 0x0100
	ProgramStart = 0x0150
)

// TestROMConfig describes a generated ROM image.
type TestROMConfig struct {
	Title       string
	Type        uint8         // cartridge type byte (0x147)
	ROMSizeCode uint8         // 32 KiB << code
	RAMSizeCode uint8         // header RAM size code
	Program     []uint8       // placed at ProgramStart, entry point jumps to it
	InitialData map[int]uint8 // absolute ROM offsets, may be in any bank
	BankMarkers bool          // write the bank number to the first byte of every bank
	BadChecksum bool          // corrupt the header checksum
	Description string
}

// TestROMBuilder provides a fluent interface for building test ROMs.
type TestROMBuilder struct {
	config TestROMConfig
}

// NewTestROMBuilder creates a builder for a 32 KiB ROM-only image.
func NewTestROMBuilder() *TestROMBuilder {
	return &TestROMBuilder{
		config: TestROMConfig{
			Title:       "TEST",
			Type:        0x00,
			InitialData: make(map[int]uint8),
			Description: "Generated test ROM",
		},
	}
}

// WithTitle sets the header title.
func (b *TestROMBuilder) WithTitle(title string) *TestROMBuilder {
	b.config.Title = title
	return b
}

// WithType sets the cartridge type byte.
func (b *TestROMBuilder) WithType(t uint8) *TestROMBuilder {
	b.config.Type = t
	return b
}

// WithROMSizeCode sets the ROM size code; the image has 2<<code banks.
func (b *TestROMBuilder) WithROMSizeCode(code uint8) *TestROMBuilder {
	b.config.ROMSizeCode = code
	return b
}

// WithRAMSizeCode sets the header RAM size code.
func (b *TestROMBuilder) WithRAMSizeCode(code uint8) *TestROMBuilder {
	b.config.RAMSizeCode = code
	return b
}

// WithProgram sets the code executed after the entry point jump.
func (b *TestROMBuilder) WithProgram(program []uint8) *TestROMBuilder {
	b.config.Program = make([]uint8, len(program))
	copy(b.config.Program, program)
	return b
}

// WithData places bytes at an absolute ROM offset.
func (b *TestROMBuilder) WithData(offset int, data []uint8) *TestROMBuilder {
	for i, value := range data {
		b.config.InitialData[offset+i] = value
	}
	return b
}

// WithBankMarkers writes each bank's number into its first byte.
func (b *TestROMBuilder) WithBankMarkers() *TestROMBuilder {
	b.config.BankMarkers = true
	return b
}

// WithBadChecksum makes the header checksum wrong.
func (b *TestROMBuilder) WithBadChecksum() *TestROMBuilder {
	b.config.BadChecksum = true
	return b
}

// Build generates the ROM image.
func (b *TestROMBuilder) Build() ([]byte, error) {
	return GenerateTestROM(b.config)
}

// BuildCartridge generates the image and loads it.
func (b *TestROMBuilder) BuildCartridge() (*Cartridge, error) {
	rom, err := b.Build()
	if err != nil {
		return nil, err
	}
	return New(rom)
}

// GenerateTestROM creates a ROM image from config.
func GenerateTestROM(config TestROMConfig) ([]byte, error) {
	if config.ROMSizeCode > maxROMSizeCode {
		return nil, fmt.Errorf("rom size code %d too large", config.ROMSizeCode)
	}
	size := 0x8000 << config.ROMSizeCode
	rom := make([]byte, size)

	if config.BankMarkers {
		for bank := 0; bank < size/romBankSize; bank++ {
			rom[bank*romBankSize] = uint8(bank)
		}
	}

	// NOP; JP ProgramStart
	copy(rom[EntryPoint:], []uint8{0x00, 0xC3, uint8(ProgramStart & 0xFF), uint8(ProgramStart >> 8)})

	if len(config.Program) > romBankSize-ProgramStart {
		return nil, fmt.Errorf("program too large for bank 0: %d bytes", len(config.Program))
	}
	copy(rom[ProgramStart:], config.Program)

	for offset, value := range config.InitialData {
		if offset < 0 || offset >= size {
			return nil, fmt.Errorf("data offset 0x%X outside rom", offset)
		}
		rom[offset] = value
	}

	title := config.Title
	if len(title) > titleEnd-titleStart+1 {
		title = title[:titleEnd-titleStart+1]
	}
	copy(rom[titleStart:], title)
	rom[typeOffset] = config.Type
	rom[romSizeOffset] = config.ROMSizeCode
	rom[ramSizeOffset] = config.RAMSizeCode

	rom[checksumOffset] = HeaderChecksum(rom)
	if config.BadChecksum {
		rom[checksumOffset]++
	}

	var global uint16
	for i, v := range rom {
		if i != globalSumOffset && i != globalSumOffset+1 {
			global += uint16(v)
		}
	}
	rom[globalSumOffset] = uint8(global >> 8)
	rom[globalSumOffset+1] = uint8(global)

	return rom, nil
}

// CreateMinimalTestROM returns a ROM-only image whose program loops forever.
func CreateMinimalTestROM() []byte {
	rom, _ := NewTestROMBuilder().
		WithProgram([]uint8{0x18, 0xFE}). // JR -2
		Build()
	return rom
}

// CreateTestROMWithProgram returns a ROM-only image running program.
func CreateTestROMWithProgram(program []uint8) []byte {
	rom, err := NewTestROMBuilder().WithProgram(program).Build()
	if err != nil {
		panic(err)
	}
	return rom
}
