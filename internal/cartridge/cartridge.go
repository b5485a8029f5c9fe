// Package cartridge implements ROM loading, header parsing and the bank
// controllers of DMG cartridges.
package cartridge

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"dmgo/internal/logger"
)

// Sentinel errors returned (wrapped) by New.
var (
	ErrTruncated       = errors.New("rom image truncated")
	ErrHeaderChecksum  = errors.New("header checksum mismatch")
	ErrUnsupportedType = errors.New("unsupported cartridge type")
	ErrROMSize         = errors.New("invalid rom size code")
	ErrRAMSize         = errors.New("invalid ram size code")
)

// HeaderError describes which header field rejected the image.
type HeaderError struct {
	Field string
	Value int
	Err   error
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("cartridge header field '%s' (value 0x%02X): %v", e.Field, e.Value, e.Err)
}

func (e *HeaderError) Unwrap() error {
	return e.Err
}

// Header field offsets
const (
	titleStart       = 0x134
	titleEnd         = 0x143
	typeOffset       = 0x147
	romSizeOffset    = 0x148
	ramSizeOffset    = 0x149
	checksumOffset   = 0x14D
	globalSumOffset  = 0x14E
	headerEnd        = 0x150
	romBankSize      = 0x4000
	ramBankSize      = 0x2000
	maxROMSizeCode   = 0x08
	externalRAMStart = 0xA000
)

// Kind is the bank controller family.
type Kind uint8

const (
	KindNone Kind = iota
	KindMBC1
	KindMBC3
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ROM"
	case KindMBC1:
		return "MBC1"
	case KindMBC3:
		return "MBC3"
	}
	return "unknown"
}

type cartType struct {
	name    string
	kind    Kind
	ram     bool
	battery bool
	rtc     bool
}

var cartTypes = map[uint8]cartType{
	0x00: {"ROM ONLY", KindNone, false, false, false},
	0x01: {"MBC1", KindMBC1, false, false, false},
	0x02: {"MBC1+RAM", KindMBC1, true, false, false},
	0x03: {"MBC1+RAM+BATTERY", KindMBC1, true, true, false},
	0x08: {"ROM+RAM", KindNone, true, false, false},
	0x09: {"ROM+RAM+BATTERY", KindNone, true, true, false},
	0x0F: {"MBC3+TIMER+BATTERY", KindMBC3, false, true, true},
	0x10: {"MBC3+TIMER+RAM+BATTERY", KindMBC3, true, true, true},
	0x11: {"MBC3", KindMBC3, false, false, false},
	0x12: {"MBC3+RAM", KindMBC3, true, false, false},
	0x13: {"MBC3+RAM+BATTERY", KindMBC3, true, true, false},
}

// external RAM size in bytes by header code
var ramSizes = map[uint8]int{
	0x00: 0,
	0x01: 0x800,
	0x02: 0x2000,
	0x03: 0x8000,
	0x04: 0x20000,
	0x05: 0x10000,
}

// Header is the parsed cartridge header.
type Header struct {
	Title    string
	Type     uint8
	TypeName string
	Kind     Kind
	ROMSize  int
	RAMSize  int
	Battery  bool
	Timer    bool
	Checksum uint8
}

func (h Header) String() string {
	return fmt.Sprintf("%q %s rom=%dKiB ram=%dKiB", h.Title, h.TypeName, h.ROMSize/1024, h.RAMSize/1024)
}

// HeaderChecksum computes the checksum the boot ROM verifies over 0x134-0x14C.
func HeaderChecksum(rom []byte) uint8 {
	var x uint8
	for _, b := range rom[titleStart:checksumOffset] {
		x = x - b - 1
	}
	return x
}

// ParseHeader validates and decodes the header of a ROM image.
func ParseHeader(rom []byte) (Header, error) {
	if len(rom) < headerEnd {
		return Header{}, &HeaderError{Field: "length", Value: len(rom), Err: ErrTruncated}
	}

	h := Header{
		Type:     rom[typeOffset],
		Checksum: rom[checksumOffset],
	}

	if sum := HeaderChecksum(rom); sum != h.Checksum {
		return Header{}, &HeaderError{Field: "checksum", Value: int(h.Checksum), Err: ErrHeaderChecksum}
	}

	ct, ok := cartTypes[h.Type]
	if !ok {
		return Header{}, &HeaderError{Field: "type", Value: int(h.Type), Err: ErrUnsupportedType}
	}
	h.TypeName = ct.name
	h.Kind = ct.kind
	h.Battery = ct.battery
	h.Timer = ct.rtc

	code := rom[romSizeOffset]
	if code > maxROMSizeCode {
		return Header{}, &HeaderError{Field: "rom size", Value: int(code), Err: ErrROMSize}
	}
	h.ROMSize = 0x8000 << code
	if len(rom) < h.ROMSize {
		return Header{}, &HeaderError{Field: "length", Value: len(rom), Err: ErrTruncated}
	}

	code = rom[ramSizeOffset]
	size, ok := ramSizes[code]
	if !ok {
		return Header{}, &HeaderError{Field: "ram size", Value: int(code), Err: ErrRAMSize}
	}
	if ct.ram {
		h.RAMSize = size
	}

	h.Title = parseTitle(rom[titleStart : titleEnd+1])

	return h, nil
}

func parseTitle(b []byte) string {
	s := strings.Builder{}
	for _, c := range b {
		if c == 0 {
			break
		}
		if c < 0x20 || c > 0x7E {
			continue
		}
		s.WriteByte(c)
	}
	return strings.TrimSpace(s.String())
}

// Cartridge is a ROM image with its bank controller and external RAM.
type Cartridge struct {
	header Header
	rom    []byte
	ram    []byte
	banks  int

	// bank controller registers
	ramEnabled bool
	romLow     uint8 // MBC1 5-bit / MBC3 7-bit ROM bank register
	romHigh    uint8 // MBC1 2-bit upper register
	ramSelect  uint8 // MBC3 RAM bank or RTC register select
	mode       uint8 // MBC1 banking mode

	rtc *RTC
}

// New parses the header and builds the cartridge. The ROM slice is copied.
func New(rom []byte) (*Cartridge, error) {
	h, err := ParseHeader(rom)
	if err != nil {
		return nil, fmt.Errorf("loading cartridge: %w", err)
	}

	c := &Cartridge{
		header: h,
		rom:    make([]byte, h.ROMSize),
		ram:    make([]byte, h.RAMSize),
		banks:  h.ROMSize / romBankSize,
	}
	copy(c.rom, rom)

	if h.Timer {
		c.rtc = NewRTC()
	}

	c.Reset()

	logger.Logf(logger.Allow, "cartridge", "loaded %v", h)

	return c, nil
}

// LoadFromFile reads a ROM image from disk.
func LoadFromFile(filename string) (*Cartridge, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadFromReader(file)
}

// LoadFromReader reads a complete ROM image from r.
func LoadFromReader(r io.Reader) (*Cartridge, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return New(data)
}

// Reset puts the bank controller into its power-on state. External RAM
// contents are kept.
func (c *Cartridge) Reset() {
	c.ramEnabled = false
	c.romLow = 1
	c.romHigh = 0
	c.ramSelect = 0
	c.mode = 0
}

// Header returns the parsed header.
func (c *Cartridge) Header() Header {
	return c.header
}

// Kind returns the bank controller family.
func (c *Cartridge) Kind() Kind {
	return c.header.Kind
}

// Banks returns the number of 16 KiB ROM banks.
func (c *Cartridge) Banks() int {
	return c.banks
}

// HasBattery reports whether external RAM (and the clock) survive power off.
func (c *Cartridge) HasBattery() bool {
	return c.header.Battery
}

// RTC returns the real-time clock of an MBC3+TIMER cartridge, or nil.
func (c *Cartridge) RTC() *RTC {
	return c.rtc
}

// Read returns the byte visible at a cartridge address (0000-7FFF or
// A000-BFFF).
func (c *Cartridge) Read(address uint16) uint8 {
	switch {
	case address < 0x4000:
		return c.readROM(c.lowBank(), address)
	case address < 0x8000:
		return c.readROM(c.highBank(), address-0x4000)
	case address >= 0xA000 && address < 0xC000:
		return c.readRAM(address)
	}
	return 0xFF
}

// Write handles bank controller register writes (0000-7FFF) and external RAM
// writes (A000-BFFF).
func (c *Cartridge) Write(address uint16, value uint8) {
	switch {
	case address < 0x8000:
		c.writeControl(address, value)
	case address >= 0xA000 && address < 0xC000:
		c.writeRAM(address, value)
	}
}

func (c *Cartridge) readROM(bank int, offset uint16) uint8 {
	return c.rom[bank*romBankSize+int(offset)]
}

// RAM returns the external RAM for battery saves. MBC3 cartridges with a
// clock append the clock state.
func (c *Cartridge) RAM() []byte {
	data := make([]byte, len(c.ram))
	copy(data, c.ram)
	if c.rtc != nil {
		data = append(data, c.rtc.MarshalBinary()...)
	}
	return data
}

// LoadRAM restores external RAM (and clock state when present) from a save.
// Short data fills what it can.
func (c *Cartridge) LoadRAM(data []byte) {
	n := copy(c.ram, data)
	if c.rtc != nil && len(data) > n {
		if err := c.rtc.UnmarshalBinary(data[n:]); err != nil {
			logger.Log(logger.Allow, "cartridge", err)
		}
	}
}
