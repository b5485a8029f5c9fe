// Package memory implements the DMG address space decode.
package memory

import (
	"dmgo/internal/logger"
)

// Memory map boundaries
const (
	vramStart     = 0x8000
	extRAMStart   = 0xA000
	wramStart     = 0xC000
	echoStart     = 0xE000
	oamStart      = 0xFE00
	unusableStart = 0xFEA0
	ioStart       = 0xFF00
	hramStart     = 0xFF80
	ieAddress     = 0xFFFF

	// BootROMSize is the length of the DMG boot ROM.
	BootROMSize = 0x100

	// DMA copies this many bytes into OAM, one per M-cycle
	dmaLength = 0xA0
)

// I/O register addresses routed by Memory itself
const (
	JOYP      = 0xFF00
	DMA       = 0xFF46
	BootOff   = 0xFF50
	IFAddress = 0xFF0F
)

// PPUInterface is the PPU register block at FF40-FF4B.
type PPUInterface interface {
	ReadRegister(address uint16) uint8
	WriteRegister(address uint16, value uint8)
}

// APUInterface is the sound register block at FF10-FF3F.
type APUInterface interface {
	ReadRegister(address uint16) uint8
	WriteRegister(address uint16, value uint8)
}

// RegisterDevice is a small register block such as the timer or serial port.
type RegisterDevice interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// InputInterface is the joypad register at FF00.
type InputInterface interface {
	Read() uint8
	Write(value uint8)
}

// InterruptInterface gives access to IF and IE.
type InterruptInterface interface {
	ReadFlags() uint8
	WriteFlags(value uint8)
	ReadEnable() uint8
	WriteEnable(value uint8)
}

// CartridgeInterface covers ROM, bank controller registers and external RAM.
type CartridgeInterface interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// Memory routes CPU accesses to the component that owns each address.
// Devices that have not been attached read as 0xFF and ignore writes.
type Memory struct {
	cartridge CartridgeInterface
	video     *VideoRAM

	wram [0x2000]uint8
	hram [0x7F]uint8
	io   [0x80]uint8

	boot       []uint8
	bootMapped bool

	ppu        PPUInterface
	apu        APUInterface
	timer      RegisterDevice
	serial     RegisterDevice
	input      InputInterface
	interrupts InterruptInterface

	// OAM DMA
	dmaRegister uint8
	dmaSource   uint16
	dmaIndex    int
	dmaActive   bool

	debug logger.Switch
}

// New creates the address space for a cartridge. Video memory is shared with
// the PPU.
func New(cart CartridgeInterface, video *VideoRAM, ppu PPUInterface, apu APUInterface) *Memory {
	return &Memory{
		cartridge: cart,
		video:     video,
		ppu:       ppu,
		apu:       apu,
	}
}

// SetTimer attaches the timer registers (FF04-FF07).
func (m *Memory) SetTimer(timer RegisterDevice) {
	m.timer = timer
}

// SetSerial attaches the serial registers (FF01-FF02).
func (m *Memory) SetSerial(serial RegisterDevice) {
	m.serial = serial
}

// SetInputSystem attaches the joypad register (FF00).
func (m *Memory) SetInputSystem(input InputInterface) {
	m.input = input
}

// SetInterrupts attaches IF and IE.
func (m *Memory) SetInterrupts(interrupts InterruptInterface) {
	m.interrupts = interrupts
}

// SetBootROM maps a boot ROM over 0000-00FF until FF50 is written.
func (m *Memory) SetBootROM(boot []uint8) {
	m.boot = boot
	m.bootMapped = len(boot) == BootROMSize
}

// BootROMMapped reports whether the boot ROM still covers 0000-00FF.
func (m *Memory) BootROMMapped() bool {
	return m.bootMapped
}

// SetDebug enables logging of ignored and unmapped accesses.
func (m *Memory) SetDebug(enabled bool) {
	m.debug.Set(enabled)
}

// Read returns the byte the CPU sees at address.
func (m *Memory) Read(address uint16) uint8 {
	if m.dmaActive && address < ioStart {
		return 0xFF
	}
	return m.read(address)
}

// read resolves an address without the DMA bus conflict.
func (m *Memory) read(address uint16) uint8 {
	switch {
	case address < BootROMSize && m.bootMapped:
		return m.boot[address]

	case address < vramStart:
		return m.cartridge.Read(address)

	case address < extRAMStart:
		return m.video.vram[address-vramStart]

	case address < wramStart:
		return m.cartridge.Read(address)

	case address < echoStart:
		return m.wram[address-wramStart]

	case address < oamStart:
		return m.wram[address-echoStart]

	case address < unusableStart:
		return m.video.oam[address-oamStart]

	case address < ioStart:
		m.logAccess("read from unusable area %04X", address)
		return 0xFF

	case address < hramStart:
		return m.readIO(address)

	case address < ieAddress:
		return m.hram[address-hramStart]

	default:
		if m.interrupts == nil {
			return 0xFF
		}
		return m.interrupts.ReadEnable()
	}
}

// Write stores a byte at address.
func (m *Memory) Write(address uint16, value uint8) {
	switch {
	case address < vramStart:
		m.cartridge.Write(address, value)

	case address < extRAMStart:
		m.video.vram[address-vramStart] = value

	case address < wramStart:
		m.cartridge.Write(address, value)

	case address < echoStart:
		m.wram[address-wramStart] = value

	case address < oamStart:
		m.wram[address-echoStart] = value

	case address < unusableStart:
		m.video.oam[address-oamStart] = value

	case address < ioStart:
		m.logAccess("write %02X to unusable area %04X ignored", value, address)

	case address < hramStart:
		m.writeIO(address, value)

	case address < ieAddress:
		m.hram[address-hramStart] = value

	default:
		if m.interrupts != nil {
			m.interrupts.WriteEnable(value)
		}
	}
}

func (m *Memory) readIO(address uint16) uint8 {
	switch {
	case address == JOYP:
		if m.input != nil {
			return m.input.Read()
		}

	case address == 0xFF01 || address == 0xFF02:
		if m.serial != nil {
			return m.serial.Read(address)
		}

	case address >= 0xFF04 && address <= 0xFF07:
		if m.timer != nil {
			return m.timer.Read(address)
		}

	case address == IFAddress:
		if m.interrupts != nil {
			return m.interrupts.ReadFlags()
		}

	case address >= 0xFF10 && address <= 0xFF3F:
		if m.apu != nil {
			return m.apu.ReadRegister(address)
		}

	case address == DMA:
		return m.dmaRegister

	case address >= 0xFF40 && address <= 0xFF4B:
		if m.ppu != nil {
			return m.ppu.ReadRegister(address)
		}
	}

	m.logAccess("read from unmapped io %04X", address)
	return 0xFF
}

func (m *Memory) writeIO(address uint16, value uint8) {
	switch {
	case address == JOYP:
		if m.input != nil {
			m.input.Write(value)
			return
		}

	case address == 0xFF01 || address == 0xFF02:
		if m.serial != nil {
			m.serial.Write(address, value)
			return
		}

	case address >= 0xFF04 && address <= 0xFF07:
		if m.timer != nil {
			m.timer.Write(address, value)
			return
		}

	case address == IFAddress:
		if m.interrupts != nil {
			m.interrupts.WriteFlags(value)
			return
		}

	case address >= 0xFF10 && address <= 0xFF3F:
		if m.apu != nil {
			m.apu.WriteRegister(address, value)
			return
		}

	case address == DMA:
		m.startDMA(value)
		return

	case address >= 0xFF40 && address <= 0xFF4B:
		if m.ppu != nil {
			m.ppu.WriteRegister(address, value)
			return
		}

	case address == BootOff:
		if value != 0 && m.bootMapped {
			m.bootMapped = false
			logger.Log(logger.Allow, "memory", "boot rom unmapped")
		}
		return
	}

	m.io[address-ioStart] = value
}

func (m *Memory) logAccess(format string, args ...interface{}) {
	logger.Logf(&m.debug, "memory", format, args...)
}

// startDMA begins an OAM transfer from value<<8. Sources above DFFF read
// through the echo area.
func (m *Memory) startDMA(value uint8) {
	m.dmaRegister = value
	m.dmaSource = uint16(value) << 8
	if m.dmaSource >= oamStart {
		m.dmaSource -= 0x2000
	}
	m.dmaIndex = 0
	m.dmaActive = true
}

// DMAActive reports whether an OAM transfer is in progress.
func (m *Memory) DMAActive() bool {
	return m.dmaActive
}

// TickDMA advances an OAM transfer by mcycles bytes.
func (m *Memory) TickDMA(mcycles int) {
	for i := 0; i < mcycles && m.dmaActive; i++ {
		m.video.oam[m.dmaIndex] = m.read(m.dmaSource + uint16(m.dmaIndex))
		m.dmaIndex++
		if m.dmaIndex == dmaLength {
			m.dmaActive = false
		}
	}
}
