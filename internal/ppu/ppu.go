// Package ppu implements the DMG picture processing unit: the LCD mode state
// machine, STAT and VBlank interrupts and a scanline renderer producing
// 2-bit shade indices.
package ppu

import (
	"dmgo/internal/interrupt"
	"dmgo/internal/logger"
	"dmgo/internal/memory"
)

// Screen dimensions
const (
	ScreenWidth  = 160
	ScreenHeight = 144
)

// Timing in dots (T-cycles)
const (
	oamScanDots    = 80
	lineDots       = 456
	baseDrawDots   = 172
	maxDrawDots    = 289
	windowPenalty  = 6
	spritePenalty  = 6
	vblankLine     = ScreenHeight
	linesPerFrame  = 154
	spritesPerLine = 10
)

// Register addresses
const (
	LCDC = 0xFF40
	STAT = 0xFF41
	SCY  = 0xFF42
	SCX  = 0xFF43
	LY   = 0xFF44
	LYC  = 0xFF45
	BGP  = 0xFF47
	OBP0 = 0xFF48
	OBP1 = 0xFF49
	WY   = 0xFF4A
	WX   = 0xFF4B
)

// LCDC bits
const (
	lcdcBGEnable     = 0x01
	lcdcObjEnable    = 0x02
	lcdcObjTall      = 0x04
	lcdcBGMap        = 0x08
	lcdcTileData     = 0x10
	lcdcWindowEnable = 0x20
	lcdcWindowMap    = 0x40
	lcdcEnable       = 0x80
)

// STAT bits
const (
	statCoincidence = 0x04
	statHBlankInt   = 0x08
	statVBlankInt   = 0x10
	statOAMInt      = 0x20
	statLYCInt      = 0x40
	statWritable    = 0x78
)

// Object attribute bits
const (
	attrBehindBG = 0x80
	attrFlipY    = 0x40
	attrFlipX    = 0x20
	attrPalette  = 0x10
)

// Mode is the LCD controller mode reported in STAT bits 0-1.
type Mode uint8

const (
	HBlank Mode = iota
	VBlank
	OAMScan
	Drawing
)

func (m Mode) String() string {
	switch m {
	case HBlank:
		return "HBlank"
	case VBlank:
		return "VBlank"
	case OAMScan:
		return "OAMScan"
	case Drawing:
		return "Drawing"
	}
	return "unknown"
}

// FrameBuffer is a frame of shade indices, 0 lightest to 3 darkest, row
// major.
type FrameBuffer [ScreenWidth * ScreenHeight]uint8

type sprite struct {
	y, x  int
	tile  uint8
	attr  uint8
	index int
}

// PPU is advanced in dots by the step driver.
type PPU struct {
	lcdc, stat uint8
	scy, scx   uint8
	ly, lyc    uint8
	bgp        uint8
	obp0, obp1 uint8
	wy, wx     uint8

	mode       Mode
	dot        int
	drawLength int
	statLine   bool

	// window
	windowLine   int
	windowOnLine bool

	sprites     [spritesPerLine]sprite
	spriteCount int

	// background colour indices of the line being rendered, for object
	// priority
	lineIndex [ScreenWidth]uint8

	back       FrameBuffer
	front      FrameBuffer
	frameCount uint64

	video         *memory.VideoRAM
	irq           interrupt.Requester
	frameCallback func(*FrameBuffer)

	debug logger.Switch
}

// New creates a PPU reading tiles and objects from video.
func New(video *memory.VideoRAM, irq interrupt.Requester) *PPU {
	return &PPU{
		video: video,
		irq:   irq,
	}
}

// Reset puts the registers into their power-on state with the LCD off, or
// into the state the boot ROM leaves them in.
func (p *PPU) Reset(postBoot bool) {
	p.lcdc, p.stat = 0, 0
	p.scy, p.scx = 0, 0
	p.ly, p.lyc = 0, 0
	p.bgp, p.obp0, p.obp1 = 0, 0, 0
	p.wy, p.wx = 0, 0
	p.mode = HBlank
	p.dot = 0
	p.drawLength = baseDrawDots
	p.windowLine = 0
	p.spriteCount = 0
	p.frameCount = 0
	p.back = FrameBuffer{}
	p.front = FrameBuffer{}

	if postBoot {
		// the boot ROM hands over in the last VBlank line, where LY already
		// reads 0
		p.lcdc = 0x91
		p.bgp = 0xFC
		p.obp0, p.obp1 = 0xFF, 0xFF
		p.ly = linesPerFrame - 1
		p.dot = 400
		p.mode = VBlank
	}
	p.statLine = p.statCondition()
}

// SetFrameCallback sets the function receiving every completed frame. The
// buffer is owned by the PPU and is overwritten at the next VBlank.
func (p *PPU) SetFrameCallback(callback func(*FrameBuffer)) {
	p.frameCallback = callback
}

// SetDebug enables logging of LCD state changes.
func (p *PPU) SetDebug(enabled bool) {
	p.debug.Set(enabled)
}

// FrameBuffer returns the last completed frame.
func (p *PPU) FrameBuffer() *FrameBuffer {
	return &p.front
}

// FrameCount returns the number of frames completed since reset.
func (p *PPU) FrameCount() uint64 {
	return p.frameCount
}

// Mode returns the current LCD mode.
func (p *PPU) Mode() Mode {
	return p.mode
}

// Line returns the internal line counter, 0-153.
func (p *PPU) Line() int {
	return int(p.ly)
}

// Dot returns the position within the current line.
func (p *PPU) Dot() int {
	return p.dot
}

// DrawLength returns the length of the Drawing mode on the current line.
func (p *PPU) DrawLength() int {
	return p.drawLength
}

// Enabled reports whether the LCD is switched on.
func (p *PPU) Enabled() bool {
	return p.lcdc&lcdcEnable != 0
}

// Tick advances the PPU by the given number of dots. Nothing happens while
// the LCD is off.
func (p *PPU) Tick(dots int) {
	if !p.Enabled() {
		return
	}
	for i := 0; i < dots; i++ {
		p.step()
	}
}

func (p *PPU) step() {
	p.dot++

	switch p.mode {
	case OAMScan:
		if p.dot == oamScanDots {
			p.startDrawing()
		}

	case Drawing:
		if p.dot == oamScanDots+p.drawLength {
			p.renderLine()
			p.setMode(HBlank)
		}

	case HBlank:
		if p.dot == lineDots {
			p.dot = 0
			p.ly++
			if p.ly == vblankLine {
				p.enterVBlank()
			} else {
				p.setMode(OAMScan)
			}
		}

	case VBlank:
		if p.dot == lineDots {
			p.dot = 0
			p.ly++
			if p.ly == linesPerFrame {
				p.ly = 0
				p.windowLine = 0
				p.setMode(OAMScan)
			}
		}
	}

	p.updateStatLine()
}

func (p *PPU) setMode(mode Mode) {
	p.mode = mode
}

func (p *PPU) enterVBlank() {
	p.setMode(VBlank)
	p.irq.Request(interrupt.VBlank)

	p.front = p.back
	p.frameCount++
	if p.frameCallback != nil {
		p.frameCallback(&p.front)
	}
}

// lyValue is LY as the CPU sees it. Line 153 reports 0 after its first few
// dots.
func (p *PPU) lyValue() uint8 {
	if p.ly == linesPerFrame-1 && p.dot >= 4 {
		return 0
	}
	return p.ly
}

func (p *PPU) statCondition() bool {
	if !p.Enabled() {
		return false
	}
	if p.stat&statLYCInt != 0 && p.lyValue() == p.lyc {
		return true
	}
	switch p.mode {
	case HBlank:
		return p.stat&statHBlankInt != 0
	case VBlank:
		return p.stat&statVBlankInt != 0
	case OAMScan:
		return p.stat&statOAMInt != 0
	}
	return false
}

// updateStatLine requests the STAT interrupt on a rising edge of the combined
// interrupt line.
func (p *PPU) updateStatLine() {
	line := p.statCondition()
	if line && !p.statLine {
		p.irq.Request(interrupt.LCDStat)
	}
	p.statLine = line
}

// startDrawing selects the objects of the line and fixes the length of the
// Drawing mode.
func (p *PPU) startDrawing() {
	p.selectSprites()

	p.windowOnLine = p.lcdc&lcdcWindowEnable != 0 && p.lcdc&lcdcBGEnable != 0 &&
		int(p.ly) >= int(p.wy) && p.wx <= 166

	length := baseDrawDots + int(p.scx%8)
	if p.windowOnLine {
		length += windowPenalty
	}
	length += spritePenalty * p.spriteCount
	if length > maxDrawDots {
		length = maxDrawDots
	}
	p.drawLength = length

	p.setMode(Drawing)
}

// selectSprites takes the first ten objects in OAM order that overlap the
// line.
func (p *PPU) selectSprites() {
	p.spriteCount = 0
	if p.lcdc&lcdcObjEnable == 0 {
		return
	}

	height := 8
	if p.lcdc&lcdcObjTall != 0 {
		height = 16
	}

	line := int(p.ly)
	for i := 0; i < 40 && p.spriteCount < spritesPerLine; i++ {
		y := int(p.video.OAM(i*4)) - 16
		if line < y || line >= y+height {
			continue
		}
		p.sprites[p.spriteCount] = sprite{
			y:     y,
			x:     int(p.video.OAM(i*4+1)) - 8,
			tile:  p.video.OAM(i*4 + 2),
			attr:  p.video.OAM(i*4 + 3),
			index: i,
		}
		p.spriteCount++
	}
}

// ReadRegister returns a PPU register value.
func (p *PPU) ReadRegister(address uint16) uint8 {
	switch address {
	case LCDC:
		return p.lcdc
	case STAT:
		v := 0x80 | p.stat&statWritable | uint8(p.mode)
		if p.Enabled() && p.lyValue() == p.lyc {
			v |= statCoincidence
		}
		return v
	case SCY:
		return p.scy
	case SCX:
		return p.scx
	case LY:
		return p.lyValue()
	case LYC:
		return p.lyc
	case BGP:
		return p.bgp
	case OBP0:
		return p.obp0
	case OBP1:
		return p.obp1
	case WY:
		return p.wy
	case WX:
		return p.wx
	}
	return 0xFF
}

// WriteRegister updates a PPU register. LY is read only.
func (p *PPU) WriteRegister(address uint16, value uint8) {
	switch address {
	case LCDC:
		p.writeLCDC(value)
	case STAT:
		p.stat = value & statWritable
	case SCY:
		p.scy = value
	case SCX:
		p.scx = value
	case LYC:
		p.lyc = value
	case BGP:
		p.bgp = value
	case OBP0:
		p.obp0 = value
	case OBP1:
		p.obp1 = value
	case WY:
		p.wy = value
	case WX:
		p.wx = value
	}
	p.updateStatLine()
}

func (p *PPU) writeLCDC(value uint8) {
	wasOn := p.Enabled()
	p.lcdc = value

	switch {
	case wasOn && !p.Enabled():
		p.ly = 0
		p.dot = 0
		p.windowLine = 0
		p.setMode(HBlank)
		logger.Log(&p.debug, "ppu", "lcd off")

	case !wasOn && p.Enabled():
		p.ly = 0
		p.dot = 0
		p.windowLine = 0
		p.setMode(OAMScan)
		logger.Log(&p.debug, "ppu", "lcd on")
	}
}
