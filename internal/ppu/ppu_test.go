package ppu

import (
	"testing"

	"dmgo/internal/interrupt"
	"dmgo/internal/memory"
)

const frameDots = linesPerFrame * lineDots

type recorder struct {
	counts map[interrupt.Source]int
}

func (r *recorder) Request(s interrupt.Source) {
	r.counts[s]++
}

// PPUTestHelper bundles a PPU with its video memory and interrupt recorder
type PPUTestHelper struct {
	PPU   *PPU
	Video *memory.VideoRAM
	IRQ   *recorder
}

func NewPPUTestHelper() *PPUTestHelper {
	video := memory.NewVideoRAM()
	irq := &recorder{counts: map[interrupt.Source]int{}}
	p := New(video, irq)
	p.Reset(false)
	p.WriteRegister(BGP, 0xE4)
	p.WriteRegister(OBP0, 0xE4)
	return &PPUTestHelper{PPU: p, Video: video, IRQ: irq}
}

// SetTile fills every row of a tile in the 8000 block with the same
// bitplanes.
func (h *PPUTestHelper) SetTile(tile int, lo, hi uint8) {
	base := uint16(0x8000 + tile*16)
	for row := uint16(0); row < 8; row++ {
		h.Video.Write(base+row*2, lo)
		h.Video.Write(base+row*2+1, hi)
	}
}

func (h *PPUTestHelper) SetSprite(index int, y, x, tile, attr uint8) {
	h.Video.SetOAM(index*4, y)
	h.Video.SetOAM(index*4+1, x)
	h.Video.SetOAM(index*4+2, tile)
	h.Video.SetOAM(index*4+3, attr)
}

func (h *PPUTestHelper) Pixel(x, y int) uint8 {
	return h.PPU.FrameBuffer()[y*ScreenWidth+x]
}

func TestFrameModeSequence(t *testing.T) {
	h := NewPPUTestHelper()
	p := h.PPU
	p.WriteRegister(LCDC, 0x91)

	for i := 0; i < frameDots; i++ {
		line, dot, mode := p.Line(), p.Dot(), p.Mode()

		var want Mode
		switch {
		case line >= vblankLine:
			want = VBlank
		case dot < oamScanDots:
			want = OAMScan
		case dot < oamScanDots+baseDrawDots:
			want = Drawing
		default:
			want = HBlank
		}
		if mode != want {
			t.Fatalf("line %d dot %d: mode %v, want %v", line, dot, mode, want)
		}

		p.Tick(1)
	}

	if p.Line() != 0 || p.Dot() != 0 || p.Mode() != OAMScan {
		t.Errorf("after one frame: line %d dot %d mode %v", p.Line(), p.Dot(), p.Mode())
	}
	if p.FrameCount() != 1 {
		t.Errorf("FrameCount = %d, want 1", p.FrameCount())
	}
	if h.IRQ.counts[interrupt.VBlank] != 1 {
		t.Errorf("VBlank requests = %d, want 1", h.IRQ.counts[interrupt.VBlank])
	}
}

func TestDrawLength(t *testing.T) {
	tests := []struct {
		Name     string
		SCX      uint8
		Window   bool
		Sprites  int
		Expected int
	}{
		{"Plain", 0, false, 0, 172},
		{"FineScroll", 3, false, 0, 175},
		{"Window", 0, true, 0, 178},
		{"TwoSprites", 0, false, 2, 184},
		{"TenSprites", 7, true, 10, 245},
		{"ElevenSpritesCountAsTen", 0, false, 11, 232},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			h := NewPPUTestHelper()
			for i := 0; i < tt.Sprites; i++ {
				h.SetSprite(i, 16, uint8(8+i*8), 0, 0)
			}
			lcdc := uint8(0x93)
			if tt.Window {
				lcdc |= lcdcWindowEnable
				h.PPU.WriteRegister(WX, 7)
			}
			h.PPU.WriteRegister(SCX, tt.SCX)
			h.PPU.WriteRegister(LCDC, lcdc)

			h.PPU.Tick(oamScanDots)
			if h.PPU.Mode() != Drawing {
				t.Fatalf("mode = %v, want Drawing", h.PPU.Mode())
			}
			if got := h.PPU.DrawLength(); got != tt.Expected {
				t.Errorf("DrawLength = %d, want %d", got, tt.Expected)
			}

			h.PPU.Tick(tt.Expected - 1)
			if h.PPU.Mode() != Drawing {
				t.Fatalf("Drawing ended early")
			}
			h.PPU.Tick(1)
			if h.PPU.Mode() != HBlank {
				t.Errorf("mode = %v, want HBlank", h.PPU.Mode())
			}
		})
	}
}

func TestStatInterruptRisingEdge(t *testing.T) {
	tests := []struct {
		Name     string
		STAT     uint8
		LYC      uint8
		Expected int
	}{
		{"LYC", statLYCInt, 2, 1},
		{"HBlank", statHBlankInt, 0, 144},
		// line 0 is already in OAMScan when STAT is written
		{"OAM", statOAMInt, 0, 143},
		{"VBlank", statVBlankInt, 0, 1},
		{"HBlankIntoVBlankStaysHigh", statHBlankInt | statVBlankInt, 0, 144},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			h := NewPPUTestHelper()
			h.PPU.WriteRegister(LYC, tt.LYC)
			h.PPU.WriteRegister(LCDC, 0x91)
			h.PPU.WriteRegister(STAT, tt.STAT)
			before := h.IRQ.counts[interrupt.LCDStat]

			// stop just short of line 0 of the next frame
			h.PPU.Tick(frameDots - 1)

			if got := h.IRQ.counts[interrupt.LCDStat] - before; got != tt.Expected {
				t.Errorf("STAT requests = %d, want %d", got, tt.Expected)
			}
		})
	}
}

func TestBackgroundRendering(t *testing.T) {
	h := NewPPUTestHelper()
	h.SetTile(1, 0xFF, 0x00)
	h.Video.Write(0x9800, 1)
	h.PPU.WriteRegister(LCDC, 0x91)
	h.PPU.Tick(frameDots)

	for x := 0; x < 8; x++ {
		if got := h.Pixel(x, 0); got != 1 {
			t.Fatalf("pixel (%d,0) = %d, want 1", x, got)
		}
	}
	if got := h.Pixel(8, 0); got != 0 {
		t.Errorf("pixel (8,0) = %d, want 0", got)
	}
	if got := h.Pixel(0, 8); got != 0 {
		t.Errorf("pixel (0,8) = %d, want 0", got)
	}
}

func TestScroll(t *testing.T) {
	h := NewPPUTestHelper()
	h.SetTile(1, 0xFF, 0xFF)
	h.Video.Write(0x9800, 1)
	h.PPU.WriteRegister(SCX, 4)
	h.PPU.WriteRegister(SCY, 4)
	h.PPU.WriteRegister(LCDC, 0x91)
	h.PPU.Tick(frameDots)

	if got := h.Pixel(3, 3); got != 3 {
		t.Errorf("pixel (3,3) = %d, want 3", got)
	}
	if got := h.Pixel(4, 3); got != 0 {
		t.Errorf("pixel (4,3) = %d, want 0", got)
	}
}

func TestSpriteRendering(t *testing.T) {
	tests := []struct {
		Name     string
		Attr     uint8
		Expected [12]uint8 // pixels 0-11 of line 0
	}{
		{"AboveBG", 0, [12]uint8{1, 1, 1, 1, 2, 2, 2, 2, 2, 2, 2, 2}},
		{"BehindBG", attrBehindBG, [12]uint8{1, 1, 1, 1, 1, 1, 1, 1, 2, 2, 2, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			h := NewPPUTestHelper()
			h.SetTile(1, 0xFF, 0x00)
			h.SetTile(2, 0x00, 0xFF)
			h.Video.Write(0x9800, 1)
			h.SetSprite(0, 16, 12, 2, tt.Attr)
			h.PPU.WriteRegister(LCDC, 0x93)
			h.PPU.Tick(frameDots)

			for x, want := range tt.Expected {
				if got := h.Pixel(x, 0); got != want {
					t.Errorf("pixel (%d,0) = %d, want %d", x, got, want)
				}
			}
		})
	}
}

func TestSpritePriority(t *testing.T) {
	h := NewPPUTestHelper()
	h.SetTile(3, 0xFF, 0xFF)
	h.PPU.WriteRegister(OBP1, 0x54)

	// OAM 0 at screen x 10, OAM 1 at screen x 6 with the other palette
	h.SetSprite(0, 16, 18, 3, 0)
	h.SetSprite(1, 16, 14, 3, attrPalette)
	// equal X: OAM 2 beats OAM 3
	h.SetSprite(2, 24, 40, 3, attrPalette)
	h.SetSprite(3, 24, 40, 3, 0)

	h.PPU.WriteRegister(LCDC, 0x93)
	h.PPU.Tick(frameDots)

	for x := 6; x < 14; x++ {
		if got := h.Pixel(x, 0); got != 1 {
			t.Errorf("pixel (%d,0) = %d, want 1 (lower X wins)", x, got)
		}
	}
	for x := 14; x < 18; x++ {
		if got := h.Pixel(x, 0); got != 3 {
			t.Errorf("pixel (%d,0) = %d, want 3", x, got)
		}
	}
	if got := h.Pixel(32, 8); got != 1 {
		t.Errorf("pixel (32,8) = %d, want 1 (lower OAM index wins)", got)
	}
}

func TestSpriteLineLimit(t *testing.T) {
	h := NewPPUTestHelper()
	h.SetTile(3, 0xFF, 0xFF)
	for i := 0; i < 11; i++ {
		h.SetSprite(i, 16, uint8(8+i*8), 3, 0)
	}
	h.PPU.WriteRegister(LCDC, 0x93)
	h.PPU.Tick(frameDots)

	if got := h.Pixel(72, 0); got != 3 {
		t.Errorf("10th sprite pixel = %d, want 3", got)
	}
	if got := h.Pixel(80, 0); got != 0 {
		t.Errorf("11th sprite drawn: pixel = %d", got)
	}
}

func TestWindow(t *testing.T) {
	h := NewPPUTestHelper()
	h.SetTile(1, 0xFF, 0xFF)
	h.Video.Write(0x9C00, 1)
	h.PPU.WriteRegister(WY, 10)
	h.PPU.WriteRegister(WX, 7+20)
	h.PPU.WriteRegister(LCDC, 0x91|lcdcWindowEnable|lcdcWindowMap)
	h.PPU.Tick(frameDots)

	if got := h.Pixel(20, 9); got != 0 {
		t.Errorf("pixel above window = %d, want 0", got)
	}
	if got := h.Pixel(19, 10); got != 0 {
		t.Errorf("pixel left of window = %d, want 0", got)
	}
	// window tile 0 row 0 covers screen y 10-17 and x 20-27
	if got := h.Pixel(20, 10); got != 3 {
		t.Errorf("window pixel = %d, want 3", got)
	}
	if got := h.Pixel(27, 17); got != 3 {
		t.Errorf("window pixel = %d, want 3", got)
	}
	if got := h.Pixel(20, 18); got != 0 {
		t.Errorf("window second tile row = %d, want 0", got)
	}
}

func TestLCDOff(t *testing.T) {
	h := NewPPUTestHelper()
	h.PPU.WriteRegister(LCDC, 0x91)
	h.PPU.Tick(lineDots*3 + 100)

	h.PPU.WriteRegister(LCDC, 0x11)
	if h.PPU.Line() != 0 || h.PPU.Mode() != HBlank {
		t.Fatalf("LCD off: line %d mode %v", h.PPU.Line(), h.PPU.Mode())
	}

	h.PPU.Tick(frameDots)
	if h.PPU.Line() != 0 || h.PPU.FrameCount() != 0 {
		t.Errorf("PPU advanced while off")
	}

	h.PPU.WriteRegister(LY, 0x42)
	if got := h.PPU.ReadRegister(LY); got != 0 {
		t.Errorf("LY = %d, want 0", got)
	}
}

func TestPostBootState(t *testing.T) {
	h := NewPPUTestHelper()
	h.PPU.Reset(true)

	tests := []struct {
		Address  uint16
		Expected uint8
	}{
		{LCDC, 0x91},
		{STAT, 0x85},
		{LY, 0x00},
		{BGP, 0xFC},
	}
	for _, tt := range tests {
		if got := h.PPU.ReadRegister(tt.Address); got != tt.Expected {
			t.Errorf("register %04X = %02X, want %02X", tt.Address, got, tt.Expected)
		}
	}
}

func TestFrameCallback(t *testing.T) {
	h := NewPPUTestHelper()
	frames := 0
	var last *FrameBuffer
	h.PPU.SetFrameCallback(func(fb *FrameBuffer) {
		frames++
		last = fb
	})
	h.PPU.WriteRegister(LCDC, 0x91)
	h.PPU.Tick(frameDots * 3)

	if frames != 3 {
		t.Errorf("callback called %d times, want 3", frames)
	}
	if last != h.PPU.FrameBuffer() {
		t.Errorf("callback buffer is not the front buffer")
	}
}
