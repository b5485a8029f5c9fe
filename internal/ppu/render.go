package ppu

import "sort"

// renderLine draws the current line into the back buffer.
func (p *PPU) renderLine() {
	row := p.back[int(p.ly)*ScreenWidth : (int(p.ly)+1)*ScreenWidth]

	p.renderBackground(row)
	if p.lcdc&lcdcObjEnable != 0 {
		p.renderSprites(row)
	}

	if p.windowOnLine {
		p.windowLine++
	}
}

func (p *PPU) renderBackground(row []uint8) {
	if p.lcdc&lcdcBGEnable == 0 {
		for x := range row {
			p.lineIndex[x] = 0
			row[x] = 0
		}
		return
	}

	windowX := int(p.wx) - 7
	for x := 0; x < ScreenWidth; x++ {
		var mapBase uint16 = 0x9800
		var px, py int

		if p.windowOnLine && x >= windowX {
			if p.lcdc&lcdcWindowMap != 0 {
				mapBase = 0x9C00
			}
			px = x - windowX
			py = p.windowLine
		} else {
			if p.lcdc&lcdcBGMap != 0 {
				mapBase = 0x9C00
			}
			px = (x + int(p.scx)) & 0xFF
			py = (int(p.ly) + int(p.scy)) & 0xFF
		}

		tile := p.video.Read(mapBase + uint16(py/8)*32 + uint16(px/8))
		index := p.tilePixel(p.bgTileAddress(tile), py%8, px%8, false)

		p.lineIndex[x] = index
		row[x] = shade(p.bgp, index)
	}
}

// bgTileAddress resolves a background or window tile number through the
// LCDC addressing mode.
func (p *PPU) bgTileAddress(tile uint8) uint16 {
	if p.lcdc&lcdcTileData != 0 {
		return 0x8000 + uint16(tile)*16
	}
	return uint16(0x9000 + int(int8(tile))*16)
}

func (p *PPU) tilePixel(address uint16, row, col int, flipX bool) uint8 {
	lo, hi := p.video.TileRow(address, row)
	bit := uint(7 - col)
	if flipX {
		bit = uint(col)
	}
	return (lo>>bit)&1 | ((hi>>bit)&1)<<1
}

func (p *PPU) renderSprites(row []uint8) {
	if p.spriteCount == 0 {
		return
	}

	// lower X wins, ties go to the lower OAM index
	order := make([]sprite, p.spriteCount)
	copy(order, p.sprites[:p.spriteCount])
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].x != order[j].x {
			return order[i].x < order[j].x
		}
		return order[i].index < order[j].index
	})

	height := 8
	tileMask := uint8(0xFF)
	if p.lcdc&lcdcObjTall != 0 {
		height = 16
		tileMask = 0xFE
	}

	var claimed [ScreenWidth]bool
	for _, s := range order {
		line := int(p.ly) - s.y
		if s.attr&attrFlipY != 0 {
			line = height - 1 - line
		}
		address := 0x8000 + uint16(s.tile&tileMask)*16

		palette := p.obp0
		if s.attr&attrPalette != 0 {
			palette = p.obp1
		}

		for col := 0; col < 8; col++ {
			x := s.x + col
			if x < 0 || x >= ScreenWidth || claimed[x] {
				continue
			}
			index := p.tilePixel(address, line, col, s.attr&attrFlipX != 0)
			if index == 0 {
				continue
			}
			claimed[x] = true
			if s.attr&attrBehindBG != 0 && p.lineIndex[x] != 0 {
				continue
			}
			row[x] = shade(palette, index)
		}
	}
}

func shade(palette, index uint8) uint8 {
	return (palette >> (index * 2)) & 0x03
}
