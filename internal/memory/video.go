package memory

// VideoRAM holds the 8 KiB of tile and map data at 8000-9FFF and the 160
// bytes of object attributes at FE00-FE9F. The CPU reaches it through Memory
// and the PPU reads it directly.
type VideoRAM struct {
	vram [0x2000]uint8
	oam  [0xA0]uint8
}

// NewVideoRAM creates zeroed video memory.
func NewVideoRAM() *VideoRAM {
	return &VideoRAM{}
}

// Read returns the VRAM byte at an address in 8000-9FFF.
func (v *VideoRAM) Read(address uint16) uint8 {
	return v.vram[address&0x1FFF]
}

// Write stores a VRAM byte at an address in 8000-9FFF.
func (v *VideoRAM) Write(address uint16, value uint8) {
	v.vram[address&0x1FFF] = value
}

// OAM returns the object attribute byte at index 0-159.
func (v *VideoRAM) OAM(index int) uint8 {
	return v.oam[index]
}

// SetOAM stores an object attribute byte at index 0-159.
func (v *VideoRAM) SetOAM(index int, value uint8) {
	v.oam[index] = value
}

// TileRow returns the two bitplanes of one row of a tile. The address is the
// start of the tile in 8000-97FF.
func (v *VideoRAM) TileRow(tileAddress uint16, row int) (lo, hi uint8) {
	i := (tileAddress & 0x1FFF) + uint16(row)*2
	return v.vram[i], v.vram[i+1]
}
