package apu

// output shift for the NR32 volume codes: mute, 100%, 50%, 25%
var waveShift = [4]uint8{4, 0, 1, 2}

// WaveChannel is channel 3, playing 32 4-bit samples from wave RAM.
type WaveChannel struct {
	enabled    bool
	dacEnabled bool
	volumeCode uint8
	frequency  uint16
	timer      int
	position   int

	length  lengthCounter
	waveRAM [16]uint8
}

func (c *WaveChannel) period() int {
	return (2048 - int(c.frequency)) * 2
}

func (c *WaveChannel) tick(cycles int) {
	c.timer -= cycles
	for c.timer <= 0 {
		c.timer += c.period()
		c.position = (c.position + 1) & 31
	}
}

func (c *WaveChannel) sample() uint8 {
	if !c.enabled {
		return 0
	}
	b := c.waveRAM[c.position/2]
	if c.position%2 == 0 {
		b >>= 4
	}
	return (b & 0x0F) >> waveShift[c.volumeCode]
}

func (c *WaveChannel) writeDAC(value uint8) {
	c.dacEnabled = value&0x80 != 0
	if !c.dacEnabled {
		c.enabled = false
	}
}

func (c *WaveChannel) writeLength(value uint8) {
	c.length.max = 256
	c.length.load(int(value))
}

func (c *WaveChannel) writeVolume(value uint8) {
	c.volumeCode = (value >> 5) & 0x03
}

func (c *WaveChannel) writeFrequencyLow(value uint8) {
	c.frequency = c.frequency&0x700 | uint16(value)
}

func (c *WaveChannel) writeControl(value uint8) {
	c.frequency = c.frequency&0xFF | uint16(value&0x07)<<8
	c.length.enabled = value&0x40 != 0
	if value&0x80 != 0 {
		c.enabled = c.dacEnabled
		c.length.max = 256
		c.length.trigger()
		c.timer = c.period()
		c.position = 0
	}
}
