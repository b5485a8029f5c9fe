package apu

var noiseDivisors = [8]int{8, 16, 32, 48, 64, 80, 96, 112}

// NoiseChannel is channel 4, a linear feedback shift register clocked at a
// programmable rate.
type NoiseChannel struct {
	enabled bool
	shift   uint8
	narrow  bool
	divisor uint8
	timer   int
	lfsr    uint16

	length   lengthCounter
	envelope envelope
}

func (c *NoiseChannel) dacEnabled() bool {
	return c.envelope.dac
}

func (c *NoiseChannel) period() int {
	return noiseDivisors[c.divisor] << c.shift
}

func (c *NoiseChannel) tick(cycles int) {
	c.timer -= cycles
	for c.timer <= 0 {
		c.timer += c.period()

		bit := (c.lfsr ^ c.lfsr>>1) & 1
		c.lfsr = c.lfsr>>1 | bit<<14
		if c.narrow {
			c.lfsr = c.lfsr&^(1<<6) | bit<<6
		}
	}
}

func (c *NoiseChannel) sample() uint8 {
	if !c.enabled || c.lfsr&1 != 0 {
		return 0
	}
	return c.envelope.volume
}

func (c *NoiseChannel) writeLength(value uint8) {
	c.length.max = 64
	c.length.load(int(value & 0x3F))
}

func (c *NoiseChannel) writeEnvelope(value uint8) {
	c.envelope.write(value)
	if !c.envelope.dac {
		c.enabled = false
	}
}

func (c *NoiseChannel) writePolynomial(value uint8) {
	c.shift = value >> 4
	c.narrow = value&0x08 != 0
	c.divisor = value & 0x07
}

func (c *NoiseChannel) writeControl(value uint8) {
	c.length.enabled = value&0x40 != 0
	if value&0x80 != 0 {
		c.enabled = c.envelope.dac
		c.length.max = 64
		c.length.trigger()
		c.timer = c.period()
		c.envelope.trigger()
		c.lfsr = 0x7FFF
	}
}
