package apu

var dutyTable = [4][8]uint8{
	{0, 0, 0, 0, 0, 0, 0, 1}, // 12.5%
	{1, 0, 0, 0, 0, 0, 0, 1}, // 25%
	{1, 0, 0, 0, 0, 1, 1, 1}, // 50%
	{0, 1, 1, 1, 1, 1, 1, 0}, // 75%
}

// SquareChannel is channel 1 (with frequency sweep) or channel 2.
type SquareChannel struct {
	enabled   bool
	duty      uint8
	dutyPos   uint8
	frequency uint16
	timer     int

	length   lengthCounter
	envelope envelope

	hasSweep     bool
	sweepPeriod  uint8
	sweepNegate  bool
	sweepShift   uint8
	sweepTimer   uint8
	sweepEnabled bool
	shadow       uint16
}

func (c *SquareChannel) dacEnabled() bool {
	return c.envelope.dac
}

func (c *SquareChannel) period() int {
	return (2048 - int(c.frequency)) * 4
}

func (c *SquareChannel) tick(cycles int) {
	c.timer -= cycles
	for c.timer <= 0 {
		c.timer += c.period()
		c.dutyPos = (c.dutyPos + 1) & 7
	}
}

// sample returns the 4-bit output level.
func (c *SquareChannel) sample() uint8 {
	if !c.enabled {
		return 0
	}
	return dutyTable[c.duty][c.dutyPos] * c.envelope.volume
}

func (c *SquareChannel) writeSweep(value uint8) {
	c.sweepPeriod = (value >> 4) & 0x07
	c.sweepNegate = value&0x08 != 0
	c.sweepShift = value & 0x07
}

func (c *SquareChannel) writeDutyLength(value uint8) {
	c.duty = value >> 6
	c.length.max = 64
	c.length.load(int(value & 0x3F))
}

func (c *SquareChannel) writeEnvelope(value uint8) {
	c.envelope.write(value)
	if !c.envelope.dac {
		c.enabled = false
	}
}

func (c *SquareChannel) writeFrequencyLow(value uint8) {
	c.frequency = c.frequency&0x700 | uint16(value)
}

func (c *SquareChannel) writeControl(value uint8) {
	c.frequency = c.frequency&0xFF | uint16(value&0x07)<<8
	c.length.enabled = value&0x40 != 0
	if value&0x80 != 0 {
		c.trigger()
	}
}

func (c *SquareChannel) trigger() {
	c.enabled = c.envelope.dac
	c.length.max = 64
	c.length.trigger()
	c.timer = c.period()
	c.envelope.trigger()

	if c.hasSweep {
		c.shadow = c.frequency
		c.sweepTimer = c.sweepPeriod
		if c.sweepTimer == 0 {
			c.sweepTimer = 8
		}
		c.sweepEnabled = c.sweepPeriod != 0 || c.sweepShift != 0
		if c.sweepShift != 0 {
			c.sweepFrequency()
		}
	}
}

// sweepFrequency computes the next swept frequency and disables the channel
// when it overflows.
func (c *SquareChannel) sweepFrequency() uint16 {
	delta := c.shadow >> c.sweepShift
	next := c.shadow + delta
	if c.sweepNegate {
		next = c.shadow - delta
	}
	if next > 2047 {
		c.enabled = false
	}
	return next
}

func (c *SquareChannel) clockSweep() {
	if !c.hasSweep {
		return
	}
	if c.sweepTimer > 0 {
		c.sweepTimer--
	}
	if c.sweepTimer != 0 {
		return
	}
	c.sweepTimer = c.sweepPeriod
	if c.sweepTimer == 0 {
		c.sweepTimer = 8
	}

	if !c.sweepEnabled || c.sweepPeriod == 0 {
		return
	}
	next := c.sweepFrequency()
	if next <= 2047 && c.sweepShift != 0 {
		c.shadow = next
		c.frequency = next
		c.sweepFrequency()
	}
}
