package cartridge

// Bank decode for every controller kind. Each kind has one case in each
// switch below; there is no per-kind type.

// lowBank is the ROM bank visible at 0000-3FFF.
func (c *Cartridge) lowBank() int {
	if c.header.Kind == KindMBC1 && c.mode == 1 {
		return int(c.romHigh<<5) % c.banks
	}
	return 0
}

// highBank is the ROM bank visible at 4000-7FFF.
func (c *Cartridge) highBank() int {
	switch c.header.Kind {
	case KindMBC1:
		return int(c.romHigh<<5|c.romLow) % c.banks
	case KindMBC3:
		return int(c.romLow) % c.banks
	}
	return 1 % c.banks
}

// ROMBank returns the effective bank mapped at 4000-7FFF.
func (c *Cartridge) ROMBank() int {
	return c.highBank()
}

func (c *Cartridge) writeControl(address uint16, value uint8) {
	switch c.header.Kind {
	case KindMBC1:
		switch {
		case address < 0x2000:
			c.ramEnabled = value&0x0F == 0x0A
		case address < 0x4000:
			c.romLow = value & 0x1F
			if c.romLow == 0 {
				c.romLow = 1
			}
		case address < 0x6000:
			c.romHigh = value & 0x03
		default:
			c.mode = value & 0x01
		}

	case KindMBC3:
		switch {
		case address < 0x2000:
			c.ramEnabled = value&0x0F == 0x0A
		case address < 0x4000:
			c.romLow = value & 0x7F
			if c.romLow == 0 {
				c.romLow = 1
			}
		case address < 0x6000:
			c.ramSelect = value
		default:
			if c.rtc != nil {
				c.rtc.WriteLatch(value)
			}
		}
	}
}

// ramOffset maps an A000-BFFF address to an index into external RAM, or -1
// if the access is not backed by RAM.
func (c *Cartridge) ramOffset(address uint16) int {
	if !c.ramEnabled && c.header.Kind != KindNone {
		return -1
	}
	if len(c.ram) == 0 {
		return -1
	}

	bank := 0
	switch c.header.Kind {
	case KindMBC1:
		if c.mode == 1 {
			bank = int(c.romHigh)
		}
	case KindMBC3:
		if c.ramSelect > 0x03 {
			return -1
		}
		bank = int(c.ramSelect)
	}

	return (bank*ramBankSize + int(address-externalRAMStart)) % len(c.ram)
}

func (c *Cartridge) readRAM(address uint16) uint8 {
	if c.rtcSelected() {
		return c.rtc.Read(c.ramSelect)
	}
	if i := c.ramOffset(address); i >= 0 {
		return c.ram[i]
	}
	return 0xFF
}

func (c *Cartridge) writeRAM(address uint16, value uint8) {
	if c.rtcSelected() {
		c.rtc.Write(c.ramSelect, value)
		return
	}
	if i := c.ramOffset(address); i >= 0 {
		c.ram[i] = value
	}
}

func (c *Cartridge) rtcSelected() bool {
	return c.header.Kind == KindMBC3 && c.rtc != nil && c.ramEnabled &&
		c.ramSelect >= RTCSeconds && c.ramSelect <= RTCDayHigh
}
