package cpu

func (cpu *CPU) setFlags(z, n, h, c bool) {
	var f uint8
	if z {
		f |= FlagZ
	}
	if n {
		f |= FlagN
	}
	if h {
		f |= FlagH
	}
	if c {
		f |= FlagC
	}
	cpu.F = f
}

func (cpu *CPU) carry() uint8 {
	if cpu.F&FlagC != 0 {
		return 1
	}
	return 0
}

// alu applies operation k (ADD ADC SUB SBC AND XOR OR CP) to A.
func (cpu *CPU) alu(k int, v uint8) {
	switch k {
	case 0:
		cpu.add(v, 0)
	case 1:
		cpu.add(v, cpu.carry())
	case 2:
		cpu.A = cpu.sub(v, 0)
	case 3:
		cpu.A = cpu.sub(v, cpu.carry())
	case 4:
		cpu.A &= v
		cpu.setFlags(cpu.A == 0, false, true, false)
	case 5:
		cpu.A ^= v
		cpu.setFlags(cpu.A == 0, false, false, false)
	case 6:
		cpu.A |= v
		cpu.setFlags(cpu.A == 0, false, false, false)
	case 7:
		cpu.sub(v, 0)
	}
}

func (cpu *CPU) add(v, c uint8) {
	a := cpu.A
	sum := uint16(a) + uint16(v) + uint16(c)
	cpu.setFlags(uint8(sum) == 0, false, a&0x0F+v&0x0F+c > 0x0F, sum > 0xFF)
	cpu.A = uint8(sum)
}

// sub computes A - v - c and sets the flags. The result is not stored.
func (cpu *CPU) sub(v, c uint8) uint8 {
	a := cpu.A
	diff := int(a) - int(v) - int(c)
	half := int(a&0x0F) - int(v&0x0F) - int(c)
	cpu.setFlags(uint8(diff) == 0, true, half < 0, diff < 0)
	return uint8(diff)
}

func (cpu *CPU) inc(v uint8) uint8 {
	r := v + 1
	cpu.setFlags(r == 0, false, v&0x0F == 0x0F, cpu.F&FlagC != 0)
	return r
}

func (cpu *CPU) dec(v uint8) uint8 {
	r := v - 1
	cpu.setFlags(r == 0, true, v&0x0F == 0, cpu.F&FlagC != 0)
	return r
}

func (cpu *CPU) addHL(v uint16) {
	hl := cpu.HL()
	sum := uint32(hl) + uint32(v)
	cpu.setFlags(cpu.F&FlagZ != 0, false, hl&0x0FFF+v&0x0FFF > 0x0FFF, sum > 0xFFFF)
	cpu.SetHL(uint16(sum))
}

// addSP returns SP plus a signed offset. Flags come from the unsigned low
// byte addition.
func (cpu *CPU) addSP(offset uint8) uint16 {
	sp := cpu.SP
	v := uint16(offset)
	cpu.setFlags(false, false, sp&0x0F+v&0x0F > 0x0F, sp&0xFF+v&0xFF > 0xFF)
	return uint16(int32(sp) + int32(int8(offset)))
}

func (cpu *CPU) daa() {
	a := cpu.A
	carry := cpu.F&FlagC != 0
	if cpu.F&FlagN != 0 {
		if cpu.F&FlagH != 0 {
			a -= 0x06
		}
		if carry {
			a -= 0x60
		}
	} else {
		if carry || a > 0x99 {
			a += 0x60
			carry = true
		}
		if cpu.F&FlagH != 0 || a&0x0F > 0x09 {
			a += 0x06
		}
	}
	cpu.setFlags(a == 0, cpu.F&FlagN != 0, false, carry)
	cpu.A = a
}

// rotateA implements RLCA, RRCA, RLA and RRA, which always clear Z.
func (cpu *CPU) rotateA(k int) {
	cpu.A = cpu.shift(k, cpu.A)
	cpu.SetF(cpu.F &^ FlagZ)
}

// shift applies CB operation k (RLC RRC RL RR SLA SRA SWAP SRL).
func (cpu *CPU) shift(k int, v uint8) uint8 {
	var r uint8
	var c bool
	switch k {
	case 0:
		r = v<<1 | v>>7
		c = v&0x80 != 0
	case 1:
		r = v>>1 | v<<7
		c = v&0x01 != 0
	case 2:
		r = v<<1 | cpu.carry()
		c = v&0x80 != 0
	case 3:
		r = v>>1 | cpu.carry()<<7
		c = v&0x01 != 0
	case 4:
		r = v << 1
		c = v&0x80 != 0
	case 5:
		r = v>>1 | v&0x80
		c = v&0x01 != 0
	case 6:
		r = v<<4 | v>>4
	case 7:
		r = v >> 1
		c = v&0x01 != 0
	}
	cpu.setFlags(r == 0, false, false, c)
	return r
}

func (cpu *CPU) bit(v, mask uint8) {
	cpu.setFlags(v&mask == 0, false, true, cpu.F&FlagC != 0)
}
