package cpu

import "fmt"

// Operand describes the immediate bytes following an opcode.
type Operand int

const (
	None Operand = iota
	D8           // immediate byte
	D16          // immediate word
	R8           // signed displacement
	A8           // offset into FF00-FFFF
	A16          // absolute address
)

// Instruction describes one opcode. Cycles is the M-cycle cost when a
// conditional is not taken; Taken is added when Execute reports true.
type Instruction struct {
	Name    string
	Mode    Operand
	Bytes   uint8
	Cycles  int
	Taken   int
	Execute func(cpu *CPU) bool
}

var (
	instructions   [256]Instruction
	cbInstructions [256]Instruction
)

var (
	regNames   = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	pairNames  = [4]string{"BC", "DE", "HL", "SP"}
	stackNames = [4]string{"BC", "DE", "HL", "AF"}
	condNames  = [4]string{"NZ", "Z", "NC", "C"}
	aluNames   = [8]string{"ADD A,", "ADC A,", "SUB ", "SBC A,", "AND ", "XOR ", "OR ", "CP "}
	shiftNames = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SWAP", "SRL"}
	indirect   = [4]string{"(BC)", "(DE)", "(HL+)", "(HL-)"}
)

func operandBytes(mode Operand) uint8 {
	switch mode {
	case D8, R8, A8:
		return 2
	case D16, A16:
		return 3
	}
	return 1
}

// plain wraps an unconditional effect.
func plain(f func(cpu *CPU)) func(cpu *CPU) bool {
	return func(cpu *CPU) bool {
		f(cpu)
		return false
	}
}

func define(op uint8, name string, mode Operand, cycles, taken int, exec func(cpu *CPU) bool) {
	instructions[op] = Instruction{
		Name:    name,
		Mode:    mode,
		Bytes:   operandBytes(mode),
		Cycles:  cycles,
		Taken:   taken,
		Execute: exec,
	}
}

// memory operand costs one extra M-cycle per access
func regCost(r, base, memory int) int {
	if r == 6 {
		return memory
	}
	return base
}

func init() {
	for i := range instructions {
		define(uint8(i), fmt.Sprintf("ILLEGAL %02X", i), None, 1, 0, plain((*CPU).lock))
	}

	define(0x00, "NOP", None, 1, 0, plain(func(cpu *CPU) {}))
	define(0x10, "STOP", D8, 1, 0, plain((*CPU).stop))
	define(0x76, "HALT", None, 1, 0, plain((*CPU).halt))
	define(0xF3, "DI", None, 1, 0, plain(func(cpu *CPU) {
		cpu.ime = false
		cpu.eiDelay = false
	}))
	define(0xFB, "EI", None, 1, 0, plain(func(cpu *CPU) {
		cpu.eiDelay = true
	}))

	// 16-bit loads and arithmetic
	for p := 0; p < 4; p++ {
		base := uint8(p << 4)
		define(base|0x01, "LD "+pairNames[p]+",d16", D16, 3, 0, plain(func(cpu *CPU) {
			cpu.setPair(p, cpu.operand)
		}))
		define(base|0x03, "INC "+pairNames[p], None, 2, 0, plain(func(cpu *CPU) {
			cpu.setPair(p, cpu.pair(p)+1)
		}))
		define(base|0x0B, "DEC "+pairNames[p], None, 2, 0, plain(func(cpu *CPU) {
			cpu.setPair(p, cpu.pair(p)-1)
		}))
		define(base|0x09, "ADD HL,"+pairNames[p], None, 2, 0, plain(func(cpu *CPU) {
			cpu.addHL(cpu.pair(p))
		}))
		define(base|0x02, "LD "+indirect[p]+",A", None, 2, 0, plain(func(cpu *CPU) {
			cpu.memory.Write(cpu.indirectAddress(p), cpu.A)
		}))
		define(base|0x0A, "LD A,"+indirect[p], None, 2, 0, plain(func(cpu *CPU) {
			cpu.A = cpu.memory.Read(cpu.indirectAddress(p))
		}))
		define(0xC1|base, "POP "+stackNames[p], None, 3, 0, plain(func(cpu *CPU) {
			cpu.setStackPair(p, cpu.pop())
		}))
		define(0xC5|base, "PUSH "+stackNames[p], None, 4, 0, plain(func(cpu *CPU) {
			cpu.push(cpu.stackPair(p))
		}))
	}

	// 8-bit increment, decrement and immediate loads
	for r := 0; r < 8; r++ {
		reg := uint8(r << 3)
		define(reg|0x04, "INC "+regNames[r], None, regCost(r, 1, 3), 0, plain(func(cpu *CPU) {
			cpu.setReg(r, cpu.inc(cpu.reg(r)))
		}))
		define(reg|0x05, "DEC "+regNames[r], None, regCost(r, 1, 3), 0, plain(func(cpu *CPU) {
			cpu.setReg(r, cpu.dec(cpu.reg(r)))
		}))
		define(reg|0x06, "LD "+regNames[r]+",d8", D8, regCost(r, 2, 3), 0, plain(func(cpu *CPU) {
			cpu.setReg(r, uint8(cpu.operand))
		}))
	}

	define(0x07, "RLCA", None, 1, 0, plain(func(cpu *CPU) { cpu.rotateA(0) }))
	define(0x0F, "RRCA", None, 1, 0, plain(func(cpu *CPU) { cpu.rotateA(1) }))
	define(0x17, "RLA", None, 1, 0, plain(func(cpu *CPU) { cpu.rotateA(2) }))
	define(0x1F, "RRA", None, 1, 0, plain(func(cpu *CPU) { cpu.rotateA(3) }))
	define(0x27, "DAA", None, 1, 0, plain((*CPU).daa))
	define(0x2F, "CPL", None, 1, 0, plain(func(cpu *CPU) {
		cpu.A = ^cpu.A
		cpu.SetF(cpu.F | FlagN | FlagH)
	}))
	define(0x37, "SCF", None, 1, 0, plain(func(cpu *CPU) {
		cpu.SetF(cpu.F&FlagZ | FlagC)
	}))
	define(0x3F, "CCF", None, 1, 0, plain(func(cpu *CPU) {
		cpu.SetF(cpu.F&FlagZ | (cpu.F^FlagC)&FlagC)
	}))

	define(0x08, "LD (a16),SP", A16, 5, 0, plain(func(cpu *CPU) {
		cpu.memory.Write(cpu.operand, uint8(cpu.SP))
		cpu.memory.Write(cpu.operand+1, uint8(cpu.SP>>8))
	}))

	// jumps, calls and returns
	define(0x18, "JR r8", R8, 3, 0, plain((*CPU).jr))
	define(0xC3, "JP a16", A16, 4, 0, plain(func(cpu *CPU) { cpu.PC = cpu.operand }))
	define(0xE9, "JP HL", None, 1, 0, plain(func(cpu *CPU) { cpu.PC = cpu.HL() }))
	define(0xCD, "CALL a16", A16, 6, 0, plain((*CPU).call))
	define(0xC9, "RET", None, 4, 0, plain(func(cpu *CPU) { cpu.PC = cpu.pop() }))
	define(0xD9, "RETI", None, 4, 0, plain(func(cpu *CPU) {
		cpu.PC = cpu.pop()
		cpu.ime = true
	}))

	for cc := 0; cc < 4; cc++ {
		cond := uint8(cc << 3)
		define(0x20|cond, "JR "+condNames[cc]+",r8", R8, 2, 1, func(cpu *CPU) bool {
			if !cpu.condition(cc) {
				return false
			}
			cpu.jr()
			return true
		})
		define(0xC2|cond, "JP "+condNames[cc]+",a16", A16, 3, 1, func(cpu *CPU) bool {
			if !cpu.condition(cc) {
				return false
			}
			cpu.PC = cpu.operand
			return true
		})
		define(0xC4|cond, "CALL "+condNames[cc]+",a16", A16, 3, 3, func(cpu *CPU) bool {
			if !cpu.condition(cc) {
				return false
			}
			cpu.call()
			return true
		})
		define(0xC0|cond, "RET "+condNames[cc], None, 2, 3, func(cpu *CPU) bool {
			if !cpu.condition(cc) {
				return false
			}
			cpu.PC = cpu.pop()
			return true
		})
	}

	// register to register loads, 0x76 is HALT
	for dst := 0; dst < 8; dst++ {
		for src := 0; src < 8; src++ {
			op := uint8(0x40 | dst<<3 | src)
			if op == 0x76 {
				continue
			}
			cycles := 1
			if dst == 6 || src == 6 {
				cycles = 2
			}
			define(op, "LD "+regNames[dst]+","+regNames[src], None, cycles, 0, plain(func(cpu *CPU) {
				cpu.setReg(dst, cpu.reg(src))
			}))
		}
	}

	// accumulator arithmetic and restarts
	for k := 0; k < 8; k++ {
		for r := 0; r < 8; r++ {
			define(uint8(0x80|k<<3|r), aluNames[k]+regNames[r], None, regCost(r, 1, 2), 0, plain(func(cpu *CPU) {
				cpu.alu(k, cpu.reg(r))
			}))
		}
		define(uint8(0xC6|k<<3), aluNames[k]+"d8", D8, 2, 0, plain(func(cpu *CPU) {
			cpu.alu(k, uint8(cpu.operand))
		}))
		vector := uint16(k * 8)
		define(uint8(0xC7|k<<3), fmt.Sprintf("RST %02XH", vector), None, 4, 0, plain(func(cpu *CPU) {
			cpu.push(cpu.PC)
			cpu.PC = vector
		}))
	}

	// high page and stack pointer loads
	define(0xE0, "LDH (a8),A", A8, 3, 0, plain(func(cpu *CPU) {
		cpu.memory.Write(0xFF00|cpu.operand, cpu.A)
	}))
	define(0xF0, "LDH A,(a8)", A8, 3, 0, plain(func(cpu *CPU) {
		cpu.A = cpu.memory.Read(0xFF00 | cpu.operand)
	}))
	define(0xE2, "LD (C),A", None, 2, 0, plain(func(cpu *CPU) {
		cpu.memory.Write(0xFF00|uint16(cpu.C), cpu.A)
	}))
	define(0xF2, "LD A,(C)", None, 2, 0, plain(func(cpu *CPU) {
		cpu.A = cpu.memory.Read(0xFF00 | uint16(cpu.C))
	}))
	define(0xEA, "LD (a16),A", A16, 4, 0, plain(func(cpu *CPU) {
		cpu.memory.Write(cpu.operand, cpu.A)
	}))
	define(0xFA, "LD A,(a16)", A16, 4, 0, plain(func(cpu *CPU) {
		cpu.A = cpu.memory.Read(cpu.operand)
	}))
	define(0xE8, "ADD SP,r8", R8, 4, 0, plain(func(cpu *CPU) {
		cpu.SP = cpu.addSP(uint8(cpu.operand))
	}))
	define(0xF8, "LD HL,SP+r8", R8, 3, 0, plain(func(cpu *CPU) {
		cpu.SetHL(cpu.addSP(uint8(cpu.operand)))
	}))
	define(0xF9, "LD SP,HL", None, 2, 0, plain(func(cpu *CPU) {
		cpu.SP = cpu.HL()
	}))

	// the prefix byte is consumed by Step
	define(0xCB, "PREFIX CB", None, 1, 0, plain(func(cpu *CPU) {}))

	initCB()
}

func initCB() {
	cb := func(op uint8, name string, cycles int, f func(cpu *CPU)) {
		cbInstructions[op] = Instruction{Name: name, Mode: None, Bytes: 2, Cycles: cycles, Execute: plain(f)}
	}

	for r := 0; r < 8; r++ {
		for k := 0; k < 8; k++ {
			cb(uint8(k<<3|r), shiftNames[k]+" "+regNames[r], regCost(r, 2, 4), func(cpu *CPU) {
				cpu.setReg(r, cpu.shift(k, cpu.reg(r)))
			})
		}
		for b := 0; b < 8; b++ {
			mask := uint8(1) << b
			suffix := fmt.Sprintf("%d,%s", b, regNames[r])
			cb(uint8(0x40|b<<3|r), "BIT "+suffix, regCost(r, 2, 3), func(cpu *CPU) {
				cpu.bit(cpu.reg(r), mask)
			})
			cb(uint8(0x80|b<<3|r), "RES "+suffix, regCost(r, 2, 4), func(cpu *CPU) {
				cpu.setReg(r, cpu.reg(r)&^mask)
			})
			cb(uint8(0xC0|b<<3|r), "SET "+suffix, regCost(r, 2, 4), func(cpu *CPU) {
				cpu.setReg(r, cpu.reg(r)|mask)
			})
		}
	}
}

// reg reads an operand by its three-bit encoding; 6 is the byte at HL.
func (cpu *CPU) reg(i int) uint8 {
	switch i {
	case 0:
		return cpu.B
	case 1:
		return cpu.C
	case 2:
		return cpu.D
	case 3:
		return cpu.E
	case 4:
		return cpu.H
	case 5:
		return cpu.L
	case 6:
		return cpu.memory.Read(cpu.HL())
	}
	return cpu.A
}

func (cpu *CPU) setReg(i int, v uint8) {
	switch i {
	case 0:
		cpu.B = v
	case 1:
		cpu.C = v
	case 2:
		cpu.D = v
	case 3:
		cpu.E = v
	case 4:
		cpu.H = v
	case 5:
		cpu.L = v
	case 6:
		cpu.memory.Write(cpu.HL(), v)
	default:
		cpu.A = v
	}
}

func (cpu *CPU) pair(i int) uint16 {
	switch i {
	case 0:
		return cpu.BC()
	case 1:
		return cpu.DE()
	case 2:
		return cpu.HL()
	}
	return cpu.SP
}

func (cpu *CPU) setPair(i int, v uint16) {
	switch i {
	case 0:
		cpu.SetBC(v)
	case 1:
		cpu.SetDE(v)
	case 2:
		cpu.SetHL(v)
	default:
		cpu.SP = v
	}
}

// stackPair and setStackPair use AF in place of SP.
func (cpu *CPU) stackPair(i int) uint16 {
	if i == 3 {
		return cpu.AF()
	}
	return cpu.pair(i)
}

func (cpu *CPU) setStackPair(i int, v uint16) {
	if i == 3 {
		cpu.SetAF(v)
		return
	}
	cpu.setPair(i, v)
}

// indirectAddress resolves (BC), (DE), (HL+) and (HL-).
func (cpu *CPU) indirectAddress(i int) uint16 {
	switch i {
	case 0:
		return cpu.BC()
	case 1:
		return cpu.DE()
	}
	hl := cpu.HL()
	if i == 2 {
		cpu.SetHL(hl + 1)
	} else {
		cpu.SetHL(hl - 1)
	}
	return hl
}

func (cpu *CPU) condition(i int) bool {
	switch i {
	case 0:
		return cpu.F&FlagZ == 0
	case 1:
		return cpu.F&FlagZ != 0
	case 2:
		return cpu.F&FlagC == 0
	}
	return cpu.F&FlagC != 0
}

func (cpu *CPU) jr() {
	cpu.PC = uint16(int32(cpu.PC) + int32(int8(cpu.operand)))
}

func (cpu *CPU) call() {
	cpu.push(cpu.PC)
	cpu.PC = cpu.operand
}
