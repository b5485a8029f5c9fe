package cpu

import (
	"fmt"
	"strings"
)

// Disassemble formats the instruction at pc, with its operand resolved.
func (cpu *CPU) Disassemble(pc uint16) string {
	opcode := cpu.memory.Read(pc)
	if opcode == 0xCB {
		return cbInstructions[cpu.memory.Read(pc+1)].Name
	}

	inst := &instructions[opcode]
	lo := cpu.memory.Read(pc + 1)
	word := uint16(cpu.memory.Read(pc+2))<<8 | uint16(lo)

	switch inst.Mode {
	case D8:
		return strings.Replace(inst.Name, "d8", fmt.Sprintf("$%02X", lo), 1)
	case A8:
		return strings.Replace(inst.Name, "a8", fmt.Sprintf("$FF%02X", lo), 1)
	case R8:
		if opcode == 0xE8 || opcode == 0xF8 {
			return strings.Replace(inst.Name, "r8", fmt.Sprintf("%d", int8(lo)), 1)
		}
		target := uint16(int32(pc) + 2 + int32(int8(lo)))
		return strings.Replace(inst.Name, "r8", fmt.Sprintf("$%04X", target), 1)
	case D16:
		return strings.Replace(inst.Name, "d16", fmt.Sprintf("$%04X", word), 1)
	case A16:
		return strings.Replace(inst.Name, "a16", fmt.Sprintf("$%04X", word), 1)
	}
	return inst.Name
}

// Length returns the encoded size of the instruction starting with opcode.
func Length(opcode uint8) int {
	if opcode == 0xCB {
		return 2
	}
	return int(instructions[opcode].Bytes)
}
