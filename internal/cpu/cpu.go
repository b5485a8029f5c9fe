// Package cpu implements the Sharp SM83 processor of the DMG.
package cpu

import (
	"fmt"

	"dmgo/internal/interrupt"
	"dmgo/internal/logger"
)

// Flag bits in F. The low nibble of F is always zero.
const (
	FlagZ = 0x80
	FlagN = 0x40
	FlagH = 0x20
	FlagC = 0x10
)

// servicing an interrupt takes five M-cycles
const dispatchCycles = 5

// State is the execution state of the processor.
type State int

const (
	Running State = iota
	Halted
	Stopped
	Locked
)

var stateNames = [...]string{"running", "halted", "stopped", "locked"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Registers holds the 8-bit registers and the two 16-bit pointers.
type Registers struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
}

// AF returns A and F as a pair.
func (r *Registers) AF() uint16 { return uint16(r.A)<<8 | uint16(r.F) }

// BC returns B and C as a pair.
func (r *Registers) BC() uint16 { return uint16(r.B)<<8 | uint16(r.C) }

// DE returns D and E as a pair.
func (r *Registers) DE() uint16 { return uint16(r.D)<<8 | uint16(r.E) }

// HL returns H and L as a pair.
func (r *Registers) HL() uint16 { return uint16(r.H)<<8 | uint16(r.L) }

// SetAF writes A and F. The low nibble of F is discarded.
func (r *Registers) SetAF(v uint16) {
	r.A = uint8(v >> 8)
	r.F = uint8(v) & 0xF0
}

func (r *Registers) SetBC(v uint16) {
	r.B = uint8(v >> 8)
	r.C = uint8(v)
}

func (r *Registers) SetDE(v uint16) {
	r.D = uint8(v >> 8)
	r.E = uint8(v)
}

func (r *Registers) SetHL(v uint16) {
	r.H = uint8(v >> 8)
	r.L = uint8(v)
}

// SetF writes the flag register. The low nibble is discarded.
func (r *Registers) SetF(v uint8) {
	r.F = v & 0xF0
}

// MemoryInterface is the CPU's view of the address space.
type MemoryInterface interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// InterruptInterface is the part of the interrupt controller polled by the
// CPU between instructions.
type InterruptInterface interface {
	PendingEnabled() (interrupt.Source, bool)
	HasPending() bool
	Acknowledge(source interrupt.Source)
}

// CPU is the SM83 interpreter. Step executes one instruction (or one idle
// M-cycle while halted, stopped or locked) and reports the M-cycles used.
type CPU struct {
	Registers

	ime     bool
	eiDelay bool // EI executed, IME goes up after the next instruction
	haltBug bool // next opcode fetch does not advance PC
	state   State

	// operand of the instruction being executed
	operand uint16

	memory     MemoryInterface
	interrupts InterruptInterface

	cycles  uint64
	tracing bool
}

// New creates a CPU in the power-on state.
func New(memory MemoryInterface, interrupts InterruptInterface) *CPU {
	return &CPU{
		memory:     memory,
		interrupts: interrupts,
	}
}

// Reset clears the registers, or sets them to the values the boot ROM leaves
// behind.
func (cpu *CPU) Reset(postBoot bool) {
	cpu.Registers = Registers{}
	cpu.ime = false
	cpu.eiDelay = false
	cpu.haltBug = false
	cpu.state = Running
	cpu.cycles = 0

	if postBoot {
		cpu.SetAF(0x01B0)
		cpu.SetBC(0x0013)
		cpu.SetDE(0x00D8)
		cpu.SetHL(0x014D)
		cpu.SP = 0xFFFE
		cpu.PC = 0x0100
	}
}

// Step runs one instruction and returns the M-cycles it took.
func (cpu *CPU) Step() int {
	switch cpu.state {
	case Locked, Stopped:
		cpu.cycles++
		return 1
	case Halted:
		if !cpu.interrupts.HasPending() {
			cpu.cycles++
			return 1
		}
		cpu.state = Running
	}

	if cpu.ime {
		if source, ok := cpu.interrupts.PendingEnabled(); ok {
			return cpu.dispatch(source)
		}
	}

	if cpu.tracing {
		cpu.logTrace()
	}

	enableIME := cpu.eiDelay

	opcode := cpu.fetchOpcode()
	inst := &instructions[opcode]
	if opcode == 0xCB {
		inst = &cbInstructions[cpu.fetch()]
	}

	switch inst.Mode {
	case D8, R8, A8:
		cpu.operand = uint16(cpu.fetch())
	case D16, A16:
		lo := cpu.fetch()
		hi := cpu.fetch()
		cpu.operand = uint16(hi)<<8 | uint16(lo)
	}

	cycles := inst.Cycles
	if inst.Execute(cpu) {
		cycles += inst.Taken
	}

	// EI followed by DI leaves IME clear
	if enableIME && cpu.eiDelay {
		cpu.ime = true
		cpu.eiDelay = false
	}

	cpu.cycles += uint64(cycles)
	return cycles
}

// dispatch pushes PC and jumps to the interrupt vector. A dispatch straight
// after EI; HALT returns to the HALT instead of repeating a fetch.
func (cpu *CPU) dispatch(source interrupt.Source) int {
	ret := cpu.PC
	if cpu.haltBug {
		cpu.haltBug = false
		ret--
	}
	cpu.ime = false
	cpu.interrupts.Acknowledge(source)
	cpu.push(ret)
	cpu.PC = source.Vector()
	cpu.cycles += dispatchCycles
	return dispatchCycles
}

func (cpu *CPU) fetchOpcode() uint8 {
	v := cpu.memory.Read(cpu.PC)
	if cpu.haltBug {
		cpu.haltBug = false
		return v
	}
	cpu.PC++
	return v
}

func (cpu *CPU) fetch() uint8 {
	v := cpu.memory.Read(cpu.PC)
	cpu.PC++
	return v
}

func (cpu *CPU) push(v uint16) {
	cpu.SP--
	cpu.memory.Write(cpu.SP, uint8(v>>8))
	cpu.SP--
	cpu.memory.Write(cpu.SP, uint8(v))
}

func (cpu *CPU) pop() uint16 {
	lo := cpu.memory.Read(cpu.SP)
	cpu.SP++
	hi := cpu.memory.Read(cpu.SP)
	cpu.SP++
	return uint16(hi)<<8 | uint16(lo)
}

func (cpu *CPU) halt() {
	// halt bug: IME clear with an interrupt already waiting
	if !cpu.ime && cpu.interrupts.HasPending() {
		cpu.haltBug = true
		return
	}
	cpu.state = Halted
}

func (cpu *CPU) stop() {
	cpu.state = Stopped
	cpu.memory.Write(0xFF04, 0)
}

func (cpu *CPU) lock() {
	cpu.state = Locked
	logger.Logf(logger.Allow, "cpu", "illegal opcode %02X at %04X, cpu locked",
		cpu.memory.Read(cpu.PC-1), cpu.PC-1)
}

// Resume leaves the stopped state. It is called on a joypad press.
func (cpu *CPU) Resume() {
	if cpu.state == Stopped {
		cpu.state = Running
	}
}

// State returns the execution state.
func (cpu *CPU) State() State {
	return cpu.state
}

// Locked reports whether an illegal opcode has hung the processor.
func (cpu *CPU) Locked() bool {
	return cpu.state == Locked
}

// Halted reports whether the CPU is waiting in HALT.
func (cpu *CPU) Halted() bool {
	return cpu.state == Halted
}

// Stopped reports whether the CPU is waiting in STOP.
func (cpu *CPU) Stopped() bool {
	return cpu.state == Stopped
}

// IME returns the master interrupt enable flag.
func (cpu *CPU) IME() bool {
	return cpu.ime
}

// Cycles returns the M-cycles executed since reset.
func (cpu *CPU) Cycles() uint64 {
	return cpu.cycles
}

// SetTracing turns per-instruction trace logging on or off.
func (cpu *CPU) SetTracing(enable bool) {
	cpu.tracing = enable
}

func (cpu *CPU) logTrace() {
	logger.Log(logger.Allow, "cpu", fmt.Sprintf("%04X  %-16s AF=%04X BC=%04X DE=%04X HL=%04X SP=%04X %s",
		cpu.PC, cpu.Disassemble(cpu.PC), cpu.AF(), cpu.BC(), cpu.DE(), cpu.HL(), cpu.SP, cpu.flagString()))
}

func (cpu *CPU) flagString() string {
	flags := []byte("----")
	for i, f := range []struct {
		mask uint8
		name byte
	}{{FlagZ, 'Z'}, {FlagN, 'N'}, {FlagH, 'H'}, {FlagC, 'C'}} {
		if cpu.F&f.mask != 0 {
			flags[i] = f.name
		}
	}
	return string(flags)
}
