// Package bus connects the DMG components and drives them from the CPU
// clock. A Bus is one emulation session.
package bus

import (
	"context"
	"errors"
	"fmt"
	"io"

	"dmgo/internal/apu"
	"dmgo/internal/cartridge"
	"dmgo/internal/cpu"
	"dmgo/internal/input"
	"dmgo/internal/interrupt"
	"dmgo/internal/logger"
	"dmgo/internal/memory"
	"dmgo/internal/ppu"
	"dmgo/internal/serial"
	"dmgo/internal/timer"
)

// ErrBootROMSize is returned when a supplied boot ROM is not 256 bytes.
var ErrBootROMSize = errors.New("boot rom must be 256 bytes")

const (
	// CyclesPerFrame is the length of one LCD frame in M-cycles
	// (154 lines of 456 dots).
	CyclesPerFrame = 154 * 456 / 4

	// FrameRate is the LCD refresh rate in Hz.
	FrameRate = 4194304.0 / (CyclesPerFrame * 4)
)

// Bus connects all DMG components together
type Bus struct {
	CPU        *cpu.CPU
	PPU        *ppu.PPU
	APU        *apu.APU
	Memory     *memory.Memory
	Timer      *timer.Timer
	Serial     *serial.Port
	Joypad     *input.Joypad
	Interrupts *interrupt.Controller

	cart *cartridge.Cartridge

	cycles        uint64
	frameCallback func(*ppu.FrameBuffer)
}

// New builds a session for a cartridge image. With a boot ROM the machine
// starts at 0x0000 with the boot ROM mapped; without one every component
// starts in the state the boot ROM would leave it in.
func New(rom []byte, boot []byte) (*Bus, error) {
	if len(boot) != 0 && len(boot) != memory.BootROMSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrBootROMSize, len(boot))
	}

	cart, err := cartridge.New(rom)
	if err != nil {
		return nil, err
	}

	irq := interrupt.New()
	video := memory.NewVideoRAM()

	b := &Bus{
		PPU:        ppu.New(video, irq),
		APU:        apu.New(),
		Timer:      timer.New(irq),
		Serial:     serial.New(irq),
		Joypad:     input.New(irq),
		Interrupts: irq,
		cart:       cart,
	}

	b.Memory = memory.New(cart, video, b.PPU, b.APU)
	b.Memory.SetTimer(b.Timer)
	b.Memory.SetSerial(b.Serial)
	b.Memory.SetInputSystem(b.Joypad)
	b.Memory.SetInterrupts(irq)

	b.CPU = cpu.New(b.Memory, irq)

	postBoot := len(boot) == 0
	if !postBoot {
		b.Memory.SetBootROM(boot)
	}

	b.CPU.Reset(postBoot)
	b.PPU.Reset(postBoot)
	b.APU.Reset(postBoot)
	b.Timer.Reset(postBoot)
	b.Interrupts.Reset(postBoot)
	b.Serial.Reset()
	b.Joypad.Reset()

	b.PPU.SetFrameCallback(b.handleFrameComplete)

	logger.Logf(logger.Allow, "bus", "session started (boot rom: %v)", !postBoot)
	return b, nil
}

// handleFrameComplete is called by the PPU on entry to VBlank
func (b *Bus) handleFrameComplete(frame *ppu.FrameBuffer) {
	if b.frameCallback != nil {
		b.frameCallback(frame)
	}
}

// Step executes one CPU instruction and advances the other components by the
// same number of cycles. It returns the M-cycles consumed.
func (b *Bus) Step() int {
	// STOP halts the system clock from the cycle after the instruction
	stopped := b.CPU.Stopped()
	m := b.CPU.Step()

	if !stopped {
		b.Timer.Tick(m)
		b.Serial.Tick(m)
		b.Memory.TickDMA(m)
		b.PPU.Tick(m * 4)
		b.APU.Tick(m * 4)
	}

	b.cycles += uint64(m)
	return m
}

// RunFrame runs until the PPU completes a frame. While the LCD is off it
// runs for one frame's worth of cycles instead.
func (b *Bus) RunFrame() {
	target := b.PPU.FrameCount() + 1
	start := b.cycles
	for b.PPU.FrameCount() < target && b.cycles-start < CyclesPerFrame {
		b.Step()
	}
}

// RunFrames runs n frames, checking ctx between frames.
func (b *Bus) RunFrames(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.RunFrame()
	}
	return nil
}

// RunCycles runs whole instructions until at least the given number of
// M-cycles have elapsed.
func (b *Bus) RunCycles(cycles uint64) {
	target := b.cycles + cycles
	for b.cycles < target {
		b.Step()
	}
}

// SetFrameCallback sets the function called with every completed frame.
func (b *Bus) SetFrameCallback(callback func(*ppu.FrameBuffer)) {
	b.frameCallback = callback
}

// FrameBuffer returns the last completed frame.
func (b *Bus) FrameBuffer() *ppu.FrameBuffer {
	return b.PPU.FrameBuffer()
}

// AudioSamples drains the interleaved stereo samples produced so far.
func (b *Bus) AudioSamples() []float32 {
	return b.APU.Samples()
}

// SetAudioSampleRate sets the APU output rate in Hz.
func (b *Bus) SetAudioSampleRate(rate int) {
	b.APU.SetSampleRate(rate)
}

// SetButton changes one joypad button. A press wakes the CPU from STOP.
func (b *Bus) SetButton(button input.Button, pressed bool) {
	if b.Joypad.SetButton(button, pressed) {
		b.CPU.Resume()
	}
}

// SetButtons sets all eight buttons, indexed by input.Button.
func (b *Bus) SetButtons(buttons [8]bool) {
	if b.Joypad.SetButtons(buttons) {
		b.CPU.Resume()
	}
}

// SetSerialOutput sets the writer receiving bytes sent over the link port.
func (b *Bus) SetSerialOutput(w io.Writer) {
	b.Serial.SetOutput(w)
}

// Cartridge returns the inserted cartridge.
func (b *Bus) Cartridge() *cartridge.Cartridge {
	return b.cart
}

// Cycles returns the M-cycles executed since the session started.
func (b *Bus) Cycles() uint64 {
	return b.cycles
}

// FrameCount returns the number of frames completed.
func (b *Bus) FrameCount() uint64 {
	return b.PPU.FrameCount()
}

// EnableCPUTrace turns per-instruction trace logging on or off.
func (b *Bus) EnableCPUTrace(enable bool) {
	b.CPU.SetTracing(enable)
}

// EnableMemoryDebug logs unmapped accesses, LCD switches and button presses.
func (b *Bus) EnableMemoryDebug(enable bool) {
	b.Memory.SetDebug(enable)
	b.PPU.SetDebug(enable)
	b.Joypad.SetDebug(enable)
}

// CPUState is a snapshot of the processor for status displays.
type CPUState struct {
	Registers cpu.Registers
	IME       bool
	State     cpu.State
	Cycles    uint64
}

// GetCPUState returns the current CPU state
func (b *Bus) GetCPUState() CPUState {
	return CPUState{
		Registers: b.CPU.Registers,
		IME:       b.CPU.IME(),
		State:     b.CPU.State(),
		Cycles:    b.cycles,
	}
}

// PPUState is a snapshot of the video unit for status displays.
type PPUState struct {
	Line       int
	Dot        int
	Mode       ppu.Mode
	FrameCount uint64
	LCDOn      bool
}

// GetPPUState returns the current PPU state
func (b *Bus) GetPPUState() PPUState {
	return PPUState{
		Line:       b.PPU.Line(),
		Dot:        b.PPU.Dot(),
		Mode:       b.PPU.Mode(),
		FrameCount: b.PPU.FrameCount(),
		LCDOn:      b.PPU.Enabled(),
	}
}

func (s CPUState) String() string {
	r := s.Registers
	return fmt.Sprintf("PC=%04X SP=%04X AF=%04X BC=%04X DE=%04X HL=%04X IME=%v %v",
		r.PC, r.SP, r.AF(), r.BC(), r.DE(), r.HL(), s.IME, s.State)
}
