package bus

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"dmgo/internal/cartridge"
	"dmgo/internal/cpu"
	"dmgo/internal/input"
	"dmgo/internal/interrupt"
	"dmgo/internal/ppu"
)

func newTestBus(t *testing.T, program []uint8) *Bus {
	t.Helper()
	b, err := New(cartridge.CreateTestROMWithProgram(program), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestNewErrors(t *testing.T) {
	rom := cartridge.CreateMinimalTestROM()

	if _, err := New(rom, make([]byte, 100)); !errors.Is(err, ErrBootROMSize) {
		t.Errorf("short boot rom: err = %v, want ErrBootROMSize", err)
	}

	bad, err := cartridge.NewTestROMBuilder().WithBadChecksum().Build()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(bad, nil); !errors.Is(err, cartridge.ErrHeaderChecksum) {
		t.Errorf("bad checksum: err = %v, want ErrHeaderChecksum", err)
	}

	if _, err := New(rom[:0x100], nil); !errors.Is(err, cartridge.ErrTruncated) {
		t.Errorf("truncated: err = %v, want ErrTruncated", err)
	}
}

func TestPostBootDefaults(t *testing.T) {
	b := newTestBus(t, []uint8{0x18, 0xFE})

	state := b.GetCPUState()
	if state.Registers.AF() != 0x01B0 || state.Registers.BC() != 0x0013 ||
		state.Registers.DE() != 0x00D8 || state.Registers.HL() != 0x014D ||
		state.Registers.SP != 0xFFFE || state.Registers.PC != 0x0100 {
		t.Errorf("registers = %v", state)
	}

	tests := []struct {
		Name     string
		Address  uint16
		Expected uint8
	}{
		{"LCDC", 0xFF40, 0x91},
		{"STAT", 0xFF41, 0x85},
		{"LY", 0xFF44, 0x00},
		{"BGP", 0xFF47, 0xFC},
		{"OBP0", 0xFF48, 0xFF},
		{"IF", 0xFF0F, 0xE1},
		{"IE", 0xFFFF, 0x00},
		{"DIV", 0xFF04, 0xAB},
		{"TAC", 0xFF07, 0xF8},
		{"NR50", 0xFF24, 0x77},
		{"NR51", 0xFF25, 0xF3},
		{"NR52", 0xFF26, 0xF1},
		{"SC", 0xFF02, 0x7E},
	}
	for _, tt := range tests {
		if got := b.Memory.Read(tt.Address); got != tt.Expected {
			t.Errorf("%s = %02X, want %02X", tt.Name, got, tt.Expected)
		}
	}
}

func TestHALTUntilInterrupt(t *testing.T) {
	b := newTestBus(t, []uint8{
		0x3E, 0x04, // LD A,04
		0xE0, 0xFF, // LDH (FF),A ; IE = timer
		0xAF,       // XOR A
		0xE0, 0x0F, // LDH (0F),A ; clear IF
		0xFB,       // EI
		0x76,       // HALT
		0x18, 0xFE, // JR -2
	})

	for i := 0; i < 6; i++ {
		b.Step()
	}
	if !b.CPU.Halted() {
		t.Fatalf("CPU not halted, PC=%04X", b.CPU.PC)
	}

	for i := 0; i < 100; i++ {
		if m := b.Step(); m != 1 {
			t.Fatalf("halted step took %d M-cycles", m)
		}
	}

	b.Interrupts.Request(interrupt.Timer)
	if m := b.Step(); m != 5 {
		t.Errorf("dispatch took %d M-cycles, want 5", m)
	}
	if b.CPU.PC != 0x0050 {
		t.Errorf("PC = %04X, want 0050", b.CPU.PC)
	}
}

func TestFrameTiming(t *testing.T) {
	b := newTestBus(t, []uint8{0x18, 0xFE})

	frames := 0
	b.SetFrameCallback(func(*ppu.FrameBuffer) { frames++ })

	if err := b.RunFrames(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	start := b.Cycles()
	if err := b.RunFrames(context.Background(), 3); err != nil {
		t.Fatal(err)
	}

	if frames != 4 || b.FrameCount() != 4 {
		t.Errorf("frames = %d, FrameCount = %d, want 4", frames, b.FrameCount())
	}
	elapsed := b.Cycles() - start
	if elapsed < 3*CyclesPerFrame-3 || elapsed > 3*CyclesPerFrame+3 {
		t.Errorf("three frames took %d M-cycles, want about %d", elapsed, 3*CyclesPerFrame)
	}
	if b.GetPPUState().Line != 144 || b.GetPPUState().Mode != ppu.VBlank {
		t.Errorf("frame boundary at %+v, want start of VBlank", b.GetPPUState())
	}
}

func TestRunFramesWithLCDOff(t *testing.T) {
	b := newTestBus(t, []uint8{
		0xAF,       // XOR A
		0xE0, 0x40, // LDH (40),A ; LCD off
		0x18, 0xFE, // JR -2
	})

	if err := b.RunFrames(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	if b.FrameCount() != 0 {
		t.Errorf("FrameCount = %d with the LCD off", b.FrameCount())
	}
	if b.Cycles() < 2*CyclesPerFrame {
		t.Errorf("only %d M-cycles ran", b.Cycles())
	}
}

func TestRunFramesCancelled(t *testing.T) {
	b := newTestBus(t, []uint8{0x18, 0xFE})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.RunFrames(ctx, 10); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if b.Cycles() != 0 {
		t.Errorf("%d cycles ran after cancellation", b.Cycles())
	}
}

func TestSerialOutput(t *testing.T) {
	send := func(c uint8) []uint8 {
		return []uint8{
			0x3E, c,    // LD A,c
			0xE0, 0x01, // LDH (01),A
			0x3E, 0x81, // LD A,81
			0xE0, 0x02, // LDH (02),A
			0xF0, 0x02, // LDH A,(02)
			0xE6, 0x80, // AND 80
			0x20, 0xFA, // JR NZ,-6
		}
	}
	var program []uint8
	program = append(program, send('O')...)
	program = append(program, send('K')...)
	program = append(program, 0x18, 0xFE)

	b := newTestBus(t, program)
	var out bytes.Buffer
	b.SetSerialOutput(&out)

	if err := b.RunFrames(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	if out.String() != "OK" {
		t.Errorf("serial output = %q, want %q", out.String(), "OK")
	}
}

func TestButtonWakesSTOP(t *testing.T) {
	b := newTestBus(t, []uint8{0x10, 0x00, 0x3C, 0x18, 0xFE}) // STOP; INC A

	before := b.PPU.Line()*456 + b.PPU.Dot()
	m := b.Step()
	if !b.CPU.Stopped() {
		t.Fatal("CPU not stopped")
	}
	if got := b.PPU.Line()*456 + b.PPU.Dot(); got-before != m*4 {
		t.Errorf("PPU advanced %d dots during STOP, want %d", got-before, m*4)
	}
	if b.Memory.Read(0xFF04) != 0 {
		t.Error("STOP did not reset DIV")
	}

	line := b.PPU.Line()
	dot := b.PPU.Dot()
	for i := 0; i < 50; i++ {
		b.Step()
	}
	if b.PPU.Line() != line || b.PPU.Dot() != dot {
		t.Error("PPU advanced while stopped")
	}

	b.SetButton(input.Start, true)
	if b.CPU.State() != cpu.Running {
		t.Fatalf("state = %v after a press", b.CPU.State())
	}
	if b.Interrupts.ReadFlags()&(1<<interrupt.Joypad) == 0 {
		t.Error("joypad interrupt not requested")
	}
	b.Step()
	if b.CPU.A != 0x02 {
		t.Errorf("A = %02X, INC A should run after wake", b.CPU.A)
	}
}

func TestExternalRAMThroughBus(t *testing.T) {
	rom, err := cartridge.NewTestROMBuilder().
		WithType(0x03). // MBC1+RAM+BATTERY
		WithRAMSizeCode(0x02).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(rom, nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		Name   string
		Enable uint8
		Write  uint8
		Want   uint8
	}{
		{"disabled at power on", 0x00, 0x11, 0xFF},
		{"enabled", 0x0A, 0x42, 0x42},
		{"disabled again", 0x00, 0x99, 0xFF},
		{"re-enabled keeps data", 0x0A, 0x42, 0x42},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			b.Memory.Write(0x0000, tt.Enable)
			b.Memory.Write(0xA000, tt.Write)
			if got := b.Memory.Read(0xA000); got != tt.Want {
				t.Errorf("read A000 = %02X, want %02X", got, tt.Want)
			}
		})
	}

	if b.Cartridge().RAM()[0] != 0x42 {
		t.Errorf("RAM[0] = %02X, want 42", b.Cartridge().RAM()[0])
	}
}

func TestBootROM(t *testing.T) {
	boot := make([]byte, 256)
	copy(boot, []byte{
		0x31, 0xFE, 0xFF, // LD SP,FFFE
		0x3E, 0x01,       // LD A,01
		0xE0, 0x50,       // LDH (50),A
	})

	rom := cartridge.CreateMinimalTestROM()
	rom[0x0007] = 0x76 // the byte after the boot rom's last instruction
	b, err := New(rom, boot)
	if err != nil {
		t.Fatal(err)
	}

	if b.CPU.PC != 0x0000 || b.CPU.AF() != 0 {
		t.Fatalf("boot start: %v", b.GetCPUState())
	}
	if b.Memory.Read(0x0000) != 0x31 {
		t.Fatal("boot rom not mapped")
	}

	b.Step()
	b.Step()
	b.Step()
	if b.Memory.BootROMMapped() {
		t.Fatal("boot rom still mapped after FF50 write")
	}
	if b.Memory.Read(0x0000) != rom[0] {
		t.Error("cartridge not visible at 0000")
	}

	b.Step()
	if !b.CPU.Halted() {
		t.Errorf("expected the cartridge HALT at 0007, PC=%04X", b.CPU.PC)
	}
}
