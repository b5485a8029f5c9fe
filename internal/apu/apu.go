// Package apu implements the DMG sound unit: two square channels, the wave
// channel and the noise channel, the 512 Hz frame sequencer and a stereo
// mixer producing interleaved float32 samples.
package apu

// Register addresses
const (
	NR10 = 0xFF10
	NR11 = 0xFF11
	NR12 = 0xFF12
	NR13 = 0xFF13
	NR14 = 0xFF14
	NR21 = 0xFF16
	NR22 = 0xFF17
	NR23 = 0xFF18
	NR24 = 0xFF19
	NR30 = 0xFF1A
	NR31 = 0xFF1B
	NR32 = 0xFF1C
	NR33 = 0xFF1D
	NR34 = 0xFF1E
	NR41 = 0xFF20
	NR42 = 0xFF21
	NR43 = 0xFF22
	NR44 = 0xFF23
	NR50 = 0xFF24
	NR51 = 0xFF25
	NR52 = 0xFF26

	WaveRAMStart = 0xFF30
	WaveRAMEnd   = 0xFF3F
)

const (
	// ClockRate is the DMG master clock in T-cycles per second
	ClockRate = 4194304

	DefaultSampleRate = 44100

	// frame sequencer runs at 512 Hz
	sequencerPeriod = ClockRate / 512
)

// bits that read back as 1 for FF10-FF2F
var readMasks = [0x20]uint8{
	// NR10-NR14
	0x80, 0x3F, 0x00, 0xFF, 0xBF,
	// unused, NR21-NR24
	0xFF, 0x3F, 0x00, 0xFF, 0xBF,
	// NR30-NR34
	0x7F, 0xFF, 0x9F, 0xFF, 0xBF,
	// unused, NR41-NR44
	0xFF, 0xFF, 0x00, 0x00, 0xBF,
	// NR50-NR52
	0x00, 0x00, 0x70,
	// FF27-FF2F
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
}

// APU is advanced in T-cycles by the step driver.
type APU struct {
	ch1 SquareChannel
	ch2 SquareChannel
	ch3 WaveChannel
	ch4 NoiseChannel

	regs  [0x20]uint8 // last written value of FF10-FF2F
	power bool
	nr50  uint8
	nr51  uint8

	sequencerCounter int
	sequencerStep    int

	sampleBuffer     []float32
	sampleRate       int
	cycleAccumulator float64
}

// New creates an APU producing samples at DefaultSampleRate.
func New() *APU {
	apu := &APU{
		sampleBuffer: make([]float32, 0, 4096),
		sampleRate:   DefaultSampleRate,
	}
	apu.ch1.hasSweep = true
	return apu
}

// Reset puts the sound unit into its power-on state, or into the state the
// boot ROM leaves it in.
func (apu *APU) Reset(postBoot bool) {
	apu.ch1 = SquareChannel{hasSweep: true}
	apu.ch2 = SquareChannel{}
	wave := apu.ch3.waveRAM
	apu.ch3 = WaveChannel{waveRAM: wave}
	apu.ch4 = NoiseChannel{}
	apu.regs = [0x20]uint8{}
	apu.power = false
	apu.nr50 = 0
	apu.nr51 = 0
	apu.sequencerCounter = 0
	apu.sequencerStep = 0
	apu.cycleAccumulator = 0
	apu.sampleBuffer = apu.sampleBuffer[:0]

	if postBoot {
		apu.WriteRegister(NR52, 0x80)
		apu.WriteRegister(NR10, 0x80)
		apu.WriteRegister(NR11, 0xBF)
		apu.WriteRegister(NR12, 0xF3)
		apu.WriteRegister(NR14, 0xBF)
		apu.WriteRegister(NR21, 0x3F)
		apu.WriteRegister(NR24, 0xBF)
		apu.WriteRegister(NR30, 0x7F)
		apu.WriteRegister(NR31, 0xFF)
		apu.WriteRegister(NR32, 0x9F)
		apu.WriteRegister(NR34, 0xBF)
		apu.WriteRegister(NR41, 0xFF)
		apu.WriteRegister(NR44, 0xBF)
		apu.WriteRegister(NR50, 0x77)
		apu.WriteRegister(NR51, 0xF3)
		// the boot sound has finished: only channel 1 is still flagged on
		apu.ch1.enabled = true
		apu.ch1.envelope.volume = 0
		apu.ch2.enabled = false
		apu.ch4.enabled = false
	}
}

// Tick advances the sound unit by the given number of T-cycles.
func (apu *APU) Tick(cycles int) {
	for cycles > 0 {
		n := 4
		if cycles < n {
			n = cycles
		}
		cycles -= n

		if apu.power {
			apu.ch1.tick(n)
			apu.ch2.tick(n)
			apu.ch3.tick(n)
			apu.ch4.tick(n)
			apu.stepFrameSequencer(n)
		}
		apu.generateSample(n)
	}
}

// stepFrameSequencer clocks length at 256 Hz, sweep at 128 Hz and envelope
// at 64 Hz.
func (apu *APU) stepFrameSequencer(cycles int) {
	apu.sequencerCounter += cycles
	for apu.sequencerCounter >= sequencerPeriod {
		apu.sequencerCounter -= sequencerPeriod

		switch apu.sequencerStep {
		case 0, 4:
			apu.clockLength()
		case 2, 6:
			apu.clockLength()
			apu.ch1.clockSweep()
		case 7:
			apu.ch1.envelope.clock()
			apu.ch2.envelope.clock()
			apu.ch4.envelope.clock()
		}
		apu.sequencerStep = (apu.sequencerStep + 1) & 7
	}
}

func (apu *APU) clockLength() {
	apu.ch1.length.clock(&apu.ch1.enabled)
	apu.ch2.length.clock(&apu.ch2.enabled)
	apu.ch3.length.clock(&apu.ch3.enabled)
	apu.ch4.length.clock(&apu.ch4.enabled)
}

// generateSample appends a stereo pair whenever the sample clock crosses a
// sample boundary.
func (apu *APU) generateSample(cycles int) {
	apu.cycleAccumulator += float64(cycles) * float64(apu.sampleRate) / ClockRate
	if apu.cycleAccumulator < 1.0 {
		return
	}
	apu.cycleAccumulator -= 1.0

	left, right := apu.mix()
	apu.sampleBuffer = append(apu.sampleBuffer, left, right)
}

// mix converts each channel's 4-bit output to the -1..1 range and applies
// NR51 panning and the NR50 master volumes.
func (apu *APU) mix() (float32, float32) {
	if !apu.power {
		return 0, 0
	}

	outputs := [4]float32{
		dac(apu.ch1.enabled && apu.ch1.dacEnabled(), apu.ch1.sample()),
		dac(apu.ch2.enabled && apu.ch2.dacEnabled(), apu.ch2.sample()),
		dac(apu.ch3.enabled && apu.ch3.dacEnabled, apu.ch3.sample()),
		dac(apu.ch4.enabled && apu.ch4.dacEnabled(), apu.ch4.sample()),
	}

	var left, right float32
	for i, out := range outputs {
		if apu.nr51&(0x10<<i) != 0 {
			left += out
		}
		if apu.nr51&(0x01<<i) != 0 {
			right += out
		}
	}

	leftVolume := float32((apu.nr50>>4)&0x07+1) / 8
	rightVolume := float32(apu.nr50&0x07+1) / 8

	return left / 4 * leftVolume, right / 4 * rightVolume
}

func dac(on bool, value uint8) float32 {
	if !on {
		return 0
	}
	return float32(value)/7.5 - 1
}

// ReadRegister returns a sound register or wave RAM byte. Unused bits read
// as 1.
func (apu *APU) ReadRegister(address uint16) uint8 {
	switch {
	case address >= WaveRAMStart && address <= WaveRAMEnd:
		return apu.ch3.waveRAM[address-WaveRAMStart]

	case address == NR52:
		v := readMasks[NR52-NR10]
		if apu.power {
			v |= 0x80
		}
		for i, on := range []bool{apu.ch1.enabled, apu.ch2.enabled, apu.ch3.enabled, apu.ch4.enabled} {
			if on {
				v |= 1 << i
			}
		}
		return v

	case address >= NR10 && address < WaveRAMStart:
		i := address - NR10
		return apu.regs[i] | readMasks[i]
	}
	return 0xFF
}

// WriteRegister updates a sound register or wave RAM. While the unit is
// powered off only NR52 and wave RAM accept writes.
func (apu *APU) WriteRegister(address uint16, value uint8) {
	if address >= WaveRAMStart && address <= WaveRAMEnd {
		apu.ch3.waveRAM[address-WaveRAMStart] = value
		return
	}
	if address < NR10 || address >= WaveRAMStart {
		return
	}

	if address == NR52 {
		apu.writePower(value&0x80 != 0)
		return
	}
	if !apu.power {
		return
	}

	apu.regs[address-NR10] = value

	switch address {
	case NR10:
		apu.ch1.writeSweep(value)
	case NR11:
		apu.ch1.writeDutyLength(value)
	case NR12:
		apu.ch1.writeEnvelope(value)
	case NR13:
		apu.ch1.writeFrequencyLow(value)
	case NR14:
		apu.ch1.writeControl(value)

	case NR21:
		apu.ch2.writeDutyLength(value)
	case NR22:
		apu.ch2.writeEnvelope(value)
	case NR23:
		apu.ch2.writeFrequencyLow(value)
	case NR24:
		apu.ch2.writeControl(value)

	case NR30:
		apu.ch3.writeDAC(value)
	case NR31:
		apu.ch3.writeLength(value)
	case NR32:
		apu.ch3.writeVolume(value)
	case NR33:
		apu.ch3.writeFrequencyLow(value)
	case NR34:
		apu.ch3.writeControl(value)

	case NR41:
		apu.ch4.writeLength(value)
	case NR42:
		apu.ch4.writeEnvelope(value)
	case NR43:
		apu.ch4.writePolynomial(value)
	case NR44:
		apu.ch4.writeControl(value)

	case NR50:
		apu.nr50 = value
	case NR51:
		apu.nr51 = value
	}
}

// writePower switches the unit on or off. Powering off clears every register
// except wave RAM.
func (apu *APU) writePower(on bool) {
	if apu.power && !on {
		wave := apu.ch3.waveRAM
		apu.ch1 = SquareChannel{hasSweep: true}
		apu.ch2 = SquareChannel{}
		apu.ch3 = WaveChannel{waveRAM: wave}
		apu.ch4 = NoiseChannel{}
		apu.regs = [0x20]uint8{}
		apu.nr50 = 0
		apu.nr51 = 0
	}
	if !apu.power && on {
		apu.sequencerStep = 0
		apu.sequencerCounter = 0
	}
	apu.power = on
}

// Samples drains the interleaved left/right sample buffer.
func (apu *APU) Samples() []float32 {
	samples := make([]float32, len(apu.sampleBuffer))
	copy(samples, apu.sampleBuffer)
	apu.sampleBuffer = apu.sampleBuffer[:0]
	return samples
}

// SetSampleRate sets the output rate in Hz.
func (apu *APU) SetSampleRate(rate int) {
	apu.sampleRate = rate
	apu.cycleAccumulator = 0
}

// SampleRate returns the output rate in Hz.
func (apu *APU) SampleRate() int {
	return apu.sampleRate
}

// ChannelEnabled reports the status bit of channel 1-4 as shown in NR52.
func (apu *APU) ChannelEnabled(channel int) bool {
	switch channel {
	case 1:
		return apu.ch1.enabled
	case 2:
		return apu.ch2.enabled
	case 3:
		return apu.ch3.enabled
	case 4:
		return apu.ch4.enabled
	}
	return false
}
