package app

import (
	"time"

	"dmgo/internal/bus"
	"dmgo/internal/ppu"
)

// maxCatchUp bounds the frames run by one Update after a stall
const maxCatchUp = 4

// Emulator paces a session against the wall clock. The LCD refreshes at
// about 59.73 Hz, slower than the 60 Hz host tick, so frames are owed from
// accumulated time rather than run one per tick.
type Emulator struct {
	bus    *bus.Bus
	config *Config

	// timing control
	now             func() time.Time
	lastUpdateTime  time.Time
	accumulatedTime time.Duration
	targetFrameTime time.Duration

	audioSamples []float32

	// performance monitoring
	emulationTime    time.Duration
	averageFrameTime time.Duration
	frameCount       uint64
	droppedFrames    uint64
	startTime        time.Time

	isRunning bool
}

// NewEmulator creates a new emulator for a session
func NewEmulator(b *bus.Bus, config *Config) *Emulator {
	e := &Emulator{
		bus:          b,
		config:       config,
		now:          time.Now,
		audioSamples: make([]float32, 0, 4096),
	}
	e.SetTargetFrameRate(config.Emulation.FrameRate)
	e.Reset()
	return e
}

// Reset clears timing state
func (e *Emulator) Reset() {
	e.lastUpdateTime = e.now()
	e.startTime = e.lastUpdateTime
	e.accumulatedTime = 0
	e.emulationTime = 0
	e.averageFrameTime = 0
	e.frameCount = 0
	e.droppedFrames = 0
	e.audioSamples = e.audioSamples[:0]
}

// Start starts the emulator
func (e *Emulator) Start() {
	e.isRunning = true
	e.lastUpdateTime = e.now()
	e.accumulatedTime = 0
}

// Stop stops the emulator
func (e *Emulator) Stop() {
	e.isRunning = false
}

// Update runs the frames owed since the last call. It returns the number of
// frames run.
func (e *Emulator) Update() int {
	if !e.isRunning {
		return 0
	}

	now := e.now()
	e.accumulatedTime += now.Sub(e.lastUpdateTime)
	e.lastUpdateTime = now

	frames := 0
	for e.accumulatedTime >= e.targetFrameTime {
		if frames == maxCatchUp {
			e.droppedFrames += uint64(e.accumulatedTime / e.targetFrameTime)
			e.accumulatedTime %= e.targetFrameTime
			break
		}
		e.StepFrame()
		e.accumulatedTime -= e.targetFrameTime
		frames++
	}
	return frames
}

// StepFrame runs exactly one frame regardless of timing
func (e *Emulator) StepFrame() {
	start := time.Now()

	e.bus.RunFrame()
	e.frameCount++
	e.audioSamples = append(e.audioSamples, e.bus.AudioSamples()...)

	e.emulationTime = time.Since(start)
	if e.averageFrameTime == 0 {
		e.averageFrameTime = e.emulationTime
	} else {
		e.averageFrameTime = time.Duration(
			float64(e.averageFrameTime)*0.95 + float64(e.emulationTime)*0.05,
		)
	}
}

// StepInstruction executes a single CPU instruction
func (e *Emulator) StepInstruction() int {
	return e.bus.Step()
}

// GetFrameBuffer returns the last completed frame
func (e *Emulator) GetFrameBuffer() *ppu.FrameBuffer {
	return e.bus.FrameBuffer()
}

// DrainAudioSamples returns the samples produced since the last call
func (e *Emulator) DrainAudioSamples() []float32 {
	samples := e.audioSamples
	e.audioSamples = make([]float32, 0, cap(samples))
	return samples
}

// GetFrameCount returns the number of frames run since the last reset
func (e *Emulator) GetFrameCount() uint64 {
	return e.frameCount
}

// GetDroppedFrames returns the frames skipped to catch up after stalls
func (e *Emulator) GetDroppedFrames() uint64 {
	return e.droppedFrames
}

// GetCycleCount returns the M-cycles executed by the session
func (e *Emulator) GetCycleCount() uint64 {
	return e.bus.Cycles()
}

// GetAverageFrameTime returns the smoothed host time taken per frame
func (e *Emulator) GetAverageFrameTime() time.Duration {
	return e.averageFrameTime
}

// GetTargetFrameTime returns the wall clock length of one frame
func (e *Emulator) GetTargetFrameTime() time.Duration {
	return e.targetFrameTime
}

// GetEmulationSpeed returns how many frames could be run in the time one
// real frame takes
func (e *Emulator) GetEmulationSpeed() float64 {
	if e.averageFrameTime == 0 {
		return 0
	}
	return float64(e.targetFrameTime) / float64(e.averageFrameTime)
}

// IsRunning returns true while the emulator is started
func (e *Emulator) IsRunning() bool {
	return e.isRunning
}

// GetUptime returns the time since the last reset
func (e *Emulator) GetUptime() time.Duration {
	return e.now().Sub(e.startTime)
}

// SetTargetFrameRate sets the pacing rate in frames per second
func (e *Emulator) SetTargetFrameRate(fps float64) {
	if fps <= 0 {
		fps = bus.FrameRate
	}
	e.targetFrameTime = time.Duration(float64(time.Second) / fps)
}

// GetCPUState returns the current CPU state
func (e *Emulator) GetCPUState() bus.CPUState {
	return e.bus.GetCPUState()
}

// GetPPUState returns the current PPU state
func (e *Emulator) GetPPUState() bus.PPUState {
	return e.bus.GetPPUState()
}
