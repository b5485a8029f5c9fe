package apu

// lengthCounter silences a channel after a programmed number of 256 Hz
// clocks.
type lengthCounter struct {
	value   int
	max     int
	enabled bool
}

func (l *lengthCounter) load(v int) {
	l.value = l.max - v
}

func (l *lengthCounter) trigger() {
	if l.value == 0 {
		l.value = l.max
	}
}

func (l *lengthCounter) clock(channelOn *bool) {
	if !l.enabled || l.value == 0 {
		return
	}
	l.value--
	if l.value == 0 {
		*channelOn = false
	}
}

// envelope steps a channel volume up or down at 64 Hz.
type envelope struct {
	initial  uint8
	increase bool
	period   uint8
	volume   uint8
	timer    uint8
	dac      bool
}

func (e *envelope) write(value uint8) {
	e.initial = value >> 4
	e.increase = value&0x08 != 0
	e.period = value & 0x07
	e.dac = value&0xF8 != 0
}

func (e *envelope) trigger() {
	e.volume = e.initial
	e.timer = e.period
}

func (e *envelope) clock() {
	if e.period == 0 {
		return
	}
	if e.timer > 0 {
		e.timer--
	}
	if e.timer != 0 {
		return
	}
	e.timer = e.period
	switch {
	case e.increase && e.volume < 15:
		e.volume++
	case !e.increase && e.volume > 0:
		e.volume--
	}
}
