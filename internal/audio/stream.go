package audio

import (
	"encoding/binary"
	"math"
)

// stream adapts the ring to the little endian 32-bit float format read by
// the audio device. It never blocks: an underrun is filled with silence.
type stream struct {
	ring    *ring
	scratch []float32
}

func (s *stream) Read(p []byte) (int, error) {
	// whole stereo frames only
	n := len(p) / 8 * 2
	if cap(s.scratch) < n {
		s.scratch = make([]float32, n)
	}
	samples := s.scratch[:n]
	got := s.ring.read(samples)
	for i := got; i < n; i++ {
		samples[i] = 0
	}

	for i, v := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	return n * 4, nil
}
