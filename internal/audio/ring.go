// Package audio plays and records the stereo sample stream produced by the
// APU.
package audio

import "sync"

// ring is a bounded FIFO of interleaved stereo samples. When full, the
// oldest samples are dropped so playback latency stays bounded.
type ring struct {
	mu    sync.Mutex
	buf   []float32
	start int
	count int
}

func newRing(capacity int) *ring {
	// keep left/right pairs aligned
	if capacity%2 != 0 {
		capacity++
	}
	return &ring{buf: make([]float32, capacity)}
}

// write appends samples, overwriting the oldest when full
func (r *ring) write(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(samples) > len(r.buf) {
		samples = samples[len(samples)-len(r.buf):]
	}
	for _, s := range samples {
		end := (r.start + r.count) % len(r.buf)
		r.buf[end] = s
		if r.count == len(r.buf) {
			r.start = (r.start + 1) % len(r.buf)
		} else {
			r.count++
		}
	}
}

// read moves up to len(dst) samples into dst and returns the count
func (r *ring) read(dst []float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(dst)
	if n > r.count {
		n = r.count
	}
	for i := 0; i < n; i++ {
		dst[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	r.start = (r.start + n) % len(r.buf)
	r.count -= n
	return n
}

func (r *ring) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
