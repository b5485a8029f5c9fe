//go:build headless

package audio

import "errors"

// ErrUnavailable is returned by NewPlayer in builds without an audio device.
var ErrUnavailable = errors.New("audio output not available in headless build")

// Player is a stub for headless builds
type Player struct{}

// NewPlayer always fails with ErrUnavailable.
func NewPlayer(sampleRate, bufferSize int, volume float64) (*Player, error) {
	return nil, ErrUnavailable
}

// Push discards the samples.
func (p *Player) Push(samples []float32) {}

// Queued always returns 0.
func (p *Player) Queued() int { return 0 }

// SetVolume does nothing.
func (p *Player) SetVolume(volume float64) {}

// Close does nothing.
func (p *Player) Close() error { return nil }
