//go:build !headless

package audio

import (
	"fmt"
	"time"

	ebaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"dmgo/internal/logger"
)

// Player streams APU output to the default audio device.
type Player struct {
	ring   *ring
	player *ebaudio.Player
}

// NewPlayer opens the audio device at sampleRate. bufferSize is the device
// buffer in stereo frames; the sample queue holds four times as much.
func NewPlayer(sampleRate, bufferSize int, volume float64) (*Player, error) {
	ctx := ebaudio.CurrentContext()
	if ctx == nil {
		ctx = ebaudio.NewContext(sampleRate)
	} else if ctx.SampleRate() != sampleRate {
		return nil, fmt.Errorf("audio context already running at %d Hz", ctx.SampleRate())
	}

	r := newRing(bufferSize * 2 * 4)
	player, err := ctx.NewPlayerF32(&stream{ring: r})
	if err != nil {
		return nil, fmt.Errorf("failed to create audio player: %w", err)
	}
	player.SetBufferSize(time.Duration(bufferSize) * time.Second / time.Duration(sampleRate))
	player.SetVolume(volume)
	player.Play()

	logger.Logf(logger.Allow, "audio", "playing at %d Hz, buffer %d frames", sampleRate, bufferSize)
	return &Player{ring: r, player: player}, nil
}

// Push queues interleaved stereo samples for playback.
func (p *Player) Push(samples []float32) {
	p.ring.write(samples)
}

// Queued returns the number of samples waiting to be played.
func (p *Player) Queued() int {
	return p.ring.len()
}

// SetVolume sets the output volume, 0 to 1.
func (p *Player) SetVolume(volume float64) {
	p.player.SetVolume(volume)
}

// Close stops playback.
func (p *Player) Close() error {
	return p.player.Close()
}
