package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"dmgo/internal/logger"
)

const (
	recordBitDepth = 16
	recordChannels = 2

	// WAVE_FORMAT_PCM
	pcmFormat = 1
)

// Recorder writes APU output to a 16-bit stereo WAV file.
type Recorder struct {
	file    *os.File
	encoder *wav.Encoder
	buffer  *goaudio.IntBuffer
	frames  int
}

// NewRecorder creates the WAV file at path.
func NewRecorder(path string, sampleRate int) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}

	logger.Logf(logger.Allow, "audio", "recording to %s", path)
	return &Recorder{
		file:    f,
		encoder: wav.NewEncoder(f, sampleRate, recordBitDepth, recordChannels, pcmFormat),
		buffer: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: recordChannels, SampleRate: sampleRate},
			SourceBitDepth: recordBitDepth,
		},
	}, nil
}

// Write appends interleaved stereo samples in the range -1 to 1.
func (r *Recorder) Write(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}

	data := r.buffer.Data[:0]
	for _, s := range samples {
		data = append(data, toPCM16(s))
	}
	r.buffer.Data = data
	r.frames += len(samples) / recordChannels

	if err := r.encoder.Write(r.buffer); err != nil {
		return fmt.Errorf("failed to write recording: %w", err)
	}
	return nil
}

// Frames returns the number of stereo frames written.
func (r *Recorder) Frames() int {
	return r.frames
}

// Close finishes the WAV header and closes the file.
func (r *Recorder) Close() error {
	if err := r.encoder.Close(); err != nil {
		r.file.Close()
		return fmt.Errorf("failed to finish recording: %w", err)
	}
	return r.file.Close()
}

func toPCM16(s float32) int {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int(s * 32767)
}
