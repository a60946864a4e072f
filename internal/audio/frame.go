// Package audio owns microphone capture: device selection, bounded PCM
// buffering, the Pulse record stream, and WAV encoding of captured frames.
package audio

import (
	"encoding/binary"
	"slices"
	"time"
)

const (
	DefaultSampleRate = 44100
	DefaultChannels   = 1
)

// Frame is an immutable block of signed 16-bit interleaved PCM samples.
type Frame struct {
	samples    []int16
	sampleRate int
	channels   int
	startedAt  time.Time
}

// NewFrame copies samples into a new Frame.
func NewFrame(samples []int16, sampleRate int, channels int, startedAt time.Time) Frame {
	return Frame{
		samples:    slices.Clone(samples),
		sampleRate: sampleRate,
		channels:   max(channels, 1),
		startedAt:  startedAt,
	}
}

// Samples returns a copy of the frame's samples.
func (f Frame) Samples() []int16 {
	return slices.Clone(f.samples)
}

func (f Frame) Len() int             { return len(f.samples) }
func (f Frame) Empty() bool          { return len(f.samples) == 0 }
func (f Frame) SampleRate() int      { return f.sampleRate }
func (f Frame) StartedAt() time.Time { return f.startedAt }

func (f Frame) Channels() int {
	return max(f.channels, 1)
}

// Duration is the playback length of the frame.
func (f Frame) Duration() time.Duration {
	if f.sampleRate <= 0 {
		return 0
	}
	perChannel := len(f.samples) / f.Channels()
	return time.Duration(perChannel) * time.Second / time.Duration(f.sampleRate)
}

// PCM16LE encodes the samples as little-endian bytes.
func (f Frame) PCM16LE() []byte {
	out := make([]byte, len(f.samples)*2)
	for i, s := range f.samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
