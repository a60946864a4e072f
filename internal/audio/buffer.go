package audio

import "time"

// CeilingSamples is the sample capacity for maxDuration of capture.
func CeilingSamples(maxDuration time.Duration, sampleRate int, channels int) int {
	if maxDuration <= 0 || sampleRate <= 0 {
		return 0
	}
	perChannel := int(maxDuration * time.Duration(sampleRate) / time.Second)
	return perChannel * max(channels, 1)
}

// Buffer accumulates samples up to a fixed capacity. Samples past capacity
// are dropped and counted. Buffer is not safe for concurrent use.
type Buffer struct {
	samples  []int16
	capacity int
	dropped  int
}

// NewBuffer returns a Buffer holding at most capacity samples.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{capacity: max(capacity, 0)}
}

// Append stores as many samples as fit and reports how many were accepted.
func (b *Buffer) Append(samples []int16) int {
	room := b.capacity - len(b.samples)
	if room <= 0 {
		b.dropped += len(samples)
		return 0
	}
	accepted := min(room, len(samples))
	b.samples = append(b.samples, samples[:accepted]...)
	b.dropped += len(samples) - accepted
	return accepted
}

func (b *Buffer) Len() int     { return len(b.samples) }
func (b *Buffer) Cap() int     { return b.capacity }
func (b *Buffer) Full() bool   { return len(b.samples) >= b.capacity }
func (b *Buffer) Dropped() int { return b.dropped }

// Take moves the accumulated samples into a Frame and empties the buffer.
func (b *Buffer) Take(sampleRate int, channels int, startedAt time.Time) Frame {
	frame := Frame{
		samples:    b.samples,
		sampleRate: sampleRate,
		channels:   max(channels, 1),
		startedAt:  startedAt,
	}
	b.samples = nil
	return frame
}
