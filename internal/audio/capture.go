package audio

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDeviceUnavailable wraps every failure to claim the microphone.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrEmptyCapture is returned by Stop when no samples were recorded.
	ErrEmptyCapture = errors.New("capture produced no samples")
	// ErrCaptureStopped is returned by a second Stop.
	ErrCaptureStopped = errors.New("capture already stopped")
)

// Microphone opens exclusive recordings.
type Microphone interface {
	// Open claims the device and starts recording. ctx bounds acquisition only.
	Open(ctx context.Context) (Recording, error)
}

// Recording is one live claim on the microphone.
type Recording interface {
	// Stop releases the device and returns everything captured.
	Stop() (Frame, error)
	// Failed delivers at most one asynchronous capture failure.
	Failed() <-chan error
}

// CaptureConfig describes the stream a Microphone records.
type CaptureConfig struct {
	Input        string
	Fallback     string
	SampleRate   int
	Channels     int
	MaxDuration  time.Duration
	StallTimeout time.Duration
}

// DefaultCaptureConfig matches the reference recording format: 44.1 kHz mono, 10s ceiling.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		Input:        "default",
		Fallback:     "default",
		SampleRate:   DefaultSampleRate,
		Channels:     DefaultChannels,
		MaxDuration:  10 * time.Second,
		StallTimeout: 2 * time.Second,
	}
}
