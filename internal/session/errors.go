package session

import (
	"context"
	"errors"

	"github.com/barakem/voicegame/internal/audio"
	"github.com/barakem/voicegame/internal/recognizer"
)

var (
	// ErrAlreadyActive rejects Start outside Ready.
	ErrAlreadyActive = errors.New("session already active")
	// ErrPipelineUnavailable indicates missing microphone or recognizer wiring.
	ErrPipelineUnavailable = errors.New("audio capture or recognizer not configured")
	// ErrUnknownLanguage rejects SetLanguage with an unsupported tag.
	ErrUnknownLanguage = errors.New("unknown language")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session controller closed")
)

// ErrorKind is the user-facing failure class carried by the Error state.
type ErrorKind string

const (
	ErrorDeviceUnavailable ErrorKind = "DeviceUnavailable"
	ErrorEmptyCapture      ErrorKind = "EmptyCapture"
	ErrorNoSpeech          ErrorKind = "NoSpeechDetected"
	ErrorNetwork           ErrorKind = "NetworkError"
	ErrorQuotaOrAuth       ErrorKind = "QuotaOrAuthError"
	ErrorUnknown           ErrorKind = "Unknown"
	ErrorAlreadyActive     ErrorKind = "AlreadyActive"
)

// ErrorKinds lists every kind in display order.
func ErrorKinds() []ErrorKind {
	return []ErrorKind{
		ErrorDeviceUnavailable,
		ErrorEmptyCapture,
		ErrorNoSpeech,
		ErrorNetwork,
		ErrorQuotaOrAuth,
		ErrorUnknown,
		ErrorAlreadyActive,
	}
}

// KindFromError classifies err. A nil error has no kind.
func KindFromError(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadyActive):
		return ErrorAlreadyActive
	case errors.Is(err, audio.ErrDeviceUnavailable):
		return ErrorDeviceUnavailable
	case errors.Is(err, audio.ErrEmptyCapture):
		return ErrorEmptyCapture
	}

	switch recognizer.KindOf(err) {
	case recognizer.KindNoSpeech:
		return ErrorNoSpeech
	case recognizer.KindNetwork:
		return ErrorNetwork
	case recognizer.KindQuotaOrAuth:
		return ErrorQuotaOrAuth
	case recognizer.KindUnknown:
		return ErrorUnknown
	default:
		return ErrorUnknown
	}
}

// unavailableMicrophone keeps the controller usable when capture is not wired.
type unavailableMicrophone struct{}

func (unavailableMicrophone) Open(context.Context) (audio.Recording, error) {
	return nil, ErrPipelineUnavailable
}

// unavailableBackend keeps the controller usable when recognition is not wired.
type unavailableBackend struct{}

func (unavailableBackend) Transcribe(context.Context, audio.Frame, string) (string, error) {
	return "", recognizer.Unknown(ErrPipelineUnavailable)
}

// IsPipelineUnavailable reports whether an error represents missing pipeline wiring.
func IsPipelineUnavailable(err error) bool {
	return errors.Is(err, ErrPipelineUnavailable)
}
