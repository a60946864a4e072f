// Package recognizer adapts speech-to-text services to a closed failure taxonomy.
package recognizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/barakem/voicegame/internal/audio"
)

// Backend turns one captured frame into a raw transcript.
//
// A successful call may return an empty string. Failures are reported as
// *Failure so callers can branch on Kind without inspecting messages.
type Backend interface {
	Transcribe(ctx context.Context, frame audio.Frame, language string) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, frame audio.Frame, language string) (string, error)

// Transcribe calls f.
func (f BackendFunc) Transcribe(ctx context.Context, frame audio.Frame, language string) (string, error) {
	return f(ctx, frame, language)
}

// Kind classifies a recognition failure.
type Kind string

const (
	KindNoSpeech    Kind = "no_speech"
	KindNetwork     Kind = "network"
	KindQuotaOrAuth Kind = "quota_or_auth"
	KindUnknown     Kind = "unknown"
)

// Failure is the only error shape a Backend returns.
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return "recognition failed: " + string(f.Kind)
	}
	return fmt.Sprintf("recognition failed (%s): %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// NoSpeech reports audio that carried no recognizable speech.
func NoSpeech(err error) error { return &Failure{Kind: KindNoSpeech, Err: err} }

// Network reports a transport problem or timeout.
func Network(err error) error { return &Failure{Kind: KindNetwork, Err: err} }

// QuotaOrAuth reports a rejected credential or exhausted quota.
func QuotaOrAuth(err error) error { return &Failure{Kind: KindQuotaOrAuth, Err: err} }

// Unknown reports anything else.
func Unknown(err error) error { return &Failure{Kind: KindUnknown, Err: err} }

// KindOf classifies err. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var failure *Failure
	if errors.As(err, &failure) {
		switch failure.Kind {
		case KindNoSpeech, KindNetwork, KindQuotaOrAuth:
			return failure.Kind
		default:
			return KindUnknown
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	return KindUnknown
}
