// Package pipeline builds the capture device and recognizer backend a
// session runs against.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/barakem/voicegame/internal/audio"
	"github.com/barakem/voicegame/internal/config"
	"github.com/barakem/voicegame/internal/recognizer"
)

// Pipeline owns one microphone and one recognizer backend.
type Pipeline struct {
	Microphone audio.Microphone
	Backend    recognizer.Backend

	closers []io.Closer
}

// Build wires the configured microphone and backend. The debug dump wraps
// the backend when debug.audio_dump is set.
func Build(cfg config.Config, logger *slog.Logger) (*Pipeline, error) {
	backend, err := NewBackend(cfg.Recognizer)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		Microphone: audio.NewPulseMicrophone(CaptureConfig(cfg)),
		Backend:    backend,
	}
	if closer, ok := backend.(io.Closer); ok {
		p.closers = append(p.closers, closer)
	}
	if cfg.Debug.EnableAudioDump {
		p.Backend = NewDumpingBackend(backend, logger)
	}
	return p, nil
}

// Close releases backend connections.
func (p *Pipeline) Close() error {
	var errs []error
	for _, closer := range p.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CaptureConfig maps runtime config to the capture stream format.
func CaptureConfig(cfg config.Config) audio.CaptureConfig {
	return audio.CaptureConfig{
		Input:       cfg.Audio.Input,
		Fallback:    cfg.Audio.Fallback,
		SampleRate:  cfg.Recording.SampleRateHz,
		Channels:    cfg.Recording.Channels,
		MaxDuration: cfg.Recording.MaxDuration(),
	}
}

// NewBackend constructs the recognizer named by cfg.Backend.
func NewBackend(cfg config.RecognizerConfig) (recognizer.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case config.BackendGRPC:
		return recognizer.NewGRPCBackend(recognizer.GRPCConfig{
			Endpoint:    cfg.GRPCEndpoint,
			DialTimeout: cfg.DialTimeout(),
		})
	case config.BackendExec:
		return recognizer.NewExecBackend(recognizer.ExecConfig{Command: cfg.Command.Raw})
	default:
		return nil, fmt.Errorf("unknown recognizer backend %q", cfg.Backend)
	}
}

// NewExecBackend builds the exec backend regardless of cfg.Backend.
func NewExecBackend(cfg config.RecognizerConfig) (*recognizer.ExecBackend, error) {
	return recognizer.NewExecBackend(recognizer.ExecConfig{Command: cfg.Command.Raw})
}

// readyChecker is implemented by backends that can probe their transport.
type readyChecker interface {
	Ready(ctx context.Context) error
}

// CheckReady probes the backend when it supports it.
func CheckReady(ctx context.Context, backend recognizer.Backend) (bool, error) {
	if d, ok := backend.(*DumpingBackend); ok {
		backend = d.next
	}
	checker, ok := backend.(readyChecker)
	if !ok {
		return false, nil
	}
	return true, checker.Ready(ctx)
}

// DescribeDevice formats device metadata for logs and diagnostics.
func DescribeDevice(device audio.Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}
