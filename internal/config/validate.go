package config

import (
	"fmt"
	"slices"
	"strings"
)

var supportedSampleRates = []int{8000, 16000, 22050, 44100, 48000}

var supportedLanguages = []string{"he-IL", "en-US"}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if !slices.ContainsFunc(supportedLanguages, func(tag string) bool {
		return strings.EqualFold(tag, strings.TrimSpace(cfg.Language))
	}) {
		return nil, fmt.Errorf("language must be one of: %s", strings.Join(supportedLanguages, ", "))
	}

	if cfg.Recording.MaxSeconds < 1 || cfg.Recording.MaxSeconds > 60 {
		return nil, fmt.Errorf("recording.max_seconds must be between 1 and 60")
	}
	if !slices.Contains(supportedSampleRates, cfg.Recording.SampleRateHz) {
		return nil, fmt.Errorf("recording.sample_rate_hz must be one of: 8000, 16000, 22050, 44100, 48000")
	}
	switch cfg.Recording.Channels {
	case 1:
	case 2:
		warnings = append(warnings, Warning{Message: "recording.channels=2 records stereo; most recognizers expect mono"})
	default:
		return nil, fmt.Errorf("recording.channels must be 1 or 2")
	}

	if strings.TrimSpace(cfg.Audio.Input) == "" {
		return nil, fmt.Errorf("audio.input must not be empty")
	}

	switch cfg.Recognizer.Backend {
	case BackendGRPC:
		if strings.TrimSpace(cfg.Recognizer.GRPCEndpoint) == "" {
			return nil, fmt.Errorf("recognizer.grpc_endpoint must not be empty when recognizer.backend=grpc")
		}
	case BackendExec:
		if len(cfg.Recognizer.Command.Argv) == 0 {
			return nil, fmt.Errorf("recognizer.command must not be empty when recognizer.backend=exec")
		}
		if !strings.Contains(cfg.Recognizer.Command.Raw, "{wav}") {
			warnings = append(warnings, Warning{Message: "recognizer.command has no {wav} placeholder; the WAV path is appended as the last argument"})
		}
	default:
		return nil, fmt.Errorf("recognizer.backend must be one of: grpc, exec")
	}
	if cfg.Recognizer.TimeoutMS <= 0 {
		return nil, fmt.Errorf("recognizer.timeout_ms must be > 0")
	}
	if cfg.Recognizer.DialTimeoutMS <= 0 {
		return nil, fmt.Errorf("recognizer.dial_timeout_ms must be > 0")
	}

	switch cfg.Display.Surface {
	case SurfaceLTR, SurfaceRTL:
	default:
		return nil, fmt.Errorf("display.surface must be one of: ltr, rtl")
	}

	if cfg.History.Retain < 0 {
		return nil, fmt.Errorf("history.retain must be >= 0")
	}

	return warnings, nil
}
