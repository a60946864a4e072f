package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML schema. Pointer fields overlay only what is set.
type fileConfig struct {
	Language   *string         `yaml:"language"`
	Recording  *fileRecording  `yaml:"recording"`
	Audio      *fileAudio      `yaml:"audio"`
	Recognizer *fileRecognizer `yaml:"recognizer"`
	Display    *fileDisplay    `yaml:"display"`
	Indicator  *fileIndicator  `yaml:"indicator"`
	History    *fileHistory    `yaml:"history"`
	Debug      *fileDebug      `yaml:"debug"`
}

type fileRecording struct {
	MaxSeconds   *int `yaml:"max_seconds"`
	SampleRateHz *int `yaml:"sample_rate_hz"`
	Channels     *int `yaml:"channels"`
}

type fileAudio struct {
	Input    *string `yaml:"input"`
	Fallback *string `yaml:"fallback"`
}

type fileRecognizer struct {
	Backend       *string `yaml:"backend"`
	GRPCEndpoint  *string `yaml:"grpc_endpoint"`
	Command       *string `yaml:"command"`
	TimeoutMS     *int    `yaml:"timeout_ms"`
	DialTimeoutMS *int    `yaml:"dial_timeout_ms"`
}

type fileDisplay struct {
	Surface        *string `yaml:"surface"`
	ForceRTL       *bool   `yaml:"force_rtl"`
	MirrorBrackets *bool   `yaml:"mirror_brackets"`
}

type fileIndicator struct {
	SoundEnable *bool `yaml:"sound_enable"`
}

type fileHistory struct {
	Enable *bool   `yaml:"enable"`
	Path   *string `yaml:"path"`
	Retain *int    `yaml:"retain"`
}

type fileDebug struct {
	AudioDump *bool `yaml:"audio_dump"`
}

// Parse overlays YAML content onto base and validates the result.
//
// Unknown keys are rejected; decode errors carry the offending line.
func Parse(content string, base Config) (Config, []Warning, error) {
	cfg, err := decode(content, base)
	if err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func decode(content string, base Config) (Config, error) {
	if strings.TrimSpace(content) == "" {
		return base, nil
	}

	decoder := yaml.NewDecoder(strings.NewReader(content))
	decoder.KnownFields(true)

	var payload fileConfig
	if err := decoder.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return base, nil
		}
		return Config{}, err
	}

	var extra yaml.Node
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			return Config{}, errors.New("multiple YAML documents are not allowed")
		}
		return Config{}, err
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (payload fileConfig) applyTo(cfg *Config) error {
	if payload.Language != nil {
		cfg.Language = strings.TrimSpace(*payload.Language)
	}

	if r := payload.Recording; r != nil {
		if r.MaxSeconds != nil {
			cfg.Recording.MaxSeconds = *r.MaxSeconds
		}
		if r.SampleRateHz != nil {
			cfg.Recording.SampleRateHz = *r.SampleRateHz
		}
		if r.Channels != nil {
			cfg.Recording.Channels = *r.Channels
		}
	}

	if a := payload.Audio; a != nil {
		if a.Input != nil {
			cfg.Audio.Input = *a.Input
		}
		if a.Fallback != nil {
			cfg.Audio.Fallback = *a.Fallback
		}
	}

	if r := payload.Recognizer; r != nil {
		if r.Backend != nil {
			cfg.Recognizer.Backend = strings.ToLower(strings.TrimSpace(*r.Backend))
		}
		if r.GRPCEndpoint != nil {
			cfg.Recognizer.GRPCEndpoint = strings.TrimSpace(*r.GRPCEndpoint)
		}
		if r.Command != nil {
			command, err := newCommand(*r.Command)
			if err != nil {
				return fmt.Errorf("invalid recognizer.command: %w", err)
			}
			cfg.Recognizer.Command = command
		}
		if r.TimeoutMS != nil {
			cfg.Recognizer.TimeoutMS = *r.TimeoutMS
		}
		if r.DialTimeoutMS != nil {
			cfg.Recognizer.DialTimeoutMS = *r.DialTimeoutMS
		}
	}

	if d := payload.Display; d != nil {
		if d.Surface != nil {
			cfg.Display.Surface = strings.ToLower(strings.TrimSpace(*d.Surface))
		}
		if d.ForceRTL != nil {
			cfg.Display.ForceRTL = *d.ForceRTL
		}
		if d.MirrorBrackets != nil {
			cfg.Display.MirrorBrackets = *d.MirrorBrackets
		}
	}

	if payload.Indicator != nil && payload.Indicator.SoundEnable != nil {
		cfg.Indicator.SoundEnable = *payload.Indicator.SoundEnable
	}

	if h := payload.History; h != nil {
		if h.Enable != nil {
			cfg.History.Enable = *h.Enable
		}
		if h.Path != nil {
			cfg.History.Path = strings.TrimSpace(*h.Path)
		}
		if h.Retain != nil {
			cfg.History.Retain = *h.Retain
		}
	}

	if payload.Debug != nil && payload.Debug.AudioDump != nil {
		cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
	}

	return nil
}

func newCommand(raw string) (CommandConfig, error) {
	argv, err := parseArgv(raw)
	if err != nil {
		return CommandConfig{}, err
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}
