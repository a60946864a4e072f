package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// applyEnvOverrides lets VOICEGAME_* variables win over the file.
func applyEnvOverrides(cfg *Config) error {
	overrideString(&cfg.Language, "VOICEGAME_LANGUAGE")
	overrideInt(&cfg.Recording.MaxSeconds, "VOICEGAME_MAX_SECONDS")
	overrideString(&cfg.Audio.Input, "VOICEGAME_AUDIO_INPUT")
	overrideString(&cfg.Recognizer.Backend, "VOICEGAME_RECOGNIZER_BACKEND")
	overrideString(&cfg.Recognizer.GRPCEndpoint, "VOICEGAME_RECOGNIZER_ENDPOINT")
	overrideInt(&cfg.Recognizer.TimeoutMS, "VOICEGAME_RECOGNIZER_TIMEOUT_MS")
	overrideBool(&cfg.Indicator.SoundEnable, "VOICEGAME_SOUND_ENABLE")
	overrideBool(&cfg.History.Enable, "VOICEGAME_HISTORY_ENABLE")

	if value, ok := os.LookupEnv("VOICEGAME_RECOGNIZER_COMMAND"); ok && strings.TrimSpace(value) != "" {
		command, err := newCommand(value)
		if err != nil {
			return fmt.Errorf("invalid VOICEGAME_RECOGNIZER_COMMAND: %w", err)
		}
		cfg.Recognizer.Command = command
	}
	return nil
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			*target = parsed
		}
	}
}
