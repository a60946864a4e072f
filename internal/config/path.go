package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	fileName = "config.yaml"
	// PathEnv names a config file when --config is not given.
	PathEnv = "VOICEGAME_CONFIG"
)

// ResolvePath picks the config file: --config, then $VOICEGAME_CONFIG, then
// the XDG config dir, then ~/.config. A leading "~/" is expanded.
func ResolvePath(explicit string) (string, error) {
	for _, candidate := range []string{explicit, os.Getenv(PathEnv)} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			return expandHome(candidate)
		}
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "voicegame", fileName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "voicegame", fileName), nil
}

func expandHome(path string) (string, error) {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for ~ in config path")
	}
	return filepath.Join(home, rest), nil
}
