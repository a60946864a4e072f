// Package doctor runs readiness diagnostics for config, audio, recognizer and storage.
package doctor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/barakem/voicegame/internal/audio"
	"github.com/barakem/voicegame/internal/config"
	"github.com/barakem/voicegame/internal/history"
	"github.com/barakem/voicegame/internal/ipc"
	"github.com/barakem/voicegame/internal/pipeline"
)

const recognizerProbeTimeout = 3 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes config, socket, audio, recognizer and history checks.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q (%d warnings)", cfg.Path, len(cfg.Warnings)),
	}}

	checks = append(checks, checkSocket())
	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	checks = append(checks, checkRecognizer(ctx, cfg.Config.Recognizer))
	checks = append(checks, checkHistory(ctx, cfg.Config.History))

	return Report{Checks: checks}
}

// checkSocket resolves the control socket path used by tap/status/cancel.
func checkSocket() Check {
	path, err := ipc.SocketPath()
	if err != nil {
		return Check{Name: "ipc.socket", Pass: false, Message: err.Error()}
	}
	return Check{Name: "ipc.socket", Pass: true, Message: path}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %s", pipeline.DescribeDevice(selection.Device))
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkRecognizer probes the gRPC endpoint or looks up the exec binary.
func checkRecognizer(ctx context.Context, cfg config.RecognizerConfig) Check {
	if strings.EqualFold(strings.TrimSpace(cfg.Backend), config.BackendExec) {
		return checkCommand(cfg.Command.Argv, "recognizer.command")
	}

	backend, err := pipeline.NewBackend(cfg)
	if err != nil {
		return Check{Name: "recognizer.grpc", Pass: false, Message: err.Error()}
	}
	if closer, ok := backend.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	probeCtx, cancel := context.WithTimeout(ctx, recognizerProbeTimeout)
	defer cancel()
	if _, err := pipeline.CheckReady(probeCtx, backend); err != nil {
		return Check{Name: "recognizer.grpc", Pass: false, Message: fmt.Sprintf("%s: %v", cfg.GRPCEndpoint, err)}
	}
	return Check{Name: "recognizer.grpc", Pass: true, Message: fmt.Sprintf("ready at %s", cfg.GRPCEndpoint)}
}

// checkHistory opens the history store to confirm the path is writable.
func checkHistory(ctx context.Context, cfg config.HistoryConfig) Check {
	if !cfg.Enable {
		return Check{Name: "history", Pass: true, Message: "disabled"}
	}
	store, err := history.Open(ctx, cfg, nil)
	if err != nil {
		return Check{Name: "history", Pass: false, Message: err.Error()}
	}
	defer store.Close()

	entries, err := store.List(ctx, 1)
	if err != nil {
		return Check{Name: "history", Pass: false, Message: err.Error()}
	}
	return Check{Name: "history", Pass: true, Message: fmt.Sprintf("writable (%d recent)", len(entries))}
}
