package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"

	"github.com/barakem/voicegame/internal/audio"
	"github.com/barakem/voicegame/internal/transcript"
)

// Exit codes an exec recognizer uses to report classified failures.
const (
	ExitNoSpeech    = 3
	ExitNetwork     = 4
	ExitQuotaOrAuth = 5
)

const (
	placeholderWAV      = "{wav}"
	placeholderLanguage = "{lang}"
)

// ExecConfig controls the command-line recognizer.
type ExecConfig struct {
	Command string
	TempDir string
}

// ExecBackend runs a local command per utterance.
//
// The command receives a 16-bit WAV path through {wav} (appended when absent)
// and the language tag through {lang}. Stdout is either {"text": "..."} JSON
// or plain text.
type ExecBackend struct {
	argv    []string
	tempDir string
	mu      sync.Mutex
}

type execResult struct {
	Text     string   `json:"text"`
	Segments []string `json:"segments"`
}

// NewExecBackend parses cfg.Command with shell quoting rules.
func NewExecBackend(cfg ExecConfig) (*ExecBackend, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse recognizer command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("recognizer command is empty")
	}
	return &ExecBackend{argv: args, tempDir: cfg.TempDir}, nil
}

// Argv returns a copy of the parsed command template.
func (b *ExecBackend) Argv() []string {
	return append([]string(nil), b.argv...)
}

// Transcribe implements Backend.
func (b *ExecBackend) Transcribe(ctx context.Context, frame audio.Frame, language string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	file, err := os.CreateTemp(b.tempDir, "voicegame_stt_*.wav")
	if err != nil {
		return "", Unknown(fmt.Errorf("temp file: %w", err))
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := audio.EncodeWAV(file, frame); err != nil {
		return "", Unknown(err)
	}

	args := expandArgs(b.argv, file.Name(), language)
	command := exec.CommandContext(ctx, args[0], args[1:]...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", classifyRun(ctx, err, stderr.String())
	}
	return parseOutput(stdout.Bytes())
}

func expandArgs(template []string, wavPath string, language string) []string {
	args := make([]string, 0, len(template)+1)
	sawWAV := false
	for _, arg := range template {
		if strings.Contains(arg, placeholderWAV) {
			sawWAV = true
		}
		arg = strings.ReplaceAll(arg, placeholderWAV, wavPath)
		arg = strings.ReplaceAll(arg, placeholderLanguage, language)
		args = append(args, arg)
	}
	if !sawWAV {
		args = append(args, wavPath)
	}
	return args
}

func classifyRun(ctx context.Context, err error, stderr string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Network(fmt.Errorf("recognizer command interrupted: %w", ctxErr))
	}

	detail := strings.TrimSpace(stderr)
	wrapped := fmt.Errorf("recognizer command failed: %w", err)
	if detail != "" {
		wrapped = fmt.Errorf("recognizer command failed: %w: %s", err, detail)
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return Unknown(wrapped)
	}
	switch exitErr.ExitCode() {
	case ExitNoSpeech:
		return NoSpeech(wrapped)
	case ExitNetwork:
		return Network(wrapped)
	case ExitQuotaOrAuth:
		return QuotaOrAuth(wrapped)
	default:
		return Unknown(wrapped)
	}
}

func parseOutput(stdout []byte) (string, error) {
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 {
		return "", nil
	}
	if trimmed[0] != '{' {
		return transcript.Assemble(strings.Split(string(trimmed), "\n")), nil
	}

	var resp execResult
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return "", Unknown(fmt.Errorf("decode recognizer response: %w", err))
	}
	if len(resp.Segments) > 0 {
		return transcript.Assemble(resp.Segments), nil
	}
	return resp.Text, nil
}
