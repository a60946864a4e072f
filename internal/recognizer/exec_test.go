package recognizer

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/barakem/voicegame/internal/audio"
)

// TestExecHelperProcess acts as a fake recognizer command.
func TestExecHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}

	switch os.Getenv("VOICEGAME_HELPER_MODE") {
	case "json":
		fmt.Fprint(os.Stdout, `{"text":"כלב"}`)
	case "segments":
		fmt.Fprint(os.Stdout, `{"segments":["שלום"," עולם "]}`)
	case "plain":
		fmt.Fprintln(os.Stdout, "  hello  ")
		fmt.Fprintln(os.Stdout, "world")
	case "args":
		fmt.Fprint(os.Stdout, strings.Join(args[1:], "|"))
	case "inspect":
		frame, err := readHelperWAV(args[0])
		if err != nil {
			fmt.Fprint(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stdout, "%d@%d", frame.Len(), frame.SampleRate())
	case "empty":
	case "bad-json":
		fmt.Fprint(os.Stdout, `{"text":`)
	case "sleep":
		time.Sleep(5 * time.Second)
	default:
		if code, ok := helperExitCodes[os.Getenv("VOICEGAME_HELPER_MODE")]; ok {
			fmt.Fprint(os.Stderr, "helper failure")
			os.Exit(code)
		}
	}
	os.Exit(0)
}

var helperExitCodes = map[string]int{
	"exit-no-speech": ExitNoSpeech,
	"exit-network":   ExitNetwork,
	"exit-quota":     ExitQuotaOrAuth,
	"exit-other":     9,
}

func readHelperWAV(path string) (audio.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return audio.Frame{}, err
	}
	defer file.Close()
	return audio.DecodeWAV(file)
}

func helperBackend(t *testing.T, mode string, extra string) *ExecBackend {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	t.Setenv("VOICEGAME_HELPER_MODE", mode)

	command := fmt.Sprintf("'%s' -test.run=TestExecHelperProcess -- {wav} %s", os.Args[0], extra)
	backend, err := NewExecBackend(ExecConfig{Command: command, TempDir: t.TempDir()})
	require.NoError(t, err)
	return backend
}

func TestNewExecBackendRejectsEmptyCommand(t *testing.T) {
	_, err := NewExecBackend(ExecConfig{Command: "   "})
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty")
}

func TestNewExecBackendRejectsUnbalancedQuotes(t *testing.T) {
	_, err := NewExecBackend(ExecConfig{Command: `whisper "unterminated`})
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse recognizer command")
}

func TestExpandArgs(t *testing.T) {
	got := expandArgs([]string{"stt", "--lang={lang}", "--in", "{wav}"}, "/tmp/a.wav", "he-IL")
	require.Equal(t, []string{"stt", "--lang=he-IL", "--in", "/tmp/a.wav"}, got)

	appended := expandArgs([]string{"stt", "--lang", "{lang}"}, "/tmp/a.wav", "en-US")
	require.Equal(t, []string{"stt", "--lang", "en-US", "/tmp/a.wav"}, appended)
}

func TestExecBackendJSONOutput(t *testing.T) {
	backend := helperBackend(t, "json", "")
	text, err := backend.Transcribe(context.Background(), testFrame(), "he-IL")
	require.NoError(t, err)
	require.Equal(t, "כלב", text)
}

func TestExecBackendSegmentsOutput(t *testing.T) {
	backend := helperBackend(t, "segments", "")
	text, err := backend.Transcribe(context.Background(), testFrame(), "he-IL")
	require.NoError(t, err)
	require.Equal(t, "שלום עולם", text)
}

func TestExecBackendPlainOutput(t *testing.T) {
	backend := helperBackend(t, "plain", "")
	text, err := backend.Transcribe(context.Background(), testFrame(), "en-US")
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
}

func TestExecBackendEmptyOutputIsSuccess(t *testing.T) {
	backend := helperBackend(t, "empty", "")
	text, err := backend.Transcribe(context.Background(), testFrame(), "he-IL")
	require.NoError(t, err)
	require.Empty(t, text)
}

func TestExecBackendPassesLanguage(t *testing.T) {
	backend := helperBackend(t, "args", "--language {lang}")
	text, err := backend.Transcribe(context.Background(), testFrame(), "en-US")
	require.NoError(t, err)
	require.Equal(t, "--language|en-US", text)
}

func TestExecBackendWritesReadableWAV(t *testing.T) {
	backend := helperBackend(t, "inspect", "")
	text, err := backend.Transcribe(context.Background(), testFrame(), "he-IL")
	require.NoError(t, err)
	require.Equal(t, "1600@16000", text)
}

func TestExecBackendRemovesTempFile(t *testing.T) {
	backend := helperBackend(t, "json", "")
	_, err := backend.Transcribe(context.Background(), testFrame(), "he-IL")
	require.NoError(t, err)

	entries, err := os.ReadDir(backend.tempDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestExecBackendExitCodes(t *testing.T) {
	tests := []struct {
		mode string
		want Kind
	}{
		{mode: "exit-no-speech", want: KindNoSpeech},
		{mode: "exit-network", want: KindNetwork},
		{mode: "exit-quota", want: KindQuotaOrAuth},
		{mode: "exit-other", want: KindUnknown},
		{mode: "bad-json", want: KindUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.mode, func(t *testing.T) {
			backend := helperBackend(t, tc.mode, "")
			_, err := backend.Transcribe(context.Background(), testFrame(), "he-IL")
			require.Error(t, err)
			require.Equal(t, tc.want, KindOf(err))
		})
	}
}

func TestExecBackendIncludesStderr(t *testing.T) {
	backend := helperBackend(t, "exit-other", "")
	_, err := backend.Transcribe(context.Background(), testFrame(), "he-IL")
	require.Error(t, err)
	require.Contains(t, err.Error(), "helper failure")
}

func TestExecBackendTimeoutIsNetwork(t *testing.T) {
	backend := helperBackend(t, "sleep", "")
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := backend.Transcribe(ctx, testFrame(), "he-IL")
	require.Error(t, err)
	require.Equal(t, KindNetwork, KindOf(err))
}

func TestExecBackendMissingBinaryIsUnknown(t *testing.T) {
	backend, err := NewExecBackend(ExecConfig{Command: "/nonexistent/voicegame-stt {wav}", TempDir: t.TempDir()})
	require.NoError(t, err)

	_, err = backend.Transcribe(context.Background(), testFrame(), "he-IL")
	require.Error(t, err)
	require.Equal(t, KindUnknown, KindOf(err))
}
