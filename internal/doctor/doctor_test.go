package doctor

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/barakem/voicegame/internal/audio"
	"github.com/barakem/voicegame/internal/config"
	"github.com/barakem/voicegame/internal/recognizer"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "recognizer.command")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryFound(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckRecognizerExecUsesBinaryFromPath(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "fake-stt")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/usr/bin/env sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	cfg := config.Default().Recognizer
	cfg.Backend = config.BackendExec
	cfg.Command = config.CommandConfig{Raw: "fake-stt {wav}", Argv: []string{"fake-stt", "{wav}"}}

	check := checkRecognizer(context.Background(), cfg)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "recognizer.command command is available")
}

func TestCheckRecognizerGRPCReady(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	server := grpc.NewServer()
	recognizer.RegisterServer(server, recognizer.BackendServer{
		Backend: recognizer.BackendFunc(func(context.Context, audio.Frame, string) (string, error) {
			return "", nil
		}),
	})
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	cfg := config.Default().Recognizer
	cfg.GRPCEndpoint = listener.Addr().String()

	check := checkRecognizer(context.Background(), cfg)
	require.True(t, check.Pass, check.Message)
	require.Contains(t, check.Message, "ready at")
}

func TestCheckRecognizerGRPCUnreachable(t *testing.T) {
	cfg := config.Default().Recognizer
	cfg.GRPCEndpoint = "127.0.0.1:1"
	cfg.DialTimeoutMS = 100

	check := checkRecognizer(context.Background(), cfg)
	require.False(t, check.Pass)
	require.Equal(t, "recognizer.grpc", check.Name)
}

func TestCheckRecognizerGRPCMissingEndpoint(t *testing.T) {
	cfg := config.Default().Recognizer
	cfg.GRPCEndpoint = ""

	check := checkRecognizer(context.Background(), cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "endpoint is empty")
}

func TestCheckHistory(t *testing.T) {
	check := checkHistory(context.Background(), config.HistoryConfig{Enable: false})
	require.True(t, check.Pass)
	require.Equal(t, "disabled", check.Message)

	cfg := config.HistoryConfig{Enable: true, Path: filepath.Join(t.TempDir(), "history.db")}
	check = checkHistory(context.Background(), cfg)
	require.True(t, check.Pass, check.Message)
	require.Contains(t, check.Message, "writable")
}

func TestCheckSocket(t *testing.T) {
	t.Setenv("VOICEGAME_SOCKET", "")
	t.Setenv("XDG_RUNTIME_DIR", "")
	require.False(t, checkSocket().Pass)

	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	check := checkSocket()
	require.True(t, check.Pass)
	require.Equal(t, filepath.Join(dir, "voicegame.sock"), check.Message)
}

func TestCheckAudioSelectionFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkAudioSelection(context.Background(), config.Default())
	require.False(t, check.Pass)
	require.Contains(t, check.Name, "audio.device")
}

func TestRunIncludesEveryCheck(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	cfg := config.Default()
	cfg.Recognizer.GRPCEndpoint = "127.0.0.1:1"
	cfg.Recognizer.DialTimeoutMS = 100
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.yaml", Config: cfg})
	require.False(t, report.OK())

	var names []string
	for _, check := range report.Checks {
		names = append(names, check.Name)
	}
	require.Equal(t, []string{"config", "ipc.socket", "audio.device", "recognizer.grpc", "history"}, names)
	require.Contains(t, report.String(), `loaded "/tmp/config.yaml"`)
}
