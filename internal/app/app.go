// Package app wires config, logging, IPC, the session controller and its
// surfaces behind the CLI command tree.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/barakem/voicegame/internal/audio"
	"github.com/barakem/voicegame/internal/cli"
	"github.com/barakem/voicegame/internal/config"
	"github.com/barakem/voicegame/internal/doctor"
	"github.com/barakem/voicegame/internal/history"
	"github.com/barakem/voicegame/internal/indicator"
	"github.com/barakem/voicegame/internal/ipc"
	"github.com/barakem/voicegame/internal/logging"
	"github.com/barakem/voicegame/internal/pipeline"
	"github.com/barakem/voicegame/internal/recognizer"
	"github.com/barakem/voicegame/internal/session"
	"github.com/barakem/voicegame/internal/transcript"
	"github.com/barakem/voicegame/internal/tui"
	"google.golang.org/grpc"
)

const (
	forwardTimeout = 220 * time.Millisecond
	probeTimeout   = 180 * time.Millisecond
	acquireRetries = 8
)

var errDoctorFailed = errors.New("one or more checks failed")

// SurfaceFunc runs the interactive surface until the user quits.
type SurfaceFunc func(ctx context.Context, ctrl *session.Controller, bridge *tui.Bridge, initial session.View) error

// Runner executes CLI commands against real process IO.
type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	// Surface replaces the terminal UI. Nil runs the bubbletea program.
	Surface SurfaceFunc
}

// Execute parses args, runs the command and returns the exit code.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	r := Runner{Stdin: stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	return cli.Execute(ctx, r, args, r.Stdin, r.Stdout, r.Stderr)
}

// env is the per-command runtime: loaded config plus the process logger.
type env struct {
	loaded config.Loaded
	logger *slog.Logger
	close  func()
}

func (r Runner) prepare(g cli.Globals, command string) (env, error) {
	level, err := logging.ParseLevel(g.LogLevel)
	if err != nil {
		return env{}, cli.AsUsage(err)
	}

	cfgLoaded, err := config.Load(g.ConfigPath)
	if err != nil {
		return env{}, cli.AsUsage(err)
	}

	logger := r.Logger
	closeFn := func() {}
	if logger == nil {
		logRuntime, err := logging.New(level)
		if err != nil {
			return env{}, fmt.Errorf("setup logging: %w", err)
		}
		logger = logRuntime.Logger
		closeFn = func() { _ = logRuntime.Close() }
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", command,
		"config", cfgLoaded.Path,
		"config_exists", cfgLoaded.Exists,
	)
	return env{loaded: cfgLoaded, logger: logger, close: closeFn}, nil
}

// Run owns the control socket and drives the interactive game.
func (r Runner) Run(ctx context.Context, g cli.Globals) error {
	e, err := r.prepare(g, "run")
	if err != nil {
		return err
	}
	defer e.close()
	cfg := e.loaded.Config
	logger := e.logger

	socketPath, err := ipc.SocketPath()
	if err != nil {
		return err
	}
	listener, err := ipc.Acquire(ctx, socketPath, probeTimeout, acquireRetries, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			return fmt.Errorf("%w: use `voicegame tap` to drive it", err)
		}
		return err
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	p, err := pipeline.Build(cfg, logger)
	if err != nil {
		return cli.AsUsage(err)
	}
	defer func() { _ = p.Close() }()

	store, err := history.Open(ctx, cfg.History, logger)
	if err != nil {
		logger.Warn("history unavailable", "error", err.Error())
		store, _ = history.Open(ctx, config.HistoryConfig{}, logger)
	}
	defer func() { _ = store.Close() }()

	language, ok := session.LookupLanguage(cfg.Language)
	if !ok {
		return cli.Usagef("unsupported language %q", cfg.Language)
	}

	cues := indicator.NewCues(cfg.Indicator, logger)
	defer func() { _ = cues.Close() }()
	bridge := tui.NewBridge()

	controller := session.NewController(logger, p.Microphone, p.Backend, session.Renderers{bridge, cues}, session.Options{
		MaxRecording:       cfg.Recording.MaxDuration(),
		RecognitionTimeout: cfg.Recognizer.Timeout(),
		Language:           language,
		Normalize:          normalizeOptions(cfg.Display),
		Commit:             store,
	})
	defer func() { _ = controller.Close() }()

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, controller, ipc.WithLogger(logger))
	}()

	logger.Info("game start",
		"socket", socketPath,
		"language", language.Tag,
		"backend", cfg.Recognizer.Backend,
		"max_seconds", cfg.Recording.MaxSeconds,
	)

	controller.Redraw()
	initial := session.View{State: controller.State(), Language: controller.Language()}
	surfaceErr := r.surface()(ctx, controller, bridge, initial)

	serverCancel()
	serverErr := <-serverErrCh

	logSessionResult(logger, controller.Snapshot())
	if surfaceErr != nil {
		return surfaceErr
	}
	if serverErr != nil {
		return fmt.Errorf("ipc server failed: %w", serverErr)
	}
	return nil
}

func (r Runner) surface() SurfaceFunc {
	if r.Surface != nil {
		return r.Surface
	}
	return func(ctx context.Context, ctrl *session.Controller, bridge *tui.Bridge, initial session.View) error {
		return tui.Run(ctx, ctrl, bridge, initial, tui.Options{
			AltScreen: true,
			Input:     r.Stdin,
			Output:    r.Stdout,
		})
	}
}

// Forward sends one IPC command to the running game.
func (r Runner) Forward(ctx context.Context, g cli.Globals, command string, arg string) error {
	e, err := r.prepare(g, command)
	if err != nil {
		return err
	}
	defer e.close()

	socketPath, err := ipc.SocketPath()
	if err != nil {
		if command == ipc.CommandStatus {
			fmt.Fprintln(r.Stdout, "idle")
			return nil
		}
		return err
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: command, Arg: arg})
	if !handled {
		if command == ipc.CommandStatus {
			fmt.Fprintln(r.Stdout, "idle")
			return nil
		}
		return errors.New("no running voicegame")
	}
	if err != nil {
		return err
	}

	switch command {
	case ipc.CommandStatus:
		state := resp.State
		if state == "" {
			state = "idle"
		}
		fmt.Fprintln(r.Stdout, state)
		if resp.Text != "" {
			fmt.Fprintln(r.Stdout, resp.Text)
		}
	case ipc.CommandLanguage:
		fmt.Fprintln(r.Stdout, resp.Language)
	default:
		if resp.Message != "" {
			fmt.Fprintln(r.Stdout, resp.Message)
		}
	}
	return nil
}

// Devices lists Pulse sources.
func (r Runner) Devices(ctx context.Context, g cli.Globals) error {
	e, err := r.prepare(g, "devices")
	if err != nil {
		return err
	}
	defer e.close()

	devices, err := audio.ListDevices(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return errors.New("no audio devices found")
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}
	return nil
}

// Normalize prints the logical and display forms of text.
func (r Runner) Normalize(_ context.Context, g cli.Globals, text string, surface string) error {
	e, err := r.prepare(g, "normalize")
	if err != nil {
		return err
	}
	defer e.close()

	opts := normalizeOptions(e.loaded.Config.Display)
	if strings.TrimSpace(surface) != "" {
		direction, ok := transcript.ParseDirection(surface)
		if !ok {
			return cli.Usagef("--surface must be ltr or rtl, got %q", surface)
		}
		opts.Surface = direction
	}

	result := transcript.Normalize(text, opts)
	fmt.Fprintf(r.Stdout, "logical: %s\n", result.LogicalText)
	fmt.Fprintf(r.Stdout, "display: %s\n", result.DisplayText)
	fmt.Fprintf(r.Stdout, "direction: %s\n", result.Direction)
	return nil
}

// History prints recent sessions, newest first.
func (r Runner) History(ctx context.Context, g cli.Globals, limit int) error {
	e, err := r.prepare(g, "history")
	if err != nil {
		return err
	}
	defer e.close()

	store, err := history.Open(ctx, e.loaded.Config.History, e.logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(r.Stdout, "no sessions recorded")
		return nil
	}
	for _, entry := range entries {
		outcome := entry.DisplayText
		if entry.ErrorKind != "" {
			outcome = string(entry.ErrorKind)
		}
		fmt.Fprintf(r.Stdout, "%s  %-5s  %-7s  %5dms  %s\n",
			entry.FinishedAt.Local().Format(time.DateTime),
			entry.Language,
			entry.State,
			entry.Latency().Milliseconds(),
			outcome,
		)
	}
	return nil
}

// Doctor prints the readiness report.
func (r Runner) Doctor(ctx context.Context, g cli.Globals) error {
	e, err := r.prepare(g, "doctor")
	if err != nil {
		return err
	}
	defer e.close()

	report := doctor.Run(ctx, e.loaded)
	fmt.Fprintln(r.Stdout, report.String())
	if !report.OK() {
		return errDoctorFailed
	}
	return nil
}

// ServeRecognizer exposes the configured exec recognizer over gRPC until ctx ends.
func (r Runner) ServeRecognizer(ctx context.Context, g cli.Globals, listen string) error {
	e, err := r.prepare(g, "serve-recognizer")
	if err != nil {
		return err
	}
	defer e.close()

	backend, err := pipeline.NewExecBackend(e.loaded.Config.Recognizer)
	if err != nil {
		return cli.Usagef("serve-recognizer needs recognizer.command: %w", err)
	}

	lis, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", listen, err)
	}

	server := recognizer.NewServer(recognizer.BackendServer{Backend: backend, Logger: e.logger}, e.logger)
	go func() {
		<-ctx.Done()
		server.GracefulStop()
	}()

	fmt.Fprintf(r.Stdout, "serving %s on %s\n", recognizer.ServiceName, lis.Addr())
	e.logger.Info("recognizer server start", "addr", lis.Addr().String(), "command", backend.Argv()[0])

	if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve recognizer: %w", err)
	}
	return nil
}

func normalizeOptions(display config.DisplayConfig) transcript.Options {
	surface, _ := transcript.ParseDirection(display.Surface)
	return transcript.Options{
		Surface:        surface,
		ForceRTL:       display.ForceRTL,
		MirrorBrackets: display.MirrorBrackets,
	}
}

func logSessionResult(logger *slog.Logger, last session.Session) {
	if logger == nil {
		return
	}
	if last.ID == "" {
		logger.Info("game exit", "sessions", 0)
		return
	}
	logger.Info("game exit",
		"last_session_id", last.ID,
		"generations", last.Generation,
		"last_state", last.State,
		"last_error", last.ErrorKind,
	)
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
