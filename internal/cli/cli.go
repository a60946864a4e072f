// Package cli defines the voicegame command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/barakem/voicegame/internal/ipc"
	"github.com/barakem/voicegame/internal/version"
	"github.com/spf13/cobra"
)

const (
	defaultHistoryLimit = 10
	defaultListen       = "127.0.0.1:50061"
)

// Globals are the persistent flags shared by every command.
type Globals struct {
	ConfigPath string
	LogLevel   string
}

// Handlers runs commands once arguments are parsed.
type Handlers interface {
	Run(ctx context.Context, g Globals) error
	Forward(ctx context.Context, g Globals, command string, arg string) error
	Devices(ctx context.Context, g Globals) error
	Normalize(ctx context.Context, g Globals, text string, surface string) error
	History(ctx context.Context, g Globals, limit int) error
	Doctor(ctx context.Context, g Globals) error
	ServeRecognizer(ctx context.Context, g Globals, listen string) error
}

// NewRoot builds the command tree bound to h.
func NewRoot(h Handlers, stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var g Globals

	root := &cobra.Command{
		Use:   "voicegame",
		Short: "Tap-to-speak word game for toddlers",
		Long: `voicegame records a short utterance, recognizes it, and shows the words
back in large type. Hebrew is shown right-to-left; English left-to-right.

Run without a command to start the interactive game. The tap, status, cancel
and language commands drive a running game over its control socket.`,
		Version:       version.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return h.Run(cmd.Context(), g)
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("{{.Version}}\n")
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return AsUsage(err)
	})

	root.PersistentFlags().StringVar(&g.ConfigPath, "config", "", "config file path (default: $XDG_CONFIG_HOME/voicegame/config.yaml)")
	root.PersistentFlags().StringVar(&g.LogLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Start the interactive game (default)",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return h.Run(cmd.Context(), g)
			},
		},
		forwardCommand(h, &g, ipc.CommandTap, "Tap the running game: start, stop, or dismiss"),
		forwardCommand(h, &g, ipc.CommandStatus, "Print the running game's state"),
		forwardCommand(h, &g, ipc.CommandCancel, "Abort the current recording or recognition"),
		&cobra.Command{
			Use:   "language <code>",
			Short: "Switch the running game's language (he-IL, en-US)",
			Args:  usageArgs(cobra.ExactArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				return h.Forward(cmd.Context(), g, ipc.CommandLanguage, strings.TrimSpace(args[0]))
			},
		},
		&cobra.Command{
			Use:   "devices",
			Short: "List audio input sources",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return h.Devices(cmd.Context(), g)
			},
		},
		normalizeCommand(h, &g),
		historyCommand(h, &g),
		&cobra.Command{
			Use:   "doctor",
			Short: "Check config, audio and recognizer readiness",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return h.Doctor(cmd.Context(), g)
			},
		},
		serveRecognizerCommand(h, &g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), version.String())
				return nil
			},
		},
	)
	return root
}

// Execute runs args against h and returns the process exit code.
func Execute(ctx context.Context, h Handlers, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := NewRoot(h, stdin, stdout, stderr)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	code := ExitCode(err)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		if code == ExitUsage {
			fmt.Fprintln(stderr)
			fmt.Fprint(stderr, root.UsageString())
		}
	}
	return code
}

func forwardCommand(h Handlers, g *Globals, command string, short string) *cobra.Command {
	return &cobra.Command{
		Use:   command,
		Short: short,
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return h.Forward(cmd.Context(), *g, command, "")
		},
	}
}

func normalizeCommand(h Handlers, g *Globals) *cobra.Command {
	var surface string
	cmd := &cobra.Command{
		Use:   "normalize [text...]",
		Short: "Strip niqqud and reorder text for display",
		Long: `normalize runs a transcript through the display pipeline and prints the
logical and display forms. Text comes from the arguments, or stdin when none
are given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(raw)
			}
			return h.Normalize(cmd.Context(), *g, text, surface)
		},
	}
	cmd.Flags().StringVar(&surface, "surface", "", "display surface direction: ltr or rtl (default from config)")
	return cmd
}

func historyCommand(h Handlers, g *Globals) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sessions",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return Usagef("--limit must be positive")
			}
			return h.History(cmd.Context(), *g, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "number of sessions to show")
	return cmd
}

func serveRecognizerCommand(h Handlers, g *Globals) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve-recognizer",
		Short: "Expose the exec recognizer as a gRPC Recognizer service",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(listen) == "" {
				return Usagef("--listen is required")
			}
			return h.ServeRecognizer(cmd.Context(), *g, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", defaultListen, "tcp address to listen on")
	return cmd
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		if cmd.HasSubCommands() {
			return Usagef("unknown command %q for %q", args[0], cmd.CommandPath())
		}
		return Usagef("%q accepts no arguments, got %q", cmd.CommandPath(), args[0])
	}
	return nil
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return AsUsage(validate(cmd, args))
	}
}
