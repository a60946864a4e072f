package tui

import (
	"context"
	"fmt"
	"io"

	"github.com/barakem/voicegame/internal/session"
	tea "github.com/charmbracelet/bubbletea"
)

// Options controls the terminal program.
type Options struct {
	AltScreen bool
	Input     io.Reader
	Output    io.Writer
}

// Run drives the terminal until the user quits or ctx is cancelled.
func Run(ctx context.Context, ctrl Controller, bridge *Bridge, initial session.View, opts Options) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	programOpts := []tea.ProgramOption{tea.WithContext(runCtx)}
	if opts.AltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	if opts.Input != nil {
		programOpts = append(programOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(opts.Output))
	}

	program := tea.NewProgram(New(runCtx, ctrl, initial), programOpts...)
	go bridge.Forward(runCtx, program.Send)

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}
