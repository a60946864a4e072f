// Package tui is the terminal display and input surface for the game.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/barakem/voicegame/internal/fsm"
	"github.com/barakem/voicegame/internal/indicator"
	"github.com/barakem/voicegame/internal/session"
	"github.com/barakem/voicegame/internal/transcript"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Controller is the part of session.Controller the terminal drives.
type Controller interface {
	Tap(ctx context.Context) (fsm.State, error)
	Cancel() error
	SetLanguage(tag string) error
	Language() session.Language
}

// ViewMsg carries a rendered session view into the program.
type ViewMsg session.View

// controlDoneMsg reports the outcome of a controller call made from a key.
type controlDoneMsg struct {
	err error
}

// Model renders the current session view.
type Model struct {
	ctx  context.Context
	ctrl Controller

	view    session.View
	notice  string
	width   int
	height  int
	keys    keyMap
	help    help.Model
	spinner spinner.Model
}

// New returns a model showing initial until the first view arrives.
func New(ctx context.Context, ctrl Controller, initial session.View) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorYellow)

	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		view:    initial,
		keys:    defaultKeyMap(),
		help:    help.New(),
		spinner: s,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tap):
			return m, m.tap()
		case key.Matches(msg, m.keys.Cancel):
			return m, m.cancel()
		case key.Matches(msg, m.keys.Language):
			return m, m.toggleLanguage()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}

	case ViewMsg:
		entering := m.view.State != fsm.StateProcessing && msg.State == fsm.StateProcessing
		m.view = session.View(msg)
		if entering {
			return m, m.spinner.Tick
		}

	case controlDoneMsg:
		m.notice = ""
		if msg.err != nil && !errors.Is(msg.err, session.ErrAlreadyActive) {
			m.notice = msg.err.Error()
		}

	case spinner.TickMsg:
		if m.view.State != fsm.StateProcessing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Current returns the view being shown.
func (m Model) Current() session.View {
	return m.view
}

func (m Model) tap() tea.Cmd {
	return func() tea.Msg {
		_, err := m.ctrl.Tap(m.ctx)
		return controlDoneMsg{err: err}
	}
}

func (m Model) cancel() tea.Cmd {
	return func() tea.Msg {
		return controlDoneMsg{err: m.ctrl.Cancel()}
	}
}

func (m Model) toggleLanguage() tea.Cmd {
	return func() tea.Msg {
		next := m.ctrl.Language().Next()
		return controlDoneMsg{err: m.ctrl.SetLanguage(next.Tag)}
	}
}

func (m Model) View() string {
	v := m.view
	tag := v.Language.Tag
	rtl := v.Language.Direction == transcript.RightToLeft

	var lines []string
	lines = append(lines, m.languageBar())
	lines = append(lines, "")

	headline := indicator.Headline(v)
	if headline != "" {
		style := headlineStyle.Foreground(stateColor(v.State))
		if v.State == fsm.StateProcessing {
			headline = m.spinner.View() + " " + headline
		}
		lines = append(lines, style.Render(headline))
	}

	switch v.State {
	case fsm.StateReady:
		lines = append(lines, promptStyle.Render(indicator.Prompt(tag)))
		if last := strings.TrimSpace(v.LastText); last != "" {
			lines = append(lines, "", lastTextStyle.Render(last))
		}
	case fsm.StateShowing:
		if strings.TrimSpace(v.DisplayText) != "" {
			lines = append(lines, transcriptStyle.Render(v.DisplayText))
		}
	}

	if m.notice != "" {
		lines = append(lines, "", noticeStyle.Render(m.notice))
	}

	body := m.align(lines, rtl)
	footer := m.help.View(m.keys)
	return lipgloss.JoinVertical(lipgloss.Left, body, "", footer)
}

func (m Model) languageBar() string {
	var parts []string
	for _, lang := range session.Languages() {
		name := indicator.Text(lang.Tag, indicator.KeyLanguageName)
		if lang.Tag == m.view.Language.Tag {
			parts = append(parts, languageActiveStyle.Render("["+name+"]"))
			continue
		}
		parts = append(parts, languageIdleStyle.Render(" "+name+" "))
	}
	return strings.Join(parts, " ")
}

// align right-aligns every line for RTL languages when the width is known.
func (m Model) align(lines []string, rtl bool) string {
	position := lipgloss.Left
	if rtl {
		position = lipgloss.Right
	}
	block := lipgloss.JoinVertical(position, lines...)
	if m.width <= 0 {
		return block
	}
	return lipgloss.PlaceHorizontal(m.width, position, block)
}
