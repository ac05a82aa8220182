package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ksdme/cursorkeep/internal/refresh"
	reg "github.com/ksdme/cursorkeep/internal/register"
	"github.com/ksdme/cursorkeep/internal/store"
	"github.com/ksdme/cursorkeep/internal/tui/colors"
	"github.com/ksdme/cursorkeep/internal/tui/components/help"
	"github.com/ksdme/cursorkeep/internal/tui/manage"
	"github.com/ksdme/cursorkeep/internal/tui/register"
)

type mode int

const (
	Manage mode = iota
	Register
)

// Represents the top most model.
type Model struct {
	mode     mode
	manage   manage.Model
	register register.Model

	renderer *lipgloss.Renderer
	colors   colors.ColorPalette

	keymap KeyMap

	width  int
	height int

	quitting bool
}

func NewModel(
	s *store.Store,
	worker *refresh.Worker,
	registrar reg.Registrar,
	dir string,
	domain string,
) Model {
	renderer := lipgloss.DefaultRenderer()
	palette := colors.Detect()

	return Model{
		mode:     Manage,
		manage:   manage.NewModel(s, worker, dir, renderer, palette),
		register: register.NewModel(s, registrar, dir, domain, renderer, palette),

		renderer: renderer,
		colors:   palette,

		keymap: DefaultKeyMap(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.manage.Init(),
		m.register.Init(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		m.manage.Width = m.width - 12
		m.manage.Height = m.height - 8
		m.register.Width = m.width - 12
		m.register.Height = m.height - 8

		// Both screens need to know about resizes.
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.manage, cmd = m.manage.Update(msg)
		cmds = append(cmds, cmd)
		m.register, cmd = m.register.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keymap.Switch):
			if m.mode == Manage {
				m.mode = Register
			} else {
				m.mode = Manage
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.mode {
	case Manage:
		m.manage, cmd = m.manage.Update(msg)
	case Register:
		m.register, cmd = m.register.Update(msg)
	}
	return m, cmd
}

func (m Model) View() string {
	// This lets us not leave behind lines at the end.
	if m.quitting {
		return ""
	}

	var view string
	var bindings []key.Binding
	switch m.mode {
	case Manage:
		view = m.manage.View()
		bindings = m.manage.Help()
	case Register:
		view = m.register.View()
		bindings = m.register.Help()
	}
	bindings = append(bindings, m.keymap.Switch, m.keymap.Quit)

	title := m.renderer.
		NewStyle().
		Width(m.width - 12).
		Align(lipgloss.Center).
		PaddingBottom(2).
		Foreground(m.colors.Muted).
		Render("cursorkeep")

	footer := m.renderer.
		NewStyle().
		PaddingTop(1).
		Render(help.View(bindings, m.renderer, m.colors))

	return lipgloss.
		NewStyle().
		Padding(2, 6).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Top,
				title,
				view,
				footer,
			),
		)
}

type KeyMap struct {
	Switch key.Binding
	Quit   key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Switch: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch screen"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}
