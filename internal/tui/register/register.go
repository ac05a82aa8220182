package register

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ksdme/cursorkeep/internal/backup"
	reg "github.com/ksdme/cursorkeep/internal/register"
	"github.com/ksdme/cursorkeep/internal/session"
	"github.com/ksdme/cursorkeep/internal/store"
	"github.com/ksdme/cursorkeep/internal/tui/colors"
)

type RegisteredMsg struct {
	Email string
	Path  string
}

type registerFailedMsg struct {
	Err error
}

const (
	fieldDomain = iota
	fieldEmail
	fieldPassword
	fieldCount
)

// The screen that creates a new account through the external
// registration helper and backs it up right away.
type Model struct {
	store     *store.Store
	registrar reg.Registrar
	dir       string

	inputs  []textinput.Model
	focused int

	status string
	failed bool
	busy   bool

	Width    int
	Height   int
	KeyMap   KeyMap
	Renderer *lipgloss.Renderer
	Colors   colors.ColorPalette
}

func NewModel(
	s *store.Store,
	registrar reg.Registrar,
	dir string,
	domain string,
	renderer *lipgloss.Renderer,
	palette colors.ColorPalette,
) Model {
	inputs := make([]textinput.Model, fieldCount)
	for index := range inputs {
		input := textinput.New()
		input.CharLimit = 128
		input.Width = 48
		inputs[index] = input
	}

	inputs[fieldDomain].Placeholder = "domain"
	inputs[fieldDomain].SetValue(domain)
	inputs[fieldEmail].Placeholder = "email"
	inputs[fieldPassword].Placeholder = "password"

	inputs[fieldDomain].Focus()

	return Model{
		store:     s,
		registrar: registrar,
		dir:       dir,

		inputs: inputs,

		Width:    80,
		Height:   24,
		KeyMap:   DefaultKeyMap(),
		Renderer: renderer,
		Colors:   palette,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}

		switch {
		case key.Matches(msg, m.KeyMap.Next):
			m.focus((m.focused + 1) % fieldCount)
			return m, nil

		case key.Matches(msg, m.KeyMap.Generate):
			email, password, err := reg.GenerateCredentials(m.inputs[fieldDomain].Value())
			if err != nil {
				m.status = err.Error()
				m.failed = true
				return m, nil
			}

			m.inputs[fieldEmail].SetValue(email)
			m.inputs[fieldPassword].SetValue(password)
			m.status = "generated credentials"
			m.failed = false
			return m, nil

		case key.Matches(msg, m.KeyMap.Submit):
			email := m.inputs[fieldEmail].Value()
			password := m.inputs[fieldPassword].Value()
			domain := m.inputs[fieldDomain].Value()
			if email == "" || password == "" {
				m.status = "an email and a password are required"
				m.failed = true
				return m, nil
			}

			m.busy = true
			m.status = "registering " + email
			m.failed = false
			return m, m.register(domain, email, password)
		}

	case RegisteredMsg:
		m.busy = false
		m.status = fmt.Sprintf("registered %s, backed up to %s", msg.Email, msg.Path)
		m.failed = false
		m.inputs[fieldEmail].SetValue("")
		m.inputs[fieldPassword].SetValue("")
		return m, nil

	case registerFailedMsg:
		m.busy = false
		m.status = msg.Err.Error()
		m.failed = true
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	return m, cmd
}

func (m Model) View() string {
	label := m.Renderer.NewStyle().
		Foreground(m.Colors.Muted).
		Width(10)

	rows := []string{
		lipgloss.JoinHorizontal(lipgloss.Left, label.Render("Domain"), m.inputs[fieldDomain].View()),
		lipgloss.JoinHorizontal(lipgloss.Left, label.Render("Email"), m.inputs[fieldEmail].View()),
		lipgloss.JoinHorizontal(lipgloss.Left, label.Render("Password"), m.inputs[fieldPassword].View()),
	}

	status := m.Renderer.NewStyle().Foreground(m.Colors.Muted)
	if m.failed {
		status = status.Foreground(m.Colors.Error)
	}

	return lipgloss.JoinVertical(
		lipgloss.Top,
		lipgloss.NewStyle().PaddingBottom(1).Render(
			lipgloss.JoinVertical(lipgloss.Top, rows...),
		),
		status.Render(m.status),
	)
}

func (m Model) Help() []key.Binding {
	return []key.Binding{
		m.KeyMap.Next,
		m.KeyMap.Generate,
		m.KeyMap.Submit,
	}
}

func (m *Model) focus(index int) {
	for i := range m.inputs {
		if i == index {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	m.focused = index
}

// Runs the external registration helper and, on success, stores the
// account and writes its first backup file.
func (m Model) register(domain, email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		token, err := m.registrar.Register(ctx, email, password)
		if err != nil {
			return registerFailedMsg{Err: err}
		}

		account := &store.Account{
			Domain:   domain,
			Email:    email,
			Password: password,
			Cookie:   session.CookieName + "=" + token,
		}
		if _, err := m.store.UpsertByEmail(ctx, account); err != nil {
			return registerFailedMsg{Err: err}
		}

		path, err := backup.Backup(ctx, m.store, m.dir, email)
		if err != nil {
			return registerFailedMsg{Err: err}
		}

		return RegisteredMsg{Email: email, Path: path}
	}
}

type KeyMap struct {
	Next     key.Binding
	Generate key.Binding
	Submit   key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Next: key.NewBinding(
			key.WithKeys("down", "shift+tab"),
			key.WithHelp("↓", "next field"),
		),
		Generate: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "generate credentials"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "register"),
		),
	}
}
