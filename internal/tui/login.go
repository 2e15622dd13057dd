// Package tui contains the interactive login surface.
package tui

import (
	"context"
	"strings"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// LoginFunc performs the actual authentication.
type LoginFunc func(ctx context.Context, email, password string) error

// loginState represents the current phase of the login form.
type loginState int

const (
	stateEditing loginState = iota
	stateSubmitting
	stateDone
	stateAborted
)

// Lipgloss styles — defined once at package level.
var (
	styleTitleBox = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(0, 2)

	styleOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleErr   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleDim   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	styleLabel = lipgloss.NewStyle().Bold(true)
)

// LoginModel is the BubbleTea model for the login form.
type LoginModel struct {
	state    loginState
	email    textinput.Model
	password textinput.Model
	spinner  spinner.Model
	errMsg   string

	ctx   context.Context
	login LoginFunc

	// result is what Run reports back to the caller.
	result error
}

// NewLoginModel creates the initial login form.
func NewLoginModel(ctx context.Context, login LoginFunc) LoginModel {
	email := textinput.New()
	email.Placeholder = "you@dojo.example"
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))),
	)

	return LoginModel{
		state:    stateEditing,
		email:    email,
		password: password,
		spinner:  s,
		ctx:      ctx,
		login:    login,
	}
}

// Result returns the final login outcome after the program has exited.
func (m LoginModel) Result() error {
	return m.result
}

// Init starts the spinner animation.
func (m LoginModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles all incoming messages.
func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.state = stateAborted
			m.result = context.Canceled
			return m, tea.Quit

		case "tab", "shift+tab":
			if m.state == stateEditing {
				m.toggleFocus()
			}
			return m, nil

		case "enter":
			if m.state != stateEditing {
				return m, nil
			}
			if m.email.Focused() {
				m.toggleFocus()
				return m, nil
			}
			if strings.TrimSpace(m.email.Value()) == "" {
				m.errMsg = "email is required"
				return m, nil
			}
			m.state = stateSubmitting
			m.errMsg = ""
			return m, m.submit()
		}

	case MsgLoginResult:
		if msg.Err != nil {
			// Inline error, back to the form for another attempt.
			m.state = stateEditing
			m.errMsg = msg.Err.Error()
			m.password.SetValue("")
			return m, nil
		}
		m.state = stateDone
		m.result = nil
		return m, tea.Quit
	}

	if m.state == stateEditing {
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.email, cmd = m.email.Update(msg)
		cmds = append(cmds, cmd)
		m.password, cmd = m.password.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

// View renders the form.
func (m LoginModel) View() tea.View {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(styleTitleBox.Render("  DojoDesk Sign In  "))
	b.WriteString("\n\n")

	switch m.state {
	case stateSubmitting:
		b.WriteString(m.spinner.View())
		b.WriteString(" Signing in...\n")

	case stateDone:
		b.WriteString(styleOK.Render("  ✓ Signed in"))
		b.WriteString("\n")

	default:
		b.WriteString(styleLabel.Render("Email"))
		b.WriteString("\n")
		b.WriteString(m.email.View())
		b.WriteString("\n\n")
		b.WriteString(styleLabel.Render("Password"))
		b.WriteString("\n")
		b.WriteString(m.password.View())
		b.WriteString("\n\n")
		b.WriteString(styleDim.Render("enter to sign in · esc to cancel"))
		b.WriteString("\n")
	}

	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(styleErr.Render("  ✗ " + m.errMsg))
		b.WriteString("\n")
	}

	return tea.NewView(b.String())
}

func (m *LoginModel) toggleFocus() {
	if m.email.Focused() {
		m.email.Blur()
		m.password.Focus()
	} else {
		m.password.Blur()
		m.email.Focus()
	}
}

// submit runs the login call off the UI loop.
func (m LoginModel) submit() tea.Cmd {
	email := strings.TrimSpace(m.email.Value())
	password := m.password.Value()
	return func() tea.Msg {
		return MsgLoginResult{Err: m.login(m.ctx, email, password)}
	}
}
