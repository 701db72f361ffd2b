// Package auth holds the signed-out screens: login, the password reset
// request and the reset itself.
package auth

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/session"
	"github.com/nhle/pmsterm/internal/theme"
	"github.com/nhle/pmsterm/internal/ui"
	"github.com/nhle/pmsterm/internal/ui/forms"
)

// Mode selects the screen.
type Mode int

const (
	ModeLogin Mode = iota
	ModeForgot
	ModeReset
)

// LoggedInMsg carries the new session after a successful login.
type LoggedInMsg struct {
	Session *session.Session
}

type loginFailedMsg struct {
	err error
}

type resetDoneMsg struct {
	mode    Mode
	message string
	err     error
}

// Model is the signed-out view.
type Model struct {
	sessions *session.Manager
	client   *api.Client
	mode     Mode
	form     forms.Model
	banner   string
	err      error
	width    int
	height   int
}

// New creates the auth view on the login screen. notice is shown above
// the form, for example after a session expired.
func New(sessions *session.Manager, client *api.Client, notice string, width, height int) Model {
	m := Model{
		sessions: sessions,
		client:   client,
		banner:   notice,
		width:    width,
		height:   height,
	}
	m.form = m.buildForm(ModeLogin)
	return m
}

// Init starts the active form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Mode returns the active screen.
func (m Model) Mode() Mode { return m.mode }

// Update handles messages for the auth view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loginFailedMsg:
		m.err = msg.err
		return m.switchTo(ModeLogin)

	case resetDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			return m.switchTo(msg.mode)
		}
		m.err = nil
		m.banner = msg.message
		if msg.mode == ModeForgot {
			if m.banner == "" {
				m.banner = "Check your email for the reset token."
			}
			return m.switchTo(ModeReset)
		}
		if m.banner == "" {
			m.banner = "Password reset. Log in with the new password."
		}
		return m.switchTo(ModeLogin)

	case forms.CancelMsg:
		return m.switchTo(ModeLogin)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+f":
			m.err, m.banner = nil, ""
			return m.switchTo(ModeForgot)
		case "ctrl+t":
			m.err, m.banner = nil, ""
			return m.switchTo(ModeReset)
		case "ctrl+l":
			m.err, m.banner = nil, ""
			return m.switchTo(ModeLogin)
		}
	}

	if !m.form.Active() {
		return m, nil
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.Update(msg)
	return m, cmd
}

func (m Model) switchTo(mode Mode) (Model, tea.Cmd) {
	m.mode = mode
	m.form = m.buildForm(mode)
	return m, m.form.Init()
}

func (m Model) buildForm(mode Mode) forms.Model {
	var f forms.Model
	switch mode {
	case ModeForgot:
		b := &forms.EmailBindings{}
		client := m.client
		f = forms.New("Forgot Password", forms.NewForgotPasswordForm(b), func() tea.Cmd {
			email := strings.TrimSpace(b.Email)
			return func() tea.Msg {
				msg, err := client.RequestPasswordReset(context.Background(), email)
				return resetDoneMsg{mode: ModeForgot, message: msg, err: err}
			}
		})

	case ModeReset:
		b := &forms.ResetBindings{}
		client := m.client
		f = forms.New("Reset Password", forms.NewResetPasswordForm(b), func() tea.Cmd {
			return func() tea.Msg {
				msg, err := client.ResetPassword(context.Background(), strings.TrimSpace(b.Token), b.Password, b.Repeat)
				return resetDoneMsg{mode: ModeReset, message: msg, err: err}
			}
		})

	default:
		b := &forms.LoginBindings{}
		sessions := m.sessions
		f = forms.New("Log In", forms.NewLoginForm(b), func() tea.Cmd {
			email := strings.TrimSpace(b.Email)
			password := b.Password
			return func() tea.Msg {
				s, err := sessions.Login(context.Background(), email, password)
				if err != nil {
					return loginFailedMsg{err: err}
				}
				return LoggedInMsg{Session: s}
			}
		})
	}
	f.SetSize(m.width, m.height)
	return f
}

// View renders the auth view.
func (m Model) View() string {
	var b strings.Builder

	switch {
	case m.err != nil:
		b.WriteString(theme.ErrorStyle.Render(errorText(m.err)))
		b.WriteString("\n")
	case m.banner != "":
		b.WriteString(theme.NoticeStyle.Render(m.banner))
		b.WriteString("\n")
	}

	if m.form.Active() {
		b.WriteString(m.form.View())
	} else {
		b.WriteString(theme.DimmedStyle.Render("Working..."))
	}

	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render("ctrl+l log in | ctrl+f forgot password | ctrl+t enter reset token | ctrl+c quit"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, b.String())
}

// errorText maps a rejected login to a credentials message; elsewhere an
// auth error means an expired session.
func errorText(err error) string {
	var authErr *api.AuthError
	if errors.As(err, &authErr) {
		if authErr.Message != "" {
			return authErr.Message
		}
		return "Invalid email or password."
	}
	return ui.ErrorText(err)
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.form.SetSize(width, height)
}
