// Package profile shows the signed-in account and lets the user change
// their username, email and password.
package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/pmsterm/internal/keys"
	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/theme"
	"github.com/nhle/pmsterm/internal/ui"
	"github.com/nhle/pmsterm/internal/ui/actions"
	"github.com/nhle/pmsterm/internal/ui/forms"
)

type profileSavedMsg struct {
	user *model.User
	err  error
}

type passwordChangedMsg struct {
	message string
	err     error
}

// Model is the profile view.
type Model struct {
	svc    *ui.Services
	keys   *keys.KeyMap
	user   model.User
	form   forms.Model
	banner string
	err    error
	width  int
	height int
}

// New creates the profile view for the session user.
func New(svc *ui.Services, k *keys.KeyMap, width, height int) Model {
	return Model{svc: svc, keys: k, user: svc.User, width: width, height: height}
}

// Capturing reports whether a form is consuming keys.
func (m Model) Capturing() bool {
	return m.form.Active()
}

// Update handles messages for the profile view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case profileSavedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, ui.CheckAuth(msg.err)
		}
		m.err = nil
		m.user = *msg.user
		m.banner = "Profile updated"
		u := *msg.user
		return m, func() tea.Msg { return ui.ProfileUpdatedMsg{User: u} }

	case passwordChangedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, ui.CheckAuth(msg.err)
		}
		m.err = nil
		m.banner = msg.message
		if m.banner == "" {
			m.banner = "Password changed"
		}
		return m, nil

	case actions.FormMsg:
		m.form = msg.Form
		m.form.SetSize(m.width, m.height)
		return m, m.form.Init()

	case forms.CancelMsg:
		return m, nil
	}

	if m.form.Active() {
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Edit):
			m.banner = ""
			return m, m.editProfile()
		case key.Matches(msg, m.keys.Password):
			m.banner = ""
			return m, m.changePassword()
		case key.Matches(msg, m.keys.Logout):
			return m, func() tea.Msg { return ui.LogoutMsg{} }
		}
	}
	return m, nil
}

func (m Model) editProfile() tea.Cmd {
	client := m.svc.Client
	b := forms.ProfileBindingsFrom(m.user)
	f := forms.New("Edit Profile", forms.NewProfileForm(b), func() tea.Cmd {
		in, err := b.Input()
		if err != nil {
			return func() tea.Msg { return profileSavedMsg{err: ui.Local(err)} }
		}
		return func() tea.Msg {
			u, err := client.UpdateProfile(context.Background(), in)
			return profileSavedMsg{user: u, err: err}
		}
	})
	return func() tea.Msg { return actions.FormMsg{Form: f} }
}

func (m Model) changePassword() tea.Cmd {
	client := m.svc.Client
	b := &forms.PasswordBindings{}
	f := forms.New("Change Password", forms.NewPasswordForm(b), func() tea.Cmd {
		in, err := b.Input()
		if err != nil {
			return func() tea.Msg { return passwordChangedMsg{err: ui.Local(err)} }
		}
		return func() tea.Msg {
			msg, err := client.ChangePassword(context.Background(), in)
			return passwordChangedMsg{message: msg, err: err}
		}
	})
	return func() tea.Msg { return actions.FormMsg{Form: f} }
}

// View renders the profile view.
func (m Model) View() string {
	if m.form.Active() {
		return m.form.View()
	}

	label := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(12)
	field := func(name, value string) string {
		return label.Render(name) + value
	}

	dept := "-"
	if m.user.Department != "" {
		dept = model.DepartmentName(m.user.Department)
	}

	var b strings.Builder
	b.WriteString(theme.TitleStyle.Render("Profile"))
	b.WriteString("\n\n")
	b.WriteString(field("Username", m.user.Username) + "\n")
	b.WriteString(field("Email", m.user.Email) + "\n")
	b.WriteString(field("Role", m.user.Role.String()) + "\n")
	b.WriteString(field("Department", dept) + "\n")
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(theme.ErrorStyle.Render(ui.ErrorText(m.err)))
		b.WriteString("\n")
	case m.banner != "":
		b.WriteString(theme.SuccessStyle.Render(m.banner))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render(fmt.Sprintf("e edit profile | w change password | L log out (%s)", m.user.Email)))

	return theme.BorderStyle.Padding(1, 2).Render(b.String())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.form.SetSize(width, height)
}
