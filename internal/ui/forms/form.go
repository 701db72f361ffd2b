// Package forms holds the huh forms used to create and edit server
// records, plus the bindings that turn their values into API inputs.
package forms

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/theme"
)

// CancelMsg is dispatched when the user aborts a form.
type CancelMsg struct{}

// Model runs one huh form and calls submit when it completes. Bindings
// live on the heap so that huh's Value() pointers stay valid across
// Bubble Tea model copies.
type Model struct {
	title  string
	form   *huh.Form
	submit func() tea.Cmd
	width  int
	height int
}

// New wraps form. submit runs once, when the form completes.
func New(title string, form *huh.Form, submit func() tea.Cmd) Model {
	return Model{title: title, form: form, submit: submit}
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	if m.form == nil {
		return nil
	}
	return m.form.Init()
}

// Active reports whether a form is running.
func (m Model) Active() bool {
	return m.form != nil
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		if m.submit == nil {
			return m, nil
		}
		return m, m.submit()
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	content := theme.TitleStyle.Render(m.title) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(Width(width)).WithHeight(Height(height))
	}
}

// Width clamps a form width to the terminal.
func Width(termWidth int) int {
	w := termWidth - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// Height clamps a form height to the terminal.
func Height(termHeight int) int {
	h := termHeight - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptionalDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := model.ParseDate(s); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}

func validateDate(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return validateOptionalDate(s)
	}
}

// parseOptionalDate parses a YYYY-MM-DD value, mapping "" to the zero time.
func parseOptionalDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return model.ParseDate(s)
}

// ParsePercent parses a progress value between 0 and 100.
func ParsePercent(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("progress must be a number")
	}
	if v < 0 || v > 100 {
		return 0, fmt.Errorf("progress must be between 0 and 100")
	}
	return v, nil
}

func validatePercent(s string) error {
	_, err := ParsePercent(s)
	return err
}

func validatePositive(fieldName string) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || v <= 0 {
			return fmt.Errorf("%s must be greater than zero", fieldName)
		}
		return nil
	}
}

// userOptions lists users as select options labelled with their names.
func userOptions(users []model.UserRef) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(users))
	for _, u := range users {
		opts = append(opts, huh.NewOption(u.DisplayName(), u.ID))
	}
	return opts
}
