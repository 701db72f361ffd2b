package users

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pmsterm/internal/keys"
	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/ui"
	"github.com/nhle/pmsterm/internal/ui/actions"
)

var directory = []model.User{
	{ID: "u1", Username: "ana", Email: "ana@pms.test", Role: model.RoleManager, Active: true},
	{ID: "u2", Username: "bo", Email: "bo@pms.test", Role: model.RoleStaff, Active: true},
	{ID: "u3", Username: "cy", Email: "cy@other.test", Role: model.RoleStaff},
}

func loaded(t *testing.T, role model.Role) Model {
	t.Helper()
	svc := &ui.Services{User: model.User{ID: "u1", Role: role}, Log: zerolog.Nop()}
	m := New(svc, keys.DefaultKeyMap(), 100, 30)
	m.loader.Begin()
	m, _ = m.Update(LoadedMsg{Gen: 1, Users: directory})
	require.Len(t, m.visible, 3)
	return m
}

func typeKeys(m Model, s string) Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestSearch_FiltersByEmail(t *testing.T) {
	m := loaded(t, model.RoleStaff)

	m = typeKeys(m, "/")
	require.True(t, m.Capturing())
	m = typeKeys(m, "pms.test")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.Capturing())
	assert.Equal(t, "pms.test", m.query)
	require.Len(t, m.visible, 2)
	assert.Equal(t, "ana", m.visible[0].Username)
	assert.Equal(t, "bo", m.visible[1].Username)
}

func TestSearch_EscClearsQuery(t *testing.T) {
	m := loaded(t, model.RoleStaff)

	m = typeKeys(m, "/zz")
	assert.Empty(t, m.visible)
	assert.Contains(t, m.View(), "No matching users.")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.query)
	assert.Len(t, m.visible, 3)
}

func TestRegister_ManagerOnly(t *testing.T) {
	m := loaded(t, model.RoleStaff)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.Nil(t, cmd)
	assert.Equal(t, "Only managers can register users", m.banner)

	m = loaded(t, model.RoleManager)
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	require.NotNil(t, cmd)
	_, ok := cmd().(actions.FormMsg)
	assert.True(t, ok)
}

func TestLoaded_StaleGenerationIgnored(t *testing.T) {
	m := loaded(t, model.RoleStaff)
	m.loader.Begin()

	m, _ = m.Update(LoadedMsg{Gen: 1, Users: directory[:1]})
	assert.Len(t, m.users, 3)
}
