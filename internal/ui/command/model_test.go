package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var names = []string{"boards", "tasks", "goals", "reports", "refresh", "read"}

func TestResolve(t *testing.T) {
	m := New(names, 80, 24)

	assert.Equal(t, "goals", m.Resolve("  GO "))
	assert.Equal(t, "reports", m.Resolve("rep"))
	assert.Equal(t, "read", m.Resolve("read"), "exact name beats a longer prefix match")
	assert.Equal(t, "re", m.Resolve("re"), "ambiguous prefix is returned as typed")
	assert.Equal(t, "nope", m.Resolve("nope"))
	assert.Empty(t, m.Resolve("   "))
}

func TestEnterEmitsResolvedCommand(t *testing.T) {
	m := New(names, 80, 24)
	m.input.SetValue("bo")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, CommandMsg("boards"), cmd())
	assert.Empty(t, m.input.Value())
}

func TestEscCancels(t *testing.T) {
	m := New(names, 80, 24)
	m.input.SetValue("go")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CancelMsg{}, cmd())
}
