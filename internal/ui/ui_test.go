package ui

import (
	"errors"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pmsterm/internal/api"
)

func TestLoader_BeginCancelsPrevious(t *testing.T) {
	l := NewLoader()

	first, gen1 := l.Begin()
	second, gen2 := l.Begin()

	assert.Error(t, first.Err(), "first load should be cancelled")
	assert.NoError(t, second.Err())
	assert.False(t, l.Current(gen1))
	assert.True(t, l.Current(gen2))
}

func TestLoader_CancelMakesResultStale(t *testing.T) {
	l := NewLoader()
	ctx, gen := l.Begin()

	l.Cancel()
	assert.Error(t, ctx.Err())
	assert.False(t, l.Current(gen))

	l.Cancel()
}

func TestCheckAuth(t *testing.T) {
	assert.Nil(t, CheckAuth(nil))
	assert.Nil(t, CheckAuth(errors.New("boom")))

	cmd := CheckAuth(&api.AuthError{StatusCode: 401, Message: "jwt expired"})
	require.NotNil(t, cmd)
	msg, ok := cmd().(AuthExpiredMsg)
	require.True(t, ok)
	assert.Error(t, msg.Err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, "abc", Truncate("abc", 0))
}

func TestRenderTabs(t *testing.T) {
	out := RenderTabs([]string{"Pending", "In progress"}, 1)
	assert.Contains(t, out, "Pending")
	assert.Contains(t, out, "In progress")
}

func TestLayout_BarsSpanWidth(t *testing.T) {
	l := NewLayout(60, 20)
	assert.Equal(t, 18, l.ContentHeight())

	header := l.RenderHeader("Boards", "ana | synced")
	assert.Equal(t, 60, lipgloss.Width(header))
	assert.Contains(t, header, "ana | synced")
	assert.Equal(t, 60, lipgloss.Width(l.RenderStatusBar("? help")))

	assert.Equal(t, 0, NewLayout(10, 1).ContentHeight())
}
