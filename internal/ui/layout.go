package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/pmsterm/internal/theme"
)

// Layout holds the terminal size and the rows taken by the header and the
// key hint bar. Views get the rest.
type Layout struct {
	Width  int
	Height int
}

// chromeRows is one header row plus one hint row.
const chromeRows = 2

// NewLayout returns a Layout for a width x height terminal.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentWidth returns the width handed to views.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the rows left for the active view.
func (l Layout) ContentHeight() int {
	return max(l.Height-chromeRows, 0)
}

// RenderHeader renders the view title on the left and the session status
// (user, sync state, unread notices) flush right.
func (l Layout) RenderHeader(title, status string) string {
	return bar(theme.HeaderStyle, l.Width, title, status)
}

// RenderStatusBar renders the key hints across the bottom row.
func (l Layout) RenderStatusBar(hints string) string {
	return bar(theme.StatusBarStyle, l.Width, hints, "")
}

// RenderWithFrame stacks header, content and hint bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

// bar renders left and right in style and pads the gap between them with
// the style's background so the row spans width cells.
func bar(style lipgloss.Style, width int, left, right string) string {
	l := style.Render(left)
	r := ""
	if right != "" {
		r = style.Render(right)
	}
	gap := max(width-lipgloss.Width(l)-lipgloss.Width(r), 0)
	pad := lipgloss.NewStyle().Width(gap).Background(style.GetBackground()).Render("")
	return l + pad + r
}

// RenderTabs renders a row of tabs with the active one highlighted.
func RenderTabs(labels []string, active int) string {
	tabs := make([]string, len(labels))
	for i, label := range labels {
		if i == active {
			tabs[i] = theme.ActiveTabStyle.Render(label)
		} else {
			tabs[i] = theme.TabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// Placeholder renders dimmed text centered in a width x height box. It is
// used for loading and empty states.
func Placeholder(width, height int, lines ...string) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render(strings.Join(lines, "\n"))
}

// Truncate shortens s to at most n display cells, marking the cut with an
// ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 || lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > n {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
