package tasklist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/theme"
	"github.com/nhle/pmsterm/internal/ui"
)

// TaskItem wraps a model.Task so it can be used in a bubbles/list.
type TaskItem struct {
	Task model.Task
}

// FilterValue returns the string used for fuzzy filtering.
func (i TaskItem) FilterValue() string { return i.Task.Title }

// Title returns the task title for the list.
func (i TaskItem) Title() string { return i.Task.Title }

// Description returns a short summary line for the list.
func (i TaskItem) Description() string {
	parts := []string{
		i.Task.Board.Title,
		i.Task.Status,
		relativeTime(i.Task.UpdatedAt, time.Now()),
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering task rows.
type ItemDelegate struct {
	// Now is the clock used for overdue markers.
	Now func() time.Time

	// ShowToday adds a marker for tasks flagged as today's tasks.
	ShowToday bool
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused for now).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single task line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TaskItem)
	if !ok {
		return
	}
	fmt.Fprint(w, RenderLine(ti.Task, index == m.Index(), d.now(), d.ShowToday, m.Width()))
}

func (d ItemDelegate) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// RenderLine renders one task row. It is shared by every view that lists
// tasks so that they read the same.
func RenderLine(t model.Task, selected bool, now time.Time, showToday bool, width int) string {
	var prefix string
	switch {
	case t.Status == model.StatusCompleted:
		prefix = "✓"
	case showToday && t.IsToday:
		prefix = "★"
	default:
		prefix = "○"
	}

	statusBadge := theme.StatusStyle(t.Status).Render(t.Status)
	priBadge := theme.PriorityStyle(t.Priority).Render(priorityLabel(t.Priority))

	p := model.DisplayProgress(model.AggregateProgress(t))
	progress := lipgloss.NewStyle().Foreground(theme.ProgressColor(p)).Render(fmt.Sprintf("%3d%%", p))

	title := t.Title
	if width > 0 {
		title = ui.Truncate(title, max(width/2, 12))
	}

	board := ""
	if t.Board.Title != "" {
		board = theme.DimmedStyle.Render(" [" + t.Board.Title + "]")
	}

	subtasks := ""
	if n := len(t.Subtasks); n > 0 {
		done := 0
		for _, s := range t.Subtasks {
			if s.Completed {
				done++
			}
		}
		subtasks = theme.DimmedStyle.Render(fmt.Sprintf(" %d/%d", done, n))
	}

	due := ""
	if !t.DueDate.IsZero() {
		due = theme.DimmedStyle.Render(" " + t.DueDate.Format("Jan 02"))
	}
	if t.IsPastDue(now) {
		due += theme.OverdueStyle.Render(" OVERDUE")
	}

	line := fmt.Sprintf("%s %s %s %s %s%s%s%s",
		prefix, progress, statusBadge, priBadge, title, board, subtasks, due)

	if t.Status == model.StatusCompleted {
		line = theme.DimmedStyle.Render(line)
	}
	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}

// priorityLabel returns a short label for the given priority level.
func priorityLabel(p string) string {
	switch p {
	case model.PriorityHigh:
		return "HI"
	case model.PriorityMedium:
		return "MD"
	case model.PriorityLow:
		return "LO"
	default:
		return "--"
	}
}
