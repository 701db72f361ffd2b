package reports

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhle/pmsterm/internal/filter"
	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/theme"
)

var reportHeaders = []string{"Task", "Status", "Priority", "Due", "Progress", "Subtasks"}

// RenderGroup renders one board's tasks as a table. width <= 0 leaves the
// table at its natural width.
func RenderGroup(g filter.BoardGroup, now time.Time, width int) string {
	rows := make([][]string, 0, len(g.Tasks))
	for _, t := range g.Tasks {
		rows = append(rows, reportRow(t, now))
	}

	tasks := g.Tasks
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers(reportHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.TableHeaderStyle
			}
			task := tasks[row]
			switch col {
			case 1:
				return theme.TableCellStyle.Foreground(theme.StatusStyle(task.Status).GetForeground())
			case 3:
				if task.IsPastDue(now) {
					return theme.TableCellStyle.Inherit(theme.OverdueStyle)
				}
			case 4:
				p := model.DisplayProgress(model.AggregateProgress(task))
				return theme.TableCellStyle.Foreground(theme.ProgressColor(p))
			}
			return theme.TableCellStyle
		})
	if width > 0 {
		t = t.Width(width)
	}
	return t.String()
}

func reportRow(t model.Task, now time.Time) []string {
	due := model.FormatDate(t.DueDate)
	if t.IsPastDue(now) {
		due += " !"
	}
	subtasks := ""
	if n := len(t.Subtasks); n > 0 {
		done := 0
		for _, s := range t.Subtasks {
			if s.Completed {
				done++
			}
		}
		subtasks = fmt.Sprintf("%d/%d", done, n)
	}
	return []string{
		t.Title,
		t.Status,
		t.Priority,
		due,
		fmt.Sprintf("%d%%", model.DisplayProgress(model.AggregateProgress(t))),
		subtasks,
	}
}
