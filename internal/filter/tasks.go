package filter

import (
	"strings"

	"github.com/nhle/pmsterm/internal/model"
)

// Completion selects tasks by displayed progress.
type Completion int

const (
	CompletionAny Completion = iota
	CompletionDone
	CompletionOpen
)

// TaskQuery matches a case-insensitive substring of the task title,
// description or board title.
func TaskQuery(q string) Predicate[model.Task] {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	return func(t model.Task) bool {
		return strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Description), q) ||
			strings.Contains(strings.ToLower(t.Board.Title), q)
	}
}

// TaskBoard matches the board by ID or exact title.
func TaskBoard(board string) Predicate[model.Task] {
	if board == "" {
		return nil
	}
	return func(t model.Task) bool {
		return t.Board.ID == board || t.Board.Title == board
	}
}

// TaskStatus matches an exact status.
func TaskStatus(status string) Predicate[model.Task] {
	if status == "" {
		return nil
	}
	return func(t model.Task) bool { return t.Status == status }
}

// TaskDepartment keeps tasks with at least one assignee in the department.
func TaskDepartment(dept string) Predicate[model.Task] {
	if dept == "" {
		return nil
	}
	return func(t model.Task) bool {
		for _, a := range t.Assignees {
			if a.Department == dept {
				return true
			}
		}
		return false
	}
}

// TaskDue keeps tasks whose due day lies inside r. Tasks without a due date
// never match a non-empty range.
func TaskDue(r DateRange) Predicate[model.Task] {
	if r.IsZero() {
		return nil
	}
	return func(t model.Task) bool {
		return !t.DueDate.IsZero() && r.Contains(t.DueDate)
	}
}

// TaskCompletion keeps tasks at 100% (CompletionDone) or below it
// (CompletionOpen), judged by the unrounded aggregate.
func TaskCompletion(c Completion) Predicate[model.Task] {
	switch c {
	case CompletionDone:
		return func(t model.Task) bool { return model.AggregateProgress(t) >= 100 }
	case CompletionOpen:
		return func(t model.Task) bool { return model.AggregateProgress(t) < 100 }
	}
	return nil
}

// TaskToday keeps tasks flagged as today's task, or with a subtask flagged.
func TaskToday() Predicate[model.Task] {
	return func(t model.Task) bool {
		if t.IsToday {
			return true
		}
		for _, s := range t.Subtasks {
			if s.IsToday {
				return true
			}
		}
		return false
	}
}

// BoardGroup is a run of tasks sharing a board.
type BoardGroup struct {
	Board model.BoardRef
	Tasks []model.Task
}

// Label returns the board title, or a placeholder for tasks without one.
func (g BoardGroup) Label() string {
	switch {
	case g.Board.Title != "":
		return g.Board.Title
	case g.Board.ID != "":
		return g.Board.ID
	}
	return "No board"
}

// GroupByBoard groups tasks by board, ordered by first appearance.
func GroupByBoard(tasks []model.Task) []BoardGroup {
	var groups []BoardGroup
	index := make(map[string]int)
	for _, t := range tasks {
		key := t.Board.ID
		if key == "" {
			key = "title:" + t.Board.Title
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, BoardGroup{Board: t.Board})
		}
		groups[i].Tasks = append(groups[i].Tasks, t)
	}
	return groups
}
