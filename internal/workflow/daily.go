package workflow

import (
	"errors"
	"fmt"

	"github.com/nhle/pmsterm/internal/model"
)

// ErrIncompleteSubtasks is returned when a task is marked complete while a
// subtask is still open.
var ErrIncompleteSubtasks = errors.New("all subtasks must be completed first")

// CanMarkComplete reports whether every subtask of t is completed. A task
// without subtasks can always be marked complete.
func CanMarkComplete(t model.Task) bool {
	for _, s := range t.Subtasks {
		if !s.Completed {
			return false
		}
	}
	return true
}

// OpenSubtasks returns the number of subtasks not yet completed.
func OpenSubtasks(t model.Task) int {
	n := 0
	for _, s := range t.Subtasks {
		if !s.Completed {
			n++
		}
	}
	return n
}

// MarkComplete marks t completed and sets every subtask's Completed flag.
func MarkComplete(t *model.Task) error {
	if !CanMarkComplete(*t) {
		return fmt.Errorf("marking %q complete: %w", t.Title, ErrIncompleteSubtasks)
	}
	SettleComplete(t)
	return nil
}

// SettleComplete applies a completion the server already accepted: status
// completed and every subtask flagged, whatever the reply carried.
func SettleComplete(t *model.Task) {
	for i := range t.Subtasks {
		t.Subtasks[i].Completed = true
	}
	t.Status = model.StatusCompleted
}

// MarkSubtaskComplete sets the Completed flag of one subtask. Progress and
// the task status are left untouched; the task moves to completed only
// through MarkComplete.
func MarkSubtaskComplete(t *model.Task, subtaskID string) error {
	i := t.FindSubtask(subtaskID)
	if i < 0 {
		return fmt.Errorf("subtask %s not found on task %s", subtaskID, t.ID)
	}
	t.Subtasks[i].Completed = true
	return nil
}

// Divergence describes a subtask whose completion flag and progress disagree.
type Divergence struct {
	SubtaskID string
	Title     string
	Completed bool
	Progress  float64
}

func (d Divergence) String() string {
	if d.Completed {
		return fmt.Sprintf("%s is marked complete at %d%%", d.Title, model.DisplayProgress(d.Progress))
	}
	return fmt.Sprintf("%s is at 100%% but not marked complete", d.Title)
}

// Divergences lists subtasks where the binary flag and the percentage
// disagree: completed below 100%, or 100% while not completed.
func Divergences(t model.Task) []Divergence {
	var out []Divergence
	for _, s := range t.Subtasks {
		if s.Completed != (s.Progress >= 100) {
			out = append(out, Divergence{
				SubtaskID: s.ID,
				Title:     s.Title,
				Completed: s.Completed,
				Progress:  s.Progress,
			})
		}
	}
	return out
}
