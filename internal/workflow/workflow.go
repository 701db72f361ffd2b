// Package workflow holds the task status rules shared by every view.
//
// Two completion models coexist. Boards and the task list use the
// percentage workflow: status moves pending -> in-progress -> completed and
// completion is guarded by aggregate progress. The daily view uses the binary
// workflow: each subtask carries a Completed flag and a task may be marked
// complete once every flag is set. The two are not reconciled; Divergences
// reports where they disagree.
package workflow

import (
	"fmt"

	"github.com/nhle/pmsterm/internal/model"
)

// CompletionThreshold is the aggregate progress a task must exceed before it
// may move to completed.
const CompletionThreshold = 90

// ReopenProgress is the stored progress a reopened task is reset to.
const ReopenProgress = 90

// TransitionError reports a status change that the rules do not allow.
type TransitionError struct {
	From, To string
	Reason   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move task from %s to %s: %s", e.From, e.To, e.Reason)
}

// CanComplete reports whether the task's aggregate progress allows the
// completed status.
func CanComplete(t model.Task) bool {
	return model.AggregateProgress(t) > CompletionThreshold
}

// AvailableTransitions lists the statuses the task may move to from its
// current status, in workflow order.
func AvailableTransitions(t model.Task) []string {
	var out []string
	for _, to := range model.Statuses {
		if check(t, to) == nil {
			out = append(out, to)
		}
	}
	return out
}

// Transition validates moving t to status to and applies it. Moving a
// completed task back to in-progress is a reopen and resets progress.
func Transition(t *model.Task, to string) error {
	if err := check(*t, to); err != nil {
		return err
	}
	if t.Status == model.StatusCompleted && to == model.StatusInProgress {
		t.Progress = ReopenProgress
	}
	t.Status = to
	return nil
}

// Reopen moves a completed task back to in-progress with progress 90.
func Reopen(t *model.Task) error {
	if t.Status != model.StatusCompleted {
		return &TransitionError{From: t.Status, To: model.StatusInProgress, Reason: "only completed tasks can be reopened"}
	}
	return Transition(t, model.StatusInProgress)
}

func check(t model.Task, to string) error {
	if !model.ValidStatus(to) {
		return &TransitionError{From: t.Status, To: to, Reason: "unknown status"}
	}
	if t.Status == to {
		return &TransitionError{From: t.Status, To: to, Reason: "already in that status"}
	}
	switch to {
	case model.StatusPending:
		return nil
	case model.StatusInProgress:
		return nil
	case model.StatusCompleted:
		if t.Status != model.StatusInProgress {
			return &TransitionError{From: t.Status, To: to, Reason: "task must be in progress first"}
		}
		if !CanComplete(t) {
			return &TransitionError{
				From:   t.Status,
				To:     to,
				Reason: fmt.Sprintf("progress %d%% does not exceed %d%%", model.DisplayProgress(model.AggregateProgress(t)), CompletionThreshold),
			}
		}
	}
	return nil
}
