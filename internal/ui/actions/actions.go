// Package actions holds the task mutations shared by the views that show
// tasks: status change, reopen, progress, edit and delete. Each action
// either opens a form (FormMsg) or reports its outcome (ResultMsg).
package actions

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/store"
	"github.com/nhle/pmsterm/internal/ui"
	"github.com/nhle/pmsterm/internal/ui/forms"
	"github.com/nhle/pmsterm/internal/workflow"
)

// FormMsg asks the current view to run a form.
type FormMsg struct {
	Form forms.Model
}

// ResultMsg reports the outcome of a mutation. Task is the server's copy
// after the change; DeletedID is set instead when the task was deleted.
type ResultMsg struct {
	Action    string
	Task      *model.Task
	DeletedID string
	Err       error
}

// Handle turns a successful result into the session-wide update messages
// and an unsuccessful one into an auth redirect when needed. The returned
// text is the banner the view should show.
func Handle(msg ResultMsg) (string, tea.Cmd) {
	if msg.Err != nil {
		return ui.ErrorText(msg.Err), ui.CheckAuth(msg.Err)
	}
	switch {
	case msg.DeletedID != "":
		id := msg.DeletedID
		return "Task deleted", func() tea.Msg { return ui.TaskDeletedMsg{TaskID: id} }
	case msg.Task != nil:
		t := *msg.Task
		return msg.Action, func() tea.Msg { return ui.TaskUpdatedMsg{Task: t} }
	}
	return msg.Action, nil
}

func fail(action string, err error) tea.Cmd {
	return func() tea.Msg { return ResultMsg{Action: action, Err: ui.Local(err)} }
}

// ChangeStatus opens a picker over the task's legal transitions.
func ChangeStatus(svc *ui.Services, t model.Task) tea.Cmd {
	targets := workflow.AvailableTransitions(t)
	if len(targets) == 0 {
		return fail("status", fmt.Errorf("no status change is available for %q", t.Title))
	}

	b := &forms.StatusBindings{}
	f := forms.NewStatusForm(b, targets)
	return func() tea.Msg {
		return FormMsg{Form: forms.New("Change Status", f, func() tea.Cmd {
			return setStatus(svc, t, b.Status)
		})}
	}
}

func setStatus(svc *ui.Services, t model.Task, to string) tea.Cmd {
	reopen := t.Status == model.StatusCompleted && to == model.StatusInProgress
	next := t
	if err := workflow.Transition(&next, to); err != nil {
		return fail("status", err)
	}
	return func() tea.Msg {
		ctx := context.Background()
		var (
			out *model.Task
			err error
		)
		if reopen {
			out, err = svc.Client.UpdateTask(ctx, t.ID, api.TaskInputFrom(next))
		} else {
			out, err = svc.Client.UpdateTaskStatus(ctx, t.ID, to)
		}
		if err != nil {
			svc.Log.Warn().Err(err).Str("task", t.ID).Str("to", to).Msg("status change failed")
		}
		return ResultMsg{Action: "Moved to " + forms.StatusLabel(to), Task: out, Err: err}
	}
}

// Reopen moves a completed task back to in-progress at 90% after a
// confirmation.
func Reopen(svc *ui.Services, t model.Task) tea.Cmd {
	if t.Status != model.StatusCompleted {
		return fail("reopen", &workflow.TransitionError{
			From: t.Status, To: model.StatusInProgress, Reason: "only completed tasks can be reopened",
		})
	}
	b := &forms.ConfirmBindings{}
	f := forms.NewConfirmForm(b, "Reopen "+t.Title+"?",
		fmt.Sprintf("The task returns to in progress at %d%%.", workflow.ReopenProgress), "Reopen")
	return func() tea.Msg {
		return FormMsg{Form: forms.New("Reopen Task", f, func() tea.Cmd {
			if !b.Yes {
				return nil
			}
			return setStatus(svc, t, model.StatusInProgress)
		})}
	}
}

// UpdateProgress opens the progress form. Tasks with subtasks are updated
// through one of their subtasks and take the aggregate from the reply.
func UpdateProgress(svc *ui.Services, t model.Task) tea.Cmd {
	b := forms.ProgressBindingsFor(t)
	f := forms.NewProgressForm(b, t)
	return func() tea.Msg {
		return FormMsg{Form: forms.New("Update Progress", f, func() tea.Cmd {
			value, err := b.Percent()
			if err != nil {
				return fail("progress", err)
			}
			target := b.Target
			return func() tea.Msg {
				ctx := context.Background()
				if target == forms.WholeTask {
					out, err := svc.Client.UpdateTaskProgress(ctx, t.ID, value)
					return ResultMsg{Action: "Progress updated", Task: out, Err: err}
				}
				server, err := svc.Client.UpdateSubtaskProgress(ctx, t.ID, target, value)
				if err != nil {
					return ResultMsg{Action: "progress", Err: err}
				}
				next := t
				next.Subtasks = append([]model.Subtask(nil), t.Subtasks...)
				if !model.ApplySubtaskProgress(&next, target, value, *server) {
					next = *server
				}
				return ResultMsg{Action: "Subtask progress updated", Task: &next}
			}
		})}
	}
}

// Edit loads the assignment candidates and opens the task form.
func Edit(svc *ui.Services, t model.Task) tea.Cmd {
	return func() tea.Msg {
		users := Candidates(context.Background(), svc, t.Board.ID, t.Assignees)
		b := forms.TaskBindingsFrom(t)
		f := forms.NewTaskForm(b, users)
		return FormMsg{Form: forms.New("Edit Task", f, func() tea.Cmd {
			in, err := b.Input(t.Board.ID, users)
			if err != nil {
				return fail("edit", err)
			}
			return func() tea.Msg {
				out, err := svc.Client.UpdateTask(context.Background(), t.ID, in)
				return ResultMsg{Action: "Task saved", Task: out, Err: err}
			}
		})}
	}
}

// Create opens the new-task form for a board.
func Create(svc *ui.Services, board model.Board) tea.Cmd {
	return func() tea.Msg {
		users := board.Members
		if len(users) == 0 {
			users = Candidates(context.Background(), svc, board.ID, nil)
		}
		b := forms.NewTaskBindings()
		f := forms.NewTaskForm(b, users)
		return FormMsg{Form: forms.New("New Task on "+board.Title, f, func() tea.Cmd {
			in, err := b.Input(board.ID, users)
			if err != nil {
				return fail("create", err)
			}
			return func() tea.Msg {
				out, err := svc.Client.CreateTask(context.Background(), board.ID, in)
				return ResultMsg{Action: "Task created", Task: out, Err: err}
			}
		})}
	}
}

// Delete asks for confirmation and deletes the task.
func Delete(svc *ui.Services, t model.Task) tea.Cmd {
	b := &forms.ConfirmBindings{}
	f := forms.NewConfirmForm(b, "Delete "+t.Title+"?", "This cannot be undone.", "Delete")
	return func() tea.Msg {
		return FormMsg{Form: forms.New("Delete Task", f, func() tea.Cmd {
			if !b.Yes {
				return nil
			}
			return func() tea.Msg {
				if err := svc.Client.DeleteTask(context.Background(), t.ID); err != nil {
					return ResultMsg{Action: "delete", Err: err}
				}
				return ResultMsg{Action: "delete", DeletedID: t.ID}
			}
		})}
	}
}

// Candidates returns the users a task on boardID may be assigned to: the
// board's members from the local snapshot, else the known user directory,
// else the task's current assignees.
func Candidates(ctx context.Context, svc *ui.Services, boardID string, current []model.UserRef) []model.UserRef {
	if boardID != "" {
		b, err := svc.Store.GetBoard(ctx, boardID)
		switch {
		case err == nil && len(b.Members) > 0:
			return b.Members
		case err != nil && !errors.Is(err, store.ErrNotFound):
			svc.Log.Warn().Err(err).Str("board", boardID).Msg("loading board members")
		}
	}
	if users, err := svc.Store.GetUsers(ctx); err == nil && len(users) > 0 {
		refs := make([]model.UserRef, 0, len(users))
		for _, u := range users {
			refs = append(refs, u.Ref())
		}
		return refs
	}
	out := append([]model.UserRef(nil), current...)
	if svc.User.ID != "" && !containsUser(out, svc.User.ID) {
		out = append(out, svc.User.Ref())
	}
	return out
}

func containsUser(users []model.UserRef, id string) bool {
	for _, u := range users {
		if u.ID == id {
			return true
		}
	}
	return false
}
