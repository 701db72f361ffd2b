package api

import (
	"strconv"

	"github.com/nhle/pmsterm/internal/model"
)

func (r userRef) toModel() model.UserRef {
	return model.UserRef{ID: r.ID, Username: r.Username, Email: r.Email, Department: string(r.Department)}
}

func (r boardRef) toModel() model.BoardRef {
	return model.BoardRef{ID: r.ID, Title: r.Title}
}

func userRefs(in []userRef) []model.UserRef {
	out := make([]model.UserRef, 0, len(in))
	for _, r := range in {
		if r.ID == "" {
			continue
		}
		out = append(out, r.toModel())
	}
	return out
}

func (u wireUser) toModel() model.User {
	role, _ := strconv.Atoi(string(u.Role))
	active := true
	if u.Status != nil {
		active = *u.Status
	}
	return model.User{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       model.Role(role),
		Department: string(u.Department),
		Active:     active,
	}
}

func (s wireSubtask) toModel() model.Subtask {
	return model.Subtask{
		ID:         s.ID,
		Title:      s.Title,
		AssignedTo: s.AssignedTo.toModel(),
		DueDate:    s.DueDate.Date(),
		Priority:   s.Priority,
		Completed:  s.Completed,
		Progress:   float64(s.Progress),
		IsToday:    s.IsToday,
	}
}

func (t wireTask) toModel() model.Task {
	task := model.Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Board:       t.Board.toModel(),
		Assignees:   userRefs(t.Assignees),
		DueDate:     t.DueDate.Date(),
		Priority:    t.Priority,
		Status:      t.Status,
		Progress:    float64(t.Progress),
		IsToday:     t.IsToday,
		CreatedAt:   t.CreatedAt.Time,
		UpdatedAt:   t.UpdatedAt.Time,
	}
	if task.Status == "" {
		task.Status = model.StatusPending
	}
	for _, s := range t.Subtasks {
		task.Subtasks = append(task.Subtasks, s.toModel())
	}
	return task
}

func (b wireBoard) toModel() model.Board {
	board := model.Board{
		ID:      b.ID,
		Title:   b.Title,
		Slug:    b.Slug,
		Members: userRefs(b.Users),
	}
	for _, t := range b.Tasks {
		task := t.toModel()
		if task.Board.ID == "" {
			task.Board = board.Ref()
		}
		board.Tasks = append(board.Tasks, task)
	}
	return board
}

func (g wireGoal) toModel() model.Goal {
	return model.Goal{
		ID:             g.ID,
		User:           g.UserID.toModel(),
		Title:          g.TargetTitle,
		StartDate:      g.StartDate.Date(),
		DueDate:        g.DueDate.Date(),
		TargetValue:    float64(g.TargetValue),
		RemainingValue: float64(g.RemainingValue),
		Status:         g.Status,
	}
}

func (m wireMessage) toModel() model.ChatMessage {
	return model.ChatMessage{
		ID:          m.ID,
		TaskID:      m.TaskID,
		Sender:      m.Sender.toModel(),
		Content:     m.Content,
		Attachments: append([]string(nil), m.Attachments...),
		CreatedAt:   m.CreatedAt.Time,
	}
}

func mapSlice[W any, M any](in []W, conv func(W) M) []M {
	out := make([]M, 0, len(in))
	for _, w := range in {
		out = append(out, conv(w))
	}
	return out
}
