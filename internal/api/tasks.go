package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nhle/pmsterm/internal/model"
)

func taskPath(id string) string {
	return "/api/tasks/" + url.PathEscape(id)
}

func subtaskPath(taskID, subtaskID string) string {
	return taskPath(taskID) + "/subtasks/" + url.PathEscape(subtaskID)
}

func (c *Client) listTasks(ctx context.Context, path string) ([]model.Task, error) {
	var tasks []wireTask
	if err := c.get(ctx, path, &tasks); err != nil {
		return nil, err
	}
	if err := validateTasks("GET "+path, tasks); err != nil {
		return nil, err
	}
	return mapSlice(tasks, wireTask.toModel), nil
}

// taskMutation sends a PUT whose reply wraps the updated task as {task}.
func (c *Client) taskMutation(ctx context.Context, path string, body interface{}) (*model.Task, error) {
	endpoint := "PUT " + path
	var env taskEnvelope
	if err := c.put(ctx, path, body, &env); err != nil {
		return nil, err
	}
	if env.Task == nil {
		return nil, &SchemaError{Endpoint: endpoint, Field: "task", Reason: "is missing"}
	}
	return checkedTask(endpoint, *env.Task)
}

func checkedTask(endpoint string, t wireTask) (*model.Task, error) {
	if err := validateOne(endpoint, t, (*validator).task); err != nil {
		return nil, err
	}
	task := t.toModel()
	return &task, nil
}

// GetTask fetches one task with its subtasks.
func (c *Client) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var t wireTask
	if err := c.get(ctx, taskPath(id), &t); err != nil {
		return nil, fmt.Errorf("fetching task %s: %w", id, err)
	}
	return checkedTask("GET "+taskPath(id), t)
}

// UpdateTask replaces a task's editable fields, including its subtasks.
func (c *Client) UpdateTask(ctx context.Context, id string, in TaskInput) (*model.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	t, err := c.taskMutation(ctx, taskPath(id), in.body())
	if err != nil {
		return nil, fmt.Errorf("updating task %s: %w", id, err)
	}
	return t, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if err := c.delete(ctx, taskPath(id), nil); err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	return nil
}

// UpdateTaskStatus sets a task's status. Callers check the transition with
// the workflow package first; the server is the final authority.
func (c *Client) UpdateTaskStatus(ctx context.Context, id, status string) (*model.Task, error) {
	if !model.ValidStatus(status) {
		return nil, &ValidationError{Field: "status", Message: "Unknown status " + status}
	}
	t, err := c.taskMutation(ctx, taskPath(id)+"/status", map[string]string{"status": status})
	if err != nil {
		return nil, fmt.Errorf("updating status of task %s: %w", id, err)
	}
	return t, nil
}

// UpdateTaskProgress sets a task's stored progress.
func (c *Client) UpdateTaskProgress(ctx context.Context, id string, progress float64) (*model.Task, error) {
	if err := validatePercent(progress); err != nil {
		return nil, err
	}
	t, err := c.taskMutation(ctx, taskPath(id)+"/progress", map[string]float64{"progress": progress})
	if err != nil {
		return nil, fmt.Errorf("updating progress of task %s: %w", id, err)
	}
	return t, nil
}

// UpdateSubtaskProgress sets one subtask's progress. The reply carries the
// parent task with its server-computed aggregate.
func (c *Client) UpdateSubtaskProgress(ctx context.Context, taskID, subtaskID string, progress float64) (*model.Task, error) {
	if err := validatePercent(progress); err != nil {
		return nil, err
	}
	t, err := c.taskMutation(ctx, subtaskPath(taskID, subtaskID)+"/progress", map[string]float64{"progress": progress})
	if err != nil {
		return nil, fmt.Errorf("updating progress of subtask %s: %w", subtaskID, err)
	}
	return t, nil
}

// ListTasksByStatus returns the current user's tasks in one status.
func (c *Client) ListTasksByStatus(ctx context.Context, status string) ([]model.Task, error) {
	if !model.ValidStatus(status) {
		return nil, &ValidationError{Field: "status", Message: "Unknown status " + status}
	}
	tasks, err := c.listTasks(ctx, "/api/tasks/status/"+url.PathEscape(status))
	if err != nil {
		return nil, fmt.Errorf("listing %s tasks: %w", status, err)
	}
	return tasks, nil
}

// ListMyTasks returns every task assigned to the current user.
func (c *Client) ListMyTasks(ctx context.Context) ([]model.Task, error) {
	tasks, err := c.listTasks(ctx, "/api/tasks")
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}

// ListUserTasks returns every task assigned to userID, for reports.
func (c *Client) ListUserTasks(ctx context.Context, userID string) ([]model.Task, error) {
	tasks, err := c.listTasks(ctx, "/api/tasks/user/"+url.PathEscape(userID))
	if err != nil {
		return nil, fmt.Errorf("listing tasks of user %s: %w", userID, err)
	}
	return tasks, nil
}

// MarkTaskToday flags a task as one of today's tasks.
func (c *Client) MarkTaskToday(ctx context.Context, id string) (*model.Task, error) {
	t, err := c.taskMutation(ctx, taskPath(id)+"/today", struct{}{})
	if err != nil {
		return nil, fmt.Errorf("marking task %s for today: %w", id, err)
	}
	return t, nil
}

// MarkSubtaskToday flags a subtask as one of today's tasks.
func (c *Client) MarkSubtaskToday(ctx context.Context, taskID, subtaskID string) (*model.Task, error) {
	t, err := c.taskMutation(ctx, subtaskPath(taskID, subtaskID)+"/today", struct{}{})
	if err != nil {
		return nil, fmt.Errorf("marking subtask %s for today: %w", subtaskID, err)
	}
	return t, nil
}

// MarkTaskComplete marks a task and all of its subtasks complete.
func (c *Client) MarkTaskComplete(ctx context.Context, id string) (*model.Task, error) {
	t, err := c.taskMutation(ctx, taskPath(id)+"/complete", struct{}{})
	if err != nil {
		return nil, fmt.Errorf("completing task %s: %w", id, err)
	}
	return t, nil
}

// MarkSubtaskComplete sets one subtask's completed flag.
func (c *Client) MarkSubtaskComplete(ctx context.Context, taskID, subtaskID string) (*model.Task, error) {
	t, err := c.taskMutation(ctx, subtaskPath(taskID, subtaskID)+"/complete", struct{}{})
	if err != nil {
		return nil, fmt.Errorf("completing subtask %s: %w", subtaskID, err)
	}
	return t, nil
}

func validatePercent(p float64) error {
	if p < 0 || p > 100 {
		return &ValidationError{Field: "progress", Message: "Progress must be between 0 and 100"}
	}
	return nil
}
