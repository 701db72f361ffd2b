package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/nhle/pmsterm/internal/model"
)

// BoardInput is the body for creating or updating a board.
type BoardInput struct {
	Title     string
	MemberIDs []string
}

// Validate checks the input before it is sent.
func (in BoardInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return &ValidationError{Field: "title", Message: "Board title is required"}
	}
	return nil
}

func (in BoardInput) body() map[string]interface{} {
	members := in.MemberIDs
	if members == nil {
		members = []string{}
	}
	return map[string]interface{}{
		"title": strings.TrimSpace(in.Title),
		"slug":  model.Slugify(in.Title),
		"users": members,
	}
}

// SubtaskInput is one subtask within a TaskInput. ID is empty for new
// subtasks.
type SubtaskInput struct {
	ID         string
	Title      string
	AssigneeID string
	Priority   string
	DueDate    time.Time
	Completed  bool
	Progress   float64
}

// TaskInput is the body for creating or updating a task.
type TaskInput struct {
	Title       string
	Description string
	BoardID     string
	AssigneeIDs []string
	DueDate     time.Time
	Priority    string
	Status      string
	Progress    float64
	Subtasks    []SubtaskInput
}

// TaskInputFrom builds an update body that preserves every field of t.
func TaskInputFrom(t model.Task) TaskInput {
	in := TaskInput{
		Title:       t.Title,
		Description: t.Description,
		BoardID:     t.Board.ID,
		DueDate:     t.DueDate,
		Priority:    t.Priority,
		Status:      t.Status,
		Progress:    t.Progress,
	}
	for _, a := range t.Assignees {
		in.AssigneeIDs = append(in.AssigneeIDs, a.ID)
	}
	for _, s := range t.Subtasks {
		in.Subtasks = append(in.Subtasks, SubtaskInput{
			ID:         s.ID,
			Title:      s.Title,
			AssigneeID: s.AssignedTo.ID,
			Priority:   s.Priority,
			DueDate:    s.DueDate,
			Completed:  s.Completed,
			Progress:   s.Progress,
		})
	}
	return in
}

// Validate checks required fields, known enums, and that no subtask is due
// after its task.
func (in TaskInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return &ValidationError{Field: "title", Message: "Task title is required"}
	}
	if !model.ValidPriority(in.Priority) {
		return &ValidationError{Field: "priority", Message: "Priority must be low, medium or high"}
	}
	if in.Status != "" && !model.ValidStatus(in.Status) {
		return &ValidationError{Field: "status", Message: "Unknown status " + in.Status}
	}
	for i, s := range in.Subtasks {
		if strings.TrimSpace(s.Title) == "" {
			return &ValidationError{Field: "subtasks", Message: "Subtask " + strconv.Itoa(i+1) + " needs a title"}
		}
		if err := ValidateSubtaskDue(s.DueDate, in.DueDate); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSubtaskDue rejects a subtask due date later than the task's.
func ValidateSubtaskDue(subtaskDue, taskDue time.Time) error {
	if subtaskDue.IsZero() || taskDue.IsZero() {
		return nil
	}
	if model.Day(subtaskDue).After(model.Day(taskDue)) {
		return &ValidationError{
			Field:   "dueDate",
			Message: "Subtask due date cannot be after the task due date (" + model.FormatDate(taskDue) + ")",
		}
	}
	return nil
}

func (in TaskInput) body() map[string]interface{} {
	assignees := in.AssigneeIDs
	if assignees == nil {
		assignees = []string{}
	}
	subtasks := make([]map[string]interface{}, 0, len(in.Subtasks))
	for _, s := range in.Subtasks {
		m := map[string]interface{}{
			"title":      s.Title,
			"assignedTo": s.AssigneeID,
			"priority":   s.Priority,
			"dueDate":    model.FormatDate(s.DueDate),
			"completed":  s.Completed,
			"progress":   s.Progress,
		}
		if s.ID != "" {
			m["_id"] = s.ID
		}
		subtasks = append(subtasks, m)
	}
	b := map[string]interface{}{
		"title":       strings.TrimSpace(in.Title),
		"description": in.Description,
		"assignees":   assignees,
		"dueDate":     model.FormatDate(in.DueDate),
		"priority":    in.Priority,
		"progress":    in.Progress,
		"subtasks":    subtasks,
	}
	if in.BoardID != "" {
		b["board"] = in.BoardID
	}
	if in.Status != "" {
		b["status"] = in.Status
	}
	return b
}

// GoalInput is the body for creating or updating a goal.
type GoalInput struct {
	UserID      string
	Title       string
	StartDate   time.Time
	DueDate     time.Time
	TargetValue float64
	Status      string
}

// Validate checks the fields a create needs: user, title, due date and a
// positive target value. Updates additionally require a start date.
func (in GoalInput) Validate(update bool) error {
	switch {
	case in.UserID == "":
		return &ValidationError{Field: "userId", Message: "Please select an employee"}
	case strings.TrimSpace(in.Title) == "":
		return &ValidationError{Field: "targetTitle", Message: "Target title is required"}
	case in.DueDate.IsZero():
		return &ValidationError{Field: "dueDate", Message: "Due date is required"}
	case in.TargetValue <= 0:
		return &ValidationError{Field: "targetValue", Message: "Target value must be greater than zero"}
	case update && in.StartDate.IsZero():
		return &ValidationError{Field: "startDate", Message: "Start date is required"}
	}
	return nil
}

func (in GoalInput) body() map[string]interface{} {
	status := in.Status
	if status == "" {
		status = model.GoalStatusPending
	}
	return map[string]interface{}{
		"userId":      in.UserID,
		"targetTitle": strings.TrimSpace(in.Title),
		"startDate":   model.FormatDate(in.StartDate),
		"dueDate":     model.FormatDate(in.DueDate),
		"targetValue": in.TargetValue,
		"status":      status,
	}
}

// RegisterInput is the body for registering a user.
type RegisterInput struct {
	Username       string
	Email          string
	Password       string
	RepeatPassword string
	Role           model.Role
	Department     string
}

// Validate checks required fields and that the passwords match.
func (in RegisterInput) Validate() error {
	switch {
	case strings.TrimSpace(in.Username) == "":
		return &ValidationError{Field: "username", Message: "Username is required"}
	case !strings.Contains(in.Email, "@"):
		return &ValidationError{Field: "email", Message: "A valid email is required"}
	case in.Password == "":
		return &ValidationError{Field: "password", Message: "Password is required"}
	case in.Password != in.RepeatPassword:
		return &ValidationError{Field: "repeatPassword", Message: "Passwords do not match"}
	case !in.Role.Valid():
		return &ValidationError{Field: "role", Message: "Please select a role"}
	}
	return nil
}

func (in RegisterInput) body() map[string]interface{} {
	return map[string]interface{}{
		"username":   strings.TrimSpace(in.Username),
		"email":      strings.TrimSpace(in.Email),
		"password":   in.Password,
		"role":       strconv.Itoa(int(in.Role)),
		"department": in.Department,
	}
}

// ProfileInput is the body for updating the current user's profile.
type ProfileInput struct {
	Username string
	Email    string
}

// Validate checks required fields.
func (in ProfileInput) Validate() error {
	if strings.TrimSpace(in.Username) == "" {
		return &ValidationError{Field: "username", Message: "Username is required"}
	}
	if !strings.Contains(in.Email, "@") {
		return &ValidationError{Field: "email", Message: "A valid email is required"}
	}
	return nil
}

// PasswordChange is the body for changing the current user's password.
type PasswordChange struct {
	Current string
	New     string
	Repeat  string
}

// Validate checks the new password was entered twice identically.
func (in PasswordChange) Validate() error {
	switch {
	case in.Current == "":
		return &ValidationError{Field: "currentPassword", Message: "Current password is required"}
	case in.New == "":
		return &ValidationError{Field: "newPassword", Message: "New password is required"}
	case in.New != in.Repeat:
		return &ValidationError{Field: "repeatPassword", Message: "Passwords do not match"}
	}
	return nil
}
