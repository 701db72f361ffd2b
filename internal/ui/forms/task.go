package forms

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/model"
)

// TaskBindings holds the task form values.
type TaskBindings struct {
	Title       string
	Description string
	AssigneeIDs []string
	DueDate     string
	Priority    string
	Status      string

	// Subtasks holds one subtask per line:
	//   title | assignee | YYYY-MM-DD | priority
	// Only the title is required.
	Subtasks string

	existing []model.Subtask
	progress float64
}

// NewTaskBindings returns bindings for a new task.
func NewTaskBindings() *TaskBindings {
	return &TaskBindings{Priority: model.PriorityMedium, Status: model.StatusPending}
}

// TaskBindingsFrom returns bindings prefilled from t for editing.
func TaskBindingsFrom(t model.Task) *TaskBindings {
	b := &TaskBindings{
		Title:       t.Title,
		Description: t.Description,
		DueDate:     model.FormatDate(t.DueDate),
		Priority:    t.Priority,
		Status:      t.Status,
		Subtasks:    FormatSubtasks(t.Subtasks),
		existing:    t.Subtasks,
		progress:    t.Progress,
	}
	for _, a := range t.Assignees {
		b.AssigneeIDs = append(b.AssigneeIDs, a.ID)
	}
	return b
}

// NewTaskForm builds the task form. users are the candidates for
// assignment, usually the board members.
func NewTaskForm(b *TaskBindings, users []model.UserRef) *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("What needs to be done?").
			Value(&b.Title).
			Validate(validateRequired("Title")),
		huh.NewText().
			Title("Description").
			Placeholder("Optional details...").
			Value(&b.Description),
		huh.NewSelect[string]().
			Title("Priority").
			Options(
				huh.NewOption("High", model.PriorityHigh),
				huh.NewOption("Medium", model.PriorityMedium),
				huh.NewOption("Low", model.PriorityLow),
			).
			Value(&b.Priority),
		huh.NewInput().
			Title("Due Date").
			Placeholder("YYYY-MM-DD (optional)").
			Value(&b.DueDate).
			Validate(validateOptionalDate),
	}

	if len(users) > 0 {
		fields = append(fields,
			huh.NewMultiSelect[string]().
				Title("Assignees").
				Options(userOptions(users)...).
				Value(&b.AssigneeIDs),
		)
	}

	subtasks := huh.NewText().
		Title("Subtasks").
		Description("One per line: title | assignee | YYYY-MM-DD | priority").
		Value(&b.Subtasks).
		Validate(func(s string) error {
			due, err := parseOptionalDate(b.DueDate)
			if err != nil {
				return nil
			}
			parsed, err := ParseSubtasks(s, users, b.existing)
			if err != nil {
				return err
			}
			for _, st := range parsed {
				if err := api.ValidateSubtaskDue(st.DueDate, due); err != nil {
					return err
				}
			}
			return nil
		})

	return huh.NewForm(
		huh.NewGroup(fields...),
		huh.NewGroup(subtasks),
	)
}

// Input converts the bindings into a TaskInput for boardID.
func (b *TaskBindings) Input(boardID string, users []model.UserRef) (api.TaskInput, error) {
	due, err := parseOptionalDate(b.DueDate)
	if err != nil {
		return api.TaskInput{}, fmt.Errorf("invalid due date: %w", err)
	}

	subtasks, err := ParseSubtasks(b.Subtasks, users, b.existing)
	if err != nil {
		return api.TaskInput{}, err
	}

	in := api.TaskInput{
		Title:       strings.TrimSpace(b.Title),
		Description: b.Description,
		BoardID:     boardID,
		AssigneeIDs: b.AssigneeIDs,
		DueDate:     due,
		Priority:    b.Priority,
		Status:      b.Status,
		Progress:    b.progress,
		Subtasks:    subtasks,
	}
	return in, in.Validate()
}

// FormatSubtasks renders subtasks in the line syntax ParseSubtasks reads.
func FormatSubtasks(subtasks []model.Subtask) string {
	lines := make([]string, 0, len(subtasks))
	for _, s := range subtasks {
		parts := []string{s.Title, s.AssignedTo.DisplayName(), model.FormatDate(s.DueDate), s.Priority}
		for len(parts) > 1 && parts[len(parts)-1] == "" {
			parts = parts[:len(parts)-1]
		}
		lines = append(lines, strings.Join(parts, " | "))
	}
	return strings.Join(lines, "\n")
}

// ParseSubtasks reads the subtask lines. The assignee column matches a
// username or ID in users. A line whose title matches an existing subtask
// keeps that subtask's ID, completion flag and progress.
func ParseSubtasks(text string, users []model.UserRef, existing []model.Subtask) ([]api.SubtaskInput, error) {
	byTitle := make(map[string]model.Subtask, len(existing))
	for _, s := range existing {
		byTitle[strings.ToLower(strings.TrimSpace(s.Title))] = s
	}

	var out []api.SubtaskInput
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, "|")
		for j := range cols {
			cols[j] = strings.TrimSpace(cols[j])
		}
		if len(cols) > 4 {
			return nil, fmt.Errorf("line %d: too many columns", i+1)
		}
		for len(cols) < 4 {
			cols = append(cols, "")
		}

		st := api.SubtaskInput{Title: cols[0]}
		if st.Title == "" {
			return nil, fmt.Errorf("line %d: subtask title is required", i+1)
		}

		prev, known := byTitle[strings.ToLower(st.Title)]

		if cols[1] != "" {
			id, ok := lookupUser(cols[1], users)
			if !ok && known && (prev.AssignedTo.ID == cols[1] || prev.AssignedTo.DisplayName() == cols[1]) {
				id, ok = prev.AssignedTo.ID, true
			}
			if !ok {
				return nil, fmt.Errorf("line %d: unknown assignee %q", i+1, cols[1])
			}
			st.AssigneeID = id
		}

		due, err := parseOptionalDate(cols[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date, use YYYY-MM-DD", i+1)
		}
		st.DueDate = due

		st.Priority = strings.ToLower(cols[3])
		if !model.ValidPriority(st.Priority) {
			return nil, fmt.Errorf("line %d: priority must be low, medium or high", i+1)
		}

		if known {
			st.ID = prev.ID
			st.Completed = prev.Completed
			st.Progress = prev.Progress
		}

		out = append(out, st)
	}
	return out, nil
}

func lookupUser(name string, users []model.UserRef) (string, bool) {
	for _, u := range users {
		if strings.EqualFold(u.Username, name) || u.ID == name {
			return u.ID, true
		}
	}
	return "", false
}
