package forms

import (
	"github.com/charmbracelet/huh"
)

var statusLabels = map[string]string{
	"pending":     "Pending",
	"in-progress": "In progress",
	"completed":   "Completed",
}

// StatusLabel returns the display name of a task status.
func StatusLabel(status string) string {
	if l, ok := statusLabels[status]; ok {
		return l
	}
	return status
}

// StatusBindings holds the status form value.
type StatusBindings struct {
	Status string
}

// NewStatusForm builds a status picker over the given legal targets only.
func NewStatusForm(b *StatusBindings, targets []string) *huh.Form {
	opts := make([]huh.Option[string], 0, len(targets))
	for _, s := range targets {
		opts = append(opts, huh.NewOption(StatusLabel(s), s))
	}
	if b.Status == "" && len(targets) > 0 {
		b.Status = targets[0]
	}
	return huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Move to").
			Options(opts...).
			Value(&b.Status),
	))
}

// ConfirmBindings holds a yes/no answer.
type ConfirmBindings struct {
	Yes bool
}

// NewConfirmForm builds a confirmation prompt.
func NewConfirmForm(b *ConfirmBindings, title, description, affirmative string) *huh.Form {
	return huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(description).
			Affirmative(affirmative).
			Negative("Cancel").
			Value(&b.Yes),
	))
}
