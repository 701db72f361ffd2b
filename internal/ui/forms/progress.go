package forms

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/nhle/pmsterm/internal/model"
)

// WholeTask is the progress target meaning the task itself.
const WholeTask = ""

// ProgressBindings holds the progress form values.
type ProgressBindings struct {
	// Target is WholeTask or a subtask ID.
	Target string
	Value  string
}

// ProgressBindingsFor returns bindings prefilled with the task's displayed
// progress. A task with subtasks targets its first subtask, since the
// displayed value is derived from them.
func ProgressBindingsFor(t model.Task) *ProgressBindings {
	b := &ProgressBindings{Target: WholeTask}
	value := t.Progress
	if len(t.Subtasks) > 0 {
		b.Target = t.Subtasks[0].ID
		value = t.Subtasks[0].Progress
	}
	b.Value = strconv.Itoa(model.DisplayProgress(value))
	return b
}

// NewProgressForm builds the progress form for t. Tasks with subtasks are
// updated per subtask. Others are updated as a whole.
func NewProgressForm(b *ProgressBindings, t model.Task) *huh.Form {
	var fields []huh.Field
	if len(t.Subtasks) > 0 {
		opts := make([]huh.Option[string], 0, len(t.Subtasks))
		for _, s := range t.Subtasks {
			label := fmt.Sprintf("%s (%d%%)", s.Title, model.DisplayProgress(s.Progress))
			opts = append(opts, huh.NewOption(label, s.ID))
		}
		fields = append(fields,
			huh.NewSelect[string]().
				Title("Subtask").
				Options(opts...).
				Value(&b.Target),
		)
	}
	fields = append(fields,
		huh.NewInput().
			Title("Progress (%)").
			Placeholder("0-100").
			Value(&b.Value).
			Validate(validatePercent),
	)
	return huh.NewForm(huh.NewGroup(fields...))
}

// Percent returns the entered value.
func (b *ProgressBindings) Percent() (float64, error) {
	return ParsePercent(b.Value)
}
