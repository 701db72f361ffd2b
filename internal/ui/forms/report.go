package forms

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/nhle/pmsterm/internal/filter"
	"github.com/nhle/pmsterm/internal/model"
)

// ReportBindings holds the report filter values.
type ReportBindings struct {
	Query      string
	Board      string
	Preset     string
	From       string
	To         string
	Completion filter.Completion
	Status     string
}

// NewReportForm builds the report filter form. boards lists the board
// titles present in the loaded tasks.
func NewReportForm(b *ReportBindings, boards []string) *huh.Form {
	boardOpts := []huh.Option[string]{huh.NewOption("All boards", "")}
	for _, t := range boards {
		boardOpts = append(boardOpts, huh.NewOption(t, t))
	}

	presetOpts := []huh.Option[string]{huh.NewOption("Custom range", "")}
	for _, p := range filter.Presets {
		presetOpts = append(presetOpts, huh.NewOption(p, p))
	}

	statusOpts := []huh.Option[string]{huh.NewOption("Any status", "")}
	for _, s := range model.Statuses {
		statusOpts = append(statusOpts, huh.NewOption(StatusLabel(s), s))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Search").
				Placeholder("title, description, board").
				Value(&b.Query),
			huh.NewSelect[string]().
				Title("Board").
				Options(boardOpts...).
				Value(&b.Board),
			huh.NewSelect[string]().
				Title("Status").
				Options(statusOpts...).
				Value(&b.Status),
			huh.NewSelect[filter.Completion]().
				Title("Completion").
				Options(
					huh.NewOption("Any", filter.CompletionAny),
					huh.NewOption("Completed (100%)", filter.CompletionDone),
					huh.NewOption("Not completed", filter.CompletionOpen),
				).
				Value(&b.Completion),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Due Date").
				Options(presetOpts...).
				Value(&b.Preset),
			huh.NewInput().
				Title("From").
				Description("Used with a custom range.").
				Placeholder("YYYY-MM-DD").
				Value(&b.From).
				Validate(validateOptionalDate),
			huh.NewInput().
				Title("To").
				Placeholder("YYYY-MM-DD").
				Value(&b.To).
				Validate(validateOptionalDate),
		),
	)
}

// Range resolves the due-date range: the preset when one is chosen,
// otherwise the custom bounds.
func (b *ReportBindings) Range(now time.Time) (filter.DateRange, error) {
	if r, ok := filter.PresetRange(b.Preset, now); ok {
		return r, nil
	}
	from, err := parseOptionalDate(b.From)
	if err != nil {
		return filter.DateRange{}, fmt.Errorf("invalid start date: %w", err)
	}
	to, err := parseOptionalDate(b.To)
	if err != nil {
		return filter.DateRange{}, fmt.Errorf("invalid end date: %w", err)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return filter.DateRange{}, fmt.Errorf("end date is before start date")
	}
	return filter.DateRange{From: from, To: to}, nil
}

// Chain builds the task filter chain from the bindings.
func (b *ReportBindings) Chain(now time.Time) (*filter.Chain[model.Task], error) {
	r, err := b.Range(now)
	if err != nil {
		return nil, err
	}
	return filter.New(
		filter.TaskQuery(b.Query),
		filter.TaskBoard(b.Board),
		filter.TaskDue(r),
		filter.TaskCompletion(b.Completion),
		filter.TaskStatus(b.Status),
	), nil
}

// Summary describes the active filters in one line.
func (b *ReportBindings) Summary() string {
	var parts []string
	if b.Query != "" {
		parts = append(parts, fmt.Sprintf("%q", b.Query))
	}
	if b.Board != "" {
		parts = append(parts, "board "+b.Board)
	}
	if b.Status != "" {
		parts = append(parts, StatusLabel(b.Status))
	}
	switch b.Completion {
	case filter.CompletionDone:
		parts = append(parts, "completed")
	case filter.CompletionOpen:
		parts = append(parts, "not completed")
	}
	switch {
	case b.Preset != "":
		parts = append(parts, b.Preset)
	case b.From != "" || b.To != "":
		parts = append(parts, fmt.Sprintf("due %s..%s", b.From, b.To))
	}
	if len(parts) == 0 {
		return "no filters"
	}
	return strings.Join(parts, ", ")
}
