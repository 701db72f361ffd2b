package forms

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/model"
)

// GoalBindings holds the goal form values.
type GoalBindings struct {
	UserID      string
	Title       string
	StartDate   string
	DueDate     string
	TargetValue string
	Status      string

	update bool
}

// NewGoalBindings returns bindings for a new goal.
func NewGoalBindings() *GoalBindings {
	return &GoalBindings{Status: model.GoalStatusPending}
}

// GoalBindingsFrom returns bindings prefilled from g for editing.
func GoalBindingsFrom(g model.Goal) *GoalBindings {
	return &GoalBindings{
		UserID:      g.User.ID,
		Title:       g.Title,
		StartDate:   model.FormatDate(g.StartDate),
		DueDate:     model.FormatDate(g.DueDate),
		TargetValue: strconv.FormatFloat(g.TargetValue, 'f', -1, 64),
		Status:      g.Status,
		update:      true,
	}
}

// NewGoalForm builds the goal form. Editing also requires a start date.
func NewGoalForm(b *GoalBindings, users []model.UserRef) *huh.Form {
	startValidate := validateOptionalDate
	if b.update {
		startValidate = validateDate("Start date")
	}

	userOpts := append([]huh.Option[string]{huh.NewOption("Select employee", "")}, userOptions(users)...)

	statusOpts := make([]huh.Option[string], 0, len(model.GoalStatuses))
	for _, s := range model.GoalStatuses {
		statusOpts = append(statusOpts, huh.NewOption(s, s))
	}

	return huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Employee").
			Options(userOpts...).
			Value(&b.UserID).
			Validate(func(s string) error {
				if s == "" {
					return fmt.Errorf("please select an employee")
				}
				return nil
			}),
		huh.NewInput().
			Title("Target").
			Placeholder("What should be achieved?").
			Value(&b.Title).
			Validate(validateRequired("Target")),
		huh.NewInput().
			Title("Start Date").
			Placeholder("YYYY-MM-DD").
			Value(&b.StartDate).
			Validate(startValidate),
		huh.NewInput().
			Title("Due Date").
			Placeholder("YYYY-MM-DD").
			Value(&b.DueDate).
			Validate(validateDate("Due date")),
		huh.NewInput().
			Title("Target Value").
			Placeholder("e.g. 20").
			Value(&b.TargetValue).
			Validate(validatePositive("Target value")),
		huh.NewSelect[string]().
			Title("Status").
			Options(statusOpts...).
			Value(&b.Status),
	))
}

// Input converts the bindings into a GoalInput and validates it.
func (b *GoalBindings) Input() (api.GoalInput, error) {
	start, err := parseOptionalDate(b.StartDate)
	if err != nil {
		return api.GoalInput{}, fmt.Errorf("invalid start date: %w", err)
	}
	due, err := parseOptionalDate(b.DueDate)
	if err != nil {
		return api.GoalInput{}, fmt.Errorf("invalid due date: %w", err)
	}

	var target float64
	if v := strings.TrimSpace(b.TargetValue); v != "" {
		target, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return api.GoalInput{}, fmt.Errorf("target value must be a number")
		}
	}

	in := api.GoalInput{
		UserID:      b.UserID,
		Title:       b.Title,
		StartDate:   start,
		DueDate:     due,
		TargetValue: target,
		Status:      b.Status,
	}
	return in, in.Validate(b.update)
}
