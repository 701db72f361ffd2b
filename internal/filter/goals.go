package filter

import (
	"time"

	"github.com/nhle/pmsterm/internal/model"
)

// GoalDepartment matches the department of the goal's user.
func GoalDepartment(dept string) Predicate[model.Goal] {
	if dept == "" {
		return nil
	}
	return func(g model.Goal) bool { return g.User.Department == dept }
}

// GoalInMonth keeps goals due within month's calendar month.
func GoalInMonth(month time.Time) Predicate[model.Goal] {
	if month.IsZero() {
		return nil
	}
	start, end := model.MonthRange(month)
	return func(g model.Goal) bool {
		if g.DueDate.IsZero() {
			return false
		}
		d := model.Day(g.DueDate)
		return !d.Before(start) && d.Before(end)
	}
}

// GoalUser matches the goal owner.
func GoalUser(userID string) Predicate[model.Goal] {
	if userID == "" {
		return nil
	}
	return func(g model.Goal) bool { return g.User.ID == userID }
}
