package api

import (
	"fmt"
	"strconv"

	"github.com/nhle/pmsterm/internal/model"
)

// validator collects the first schema violation for an endpoint.
type validator struct {
	endpoint string
	err      *SchemaError
}

func (v *validator) fail(field, reason string) {
	if v.err == nil {
		v.err = &SchemaError{Endpoint: v.endpoint, Field: field, Reason: reason}
	}
}

func (v *validator) result() error {
	if v.err == nil {
		return nil
	}
	return v.err
}

func (v *validator) requireID(field, id string) {
	if id == "" {
		v.fail(field, "is missing")
	}
}

func (v *validator) percent(field string, p flexNumber) {
	if p < 0 || p > 100 {
		v.fail(field, fmt.Sprintf("must be between 0 and 100, got %v", float64(p)))
	}
}

func (v *validator) user(prefix string, u wireUser) {
	v.requireID(prefix+"_id", u.ID)
	if u.Role != "" {
		n, err := strconv.Atoi(string(u.Role))
		if err != nil || !model.Role(n).Valid() {
			v.fail(prefix+"role", fmt.Sprintf("is not a known role: %q", string(u.Role)))
		}
	}
}

func (v *validator) task(prefix string, t wireTask) {
	v.requireID(prefix+"_id", t.ID)
	if t.Status != "" && !model.ValidStatus(t.Status) {
		v.fail(prefix+"status", fmt.Sprintf("is not a known status: %q", t.Status))
	}
	if !model.ValidPriority(t.Priority) {
		v.fail(prefix+"priority", fmt.Sprintf("is not a known priority: %q", t.Priority))
	}
	v.percent(prefix+"progress", t.Progress)
	for i, s := range t.Subtasks {
		sp := fmt.Sprintf("%ssubtasks[%d].", prefix, i)
		v.requireID(sp+"_id", s.ID)
		if !model.ValidPriority(s.Priority) {
			v.fail(sp+"priority", fmt.Sprintf("is not a known priority: %q", s.Priority))
		}
		v.percent(sp+"progress", s.Progress)
	}
}

func (v *validator) board(prefix string, b wireBoard) {
	v.requireID(prefix+"_id", b.ID)
	if b.Title == "" {
		v.fail(prefix+"title", "is missing")
	}
	for i, t := range b.Tasks {
		v.task(fmt.Sprintf("%stasks[%d].", prefix, i), t)
	}
}

func (v *validator) goal(prefix string, g wireGoal) {
	v.requireID(prefix+"_id", g.ID)
	if g.TargetValue < 0 {
		v.fail(prefix+"targetValue", "must not be negative")
	}
}

func (v *validator) message(prefix string, m wireMessage) {
	if m.TaskID == "" {
		v.fail(prefix+"taskId", "is missing")
	}
}

func validateUsers(endpoint string, users []wireUser) error {
	v := &validator{endpoint: endpoint}
	for i, u := range users {
		v.user(fmt.Sprintf("[%d].", i), u)
	}
	return v.result()
}

func validateTasks(endpoint string, tasks []wireTask) error {
	v := &validator{endpoint: endpoint}
	for i, t := range tasks {
		v.task(fmt.Sprintf("[%d].", i), t)
	}
	return v.result()
}

func validateBoards(endpoint string, boards []wireBoard) error {
	v := &validator{endpoint: endpoint}
	for i, b := range boards {
		v.board(fmt.Sprintf("boards[%d].", i), b)
	}
	return v.result()
}

func validateGoals(endpoint string, goals []wireGoal) error {
	v := &validator{endpoint: endpoint}
	for i, g := range goals {
		v.goal(fmt.Sprintf("[%d].", i), g)
	}
	return v.result()
}

func validateMessages(endpoint string, msgs []wireMessage) error {
	v := &validator{endpoint: endpoint}
	for i, m := range msgs {
		v.message(fmt.Sprintf("[%d].", i), m)
	}
	return v.result()
}

func validateOne[T any](endpoint string, item T, check func(*validator, string, T)) error {
	v := &validator{endpoint: endpoint}
	check(v, "", item)
	return v.result()
}

func validateLogin(endpoint string, u wireUser) error {
	v := &validator{endpoint: endpoint}
	v.user("user.", u)
	return v.result()
}
