package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "my-new-board", Slugify("  My  New Board "))
	assert.Equal(t, "q3-launch", Slugify("Q3\tLaunch"))
	assert.Equal(t, "", Slugify("   "))
}

func TestTask_IsPastDue(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"no due date", Task{Status: StatusPending}, false},
		{"due yesterday", Task{Status: StatusPending, DueDate: now.AddDate(0, 0, -1)}, true},
		{"due earlier today", Task{Status: StatusInProgress, DueDate: now.Add(-5 * time.Hour)}, false},
		{"completed late task", Task{Status: StatusCompleted, DueDate: now.AddDate(0, 0, -3)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.IsPastDue(now))
		})
	}
}

func TestRoleAndDepartmentNames(t *testing.T) {
	assert.Equal(t, "Manager", RoleManager.String())
	assert.Equal(t, "Unknown", Role(9).String())
	assert.False(t, Role(0).Valid())
	assert.Equal(t, "Developer", DepartmentName("3"))
	assert.Equal(t, "42", DepartmentName("42"))
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7"}, DepartmentCodes())
}
