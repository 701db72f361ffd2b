package filter

import (
	"strings"

	"github.com/nhle/pmsterm/internal/model"
)

// UserQuery matches a case-insensitive substring of username or email.
func UserQuery(q string) Predicate[model.User] {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	return func(u model.User) bool {
		return strings.Contains(strings.ToLower(u.Username), q) ||
			strings.Contains(strings.ToLower(u.Email), q)
	}
}

// UserDepartment matches an exact department code.
func UserDepartment(dept string) Predicate[model.User] {
	if dept == "" {
		return nil
	}
	return func(u model.User) bool { return u.Department == dept }
}

// UserRole matches an exact role. The zero role disables the filter.
func UserRole(r model.Role) Predicate[model.User] {
	if r == 0 {
		return nil
	}
	return func(u model.User) bool { return u.Role == r }
}
