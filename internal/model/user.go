package model

import "strconv"

// Role is a user's permission level.
type Role int

const (
	RoleAdmin   Role = 1
	RoleManager Role = 2
	RoleStaff   Role = 3
)

// Roles lists roles in display order.
var Roles = []Role{RoleAdmin, RoleManager, RoleStaff}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleManager:
		return "Manager"
	case RoleStaff:
		return "Staff"
	default:
		return "Unknown"
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r >= RoleAdmin && r <= RoleStaff
}

// Departments maps department codes to their names.
var Departments = map[string]string{
	"1": "Content Writer",
	"2": "Data Entry",
	"3": "Developer",
	"4": "Graphic Designer",
	"5": "PPC",
	"6": "Seo Executive",
	"7": "Social Media",
}

// DepartmentCodes returns department codes in ascending order.
func DepartmentCodes() []string {
	codes := make([]string, 0, len(Departments))
	for i := 1; i <= len(Departments); i++ {
		codes = append(codes, strconv.Itoa(i))
	}
	return codes
}

// DepartmentName returns the name for a department code, or the code itself
// when it is unknown.
func DepartmentName(code string) string {
	if name, ok := Departments[code]; ok {
		return name
	}
	return code
}

// User is an account on the server.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	Department string `json:"department"`
	Active     bool   `json:"active"`
}

// Ref returns a populated reference to the user.
func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, Username: u.Username, Email: u.Email, Department: u.Department}
}

// IsManager reports whether the user may manage boards.
func (u User) IsManager() bool {
	return u.Role == RoleManager || u.Role == RoleAdmin
}

// UserRef is a reference to a user. Only ID is guaranteed; the other fields
// are set when the API returned a populated object.
type UserRef struct {
	ID         string `json:"id"`
	Username   string `json:"username,omitempty"`
	Email      string `json:"email,omitempty"`
	Department string `json:"department,omitempty"`
}

// DisplayName returns the username when known, else the ID.
func (r UserRef) DisplayName() string {
	if r.Username != "" {
		return r.Username
	}
	return r.ID
}
