package models

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role may author tests and grade sessions.
func (r UserRole) IsStaff() bool {
	return r == RoleTeacher || r == RoleAdmin
}

// Actor is the authenticated caller of an operation, as asserted by the
// upstream gateway.
type Actor struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
}
