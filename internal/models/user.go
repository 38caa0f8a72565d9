package models

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

func (r UserRole) Valid() bool {
	return r == RoleStudent || r == RoleTeacher || r == RoleAdmin
}

func (r UserRole) CanGrade() bool {
	return r == RoleTeacher || r == RoleAdmin
}

// SystemGrader is recorded in graded_by for automatically scored attempts.
const SystemGrader = "system"

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string   `json:"id"`
	Role UserRole `json:"role"`
}
