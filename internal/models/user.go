package models

import "time"

// Role is the closed set of user roles in the consultation system.
type Role string

const (
	RoleStudent   Role = "STUDENT"
	RoleProfessor Role = "PROFESSOR"
	RoleCounselor Role = "COUNSELOR"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleProfessor, RoleCounselor:
		return true
	}
	return false
}

// User represents a registered participant. For professors, Subjects holds
// the subjects they teach; for students, the subjects they are enrolled in.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Subjects     []string  `json:"subjects"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsStaff reports whether the user can hold a consultation queue.
func (u *User) IsStaff() bool {
	return u.Role == RoleProfessor || u.Role == RoleCounselor
}

// CanTeach reports whether a professor offers the given subject.
func (u *User) CanTeach(subject string) bool {
	return u.Role == RoleProfessor && u.hasSubject(subject)
}

// IsEnrolledIn reports whether a student is enrolled in the given subject.
func (u *User) IsEnrolledIn(subject string) bool {
	return u.Role == RoleStudent && u.hasSubject(subject)
}

// AddSubject appends a subject unless already present.
func (u *User) AddSubject(subject string) {
	if !u.hasSubject(subject) {
		u.Subjects = append(u.Subjects, subject)
	}
}

func (u *User) hasSubject(subject string) bool {
	for _, s := range u.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role   *Role
	Search string
}
