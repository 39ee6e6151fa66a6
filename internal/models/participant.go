package models

import "time"

// Role is a participant's declared role in the session.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// Participant is a connected identity in the session.
type Participant struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Role        Role      `json:"role"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// IsTeacher reports whether the participant declared the teacher role.
func (p *Participant) IsTeacher() bool {
	return p.Role == RoleTeacher
}
