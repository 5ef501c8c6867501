package models

import (
	"time"

	"github.com/google/uuid"
)

// Event team roles. Staff can scan tickets; admins can also manage registrations and the team.
const (
	TeamRoleAdmin = "admin"
	TeamRoleStaff = "staff"
)

// TeamMember links a user account to an event with a role.
type TeamMember struct {
	ID        uuid.UUID `json:"id"`
	EventID   uuid.UUID `json:"event_id"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
