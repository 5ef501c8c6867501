package models

import (
	"time"

	"github.com/google/uuid"
)

// Registration is one attendee's claim on one event. TicketCode is the
// credential encoded in the QR; CheckedInAt is set once and never cleared.
type Registration struct {
	ID                 uuid.UUID  `json:"id"`
	EventID            uuid.UUID  `json:"event_id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	Phone              *string    `json:"phone,omitempty"`
	TicketCode         string     `json:"qr_code"`
	CheckedInAt        *time.Time `json:"checked_in_at,omitempty"`
	IsWaitlist         bool       `json:"is_waitlist"`
	WaitlistApprovedAt *time.Time `json:"waitlist_approved_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// CheckedIn reports whether the ticket has been redeemed.
func (r *Registration) CheckedIn() bool {
	return r.CheckedInAt != nil
}
