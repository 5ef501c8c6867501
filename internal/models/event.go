package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is an organizer's event that attendees register for.
type Event struct {
	ID             uuid.UUID `json:"id"`
	OwnerID        uuid.UUID `json:"owner_id"`
	Title          string    `json:"title"`
	Slug           string    `json:"slug"`
	Description    *string   `json:"description,omitempty"`
	Location       *string   `json:"location,omitempty"`
	EventDate      time.Time `json:"event_date"`
	EventTime      *string   `json:"event_time,omitempty"` // HH:MM[:SS], local time
	MaxAttendees   *int      `json:"max_attendees,omitempty"`
	IsPublished    bool      `json:"is_published"`
	EnableWaitlist bool      `json:"enable_waitlist"`
	ImageURL       *string   `json:"image_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EventStats summarizes registrations for one event.
type EventStats struct {
	EventID    uuid.UUID `json:"event_id"`
	Total      int       `json:"total_registrations"`
	CheckedIn  int       `json:"total_checked_in"`
	Waitlisted int       `json:"total_waitlisted"`
}
