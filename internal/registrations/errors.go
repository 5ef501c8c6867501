package registrations

import "errors"

var (
	// ErrDuplicateRegistration means the email is already registered for the event.
	ErrDuplicateRegistration = errors.New("email already registered for this event")
	// ErrEventNotFound means the event does not exist or is not open for registration.
	ErrEventNotFound = errors.New("event not found")
	// ErrEventFull means the event reached max_attendees and has no waitlist.
	ErrEventFull = errors.New("event is full")
	// ErrTicketCodeTaken is returned by the store when the minted code collides.
	ErrTicketCodeTaken = errors.New("ticket code already exists")
	// ErrTokenGenerationFailed means a unique ticket code could not be minted.
	ErrTokenGenerationFailed = errors.New("could not generate a unique ticket code")
	// ErrNotWaitlisted means the registration is not waiting for approval.
	ErrNotWaitlisted = errors.New("registration is not on the waitlist")
)
