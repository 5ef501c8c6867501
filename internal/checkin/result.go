package checkin

import (
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of one check-in attempt.
type Status string

const (
	StatusSuccess          Status = "SUCCESS"
	StatusInvalidToken     Status = "INVALID_TOKEN"
	StatusWrongEvent       Status = "WRONG_EVENT"
	StatusAlreadyCheckedIn Status = "ALREADY_CHECKED_IN"
	StatusTransientError   Status = "TRANSIENT_ERROR"
)

// wib is the zone staff messages are rendered in.
var wib = time.FixedZone("WIB", 7*60*60)

// Attendee identifies the ticket holder for the staff display.
type Attendee struct {
	RegistrationID uuid.UUID `json:"registration_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Waitlisted     bool      `json:"waitlisted"`
}

// Result is what a scan produced. Attendee is set for SUCCESS and
// ALREADY_CHECKED_IN; CheckedInAt is the time the ticket was redeemed.
type Result struct {
	Status      Status     `json:"status"`
	Attendee    *Attendee  `json:"attendee,omitempty"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
}

// Message is the text shown to door staff.
func (r Result) Message() string {
	switch r.Status {
	case StatusSuccess:
		return "Peserta berhasil check-in!"
	case StatusAlreadyCheckedIn:
		if r.CheckedInAt == nil {
			return "Peserta sudah check-in"
		}
		return "Peserta sudah check-in pada " + r.CheckedInAt.In(wib).Format("2/1/2006, 15.04.05")
	case StatusInvalidToken:
		return "QR code tidak valid atau tidak ditemukan."
	case StatusWrongEvent:
		return "QR code ini bukan untuk event ini."
	default:
		return "Gagal melakukan check-in. Silakan coba lagi."
	}
}

// Retryable reports whether scanning the same code again may give a different answer.
func (r Result) Retryable() bool {
	return r.Status == StatusTransientError
}
