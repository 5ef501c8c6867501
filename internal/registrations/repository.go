package registrations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/pkg/database"
)

const (
	columns = `id, event_id, name, email, phone, qr_code, checked_in_at, is_waitlist, waitlist_approved_at, created_at`

	constraintTicketCode = "registrations_qr_code_key"
	constraintEventEmail = "registrations_event_email_key"
)

// Repository handles registration persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a registrations repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a registration. Unique violations are reported as
// ErrTicketCodeTaken or ErrDuplicateRegistration, a missing event as ErrEventNotFound.
func (r *Repository) Create(ctx context.Context, reg *models.Registration) error {
	const q = `INSERT INTO registrations (event_id, name, email, phone, qr_code, is_waitlist)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, q, reg.EventID, reg.Name, reg.Email, reg.Phone, reg.TicketCode, reg.IsWaitlist).
		Scan(&reg.ID, &reg.CreatedAt)
	if err == nil {
		return nil
	}
	if constraint, ok := database.UniqueViolation(err); ok {
		switch constraint {
		case constraintTicketCode:
			return ErrTicketCodeTaken
		case constraintEventEmail:
			return ErrDuplicateRegistration
		}
	}
	if database.ForeignKeyViolation(err) {
		return ErrEventNotFound
	}
	return fmt.Errorf("insert registration: %w", err)
}

// GetByID returns a registration by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM registrations WHERE id = $1`, id)
}

// GetByTicketCode returns the registration holding code.
func (r *Repository) GetByTicketCode(ctx context.Context, code string) (*models.Registration, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM registrations WHERE qr_code = $1`, code)
}

func (r *Repository) getOne(ctx context.Context, q string, arg any) (*models.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx, q, arg))
	if err != nil {
		return nil, database.NoRows(err)
	}
	return reg, nil
}

// ListByEvent returns the registrations of an event, newest first. waitlist
// filters on is_waitlist when non-nil.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID, waitlist *bool) ([]models.Registration, error) {
	q := `SELECT ` + columns + ` FROM registrations WHERE event_id = $1`
	args := []any{eventID}
	if waitlist != nil {
		q += ` AND is_waitlist = $2`
		args = append(args, *waitlist)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()
	list := []models.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *reg)
	}
	return list, rows.Err()
}

// ExistsByEmail reports whether email is already registered for the event.
// Emails are stored lowercased.
func (r *Repository) ExistsByEmail(ctx context.Context, eventID uuid.UUID, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1 AND email = $2)`, eventID, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check registration email: %w", err)
	}
	return exists, nil
}

// CountActiveByEvent returns the registrations that hold a seat (not waitlisted).
func (r *Repository) CountActiveByEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND is_waitlist = FALSE`, eventID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

// Stats returns registration totals for an event.
func (r *Repository) Stats(ctx context.Context, eventID uuid.UUID) (models.EventStats, error) {
	const q = `SELECT COUNT(*), COUNT(checked_in_at), COUNT(*) FILTER (WHERE is_waitlist)
		FROM registrations WHERE event_id = $1`
	s := models.EventStats{EventID: eventID}
	if err := r.db.QueryRow(ctx, q, eventID).Scan(&s.Total, &s.CheckedIn, &s.Waitlisted); err != nil {
		return s, fmt.Errorf("registration stats: %w", err)
	}
	return s, nil
}

// MarkCheckedIn stamps checked_in_at if it is still NULL. It reports whether
// this call performed the transition.
func (r *Repository) MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	const q = `UPDATE registrations SET checked_in_at = $2 WHERE id = $1 AND checked_in_at IS NULL`
	tag, err := r.db.Exec(ctx, q, id, at)
	if err != nil {
		return false, fmt.Errorf("mark checked in: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// BulkMarkCheckedIn stamps every listed registration of the event that is not
// yet checked in and returns how many rows changed.
func (r *Repository) BulkMarkCheckedIn(ctx context.Context, eventID uuid.UUID, ids []uuid.UUID, at time.Time) (int64, error) {
	const q = `UPDATE registrations SET checked_in_at = $3
		WHERE event_id = $1 AND id = ANY($2::uuid[]) AND checked_in_at IS NULL`
	tag, err := r.db.Exec(ctx, q, eventID, uuidStrings(ids), at)
	if err != nil {
		return 0, fmt.Errorf("bulk mark checked in: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ApproveWaitlist moves a waitlisted registration into the attendee list.
func (r *Repository) ApproveWaitlist(ctx context.Context, eventID, id uuid.UUID, at time.Time) error {
	const q = `UPDATE registrations SET is_waitlist = FALSE, waitlist_approved_at = $3
		WHERE id = $1 AND event_id = $2 AND is_waitlist = TRUE`
	tag, err := r.db.Exec(ctx, q, id, eventID, at)
	if err != nil {
		return fmt.Errorf("approve waitlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotWaitlisted
	}
	return nil
}

// DeleteWaitlisted removes a waitlisted registration.
func (r *Repository) DeleteWaitlisted(ctx context.Context, eventID, id uuid.UUID) error {
	const q = `DELETE FROM registrations WHERE id = $1 AND event_id = $2 AND is_waitlist = TRUE`
	tag, err := r.db.Exec(ctx, q, id, eventID)
	if err != nil {
		return fmt.Errorf("reject waitlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotWaitlisted
	}
	return nil
}

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var reg models.Registration
	err := row.Scan(&reg.ID, &reg.EventID, &reg.Name, &reg.Email, &reg.Phone, &reg.TicketCode,
		&reg.CheckedInAt, &reg.IsWaitlist, &reg.WaitlistApprovedAt, &reg.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
