package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/pkg/database"
)

const columns = `id, owner_id, title, slug, description, location, event_date, event_time,
	max_attendees, is_published, enable_waitlist, image_url, created_at, updated_at`

// RoleOwner is reported by AccessRole for the event's creator.
const RoleOwner = "owner"

// ErrSlugTaken means the generated slug collided with an existing event.
var ErrSlugTaken = errors.New("slug already exists")

// Repository handles event persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates an events repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (owner_id, title, slug, description, location, event_date, event_time,
			max_attendees, is_published, enable_waitlist, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, q, e.OwnerID, e.Title, e.Slug, e.Description, e.Location, e.EventDate, e.EventTime,
		e.MaxAttendees, e.IsPublished, e.EnableWaitlist, e.ImageURL).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if _, ok := database.UniqueViolation(err); ok {
			return ErrSlugTaken
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM events WHERE id = $1`, id)
}

// GetBySlug returns an event by slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Event, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM events WHERE slug = $1`, slug)
}

func (r *Repository) getOne(ctx context.Context, q string, arg any) (*models.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx, q, arg))
	if err != nil {
		return nil, database.NoRows(err)
	}
	return e, nil
}

// ListForUser returns events the user owns or is on the team of, soonest first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Event, error) {
	q := `SELECT ` + columns + ` FROM events
		WHERE owner_id = $1
		   OR id IN (SELECT event_id FROM event_team_members WHERE user_id = $1)
		ORDER BY event_date DESC, created_at DESC`
	return r.list(ctx, q, userID)
}

// ListPublished returns published events from today on.
func (r *Repository) ListPublished(ctx context.Context) ([]models.Event, error) {
	q := `SELECT ` + columns + ` FROM events
		WHERE is_published = TRUE AND event_date >= CURRENT_DATE
		ORDER BY event_date ASC`
	return r.list(ctx, q)
}

func (r *Repository) list(ctx context.Context, q string, args ...any) ([]models.Event, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	list := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// Update writes the editable fields of e.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET title = $2, description = $3, location = $4, event_date = $5, event_time = $6,
			max_attendees = $7, is_published = $8, enable_waitlist = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.QueryRow(ctx, q, e.ID, e.Title, e.Description, e.Location, e.EventDate, e.EventTime,
		e.MaxAttendees, e.IsPublished, e.EnableWaitlist).Scan(&e.UpdatedAt)
	if err != nil {
		return database.NoRows(err)
	}
	return nil
}

// SetImageURL stores the cover image URL.
func (r *Repository) SetImageURL(ctx context.Context, id uuid.UUID, url string) error {
	tag, err := r.db.Exec(ctx, `UPDATE events SET image_url = $2, updated_at = NOW() WHERE id = $1`, id, url)
	if err != nil {
		return fmt.Errorf("set image url: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

// Delete removes an event and, through cascades, its registrations and team.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

// AccessRole returns RoleOwner, the team role of userID on the event, or ""
// when the user has no access. A missing event yields database.ErrNotFound.
func (r *Repository) AccessRole(ctx context.Context, eventID, userID uuid.UUID) (string, error) {
	const q = `SELECT CASE WHEN e.owner_id = $2 THEN 'owner' ELSE COALESCE(tm.role, '') END
		FROM events e
		LEFT JOIN event_team_members tm ON tm.event_id = e.id AND tm.user_id = $2
		WHERE e.id = $1`
	var role string
	if err := r.db.QueryRow(ctx, q, eventID, userID).Scan(&role); err != nil {
		return "", database.NoRows(err)
	}
	return role, nil
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.OwnerID, &e.Title, &e.Slug, &e.Description, &e.Location, &e.EventDate, &e.EventTime,
		&e.MaxAttendees, &e.IsPublished, &e.EnableWaitlist, &e.ImageURL, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
