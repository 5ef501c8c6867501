package team

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/pkg/database"
)

// ErrOwnerMember is returned when adding the event owner to their own team.
var ErrOwnerMember = errors.New("event owner cannot be a team member")

// Repository handles event_team_members persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a team repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// Add puts a user on the event team, or changes their role when already present.
func (r *Repository) Add(ctx context.Context, m *models.TeamMember) error {
	const q = `INSERT INTO event_team_members (event_id, user_id, role)
		SELECT $1, $2, $3 FROM events WHERE id = $1 AND owner_id <> $2
		ON CONFLICT (event_id, user_id) DO UPDATE SET role = EXCLUDED.role
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, q, m.EventID, m.UserID, m.Role).Scan(&m.ID, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOwnerMember
	}
	if err != nil {
		return fmt.Errorf("add team member: %w", err)
	}
	return nil
}

// List returns the event's team with account details.
func (r *Repository) List(ctx context.Context, eventID uuid.UUID) ([]models.TeamMember, error) {
	const q = `SELECT tm.id, tm.event_id, tm.user_id, u.email, u.full_name, tm.role, tm.created_at
		FROM event_team_members tm
		INNER JOIN users u ON u.id = tm.user_id
		WHERE tm.event_id = $1
		ORDER BY tm.created_at`
	rows, err := r.db.Query(ctx, q, eventID)
	if err != nil {
		return nil, fmt.Errorf("list team: %w", err)
	}
	defer rows.Close()
	list := []models.TeamMember{}
	for rows.Next() {
		var m models.TeamMember
		if err := rows.Scan(&m.ID, &m.EventID, &m.UserID, &m.Email, &m.FullName, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Remove takes a user off the event team.
func (r *Repository) Remove(ctx context.Context, eventID, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM event_team_members WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return fmt.Errorf("remove team member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}
