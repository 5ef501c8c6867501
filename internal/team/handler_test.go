package team

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/pkg/database"
)

type userMap map[string]*models.User

func (m userMap) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := m[email]
	if !ok {
		return nil, database.ErrNotFound
	}
	return u, nil
}

func teamRouter(t *testing.T, users userMap) (*gin.Engine, pgxmock.PgxPoolIface) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	h := NewHandler(NewRepository(mock), users, nil)
	r := gin.New()
	r.POST("/events/:id/team", h.Add)
	r.GET("/events/:id/team", h.List)
	r.DELETE("/events/:id/team/:userId", h.Remove)
	return r, mock
}

func TestAddTeamMember(t *testing.T) {
	eventID := uuid.New()
	staff := &models.User{ID: uuid.New(), Email: "staff@example.com", FullName: "Dewi"}
	r, mock := teamRouter(t, userMap{staff.Email: staff})
	mock.ExpectQuery("INSERT INTO event_team_members").
		WithArgs(eventID, staff.ID, models.TeamRoleStaff).
		WillReturnRows(mock.NewRows([]string{"id", "created_at"}).AddRow(uuid.New(), time.Now().UTC()))

	apitest.New().Handler(r).
		Post("/events/" + eventID.String() + "/team").
		JSON(`{"email":"staff@example.com","role":"staff"}`).
		Expect(t).
		Status(http.StatusCreated).
		End()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddTeamMemberErrors(t *testing.T) {
	eventID := uuid.New()
	owner := &models.User{ID: uuid.New(), Email: "owner@example.com"}
	r, mock := teamRouter(t, userMap{owner.Email: owner})
	mock.ExpectQuery("INSERT INTO event_team_members").
		WithArgs(eventID, owner.ID, models.TeamRoleAdmin).
		WillReturnError(pgx.ErrNoRows)
	path := "/events/" + eventID.String() + "/team"

	apitest.New().Handler(r).
		Post(path).
		JSON(`{"email":"owner@example.com","role":"admin"}`).
		Expect(t).
		Status(http.StatusConflict).
		End()

	apitest.New().Handler(r).
		Post(path).
		JSON(`{"email":"nobody@example.com","role":"staff"}`).
		Expect(t).
		Status(http.StatusNotFound).
		End()

	apitest.New().Handler(r).
		Post(path).
		JSON(`{"email":"owner@example.com","role":"superuser"}`).
		Expect(t).
		Status(http.StatusBadRequest).
		End()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAndRemoveTeam(t *testing.T) {
	eventID, userID := uuid.New(), uuid.New()
	r, mock := teamRouter(t, userMap{})
	mock.ExpectQuery("SELECT (.+) FROM event_team_members tm").
		WithArgs(eventID).
		WillReturnRows(mock.NewRows([]string{"id", "event_id", "user_id", "email", "full_name", "role", "created_at"}).
			AddRow(uuid.New(), eventID, userID, "staff@example.com", "Dewi", "staff", time.Now().UTC()))
	mock.ExpectExec("DELETE FROM event_team_members").
		WithArgs(eventID, userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM event_team_members").
		WithArgs(eventID, userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	apitest.New().Handler(r).
		Get("/events/" + eventID.String() + "/team").
		Expect(t).
		Status(http.StatusOK).
		End()

	apitest.New().Handler(r).
		Delete("/events/" + eventID.String() + "/team/" + userID.String()).
		Expect(t).
		Status(http.StatusNoContent).
		End()

	apitest.New().Handler(r).
		Delete("/events/" + eventID.String() + "/team/" + userID.String()).
		Expect(t).
		Status(http.StatusNotFound).
		End()

	assert.NoError(t, mock.ExpectationsWereMet())
}
