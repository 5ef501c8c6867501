package auth

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/pkg/utils"
)

var userColumns = []string{"id", "email", "password_hash", "full_name", "role", "created_at", "updated_at"}

func authRouter(t *testing.T) (*gin.Engine, pgxmock.PgxPoolIface) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	h := NewHandler(NewRepository(mock), NewJWTService("secret", 1), nil)
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	return r, mock
}

func TestRegisterCreatesOrganizer(t *testing.T) {
	r, mock := authRouter(t)
	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("org@example.com", pgxmock.AnyArg(), "Rina", "organizer").
		WillReturnRows(mock.NewRows(userColumns).AddRow(uuid.New(), "org@example.com", "hash", "Rina", models.RoleOrganizer, now, now))

	apitest.New().Handler(r).
		Post("/auth/register").
		JSON(`{"email":"Org@Example.com","password":"supersecret","full_name":"Rina"}`).
		Expect(t).
		Status(http.StatusCreated).
		End()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r, mock := authRouter(t)
	mock.ExpectQuery("INSERT INTO users").WithArgs("org@example.com", pgxmock.AnyArg(), "Rina", "organizer").WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	apitest.New().Handler(r).
		Post("/auth/register").
		JSON(`{"email":"org@example.com","password":"supersecret","full_name":"Rina"}`).
		Expect(t).
		Status(http.StatusConflict).
		Body(`{"success":false,"error":"email already registered"}`).
		End()
}

func TestLogin(t *testing.T) {
	r, mock := authRouter(t)
	hash, err := utils.HashPassword("supersecret")
	require.NoError(t, err)
	now := time.Now().UTC()
	for i := 0; i < 2; i++ {
		mock.ExpectQuery("SELECT (.+) FROM users WHERE lower\\(email\\)").
			WithArgs("org@example.com").
			WillReturnRows(mock.NewRows(userColumns).AddRow(uuid.New(), "org@example.com", hash, "Rina", models.RoleOrganizer, now, now))
	}

	apitest.New().Handler(r).
		Post("/auth/login").
		JSON(`{"email":"org@example.com","password":"supersecret"}`).
		Expect(t).
		Status(http.StatusOK).
		End()

	apitest.New().Handler(r).
		Post("/auth/login").
		JSON(`{"email":"org@example.com","password":"wrong-password"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUnknownEmailAndStoreFailure(t *testing.T) {
	r, mock := authRouter(t)
	mock.ExpectQuery("SELECT (.+) FROM users").WithArgs("nobody@example.com").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM users").WithArgs("org@example.com").WillReturnError(errors.New("connection reset"))

	apitest.New().Handler(r).
		Post("/auth/login").
		JSON(`{"email":"Nobody@Example.com","password":"supersecret"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		Body(`{"success":false,"error":"invalid email or password"}`).
		End()

	apitest.New().Handler(r).
		Post("/auth/login").
		JSON(`{"email":"org@example.com","password":"supersecret"}`).
		Expect(t).
		Status(http.StatusInternalServerError).
		End()

	assert.NoError(t, mock.ExpectationsWereMet())
}
