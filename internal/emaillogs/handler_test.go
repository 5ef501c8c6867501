package emaillogs

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/pkg/database"
	"github.com/tixora/backend/pkg/queue"
)

type regMap map[uuid.UUID]*models.Registration

func (m regMap) GetByID(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	r, ok := m[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return r, nil
}

type recordingQueue struct {
	jobs []queue.EmailPayload
	err  error
}

func (q *recordingQueue) EnqueueEmail(_ context.Context, p queue.EmailPayload) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, p)
	return nil
}

func emailRouter(t *testing.T, regs regMap, mail Enqueuer) (*gin.Engine, pgxmock.PgxPoolIface) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	h := NewHandler(NewRepository(mock), regs, mail, nil)
	r := gin.New()
	r.GET("/events/:id/emails", h.ListByEvent)
	r.POST("/events/:id/emails/resend", h.Resend)
	return r, mock
}

func TestListEmailLogs(t *testing.T) {
	eventID, regID := uuid.New(), uuid.New()
	r, mock := emailRouter(t, regMap{}, nil)
	subject, failure := "Tiket Kamu untuk Tech Meetup", "resend status 422: Invalid to field"
	mock.ExpectQuery("SELECT (.+) FROM email_logs").
		WithArgs(eventID).
		WillReturnRows(mock.NewRows([]string{"id", "event_id", "registration_id", "email_type", "recipient_email", "subject", "status", "sent_at", "error_message", "created_at"}).
			AddRow(uuid.New(), &eventID, &regID, "ticket", "a@example.com", &subject, "failed", nil, &failure, time.Now().UTC()))

	apitest.New().Handler(r).
		Get("/events/" + eventID.String() + "/emails").
		Expect(t).
		Status(http.StatusOK).
		End()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResendQueuesTicketEmail(t *testing.T) {
	eventID := uuid.New()
	reg := &models.Registration{ID: uuid.New(), EventID: eventID, Email: "gading@email.com"}
	foreign := &models.Registration{ID: uuid.New(), EventID: uuid.New(), Email: "x@example.com"}
	q := &recordingQueue{}
	r, _ := emailRouter(t, regMap{reg.ID: reg, foreign.ID: foreign}, q)
	path := "/events/" + eventID.String() + "/emails/resend"

	apitest.New().Handler(r).
		Post(path).
		JSON(`{"registration_id":"` + reg.ID.String() + `"}`).
		Expect(t).
		Status(http.StatusOK).
		End()

	apitest.New().Handler(r).
		Post(path).
		JSON(`{"registration_id":"` + foreign.ID.String() + `"}`).
		Expect(t).
		Status(http.StatusNotFound).
		End()

	apitest.New().Handler(r).
		Post(path).
		JSON(`{"registration_id":"nope"}`).
		Expect(t).
		Status(http.StatusBadRequest).
		End()

	require.Len(t, q.jobs, 1)
	assert.Equal(t, queue.EmailPayload{EmailType: models.EmailTypeTicket, EventID: eventID, RegistrationID: reg.ID, RecipientEmail: reg.Email}, q.jobs[0])
}

func TestResendQueueFailure(t *testing.T) {
	eventID := uuid.New()
	reg := &models.Registration{ID: uuid.New(), EventID: eventID, Email: "a@example.com"}
	r, _ := emailRouter(t, regMap{reg.ID: reg}, &recordingQueue{err: errors.New("redis down")})

	apitest.New().Handler(r).
		Post("/events/" + eventID.String() + "/emails/resend").
		JSON(`{"registration_id":"` + reg.ID.String() + `"}`).
		Expect(t).
		Status(http.StatusServiceUnavailable).
		End()
}
