package registrations

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/assert"

	"github.com/tixora/backend/internal/tickets"
)

func registrationRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/events/:id/register", h.Register)
	r.GET("/events/:id/registrations", h.List)
	r.POST("/events/:id/waitlist/:registrationId/approve", h.ApproveWaitlist)
	r.DELETE("/events/:id/waitlist/:registrationId", h.RejectWaitlist)
	return r
}

func TestRegisterEndpoint(t *testing.T) {
	ev := publishedEvent(capacity(1, false))
	store := newMemStore()
	issuer := NewIssuer(store, eventMap{ev.ID: ev}, tickets.NewMinter(), nil, nil, nil)
	r := registrationRouter(NewHandler(issuer, nil, "https://tixora.test", nil))

	apitest.New().
		Handler(r).
		Post("/events/" + ev.ID.String() + "/register").
		JSON(`{"name":"Gading Satrio","email":"gading@example.com"}`).
		Expect(t).
		Status(http.StatusCreated).
		End()

	apitest.New().
		Handler(r).
		Post("/events/" + ev.ID.String() + "/register").
		JSON(`{"name":"Gading Satrio","email":"gading@example.com"}`).
		Expect(t).
		Status(http.StatusConflict).
		Body(`{"success":false,"error":"Email ini sudah terdaftar untuk event ini."}`).
		End()

	apitest.New().
		Handler(r).
		Post("/events/" + ev.ID.String() + "/register").
		JSON(`{"name":"Another","email":"another@example.com"}`).
		Expect(t).
		Status(http.StatusConflict).
		Body(`{"success":false,"error":"Kuota peserta sudah penuh"}`).
		End()

	assert.Len(t, store.rows, 1)
}

func TestRegisterEndpointValidation(t *testing.T) {
	ev := publishedEvent()
	issuer := NewIssuer(newMemStore(), eventMap{ev.ID: ev}, tickets.NewMinter(), nil, nil, nil)
	r := registrationRouter(NewHandler(issuer, nil, "", nil))

	apitest.New().
		Handler(r).
		Post("/events/" + ev.ID.String() + "/register").
		JSON(`{"name":"Gading","email":"gading@example"}`).
		Expect(t).
		Status(http.StatusBadRequest).
		Body(`{"success":false,"data":{"fields":[{"field":"email","message":"Format email tidak valid"}]},"error":"Format email tidak valid"}`).
		End()

	apitest.New().
		Handler(r).
		Post("/events/" + ev.ID.String() + "/register").
		JSON(`{"name":"  ","email":"gading@example","phone":"12345"}`).
		Expect(t).
		Status(http.StatusBadRequest).
		Body(`{
			"success": false,
			"data": {"fields": [
				{"field": "name", "message": "Nama wajib diisi"},
				{"field": "email", "message": "Format email tidak valid"},
				{"field": "phone", "message": "Format nomor telepon tidak valid"}
			]},
			"error": "Nama wajib diisi; Format email tidak valid; Format nomor telepon tidak valid"
		}`).
		End()

	apitest.New().
		Handler(r).
		Post("/events/" + uuid.NewString() + "/register").
		JSON(`{"name":"Gading","email":"gading@example.com"}`).
		Expect(t).
		Status(http.StatusNotFound).
		Body(`{"success":false,"error":"Event tidak ditemukan"}`).
		End()

	apitest.New().
		Handler(r).
		Post("/events/not-a-uuid/register").
		JSON(`{}`).
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}

func TestWaitlistEndpoints(t *testing.T) {
	eventID, regID := uuid.New(), uuid.New()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("an error %q was not expected when opening a stub database connection", err)
	}
	defer mock.Close()
	mock.ExpectExec("UPDATE registrations SET is_waitlist = FALSE").
		WithArgs(regID, eventID, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("DELETE FROM registrations").
		WithArgs(regID, eventID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	r := registrationRouter(NewHandler(nil, NewRepository(mock), "", nil))

	apitest.New().
		Handler(r).
		Post("/events/" + eventID.String() + "/waitlist/" + regID.String() + "/approve").
		Expect(t).
		Status(http.StatusOK).
		End()

	apitest.New().
		Handler(r).
		Delete("/events/" + eventID.String() + "/waitlist/" + regID.String()).
		Expect(t).
		Status(http.StatusNotFound).
		End()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEndpointFiltersWaitlist(t *testing.T) {
	eventID := uuid.New()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("an error %q was not expected when opening a stub database connection", err)
	}
	defer mock.Close()
	mock.ExpectQuery("SELECT (.+) FROM registrations WHERE event_id = \\$1 AND is_waitlist = \\$2").
		WithArgs(eventID, true).
		WillReturnRows(mock.NewRows(registrationColumns))
	r := registrationRouter(NewHandler(nil, NewRepository(mock), "", nil))

	apitest.New().
		Handler(r).
		Get("/events/" + eventID.String() + "/registrations").
		Query("waitlist", "true").
		Expect(t).
		Status(http.StatusOK).
		Body(`{"success":true,"data":[]}`).
		End()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketURL(t *testing.T) {
	assert.Equal(t, "https://tixora.test/ticket/TIX-AB12CD34-M5D4RUO0", TicketURL("https://tixora.test", "TIX-AB12CD34-M5D4RUO0"))
}
