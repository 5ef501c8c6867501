package tickets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/pkg/database"
)

const testCode = "TIX-AB12CD34-M5D4RUO0"

type fakeRegs map[string]*models.Registration

func (f fakeRegs) GetByTicketCode(_ context.Context, code string) (*models.Registration, error) {
	if r, ok := f[code]; ok {
		return r, nil
	}
	return nil, database.ErrNotFound
}

type fakeEvents map[uuid.UUID]*models.Event

func (f fakeEvents) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	if e, ok := f[id]; ok {
		return e, nil
	}
	return nil, database.ErrNotFound
}

type memCards struct {
	store map[string][]byte
	puts  int
}

func (m *memCards) GetCard(_ context.Context, code string) ([]byte, error) {
	if b, ok := m.store[code]; ok {
		return b, nil
	}
	return nil, errors.New("miss")
}

func (m *memCards) PutCard(_ context.Context, code string, png []byte) error {
	m.store[code] = png
	m.puts++
	return nil
}

func ticketRouter(cards CardCache) *gin.Engine {
	gin.SetMode(gin.TestMode)
	eventID := uuid.New()
	checkedAt := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	regs := fakeRegs{
		testCode: {ID: uuid.New(), EventID: eventID, Name: "Gading Satrio", Email: "gading@example.com", TicketCode: testCode, CheckedInAt: &checkedAt},
	}
	events := fakeEvents{
		eventID: {ID: eventID, Title: "Tech Meetup Jakarta", Slug: "tech-meetup-jakarta-a1b2c3"},
	}
	h := NewHandler(regs, events, cards, 200, nil)
	r := gin.New()
	r.GET("/tickets/:code", h.Get)
	r.GET("/tickets/:code/qr.png", h.QR)
	r.GET("/tickets/:code/image.png", h.Card)
	return r
}

func TestGetTicket(t *testing.T) {
	apitest.New().
		Handler(ticketRouter(nil)).
		Get("/tickets/" + "tix-ab12cd34-m5d4ruo0").
		Expect(t).
		Status(http.StatusOK).
		Assert(func(res *http.Response, _ *http.Request) error {
			var body struct {
				Success bool       `json:"success"`
				Data    TicketView `json:"data"`
			}
			if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
				return err
			}
			if !body.Success || body.Data.Code != testCode || !body.Data.CheckedIn || body.Data.Event.Title != "Tech Meetup Jakarta" {
				return fmt.Errorf("unexpected ticket payload: %+v", body)
			}
			return nil
		}).
		End()
}

func TestGetTicketNotFound(t *testing.T) {
	for _, path := range []string{"/tickets/TIX-00000000-M5D4RUO0", "/tickets/not-a-code", "/tickets/TIX-00000000-M5D4RUO0/qr.png"} {
		apitest.New().
			Handler(ticketRouter(nil)).
			Get(path).
			Expect(t).
			Status(http.StatusNotFound).
			Body(`{"success":false,"error":"ticket not found"}`).
			End()
	}
}

func TestQRPNGDecodesToCode(t *testing.T) {
	apitest.New().
		Handler(ticketRouter(nil)).
		Get("/tickets/" + testCode + "/qr.png").
		Expect(t).
		Status(http.StatusOK).
		Header("Content-Type", "image/png").
		Assert(func(res *http.Response, _ *http.Request) error {
			b, err := io.ReadAll(res.Body)
			if err != nil {
				return err
			}
			got, err := DecodeBytes(b)
			if err != nil {
				return err
			}
			if got != testCode {
				return fmt.Errorf("decoded %q", got)
			}
			return nil
		}).
		End()
}

func TestCardIsCachedAfterFirstRender(t *testing.T) {
	cards := &memCards{store: map[string][]byte{}}
	r := ticketRouter(cards)

	for i := 0; i < 2; i++ {
		apitest.New().
			Handler(r).
			Get("/tickets/" + testCode + "/image.png").
			Expect(t).
			Status(http.StatusOK).
			Header("Content-Type", "image/png").
			End()
	}

	assert.Equal(t, 1, cards.puts)
	got, err := DecodeBytes(cards.store[testCode])
	require.NoError(t, err)
	assert.Equal(t, testCode, got)
}
