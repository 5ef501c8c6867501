package tickets

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/pkg/database"
	"github.com/tixora/backend/pkg/response"
)

// RegistrationFinder looks a registration up by its ticket code.
type RegistrationFinder interface {
	GetByTicketCode(ctx context.Context, code string) (*models.Registration, error)
}

// EventFinder loads the event a ticket belongs to.
type EventFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// CardCache stores rendered ticket cards. Any GetCard error is treated as a miss.
type CardCache interface {
	GetCard(ctx context.Context, code string) ([]byte, error)
	PutCard(ctx context.Context, code string, png []byte) error
}

// TicketView is the public ticket payload.
type TicketView struct {
	Code        string      `json:"qr_code"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	IsWaitlist  bool        `json:"is_waitlist"`
	CheckedIn   bool        `json:"checked_in"`
	CheckedInAt *time.Time  `json:"checked_in_at,omitempty"`
	Event       TicketEvent `json:"event"`
}

// TicketEvent is the event summary printed on a ticket.
type TicketEvent struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	EventDate time.Time `json:"event_date"`
	EventTime *string   `json:"event_time,omitempty"`
	Location  *string   `json:"location,omitempty"`
}

// Handler serves ticket lookups and images.
type Handler struct {
	regs   RegistrationFinder
	events EventFinder
	cards  CardCache
	qrSize int
	logger *zap.Logger
}

// NewHandler creates a tickets handler. cards may be nil.
func NewHandler(regs RegistrationFinder, events EventFinder, cards CardCache, qrSize int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{regs: regs, events: events, cards: cards, qrSize: qrSize, logger: logger}
}

// Get handles GET /tickets/:code.
func (h *Handler) Get(c *gin.Context) {
	reg, ev, ok := h.load(c)
	if !ok {
		return
	}
	response.OK(c, TicketView{
		Code:        reg.TicketCode,
		Name:        reg.Name,
		Email:       reg.Email,
		IsWaitlist:  reg.IsWaitlist,
		CheckedIn:   reg.CheckedIn(),
		CheckedInAt: reg.CheckedInAt,
		Event: TicketEvent{
			ID:        ev.ID,
			Title:     ev.Title,
			Slug:      ev.Slug,
			EventDate: ev.EventDate,
			EventTime: ev.EventTime,
			Location:  ev.Location,
		},
	})
}

// QR handles GET /tickets/:code/qr.png.
func (h *Handler) QR(c *gin.Context) {
	code := Normalize(c.Param("code"))
	if !IsWellFormed(code) {
		response.NotFound(c, "ticket not found")
		return
	}
	if _, err := h.regs.GetByTicketCode(c.Request.Context(), code); err != nil {
		h.lookupFailed(c, code, err)
		return
	}
	png, err := EncodePNG(code, h.qrSize)
	if err != nil {
		h.logger.Error("encode qr failed", zap.Error(err), zap.String("code", code))
		response.Internal(c, "failed to render qr code")
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", png)
}

// Card handles GET /tickets/:code/image.png.
func (h *Handler) Card(c *gin.Context) {
	reg, ev, ok := h.load(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if h.cards != nil {
		if png, err := h.cards.GetCard(ctx, reg.TicketCode); err == nil {
			c.Data(http.StatusOK, "image/png", png)
			return
		}
	}
	png, err := RenderCardPNG(Card{Code: reg.TicketCode, AttendeeName: reg.Name, EventTitle: ev.Title}, h.qrSize)
	if err != nil {
		h.logger.Error("render card failed", zap.Error(err), zap.String("code", reg.TicketCode))
		response.Internal(c, "failed to render ticket")
		return
	}
	if h.cards != nil {
		if err := h.cards.PutCard(ctx, reg.TicketCode, png); err != nil {
			h.logger.Warn("cache ticket card failed", zap.Error(err), zap.String("code", reg.TicketCode))
		}
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) load(c *gin.Context) (*models.Registration, *models.Event, bool) {
	code := Normalize(c.Param("code"))
	if !IsWellFormed(code) {
		response.NotFound(c, "ticket not found")
		return nil, nil, false
	}
	ctx := c.Request.Context()
	reg, err := h.regs.GetByTicketCode(ctx, code)
	if err != nil {
		h.lookupFailed(c, code, err)
		return nil, nil, false
	}
	ev, err := h.events.GetByID(ctx, reg.EventID)
	if err != nil {
		h.lookupFailed(c, code, err)
		return nil, nil, false
	}
	return reg, ev, true
}

func (h *Handler) lookupFailed(c *gin.Context, code string, err error) {
	if errors.Is(err, database.ErrNotFound) {
		response.NotFound(c, "ticket not found")
		return
	}
	h.logger.Error("ticket lookup failed", zap.Error(err), zap.String("code", code))
	response.Internal(c, "failed to load ticket")
}
