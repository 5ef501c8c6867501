package registrations

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/pkg/response"
)

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	Registration *models.Registration `json:"registration"`
	TicketURL    string               `json:"ticket_url"`
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	issuer *Issuer
	repo   *Repository
	appURL string
	logger *zap.Logger
}

// NewHandler creates a registrations handler. appURL is the public base for ticket links.
func NewHandler(issuer *Issuer, repo *Repository, appURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{issuer: issuer, repo: repo, appURL: appURL, logger: logger}
}

// TicketURL returns the public page for a ticket code.
func TicketURL(appURL, code string) string {
	return appURL + "/ticket/" + code
}

// Register handles POST /events/:id/register.
func (h *Handler) Register(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	reg, err := h.issuer.Register(c.Request.Context(), eventID, req)
	if err != nil {
		var ve *ValidationError
		switch {
		case errors.As(err, &ve):
			c.JSON(http.StatusBadRequest, response.Body{Error: ve.Error(), Data: gin.H{"fields": ve.Fields}})
		case errors.Is(err, ErrEventNotFound):
			response.NotFound(c, "Event tidak ditemukan")
		case errors.Is(err, ErrDuplicateRegistration):
			response.Conflict(c, "Email ini sudah terdaftar untuk event ini.")
		case errors.Is(err, ErrEventFull):
			response.Conflict(c, "Kuota peserta sudah penuh")
		default:
			h.logger.Error("register failed", zap.Error(err), zap.String("event_id", eventID.String()))
			response.Internal(c, "failed to register")
		}
		return
	}
	response.Created(c, RegisterResponse{Registration: reg, TicketURL: TicketURL(h.appURL, reg.TicketCode)})
}

// List handles GET /events/:id/registrations. Optional ?waitlist=true|false.
func (h *Handler) List(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var waitlist *bool
	if v := c.Query("waitlist"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			response.BadRequest(c, "invalid waitlist filter")
			return
		}
		waitlist = &b
	}
	list, err := h.repo.ListByEvent(c.Request.Context(), eventID, waitlist)
	if err != nil {
		h.logger.Error("list registrations failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, list)
}

// ApproveWaitlist handles POST /events/:id/waitlist/:registrationId/approve.
func (h *Handler) ApproveWaitlist(c *gin.Context) {
	eventID, regID, ok := parseIDs(c)
	if !ok {
		return
	}
	err := h.repo.ApproveWaitlist(c.Request.Context(), eventID, regID, time.Now())
	h.waitlistResult(c, err, regID)
}

// RejectWaitlist handles DELETE /events/:id/waitlist/:registrationId.
func (h *Handler) RejectWaitlist(c *gin.Context) {
	eventID, regID, ok := parseIDs(c)
	if !ok {
		return
	}
	err := h.repo.DeleteWaitlisted(c.Request.Context(), eventID, regID)
	h.waitlistResult(c, err, regID)
}

func (h *Handler) waitlistResult(c *gin.Context, err error, regID uuid.UUID) {
	switch {
	case err == nil:
		response.OK(c, gin.H{"registration_id": regID})
	case errors.Is(err, ErrNotWaitlisted):
		response.NotFound(c, "waitlist entry not found")
	default:
		h.logger.Error("waitlist update failed", zap.Error(err), zap.String("registration_id", regID.String()))
		response.Internal(c, "failed to update waitlist")
	}
}

func parseIDs(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return uuid.Nil, uuid.Nil, false
	}
	regID, err := uuid.Parse(c.Param("registrationId"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return uuid.Nil, uuid.Nil, false
	}
	return eventID, regID, true
}
