package emaillogs

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/pkg/database"
	"github.com/tixora/backend/pkg/queue"
	"github.com/tixora/backend/pkg/response"
)

// RegistrationFinder loads the registration a resend targets.
type RegistrationFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
}

// Enqueuer schedules email jobs.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	repo   *Repository
	regs   RegistrationFinder
	mail   Enqueuer
	logger *zap.Logger
}

// NewHandler creates an email logs handler. mail may be nil when Redis is unavailable.
func NewHandler(repo *Repository, regs RegistrationFinder, mail Enqueuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, regs: regs, mail: mail, logger: logger}
}

// ListByEvent handles GET /events/:id/emails.
// Call after RequireEventAccess so access is already validated.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	logs, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to load email logs")
		return
	}
	response.OK(c, logs)
}

// ResendRequest is the body for POST /events/:id/emails/resend.
type ResendRequest struct {
	RegistrationID string `json:"registration_id" binding:"required,uuid"`
}

// Resend handles POST /events/:id/emails/resend by queueing the ticket email again.
func (h *Handler) Resend(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var body ResendRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "registration_id required")
		return
	}
	if h.mail == nil {
		response.ServiceUnavailable(c, "email queue not configured")
		return
	}
	regID := uuid.MustParse(body.RegistrationID)
	reg, err := h.regs.GetByID(c.Request.Context(), regID)
	if errors.Is(err, database.ErrNotFound) || (err == nil && reg.EventID != eventID) {
		response.NotFound(c, "registration not found")
		return
	}
	if err != nil {
		response.Internal(c, "failed to load registration")
		return
	}
	err = h.mail.EnqueueEmail(c.Request.Context(), queue.EmailPayload{
		EmailType:      models.EmailTypeTicket,
		EventID:        eventID,
		RegistrationID: reg.ID,
		RecipientEmail: reg.Email,
	})
	if err != nil {
		h.logger.Error("resend enqueue failed", zap.Error(err), zap.String("registration_id", reg.ID.String()))
		response.ServiceUnavailable(c, "failed to queue email")
		return
	}
	response.OK(c, gin.H{"message": "resend queued", "registration_id": reg.ID})
}
