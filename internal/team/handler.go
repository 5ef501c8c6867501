package team

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/pkg/database"
	"github.com/tixora/backend/pkg/response"
)

// AddRequest is the body for POST /events/:id/team.
type AddRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required,oneof=admin staff"`
}

// UserFinder looks up accounts by email.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Handler handles event team endpoints. Routes sit behind events.RequireEventAccess.
type Handler struct {
	repo   *Repository
	users  UserFinder
	logger *zap.Logger
}

// NewHandler creates a team handler.
func NewHandler(repo *Repository, users UserFinder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, users: users, logger: logger}
}

// Add handles POST /events/:id/team. The invitee must already have an account.
func (h *Handler) Add(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := h.users.GetByEmail(c.Request.Context(), strings.TrimSpace(req.Email))
	if errors.Is(err, database.ErrNotFound) {
		response.NotFound(c, "Pengguna dengan email ini belum terdaftar")
		return
	}
	if err != nil {
		response.Internal(c, "failed to look up user")
		return
	}
	m := &models.TeamMember{EventID: eventID, UserID: u.ID, Email: u.Email, FullName: u.FullName, Role: req.Role}
	if err := h.repo.Add(c.Request.Context(), m); err != nil {
		if errors.Is(err, ErrOwnerMember) {
			response.Conflict(c, err.Error())
			return
		}
		h.logger.Error("add team member failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to add team member")
		return
	}
	response.Created(c, m)
}

// List handles GET /events/:id/team.
func (h *Handler) List(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.repo.List(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to list team")
		return
	}
	response.OK(c, list)
}

// Remove handles DELETE /events/:id/team/:userId.
func (h *Handler) Remove(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if err := h.repo.Remove(c.Request.Context(), eventID, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			response.NotFound(c, "team member not found")
			return
		}
		response.Internal(c, "failed to remove team member")
		return
	}
	response.NoContent(c)
}
