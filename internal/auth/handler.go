package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/pkg/database"
	"github.com/tixora/backend/pkg/response"
	"github.com/tixora/backend/pkg/utils"
)

const errBadCredentials = "invalid email or password"

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	FullName string `json:"full_name" binding:"required,max=200"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Session is returned by register and login; the dashboard keeps Token for
// API calls and the /ws token query parameter.
type Session struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler serves organizer account endpoints.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	logger *zap.Logger
}

func NewHandler(repo *Repository, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

// Register handles POST /auth/register. Self-registered accounts are organizers.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.BadRequest(c, "invalid password")
		return
	}

	user, err := h.repo.Create(c.Request.Context(), normalizeEmail(req.Email), hash, strings.TrimSpace(req.FullName), models.RoleOrganizer)
	switch {
	case errors.Is(err, ErrEmailTaken):
		response.Conflict(c, "email already registered")
		return
	case err != nil:
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}
	h.logger.Info("organizer registered", zap.String("user_id", user.ID.String()))
	h.issue(c, http.StatusCreated, user)
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), normalizeEmail(req.Email))
	if errors.Is(err, database.ErrNotFound) {
		response.Unauthorized(c, errBadCredentials)
		return
	}
	if err != nil {
		h.logger.Error("load user failed", zap.Error(err))
		response.Internal(c, "failed to sign in")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, errBadCredentials)
		return
	}
	h.issue(c, http.StatusOK, user)
}

// List handles GET /users for platform admins.
func (h *Handler) List(c *gin.Context) {
	users, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, users)
}

func (h *Handler) issue(c *gin.Context, status int, user *models.User) {
	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		h.logger.Error("sign token failed", zap.Error(err))
		response.Internal(c, "failed to generate token")
		return
	}
	c.JSON(status, response.Body{Success: true, Data: Session{Token: token, User: user.ToPublic()}})
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
