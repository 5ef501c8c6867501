package events

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tixora/backend/internal/middleware"
	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/pkg/database"
	"github.com/tixora/backend/pkg/response"
)

// ContextEventRole is the context key for the caller's role on the event in :id.
const ContextEventRole = "event_role"

// AccessChecker resolves a user's role on an event.
type AccessChecker interface {
	AccessRole(ctx context.Context, eventID, userID uuid.UUID) (string, error)
}

// RequireEventAccess allows the event owner, platform admins, and team members
// whose role is in roles. Call after JWT.
func RequireEventAccess(repo AccessChecker, roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		eventID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.Abort(c, http.StatusBadRequest, "invalid event id")
			return
		}
		userID, ok := middleware.UserID(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "missing user context")
			return
		}
		role, err := repo.AccessRole(c.Request.Context(), eventID, userID)
		if errors.Is(err, database.ErrNotFound) {
			response.Abort(c, http.StatusNotFound, "event not found")
			return
		}
		if err != nil {
			response.Abort(c, http.StatusInternalServerError, "failed to check event access")
			return
		}
		if role == "" && models.Role(c.GetString(middleware.ContextUserRole)).IsAdmin() {
			role = RoleOwner
		}
		if role != RoleOwner {
			if _, ok := allowed[role]; !ok {
				response.Abort(c, http.StatusForbidden, "not authorized for this event")
				return
			}
		}
		c.Set(ContextEventRole, role)
		c.Next()
	}
}
