package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/pkg/response"
)

// RequireRole limits a route to platform roles. Per-event access is checked
// by events.RequireEventAccess instead.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ContextUserRole); !ok {
			response.Abort(c, http.StatusUnauthorized, "missing user context")
			return
		}
		role := models.Role(c.GetString(ContextUserRole))
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Abort(c, http.StatusForbidden, "insufficient permissions")
	}
}
